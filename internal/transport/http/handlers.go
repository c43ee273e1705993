package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"metrolab/internal/assets/models"
	"metrolab/internal/assets/service"
	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
)

// Handler is the thin HTTP layer. It delegates to domain services without
// embedding business logic so transport concerns remain isolated.
//
// The caller identity arrives in X-User-ID, X-User-Role and X-Department-ID
// headers, set by the identity gateway in front of this service.
type Handler struct {
	Instruments  *service.InstrumentService
	Certificates *service.CertificateService
	Calibrations *service.CalibrationService
	Reviews      *service.ReviewService
	Maintenance  *service.MaintenanceService
}

func (h *Handler) routes(r chi.Router) {
	r.Route("/instruments", func(r chi.Router) {
		r.Post("/", h.createInstrument)
		r.Get("/{instrumentID}", h.getInstrument)
		r.Patch("/{instrumentID}", h.updateInstrument)
		r.Get("/{instrumentID}/calibrations", h.listCalibrations)
		r.Get("/{instrumentID}/reviews", h.listReviews)
		r.Get("/{instrumentID}/maintenance", h.listMaintenance)
	})
	r.Route("/certificates", func(r chi.Router) {
		r.Post("/", h.createCertificate)
		r.Get("/{certificateID}", h.getCertificate)
		r.Post("/{certificateID}/submit", h.submitCertificate)
		r.Post("/{certificateID}/review", h.reviewCertificate)
		r.Post("/{certificateID}/versions", h.createCertificateVersion)
		r.Post("/{certificateID}/evaluate", h.evaluateCertificate)
	})
	r.Route("/calibrations", func(r chi.Router) {
		r.Post("/", h.createCalibration)
		r.Get("/{recordID}", h.getCalibration)
		r.Patch("/{recordID}", h.updateCalibration)
	})
	r.Route("/reviews", func(r chi.Router) {
		r.Post("/", h.createReview)
		r.Get("/{reviewID}", h.getReview)
		r.Patch("/{reviewID}", h.updateReview)
		r.Post("/{reviewID}/ticket", h.createReviewTicket)
	})
	r.Route("/maintenance", func(r chi.Router) {
		r.Post("/", h.createMaintenance)
		r.Get("/{recordID}", h.getMaintenance)
		r.Patch("/{recordID}", h.updateMaintenance)
	})
}

func (h *Handler) createInstrument(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Name           string     `json:"name"`
		SerialNumber   string     `json:"serial_number"`
		Model          string     `json:"model"`
		Manufacturer   string     `json:"manufacturer"`
		Category       string     `json:"category"`
		LocationID     string     `json:"location_id"`
		DepartmentID   string     `json:"department_id"`
		NextReviewDate *time.Time `json:"next_review_date"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	departmentID, err := id.ParseDepartmentID(body.DepartmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	var locationID id.LocationID
	if body.LocationID != "" {
		locationID, err = id.ParseLocationID(body.LocationID)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	instrument, err := h.Instruments.Create(r.Context(), actor, service.CreateInstrumentRequest{
		Name:           body.Name,
		SerialNumber:   body.SerialNumber,
		Model:          body.Model,
		Manufacturer:   body.Manufacturer,
		Category:       models.InstrumentCategory(body.Category),
		LocationID:     locationID,
		DepartmentID:   departmentID,
		NextReviewDate: body.NextReviewDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, instrument)
}

func (h *Handler) getInstrument(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	instrumentID, err := id.ParseInstrumentID(chi.URLParam(r, "instrumentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	instrument, err := h.Instruments.Get(r.Context(), actor, instrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instrument)
}

func (h *Handler) updateInstrument(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	instrumentID, err := id.ParseInstrumentID(chi.URLParam(r, "instrumentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Name           *string    `json:"name"`
		Model          *string    `json:"model"`
		Manufacturer   *string    `json:"manufacturer"`
		Status         *string    `json:"status"`
		LocationID     *string    `json:"location_id"`
		NextReviewDate *time.Time `json:"next_review_date"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req := service.UpdateInstrumentRequest{
		Name:           body.Name,
		Model:          body.Model,
		Manufacturer:   body.Manufacturer,
		NextReviewDate: body.NextReviewDate,
	}
	if body.Status != nil {
		status := models.InstrumentStatus(*body.Status)
		req.Status = &status
	}
	if body.LocationID != nil {
		locationID, err := id.ParseLocationID(*body.LocationID)
		if err != nil {
			writeError(w, err)
			return
		}
		req.LocationID = &locationID
	}
	instrument, err := h.Instruments.Update(r.Context(), actor, instrumentID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instrument)
}

func (h *Handler) createCertificate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		CertificateNumber string                 `json:"certificate_number"`
		CertificateType   string                 `json:"certificate_type"`
		IssueDate         time.Time              `json:"issue_date"`
		ExpiryDate        time.Time              `json:"expiry_date"`
		CalibrationData   models.CalibrationData `json:"calibration_data"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	cert, err := h.Certificates.Create(r.Context(), actor, service.CreateCertificateRequest{
		CertificateNumber: body.CertificateNumber,
		CertificateType:   models.CertificateType(body.CertificateType),
		IssueDate:         body.IssueDate,
		ExpiryDate:        body.ExpiryDate,
		CalibrationData:   body.CalibrationData,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cert)
}

func (h *Handler) getCertificate(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	cert, err := h.Certificates.Get(r.Context(), certID)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("versions") == "all" {
		versions, err := h.Certificates.Versions(r.Context(), cert.CertificateNumber)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, versions)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

func (h *Handler) submitCertificate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	cert, err := h.Certificates.Submit(r.Context(), actor, certID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

func (h *Handler) reviewCertificate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Decision          string   `json:"decision"`
		Notes             string   `json:"notes"`
		NonConformities   []string `json:"non_conformities"`
		CorrectiveActions []string `json:"corrective_actions"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	cert, err := h.Certificates.Review(r.Context(), actor, certID, models.QAReview{
		Decision:          body.Decision,
		Notes:             body.Notes,
		NonConformities:   body.NonConformities,
		CorrectiveActions: body.CorrectiveActions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

func (h *Handler) createCertificateVersion(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	next, err := h.Certificates.CreateNewVersion(r.Context(), actor, certID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, next)
}

func (h *Handler) evaluateCertificate(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var criteria models.AcceptanceCriteria
	if err := decode(r, &criteria); err != nil {
		writeError(w, err)
		return
	}
	valid, message, err := h.Certificates.EvaluateAcceptance(r.Context(), certID, criteria)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": valid, "message": message})
}

func (h *Handler) createCalibration(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		InstrumentID        string     `json:"instrument_id"`
		CalibrationType     string     `json:"calibration_type"`
		Description         string     `json:"description"`
		Status              string     `json:"status"`
		DatePerformed       *time.Time `json:"date_performed"`
		NextCalibrationDate *time.Time `json:"next_calibration_date"`
		CertificateID       *string    `json:"certificate_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	instrumentID, err := id.ParseInstrumentID(body.InstrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	req := service.CreateCalibrationRequest{
		InstrumentID:        instrumentID,
		CalibrationType:     models.CalibrationType(body.CalibrationType),
		Description:         body.Description,
		Status:              models.RecordStatus(body.Status),
		DatePerformed:       body.DatePerformed,
		NextCalibrationDate: body.NextCalibrationDate,
	}
	if body.CertificateID != nil {
		certID, err := id.ParseCertificateID(*body.CertificateID)
		if err != nil {
			writeError(w, err)
			return
		}
		req.CertificateID = &certID
	}
	record, err := h.Calibrations.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) getCalibration(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recordID, err := id.ParseCalibrationRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := h.Calibrations.Get(r.Context(), actor, recordID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) updateCalibration(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recordID, err := id.ParseCalibrationRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Status              *string    `json:"status"`
		Description         *string    `json:"description"`
		DatePerformed       *time.Time `json:"date_performed"`
		NextCalibrationDate *time.Time `json:"next_calibration_date"`
		CertificateID       *string    `json:"certificate_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req := service.UpdateCalibrationRequest{
		Description:         body.Description,
		DatePerformed:       body.DatePerformed,
		NextCalibrationDate: body.NextCalibrationDate,
	}
	if body.Status != nil {
		status := models.RecordStatus(*body.Status)
		req.Status = &status
	}
	if body.CertificateID != nil {
		certID, err := id.ParseCertificateID(*body.CertificateID)
		if err != nil {
			writeError(w, err)
			return
		}
		req.CertificateID = &certID
	}
	record, err := h.Calibrations.Update(r.Context(), actor, recordID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) listCalibrations(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	instrumentID, err := id.ParseInstrumentID(chi.URLParam(r, "instrumentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.Calibrations.ListByInstrument(r.Context(), actor, instrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		InstrumentID string `json:"instrument_id"`
		Priority     string `json:"priority"`
		Reason       string `json:"reason"`
		AssignedTo   string `json:"assigned_to"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	instrumentID, err := id.ParseInstrumentID(body.InstrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	req := service.CreateReviewRequest{
		InstrumentID: instrumentID,
		Priority:     models.Priority(body.Priority),
		Reason:       body.Reason,
	}
	if body.AssignedTo != "" {
		assignee, err := id.ParseUserID(body.AssignedTo)
		if err != nil {
			writeError(w, err)
			return
		}
		req.AssignedTo = assignee
	}
	review, err := h.Reviews.Create(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) getReview(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	reviewID, err := id.ParseReviewID(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, err)
		return
	}
	review, err := h.Reviews.Get(r.Context(), actor, reviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) updateReview(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	reviewID, err := id.ParseReviewID(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Status     *string `json:"status"`
		Priority   *string `json:"priority"`
		Reason     *string `json:"reason"`
		AssignedTo *string `json:"assigned_to"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req := service.UpdateReviewRequest{Reason: body.Reason}
	if body.Status != nil {
		status := models.ReviewStatus(*body.Status)
		req.Status = &status
	}
	if body.Priority != nil {
		priority := models.Priority(*body.Priority)
		req.Priority = &priority
	}
	if body.AssignedTo != nil {
		assignee, err := id.ParseUserID(*body.AssignedTo)
		if err != nil {
			writeError(w, err)
			return
		}
		req.AssignedTo = &assignee
	}
	review, err := h.Reviews.Update(r.Context(), actor, reviewID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) createReviewTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	reviewID, err := id.ParseReviewID(chi.URLParam(r, "reviewID"))
	if err != nil {
		writeError(w, err)
		return
	}
	ticket, err := h.Reviews.CreateTicket(r.Context(), actor, reviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	instrumentID, err := id.ParseInstrumentID(chi.URLParam(r, "instrumentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	reviews, err := h.Reviews.ListByInstrument(r.Context(), actor, instrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *Handler) createMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		InstrumentID    string    `json:"instrument_id"`
		PerformedBy     string    `json:"performed_by"`
		MaintenanceType string    `json:"maintenance_type"`
		Description     string    `json:"description"`
		StartDate       time.Time `json:"start_date"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	instrumentID, err := id.ParseInstrumentID(body.InstrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	performedBy := actor.ID
	if body.PerformedBy != "" {
		performedBy, err = id.ParseUserID(body.PerformedBy)
		if err != nil {
			writeError(w, err)
			return
		}
	}
	record, err := h.Maintenance.Create(r.Context(), actor, service.CreateMaintenanceRequest{
		InstrumentID:    instrumentID,
		PerformedBy:     performedBy,
		MaintenanceType: models.MaintenanceType(body.MaintenanceType),
		Description:     body.Description,
		StartDate:       body.StartDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) getMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recordID, err := id.ParseMaintenanceRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := h.Maintenance.Get(r.Context(), actor, recordID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) updateMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recordID, err := id.ParseMaintenanceRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Status      *string    `json:"status"`
		Description *string    `json:"description"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		PerformedBy *string    `json:"performed_by"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req := service.UpdateMaintenanceRequest{
		Description: body.Description,
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
	}
	if body.Status != nil {
		status := models.RecordStatus(*body.Status)
		req.Status = &status
	}
	if body.PerformedBy != nil {
		performedBy, err := id.ParseUserID(*body.PerformedBy)
		if err != nil {
			writeError(w, err)
			return
		}
		req.PerformedBy = &performedBy
	}
	record, err := h.Maintenance.Update(r.Context(), actor, recordID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) listMaintenance(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	instrumentID, err := id.ParseInstrumentID(chi.URLParam(r, "instrumentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.Maintenance.ListByInstrument(r.Context(), actor, instrumentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func actorFrom(r *http.Request) (models.Actor, error) {
	userID, err := id.ParseUserID(r.Header.Get("X-User-ID"))
	if err != nil {
		return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid caller identity")
	}
	role := models.Role(r.Header.Get("X-User-Role"))
	if !role.IsValid() {
		return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid caller role")
	}
	actor := models.Actor{ID: userID, Role: role, Email: r.Header.Get("X-User-Email")}
	if raw := r.Header.Get("X-Department-ID"); raw != "" {
		departmentID, err := id.ParseDepartmentID(raw)
		if err != nil {
			return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid caller department")
		}
		actor.DepartmentID = departmentID
	}
	return actor, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler produces the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	status := http.StatusInternalServerError
	code := string(dErrors.CodeInternal)
	message := "internal error"
	if errors.As(err, &domainErr) {
		status = httpStatus(domainErr.Code)
		code = string(domainErr.Code)
		message = domainErr.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

func httpStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvariantViolation, dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
