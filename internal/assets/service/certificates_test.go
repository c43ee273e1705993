package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrolab/internal/assets/models"
	certificatestore "metrolab/internal/assets/store/certificate"
	id "metrolab/pkg/domain"
	dErrors "metrolab/pkg/domain-errors"
)

func newCertificateService() (*CertificateService, *certificatestore.InMemory) {
	store := certificatestore.NewInMemory()
	svc := NewCertificateService(store, NopTxRunner{}, WithCertificateClock(fixedClock))
	return svc, store
}

func createCertificateRequest(number string) CreateCertificateRequest {
	return CreateCertificateRequest{
		CertificateNumber: number,
		CertificateType:   models.CertificateTypeRoutine,
		IssueDate:         testNow,
		ExpiryDate:        testNow.AddDate(1, 0, 0),
		CalibrationData:   validSubmissionData(),
	}
}

func TestCertificateCreate(t *testing.T) {
	ctx := context.Background()
	actor := newActor(models.RoleTechnician, id.DepartmentID(uuid.New()))

	t.Run("creates a draft certificate", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, actor, createCertificateRequest("CERT-001"))
		require.NoError(t, err)
		assert.Equal(t, models.CertificateStatusDraft, cert.Status)
		assert.Equal(t, 1, cert.Version)
		assert.Equal(t, actor.ID, cert.CreatedBy)
	})

	t.Run("rejects submission without standard_used", func(t *testing.T) {
		svc, _ := newCertificateService()
		req := createCertificateRequest("CERT-002")
		delete(req.CalibrationData, "standard_used")

		_, err := svc.Create(ctx, actor, req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects expiry not after issue date", func(t *testing.T) {
		svc, _ := newCertificateService()
		req := createCertificateRequest("CERT-003")
		req.ExpiryDate = req.IssueDate

		_, err := svc.Create(ctx, actor, req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("duplicate number and version conflicts", func(t *testing.T) {
		svc, _ := newCertificateService()
		_, err := svc.Create(ctx, actor, createCertificateRequest("CERT-004"))
		require.NoError(t, err)

		_, err = svc.Create(ctx, actor, createCertificateRequest("CERT-004"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestCertificateSubmit(t *testing.T) {
	ctx := context.Background()
	creator := newActor(models.RoleTechnician, id.DepartmentID(uuid.New()))
	qa := newActor(models.RoleQA, id.DepartmentID(uuid.New()))

	t.Run("draft moves to pending review", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-050"))
		require.NoError(t, err)

		submitted, err := svc.Submit(ctx, creator, cert.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CertificateStatusPendingReview, submitted.Status)
	})

	t.Run("pending certificate can be reviewed", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-051"))
		require.NoError(t, err)
		_, err = svc.Submit(ctx, creator, cert.ID)
		require.NoError(t, err)

		reviewed, err := svc.Review(ctx, qa, cert.ID, models.QAReview{Decision: "approved"})
		require.NoError(t, err)
		assert.Equal(t, models.CertificateStatusApproved, reviewed.Status)
	})

	t.Run("reviewed certificate cannot be resubmitted", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-052"))
		require.NoError(t, err)
		_, err = svc.Review(ctx, qa, cert.ID, models.QAReview{Decision: "rejected"})
		require.NoError(t, err)

		_, err = svc.Submit(ctx, creator, cert.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("unknown certificate", func(t *testing.T) {
		svc, _ := newCertificateService()
		_, err := svc.Submit(ctx, creator, id.CertificateID(uuid.New()))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestCertificateReview(t *testing.T) {
	ctx := context.Background()
	creator := newActor(models.RoleTechnician, id.DepartmentID(uuid.New()))
	qa := newActor(models.RoleQA, id.DepartmentID(uuid.New()))

	t.Run("QA approves a draft certificate", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-100"))
		require.NoError(t, err)

		reviewed, err := svc.Review(ctx, qa, cert.ID, models.QAReview{Decision: "approved", Notes: "ok"})
		require.NoError(t, err)
		assert.Equal(t, models.CertificateStatusApproved, reviewed.Status)
		assert.True(t, reviewed.IsApproved)
		assert.Equal(t, qa.ID, reviewed.Reviewer, "reviewer defaults to the acting user")
	})

	t.Run("non-QA actors are refused", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-101"))
		require.NoError(t, err)

		_, err = svc.Review(ctx, creator, cert.ID, models.QAReview{Decision: "approved"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("admin may review", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-102"))
		require.NoError(t, err)

		admin := newActor(models.RoleAdmin, id.DepartmentID(uuid.New()))
		reviewed, err := svc.Review(ctx, admin, cert.ID, models.QAReview{Decision: "rejected"})
		require.NoError(t, err)
		assert.Equal(t, models.CertificateStatusRejected, reviewed.Status)
	})

	t.Run("rejected certificate cannot be re-reviewed", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-103"))
		require.NoError(t, err)
		_, err = svc.Review(ctx, qa, cert.ID, models.QAReview{Decision: "rejected"})
		require.NoError(t, err)

		_, err = svc.Review(ctx, qa, cert.ID, models.QAReview{Decision: "approved"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("unknown certificate is not found", func(t *testing.T) {
		svc, _ := newCertificateService()
		_, err := svc.Review(ctx, qa, id.CertificateID(uuid.New()), models.QAReview{Decision: "approved"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestCertificateCreateNewVersion(t *testing.T) {
	ctx := context.Background()
	creator := newActor(models.RoleTechnician, id.DepartmentID(uuid.New()))
	admin := newActor(models.RoleAdmin, id.DepartmentID(uuid.New()))
	qa := newActor(models.RoleQA, id.DepartmentID(uuid.New()))

	t.Run("supersedes the source and opens a new draft", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-200"))
		require.NoError(t, err)
		_, err = svc.Review(ctx, qa, cert.ID, models.QAReview{Decision: "approved"})
		require.NoError(t, err)

		next, err := svc.CreateNewVersion(ctx, admin, cert.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, next.Version)
		assert.Equal(t, models.CertificateStatusDraft, next.Status)

		source, err := svc.Get(ctx, cert.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CertificateStatusSuperseded, source.Status)

		versions, err := svc.Versions(ctx, "CERT-200")
		require.NoError(t, err)
		assert.Len(t, versions, 2)
	})

	t.Run("only administrators may create versions", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-201"))
		require.NoError(t, err)

		_, err = svc.CreateNewVersion(ctx, creator, cert.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("superseded certificate cannot spawn another version", func(t *testing.T) {
		svc, _ := newCertificateService()
		cert, err := svc.Create(ctx, creator, createCertificateRequest("CERT-202"))
		require.NoError(t, err)
		_, err = svc.CreateNewVersion(ctx, admin, cert.ID)
		require.NoError(t, err)

		_, err = svc.CreateNewVersion(ctx, admin, cert.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestCertificateEvaluateAcceptance(t *testing.T) {
	ctx := context.Background()
	actor := newActor(models.RoleTechnician, id.DepartmentID(uuid.New()))
	svc, _ := newCertificateService()

	cert, err := svc.Create(ctx, actor, createCertificateRequest("CERT-300"))
	require.NoError(t, err)

	tolerance := 0.5
	valid, msg, err := svc.EvaluateAcceptance(ctx, cert.ID, models.AcceptanceCriteria{
		"temperature": {Tolerance: &tolerance},
	})
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, "All acceptance criteria met", msg)

	tight := 0.01
	valid, msg, err = svc.EvaluateAcceptance(ctx, cert.ID, models.AcceptanceCriteria{
		"temperature": {Tolerance: &tight},
	})
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Equal(t, "Measurement exceeds tolerance for parameter 'temperature'", msg)
}
