package calibration

import (
	"context"
	"sort"
	"sync"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
)

// InMemory implements the calibration record store. The completed-requires-
// certificate invariant is re-checked at write time: a record in completed
// status with no certificate never reaches storage regardless of what the
// caller validated.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.CalibrationRecordID]*models.CalibrationRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.CalibrationRecordID]*models.CalibrationRecord)}
}

func guardCompleted(record *models.CalibrationRecord) error {
	if record.Status == models.RecordStatusCompleted && (record.CertificateID == nil || record.CertificateID.IsNil()) {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *InMemory) Create(ctx context.Context, record *models.CalibrationRecord) error {
	if err := guardCompleted(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

func (s *InMemory) Update(ctx context.Context, record *models.CalibrationRecord) error {
	if err := guardCompleted(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, recordID id.CalibrationRecordID) (*models.CalibrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (s *InMemory) ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.CalibrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.CalibrationRecord
	for _, record := range s.records {
		if record.InstrumentID == instrumentID {
			out = append(out, cloneRecord(record))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneRecord(record *models.CalibrationRecord) *models.CalibrationRecord {
	clone := *record
	if record.DatePerformed != nil {
		t := *record.DatePerformed
		clone.DatePerformed = &t
	}
	if record.NextCalibrationDate != nil {
		t := *record.NextCalibrationDate
		clone.NextCalibrationDate = &t
	}
	if record.CertificateID != nil {
		c := *record.CertificateID
		clone.CertificateID = &c
	}
	return &clone
}
