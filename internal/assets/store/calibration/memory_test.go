package calibration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
)

type CalibrationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *CalibrationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestCalibrationStoreSuite(t *testing.T) {
	suite.Run(t, new(CalibrationStoreSuite))
}

func (s *CalibrationStoreSuite) newRecord(instrumentID id.InstrumentID, status models.RecordStatus) *models.CalibrationRecord {
	now := time.Now()
	return &models.CalibrationRecord{
		ID:              id.CalibrationRecordID(uuid.New()),
		InstrumentID:    instrumentID,
		PerformedBy:     id.UserID(uuid.New()),
		CalibrationType: models.CalibrationTypeRoutine,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *CalibrationStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds record by ID", func() {
		record := s.newRecord(id.InstrumentID(uuid.New()), models.RecordStatusScheduled)
		s.Require().NoError(s.store.Create(s.ctx, record))

		found, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		s.Equal(models.RecordStatusScheduled, found.Status)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.CalibrationRecordID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *CalibrationStoreSuite) TestCompletedGuard() {
	s.Run("refuses to store completed record without certificate", func() {
		record := s.newRecord(id.InstrumentID(uuid.New()), models.RecordStatusCompleted)
		s.Require().ErrorIs(s.store.Create(s.ctx, record), sentinel.ErrInvalidState)
	})

	s.Run("refuses completed update without certificate", func() {
		record := s.newRecord(id.InstrumentID(uuid.New()), models.RecordStatusInProgress)
		s.Require().NoError(s.store.Create(s.ctx, record))

		record.Status = models.RecordStatusCompleted
		s.Require().ErrorIs(s.store.Update(s.ctx, record), sentinel.ErrInvalidState)
	})

	s.Run("stores completed record with certificate", func() {
		record := s.newRecord(id.InstrumentID(uuid.New()), models.RecordStatusCompleted)
		certID := id.CertificateID(uuid.New())
		record.CertificateID = &certID
		s.Require().NoError(s.store.Create(s.ctx, record))
	})
}

func (s *CalibrationStoreSuite) TestListByInstrument() {
	s.Run("returns records for the instrument in creation order", func() {
		instrumentID := id.InstrumentID(uuid.New())
		first := s.newRecord(instrumentID, models.RecordStatusScheduled)
		second := s.newRecord(instrumentID, models.RecordStatusScheduled)
		second.CreatedAt = first.CreatedAt.Add(time.Minute)
		other := s.newRecord(id.InstrumentID(uuid.New()), models.RecordStatusScheduled)

		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.Create(s.ctx, second))
		s.Require().NoError(s.store.Create(s.ctx, other))

		records, err := s.store.ListByInstrument(s.ctx, instrumentID)
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		s.Equal(first.ID, records[0].ID)
		s.Equal(second.ID, records[1].ID)
	})
}
