package instrument

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

type InstrumentStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InstrumentStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInstrumentStoreSuite(t *testing.T) {
	suite.Run(t, new(InstrumentStoreSuite))
}

func (s *InstrumentStoreSuite) newInstrument(serial string) *models.Instrument {
	now := time.Now()
	return &models.Instrument{
		ID:           id.InstrumentID(uuid.New()),
		Name:         "Pressure Gauge",
		SerialNumber: serial,
		Category:     models.CategoryMeasurement,
		DepartmentID: id.DepartmentID(uuid.New()),
		Status:       models.InstrumentStatusActive,
		ReviewStatus: models.InstrumentReviewNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *InstrumentStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds instrument by ID", func() {
		instrument := s.newInstrument("SN-1000")
		s.Require().NoError(s.store.Create(s.ctx, instrument))

		found, err := s.store.FindByID(s.ctx, instrument.ID)
		s.Require().NoError(err)
		s.Equal("SN-1000", found.SerialNumber)
	})

	s.Run("finds instrument by serial number case-insensitively", func() {
		instrument := s.newInstrument("SN-1001")
		s.Require().NoError(s.store.Create(s.ctx, instrument))

		found, err := s.store.FindBySerialNumber(s.ctx, "sn-1001")
		s.Require().NoError(err)
		s.Equal(instrument.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.InstrumentID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InstrumentStoreSuite) TestSerialUniqueness() {
	s.Run("rejects duplicate serial number", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newInstrument("SN-2000")))

		err := s.store.Create(s.ctx, s.newInstrument("SN-2000"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("uniqueness is case-insensitive", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newInstrument("SN-2001")))

		err := s.store.Create(s.ctx, s.newInstrument("sn-2001"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("update to a taken serial is rejected", func() {
		first := s.newInstrument("SN-2002")
		second := s.newInstrument("SN-2003")
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().NoError(s.store.Create(s.ctx, second))

		second.SerialNumber = "SN-2002"
		s.Require().ErrorIs(s.store.Update(s.ctx, second), sentinel.ErrConflict)
	})

	s.Run("update releases the old serial", func() {
		instrument := s.newInstrument("SN-2004")
		s.Require().NoError(s.store.Create(s.ctx, instrument))

		instrument.SerialNumber = "SN-2005"
		s.Require().NoError(s.store.Update(s.ctx, instrument))

		s.Require().NoError(s.store.Create(s.ctx, s.newInstrument("SN-2004")))
	})
}

func (s *InstrumentStoreSuite) TestUpdate() {
	s.Run("persists field changes", func() {
		instrument := s.newInstrument("SN-3000")
		s.Require().NoError(s.store.Create(s.ctx, instrument))

		instrument.ReviewStatus = models.InstrumentReviewPending
		s.Require().NoError(s.store.Update(s.ctx, instrument))

		found, err := s.store.FindByID(s.ctx, instrument.ID)
		s.Require().NoError(err)
		s.Equal(models.InstrumentReviewPending, found.ReviewStatus)
	})

	s.Run("unknown instrument returns ErrNotFound", func() {
		s.Require().ErrorIs(s.store.Update(s.ctx, s.newInstrument("SN-3001")), sentinel.ErrNotFound)
	})
}
