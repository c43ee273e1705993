package instrument

import (
	"context"
	"strings"
	"sync"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
)

// InMemory implements the instrument store with a mutex-guarded map. Serial
// number uniqueness is enforced case-insensitively, matching the postgres
// unique index.
type InMemory struct {
	mu          sync.RWMutex
	instruments map[id.InstrumentID]*models.Instrument
	bySerial    map[string]id.InstrumentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		instruments: make(map[id.InstrumentID]*models.Instrument),
		bySerial:    make(map[string]id.InstrumentID),
	}
}

func (s *InMemory) Create(ctx context.Context, instrument *models.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	serial := strings.ToLower(instrument.SerialNumber)
	if _, taken := s.bySerial[serial]; taken {
		return sentinel.ErrConflict
	}
	clone := *instrument
	s.instruments[instrument.ID] = &clone
	s.bySerial[serial] = instrument.ID
	return nil
}

func (s *InMemory) Update(ctx context.Context, instrument *models.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.instruments[instrument.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !strings.EqualFold(existing.SerialNumber, instrument.SerialNumber) {
		serial := strings.ToLower(instrument.SerialNumber)
		if _, taken := s.bySerial[serial]; taken {
			return sentinel.ErrConflict
		}
		delete(s.bySerial, strings.ToLower(existing.SerialNumber))
		s.bySerial[serial] = instrument.ID
	}
	clone := *instrument
	s.instruments[instrument.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instrument, ok := s.instruments[instrumentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *instrument
	return &clone, nil
}

func (s *InMemory) FindBySerialNumber(ctx context.Context, serial string) (*models.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instrumentID, ok := s.bySerial[strings.ToLower(serial)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.instruments[instrumentID]
	return &clone, nil
}
