package maintenance

import (
	"context"
	"sort"
	"sync"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
)

// InMemory implements the maintenance record store with a mutex-guarded map.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.MaintenanceRecordID]*models.MaintenanceRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.MaintenanceRecordID]*models.MaintenanceRecord)}
}

func (s *InMemory) Create(ctx context.Context, record *models.MaintenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

func (s *InMemory) Update(ctx context.Context, record *models.MaintenanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, recordID id.MaintenanceRecordID) (*models.MaintenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (s *InMemory) ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.MaintenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.MaintenanceRecord
	for _, record := range s.records {
		if record.InstrumentID == instrumentID {
			out = append(out, cloneRecord(record))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneRecord(record *models.MaintenanceRecord) *models.MaintenanceRecord {
	clone := *record
	if record.EndDate != nil {
		t := *record.EndDate
		clone.EndDate = &t
	}
	return &clone
}
