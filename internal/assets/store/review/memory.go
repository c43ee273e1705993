package review

import (
	"context"
	"sort"
	"sync"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
)

// InMemory implements the review store with a mutex-guarded map.
type InMemory struct {
	mu      sync.RWMutex
	reviews map[id.ReviewID]*models.Review
}

func NewInMemory() *InMemory {
	return &InMemory{reviews: make(map[id.ReviewID]*models.Review)}
}

func (s *InMemory) Create(ctx context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reviews[review.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *review
	s.reviews[review.ID] = &clone
	return nil
}

func (s *InMemory) Update(ctx context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[review.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *review
	s.reviews[review.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, reviewID id.ReviewID) (*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	review, ok := s.reviews[reviewID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *review
	return &clone, nil
}

func (s *InMemory) ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Review
	for _, review := range s.reviews {
		if review.InstrumentID == instrumentID {
			clone := *review
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
