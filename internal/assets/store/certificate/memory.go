package certificate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
	"metrolab/pkg/platform/sentinel"
)

// InMemory implements the certificate store with a mutex-guarded map. The
// (certificate_number, version) pair is unique, matching the composite index
// in postgres; concurrent inserts of the same version see ErrConflict.
type InMemory struct {
	mu        sync.RWMutex
	certs     map[id.CertificateID]*models.CalibrationCertificate
	byVersion map[string]id.CertificateID
}

func NewInMemory() *InMemory {
	return &InMemory{
		certs:     make(map[id.CertificateID]*models.CalibrationCertificate),
		byVersion: make(map[string]id.CertificateID),
	}
}

func versionKey(number string, version int) string {
	return fmt.Sprintf("%s#%d", number, version)
}

func (s *InMemory) Create(ctx context.Context, cert *models.CalibrationCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(cert)
}

func (s *InMemory) createLocked(cert *models.CalibrationCertificate) error {
	key := versionKey(cert.CertificateNumber, cert.Version)
	if _, taken := s.byVersion[key]; taken {
		return sentinel.ErrConflict
	}
	clone := cloneCertificate(cert)
	s.certs[cert.ID] = clone
	s.byVersion[key] = cert.ID
	return nil
}

func (s *InMemory) Update(ctx context.Context, cert *models.CalibrationCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(cert)
}

func (s *InMemory) updateLocked(cert *models.CalibrationCertificate) error {
	if _, ok := s.certs[cert.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.certs[cert.ID] = cloneCertificate(cert)
	return nil
}

// CreateVersion inserts the new version and marks the source superseded as a
// single atomic step, mirroring the transactional postgres implementation.
func (s *InMemory) CreateVersion(ctx context.Context, next, source *models.CalibrationCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.createLocked(next); err != nil {
		return err
	}
	if err := s.updateLocked(source); err != nil {
		// roll the insert back so neither write applies
		delete(s.certs, next.ID)
		delete(s.byVersion, versionKey(next.CertificateNumber, next.Version))
		return err
	}
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, certID id.CertificateID) (*models.CalibrationCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certs[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCertificate(cert), nil
}

// ListByNumber returns all versions of a certificate ordered by version.
func (s *InMemory) ListByNumber(ctx context.Context, number string) ([]*models.CalibrationCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.CalibrationCertificate
	for _, cert := range s.certs {
		if cert.CertificateNumber == number {
			out = append(out, cloneCertificate(cert))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func cloneCertificate(cert *models.CalibrationCertificate) *models.CalibrationCertificate {
	clone := *cert
	clone.CalibrationData = cert.CalibrationData.Clone()
	clone.NonConformities = append([]string(nil), cert.NonConformities...)
	clone.CorrectiveActions = append([]string(nil), cert.CorrectiveActions...)
	if cert.ReviewDate != nil {
		reviewDate := *cert.ReviewDate
		clone.ReviewDate = &reviewDate
	}
	return &clone
}
