package service

import (
	"context"
	"time"

	"metrolab/internal/assets/models"
	"metrolab/internal/tickets"
	id "metrolab/pkg/domain"
)

// Store interfaces are declared here, on the consumer side; implementations
// live under internal/assets/store.

type InstrumentStore interface {
	Create(ctx context.Context, instrument *models.Instrument) error
	Update(ctx context.Context, instrument *models.Instrument) error
	FindByID(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error)
	FindBySerialNumber(ctx context.Context, serial string) (*models.Instrument, error)
}

type CertificateStore interface {
	Create(ctx context.Context, cert *models.CalibrationCertificate) error
	Update(ctx context.Context, cert *models.CalibrationCertificate) error
	// CreateVersion must apply both writes atomically with respect to other
	// writers; the composite (certificate_number, version) uniqueness backs
	// the exactly-once guarantee for concurrent versioning.
	CreateVersion(ctx context.Context, next, source *models.CalibrationCertificate) error
	FindByID(ctx context.Context, certID id.CertificateID) (*models.CalibrationCertificate, error)
	ListByNumber(ctx context.Context, number string) ([]*models.CalibrationCertificate, error)
}

type CalibrationStore interface {
	Create(ctx context.Context, record *models.CalibrationRecord) error
	Update(ctx context.Context, record *models.CalibrationRecord) error
	FindByID(ctx context.Context, recordID id.CalibrationRecordID) (*models.CalibrationRecord, error)
	ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.CalibrationRecord, error)
}

type ReviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, reviewID id.ReviewID) (*models.Review, error)
	ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.Review, error)
}

type MaintenanceStore interface {
	Create(ctx context.Context, record *models.MaintenanceRecord) error
	Update(ctx context.Context, record *models.MaintenanceRecord) error
	FindByID(ctx context.Context, recordID id.MaintenanceRecordID) (*models.MaintenanceRecord, error)
	ListByInstrument(ctx context.Context, instrumentID id.InstrumentID) ([]*models.MaintenanceRecord, error)
}

// TxRunner scopes a read-validate-write sequence to a single transaction.
// The SQL implementation carries the transaction through the context
// (pkg/platform/tx); tx-aware stores pick it up automatically.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxRunner satisfies TxRunner for in-memory stores, whose individual
// operations are already atomic.
type NopTxRunner struct{}

func (NopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// TicketBridge is the external ticketing collaborator. Both calls return nil
// on "disabled" and on any failure; callers treat nil as "no ticket".
type TicketBridge interface {
	CreateTicket(ctx context.Context, review *models.Review, instrument *models.Instrument) *tickets.Ticket
	UpdateTicket(ctx context.Context, review *models.Review) *tickets.Ticket
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time
