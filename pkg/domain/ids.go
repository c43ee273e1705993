package domain

import (
	"github.com/google/uuid"

	dErrors "metrolab/pkg/domain-errors"
)

// Typed UUID wrappers keep entity references from being swapped for one
// another at compile time. Parse helpers enforce the invariant that IDs are
// valid, non-nil UUIDs at trust boundaries.

type (
	UserID              uuid.UUID
	DepartmentID        uuid.UUID
	SiteID              uuid.UUID
	LocationID          uuid.UUID
	InstrumentID        uuid.UUID
	CertificateID       uuid.UUID
	CalibrationRecordID uuid.UUID
	ReviewID            uuid.UUID
	MaintenanceRecordID uuid.UUID
)

func (id UserID) IsNil() bool              { return uuid.UUID(id) == uuid.Nil }
func (id DepartmentID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id SiteID) IsNil() bool              { return uuid.UUID(id) == uuid.Nil }
func (id LocationID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id InstrumentID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CalibrationRecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool            { return uuid.UUID(id) == uuid.Nil }
func (id MaintenanceRecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string              { return uuid.UUID(id).String() }
func (id DepartmentID) String() string        { return uuid.UUID(id).String() }
func (id SiteID) String() string              { return uuid.UUID(id).String() }
func (id LocationID) String() string          { return uuid.UUID(id).String() }
func (id InstrumentID) String() string        { return uuid.UUID(id).String() }
func (id CertificateID) String() string       { return uuid.UUID(id).String() }
func (id CalibrationRecordID) String() string { return uuid.UUID(id).String() }
func (id ReviewID) String() string            { return uuid.UUID(id).String() }
func (id MaintenanceRecordID) String() string { return uuid.UUID(id).String() }

// The text marshaling methods keep IDs on the wire as canonical UUID strings;
// without them a defined uuid.UUID type serializes as a raw byte array.

func (id UserID) MarshalText() ([]byte, error)              { return uuid.UUID(id).MarshalText() }
func (id DepartmentID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id SiteID) MarshalText() ([]byte, error)              { return uuid.UUID(id).MarshalText() }
func (id LocationID) MarshalText() ([]byte, error)          { return uuid.UUID(id).MarshalText() }
func (id InstrumentID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id CertificateID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id CalibrationRecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ReviewID) MarshalText() ([]byte, error)            { return uuid.UUID(id).MarshalText() }
func (id MaintenanceRecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DepartmentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SiteID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *LocationID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *InstrumentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CertificateID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
func (id *CalibrationRecordID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
func (id *ReviewID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MaintenanceRecordID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	id, err := parseUUID(raw)
	return UserID(id), err
}

func ParseDepartmentID(raw string) (DepartmentID, error) {
	id, err := parseUUID(raw)
	return DepartmentID(id), err
}

func ParseLocationID(raw string) (LocationID, error) {
	id, err := parseUUID(raw)
	return LocationID(id), err
}

func ParseInstrumentID(raw string) (InstrumentID, error) {
	id, err := parseUUID(raw)
	return InstrumentID(id), err
}

func ParseCertificateID(raw string) (CertificateID, error) {
	id, err := parseUUID(raw)
	return CertificateID(id), err
}

func ParseCalibrationRecordID(raw string) (CalibrationRecordID, error) {
	id, err := parseUUID(raw)
	return CalibrationRecordID(id), err
}

func ParseReviewID(raw string) (ReviewID, error) {
	id, err := parseUUID(raw)
	return ReviewID(id), err
}

func ParseMaintenanceRecordID(raw string) (MaintenanceRecordID, error) {
	id, err := parseUUID(raw)
	return MaintenanceRecordID(id), err
}
