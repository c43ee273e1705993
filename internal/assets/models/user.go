package models

import (
	id "metrolab/pkg/domain"
)

// Role is the coarse capability class assigned to a user. Authentication and
// role assignment live outside this module; services receive an Actor from
// the access layer and enforce only data-level checks on it.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleAuditor    Role = "auditor"
	RoleResearcher Role = "researcher"
	RoleQA         Role = "qa"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleAuditor, RoleResearcher, RoleQA:
		return true
	}
	return false
}

// Actor identifies the user performing an operation, as supplied by the
// identity layer.
type Actor struct {
	ID           id.UserID       `json:"id"`
	Email        string          `json:"email"`
	Role         Role            `json:"role"`
	DepartmentID id.DepartmentID `json:"department_id"`
}

// IsQA reports whether the actor may apply certificate QA reviews. Admins
// carry every capability.
func (a Actor) IsQA() bool {
	return a.Role == RoleQA || a.Role == RoleAdmin
}
