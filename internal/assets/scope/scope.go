// Package scope decides whether an actor may act on a department-scoped
// entity. Each entity type declares its scoping department through the
// Scoped interface instead of being probed for attributes at runtime; the
// access layer resolves dependent records (calibration, maintenance,
// reviews) to their instrument's department before asking.
package scope

import (
	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
)

// Scoped is implemented by any entity that is access-controlled by
// department membership.
type Scoped interface {
	Scoping() id.DepartmentID
}

// Action is the access class being requested.
type Action int

const (
	ActionRead Action = iota
	ActionWrite
)

// Allows applies the role rules:
//   - admins may do anything
//   - managers may write within their own department and read anywhere
//   - technicians may write records in their own department and read anywhere
//   - auditors and QA may read anything, write nothing here
//   - researchers may read within their own department only
func Allows(actor models.Actor, target Scoped, action Action) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		if action == ActionRead {
			return true
		}
		return target.Scoping() == actor.DepartmentID
	case models.RoleTechnician:
		if action == ActionRead {
			return true
		}
		return target.Scoping() == actor.DepartmentID
	case models.RoleAuditor, models.RoleQA:
		return action == ActionRead
	case models.RoleResearcher:
		return action == ActionRead && target.Scoping() == actor.DepartmentID
	default:
		return false
	}
}
