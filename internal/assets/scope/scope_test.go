package scope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"metrolab/internal/assets/models"
	id "metrolab/pkg/domain"
)

func TestAllows(t *testing.T) {
	deptA := id.DepartmentID(uuid.New())
	deptB := id.DepartmentID(uuid.New())

	target := &models.Instrument{DepartmentID: deptA}

	tests := []struct {
		name   string
		role   models.Role
		dept   id.DepartmentID
		action Action
		want   bool
	}{
		{"admin writes anywhere", models.RoleAdmin, deptB, ActionWrite, true},
		{"admin reads anywhere", models.RoleAdmin, deptB, ActionRead, true},

		{"manager writes own department", models.RoleManager, deptA, ActionWrite, true},
		{"manager cannot write other department", models.RoleManager, deptB, ActionWrite, false},
		{"manager reads other department", models.RoleManager, deptB, ActionRead, true},

		{"technician writes own department", models.RoleTechnician, deptA, ActionWrite, true},
		{"technician cannot write other department", models.RoleTechnician, deptB, ActionWrite, false},
		{"technician reads anywhere", models.RoleTechnician, deptB, ActionRead, true},

		{"auditor reads anywhere", models.RoleAuditor, deptB, ActionRead, true},
		{"auditor cannot write own department", models.RoleAuditor, deptA, ActionWrite, false},

		{"qa reads anywhere", models.RoleQA, deptB, ActionRead, true},
		{"qa cannot write", models.RoleQA, deptA, ActionWrite, false},

		{"researcher reads own department", models.RoleResearcher, deptA, ActionRead, true},
		{"researcher cannot read other department", models.RoleResearcher, deptB, ActionRead, false},
		{"researcher cannot write own department", models.RoleResearcher, deptA, ActionWrite, false},

		{"unknown role denied", models.Role("visitor"), deptA, ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := models.Actor{
				ID:           id.UserID(uuid.New()),
				Role:         tt.role,
				DepartmentID: tt.dept,
			}
			assert.Equal(t, tt.want, Allows(actor, target, tt.action))
		})
	}
}
