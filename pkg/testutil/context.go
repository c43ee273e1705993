package testutil

import (
	"net/http"

	"metrolab/internal/assets/models"
)

// WithActor stamps the identity headers the gateway would set for an
// authenticated request. Handlers rebuild the actor from these headers.
func WithActor(req *http.Request, actor models.Actor) *http.Request {
	req.Header.Set("X-User-ID", actor.ID.String())
	req.Header.Set("X-User-Role", string(actor.Role))
	if actor.Email != "" {
		req.Header.Set("X-User-Email", actor.Email)
	}
	if !actor.DepartmentID.IsNil() {
		req.Header.Set("X-Department-ID", actor.DepartmentID.String())
	}
	return req
}
