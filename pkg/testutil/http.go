// Package testutil provides helpers shared by handler and store tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewJSONRequest builds an HTTP request whose body is the JSON encoding of
// payload. A nil payload produces a bodyless request.
func NewJSONRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()

	if payload == nil {
		return httptest.NewRequest(method, path, nil)
	}

	buf := new(bytes.Buffer)
	require.NoError(t, json.NewEncoder(buf).Encode(payload), "encode request payload")

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest serves req through handler and returns the recorded response.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the recorded response body into T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()

	out := new(T)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(out), "decode response body")
	return out
}

// AssertStatus checks the recorded status code, printing the body on mismatch
// so failures show what the handler actually returned.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rr.Code, "status code (body: %s)", rr.Body.String())
}

// AssertErrorCode checks the machine-readable error code in an error response.
func AssertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp), "decode error response")
	assert.Equal(t, want, resp.Error)
}
