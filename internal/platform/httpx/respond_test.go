package httpx

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProblemMediaType(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, 403, "Forbidden", "insufficient permission")

	require.Equal(t, 403, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Forbidden", body.Title)
	require.Equal(t, 403, body.Status)
	require.Equal(t, "insufficient permission", body.Detail)
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", ErrNotFound, 404},
		{"conflict", ErrConflict, 409},
		{"validation", ErrValidation, 400},
		{"forbidden", ErrForbidden, 403},
		{"unauthorized", ErrUnauthorized, 401},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}
