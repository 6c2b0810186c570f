package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"reuses inbound id", map[string]string{"X-Request-ID": "abc-12345"}, "abc-12345"},
		{"accepts correlation id", map[string]string{"X-Correlation-ID": "corr.0001"}, "corr.0001"},
		{"request id wins", map[string]string{"X-Request-ID": "first-0001", "X-Correlation-ID": "second-01"}, "first-0001"},
		{"rejects malformed id", map[string]string{"X-Request-ID": "bad id\n"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tc.want == "" {
				_, err := uuid.Parse(seen)
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tc.want, seen)
			}
			assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestWriteErrorCarriesRequestID(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, ErrorDetail{Code: "not_found", Message: "missing"})
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-0042")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "trace-0042", body.Error.RequestID)
	assert.Equal(t, "not_found", body.Error.Code)
}
