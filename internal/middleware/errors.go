package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON envelope every failed request returns.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
	// RequestID lets clients quote a failure back to support.
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes the error envelope with the given status.
func WriteError(w http.ResponseWriter, status int, detail ErrorDetail) {
	if detail.RequestID == "" {
		detail.RequestID = w.Header().Get(requestIDHeader)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: detail})
}
