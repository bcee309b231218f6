// internal/common/errors/http.go
package errors

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// WriteHTTP writes err as a JSON error envelope and returns the normalized error.
// INTERNAL responses never leak details to the client.
func WriteHTTP(w http.ResponseWriter, err error) *StandardError {
	stdErr := Normalize(err)
	body := errorBody{Code: stdErr.Code, Message: stdErr.Message, Details: stdErr.Details}
	if stdErr.Code == ErrCodeInternal {
		body.Details = ""
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(stdErr.Code))
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: body})
	return stdErr
}
