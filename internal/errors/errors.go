package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	ErrMalformedBody        = errors.New("malformed request body")
	ErrEngine               = errors.New("inference engine failed")
	ErrStreamingUnsupported = errors.New("response writer does not support streaming")
)

// OpenAI error "type" values.
const (
	TypeInvalidRequest = "invalid_request_error"
	TypeServer         = "server_error"
	TypeNotFound       = "not_found_error"
	TypeTimeout        = "timeout_error"
)

// Detail is the inner object of an OpenAI-style error body.
type Detail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Code    *string `json:"code"`
}

// Envelope is the top-level OpenAI-style error body. It is also sent as an
// SSE frame when a stream fails part way through.
type Envelope struct {
	Error Detail `json:"error"`
}

// NewEnvelope builds an error body of the given type.
func NewEnvelope(errType, message string) Envelope {
	return Envelope{Error: Detail{Message: message, Type: errType}}
}

// WriteJSONError writes an OpenAI-style error body with the given status.
// The error type is derived from the status code.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(NewEnvelope(typeForStatus(statusCode), message))
}

func typeForStatus(statusCode int) string {
	switch {
	case statusCode == http.StatusNotFound:
		return TypeNotFound
	case statusCode == http.StatusGatewayTimeout:
		return TypeTimeout
	case statusCode >= 400 && statusCode < 500:
		return TypeInvalidRequest
	default:
		return TypeServer
	}
}
