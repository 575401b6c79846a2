package httputil

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// Empty is rendered as {} in the data field.
type Empty struct{}

// NewResponse builds an envelope; success is derived from the status code.
func NewResponse(statusCode int, data any, message string) Response {
	if data == nil {
		data = Empty{}
	}
	return Response{
		Success:    statusCode >= 200 && statusCode < 300,
		StatusCode: statusCode,
		Message:    message,
		Data:       data,
	}
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// Respond writes the standard envelope.
func Respond(w http.ResponseWriter, statusCode int, data any, message string) {
	RespondJSON(w, NewResponse(statusCode, data, message), statusCode)
}

// RespondError writes an envelope with empty data for a failed request.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	Respond(w, statusCode, nil, message)
}

// DecodeJSON decodes a request body, capping its size at maxBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return ErrInvalidJSON
	}
	return nil
}

var (
	ErrInvalidJSON  = errors.New("invalid JSON payload")
	ErrBodyTooLarge = errors.New("request body too large")
)
