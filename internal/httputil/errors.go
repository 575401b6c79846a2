package httputil

import (
	"errors"
	"net/http"
)

// ErrorMapping binds a sentinel error to the status and message a client sees.
// An empty Message means the error's own text is shown.
type ErrorMapping struct {
	Err     error
	Status  int
	Message string
}

// MatchError returns the first mapping whose Err is in err's chain.
func MatchError(err error, mappings []ErrorMapping) (ErrorMapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			if m.Message == "" {
				m.Message = m.Err.Error()
			}
			return m, true
		}
	}
	return ErrorMapping{}, false
}

// RequestErrors maps body-decoding failures.
var RequestErrors = []ErrorMapping{
	{Err: ErrInvalidJSON, Status: http.StatusBadRequest, Message: "Invalid JSON payload"},
	{Err: ErrBodyTooLarge, Status: http.StatusRequestEntityTooLarge, Message: "Request body too large"},
}

// NotFound answers unknown routes with the standard envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	RespondError(w, "Route not found", http.StatusNotFound)
}

// MethodNotAllowed answers known routes hit with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	RespondError(w, "Method not allowed", http.StatusMethodNotAllowed)
}
