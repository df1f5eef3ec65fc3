package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"salesservice/internal/domain"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusFor maps the domain error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsConflict(err):
		return http.StatusConflict
	case domain.IsInvalidArgument(err):
		return http.StatusBadRequest
	case domain.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSONError writes err as a JSON envelope. Internal errors are not
// echoed to the caller.
func WriteJSONError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := errorResponse{Error: http.StatusText(status)}
	if status != http.StatusInternalServerError {
		body.Details = err.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

var errEmptyBody = domain.NewInvalidArgumentError("body", "request body is empty")

// decodeJSON reads a single JSON object into dst. Malformed bodies become
// InvalidArgument errors so they map to 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var invalid *domain.InvalidArgumentError
		if errors.As(err, &invalid) {
			return err
		}
		return domain.NewInvalidArgumentError("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}
