package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

var ErrEmptyBody = errors.New("empty request body")

type ErrorBody struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, ErrorBody{
		Error:     message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// Invalid reports per-field validation failures with 400.
func Invalid(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	JSON(w, r, http.StatusBadRequest, ErrorBody{
		Error:     "validation failed",
		Fields:    fields,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// Decode reads a single JSON document from the request body into v.
func Decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
