// ABOUTME: JSON response helpers and mapping of domain errors to HTTP status codes
// ABOUTME: Every error body has the shape {"error": "..."}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/auth"
	"github.com/2389/adledger/internal/exchange"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks input validation failures raised by the handlers.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}

// sendError maps err onto a status code. Unexpected errors are logged and
// reported as a generic 500.
func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		if _, ok := auth.CallerFromContext(r.Context()); !ok {
			s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		s.sendJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, exchange.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, exchange.ErrDuplicateID),
		errors.Is(err, exchange.ErrInvalidState),
		errors.Is(err, exchange.ErrKindMismatch):
		s.sendJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, exchange.ErrCoefficientIndex),
		errors.Is(err, errBadRequest):
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// pathID parses the {id} path segment. The zero id is never a valid key.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid id %q", raw)
	}
	if id == uuid.Nil {
		return uuid.Nil, badRequest("id must not be the zero id")
	}
	return id, nil
}

func pathIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid index %q", raw)
	}
	return n, nil
}
