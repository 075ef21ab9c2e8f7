// ABOUTME: Idempotency-Key handling for mutating HTTP requests
// ABOUTME: A key already claimed by the same caller is rejected with 409 until it expires

package api

import (
	"net/http"

	"github.com/2389/adledger/internal/auth"
)

// IdempotencyHeader names the request header carrying a client-chosen key.
const IdempotencyHeader = "Idempotency-Key"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// idempotencyMiddleware rejects a mutating request whose key was already
// used by the same caller. Failed requests release their key so the client
// can retry.
func (s *Server) idempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyHeader)
		if key == "" || !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		caller, _ := auth.CallerFromContext(r.Context())
		claim := string(caller) + "\x00" + key

		if !s.idempotency.Claim(claim) {
			s.logger.Debug("duplicate request rejected", "caller", caller, "key", key)
			s.sendJSONError(w, http.StatusConflict, "duplicate request")
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusBadRequest {
			s.idempotency.Release(claim)
		}
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
