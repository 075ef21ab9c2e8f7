// ABOUTME: HTTP handlers for the access gate's owner set
// ABOUTME: Grant and revoke require the caller to be an owner; membership checks are public

package api

import (
	"net/http"

	"github.com/2389/adledger/internal/auth"
)

func (s *Server) handleListOwners(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Authorize(r.Context()); err != nil {
		s.sendError(w, r, err)
		return
	}

	owners := s.gate.Owners()
	names := make([]string, len(owners))
	for i, o := range owners {
		names[i] = string(o)
	}

	s.sendJSON(w, http.StatusOK, ListOwnersResponse{Owners: names})
}

func (s *Server) handleGrantOwner(w http.ResponseWriter, r *http.Request) {
	var req OwnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	if req.Caller == "" {
		s.sendError(w, r, badRequest("caller is required"))
		return
	}

	if err := s.gate.Grant(r.Context(), auth.Caller(req.Caller)); err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, OwnerResponse{Caller: req.Caller, Authorized: true})
}

func (s *Server) handleRevokeOwner(w http.ResponseWriter, r *http.Request) {
	caller := r.PathValue("caller")
	if err := s.gate.Revoke(r.Context(), auth.Caller(caller)); err != nil {
		s.sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIsOwner(w http.ResponseWriter, r *http.Request) {
	caller := r.PathValue("caller")
	s.sendJSON(w, http.StatusOK, OwnerResponse{
		Caller:     caller,
		Authorized: s.gate.IsAuthorized(auth.Caller(caller)),
	})
}
