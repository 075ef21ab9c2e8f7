// ABOUTME: HTTP handlers for user, ad space, offer and hit lifecycle operations
// ABOUTME: POST creates (201), PATCH partially updates (200), GET reads (200 or 404)

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/adledger/internal/store"
)

// createID returns the requested id for a create, or a fresh one if none
// was given.
func createID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func (s *Server) handleCreatePublisher(w http.ResponseWriter, r *http.Request) {
	s.createUser(w, r, store.RolePublisher)
}

func (s *Server) handleCreateAdvertiser(w http.ResponseWriter, r *http.Request) {
	s.createUser(w, r, store.RoleAdvertiser)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request, role store.Role) {
	var req UserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	create := s.exchange.CreatePublisher
	if role == store.RoleAdvertiser {
		create = s.exchange.CreateAdvertiser
	}
	u, err := create(r.Context(), createID(req.ID), req.fields())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, userResponse(u))
}

func (s *Server) handleUpdatePublisher(w http.ResponseWriter, r *http.Request) {
	s.updateUser(w, r, store.RolePublisher)
}

func (s *Server) handleUpdateAdvertiser(w http.ResponseWriter, r *http.Request) {
	s.updateUser(w, r, store.RoleAdvertiser)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, role store.Role) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	var req UserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	update := s.exchange.UpdatePublisher
	if role == store.RoleAdvertiser {
		update = s.exchange.UpdateAdvertiser
	}
	u, err := update(r.Context(), id, req.fields())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, userResponse(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	u, err := s.exchange.GetUser(r.Context(), id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, userResponse(u))
}

func (s *Server) handleCreateAdSpace(w http.ResponseWriter, r *http.Request) {
	var req AdSpaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	a, err := s.exchange.CreateAdSpace(r.Context(), createID(req.ID), req.fields())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, adSpaceResponse(a))
}

func (s *Server) handleUpdateAdSpace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	var req AdSpaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	a, err := s.exchange.UpdateAdSpace(r.Context(), id, req.fields())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, adSpaceResponse(a))
}

func (s *Server) handleGetAdSpace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	a, err := s.exchange.GetAdSpace(r.Context(), id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, adSpaceResponse(a))
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req OfferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	o, err := s.exchange.CreateOffer(r.Context(), createID(req.ID), req.fields())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, offerResponse(o))
}

func (s *Server) handleUpdateOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	var req OfferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	o, err := s.exchange.UpdateOffer(r.Context(), id, req.fields())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, offerResponse(o))
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	o, err := s.exchange.GetOffer(r.Context(), id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, offerResponse(o))
}

func (s *Server) handleCreateDisplayHit(w http.ResponseWriter, r *http.Request) {
	s.createHit(w, r, store.HitTypeDisplay)
}

func (s *Server) handleCreateActionHit(w http.ResponseWriter, r *http.Request) {
	s.createHit(w, r, store.HitTypeAction)
}

func (s *Server) createHit(w http.ResponseWriter, r *http.Request, t store.HitType) {
	var req HitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	create := s.exchange.CreateDisplayHit
	if t == store.HitTypeAction {
		create = s.exchange.CreateActionHit
	}
	h, err := create(r.Context(), createID(req.ID), req.fields())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, hitResponse(h))
}

func (s *Server) handleUpdateDisplayHit(w http.ResponseWriter, r *http.Request) {
	s.updateHit(w, r, store.HitTypeDisplay)
}

func (s *Server) handleUpdateActionHit(w http.ResponseWriter, r *http.Request) {
	s.updateHit(w, r, store.HitTypeAction)
}

func (s *Server) updateHit(w http.ResponseWriter, r *http.Request, t store.HitType) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	var req HitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	update := s.exchange.UpdateDisplayHit
	if t == store.HitTypeAction {
		update = s.exchange.UpdateActionHit
	}
	h, err := update(r.Context(), id, req.fields())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, hitResponse(h))
}

func (s *Server) handleGetHit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	h, err := s.exchange.GetHit(r.Context(), id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, hitResponse(h))
}

func (s *Server) handleTransactHit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	var req TransactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	h, err := s.exchange.TransactHit(r.Context(), id, req.Amount)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, hitResponse(h))
}

func (s *Server) handleSetCoefficients(w http.ResponseWriter, r *http.Request) {
	kind, ok := store.ParseKind(r.PathValue("kind"))
	if !ok {
		s.sendJSONError(w, http.StatusNotFound, "unknown entity kind")
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	var req CoefficientsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	if err := s.exchange.SetCoeffs(r.Context(), kind, id, req.Values); err != nil {
		s.sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCoefficient(w http.ResponseWriter, r *http.Request) {
	kind, ok := store.ParseKind(r.PathValue("kind"))
	if !ok {
		s.sendJSONError(w, http.StatusNotFound, "unknown entity kind")
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	index, err := pathIndex(r)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	v, err := s.exchange.Coeff(r.Context(), kind, id, index)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, CoefficientResponse{Kind: kind, ID: id, Index: index, Value: v})
}
