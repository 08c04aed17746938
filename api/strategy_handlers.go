package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hkanyike/tradingbuddy/pkg/id"
	"github.com/hkanyike/tradingbuddy/store"
)

type strategyRequest struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	Legs  json.RawMessage `json:"legs"`
	Notes string          `json:"notes"`
}

func (req *strategyRequest) validate() (string, bool) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required", false
	}
	if len(req.Legs) == 0 {
		req.Legs = json.RawMessage("[]")
	}
	// Legs are opaque to the service but must at least be a JSON array.
	var probe []json.RawMessage
	if err := json.Unmarshal(req.Legs, &probe); err != nil {
		return "legs must be a JSON array", false
	}
	return "", true
}

// ownedStrategy loads the strategy in the URL and checks ownership.
func (s *Server) ownedStrategy(w http.ResponseWriter, r *http.Request) (store.Strategy, bool) {
	st, err := s.store.GetStrategy(r.Context(), chi.URLParam(r, "strategyID"))
	if err != nil {
		s.writeErr(w, err)
		return store.Strategy{}, false
	}
	if st.UserID != currentUser(r).UserID {
		writeError(w, http.StatusNotFound, "not found")
		return store.Strategy{}, false
	}
	return st, true
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := s.store.ListStrategies(r.Context(), currentUser(r).UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, strategies)
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now().UTC()
	st := store.Strategy{
		StrategyID: id.New(),
		UserID:     currentUser(r).UserID,
		Name:       req.Name,
		Kind:       req.Kind,
		Legs:       req.Legs,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateStrategy(r.Context(), st); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, st)
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	st, ok := s.ownedStrategy(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, st)
}

func (s *Server) handleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	st, ok := s.ownedStrategy(w, r)
	if !ok {
		return
	}

	var req strategyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	st.Name = req.Name
	st.Kind = req.Kind
	st.Legs = req.Legs
	st.Notes = req.Notes
	st.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateStrategy(r.Context(), st); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, st)
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	st, ok := s.ownedStrategy(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteStrategy(r.Context(), st.StrategyID); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
