package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hkanyike/tradingbuddy/auth"
	"github.com/hkanyike/tradingbuddy/store"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, users)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleAdminSetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	if !req.Active && userID == currentUser(r).UserID {
		writeError(w, http.StatusUnprocessableEntity, "cannot deactivate yourself")
		return
	}

	if err := s.store.SetUserActive(r.Context(), userID, req.Active); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"user_id": userID, "active": req.Active})
}

func (s *Server) handleAdminPromote(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.store.SetUserRole(r.Context(), userID, store.RoleAdmin); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"user_id": userID, "role": store.RoleAdmin})
}

func (s *Server) handleAdminListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.store.ListInvites(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, invites)
}

type createInviteRequest struct {
	Uses    int    `json:"uses"`
	TTLDays int    `json:"ttl_days"`
	Code    string `json:"code,omitempty"` // optional vanity code
}

func (s *Server) handleAdminCreateInvite(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if req.Uses <= 0 {
		writeError(w, http.StatusBadRequest, "uses must be positive")
		return
	}
	if req.TTLDays <= 0 {
		writeError(w, http.StatusBadRequest, "ttl_days must be positive")
		return
	}

	code := req.Code
	if code == "" {
		code = auth.NewInviteCode()
	}

	now := time.Now().UTC()
	inv := store.InviteCode{
		Code:          code,
		UsesRemaining: req.Uses,
		ExpiresAt:     now.AddDate(0, 0, req.TTLDays),
		CreatedBy:     currentUser(r).UserID,
		CreatedAt:     now,
	}
	if err := s.store.CreateInvite(r.Context(), inv); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, inv)
}

func (s *Server) handleAdminRevokeInvite(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.store.RevokeInvite(r.Context(), code); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetPlatformStats(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
