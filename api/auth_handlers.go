package api

import (
	"net/http"
	"time"

	"github.com/hkanyike/tradingbuddy/auth"
	"github.com/hkanyike/tradingbuddy/paper"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}

	if err := req.Validate(); err != nil {
		s.writeErr(w, &paper.ValidationError{Msg: err.Error()})
		return
	}

	u, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}

	u, sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		UserID:    u.UserID,
		Role:      u.Role,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, currentUser(r))
}
