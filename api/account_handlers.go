package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hkanyike/tradingbuddy/paper"
	"github.com/hkanyike/tradingbuddy/pkg/id"
	"github.com/hkanyike/tradingbuddy/store"
)

// ownedAccount loads the account in the URL and checks it belongs to
// the caller. Someone else's account reads as 404, not 403, so account
// IDs are not probeable.
func (s *Server) ownedAccount(w http.ResponseWriter, r *http.Request) (store.Account, bool) {
	acct, err := s.store.GetAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		s.writeErr(w, err)
		return store.Account{}, false
	}
	if acct.UserID != currentUser(r).UserID {
		writeError(w, http.StatusNotFound, "not found")
		return store.Account{}, false
	}
	return acct, true
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context(), currentUser(r).UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, accounts)
}

type createAccountRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	u := currentUser(r)
	n, err := s.store.CountAccounts(r.Context(), u.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if max := s.engine.MaxAccountsPerUser(); max > 0 && n >= max {
		writeError(w, http.StatusUnprocessableEntity, "account limit reached")
		return
	}

	acct := store.Account{
		AccountID: id.New(),
		UserID:    u.UserID,
		Name:      req.Name,
		Cash:      s.engine.StartingCash(),
		Equity:    s.engine.StartingCash(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAccount(r.Context(), acct); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, acct)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}
	// Refresh marks so equity reflects current quotes.
	positions, acct, err := s.engine.MarkToMarket(r.Context(), acct)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"account":   acct,
		"positions": positions,
	})
}

func (s *Server) handleExecuteOrder(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}

	var req paper.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}

	ord, err := s.engine.Execute(r.Context(), acct, req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if ord.Status == store.StatusRejected {
		writeData(w, http.StatusUnprocessableEntity, ord)
		return
	}
	writeData(w, http.StatusCreated, ord)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	status := q.Get("status")
	if status != "" && status != store.StatusFilled && status != store.StatusRejected {
		writeError(w, http.StatusBadRequest, "status must be filled or rejected")
		return
	}
	limit := 100
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if v > 1000 {
			v = 1000
		}
		limit = v
	}

	orders, err := s.store.ListOrders(r.Context(), acct.AccountID, status, limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, orders)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}
	positions, _, err := s.engine.MarkToMarket(r.Context(), acct)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, positions)
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.ownedAccount(w, r)
	if !ok {
		return
	}
	ord, err := s.engine.ClosePosition(r.Context(), acct, chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if ord.Status == store.StatusRejected {
		writeData(w, http.StatusUnprocessableEntity, ord)
		return
	}
	writeData(w, http.StatusOK, ord)
}
