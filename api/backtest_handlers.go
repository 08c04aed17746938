package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hkanyike/tradingbuddy/pkg/id"
	"github.com/hkanyike/tradingbuddy/store"
)

// backtestRequest carries results computed by an external runner; the
// service only validates ranges and persists them.
type backtestRequest struct {
	StrategyID     string          `json:"strategy_id,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	InitialBalance float64         `json:"initial_balance"`
	FinalBalance   float64         `json:"final_balance"`
	TotalTrades    int             `json:"total_trades"`
	WinRate        float64         `json:"win_rate"`
	MaxDrawdown    float64         `json:"max_drawdown"`
	Sharpe         float64         `json:"sharpe"`
	EquityCurve    json.RawMessage `json:"equity_curve,omitempty"`
}

func (req *backtestRequest) validate() (string, bool) {
	if req.StartedAt.IsZero() || req.FinishedAt.IsZero() {
		return "started_at and finished_at are required", false
	}
	if req.FinishedAt.Before(req.StartedAt) {
		return "finished_at must not precede started_at", false
	}
	if req.InitialBalance <= 0 || req.FinalBalance <= 0 {
		return "balances must be positive", false
	}
	if req.TotalTrades < 0 {
		return "total_trades must not be negative", false
	}
	if req.WinRate < 0 || req.WinRate > 1 {
		return "win_rate must be in [0, 1]", false
	}
	if req.MaxDrawdown < 0 || req.MaxDrawdown > 1 {
		return "max_drawdown must be in [0, 1]", false
	}
	if len(req.EquityCurve) == 0 {
		req.EquityCurve = json.RawMessage("[]")
	}
	var probe []json.RawMessage
	if err := json.Unmarshal(req.EquityCurve, &probe); err != nil {
		return "equity_curve must be a JSON array", false
	}
	return "", true
}

func (s *Server) ownedBacktest(w http.ResponseWriter, r *http.Request) (store.BacktestRun, bool) {
	bt, err := s.store.GetBacktest(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeErr(w, err)
		return store.BacktestRun{}, false
	}
	if bt.UserID != currentUser(r).UserID {
		writeError(w, http.StatusNotFound, "not found")
		return store.BacktestRun{}, false
	}
	return bt, true
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListBacktests(r.Context(), currentUser(r).UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, runs)
}

func (s *Server) handleCreateBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	if msg, ok := req.validate(); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	u := currentUser(r)
	if req.StrategyID != "" {
		st, err := s.store.GetStrategy(r.Context(), req.StrategyID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "strategy_id does not exist")
				return
			}
			s.writeErr(w, err)
			return
		}
		if st.UserID != u.UserID {
			writeError(w, http.StatusBadRequest, "strategy_id does not exist")
			return
		}
	}

	bt := store.BacktestRun{
		RunID:          id.New(),
		StrategyID:     req.StrategyID,
		UserID:         u.UserID,
		StartedAt:      req.StartedAt.UTC(),
		FinishedAt:     req.FinishedAt.UTC(),
		InitialBalance: req.InitialBalance,
		FinalBalance:   req.FinalBalance,
		TotalTrades:    req.TotalTrades,
		WinRate:        req.WinRate,
		MaxDrawdown:    req.MaxDrawdown,
		Sharpe:         req.Sharpe,
		EquityCurve:    req.EquityCurve,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateBacktest(r.Context(), bt); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, bt)
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	bt, ok := s.ownedBacktest(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, bt)
}

func (s *Server) handleDeleteBacktest(w http.ResponseWriter, r *http.Request) {
	bt, ok := s.ownedBacktest(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteBacktest(r.Context(), bt.RunID); err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
