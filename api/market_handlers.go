package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hkanyike/tradingbuddy/market"
)

func (s *Server) handleUnderlyings(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, s.market.Underlyings())
}

// handleQuote serves either an underlying quote or, when the symbol
// parses as an option contract, the option mark.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	if c, err := market.ParseContract(symbol); err == nil {
		q, err := s.market.OptionQuote(c)
		if err != nil {
			s.writeErr(w, err)
			return
		}
		writeData(w, http.StatusOK, q)
		return
	}

	q, err := s.market.UnderlyingQuote(symbol)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, q)
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	underlying := strings.ToUpper(chi.URLParam(r, "underlying"))

	months := 1
	if raw := r.URL.Query().Get("months"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 12 {
			writeError(w, http.StatusBadRequest, "months must be between 1 and 12")
			return
		}
		months = v
	}

	chains, err := s.market.Chains(underlying, months)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, chains)
}
