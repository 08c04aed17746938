// Package market synthesizes quotes for a small universe of underlyings
// and their listed options. There is no external feed; prices follow a
// seeded random walk so runs are reproducible.
package market

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/hkanyike/tradingbuddy/config"
	"github.com/hkanyike/tradingbuddy/pricing"
)

// ErrUnknownSymbol is returned for symbols outside the configured universe.
var ErrUnknownSymbol = fmt.Errorf("unknown symbol")

// Quote is a two-sided price at a point in time.
type Quote struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Mid    float64   `json:"mid"`
	Time   time.Time `json:"time"`
}

// Service owns the synthetic price state.
type Service struct {
	mu    sync.Mutex
	cfg   config.MarketConfig
	walks map[string]*walk
	now   func() time.Time
}

type walk struct {
	rng  *rand.Rand
	spot float64
}

// NewService seeds one random walk per configured underlying.
// Each symbol gets its own generator so quote values do not depend on
// the order symbols are asked for.
func NewService(cfg config.MarketConfig) *Service {
	s := &Service{
		cfg:   cfg,
		walks: make(map[string]*walk, len(cfg.Underlyings)),
		now:   time.Now,
	}
	for sym, u := range cfg.Underlyings {
		h := fnv.New64a()
		h.Write([]byte(sym))
		s.walks[sym] = &walk{
			rng:  rand.New(rand.NewSource(cfg.Seed ^ int64(h.Sum64()))),
			spot: u.BasePrice,
		}
	}
	return s
}

// SetClock overrides the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Underlyings returns the configured universe, sorted.
func (s *Service) Underlyings() []string {
	out := make([]string, 0, len(s.cfg.Underlyings))
	for sym := range s.cfg.Underlyings {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Spot advances the underlying's walk one step and returns the new spot.
func (s *Service) Spot(symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked(symbol)
}

func (s *Service) stepLocked(symbol string) (float64, error) {
	w, ok := s.walks[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	// One intraday step of a geometric walk; vol is annualized so the
	// per-step scale is vol / sqrt(trading minutes per year).
	step := s.cfg.Drift + s.cfg.Volatility/math.Sqrt(252*390)*w.rng.NormFloat64()
	w.spot *= math.Exp(step)
	return w.spot, nil
}

// UnderlyingQuote returns a two-sided quote for a root symbol.
func (s *Service) UnderlyingQuote(symbol string) (Quote, error) {
	spot, err := s.Spot(symbol)
	if err != nil {
		return Quote{}, err
	}
	half := spot * 0.0001
	return Quote{
		Symbol: symbol,
		Bid:    spot - half,
		Ask:    spot + half,
		Mid:    spot,
		Time:   s.clock(),
	}, nil
}

// OptionQuote marks a contract off the current underlying spot using
// the configured flat volatility surface.
func (s *Service) OptionQuote(c Contract) (Quote, error) {
	spot, err := s.Spot(c.Underlying)
	if err != nil {
		return Quote{}, err
	}
	q, _ := s.markAt(c, spot, s.clock())
	return q, nil
}

// Mark returns the mid mark plus the greek estimates for a contract.
func (s *Service) Mark(c Contract) (Quote, pricing.Greeks, error) {
	spot, err := s.Spot(c.Underlying)
	if err != nil {
		return Quote{}, pricing.Greeks{}, err
	}
	q, g := s.markAt(c, spot, s.clock())
	return q, g, nil
}

// markAt prices a contract off an already-sampled spot. Chain
// generation relies on this so every leg of one chain shares one
// underlying value.
func (s *Service) markAt(c Contract, spot float64, now time.Time) (Quote, pricing.Greeks) {
	theo := pricing.BlackScholes(pricing.Inputs{
		Spot:   spot,
		Strike: c.Strike,
		Years:  c.YearsToExpiry(now),
		Rate:   s.cfg.RiskFree,
		Vol:    s.cfg.Volatility,
		IsCall: c.Right == Call,
	})

	mid := theo.Theo
	if mid < 0.01 {
		mid = 0.01
	}
	half := math.Max(0.01, mid*0.01)
	bid := mid - half
	if bid < 0 {
		bid = 0
	}
	q := Quote{Symbol: c.Symbol(), Bid: bid, Ask: mid + half, Mid: mid, Time: now}
	return q, theo.Greeks
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
