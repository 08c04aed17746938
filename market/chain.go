package market

import (
	"fmt"
	"math"
	"time"
)

// ChainEntry is one strike row of an option chain: the call and put
// quotes at a strike/expiry.
type ChainEntry struct {
	Strike float64 `json:"strike"`
	Call   Quote   `json:"call"`
	Put    Quote   `json:"put"`
}

// Chain is a full chain for one underlying and expiry.
type Chain struct {
	Underlying string       `json:"underlying"`
	Spot       float64      `json:"spot"`
	Expiry     time.Time    `json:"expiry"`
	Entries    []ChainEntry `json:"entries"`
}

const chainStrikesEachSide = 5

// Chains builds chains for the next n standard monthly expiries,
// strikes laddered around the current spot on the configured step.
func (s *Service) Chains(underlying string, n int) ([]Chain, error) {
	u, ok := s.cfg.Underlyings[underlying]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, underlying)
	}
	if n <= 0 {
		n = 1
	}

	spot, err := s.Spot(underlying)
	if err != nil {
		return nil, err
	}
	now := s.clock()

	atm := math.Round(spot/u.StrikeStep) * u.StrikeStep

	// Months walk on a first-of-month cursor. Adding months to now
	// directly overflows short months (Aug 31 + 1mo lands in October)
	// and skips an expiry.
	cursor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if !thirdFriday(cursor).After(now) {
		cursor = cursor.AddDate(0, 1, 0)
	}

	out := make([]Chain, 0, n)
	for i := 0; i < n; i++ {
		expiry := thirdFriday(cursor)
		cursor = cursor.AddDate(0, 1, 0)

		ch := Chain{Underlying: underlying, Spot: spot, Expiry: expiry}
		for k := -chainStrikesEachSide; k <= chainStrikesEachSide; k++ {
			strike := atm + float64(k)*u.StrikeStep
			if strike <= 0 {
				continue
			}
			call, _ := s.markAt(Contract{Underlying: underlying, Expiry: expiry, Right: Call, Strike: strike}, spot, now)
			put, _ := s.markAt(Contract{Underlying: underlying, Expiry: expiry, Right: Put, Strike: strike}, spot, now)
			ch.Entries = append(ch.Entries, ChainEntry{Strike: strike, Call: call, Put: put})
		}
		out = append(out, ch)
	}
	return out, nil
}

// thirdFriday returns the standard monthly expiry for t's month.
func thirdFriday(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+14)
}
