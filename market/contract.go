package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Right is the option right, call or put.
type Right string

const (
	Call Right = "C"
	Put  Right = "P"
)

// Contract identifies a single listed option.
//
// The wire form is the OCC compact symbol, e.g. SPY240119C00470000:
// root, yymmdd expiry, right, strike * 1000 zero-padded to 8 digits.
type Contract struct {
	Underlying string
	Expiry     time.Time // exchange date, midnight UTC
	Right      Right
	Strike     float64
}

// ParseContract parses an OCC compact option symbol.
func ParseContract(sym string) (Contract, error) {
	s := strings.ToUpper(strings.TrimSpace(sym))
	// Root is 1-6 chars, then 6 digit date, 1 right char, 8 digit strike.
	if len(s) < 16 {
		return Contract{}, fmt.Errorf("contract symbol %q too short", sym)
	}

	strikePart := s[len(s)-8:]
	rightPart := s[len(s)-9 : len(s)-8]
	datePart := s[len(s)-15 : len(s)-9]
	root := s[:len(s)-15]

	if root == "" || len(root) > 6 {
		return Contract{}, fmt.Errorf("contract symbol %q has invalid root", sym)
	}
	for _, r := range root {
		if r < 'A' || r > 'Z' {
			return Contract{}, fmt.Errorf("contract symbol %q has invalid root", sym)
		}
	}

	var right Right
	switch rightPart {
	case "C":
		right = Call
	case "P":
		right = Put
	default:
		return Contract{}, fmt.Errorf("contract symbol %q has invalid right %q", sym, rightPart)
	}

	expiry, err := time.Parse("060102", datePart)
	if err != nil {
		return Contract{}, fmt.Errorf("contract symbol %q has invalid expiry: %w", sym, err)
	}

	milli, err := strconv.ParseInt(strikePart, 10, 64)
	if err != nil || milli <= 0 {
		return Contract{}, fmt.Errorf("contract symbol %q has invalid strike %q", sym, strikePart)
	}

	return Contract{
		Underlying: root,
		Expiry:     expiry.UTC(),
		Right:      right,
		Strike:     float64(milli) / 1000,
	}, nil
}

// Symbol renders the contract back to its OCC compact form.
func (c Contract) Symbol() string {
	return fmt.Sprintf("%s%s%s%08d",
		c.Underlying,
		c.Expiry.Format("060102"),
		c.Right,
		int64(c.Strike*1000+0.5),
	)
}

// YearsToExpiry returns the time to expiry in years, floored at zero.
func (c Contract) YearsToExpiry(now time.Time) float64 {
	dt := c.Expiry.Sub(now).Hours() / 24 / 365
	if dt < 0 {
		return 0
	}
	return dt
}

func (c Contract) String() string { return c.Symbol() }
