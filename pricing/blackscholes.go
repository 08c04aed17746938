// Package pricing computes Black-Scholes theoretical values and greeks.
// The dashboard stores greeks as plain numeric columns; these estimates
// fill them in when the client does not supply its own.
package pricing

import (
	"math"

	"github.com/chobie/go-gaussian"
)

// Inputs are the Black-Scholes parameters. Years is time to expiry in
// years; Vol and Rate are annualized.
type Inputs struct {
	Spot   float64
	Strike float64
	Years  float64
	Rate   float64
	Vol    float64
	IsCall bool
}

// Greeks are per-contract sensitivities.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// Result is the theoretical value plus greeks.
type Result struct {
	Theo float64
	Greeks
}

// BlackScholes prices a European option and its greeks.
//
// At or past expiry the option collapses to intrinsic value with
// terminal greeks (delta 0 or ±1, everything else 0).
func BlackScholes(in Inputs) Result {
	if in.Years <= 0 || in.Vol <= 0 {
		return expired(in)
	}

	norm := gaussian.NewGaussian(0, 1)
	sqrtT := math.Sqrt(in.Years)
	d1 := (math.Log(in.Spot/in.Strike) + (in.Rate+in.Vol*in.Vol/2)*in.Years) / (in.Vol * sqrtT)
	d2 := d1 - in.Vol*sqrtT
	disc := math.Exp(-in.Rate * in.Years)
	nPrime := norm.Pdf(d1)

	var res Result
	if in.IsCall {
		res.Theo = in.Spot*norm.Cdf(d1) - in.Strike*disc*norm.Cdf(d2)
		res.Delta = norm.Cdf(d1)
		res.Theta = -in.Spot*nPrime*in.Vol/(2*sqrtT) - in.Rate*in.Strike*disc*norm.Cdf(d2)
	} else {
		res.Theo = in.Strike*disc*norm.Cdf(-d2) - in.Spot*norm.Cdf(-d1)
		res.Delta = norm.Cdf(d1) - 1
		res.Theta = -in.Spot*nPrime*in.Vol/(2*sqrtT) + in.Rate*in.Strike*disc*norm.Cdf(-d2)
	}
	res.Gamma = nPrime / (in.Spot * in.Vol * sqrtT)
	res.Vega = in.Spot * nPrime * sqrtT / 100 // per 1 vol point
	res.Theta /= 365                          // per calendar day

	return res
}

// ImpliedVol recovers volatility from an observed price by
// Newton-Raphson on vega. Returns 0 when the price is outside the
// no-arbitrage band or the iteration fails to converge.
func ImpliedVol(in Inputs, price float64) float64 {
	if price <= 0 || in.Years <= 0 {
		return 0
	}

	norm := gaussian.NewGaussian(0, 1)
	v := math.Sqrt(2*math.Pi/in.Years) * price / in.Spot
	if v <= 0 {
		v = 0.2
	}

	for i := 0; i < 100; i++ {
		in.Vol = v
		got := BlackScholes(in)
		diff := got.Theo - price
		if math.Abs(diff) < 1e-10 {
			return v
		}
		sqrtT := math.Sqrt(in.Years)
		d1 := (math.Log(in.Spot/in.Strike) + (in.Rate+v*v/2)*in.Years) / (v * sqrtT)
		vega := in.Spot * norm.Pdf(d1) * sqrtT
		if vega < 1e-12 {
			return 0
		}
		v -= diff / vega
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}
	return v
}

func expired(in Inputs) Result {
	var res Result
	if in.IsCall {
		res.Theo = math.Max(0, in.Spot-in.Strike)
		if in.Spot > in.Strike {
			res.Delta = 1
		}
	} else {
		res.Theo = math.Max(0, in.Strike-in.Spot)
		if in.Spot < in.Strike {
			res.Delta = -1
		}
	}
	return res
}
