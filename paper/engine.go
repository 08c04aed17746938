// Package paper executes simulated option orders against paper
// accounts: synthetic fills with fixed slippage, position averaging and
// running account totals.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hkanyike/tradingbuddy/config"
	"github.com/hkanyike/tradingbuddy/market"
	"github.com/hkanyike/tradingbuddy/pkg/id"
	"github.com/hkanyike/tradingbuddy/pricing"
	"github.com/hkanyike/tradingbuddy/store"
)

// ValidationError marks request-shape failures. These never reach the
// database; only priced rejections are persisted as rejected orders.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Rejection reasons recorded on rejected order rows.
const (
	ReasonLimitNotMarketable = "limit not marketable"
	ReasonStopNotTriggered   = "stop not triggered"
	ReasonInsufficientCash   = "insufficient cash"
	ReasonInsufficientQty    = "insufficient position"
)

// OrderRequest is a validated-on-entry execution request.
type OrderRequest struct {
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Type       string          `json:"type"`
	Quantity   float64         `json:"quantity"`
	LimitPrice float64         `json:"limit_price,omitempty"`
	StopPrice  float64         `json:"stop_price,omitempty"`
	Greeks     *pricing.Greeks `json:"greeks,omitempty"` // client-supplied, wins over estimates
}

// Quoter supplies the current mark and greek estimates for a contract.
// *market.Service satisfies it; tests substitute fixed quotes.
type Quoter interface {
	Mark(c market.Contract) (market.Quote, pricing.Greeks, error)
}

// Engine executes orders. A single mutex serializes executions so two
// concurrent orders against one account cannot both pass the cash
// check; the row writes for one order go through one transaction.
type Engine struct {
	mu     sync.Mutex
	store  *store.Store
	market Quoter
	cfg    config.PaperConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(st *store.Store, mkt Quoter, cfg config.PaperConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: st, market: mkt, cfg: cfg, logger: logger, now: time.Now}
}

// SetClock overrides the wall clock, for tests.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// StartingCash is the configured opening balance for new accounts.
func (e *Engine) StartingCash() float64 { return e.cfg.StartingCash }

// MaxAccountsPerUser is the configured per-user account cap; 0 means no cap.
func (e *Engine) MaxAccountsPerUser() int { return e.cfg.MaxAccountsUser }

func (e *Engine) validate(req OrderRequest, now time.Time) (market.Contract, error) {
	c, err := market.ParseContract(req.Symbol)
	if err != nil {
		return market.Contract{}, &ValidationError{Msg: err.Error()}
	}
	if !c.Expiry.After(now) {
		return market.Contract{}, validationf("contract %s is expired", c.Symbol())
	}
	if req.Side != store.SideBuy && req.Side != store.SideSell {
		return market.Contract{}, validationf("side must be %q or %q", store.SideBuy, store.SideSell)
	}
	switch req.Type {
	case store.OrderMarket:
	case store.OrderLimit:
		if req.LimitPrice <= 0 {
			return market.Contract{}, validationf("limit orders require a positive limit_price")
		}
	case store.OrderStop:
		if req.StopPrice <= 0 {
			return market.Contract{}, validationf("stop orders require a positive stop_price")
		}
	default:
		return market.Contract{}, validationf("type must be market, limit or stop")
	}
	if req.Quantity <= 0 {
		return market.Contract{}, validationf("quantity must be positive")
	}
	if req.Quantity != float64(int64(req.Quantity)) {
		return market.Contract{}, validationf("quantity must be a whole number of contracts")
	}
	if req.Quantity > e.cfg.MaxOrderQty {
		return market.Contract{}, validationf("quantity exceeds the per-order maximum of %.0f", e.cfg.MaxOrderQty)
	}
	return c, nil
}

// Execute runs one order through validation, pricing and the row
// writes. A rejected order is returned with status "rejected" and a nil
// error; errors mean nothing was persisted.
func (e *Engine) Execute(ctx context.Context, acct store.Account, req OrderRequest) (store.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	contract, err := e.validate(req, now)
	if err != nil {
		return store.Order{}, err
	}

	// The caller's account value may be stale by the time the lock is
	// held; cash checks and totals always work from the current row.
	acct, err = e.store.GetAccount(ctx, acct.AccountID)
	if err != nil {
		return store.Order{}, err
	}

	quote, greeks, err := e.market.Mark(contract)
	if err != nil {
		if errors.Is(err, market.ErrUnknownSymbol) {
			return store.Order{}, &ValidationError{Msg: err.Error()}
		}
		return store.Order{}, err
	}
	if req.Greeks != nil {
		greeks = *req.Greeks
	}
	mark := quote.Mid

	ord := store.Order{
		OrderID:    id.New(),
		AccountID:  acct.AccountID,
		Symbol:     contract.Symbol(),
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		StopPrice:  req.StopPrice,
		PlacedAt:   now,
	}

	fillPrice, reason := e.price(req, mark)
	if reason != "" {
		return e.reject(ctx, ord, reason)
	}

	positions, err := e.store.ListPositions(ctx, acct.AccountID)
	if err != nil {
		return store.Order{}, err
	}

	// Cash / inventory checks against the computed fill.
	notional := fillPrice * req.Quantity * e.cfg.ContractSize
	held := findPosition(positions, ord.Symbol)
	if req.Side == store.SideBuy && notional > acct.Cash {
		return e.reject(ctx, ord, ReasonInsufficientCash)
	}
	if req.Side == store.SideSell && (held == nil || held.Quantity < req.Quantity) {
		return e.reject(ctx, ord, ReasonInsufficientQty)
	}

	ord.Status = store.StatusFilled
	ord.FillPrice = fillPrice
	ord.FilledAt = &now

	ex := e.applyFill(ord, acct, positions, held, mark, greeks, now)
	if err := e.store.ApplyExecution(ctx, ex); err != nil {
		return store.Order{}, err
	}

	e.logger.Info("order filled",
		zap.String("order_id", ord.OrderID),
		zap.String("account_id", acct.AccountID),
		zap.String("symbol", ord.Symbol),
		zap.String("side", ord.Side),
		zap.Float64("quantity", ord.Quantity),
		zap.Float64("fill_price", fillPrice),
	)
	return ord, nil
}

// price computes the synthetic fill. Market orders always fill at the
// mark shaded by the fixed slippage rate; limit and stop orders either
// fill or report a rejection reason.
func (e *Engine) price(req OrderRequest, mark float64) (fill float64, reason string) {
	slip := e.cfg.SlippageRate

	switch req.Type {
	case store.OrderMarket:
		if req.Side == store.SideBuy {
			return mark * (1 + slip), ""
		}
		return mark * (1 - slip), ""

	case store.OrderLimit:
		if req.Side == store.SideBuy {
			if mark <= req.LimitPrice {
				return req.LimitPrice, ""
			}
		} else if mark >= req.LimitPrice {
			return req.LimitPrice, ""
		}
		return 0, ReasonLimitNotMarketable

	case store.OrderStop:
		triggered := (req.Side == store.SideBuy && mark >= req.StopPrice) ||
			(req.Side == store.SideSell && mark <= req.StopPrice)
		if !triggered {
			return 0, ReasonStopNotTriggered
		}
		if req.Side == store.SideBuy {
			return mark * (1 + slip), ""
		}
		return mark * (1 - slip), ""
	}
	return 0, "unknown order type"
}

// applyFill computes the post-fill position set and account totals.
func (e *Engine) applyFill(
	ord store.Order,
	acct store.Account,
	positions []store.Position,
	held *store.Position,
	mark float64,
	greeks pricing.Greeks,
	now time.Time,
) store.Execution {
	size := e.cfg.ContractSize
	notional := ord.FillPrice * ord.Quantity * size

	ex := store.Execution{Order: ord}

	if ord.Side == store.SideBuy {
		acct.Cash -= notional
		if held == nil {
			positions = append(positions, store.Position{
				PositionID: id.New(),
				AccountID:  acct.AccountID,
				Symbol:     ord.Symbol,
				Quantity:   ord.Quantity,
				AvgPrice:   ord.FillPrice,
				OpenedAt:   now,
			})
		} else {
			total := held.Quantity + ord.Quantity
			held.AvgPrice = (held.AvgPrice*held.Quantity + ord.FillPrice*ord.Quantity) / total
			held.Quantity = total
		}
	} else {
		acct.Cash += notional
		realized := (ord.FillPrice - held.AvgPrice) * ord.Quantity * size
		acct.RealizedPL += realized
		held.Quantity -= ord.Quantity
		if held.Quantity == 0 {
			ex.ClosedPositions = append(ex.ClosedPositions, held.Symbol)
			positions = removePosition(positions, held.Symbol)
		}
	}

	// Refresh marks on everything the account holds and rebuild equity
	// as cash plus the summed market value of all positions.
	equity := acct.Cash
	for i := range positions {
		p := &positions[i]
		pm, pg := mark, greeks
		if p.Symbol != ord.Symbol {
			pm, pg = e.markFor(p.Symbol)
		}
		if pm > 0 {
			p.MarkPrice = pm
			p.Delta, p.Gamma, p.Theta, p.Vega = pg.Delta, pg.Gamma, pg.Theta, pg.Vega
		}
		p.UnrealizedPL = (p.MarkPrice - p.AvgPrice) * p.Quantity * size
		p.UpdatedAt = now
		equity += p.Quantity * p.MarkPrice * size
		ex.UpsertPositions = append(ex.UpsertPositions, *p)
	}
	acct.Equity = equity
	ex.Account = &acct

	return ex
}

// markFor re-marks a non-traded symbol; on a parse or quote failure the
// last stored mark wins (returned zero here means "leave as-is"), so a
// bad row cannot fail the whole execution.
func (e *Engine) markFor(symbol string) (float64, pricing.Greeks) {
	c, err := market.ParseContract(symbol)
	if err != nil {
		return 0, pricing.Greeks{}
	}
	q, g, err := e.market.Mark(c)
	if err != nil {
		return 0, pricing.Greeks{}
	}
	return q.Mid, g
}

func (e *Engine) reject(ctx context.Context, ord store.Order, reason string) (store.Order, error) {
	ord.Status = store.StatusRejected
	ord.Reason = reason
	if err := e.store.ApplyExecution(ctx, store.Execution{Order: ord}); err != nil {
		return store.Order{}, err
	}
	e.logger.Info("order rejected",
		zap.String("order_id", ord.OrderID),
		zap.String("account_id", ord.AccountID),
		zap.String("symbol", ord.Symbol),
		zap.String("reason", reason),
	)
	return ord, nil
}

// MarkToMarket refreshes every position's mark, unrealized P/L and
// greek estimates and recomputes account equity.
func (e *Engine) MarkToMarket(ctx context.Context, acct store.Account) ([]store.Position, store.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acct, err := e.store.GetAccount(ctx, acct.AccountID)
	if err != nil {
		return nil, store.Account{}, err
	}

	positions, err := e.store.ListPositions(ctx, acct.AccountID)
	if err != nil {
		return nil, store.Account{}, err
	}

	now := e.now().UTC()
	size := e.cfg.ContractSize
	equity := acct.Cash
	for i := range positions {
		p := &positions[i]
		mark, greeks := e.markFor(p.Symbol)
		if mark > 0 {
			p.MarkPrice = mark
			p.Delta, p.Gamma, p.Theta, p.Vega = greeks.Delta, greeks.Gamma, greeks.Theta, greeks.Vega
		}
		p.UnrealizedPL = (p.MarkPrice - p.AvgPrice) * p.Quantity * size
		p.UpdatedAt = now
		equity += p.Quantity * p.MarkPrice * size
	}
	acct.Equity = equity

	if err := e.store.ApplyMarks(ctx, positions, acct); err != nil {
		return nil, store.Account{}, err
	}
	return positions, acct, nil
}

// ClosePosition flattens one symbol with an opposing market order.
func (e *Engine) ClosePosition(ctx context.Context, acct store.Account, symbol string) (store.Order, error) {
	pos, err := e.store.GetPosition(ctx, acct.AccountID, symbol)
	if err != nil {
		return store.Order{}, err
	}
	return e.Execute(ctx, acct, OrderRequest{
		Symbol:   pos.Symbol,
		Side:     store.SideSell,
		Type:     store.OrderMarket,
		Quantity: pos.Quantity,
	})
}

func findPosition(positions []store.Position, symbol string) *store.Position {
	for i := range positions {
		if positions[i].Symbol == symbol {
			return &positions[i]
		}
	}
	return nil
}

func removePosition(positions []store.Position, symbol string) []store.Position {
	out := positions[:0]
	for _, p := range positions {
		if p.Symbol != symbol {
			out = append(out, p)
		}
	}
	return out
}
