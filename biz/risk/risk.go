// Package risk implements pre-trade validation (C8): sufficient-balance and
// exposure-cap checks. Grounded on the reference RiskEngine, re-cast from
// thrown RiskException into the discriminated model.Error result (§9,
// "Exceptions for control flow").
package risk

import (
	"context"

	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/ports"
	"github.com/shopspring/decimal"
)

// defaultSlippageBuffer scales the reference price used to reserve funds for a
// MARKET BUY order (§4.4). Fixes the reference implementation's
// qty*1_000_000 placeholder per the documented open question (§9).
const defaultSlippageBuffer = 1.10

// Config holds the tunables from §6's configuration surface that the
// validator needs at call time.
type Config struct {
	Enabled        bool
	MaxExposure    decimal.Decimal
	SlippageBuffer decimal.Decimal
}

// Requirement is the outcome of the required-currency computation (§4.4.1):
// which wallet and how much of it an order needs reserved.
type Requirement struct {
	Currency model.Currency
	Amount   decimal.Decimal
}

// Validator performs read-only pre-trade checks. It never mutates balances.
type Validator struct {
	balances  ports.BalanceStore
	priceFeed ports.PriceFeed
	cfg       Config
}

func New(balances ports.BalanceStore, priceFeed ports.PriceFeed, cfg Config) *Validator {
	if cfg.SlippageBuffer.IsZero() {
		cfg.SlippageBuffer = decimal.NewFromFloat(defaultSlippageBuffer)
	}
	return &Validator{balances: balances, priceFeed: priceFeed, cfg: cfg}
}

// Requirement computes which currency and how much an order must reserve,
// per §4.4 step 1. Callers use this both for validation and for the actual
// reservation amount at submit time, so the two never drift.
func (v *Validator) Requirement(ctx context.Context, order *model.Order) (Requirement, *model.Error) {
	if order.Side == model.SideBuy {
		if order.Kind == model.KindMarket {
			price, ok := v.priceFeed.GetPrice(ctx, order.Symbol())
			if !ok {
				return Requirement{}, model.NewError(model.ErrPriceUnavailable,
					"no price available for %s", order.Symbol())
			}
			amount := order.OriginalQty.Mul(price).Mul(v.cfg.SlippageBuffer)
			return Requirement{Currency: order.Quote, Amount: amount}, nil
		}
		amount := order.OriginalQty.Mul(*order.LimitPrice)
		return Requirement{Currency: order.Quote, Amount: amount}, nil
	}
	// SELL, LIMIT or MARKET: base currency, full quantity.
	return Requirement{Currency: order.Base, Amount: order.OriginalQty}, nil
}

// Validate runs the full pre-trade check sequence (§4.4). A no-op when the
// validator is disabled (crypto.risk.enabled=false in the reference).
func (v *Validator) Validate(ctx context.Context, order *model.Order) *model.Error {
	if !v.cfg.Enabled {
		return nil
	}

	req, err := v.Requirement(ctx, order)
	if err != nil {
		return err
	}

	if err := v.validateBalance(ctx, order.UserID, req); err != nil {
		return err
	}

	if order.Kind == model.KindLimit {
		if err := v.validateExposure(ctx, order, req); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateBalance(ctx context.Context, userID int64, req Requirement) *model.Error {
	balance, err := v.balances.Get(ctx, userID, req.Currency)
	if err != nil {
		if e, ok := err.(*model.Error); ok {
			return e
		}
		return model.NewError(model.ErrInternal, "loading balance: %v", err)
	}
	if balance.Available.LessThan(req.Amount) {
		return model.NewError(model.ErrInsufficientBal,
			"insufficient %s balance", req.Currency).
			WithDetail("required", req.Amount.String()).
			WithDetail("available", balance.Available.String())
	}
	return nil
}

// validateExposure sums non-quote wallet balances valued in the quote unit
// of account, adds the order's own demand on a BUY, and rejects over the
// configured cap. Missing prices contribute zero (§4.4 step 3, documented
// limitation, matching the reference's .orElse(BigDecimal.ZERO)).
func (v *Validator) validateExposure(ctx context.Context, order *model.Order, req Requirement) *model.Error {
	wallets, err := v.balances.List(ctx, order.UserID)
	if err != nil {
		return model.NewError(model.ErrInternal, "loading wallets: %v", err)
	}

	exposure := decimal.Zero
	for _, w := range wallets {
		if w.Currency == model.QuoteUnitOfAccount {
			continue
		}
		if !w.Available.GreaterThan(decimal.Zero) {
			continue
		}
		valuationSymbol, symErr := model.NewSymbol(w.Currency, model.QuoteUnitOfAccount)
		if symErr != nil {
			continue
		}
		price, ok := v.priceFeed.GetPrice(ctx, valuationSymbol)
		if !ok {
			continue
		}
		exposure = exposure.Add(w.Available.Mul(price))
	}

	if order.Side == model.SideBuy {
		price, ok := v.priceFeed.GetPrice(ctx, order.Symbol())
		if ok {
			exposure = exposure.Add(order.OriginalQty.Mul(price))
		}
	}

	if exposure.GreaterThan(v.cfg.MaxExposure) {
		return model.NewError(model.ErrExposureExceeded, "exposure limit exceeded").
			WithDetail("current", exposure.String()).
			WithDetail("limit", v.cfg.MaxExposure.String())
	}
	return nil
}
