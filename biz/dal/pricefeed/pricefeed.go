// Package pricefeed implements the Price Feed interface (C1) with fixed
// defaults, exactly as §4.7 permits ("Implementations may use fixed
// defaults... or an external source"). Grounded on the reference
// PriceFeed's simulated-price map.
package pricefeed

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cexcore/matchcore/biz/model"
)

// Static quotes a fixed mid-price per symbol, with a mutable override map
// so tests can simulate price movement without a real market-data source.
type Static struct {
	mu     sync.RWMutex
	prices map[model.Symbol]decimal.Decimal
}

// defaults mirrors the reference's simulated quotes (§4.7 example values).
func defaults() map[model.Symbol]decimal.Decimal {
	return map[model.Symbol]decimal.Decimal{
		{Base: model.BTC, Quote: model.USDT}: decimal.NewFromInt(50000),
		{Base: model.ETH, Quote: model.USDT}: decimal.NewFromInt(3000),
	}
}

func NewStatic() *Static {
	return &Static{prices: defaults()}
}

func (s *Static) GetPrice(ctx context.Context, symbol model.Symbol) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[symbol]
	return price, ok
}

// SetPrice overrides a symbol's quote, used by tests to exercise price-
// dependent risk paths (MARKET reservation sizing, exposure valuation).
func (s *Static) SetPrice(symbol model.Symbol, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}
