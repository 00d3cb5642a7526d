// Package ports holds the boundary interfaces the Trading Coordinator and
// Risk Validator both depend on (§2's C1-C5 interfaces plus the optional
// read-side Cache), factored out of biz/service so biz/risk can depend on
// them without importing the coordinator that depends on biz/risk.
package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cexcore/matchcore/biz/engine"
	"github.com/cexcore/matchcore/biz/model"
)

// PriceFeed (C1) quotes a symbol's mid-price in quote currency. Absent is a
// legitimate answer; the caller decides whether that is fatal.
type PriceFeed interface {
	GetPrice(ctx context.Context, symbol model.Symbol) (decimal.Decimal, bool)
}

// EventSink (C2) durably publishes domain events, ordered per key,
// at-least-once. Publish never blocks the caller's transaction on failure:
// implementations log and swallow (§4.6, §7).
type EventSink interface {
	Publish(ctx context.Context, event *model.Event)
}

// BalanceStore (C3) is the persistent user->currency->balance ledger with
// optimistic versioning (§4.3).
type BalanceStore interface {
	Credit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, reason model.BalanceReason) (model.Balance, error)
	Debit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, reason model.BalanceReason) (model.Balance, error)
	Get(ctx context.Context, userID int64, currency model.Currency) (model.Balance, error)
	List(ctx context.Context, userID int64) ([]model.Balance, error)
}

// OrderStore (C4) is the persistent order record store, keyed by id and
// secondarily by idempotency key.
type OrderStore interface {
	Insert(ctx context.Context, order *model.Order) error
	Update(ctx context.Context, order *model.Order) error
	Get(ctx context.Context, id int64) (*model.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Order, error)
	NextID(ctx context.Context) (int64, error)
}

// TradeStore (C5) is the append-only execution log.
type TradeStore interface {
	Insert(ctx context.Context, trade *model.Trade) error
	ListBySymbol(ctx context.Context, symbol model.Symbol, limit int) ([]*model.Trade, error)
	NextID(ctx context.Context) (int64, error)
}

// Cache is an optional read-side accelerator (order-book snapshots, recent
// trades, idempotency fast-path). Not part of the spec's core component
// list; the Coordinator degrades to hitting the Stores directly when no
// Cache is configured.
type Cache interface {
	CacheOrderBook(ctx context.Context, symbol model.Symbol, bids, asks []engine.PriceLevel)
	CacheTrade(ctx context.Context, trade *model.Trade)
	MarkIdempotencyKey(ctx context.Context, key string) bool
}
