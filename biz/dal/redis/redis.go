// Package redis provides read-side caching for order-book snapshots and
// recent trades, and an idempotency-key fast-path, grounded on the
// teacher's biz/dal/redis client plus the inline cacheOrderBookSnapshot /
// cacheTrade / cacheUserActiveOrder helpers in match_engine.go —
// generalized here into a struct rather than package-level functions
// against a global client.
package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cexcore/matchcore/biz/engine"
	"github.com/cexcore/matchcore/biz/model"
)

// snapshotTTL bounds how stale a cached book snapshot may be before a
// reader falls back to the live in-memory book.
const snapshotTTL = 2 * time.Second

const idempotencyTTL = 24 * time.Hour

type Cache struct {
	client *goredis.Client
}

func NewCache(addr, username, password string, db int) *Cache {
	return &Cache{client: goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type bookSnapshot struct {
	Bids []engine.PriceLevel `json:"bids"`
	Asks []engine.PriceLevel `json:"asks"`
}

// CacheOrderBook stores the latest snapshot for a symbol, called by the
// coordinator after a matching run that produced at least one fill.
func (c *Cache) CacheOrderBook(ctx context.Context, symbol model.Symbol, bids, asks []engine.PriceLevel) {
	payload, err := json.Marshal(bookSnapshot{Bids: bids, Asks: asks})
	if err != nil {
		return
	}
	c.client.Set(ctx, orderBookKey(symbol), payload, snapshotTTL)
}

// OrderBook returns a cached snapshot if present and unexpired.
func (c *Cache) OrderBook(ctx context.Context, symbol model.Symbol) (bids, asks []engine.PriceLevel, ok bool) {
	raw, err := c.client.Get(ctx, orderBookKey(symbol)).Bytes()
	if err != nil {
		return nil, nil, false
	}
	var snap bookSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, nil, false
	}
	return snap.Bids, snap.Asks, true
}

// CacheTrade pushes a trade onto the symbol's recent-trades list, trimmed
// to the newest 200 entries with a one-hour expiry. Nothing reads this list
// back: Coordinator.ListTrades always queries the TradeStore.
func (c *Cache) CacheTrade(ctx context.Context, trade *model.Trade) {
	payload, err := json.Marshal(trade)
	if err != nil {
		return
	}
	key := recentTradesKey(trade.Symbol())
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, 199)
	pipe.Expire(ctx, key, 1*time.Hour)
	_, _ = pipe.Exec(ctx)
}

// MarkIdempotencyKey records that a key has been consumed, giving the
// coordinator a fast pre-check before it hits the Order Store's unique
// index. Returns false if the key was already marked (a duplicate).
func (c *Cache) MarkIdempotencyKey(ctx context.Context, key string) bool {
	ok, err := c.client.SetNX(ctx, idempotencyKey(key), "1", idempotencyTTL).Result()
	if err != nil {
		// Cache unavailable: fall through and let the Order Store's unique
		// index be the source of truth.
		return true
	}
	return ok
}

func orderBookKey(symbol model.Symbol) string {
	return "orderbook:" + symbol.String()
}

func recentTradesKey(symbol model.Symbol) string {
	return "trades:" + symbol.String()
}

func idempotencyKey(key string) string {
	return "idemkey:" + key
}
