// Package memory provides in-process Balance/Order/Trade stores for tests
// and no-DSN local runs, grounded on the teacher's package-level
// orderStore/userOrderMap maps in match_engine.go — generalized here into
// mutex-guarded structs implementing the ports package's store
// interfaces instead of package globals.
package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cexcore/matchcore/biz/model"
)

// WalletStore is a mutex-guarded map keyed by (user, currency). A plain
// mutex serializes mutations directly rather than racing on a version CAS
// like pg.WalletStore, but Version is still bumped on every mutation so
// callers can't tell the difference (§4.3).

type WalletStore struct {
	mu      sync.Mutex
	wallets map[walletKey]*model.Wallet
}

type walletKey struct {
	userID   int64
	currency model.Currency
}

func NewWalletStore() *WalletStore {
	return &WalletStore{wallets: make(map[walletKey]*model.Wallet)}
}

func (s *WalletStore) Get(ctx context.Context, userID int64, currency model.Currency) (model.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.get(userID, currency)
	return toBalance(w), nil
}

func (s *WalletStore) List(ctx context.Context, userID int64) ([]model.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Balance
	for k, w := range s.wallets {
		if k.userID == userID {
			out = append(out, toBalance(w))
		}
	}
	return out, nil
}

func (s *WalletStore) Credit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, reason model.BalanceReason) (model.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.get(userID, currency)
	w.Available = w.Available.Add(amount)
	w.Version++
	return toBalance(w), nil
}

func (s *WalletStore) Debit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, reason model.BalanceReason) (model.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.get(userID, currency)
	if w.Available.LessThan(amount) {
		return model.Balance{}, model.NewError(model.ErrInsufficientBal, "insufficient %s balance", currency).
			WithDetail("required", amount.String()).
			WithDetail("available", w.Available.String())
	}
	w.Available = w.Available.Sub(amount)
	w.Version++
	return toBalance(w), nil
}

func (s *WalletStore) get(userID int64, currency model.Currency) *model.Wallet {
	key := walletKey{userID, currency}
	w, ok := s.wallets[key]
	if !ok {
		w = &model.Wallet{UserID: userID, Currency: currency, Available: decimal.Zero}
		s.wallets[key] = w
	}
	return w
}

func toBalance(w *model.Wallet) model.Balance {
	return model.Balance{UserID: w.UserID, Currency: w.Currency, Available: w.Available, Version: w.Version}
}

// OrderStore is a mutex-guarded map keyed by order id, with a secondary
// idempotency-key index (§3: "idempotency_key, if present, is unique
// across all orders").
type OrderStore struct {
	mu        sync.Mutex
	orders    map[int64]*model.Order
	byIdemKey map[string]int64
	byUser    map[int64][]int64
	nextID    int64
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:    make(map[int64]*model.Order),
		byIdemKey: make(map[string]int64),
		byUser:    make(map[int64][]int64),
	}
}

func (s *OrderStore) Insert(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	s.orders[order.ID] = &cp
	s.byUser[order.UserID] = append(s.byUser[order.UserID], order.ID)
	if order.IdempotencyKey != nil {
		s.byIdemKey[*order.IdempotencyKey] = order.ID
	}
	return nil
}

func (s *OrderStore) Update(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		return model.NewError(model.ErrNotFound, "order %d not found", order.ID)
	}
	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, model.NewError(model.ErrNotFound, "order %d not found", id)
	}
	cp := *order
	return &cp, nil
}

func (s *OrderStore) GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byIdemKey[key]
	if !ok {
		return nil, false, nil
	}
	cp := *s.orders[id]
	return &cp, true, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID int64) ([]*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byUser[userID]
	out := make([]*model.Order, 0, len(ids))
	for _, id := range ids {
		cp := *s.orders[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *OrderStore) NextID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID, nil
}

// TradeStore is an append-only slice guarded by a mutex.
type TradeStore struct {
	mu     sync.Mutex
	trades []*model.Trade
	nextID int64
}

func NewTradeStore() *TradeStore {
	return &TradeStore{}
}

func (s *TradeStore) Insert(ctx context.Context, trade *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *trade
	s.trades = append(s.trades, &cp)
	return nil
}

func (s *TradeStore) ListBySymbol(ctx context.Context, symbol model.Symbol, limit int) ([]*model.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Trade
	for i := len(s.trades) - 1; i >= 0 && len(out) < limit; i-- {
		t := s.trades[i]
		if t.Base == symbol.Base && t.Quote == symbol.Quote {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *TradeStore) NextID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID, nil
}
