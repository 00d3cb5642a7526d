package engine

import (
	"sync"

	"github.com/cexcore/matchcore/biz/model"
)

// OrderBookManager is the composition root for the process-wide order-book
// map (§9, "Global state" — realized as an owned map injected into
// coordinator instances rather than a package-level singleton). Grounded
// on the teacher's biz/service/orderbook_manager.go double-checked-lock
// pattern.
type OrderBookManager struct {
	mu    sync.RWMutex
	books map[model.Symbol]*OrderBook
}

func NewOrderBookManager() *OrderBookManager {
	return &OrderBookManager{books: make(map[model.Symbol]*OrderBook)}
}

// Get returns the order book for symbol, creating it lazily on first use.
func (m *OrderBookManager) Get(symbol model.Symbol) *OrderBook {
	m.mu.RLock()
	ob, ok := m.books[symbol]
	m.mu.RUnlock()
	if ok {
		return ob
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ob, ok = m.books[symbol]; ok {
		return ob
	}
	ob = NewOrderBook(symbol)
	m.books[symbol] = ob
	return ob
}

func (m *OrderBookManager) Symbols() []model.Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Symbol, 0, len(m.books))
	for s := range m.books {
		out = append(out, s)
	}
	return out
}
