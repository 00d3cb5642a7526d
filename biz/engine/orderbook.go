// Package engine holds the in-memory order book and matching engine: the
// hot path of the exchange. Nothing here touches persistence or ledgers —
// that is the Trading Coordinator's job (biz/service).
package engine

import (
	"sync"

	"github.com/cexcore/matchcore/biz/model"
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// PriceLevel is a snapshot row: one price and the aggregated remaining
// quantity resting at it (§4.1 snapshot()).
type PriceLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// OrderBook is the per-symbol in-memory bid/ask ladder (C6). Bids are keyed
// descending (best = highest price first); asks ascending (best = lowest
// price first). Within a price level, entries queue FIFO by arrival.
//
// A single RWMutex gives the readers-writer discipline §5 asks for:
// concurrent snapshot/best-price reads, exclusive add/remove, and a whole
// matching run holds the writer region for its duration so bids/asks are
// never observed torn mid-match.
type OrderBook struct {
	symbol model.Symbol

	mu   sync.RWMutex
	bids *skiplist.SkipList // price desc -> []*model.OrderBookEntry (FIFO)
	asks *skiplist.SkipList // price asc  -> []*model.OrderBookEntry (FIFO)

	arrivalSeq int64
}

func NewOrderBook(symbol model.Symbol) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   skiplist.New(priceDescComparator{}),
		asks:   skiplist.New(priceAscComparator{}),
	}
}

func (ob *OrderBook) Symbol() model.Symbol { return ob.symbol }

// nextArrivalSeq must be called with ob.mu held for writing.
func (ob *OrderBook) nextArrivalSeq() int64 {
	ob.arrivalSeq++
	return ob.arrivalSeq
}

func (ob *OrderBook) sideFor(side model.OrderSide) *skiplist.SkipList {
	if side == model.SideBuy {
		return ob.bids
	}
	return ob.asks
}

// Add inserts a resting entry at the tail of its price level's FIFO queue.
// O(log P) for the level lookup/insert, P = distinct price levels.
func (ob *OrderBook) Add(entry *model.OrderBookEntry) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.addLocked(entry)
}

func (ob *OrderBook) addLocked(entry *model.OrderBookEntry) {
	entry.ArrivalSeq = ob.nextArrivalSeq()
	book := ob.sideFor(entry.Side)
	if elem := book.Get(entry.Price); elem != nil {
		queue := elem.Value.([]*model.OrderBookEntry)
		elem.Value = append(queue, entry)
		return
	}
	book.Set(entry.Price, []*model.OrderBookEntry{entry})
}

// Remove drops a resting order by id from the given side at the given
// price. O(Q) in level length. Empties the price-level entry if the queue
// becomes empty. Returns false if not found (already filled/cancelled).
func (ob *OrderBook) Remove(orderID int64, side model.OrderSide, price decimal.Decimal) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	book := ob.sideFor(side)
	elem := book.Get(price)
	if elem == nil {
		return false
	}
	queue := elem.Value.([]*model.OrderBookEntry)
	idx := -1
	for i, e := range queue {
		if e.OrderID == orderID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	queue = append(queue[:idx], queue[idx+1:]...)
	if len(queue) == 0 {
		book.Remove(elem.Key())
	} else {
		elem.Value = queue
	}
	return true
}

// BestBid peeks the highest resting bid price. O(1).
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if front := ob.bids.Front(); front != nil {
		return front.Key().(decimal.Decimal), true
	}
	return decimal.Zero, false
}

// BestAsk peeks the lowest resting ask price. O(1).
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if front := ob.asks.Front(); front != nil {
		return front.Key().(decimal.Decimal), true
	}
	return decimal.Zero, false
}

// Snapshot returns the full bid and ask ladders, aggregated per level, in
// priority order. Read-only.
func (ob *OrderBook) Snapshot() (bids, asks []PriceLevel) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return levelsOf(ob.bids), levelsOf(ob.asks)
}

func levelsOf(book *skiplist.SkipList) []PriceLevel {
	var out []PriceLevel
	for elem := book.Front(); elem != nil; elem = elem.Next() {
		price := elem.Key().(decimal.Decimal)
		qty := decimal.Zero
		for _, e := range elem.Value.([]*model.OrderBookEntry) {
			qty = qty.Add(e.RemainingQty)
		}
		out = append(out, PriceLevel{Price: price, Qty: qty})
	}
	return out
}

// PriceLevels reports the total number of distinct price levels across
// both sides, for operational visibility (grounded on the Java reference's
// OrderBook.getDepth — not part of the external ingress surface).
func (ob *OrderBook) PriceLevels() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bids.Len() + ob.asks.Len()
}

// priceDescComparator sorts bids highest-price-first.
type priceDescComparator struct{}

func (priceDescComparator) Compare(l, r interface{}) int {
	return r.(decimal.Decimal).Cmp(l.(decimal.Decimal))
}

func (priceDescComparator) CalcScore(key interface{}) float64 {
	f, _ := key.(decimal.Decimal).Float64()
	return -f
}

// priceAscComparator sorts asks lowest-price-first.
type priceAscComparator struct{}

func (priceAscComparator) Compare(l, r interface{}) int {
	return l.(decimal.Decimal).Cmp(r.(decimal.Decimal))
}

func (priceAscComparator) CalcScore(key interface{}) float64 {
	f, _ := key.(decimal.Decimal).Float64()
	return f
}
