package engine

import (
	"github.com/cexcore/matchcore/biz/model"
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// Fill is one execution produced by a matching run: the incoming (taker)
// order crossed a resting (maker) entry at the maker's price.
type Fill struct {
	BuyOrderID       int64
	SellOrderID      int64
	Price            decimal.Decimal
	Qty              decimal.Decimal
	MakerOrderID     int64
	MakerUserID      int64
	MakerFullyFilled bool
}

// Match runs price-time-priority matching for a freshly persisted order
// (id assigned, status OPEN, filled_qty 0) against this symbol's book
// (§4.2). It only mutates the order book — ledger and order-record updates
// are the Trading Coordinator's responsibility, driven by the returned
// fills. The whole run executes under a single writer-lock acquisition so
// concurrent submits on this symbol serialize cleanly (§5).
//
// LIMIT orders that still have quantity left after crossing rest in the
// book. MARKET orders never rest (incoming.LimitPrice is ignored/nil and
// treated as an unbounded price for crossing purposes). Match does not
// modify incoming: the caller applies the returned fills (Order.Fill),
// after which RemainingQty reports any unfilled remainder.
func (ob *OrderBook) Match(incoming *model.Order) []Fill {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	var fills []Fill
	remaining := incoming.RemainingQty()
	isBuy := incoming.Side == model.SideBuy
	opposite := ob.asks
	if !isBuy {
		opposite = ob.bids
	}

	for remaining.GreaterThan(decimal.Zero) {
		front := opposite.Front()
		if front == nil {
			break
		}
		levelPrice := front.Key().(decimal.Decimal)
		if incoming.Kind == model.KindLimit {
			limit := *incoming.LimitPrice
			if isBuy && levelPrice.GreaterThan(limit) {
				break
			}
			if !isBuy && levelPrice.LessThan(limit) {
				break
			}
		}

		queue := front.Value.([]*model.OrderBookEntry)
		maker := queue[0]
		fillQty := decimal.Min(remaining, maker.RemainingQty)

		var buyID, sellID int64
		if isBuy {
			buyID, sellID = incoming.ID, maker.OrderID
		} else {
			buyID, sellID = maker.OrderID, incoming.ID
		}

		// Rebuild the head entry rather than mutating it in place.
		rebuilt := *maker
		rebuilt.RemainingQty = maker.RemainingQty.Sub(fillQty)
		queue[0] = &rebuilt
		maker = &rebuilt
		remaining = remaining.Sub(fillQty)
		makerDone := maker.RemainingQty.IsZero()

		fills = append(fills, Fill{
			BuyOrderID:       buyID,
			SellOrderID:      sellID,
			Price:            maker.Price, // resting order's price wins (§4.2c)
			Qty:              fillQty,
			MakerOrderID:     maker.OrderID,
			MakerUserID:      maker.UserID,
			MakerFullyFilled: makerDone,
		})

		if makerDone {
			popLevelHead(opposite, front, queue)
		}
	}

	if incoming.Kind == model.KindLimit && remaining.GreaterThan(decimal.Zero) {
		ob.addLocked(&model.OrderBookEntry{
			OrderID:      incoming.ID,
			UserID:       incoming.UserID,
			Side:         incoming.Side,
			Price:        *incoming.LimitPrice,
			RemainingQty: remaining,
		})
	}

	return fills
}

// popLevelHead removes the FIFO head of a price level's queue, dropping the
// whole price-level entry if that empties it.
func popLevelHead(book *skiplist.SkipList, elem *skiplist.Element, queue []*model.OrderBookEntry) {
	queue = queue[1:]
	if len(queue) == 0 {
		book.Remove(elem.Key())
	} else {
		elem.Value = queue
	}
}
