package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cexcore/matchcore/biz/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func limitOrder(id int64, side model.OrderSide, price, qty string) *model.Order {
	p := dec(price)
	return &model.Order{
		ID:          id,
		UserID:      id, // one user per order id, distinct enough for these tests
		Kind:        model.KindLimit,
		Side:        side,
		Base:        model.BTC,
		Quote:       model.USDT,
		LimitPrice:  &p,
		OriginalQty: dec(qty),
		FilledQty:   decimal.Zero,
		Status:      model.StatusOpen,
	}
}

func marketOrder(id int64, side model.OrderSide, qty string) *model.Order {
	return &model.Order{
		ID:          id,
		UserID:      id,
		Kind:        model.KindMarket,
		Side:        side,
		Base:        model.BTC,
		Quote:       model.USDT,
		OriginalQty: dec(qty),
		FilledQty:   decimal.Zero,
		Status:      model.StatusOpen,
	}
}

func TestMatch_NoCross_RestsOnBook(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	buy := limitOrder(1, model.SideBuy, "100", "1")
	fills := book.Match(buy)
	assert.Empty(t, fills)

	bids, asks := book.Snapshot()
	assert.Len(t, bids, 1)
	assert.Empty(t, asks)
	assert.True(t, bids[0].Price.Equal(dec("100")))
}

// Single crossing match: a resting sell at 100 is fully taken by an
// incoming buy at 100.
func TestMatch_SingleCrossingMatch(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	sell := limitOrder(1, model.SideSell, "100", "1")
	assert.Empty(t, book.Match(sell))

	buy := limitOrder(2, model.SideBuy, "100", "1")
	fills := book.Match(buy)
	if assert.Len(t, fills, 1) {
		assert.True(t, fills[0].Price.Equal(dec("100")))
		assert.True(t, fills[0].Qty.Equal(dec("1")))
		assert.Equal(t, int64(2), fills[0].BuyOrderID)
		assert.Equal(t, int64(1), fills[0].SellOrderID)
		assert.True(t, fills[0].MakerFullyFilled)
	}

	bids, asks := book.Snapshot()
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

// Price priority: two resting sells at different prices, the incoming buy
// crosses the cheaper one first regardless of arrival order.
func TestMatch_PricePriority(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	expensive := limitOrder(1, model.SideSell, "105", "1")
	cheap := limitOrder(2, model.SideSell, "100", "1")
	book.Match(expensive)
	book.Match(cheap)

	buy := limitOrder(3, model.SideBuy, "110", "1")
	fills := book.Match(buy)
	if assert.Len(t, fills, 1) {
		assert.True(t, fills[0].Price.Equal(dec("100")))
		assert.Equal(t, int64(2), fills[0].SellOrderID)
	}

	// the expensive maker still rests
	_, asks := book.Snapshot()
	if assert.Len(t, asks, 1) {
		assert.True(t, asks[0].Price.Equal(dec("105")))
	}
}

// Time priority: two resting sells at the same price, FIFO by arrival.
func TestMatch_TimePriority(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	first := limitOrder(1, model.SideSell, "100", "1")
	second := limitOrder(2, model.SideSell, "100", "1")
	book.Match(first)
	book.Match(second)

	buy := limitOrder(3, model.SideBuy, "100", "1")
	fills := book.Match(buy)
	if assert.Len(t, fills, 1) {
		assert.Equal(t, int64(1), fills[0].SellOrderID, "earlier resting order fills first")
	}
}

// Partial fill of the incoming order: the resting maker is smaller than
// the taker's quantity, so the taker rests with the remainder.
func TestMatch_PartialFillOfIncoming(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	sell := limitOrder(1, model.SideSell, "100", "1")
	book.Match(sell)

	buy := limitOrder(2, model.SideBuy, "100", "3")
	fills := book.Match(buy)
	if assert.Len(t, fills, 1) {
		assert.True(t, fills[0].Qty.Equal(dec("1")))
	}

	bids, asks := book.Snapshot()
	assert.Empty(t, asks)
	if assert.Len(t, bids, 1) {
		assert.True(t, bids[0].Qty.Equal(dec("2")), "unfilled remainder rests")
	}
}

// Partial fill of the resting maker: the incoming taker is smaller, the
// maker survives with reduced quantity at the same price level.
func TestMatch_PartialFillOfResting(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	sell := limitOrder(1, model.SideSell, "100", "5")
	book.Match(sell)

	buy := limitOrder(2, model.SideBuy, "100", "2")
	fills := book.Match(buy)
	if assert.Len(t, fills, 1) {
		assert.False(t, fills[0].MakerFullyFilled)
	}

	_, asks := book.Snapshot()
	if assert.Len(t, asks, 1) {
		assert.True(t, asks[0].Qty.Equal(dec("3")))
	}
}

// MARKET orders cross at the resting price and never rest, even when
// they can't be filled in full.
func TestMatch_MarketOrderNeverRests(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	sell := limitOrder(1, model.SideSell, "100", "1")
	book.Match(sell)

	buy := marketOrder(2, model.SideBuy, "5")
	fills := book.Match(buy)
	if assert.Len(t, fills, 1) {
		assert.True(t, fills[0].Price.Equal(dec("100")), "fills at maker's resting price")
	}

	bids, _ := book.Snapshot()
	assert.Empty(t, bids, "unfilled MARKET remainder never rests")
}

func TestMatch_LimitDoesNotCrossBeyondLimitPrice(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	sell := limitOrder(1, model.SideSell, "110", "1")
	book.Match(sell)

	buy := limitOrder(2, model.SideBuy, "100", "1")
	fills := book.Match(buy)
	assert.Empty(t, fills, "buy limit below best ask does not cross")

	bids, asks := book.Snapshot()
	assert.Len(t, bids, 1)
	assert.Len(t, asks, 1)
}

func TestOrderBook_RemoveRestingOrder(t *testing.T) {
	book := NewOrderBook(model.Symbol{Base: model.BTC, Quote: model.USDT})

	buy := limitOrder(1, model.SideBuy, "100", "1")
	book.Match(buy)

	ok := book.Remove(1, model.SideBuy, dec("100"))
	assert.True(t, ok)

	bids, _ := book.Snapshot()
	assert.Empty(t, bids)

	assert.False(t, book.Remove(1, model.SideBuy, dec("100")), "already removed")
}

func TestOrderBookManager_GetIsPerSymbolSingleton(t *testing.T) {
	mgr := NewOrderBookManager()
	symbol := model.Symbol{Base: model.BTC, Quote: model.USDT}

	a := mgr.Get(symbol)
	b := mgr.Get(symbol)
	assert.Same(t, a, b)

	other := mgr.Get(model.Symbol{Base: model.ETH, Quote: model.USDT})
	assert.NotSame(t, a, other)
}
