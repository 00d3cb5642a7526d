package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cexcore/matchcore/biz/dal/memory"
	"github.com/cexcore/matchcore/biz/engine"
	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/risk"
)

// noopSink discards every event; the tests assert on Coordinator return
// values and store state, not on egress.
type noopSink struct{}

func (noopSink) Publish(context.Context, *model.Event) {}

// fixedPriceFeed serves one quote for every symbol, sufficient for the
// risk validator's slippage-buffer and exposure calculations in these
// tests.
type fixedPriceFeed struct{ price decimal.Decimal }

func (f fixedPriceFeed) GetPrice(context.Context, model.Symbol) (decimal.Decimal, bool) {
	return f.price, true
}

func mustD(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// newTestCoordinator wires an in-memory Coordinator with risk disabled by
// default, so tests focus on the submit/match/settle pipeline rather than
// pre-trade validation (covered separately in biz/risk).
func newTestCoordinator(t *testing.T) (*Coordinator, *memory.WalletStore) {
	t.Helper()
	books := engine.NewOrderBookManager()
	balances := memory.NewWalletStore()
	orders := memory.NewOrderStore()
	trades := memory.NewTradeStore()
	validator := risk.New(balances, fixedPriceFeed{price: mustD("100")}, risk.Config{Enabled: false})
	return NewCoordinator(books, validator, balances, orders, trades, noopSink{}), balances
}

func fund(t *testing.T, c *Coordinator, userID int64, currency model.Currency, amount string) {
	t.Helper()
	_, err := c.Deposit(context.Background(), userID, currency, mustD(amount), "")
	assert.Nil(t, err)
}

func TestSubmit_CrossingLimitOrders_ProducesTradeAndSettles(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	fund(t, c, 1, model.BTC, "10")  // seller
	fund(t, c, 2, model.USDT, "500") // buyer

	sell, err := c.Submit(ctx, SubmitRequest{
		UserID: 1, Kind: model.KindLimit, Side: model.SideSell,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
	})
	assert.Nil(t, err)
	assert.Equal(t, model.StatusOpen, sell.Status)

	buy, err := c.Submit(ctx, SubmitRequest{
		UserID: 2, Kind: model.KindLimit, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
	})
	assert.Nil(t, err)
	assert.Equal(t, model.StatusFilled, buy.Status)

	refreshedSell, err := c.GetOrder(ctx, 1, sell.ID)
	assert.Nil(t, err)
	assert.Equal(t, model.StatusFilled, refreshedSell.Status)

	buyerBTC, err := c.GetBalance(ctx, 2, model.BTC)
	assert.Nil(t, err)
	assert.True(t, buyerBTC.Available.Equal(mustD("1")))

	sellerUSDT, err := c.GetBalance(ctx, 1, model.USDT)
	assert.Nil(t, err)
	assert.True(t, sellerUSDT.Available.Equal(mustD("100")))

	trades, terr := c.ListTrades(ctx, model.Symbol{Base: model.BTC, Quote: model.USDT}, 10)
	assert.Nil(t, terr)
	if assert.Len(t, trades, 1) {
		assert.True(t, trades[0].Qty.Equal(mustD("1")))
		assert.True(t, trades[0].Price.Equal(mustD("100")))
	}
}

func TestSubmit_PartialFill_KeepsRemainderOpen(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	fund(t, c, 1, model.BTC, "10")
	fund(t, c, 2, model.USDT, "500")

	_, err := c.Submit(ctx, SubmitRequest{
		UserID: 1, Kind: model.KindLimit, Side: model.SideSell,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
	})
	assert.Nil(t, err)

	buy, err := c.Submit(ctx, SubmitRequest{
		UserID: 2, Kind: model.KindLimit, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("3"),
	})
	assert.Nil(t, err)
	assert.Equal(t, model.StatusPartial, buy.Status)
	assert.True(t, buy.RemainingQty().Equal(mustD("2")))
}

func TestSubmit_MarketOrder_CancelsUnfilledRemainder(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	fund(t, c, 1, model.BTC, "10")
	fund(t, c, 2, model.USDT, "5000")

	_, err := c.Submit(ctx, SubmitRequest{
		UserID: 1, Kind: model.KindLimit, Side: model.SideSell,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
	})
	assert.Nil(t, err)

	buy, err := c.Submit(ctx, SubmitRequest{
		UserID: 2, Kind: model.KindMarket, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, Qty: mustD("5"),
	})
	assert.Nil(t, err)
	assert.Equal(t, model.StatusCancelled, buy.Status, "unfilled MARKET remainder is cancelled outright")
	assert.True(t, buy.FilledQty.Equal(mustD("1")))
}

func TestSubmit_Idempotency_RejectsDuplicateKey(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	fund(t, c, 1, model.USDT, "500")

	req := SubmitRequest{
		UserID: 1, Kind: model.KindLimit, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
		IdempotencyKey: "key-1",
	}
	_, err := c.Submit(ctx, req)
	assert.Nil(t, err)

	_, err = c.Submit(ctx, req)
	if assert.NotNil(t, err) {
		assert.Equal(t, model.ErrDuplicate, err.Kind)
	}
}

func TestCancel_ReleasesReservedFunds(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	fund(t, c, 1, model.USDT, "500")

	order, err := c.Submit(ctx, SubmitRequest{
		UserID: 1, Kind: model.KindLimit, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
	})
	assert.Nil(t, err)

	balAfterSubmit, _ := c.GetBalance(ctx, 1, model.USDT)
	assert.True(t, balAfterSubmit.Available.Equal(mustD("400")))

	cancelled, err := c.Cancel(ctx, 1, order.ID)
	assert.Nil(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	balAfterCancel, _ := c.GetBalance(ctx, 1, model.USDT)
	assert.True(t, balAfterCancel.Available.Equal(mustD("500")), "full reservation released on cancel of an unfilled order")
}

func TestCancel_TerminalOrderRejected(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	fund(t, c, 1, model.BTC, "10")
	fund(t, c, 2, model.USDT, "500")

	sell, err := c.Submit(ctx, SubmitRequest{
		UserID: 1, Kind: model.KindLimit, Side: model.SideSell,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
	})
	assert.Nil(t, err)
	_, err = c.Submit(ctx, SubmitRequest{
		UserID: 2, Kind: model.KindLimit, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
	})
	assert.Nil(t, err)

	_, err = c.Cancel(ctx, 1, sell.ID)
	if assert.NotNil(t, err) {
		assert.Equal(t, model.ErrUncancellable, err.Kind)
	}
}

func TestSubmit_InsufficientBalance_RejectedBeforeReservation(t *testing.T) {
	c, balances := newTestCoordinator(t)
	ctx := context.Background()
	fund(t, c, 1, model.USDT, "10")

	_, err := c.Submit(ctx, SubmitRequest{
		UserID: 1, Kind: model.KindLimit, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, Price: ptr(mustD("100")), Qty: mustD("1"),
	})
	// risk is disabled in newTestCoordinator, so the debit itself must reject
	// the shortfall (§4.3's Debit invariant: never negative).
	if assert.NotNil(t, err) {
		assert.Equal(t, model.ErrInsufficientBal, err.Kind)
	}

	bal, gerr := balances.Get(ctx, 1, model.USDT)
	assert.Nil(t, gerr)
	assert.True(t, bal.Available.Equal(mustD("10")), "rejected reservation leaves balance untouched")
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
