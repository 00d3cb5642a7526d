package risk

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cexcore/matchcore/biz/model"
)

// fakeBalances is a minimal ports.BalanceStore for exercising the
// validator in isolation from any real store implementation.
type fakeBalances struct {
	byUser map[int64]map[model.Currency]decimal.Decimal
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{byUser: make(map[int64]map[model.Currency]decimal.Decimal)}
}

func (f *fakeBalances) set(userID int64, currency model.Currency, amount decimal.Decimal) {
	if f.byUser[userID] == nil {
		f.byUser[userID] = make(map[model.Currency]decimal.Decimal)
	}
	f.byUser[userID][currency] = amount
}

func (f *fakeBalances) Get(_ context.Context, userID int64, currency model.Currency) (model.Balance, error) {
	amount := f.byUser[userID][currency]
	return model.Balance{UserID: userID, Currency: currency, Available: amount}, nil
}

func (f *fakeBalances) List(_ context.Context, userID int64) ([]model.Balance, error) {
	var out []model.Balance
	for c, amount := range f.byUser[userID] {
		out = append(out, model.Balance{UserID: userID, Currency: c, Available: amount})
	}
	return out, nil
}

func (f *fakeBalances) Credit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, _ model.BalanceReason) (model.Balance, error) {
	current := f.byUser[userID][currency]
	f.set(userID, currency, current.Add(amount))
	return f.Get(ctx, userID, currency)
}

func (f *fakeBalances) Debit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, _ model.BalanceReason) (model.Balance, error) {
	current := f.byUser[userID][currency]
	f.set(userID, currency, current.Sub(amount))
	return f.Get(ctx, userID, currency)
}

// fakePriceFeed serves fixed quotes, mirroring dal/pricefeed.Static's shape
// without pulling in that package (keeps this test dependency-free of dal).
type fakePriceFeed map[model.Symbol]decimal.Decimal

func (f fakePriceFeed) GetPrice(_ context.Context, symbol model.Symbol) (decimal.Decimal, bool) {
	p, ok := f[symbol]
	return p, ok
}

func btcUsdt() model.Symbol { return model.Symbol{Base: model.BTC, Quote: model.USDT} }

func buyLimitOrder(userID int64, price, qty string) *model.Order {
	p, _ := decimal.NewFromString(price)
	return &model.Order{
		UserID:      userID,
		Kind:        model.KindLimit,
		Side:        model.SideBuy,
		Base:        model.BTC,
		Quote:       model.USDT,
		LimitPrice:  &p,
		OriginalQty: mustDec(qty),
	}
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRequirement_BuyLimit_ReservesQtyTimesLimitPrice(t *testing.T) {
	v := New(newFakeBalances(), fakePriceFeed{}, Config{})
	order := buyLimitOrder(1, "100", "2")

	req, err := v.Requirement(context.Background(), order)
	assert.Nil(t, err)
	assert.Equal(t, model.USDT, req.Currency)
	assert.True(t, req.Amount.Equal(mustDec("200")))
}

func TestRequirement_BuyMarket_AppliesSlippageBuffer(t *testing.T) {
	feed := fakePriceFeed{btcUsdt(): mustDec("100")}
	v := New(newFakeBalances(), feed, Config{SlippageBuffer: mustDec("1.1")})
	order := &model.Order{
		UserID: 1, Kind: model.KindMarket, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, OriginalQty: mustDec("2"),
	}

	req, err := v.Requirement(context.Background(), order)
	assert.Nil(t, err)
	assert.True(t, req.Amount.Equal(mustDec("220")), "2 * 100 * 1.1 slippage buffer")
}

func TestRequirement_BuyMarket_NoPriceIsFatal(t *testing.T) {
	v := New(newFakeBalances(), fakePriceFeed{}, Config{})
	order := &model.Order{
		UserID: 1, Kind: model.KindMarket, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, OriginalQty: mustDec("1"),
	}

	_, err := v.Requirement(context.Background(), order)
	if assert.NotNil(t, err) {
		assert.Equal(t, model.ErrPriceUnavailable, err.Kind)
	}
}

func TestRequirement_Sell_ReservesBaseQty(t *testing.T) {
	v := New(newFakeBalances(), fakePriceFeed{}, Config{})
	p := mustDec("100")
	order := &model.Order{
		UserID: 1, Kind: model.KindLimit, Side: model.SideSell,
		Base: model.BTC, Quote: model.USDT, LimitPrice: &p, OriginalQty: mustDec("3"),
	}

	req, err := v.Requirement(context.Background(), order)
	assert.Nil(t, err)
	assert.Equal(t, model.BTC, req.Currency)
	assert.True(t, req.Amount.Equal(mustDec("3")))
}

func TestValidate_Disabled_SkipsAllChecks(t *testing.T) {
	v := New(newFakeBalances(), fakePriceFeed{}, Config{Enabled: false})
	order := buyLimitOrder(1, "100", "1000000")

	assert.Nil(t, v.Validate(context.Background(), order))
}

func TestValidate_InsufficientBalance(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, model.USDT, mustDec("50"))
	v := New(balances, fakePriceFeed{}, Config{Enabled: true, MaxExposure: mustDec("1000000")})

	order := buyLimitOrder(1, "100", "1")
	err := v.Validate(context.Background(), order)
	if assert.NotNil(t, err) {
		assert.Equal(t, model.ErrInsufficientBal, err.Kind)
	}
}

func TestValidate_SufficientBalance_Passes(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, model.USDT, mustDec("500"))
	v := New(balances, fakePriceFeed{}, Config{Enabled: true, MaxExposure: mustDec("1000000")})

	order := buyLimitOrder(1, "100", "1")
	assert.Nil(t, v.Validate(context.Background(), order))
}

func TestValidate_ExposureCapExceeded(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, model.USDT, mustDec("1000000"))
	balances.set(1, model.BTC, mustDec("100"))
	feed := fakePriceFeed{btcUsdt(): mustDec("100")}
	v := New(balances, feed, Config{Enabled: true, MaxExposure: mustDec("5000")})

	// existing BTC exposure alone (100 * 100 = 10000) already exceeds the cap.
	order := buyLimitOrder(1, "100", "1")
	err := v.Validate(context.Background(), order)
	if assert.NotNil(t, err) {
		assert.Equal(t, model.ErrExposureExceeded, err.Kind)
	}
}

func TestValidate_ExposureCap_MarketOrdersExempt(t *testing.T) {
	balances := newFakeBalances()
	balances.set(1, model.USDT, mustDec("1000000"))
	balances.set(1, model.BTC, mustDec("100"))
	feed := fakePriceFeed{btcUsdt(): mustDec("100")}
	v := New(balances, feed, Config{Enabled: true, MaxExposure: mustDec("5000")})

	order := &model.Order{
		UserID: 1, Kind: model.KindMarket, Side: model.SideBuy,
		Base: model.BTC, Quote: model.USDT, OriginalQty: mustDec("1"),
	}
	// balance check still applies (market buy reserves qty*price*slippage)
	// but exposure is only checked for LIMIT orders (§4.4 step 3).
	assert.Nil(t, v.Validate(context.Background(), order))
}
