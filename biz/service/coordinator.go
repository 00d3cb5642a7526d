// Package service hosts the Trading Coordinator (C9): the top-level
// orchestration of submit/cancel/deposit/withdraw against Risk, the
// Balance/Order/Trade Stores, the per-symbol Order Book, and the Event Sink.
// Grounded on the reference OrderService/TradeExecutionService, restructured
// around explicit interfaces rather than Spring-injected repositories.
package service

import (
	"context"
	"time"

	"github.com/cexcore/matchcore/biz/engine"
	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/ports"
	"github.com/cexcore/matchcore/biz/risk"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/shopspring/decimal"
)

// Coordinator is the single writer that keeps the Order Store and the Order
// Book in lockstep (§3, "Ownership"). All exported methods are safe for
// concurrent use across symbols; per-symbol serialization is provided by
// engine.OrderBook's own lock.
type Coordinator struct {
	books    *engine.OrderBookManager
	risk     *risk.Validator
	balances ports.BalanceStore
	orders   ports.OrderStore
	trades   ports.TradeStore
	events   ports.EventSink
	cache    ports.Cache
	now      func() time.Time
}

func NewCoordinator(books *engine.OrderBookManager, riskValidator *risk.Validator, balances ports.BalanceStore, orders ports.OrderStore, trades ports.TradeStore, events ports.EventSink) *Coordinator {
	return &Coordinator{
		books:    books,
		risk:     riskValidator,
		balances: balances,
		orders:   orders,
		trades:   trades,
		events:   events,
		now:      time.Now,
	}
}

// WithCache attaches an optional read-side cache; nil is a valid no-op
// default so tests and no-Redis deployments don't need a fake.
func (c *Coordinator) WithCache(cache ports.Cache) *Coordinator {
	c.cache = cache
	return c
}

// SubmitRequest is the ingress shape for submit_order (§6).
type SubmitRequest struct {
	UserID         int64
	Kind           model.OrderKind
	Side           model.OrderSide
	Base           model.Currency
	Quote          model.Currency
	Price          *decimal.Decimal
	Qty            decimal.Decimal
	IdempotencyKey string
}

// Submit implements §4.5's submit flow: idempotency check, shape validation,
// risk validate, reserve funds, persist, emit OrderPlaced, match, settle
// each trade, return the refreshed order.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (*model.Order, *model.Error) {
	if req.IdempotencyKey != "" {
		if c.cache != nil && !c.cache.MarkIdempotencyKey(ctx, req.IdempotencyKey) {
			return nil, model.NewError(model.ErrDuplicate, "order with idempotency key %q already exists", req.IdempotencyKey)
		}
		existing, found, err := c.orders.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, model.NewError(model.ErrInternal, "idempotency lookup: %v", err)
		}
		if found {
			hlog.Infof("duplicate submit rejected, user=%d key=%s existing_order=%d", req.UserID, req.IdempotencyKey, existing.ID)
			return nil, model.NewError(model.ErrDuplicate, "order with idempotency key %q already exists", req.IdempotencyKey)
		}
	}

	if err := validateShape(req); err != nil {
		return nil, err
	}
	symbol, err := model.NewSymbol(req.Base, req.Quote)
	if err != nil {
		return nil, model.NewError(model.ErrValidation, "%v", err)
	}

	order := &model.Order{
		UserID:      req.UserID,
		Kind:        req.Kind,
		Side:        req.Side,
		Base:        req.Base,
		Quote:       req.Quote,
		LimitPrice:  req.Price,
		OriginalQty: req.Qty,
		FilledQty:   decimal.Zero,
		Status:      model.StatusOpen,
		CreatedAt:   c.now(),
		UpdatedAt:   c.now(),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}

	if rerr := c.risk.Validate(ctx, order); rerr != nil {
		return nil, rerr
	}

	// A LIMIT BUY reserves the full limit_price*qty here. When it later
	// fills below its limit price, the difference is not refunded.
	requirement, rerr := c.risk.Requirement(ctx, order)
	if rerr != nil {
		return nil, rerr
	}
	if _, err := c.balances.Debit(ctx, req.UserID, requirement.Currency, requirement.Amount, model.ReasonReservation); err != nil {
		return nil, asError(err, "reserving funds")
	}
	c.emitBalanceUpdated(ctx, req.UserID, requirement.Currency, requirement.Amount.Neg(), model.ReasonReservation)

	id, err := c.orders.NextID(ctx)
	if err != nil {
		return nil, model.NewError(model.ErrInternal, "allocating order id: %v", err)
	}
	order.ID = id
	if err := c.orders.Insert(ctx, order); err != nil {
		return nil, model.NewError(model.ErrInternal, "persisting order: %v", err)
	}
	hlog.Infof("order placed id=%d user=%d symbol=%s side=%s kind=%s qty=%s", order.ID, order.UserID, symbol, order.Side, order.Kind, order.OriginalQty)

	c.events.Publish(ctx, &model.Event{
		EventID:   randomID(),
		Kind:      model.EventOrderPlaced,
		Timestamp: c.now(),
		OrderPlaced: &model.OrderPlacedPayload{
			OrderID: order.ID,
			UserID:  order.UserID,
			Symbol:  symbol.String(),
			Kind:    order.Kind,
			Side:    order.Side,
			Price:   order.LimitPrice,
			Qty:     order.OriginalQty,
		},
	})

	book := c.books.Get(symbol)
	fills := book.Match(order)

	for _, f := range fills {
		if err := c.settle(ctx, order, f); err != nil {
			return nil, err
		}
	}

	if c.cache != nil && len(fills) > 0 {
		bids, asks := book.Snapshot()
		c.cache.CacheOrderBook(ctx, symbol, bids, asks)
	}

	// MARKET orders that could not be fully filled do not rest; the
	// unfilled remainder is cancelled outright (§4.2 step 4).
	if order.Kind == model.KindMarket && order.RemainingQty().GreaterThan(decimal.Zero) {
		order.Status = model.StatusCancelled
	}
	order.UpdatedAt = c.now()
	if err := c.orders.Update(ctx, order); err != nil {
		return nil, model.NewError(model.ErrInternal, "updating order: %v", err)
	}

	return order, nil
}

func validateShape(req SubmitRequest) *model.Error {
	if req.Kind == model.KindLimit && (req.Price == nil || !req.Price.GreaterThan(decimal.Zero)) {
		return model.NewError(model.ErrValidation, "LIMIT orders require a positive price")
	}
	if req.Kind == model.KindMarket && req.Price != nil {
		return model.NewError(model.ErrValidation, "MARKET orders must not carry a price")
	}
	if !req.Qty.GreaterThan(decimal.Zero) {
		return model.NewError(model.ErrValidation, "quantity must be positive")
	}
	return nil
}

// settle applies one fill to both counterparties' orders and ledgers, and
// emits the associated events (§4.5 step 8). The buyer's quote leg was
// already debited at reservation time; only the base credit and the
// seller's quote credit happen here (no fees, no maker/taker split).
func (c *Coordinator) settle(ctx context.Context, incoming *model.Order, f engine.Fill) *model.Error {
	quoteValue := f.Price.Mul(f.Qty)
	symbol := incoming.Symbol()

	tradeID, err := c.trades.NextID(ctx)
	if err != nil {
		return model.NewError(model.ErrInternal, "allocating trade id: %v", err)
	}
	trade := &model.Trade{
		ID:          tradeID,
		BuyOrderID:  f.BuyOrderID,
		SellOrderID: f.SellOrderID,
		Base:        symbol.Base,
		Quote:       symbol.Quote,
		Price:       f.Price,
		Qty:         f.Qty,
		Timestamp:   c.now(),
	}
	if err := c.trades.Insert(ctx, trade); err != nil {
		return model.NewError(model.ErrInternal, "persisting trade: %v", err)
	}
	if c.cache != nil {
		c.cache.CacheTrade(ctx, trade)
	}

	incoming.Fill(f.Qty)
	if err := c.orders.Update(ctx, incoming); err != nil {
		return model.NewError(model.ErrInternal, "updating incoming order: %v", err)
	}
	c.emitOrderMatched(ctx, incoming.ID, f.Qty, f.Price, incoming.IsTerminal())

	maker, err := c.orders.Get(ctx, f.MakerOrderID)
	if err != nil {
		return model.NewError(model.ErrInternal, "loading maker order: %v", err)
	}
	maker.Fill(f.Qty)
	if err := c.orders.Update(ctx, maker); err != nil {
		return model.NewError(model.ErrInternal, "updating maker order: %v", err)
	}
	c.emitOrderMatched(ctx, maker.ID, f.Qty, f.Price, maker.IsTerminal())

	buyerUserID, sellerUserID := incoming.UserID, maker.UserID
	if incoming.Side == model.SideSell {
		buyerUserID, sellerUserID = maker.UserID, incoming.UserID
	}

	// Buyer: credit base by qty (quote already debited at reservation).
	if _, err := c.balances.Credit(ctx, buyerUserID, symbol.Base, f.Qty, model.ReasonSettlement); err != nil {
		return asError(err, "crediting buyer base")
	}
	c.emitBalanceUpdated(ctx, buyerUserID, symbol.Base, f.Qty, model.ReasonSettlement)
	// Seller: credit quote by price*qty (base already debited at reservation).
	if _, err := c.balances.Credit(ctx, sellerUserID, symbol.Quote, quoteValue, model.ReasonSettlement); err != nil {
		return asError(err, "crediting seller quote")
	}
	c.emitBalanceUpdated(ctx, sellerUserID, symbol.Quote, quoteValue, model.ReasonSettlement)

	c.events.Publish(ctx, &model.Event{
		EventID:   randomID(),
		Kind:      model.EventTradeExecuted,
		Timestamp: c.now(),
		TradeExecuted: &model.TradeExecutedPayload{
			TradeID:     trade.ID,
			BuyOrderID:  trade.BuyOrderID,
			SellOrderID: trade.SellOrderID,
			Symbol:      symbol.String(),
			Price:       trade.Price,
			Qty:         trade.Qty,
		},
	})
	hlog.Infof("trade executed id=%d symbol=%s price=%s qty=%s buy=%d sell=%d", trade.ID, symbol, trade.Price, trade.Qty, trade.BuyOrderID, trade.SellOrderID)
	return nil
}

// Cancel implements §4.5's cancel flow.
func (c *Coordinator) Cancel(ctx context.Context, userID, orderID int64) (*model.Order, *model.Error) {
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return nil, model.NewError(model.ErrNotFound, "order %d not found", orderID)
	}
	if order.UserID != userID {
		return nil, model.NewError(model.ErrNotFound, "order %d not found", orderID)
	}
	if !order.CanCancel() {
		return nil, model.NewError(model.ErrUncancellable, "order %d is in terminal state %s", orderID, order.Status)
	}

	var releaseCurrency model.Currency
	var releaseAmount decimal.Decimal
	if order.Side == model.SideBuy {
		releaseCurrency = order.Quote
		releaseAmount = order.RemainingQty().Mul(*order.LimitPrice)
	} else {
		releaseCurrency = order.Base
		releaseAmount = order.RemainingQty()
	}

	if _, err := c.balances.Credit(ctx, userID, releaseCurrency, releaseAmount, model.ReasonRelease); err != nil {
		return nil, asError(err, "releasing reservation")
	}
	c.emitBalanceUpdated(ctx, userID, releaseCurrency, releaseAmount, model.ReasonRelease)

	symbol := order.Symbol()
	book := c.books.Get(symbol)
	book.Remove(order.ID, order.Side, *order.LimitPrice)

	order.Status = model.StatusCancelled
	order.UpdatedAt = c.now()
	if err := c.orders.Update(ctx, order); err != nil {
		return nil, model.NewError(model.ErrInternal, "persisting cancellation: %v", err)
	}
	hlog.Infof("order cancelled id=%d user=%d", order.ID, userID)
	return order, nil
}

// Deposit credits a wallet directly and emits BalanceUpdated (§4.5,
// "Deposit/Withdraw flow"). idempotencyKey is accepted but not checked:
// no deposit log is kept, so a repeated key credits the wallet again.
func (c *Coordinator) Deposit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, idempotencyKey string) (model.Balance, *model.Error) {
	if !amount.GreaterThan(decimal.Zero) {
		return model.Balance{}, model.NewError(model.ErrValidation, "deposit amount must be positive")
	}
	balance, err := c.balances.Credit(ctx, userID, currency, amount, model.ReasonDeposit)
	if err != nil {
		return model.Balance{}, asError(err, "depositing")
	}
	c.emitBalanceUpdated(ctx, userID, currency, amount, model.ReasonDeposit)
	return balance, nil
}

// Withdraw debits a wallet directly.
func (c *Coordinator) Withdraw(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal) (model.Balance, *model.Error) {
	if !amount.GreaterThan(decimal.Zero) {
		return model.Balance{}, model.NewError(model.ErrValidation, "withdrawal amount must be positive")
	}
	balance, err := c.balances.Debit(ctx, userID, currency, amount, model.ReasonWithdraw)
	if err != nil {
		return model.Balance{}, asError(err, "withdrawing")
	}
	c.emitBalanceUpdated(ctx, userID, currency, amount.Neg(), model.ReasonWithdraw)
	return balance, nil
}

func (c *Coordinator) GetOrder(ctx context.Context, userID, orderID int64) (*model.Order, *model.Error) {
	order, err := c.orders.Get(ctx, orderID)
	if err != nil || order.UserID != userID {
		return nil, model.NewError(model.ErrNotFound, "order %d not found", orderID)
	}
	return order, nil
}

func (c *Coordinator) ListOrders(ctx context.Context, userID int64) ([]*model.Order, *model.Error) {
	orders, err := c.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, model.NewError(model.ErrInternal, "listing orders: %v", err)
	}
	return orders, nil
}

func (c *Coordinator) GetBalance(ctx context.Context, userID int64, currency model.Currency) (model.Balance, *model.Error) {
	balance, err := c.balances.Get(ctx, userID, currency)
	if err != nil {
		return model.Balance{}, model.NewError(model.ErrInternal, "loading balance: %v", err)
	}
	return balance, nil
}

func (c *Coordinator) ListBalances(ctx context.Context, userID int64) ([]model.Balance, *model.Error) {
	balances, err := c.balances.List(ctx, userID)
	if err != nil {
		return nil, model.NewError(model.ErrInternal, "listing balances: %v", err)
	}
	return balances, nil
}

func (c *Coordinator) OrderBookSnapshot(symbol model.Symbol) (bids, asks []engine.PriceLevel) {
	return c.books.Get(symbol).Snapshot()
}

func (c *Coordinator) ListTrades(ctx context.Context, symbol model.Symbol, limit int) ([]*model.Trade, *model.Error) {
	trades, err := c.trades.ListBySymbol(ctx, symbol, limit)
	if err != nil {
		return nil, model.NewError(model.ErrInternal, "listing trades: %v", err)
	}
	return trades, nil
}

func (c *Coordinator) emitBalanceUpdated(ctx context.Context, userID int64, currency model.Currency, delta decimal.Decimal, reason model.BalanceReason) {
	balance, err := c.balances.Get(ctx, userID, currency)
	if err != nil {
		hlog.Errorf("balance lookup for event emission failed, user=%d currency=%s err=%v", userID, currency, err)
		return
	}
	c.events.Publish(ctx, &model.Event{
		EventID:   randomID(),
		Kind:      model.EventBalanceUpdated,
		Timestamp: c.now(),
		BalanceUpdated: &model.BalanceUpdatedPayload{
			UserID:     userID,
			Currency:   currency,
			NewBalance: balance.Available,
			Delta:      delta,
			Reason:     reason,
		},
	})
}

func (c *Coordinator) emitOrderMatched(ctx context.Context, orderID int64, qty, price decimal.Decimal, fullyFilled bool) {
	c.events.Publish(ctx, &model.Event{
		EventID:   randomID(),
		Kind:      model.EventOrderMatched,
		Timestamp: c.now(),
		OrderMatched: &model.OrderMatchedPayload{
			OrderID:      orderID,
			MatchedQty:   qty,
			MatchedPrice: price,
			FullyFilled:  fullyFilled,
		},
	})
}

// asError normalizes an error from a Store implementation into the
// discriminated model.Error, defaulting to INTERNAL when the store returned
// a plain error (e.g. a driver-level failure it did not classify).
func asError(err error, context string) *model.Error {
	if e, ok := err.(*model.Error); ok {
		return e
	}
	return model.NewError(model.ErrInternal, "%s: %v", context, err)
}
