package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderKind string

const (
	KindLimit  OrderKind = "LIMIT"
	KindMarket OrderKind = "MARKET"
)

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderStatus string

const (
	StatusOpen      OrderStatus = "OPEN"
	StatusPartial   OrderStatus = "PARTIAL"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Order is the canonical persistent order record (§3). The Order Store
// exclusively owns this row; the in-memory Order Book only ever holds a
// derived OrderBookEntry referencing it by ID.
type Order struct {
	ID             int64            `gorm:"primaryKey;column:id" json:"id"`
	UserID         int64            `gorm:"column:user_id;index" json:"user_id"`
	Kind           OrderKind        `gorm:"column:kind" json:"kind"`
	Side           OrderSide        `gorm:"column:side" json:"side"`
	Base           Currency         `gorm:"column:base" json:"base"`
	Quote          Currency         `gorm:"column:quote" json:"quote"`
	LimitPrice     *decimal.Decimal `gorm:"column:limit_price;type:numeric(36,8)" json:"limit_price,omitempty"`
	OriginalQty    decimal.Decimal  `gorm:"column:original_qty;type:numeric(36,8)" json:"original_qty"`
	FilledQty      decimal.Decimal  `gorm:"column:filled_qty;type:numeric(36,8)" json:"filled_qty"`
	Status         OrderStatus      `gorm:"column:status;index" json:"status"`
	IdempotencyKey *string          `gorm:"column:idempotency_key;uniqueIndex" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at" json:"updated_at"`

	// arrivalSeq is an unpersisted sequence slot for callers. The order book
	// does not read it: it keeps FIFO order in its own level queues and
	// stamps OrderBookEntry.ArrivalSeq itself.
	arrivalSeq int64 `gorm:"-"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) Symbol() Symbol {
	return Symbol{Base: o.Base, Quote: o.Quote}
}

func (o *Order) RemainingQty() decimal.Decimal {
	return o.OriginalQty.Sub(o.FilledQty)
}

func (o *Order) IsTerminal() bool {
	return o.Status == StatusFilled || o.Status == StatusCancelled
}

func (o *Order) CanCancel() bool {
	return o.Status == StatusOpen || o.Status == StatusPartial
}

func (o *Order) ArrivalSeq() int64 { return o.arrivalSeq }

func (o *Order) SetArrivalSeq(seq int64) { o.arrivalSeq = seq }

// Fill records a partial or full fill and recomputes status per §3's
// invariant: FILLED iff filled_qty == original_qty, PARTIAL iff
// 0 < filled_qty < original_qty.
func (o *Order) Fill(qty decimal.Decimal) {
	o.FilledQty = o.FilledQty.Add(qty)
	switch {
	case o.FilledQty.GreaterThanOrEqual(o.OriginalQty):
		o.Status = StatusFilled
	case o.FilledQty.GreaterThan(decimal.Zero):
		o.Status = StatusPartial
	}
}

// OrderBookEntry is an immutable projection of a resting order into a
// ladder: (order_id, price, remaining_qty, arrival). The book rebuilds it
// on every partial fill rather than mutating an order pointer, so it never
// aliases the canonical Order Store record (§9, cyclic-reference note).
type OrderBookEntry struct {
	OrderID      int64
	UserID       int64
	Side         OrderSide
	Price        decimal.Decimal
	RemainingQty decimal.Decimal
	ArrivalSeq   int64
}
