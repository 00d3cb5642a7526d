package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind tags which of the four domain event shapes a message carries.
type EventKind string

const (
	EventOrderPlaced    EventKind = "OrderPlaced"
	EventOrderMatched   EventKind = "OrderMatched"
	EventTradeExecuted  EventKind = "TradeExecuted"
	EventBalanceUpdated EventKind = "BalanceUpdated"
)

// Event is a tagged variant (sum type) replacing the inheritance-based
// domain event hierarchy in the Java original (§9, "Domain-event
// polymorphism"). Every event carries a unique EventID and a monotonic
// Timestamp; exactly one of the payload fields is non-nil, selected by Kind.
type Event struct {
	EventID   string    `json:"event_id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	OrderPlaced    *OrderPlacedPayload    `json:"order_placed,omitempty"`
	OrderMatched   *OrderMatchedPayload   `json:"order_matched,omitempty"`
	TradeExecuted  *TradeExecutedPayload  `json:"trade_executed,omitempty"`
	BalanceUpdated *BalanceUpdatedPayload `json:"balance_updated,omitempty"`
}

type OrderPlacedPayload struct {
	OrderID int64            `json:"order_id"`
	UserID  int64            `json:"user"`
	Symbol  string           `json:"symbol"`
	Kind    OrderKind        `json:"kind"`
	Side    OrderSide        `json:"side"`
	Price   *decimal.Decimal `json:"price,omitempty"`
	Qty     decimal.Decimal  `json:"qty"`
}

type OrderMatchedPayload struct {
	OrderID      int64           `json:"order_id"`
	MatchedQty   decimal.Decimal `json:"matched_qty"`
	MatchedPrice decimal.Decimal `json:"matched_price"`
	FullyFilled  bool            `json:"fully_filled"`
}

type TradeExecutedPayload struct {
	TradeID     int64           `json:"trade_id"`
	BuyOrderID  int64           `json:"buy_order_id"`
	SellOrderID int64           `json:"sell_order_id"`
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Qty         decimal.Decimal `json:"qty"`
}

type BalanceUpdatedPayload struct {
	UserID     int64           `json:"user"`
	Currency   Currency        `json:"currency"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Delta      decimal.Decimal `json:"delta"`
	Reason     BalanceReason   `json:"reason"`
}

// Key returns the routing key the Event Sink partitions publication on
// (§4.6): order id for order events, trade id for trade events,
// "{user}:{currency}" for balance events.
func (e *Event) Key() string {
	switch e.Kind {
	case EventOrderPlaced:
		return strconv.FormatInt(e.OrderPlaced.OrderID, 10)
	case EventOrderMatched:
		return strconv.FormatInt(e.OrderMatched.OrderID, 10)
	case EventTradeExecuted:
		return strconv.FormatInt(e.TradeExecuted.TradeID, 10)
	case EventBalanceUpdated:
		return strconv.FormatInt(e.BalanceUpdated.UserID, 10) + ":" + string(e.BalanceUpdated.Currency)
	default:
		return ""
	}
}

// Topic returns the Kafka topic name for this event's kind (§6 egress).
func (e *Event) Topic() string {
	switch e.Kind {
	case EventOrderPlaced:
		return "order-placed"
	case EventOrderMatched:
		return "order-matched"
	case EventTradeExecuted:
		return "trade-executed"
	case EventBalanceUpdated:
		return "balance-updated"
	default:
		return "unknown"
	}
}
