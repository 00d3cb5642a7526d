package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable execution record (§3). Symbol currencies derive
// from the order pair, never from caller input.
type Trade struct {
	ID          int64           `gorm:"primaryKey;column:id" json:"id"`
	BuyOrderID  int64           `gorm:"column:buy_order_id;index" json:"buy_order_id"`
	SellOrderID int64           `gorm:"column:sell_order_id;index" json:"sell_order_id"`
	Base        Currency        `gorm:"column:base;index:idx_trades_symbol_time,priority:1" json:"base"`
	Quote       Currency        `gorm:"column:quote;index:idx_trades_symbol_time,priority:2" json:"quote"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(36,8)" json:"price"`
	Qty         decimal.Decimal `gorm:"column:qty;type:numeric(36,8)" json:"qty"`
	Timestamp   time.Time       `gorm:"column:timestamp;index;index:idx_trades_symbol_time,priority:3" json:"timestamp"`
}

func (Trade) TableName() string { return "trades" }

func (t *Trade) Symbol() Symbol {
	return Symbol{Base: t.Base, Quote: t.Quote}
}

// QuoteValue returns price * qty, the amount of quote currency that
// changes hands in this trade.
func (t *Trade) QuoteValue() decimal.Decimal {
	return t.Price.Mul(t.Qty)
}
