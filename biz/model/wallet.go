package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceReason tags why a BalanceUpdated event fired.
type BalanceReason string

const (
	ReasonDeposit     BalanceReason = "DEPOSIT"
	ReasonWithdraw    BalanceReason = "WITHDRAW"
	ReasonReservation BalanceReason = "RESERVATION"
	ReasonRelease     BalanceReason = "RELEASE"
	ReasonSettlement  BalanceReason = "SETTLEMENT"
)

// Wallet is the persistent (user, currency) balance record. Version is the
// optimistic-concurrency token: it strictly increases on every persisted
// mutation and is compared-and-swapped by the Balance Store (§4.3).
type Wallet struct {
	UserID    int64           `gorm:"primaryKey;column:user_id" json:"user_id"`
	Currency  Currency        `gorm:"primaryKey;column:currency" json:"currency"`
	Available decimal.Decimal `gorm:"column:available;type:numeric(36,8)" json:"available"`
	Version   int64           `gorm:"column:version" json:"version"`
	UpdatedAt time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Wallet) TableName() string { return "wallets" }

// Balance is the read-only projection returned to callers.
type Balance struct {
	UserID    int64           `json:"user_id"`
	Currency  Currency        `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Version   int64           `json:"version"`
}
