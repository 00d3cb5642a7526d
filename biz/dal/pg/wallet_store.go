package pg

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cexcore/matchcore/biz/model"
)

// maxCASRetries bounds the optimistic-concurrency retry loop (§4.3): on
// exhaustion the mutation fails CONCURRENCY_CONFLICT rather than blocking.
const maxCASRetries = 5

// WalletStore implements ports.BalanceStore over a wallets table keyed on
// (user_id, currency), with a version column compare-and-set instead of
// row-level locking, per §5's "Balance records" discipline.
type WalletStore struct {
	db *gorm.DB
}

func NewWalletStore(db *gorm.DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Get(ctx context.Context, userID int64, currency model.Currency) (model.Balance, error) {
	wallet, _, err := s.load(ctx, userID, currency)
	if err != nil {
		return model.Balance{}, err
	}
	return toBalance(wallet), nil
}

func (s *WalletStore) List(ctx context.Context, userID int64) ([]model.Balance, error) {
	var wallets []model.Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&wallets).Error; err != nil {
		return nil, err
	}
	out := make([]model.Balance, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toBalance(&w))
	}
	return out, nil
}

func (s *WalletStore) Credit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, reason model.BalanceReason) (model.Balance, error) {
	return s.mutate(ctx, userID, currency, func(w *model.Wallet) error {
		w.Available = w.Available.Add(amount)
		return nil
	})
}

func (s *WalletStore) Debit(ctx context.Context, userID int64, currency model.Currency, amount decimal.Decimal, reason model.BalanceReason) (model.Balance, error) {
	return s.mutate(ctx, userID, currency, func(w *model.Wallet) error {
		if w.Available.LessThan(amount) {
			return model.NewError(model.ErrInsufficientBal, "insufficient %s balance", currency).
				WithDetail("required", amount.String()).
				WithDetail("available", w.Available.String())
		}
		w.Available = w.Available.Sub(amount)
		return nil
	})
}

// mutate applies fn to the current wallet state and persists it under a
// version compare-and-set, retrying up to maxCASRetries times on a
// concurrent writer winning the race (§4.3).
func (s *WalletStore) mutate(ctx context.Context, userID int64, currency model.Currency, fn func(*model.Wallet) error) (model.Balance, error) {
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		wallet, isNew, err := s.load(ctx, userID, currency)
		if err != nil {
			return model.Balance{}, err
		}
		expectedVersion := wallet.Version
		if err := fn(wallet); err != nil {
			return model.Balance{}, err
		}
		wallet.Version = expectedVersion + 1
		wallet.UpdatedAt = time.Now()

		if isNew {
			// First mutation for this (user, currency): insert row 0->1.
			// A concurrent first-writer racing us is caught by the unique
			// (user_id, currency) constraint and simply retries.
			err := s.db.WithContext(ctx).Create(wallet).Error
			if err == nil {
				return toBalance(wallet), nil
			}
			continue
		}

		result := s.db.WithContext(ctx).Model(&model.Wallet{}).
			Where("user_id = ? AND currency = ? AND version = ?", userID, currency, expectedVersion).
			Updates(map[string]interface{}{
				"available":  wallet.Available,
				"version":    wallet.Version,
				"updated_at": wallet.UpdatedAt,
			})
		if result.Error != nil {
			return model.Balance{}, result.Error
		}
		if result.RowsAffected == 1 {
			return toBalance(wallet), nil
		}
		// Lost the race: another writer bumped the version first. Retry.
	}
	return model.Balance{}, model.NewError(model.ErrConcurrencyConflict,
		"wallet %d/%s: version conflict after %d retries", userID, currency, maxCASRetries)
}

// load fetches the wallet, reporting isNew=true with a zero-balance,
// version-0 stub if absent (§3, "created lazily on first credit"). A
// missing wallet is not a NOT_FOUND error: reads and debit-checks treat it
// as a zero balance.
func (s *WalletStore) load(ctx context.Context, userID int64, currency model.Currency) (*model.Wallet, bool, error) {
	var wallet model.Wallet
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Wallet{UserID: userID, Currency: currency, Available: decimal.Zero, Version: 0}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &wallet, false, nil
}

func toBalance(w *model.Wallet) model.Balance {
	return model.Balance{UserID: w.UserID, Currency: w.Currency, Available: w.Available, Version: w.Version}
}
