package pg

import (
	"context"

	"gorm.io/gorm"

	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/service"
)

// TradeStore implements ports.TradeStore over the append-only trades
// table (§6: indexed on buy_id, sell_id, symbol+timestamp).
type TradeStore struct {
	db  *gorm.DB
	ids *service.IDGenerator
}

func NewTradeStore(db *gorm.DB, ids *service.IDGenerator) *TradeStore {
	return &TradeStore{db: db, ids: ids}
}

func (s *TradeStore) Insert(ctx context.Context, trade *model.Trade) error {
	return s.db.WithContext(ctx).Create(trade).Error
}

func (s *TradeStore) ListBySymbol(ctx context.Context, symbol model.Symbol, limit int) ([]*model.Trade, error) {
	var trades []*model.Trade
	err := s.db.WithContext(ctx).
		Where("base = ? AND quote = ?", symbol.Base, symbol.Quote).
		Order("timestamp desc").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}

func (s *TradeStore) NextID(ctx context.Context) (int64, error) {
	return s.ids.Next()
}
