package pg

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cexcore/matchcore/biz/model"
	"github.com/cexcore/matchcore/biz/service"
)

// OrderStore implements ports.OrderStore over the orders table (§6:
// unique on idempotency_key when present; indexed on user, status). Id
// allocation is delegated to a shared sonyflake-backed IDGenerator so ids
// stay ordered and collision-free across stores without a database
// sequence round trip.
type OrderStore struct {
	db  *gorm.DB
	ids *service.IDGenerator
}

func NewOrderStore(db *gorm.DB, ids *service.IDGenerator) *OrderStore {
	return &OrderStore{db: db, ids: ids}
}

func (s *OrderStore) Insert(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *OrderStore) Update(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Save(order).Error
}

func (s *OrderStore) Get(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.NewError(model.ErrNotFound, "order %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderStore) GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, bool, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID int64) ([]*model.Order, error) {
	var orders []*model.Order
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&orders).Error
	return orders, err
}

func (s *OrderStore) NextID(ctx context.Context) (int64, error) {
	return s.ids.Next()
}
