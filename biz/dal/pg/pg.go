// Package pg is the Postgres-backed persistence layer for wallets, orders,
// and trades, built on GORM over pgx/v5 the way the teacher's biz/dal/pg
// wires it, generalized from a package of free functions into stores that
// implement the ports package's Balance/Order/Trade Store interfaces.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cexcore/matchcore/biz/model"
)

// Open connects to Postgres via pgx and returns a GORM handle over the same
// DSN, mirroring the teacher's pg.Init/pg.InitGorm split.
func Open(ctx context.Context, dsn string) (*gorm.DB, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("pinging postgres: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("opening gorm: %w", err)
	}
	return db, pool, nil
}

// AutoMigrate creates or updates the wallets/orders/trades tables (§6,
// "Persisted schema (logical)").
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Wallet{}, &model.Order{}, &model.Trade{})
}
