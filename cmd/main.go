package main

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/accesslog"
	"github.com/hertz-contrib/cors"
	"github.com/hertz-contrib/gzip"
	"github.com/hertz-contrib/pprof"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cexcore/matchcore/biz/dal/kafka"
	"github.com/cexcore/matchcore/biz/dal/memory"
	"github.com/cexcore/matchcore/biz/dal/pg"
	"github.com/cexcore/matchcore/biz/dal/pricefeed"
	"github.com/cexcore/matchcore/biz/dal/redis"
	"github.com/cexcore/matchcore/biz/engine"
	"github.com/cexcore/matchcore/biz/handler"
	"github.com/cexcore/matchcore/biz/ports"
	"github.com/cexcore/matchcore/biz/risk"
	"github.com/cexcore/matchcore/biz/service"
	"github.com/cexcore/matchcore/conf"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := conf.GetConf()

	hlog.SetLevel(conf.LogLevel())
	if cfg.Hertz.LogFileName != "" {
		hlog.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Hertz.LogFileName,
			MaxSize:    cfg.Hertz.LogMaxSize,
			MaxBackups: cfg.Hertz.LogMaxBackups,
			MaxAge:     cfg.Hertz.LogMaxAge,
		})
	}

	books := engine.NewOrderBookManager()
	feed := pricefeed.NewStatic()

	balances, orders, trades, _ := buildStores(cfg)

	riskCfg := risk.Config{
		Enabled:        cfg.Risk.Enabled,
		MaxExposure:    decimal.NewFromFloat(cfg.Risk.MaxExposureQuote),
		SlippageBuffer: decimal.NewFromFloat(cfg.Risk.SlippageBufferPct),
	}
	validator := risk.New(balances, feed, riskCfg)

	var sink ports.EventSink = kafka.NewSink(cfg.Kafka.Brokers)
	asyncSink, err := service.NewAsyncSink(sink, 32)
	if err != nil {
		hlog.Fatalf("starting event dispatch pool: %v", err)
	}
	sink = asyncSink

	coordinator := service.NewCoordinator(books, validator, balances, orders, trades, sink)

	if cfg.Redis.Address != "" {
		cache := redis.NewCache(cfg.Redis.Address, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
		if err := cache.Ping(context.Background()); err != nil {
			hlog.Warnf("redis unavailable, running without cache: %v", err)
		} else {
			coordinator = coordinator.WithCache(cache)
		}
	}

	h := server.New(server.WithHostPorts(cfg.Hertz.Address))

	h.Use(hertzslog.New())
	if cfg.Hertz.EnableGzip {
		h.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	h.Use(cors.Default())
	if cfg.Hertz.EnablePprof {
		pprof.Register(h)
	}

	orderHandler := handler.NewOrderHandler(coordinator)
	assetHandler := handler.NewAssetHandler(coordinator)
	marketHandler := handler.NewMarketHandler(coordinator)

	h.POST("/orders", orderHandler.Submit)
	h.POST("/orders/:id/cancel", orderHandler.Cancel)
	h.GET("/orders/:id", orderHandler.Get)
	h.GET("/orders", orderHandler.List)

	h.POST("/wallets/deposit", assetHandler.Deposit)
	h.POST("/wallets/withdraw", assetHandler.Withdraw)
	h.GET("/wallets/:currency", assetHandler.GetBalance)
	h.GET("/wallets", assetHandler.ListBalances)

	h.GET("/symbols/:symbol/orderbook", marketHandler.OrderBook)
	h.GET("/symbols/:symbol/trades", marketHandler.Trades)

	h.Spin()
}

// buildStores wires the Postgres-backed stores when a DSN is configured,
// falling back to the in-memory stores otherwise (local runs, tests).
func buildStores(cfg *conf.Config) (ports.BalanceStore, ports.OrderStore, ports.TradeStore, *service.IDGenerator) {
	ids, err := service.NewIDGenerator()
	if err != nil {
		hlog.Fatalf("starting id generator: %v", err)
	}

	if cfg.Postgres.DSN == "" {
		return memory.NewWalletStore(), memory.NewOrderStore(), memory.NewTradeStore(), ids
	}

	db, _, err := pg.Open(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		hlog.Fatalf("connecting to postgres: %v", err)
	}
	if err := pg.AutoMigrate(db); err != nil {
		hlog.Fatalf("migrating schema: %v", err)
	}
	return pg.NewWalletStore(db), pg.NewOrderStore(db, ids), pg.NewTradeStore(db, ids), ids
}
