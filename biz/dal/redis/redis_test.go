package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cexcore/matchcore/biz/model"
)

func TestCacheKeys_AreNamespacedPerSymbolAndKind(t *testing.T) {
	symbol := model.Symbol{Base: model.BTC, Quote: model.USDT}

	assert.Equal(t, "orderbook:BTC/USDT", orderBookKey(symbol))
	assert.Equal(t, "trades:BTC/USDT", recentTradesKey(symbol))
	assert.Equal(t, "idemkey:abc", idempotencyKey("abc"))
}
