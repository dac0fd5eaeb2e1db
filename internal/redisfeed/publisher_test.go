package redisfeed

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ninjatosba/arbitrage-detector/internal/config"
	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

func testPublisher(t *testing.T) (*Publisher, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Redis: config.RedisCfg{
			Addr:      mr.Addr(),
			Stream:    "opp:stream",
			LatestKey: "opp:latest",
		},
	}
	p := NewPublisher(cfg)
	t.Cleanup(func() { _ = p.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return p, rdb
}

func TestPublishOpportunity(t *testing.T) {
	p, rdb := testPublisher(t)
	ctx := context.Background()

	opp := types.Opportunity{
		ID:           "11111111-2222-3333-4444-555555555555",
		Direction:    types.CEXBuyDEXSell,
		TradeSize:    1000,
		GrossPnL:     4.5,
		NetPnL:       2.3,
		DexQuote:     types.TradeQuote{EffectivePrice: 1005.49, SlippageBps: 0.8},
		CexPriceUsed: 1001,
		GasUSD:       2.11,
		Ts:           time.UnixMilli(1724668800000),
	}
	require.NoError(t, p.PublishOpportunity(ctx, opp))

	msgs, err := rdb.XRange(ctx, "opp:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	vals := msgs[0].Values
	assert.Equal(t, opp.ID, vals["id"])
	assert.Equal(t, "CEX_BUY_DEX_SELL", vals["direction"])

	size, err := strconv.ParseFloat(vals["size_usd"].(string), 64)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, size)
	assert.Equal(t, "1724668800000", vals["ts_ms"])

	blob, err := rdb.Get(ctx, "opp:latest").Result()
	require.NoError(t, err)
	var latest types.Opportunity
	require.NoError(t, json.Unmarshal([]byte(blob), &latest))
	assert.Equal(t, opp.ID, latest.ID)
	assert.Equal(t, opp.NetPnL, latest.NetPnL)
}

func TestPublishAppendsToStream(t *testing.T) {
	p, rdb := testPublisher(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		opp := types.Opportunity{ID: id, Direction: types.DEXBuyCEXSell, Ts: time.Now()}
		require.NoError(t, p.PublishOpportunity(ctx, opp))
	}

	n, err := rdb.XLen(ctx, "opp:stream").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
