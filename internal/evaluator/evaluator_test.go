package evaluator

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ninjatosba/arbitrage-detector/internal/config"
	"github.com/Ninjatosba/arbitrage-detector/internal/orderbook"
	"github.com/Ninjatosba/arbitrage-detector/internal/types"
	"github.com/Ninjatosba/arbitrage-detector/internal/univ3"
)

func testCfg() *config.Config {
	return &config.Config{
		CEX:   config.CEXCfg{FeeBps: 1},
		Gas:   config.GasCfg{Units: 350_000, Multiplier: 1.2},
		Risk:  config.RiskCfg{MinPnLUSD: 0.5},
		Trade: config.TradeCfg{NotionalUSD: 1000, LadderSteps: 4, LadderFactor: 2},
		Timings: config.TimingsCfg{
			BookStaleMs: 3000,
			PoolStaleMs: 30000,
		},
	}
}

// deepPool builds a USDC(6)/WETH(18) snapshot with enough in-range liquidity
// that slippage stays in fractions of a bp at the test sizes.
func deepPool(t *testing.T, price float64, ts time.Time) univ3.PoolState {
	t.Helper()
	sqrt, err := univ3.SqrtX96FromPrice(price, 6, 18)
	require.NoError(t, err)
	liq, ok := new(big.Int).SetString("1000000000000000000", 10) // 1e18
	require.True(t, ok)
	return univ3.PoolState{
		SqrtPriceX96:   sqrt,
		Liquidity:      liq,
		FeeBps:         5,
		Token0Decimals: 6,
		Token1Decimals: 18,
		Ts:             ts,
	}
}

func freshTop(bid, ask, qty float64, ts time.Time) orderbook.Top {
	return orderbook.Top{
		Bid:       orderbook.Level{Price: bid, Qty: qty},
		Ask:       orderbook.Level{Price: ask, Qty: qty},
		UpdatedAt: ts,
	}
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e9))
}

func TestEvaluateAlignedMarketYieldsNothing(t *testing.T) {
	// Bid 1000 / ask 1001 against a pool spot of 1000.50: with a 1 bps CEX
	// fee, a 5 bps pool fee and ~2 USD of gas, both directions lose money.
	now := time.Now()
	ev := New(testCfg(), univ3.SingleTickModel{}, zap.NewNop())

	opps := ev.Evaluate(deepPool(t, 1000.50, now), freshTop(1000, 1001, 5, now), gwei(5), now)
	assert.Empty(t, opps)
}

func TestEvaluateDexDiscountFoundAndSized(t *testing.T) {
	// Pool spot falls to 995 against the same 1000/1001 book: buying on the
	// DEX and selling into the bid clears fees and gas with room to spare.
	now := time.Now()
	ev := New(testCfg(), univ3.SingleTickModel{}, zap.NewNop())

	opps := ev.Evaluate(deepPool(t, 995.0, now), freshTop(1000, 1001, 5, now), gwei(5), now)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, types.DEXBuyCEXSell, opp.Direction)
	assert.Greater(t, opp.NetPnL, 0.0)
	assert.Less(t, opp.NetPnL, opp.GrossPnL, "net must carry fee and gas deductions")
	assert.Equal(t, 1000.0, opp.CexPriceUsed)
	assert.Empty(t, opp.ID, "evaluation itself assigns no IDs")

	// Ladder is 1000/2000/4000/8000; 8000 notional buys ~8 base, more than
	// the 5 on the bid, so 4000 is the largest admissible and the best.
	assert.Equal(t, 4000.0, opp.TradeSize)
}

func TestEvaluateDexPremiumFound(t *testing.T) {
	// Pool spot at 1006 against the 1000/1001 book: buy the ask, sell the pool.
	now := time.Now()
	ev := New(testCfg(), univ3.SingleTickModel{}, zap.NewNop())

	opps := ev.Evaluate(deepPool(t, 1006.0, now), freshTop(1000, 1001, 5, now), gwei(5), now)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, types.CEXBuyDEXSell, opp.Direction)
	assert.Greater(t, opp.NetPnL, 0.0)
	assert.Equal(t, 1001.0, opp.CexPriceUsed)
}

func TestEvaluateRespectsMinPnL(t *testing.T) {
	now := time.Now()
	cfg := testCfg()
	cfg.Risk.MinPnLUSD = 100 // far above what the 995 discount can clear
	ev := New(cfg, univ3.SingleTickModel{}, zap.NewNop())

	opps := ev.Evaluate(deepPool(t, 995.0, now), freshTop(1000, 1001, 5, now), gwei(5), now)
	assert.Empty(t, opps)
}

func TestEvaluateRespectsBookDepth(t *testing.T) {
	// Only 0.5 base on the bid: even the smallest rung buys ~1 base, so the
	// book cannot absorb any rung and no opportunity may be emitted.
	now := time.Now()
	ev := New(testCfg(), univ3.SingleTickModel{}, zap.NewNop())

	opps := ev.Evaluate(deepPool(t, 995.0, now), freshTop(1000, 1001, 0.5, now), gwei(5), now)
	assert.Empty(t, opps)
}

func TestEvaluateSkipsStaleInputs(t *testing.T) {
	now := time.Now()
	ev := New(testCfg(), univ3.SingleTickModel{}, zap.NewNop())
	top := freshTop(1000, 1001, 5, now)

	stalePool := deepPool(t, 995.0, now.Add(-31*time.Second))
	assert.Nil(t, ev.Evaluate(stalePool, top, gwei(5), now))

	staleTop := freshTop(1000, 1001, 5, now.Add(-4*time.Second))
	assert.Nil(t, ev.Evaluate(deepPool(t, 995.0, now), staleTop, gwei(5), now))

	assert.Nil(t, ev.Evaluate(deepPool(t, 995.0, now), top, nil, now),
		"no gas price yet means no evaluation")
}

func TestEvaluateDeterministic(t *testing.T) {
	now := time.Now()
	ev := New(testCfg(), univ3.SingleTickModel{}, zap.NewNop())
	pool := deepPool(t, 995.0, now)
	top := freshTop(1000, 1001, 5, now)

	a := ev.Evaluate(pool, top, gwei(5), now)
	b := ev.Evaluate(pool, top, gwei(5), now)
	assert.Equal(t, a, b, "identical inputs must produce identical output")
}

func TestLadderGeometric(t *testing.T) {
	ev := New(testCfg(), univ3.SingleTickModel{}, zap.NewNop())
	assert.Equal(t, []float64{1000, 2000, 4000, 8000}, ev.ladder())
}
