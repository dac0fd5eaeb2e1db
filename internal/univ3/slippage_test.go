package univ3

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

// testPool builds a USDC(6)/WETH(18) pool at the given quote-per-base price.
func testPool(t *testing.T, price float64, liquidity string, feeBps float64) PoolState {
	t.Helper()
	sqrt, err := SqrtX96FromPrice(price, 6, 18)
	require.NoError(t, err)
	liq, ok := new(big.Int).SetString(liquidity, 10)
	require.True(t, ok)
	return PoolState{
		SqrtPriceX96:   sqrt,
		Liquidity:      liq,
		FeeBps:         feeBps,
		Token0Decimals: 6,
		Token1Decimals: 18,
		Ts:             time.Now(),
	}
}

func TestSingleTickFeeOnlyInDeepPool(t *testing.T) {
	// With near-infinite liquidity the fill deviates from spot by the LP fee
	// alone, in both directions.
	pool := testPool(t, 1000.0, "1000000000000000000000000", 30) // 1e24
	m := SingleTickModel{}

	q, err := m.Quote(pool, types.SideBuyBase, 1000.0)
	require.NoError(t, err)
	assert.InEpsilon(t, 1000.0/(1-0.003), q.EffectivePrice, 1e-6)
	assert.InEpsilon(t, 1000.0*(1-0.003)/1000.0, q.AmountOut, 1e-6)
	assert.InDelta(t, 30.0, q.SlippageBps, 0.05)

	q, err = m.Quote(pool, types.SideSellBase, 1.0)
	require.NoError(t, err)
	assert.InEpsilon(t, 1000.0*(1-0.003), q.EffectivePrice, 1e-6)
	assert.InDelta(t, 30.0, q.SlippageBps, 0.05)
}

func TestSingleTickBuyWorsensWithSize(t *testing.T) {
	pool := testPool(t, 1000.0, "100000000000000000", 5) // 1e17
	m := SingleTickModel{}

	spot, err := pool.SpotPrice()
	require.NoError(t, err)

	prev := 0.0
	for _, in := range []float64{100, 500, 1000, 2000, 5000} {
		q, err := m.Quote(pool, types.SideBuyBase, in)
		require.NoError(t, err)
		assert.Greater(t, q.EffectivePrice, spot, "buy fill must be above spot at size %v", in)
		assert.GreaterOrEqual(t, q.EffectivePrice, prev, "buy fill must not improve with size")
		assert.Greater(t, q.SlippageBps, 0.0)
		prev = q.EffectivePrice
	}
}

func TestSingleTickSellWorsensWithSize(t *testing.T) {
	pool := testPool(t, 1000.0, "100000000000000000", 5) // 1e17
	m := SingleTickModel{}

	spot, err := pool.SpotPrice()
	require.NoError(t, err)

	prev := spot
	for _, in := range []float64{0.1, 0.5, 1, 2, 5} {
		q, err := m.Quote(pool, types.SideSellBase, in)
		require.NoError(t, err)
		assert.Less(t, q.EffectivePrice, spot, "sell fill must be below spot at size %v", in)
		assert.LessOrEqual(t, q.EffectivePrice, prev, "sell fill must not improve with size")
		prev = q.EffectivePrice
	}
}

func TestSingleTickRejectsExcessiveExcursion(t *testing.T) {
	// Thin pool: 1000 USDC in moves the price far beyond one tick's worth.
	pool := testPool(t, 1000.0, "100000000000000", 5) // 1e14
	m := SingleTickModel{MaxTickExcursion: 100}

	_, err := m.Quote(pool, types.SideBuyBase, 1000.0)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	_, err = m.Quote(pool, types.SideSellBase, 1.0)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestSingleTickRejectsInvalidInput(t *testing.T) {
	pool := testPool(t, 1000.0, "1000000000000000000", 5)
	m := SingleTickModel{}

	for _, in := range []float64{0, -1} {
		_, err := m.Quote(pool, types.SideBuyBase, in)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	}

	_, err := m.Quote(pool, "SIDEWAYS", 10)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	zero := pool
	zero.Liquidity = big.NewInt(0)
	_, err = m.Quote(zero, types.SideBuyBase, 10)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)
}

func TestSingleTickDeterministic(t *testing.T) {
	pool := testPool(t, 998.75, "100000000000000000", 30)
	m := SingleTickModel{}

	a, err := m.Quote(pool, types.SideBuyBase, 2500.0)
	require.NoError(t, err)
	b, err := m.Quote(pool, types.SideBuyBase, 2500.0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCoefficientModelImpact(t *testing.T) {
	pool := testPool(t, 1000.0, "1000000000000", 30) // 1e12
	m := CoefficientModel{Coefficient: 1.0}

	// 1000 USDC: inRaw 1e9 against L 1e12 gives a 10 bps modeled impact.
	q, err := m.Quote(pool, types.SideBuyBase, 1000.0)
	require.NoError(t, err)
	assert.InEpsilon(t, 1000.0/(1-0.003)*(1+0.001), q.EffectivePrice, 1e-9)

	// 1 WETH: inRaw 1e18 against L 1e12 is a fill-swallowing impact.
	capped := CoefficientModel{Coefficient: 1.0, MaxImpactBps: 50}
	_, err = capped.Quote(pool, types.SideSellBase, 1.0)
	assert.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	_, err = capped.Quote(pool, types.SideBuyBase, 1000.0)
	assert.NoError(t, err, "10 bps impact sits under a 50 bps cap")
}

func TestCoefficientModelRejectsInvalidInput(t *testing.T) {
	pool := testPool(t, 1000.0, "1000000000000", 30)
	m := CoefficientModel{Coefficient: 1.0}

	_, err := m.Quote(pool, types.SideBuyBase, -5)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = m.Quote(pool, "SIDEWAYS", 10)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
