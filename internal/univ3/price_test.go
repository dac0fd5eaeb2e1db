package univ3

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

func TestPriceRoundTrip(t *testing.T) {
	// USDC(6)/WETH(18) orientation as in the reference pool.
	prices := []float64{0.0001, 0.5, 1.0, 999.99, 1000.5, 4231.77, 1e6}
	for _, p := range prices {
		sqrt, err := SqrtX96FromPrice(p, 6, 18)
		require.NoError(t, err)

		back, err := PriceToken1InToken0(sqrt, 6, 18)
		require.NoError(t, err)
		assert.InEpsilon(t, p, back, 1e-9, "price %v did not round-trip", p)
	}
}

func TestPriceKnownValue(t *testing.T) {
	// sqrtPriceX96 == 2^96 means a raw ratio of exactly 1.
	one := new(big.Int).Lsh(big.NewInt(1), 96)

	p, err := PriceToken1InToken0(one, 6, 6)
	require.NoError(t, err)
	assert.InEpsilon(t, 1.0, p, 1e-12)

	// With 18/6 decimals the same ratio prices token1 at 10^-12 token0.
	p, err = PriceToken1InToken0(one, 18, 6)
	require.NoError(t, err)
	assert.InEpsilon(t, 1e-12, p, 1e-12)
}

func TestPriceInverseConsistency(t *testing.T) {
	sqrt, err := SqrtX96FromPrice(2000.0, 6, 18)
	require.NoError(t, err)

	p10, err := PriceToken1InToken0(sqrt, 6, 18)
	require.NoError(t, err)
	p01, err := PriceToken0InToken1(sqrt, 6, 18)
	require.NoError(t, err)
	assert.InEpsilon(t, 1.0, p10*p01, 1e-12)
}

func TestPriceDeterministic(t *testing.T) {
	sqrt, err := SqrtX96FromPrice(1234.56, 6, 18)
	require.NoError(t, err)

	a, err := PriceToken1InToken0(sqrt, 6, 18)
	require.NoError(t, err)
	b, err := PriceToken1InToken0(sqrt, 6, 18)
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical input must yield bit-identical output")
}

func TestPriceRejectsInvalidInput(t *testing.T) {
	_, err := PriceToken1InToken0(big.NewInt(0), 6, 18)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = PriceToken1InToken0(nil, 6, 18)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = RawRatioFromSqrtX96(big.NewInt(-5))
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = SqrtX96FromPrice(0, 6, 18)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = SqrtX96FromPrice(-12.5, 6, 18)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
