package univ3

import (
	"fmt"
	"math"
	"math/big"

	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

// Q96 price helpers. slot0.sqrtPriceX96 encodes sqrt(token1/token0) in raw
// token units, scaled by 2^96. Squaring a uint160 needs up to 320 bits, so all
// intermediates run on big.Float with 256-bit mantissas and the final division
// happens before the only rounding step.

const q96Prec = 256

var twoPow96 = new(big.Float).SetPrec(q96Prec).SetMantExp(big.NewFloat(1), 96)

// RawRatioFromSqrtX96 returns token1_raw/token0_raw at the current price.
func RawRatioFromSqrtX96(sqrtPriceX96 *big.Int) (float64, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0, fmt.Errorf("%w: sqrtPriceX96 must be > 0", types.ErrInvalidInput)
	}
	f := new(big.Float).SetPrec(q96Prec).SetInt(sqrtPriceX96)
	f.Mul(f, f)
	den := new(big.Float).SetPrec(q96Prec).SetMantExp(big.NewFloat(1), 192)
	f.Quo(f, den)
	out, _ := f.Float64()
	return out, nil
}

// PriceToken1InToken0 converts sqrtPriceX96 to the human price of one token1
// unit denominated in token0 (e.g. USDC per WETH when token0 is USDC).
func PriceToken1InToken0(sqrtPriceX96 *big.Int, token0Decimals, token1Decimals int) (float64, error) {
	ratio, err := RawRatioFromSqrtX96(sqrtPriceX96)
	if err != nil {
		return 0, err
	}
	if ratio == 0 {
		return 0, fmt.Errorf("%w: zero raw ratio", types.ErrInvalidInput)
	}
	return (1.0 / ratio) * math.Pow10(token1Decimals-token0Decimals), nil
}

// PriceToken0InToken1 is the inverse conversion.
func PriceToken0InToken1(sqrtPriceX96 *big.Int, token0Decimals, token1Decimals int) (float64, error) {
	p, err := PriceToken1InToken0(sqrtPriceX96, token0Decimals, token1Decimals)
	if err != nil {
		return 0, err
	}
	return 1.0 / p, nil
}

// SqrtX96FromPrice builds a sqrtPriceX96 for a human token1-in-token0 price.
// Used on the test/tooling side; the forward conversion above round-trips it
// within one ulp.
func SqrtX96FromPrice(price float64, token0Decimals, token1Decimals int) (*big.Int, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("%w: price must be finite and > 0", types.ErrInvalidInput)
	}
	// ratio_raw = 10^(dec1-dec0) / price
	num := new(big.Float).SetPrec(q96Prec).SetFloat64(math.Pow10(token1Decimals - token0Decimals))
	ratio := new(big.Float).SetPrec(q96Prec).Quo(num, new(big.Float).SetPrec(q96Prec).SetFloat64(price))
	sqrt := new(big.Float).SetPrec(q96Prec).Sqrt(ratio)
	sqrt.Mul(sqrt, twoPow96)
	out, _ := sqrt.Int(nil)
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price underflows Q96", types.ErrInvalidInput)
	}
	return out, nil
}

func bigToFloat(x *big.Int) float64 {
	if x == nil {
		return 0
	}
	out, _ := new(big.Float).SetInt(x).Float64()
	return out
}
