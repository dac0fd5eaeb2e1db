package univ3

import (
	"fmt"
	"math"

	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

// SlippageModel prices a swap of amountIn (human units of the input token)
// against a pool snapshot and reports the realized average fill. The LP fee is
// deducted from the input before the price moves, matching the pool's
// fee-on-input convention, so callers must not charge it again.
//
// Implementations must be pure: same inputs, same quote.
type SlippageModel interface {
	Quote(pool PoolState, side types.Side, amountIn float64) (types.TradeQuote, error)
}

// SingleTickModel walks the constant-product curve within the current tick's
// liquidity: token0 in moves sqrtP down, token1 in moves sqrtP up, amounts
// follow dx = L*d(1/sqrtP), dy = L*d(sqrtP). It does not cross tick
// boundaries; a swap whose price excursion exceeds MaxTickExcursion ticks is
// rejected as exceeding modeled depth.
type SingleTickModel struct {
	MaxTickExcursion float64
}

func (m SingleTickModel) Quote(pool PoolState, side types.Side, amountIn float64) (types.TradeQuote, error) {
	if amountIn <= 0 || math.IsNaN(amountIn) || math.IsInf(amountIn, 0) {
		return types.TradeQuote{}, fmt.Errorf("%w: amountIn must be finite and > 0", types.ErrInvalidInput)
	}
	if pool.FeeBps < 0 || pool.FeeBps >= 10000 {
		return types.TradeQuote{}, fmt.Errorf("%w: fee %.2f bps out of range", types.ErrInvalidInput, pool.FeeBps)
	}
	ratio, err := RawRatioFromSqrtX96(pool.SqrtPriceX96)
	if err != nil {
		return types.TradeQuote{}, err
	}
	sqrtStart := math.Sqrt(ratio)
	liq := bigToFloat(pool.Liquidity)
	if liq <= 0 {
		return types.TradeQuote{}, fmt.Errorf("%w: pool has no active liquidity", types.ErrInsufficientLiquidity)
	}
	spot, err := pool.SpotPrice()
	if err != nil {
		return types.TradeQuote{}, err
	}

	feeFrac := pool.FeeBps / 10000.0
	var sqrtEnd, amountOut float64

	switch side {
	case types.SideBuyBase:
		// quote (token0) in, base (token1) out; sqrtP decreases.
		inRaw := amountIn * math.Pow10(pool.Token0Decimals)
		effIn := inRaw * (1 - feeFrac)
		sqrtEnd = 1.0 / (1.0/sqrtStart + effIn/liq)
		outRaw := liq * (sqrtStart - sqrtEnd)
		amountOut = outRaw / math.Pow10(pool.Token1Decimals)
	case types.SideSellBase:
		// base (token1) in, quote (token0) out; sqrtP increases.
		inRaw := amountIn * math.Pow10(pool.Token1Decimals)
		effIn := inRaw * (1 - feeFrac)
		sqrtEnd = sqrtStart + effIn/liq
		outRaw := liq * (1.0/sqrtStart - 1.0/sqrtEnd)
		amountOut = outRaw / math.Pow10(pool.Token0Decimals)
	default:
		return types.TradeQuote{}, fmt.Errorf("%w: unknown side %q", types.ErrInvalidInput, side)
	}

	if sqrtEnd <= 0 || amountOut <= 0 {
		return types.TradeQuote{}, fmt.Errorf("%w: swap consumes the whole tick range", types.ErrInsufficientLiquidity)
	}
	if excursion := tickDistance(sqrtStart, sqrtEnd); excursion > m.maxExcursion() {
		return types.TradeQuote{}, fmt.Errorf("%w: price excursion %.1f ticks exceeds limit %.0f",
			types.ErrInsufficientLiquidity, excursion, m.maxExcursion())
	}

	eff := effectivePrice(side, amountIn, amountOut)
	return types.TradeQuote{
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		EffectivePrice: eff,
		FeeBpsApplied:  pool.FeeBps,
		SlippageBps:    slippageBps(side, eff, spot),
	}, nil
}

func (m SingleTickModel) maxExcursion() float64 {
	if m.MaxTickExcursion <= 0 {
		return 100
	}
	return m.MaxTickExcursion
}

// CoefficientModel is the cheap fallback: effective price deviates from spot
// by fee plus an impact term proportional to amountIn relative to in-range
// liquidity. Coefficient calibrates the raw-unit scale for the configured
// pool. Impact beyond MaxImpactBps is treated as exceeding modeled depth.
type CoefficientModel struct {
	Coefficient  float64
	MaxImpactBps float64
}

func (m CoefficientModel) Quote(pool PoolState, side types.Side, amountIn float64) (types.TradeQuote, error) {
	if amountIn <= 0 || math.IsNaN(amountIn) || math.IsInf(amountIn, 0) {
		return types.TradeQuote{}, fmt.Errorf("%w: amountIn must be finite and > 0", types.ErrInvalidInput)
	}
	if pool.FeeBps < 0 || pool.FeeBps >= 10000 {
		return types.TradeQuote{}, fmt.Errorf("%w: fee %.2f bps out of range", types.ErrInvalidInput, pool.FeeBps)
	}
	spot, err := pool.SpotPrice()
	if err != nil {
		return types.TradeQuote{}, err
	}
	liq := bigToFloat(pool.Liquidity)
	if liq <= 0 {
		return types.TradeQuote{}, fmt.Errorf("%w: pool has no active liquidity", types.ErrInsufficientLiquidity)
	}

	decIn := pool.Token0Decimals
	if side == types.SideSellBase {
		decIn = pool.Token1Decimals
	}
	impact := m.Coefficient * amountIn * math.Pow10(decIn) / liq
	if impactBps := impact * 10000; m.MaxImpactBps > 0 && impactBps > m.MaxImpactBps {
		return types.TradeQuote{}, fmt.Errorf("%w: modeled impact %.1f bps exceeds limit %.0f",
			types.ErrInsufficientLiquidity, impactBps, m.MaxImpactBps)
	}

	feeFrac := pool.FeeBps / 10000.0
	var eff, amountOut float64
	switch side {
	case types.SideBuyBase:
		eff = spot / (1 - feeFrac) * (1 + impact)
		amountOut = amountIn / eff
	case types.SideSellBase:
		eff = spot * (1 - feeFrac) * (1 - impact)
		if eff <= 0 {
			return types.TradeQuote{}, fmt.Errorf("%w: impact swallows the fill", types.ErrInsufficientLiquidity)
		}
		amountOut = amountIn * eff
	default:
		return types.TradeQuote{}, fmt.Errorf("%w: unknown side %q", types.ErrInvalidInput, side)
	}

	return types.TradeQuote{
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		EffectivePrice: eff,
		FeeBpsApplied:  pool.FeeBps,
		SlippageBps:    slippageBps(side, eff, spot),
	}, nil
}

// effectivePrice is always quote per one base, regardless of direction.
func effectivePrice(side types.Side, amountIn, amountOut float64) float64 {
	if side == types.SideBuyBase {
		return amountIn / amountOut
	}
	return amountOut / amountIn
}

// slippageBps is the unfavorable deviation of the fill from spot, in bps.
func slippageBps(side types.Side, eff, spot float64) float64 {
	if spot <= 0 {
		return 0
	}
	if side == types.SideBuyBase {
		return (eff/spot - 1) * 10000
	}
	return (1 - eff/spot) * 10000
}

// tickDistance converts a sqrt-price move into ticks: P = 1.0001^tick.
func tickDistance(sqrtStart, sqrtEnd float64) float64 {
	return math.Abs(2 * math.Log(sqrtEnd/sqrtStart) / math.Log(1.0001))
}
