// Package costs holds the fee and gas calculators. The DEX LP fee is NOT here:
// it is folded into the slippage quote's effective price, so charging it again
// would double-count.
package costs

import (
	"math/big"
)

// CexFee returns the exchange taker fee on a quote-currency notional.
// feeBps of zero is valid and yields zero.
func CexFee(amount, feeBps float64) float64 {
	if amount <= 0 || feeBps <= 0 {
		return 0
	}
	return amount * feeBps / 10000.0
}

// GasCostQuote converts a gas budget to quote currency:
// gasUnits * gasPriceWei * multiplier, wei -> native coin -> quote at midPrice.
// midPrice is the current quote-per-base price of the pool's base asset, which
// doubles as the native coin for the reference WETH deployment.
func GasCostQuote(gasUnits float64, gasPriceWei *big.Int, multiplier, midPrice float64) float64 {
	if gasPriceWei == nil || gasPriceWei.Sign() <= 0 || gasUnits <= 0 || midPrice <= 0 {
		return 0
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	perUnit := new(big.Float).SetInt(gasPriceWei)
	perUnit.Quo(perUnit, big.NewFloat(1e18))
	ethPerGas, _ := perUnit.Float64()
	return ethPerGas * gasUnits * multiplier * midPrice
}
