package types

import "time"

type Direction string

const (
	// DEXBuyCEXSell: buy the base asset on the pool, sell it into the CEX best bid.
	DEXBuyCEXSell Direction = "DEX_BUY_CEX_SELL"
	// CEXBuyDEXSell: buy the base asset at the CEX best ask, sell it into the pool.
	CEXBuyDEXSell Direction = "CEX_BUY_DEX_SELL"
)

type Side string

const (
	// SideBuyBase: quote in, base out.
	SideBuyBase Side = "BUY_BASE"
	// SideSellBase: base in, quote out.
	SideSellBase Side = "SELL_BASE"
)

// TradeQuote is the result of pricing a single swap against the pool.
// Values are in human units; EffectivePrice is quote per one base.
type TradeQuote struct {
	AmountIn       float64
	AmountOut      float64
	EffectivePrice float64
	FeeBpsApplied  float64
	SlippageBps    float64
}

type Opportunity struct {
	ID           string
	Direction    Direction
	TradeSize    float64 // quote-currency notional used for sizing
	GrossPnL     float64
	NetPnL       float64
	DexQuote     TradeQuote
	CexPriceUsed float64
	GasUSD       float64
	Ts           time.Time
}
