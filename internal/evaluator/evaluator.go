package evaluator

import (
	"errors"
	"math/big"
	"time"

	"github.com/Ninjatosba/arbitrage-detector/internal/config"
	"github.com/Ninjatosba/arbitrage-detector/internal/costs"
	"github.com/Ninjatosba/arbitrage-detector/internal/metrics"
	"github.com/Ninjatosba/arbitrage-detector/internal/orderbook"
	"github.com/Ninjatosba/arbitrage-detector/internal/types"
	"github.com/Ninjatosba/arbitrage-detector/internal/univ3"
	"go.uber.org/zap"
)

// Evaluator fuses the pool snapshot, the CEX top-of-book and the gas price
// into at most one opportunity per direction per tick. Evaluate is pure with
// respect to its inputs: no I/O, no randomness, bounded time.
type Evaluator struct {
	cfg   *config.Config
	model univ3.SlippageModel
	log   *zap.Logger
}

func New(cfg *config.Config, model univ3.SlippageModel, log *zap.Logger) *Evaluator {
	return &Evaluator{cfg: cfg, model: model, log: log}
}

// Evaluate returns zero, one or two opportunities for the given snapshots.
// Stale or missing inputs skip the affected direction; an empty result is the
// expected steady state, not an error.
func (e *Evaluator) Evaluate(pool univ3.PoolState, top orderbook.Top, gasWei *big.Int, now time.Time) []types.Opportunity {
	if now.Sub(pool.Ts) > e.cfg.PoolStale() {
		e.log.Debug("skipping tick: pool snapshot stale",
			zap.Time("pool_ts", pool.Ts), zap.Error(types.ErrStaleData))
		return nil
	}
	if top.Stale(now, e.cfg.BookStale()) {
		e.log.Debug("skipping tick: order book stale",
			zap.Time("book_ts", top.UpdatedAt), zap.Error(types.ErrStaleData))
		return nil
	}
	if gasWei == nil {
		e.log.Debug("skipping tick: no gas price yet")
		return nil
	}

	spot, err := pool.SpotPrice()
	if err != nil {
		e.log.Warn("pool snapshot unpriceable", zap.Error(err))
		return nil
	}
	gasUSD := costs.GasCostQuote(e.cfg.Gas.Units, gasWei, e.cfg.Gas.Multiplier, spot)
	metrics.DEXMid.Set(spot)
	metrics.GasUSD.Set(gasUSD)

	var opps []types.Opportunity
	if opp, ok := e.dexBuyCexSell(pool, top, gasUSD, now); ok {
		opps = append(opps, opp)
	}
	if opp, ok := e.cexBuyDexSell(pool, top, gasUSD, now); ok {
		opps = append(opps, opp)
	}
	return opps
}

// dexBuyCexSell: spend quote on the pool to buy base, sell the base into the
// CEX best bid.
func (e *Evaluator) dexBuyCexSell(pool univ3.PoolState, top orderbook.Top, gasUSD float64, now time.Time) (types.Opportunity, bool) {
	bid := top.Bid
	if bid.Price <= 0 || bid.Qty <= 0 {
		return types.Opportunity{}, false
	}

	var best types.Opportunity
	found := false
	for _, notional := range e.ladder() {
		q, err := e.model.Quote(pool, types.SideBuyBase, notional)
		if err != nil {
			if errors.Is(err, types.ErrInsufficientLiquidity) {
				break // larger sizes only dig deeper
			}
			e.log.Warn("dex quote failed", zap.Float64("notional", notional), zap.Error(err))
			return types.Opportunity{}, false
		}
		if q.AmountOut > top.MaxTradable(types.SideSellBase, bid.Price) {
			break // book can't absorb this much base
		}

		revenue := q.AmountOut * bid.Price
		gross := revenue - q.AmountIn
		net := gross - costs.CexFee(revenue, e.cfg.CEX.FeeBps) - gasUSD

		// Ladder is ascending, so >= breaks PnL ties toward the larger size.
		if !found || net >= best.NetPnL {
			found = true
			best = types.Opportunity{
				Direction:    types.DEXBuyCEXSell,
				TradeSize:    notional,
				GrossPnL:     gross,
				NetPnL:       net,
				DexQuote:     q,
				CexPriceUsed: bid.Price,
				GasUSD:       gasUSD,
				Ts:           now,
			}
		}
	}
	if !found || best.NetPnL <= e.cfg.Risk.MinPnLUSD {
		return types.Opportunity{}, false
	}
	return best, true
}

// cexBuyDexSell: buy base at the CEX best ask, sell it into the pool.
func (e *Evaluator) cexBuyDexSell(pool univ3.PoolState, top orderbook.Top, gasUSD float64, now time.Time) (types.Opportunity, bool) {
	ask := top.Ask
	if ask.Price <= 0 || ask.Qty <= 0 {
		return types.Opportunity{}, false
	}

	var best types.Opportunity
	found := false
	for _, notional := range e.ladder() {
		qtyBase := notional / ask.Price
		if qtyBase > top.MaxTradable(types.SideBuyBase, ask.Price) {
			break
		}
		q, err := e.model.Quote(pool, types.SideSellBase, qtyBase)
		if err != nil {
			if errors.Is(err, types.ErrInsufficientLiquidity) {
				break
			}
			e.log.Warn("dex quote failed", zap.Float64("qty_base", qtyBase), zap.Error(err))
			return types.Opportunity{}, false
		}

		gross := q.AmountOut - notional
		net := gross - costs.CexFee(notional, e.cfg.CEX.FeeBps) - gasUSD

		if !found || net >= best.NetPnL {
			found = true
			best = types.Opportunity{
				Direction:    types.CEXBuyDEXSell,
				TradeSize:    notional,
				GrossPnL:     gross,
				NetPnL:       net,
				DexQuote:     q,
				CexPriceUsed: ask.Price,
				GasUSD:       gasUSD,
				Ts:           now,
			}
		}
	}
	if !found || best.NetPnL <= e.cfg.Risk.MinPnLUSD {
		return types.Opportunity{}, false
	}
	return best, true
}

// ladder is the deterministic geometric sequence of quote notionals tried per
// direction. Both directions use the same sizes.
func (e *Evaluator) ladder() []float64 {
	out := make([]float64, 0, e.cfg.Trade.LadderSteps)
	n := e.cfg.Trade.NotionalUSD
	for i := 0; i < e.cfg.Trade.LadderSteps; i++ {
		out = append(out, n)
		n *= e.cfg.Trade.LadderFactor
	}
	return out
}
