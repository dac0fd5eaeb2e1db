package evaluator

import (
	"context"
	"time"

	"github.com/Ninjatosba/arbitrage-detector/internal/chain"
	"github.com/Ninjatosba/arbitrage-detector/internal/metrics"
	"github.com/Ninjatosba/arbitrage-detector/internal/orderbook"
	"github.com/Ninjatosba/arbitrage-detector/internal/types"
	"github.com/Ninjatosba/arbitrage-detector/internal/univ3"
	"go.uber.org/zap"
)

// Run ticks on its own cadence, independent of either feed, and evaluates the
// most recent snapshots. All computation happens on copies outside any lock.
func (e *Evaluator) Run(ctx context.Context, pool *univ3.StateHolder, book *orderbook.Book, gas *chain.GasHolder, out chan<- types.Opportunity) {
	t := time.NewTicker(e.cfg.EvalTick())
	defer t.Stop()

	var ticks uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ticks++

			ps, okPool := pool.Snapshot()
			top, okBook := book.Snapshot()
			gasWei, _ := gas.Snapshot()

			if !okPool || !okBook {
				if ticks%5 == 0 {
					e.log.Info("waiting for feeds",
						zap.Bool("pool_ready", okPool),
						zap.Bool("book_ready", okBook))
				}
				continue
			}

			opps := e.Evaluate(ps, top, gasWei, time.Now())
			if len(opps) == 0 {
				if ticks%5 == 0 {
					spot, _ := ps.SpotPrice()
					e.log.Debug("no opportunities above threshold",
						zap.Float64("dex_spot", spot),
						zap.Float64("bid", top.Bid.Price),
						zap.Float64("ask", top.Ask.Price))
				}
				continue
			}

			for _, opp := range opps {
				metrics.OpportunitiesFound.WithLabelValues(string(opp.Direction)).Inc()
				select {
				case out <- opp:
				default:
					e.log.Warn("opportunity channel full; dropping",
						zap.String("direction", string(opp.Direction)))
				}
			}
		}
	}
}
