package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ninjatosba/arbitrage-detector/internal/config"
	"github.com/Ninjatosba/arbitrage-detector/internal/metrics"
	"github.com/Ninjatosba/arbitrage-detector/internal/univ3"
)

// GasHolder is the single-writer cell for the latest suggested gas price.
type GasHolder struct {
	mu  sync.RWMutex
	wei *big.Int
	ts  time.Time
}

func NewGasHolder() *GasHolder { return &GasHolder{} }

func (h *GasHolder) Set(wei *big.Int, ts time.Time) {
	h.mu.Lock()
	h.wei = wei
	h.ts = ts
	h.mu.Unlock()
}

// Snapshot returns nil until the first successful read.
func (h *GasHolder) Snapshot() (*big.Int, time.Time) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.wei, h.ts
}

// RunPoolPoller refreshes the pool snapshot on a fixed interval. There is no
// backoff state machine here: a failed poll logs, bumps a counter and keeps
// the last good snapshot in place until the staleness gate retires it.
func RunPoolPoller(ctx context.Context, cfg *config.Config, r *Reader, meta PoolMeta, feeBps float64, holder *univ3.StateHolder, log *zap.Logger) {
	t := time.NewTicker(cfg.PoolPoll())
	defer t.Stop()

	refresh := func() {
		callCtx, cancel := context.WithTimeout(ctx, cfg.RPCTimeout())
		defer cancel()

		sqrtPriceX96, tick, liq, err := r.PoolSync(callCtx)
		if err != nil {
			metrics.PoolPollErrors.Inc()
			log.Warn("pool poll failed, keeping last snapshot", zap.Error(err))
			return
		}
		holder.Set(univ3.PoolState{
			SqrtPriceX96:   sqrtPriceX96,
			Liquidity:      liq,
			Tick:           tick,
			FeeBps:         feeBps,
			Token0Decimals: meta.Token0Decimals,
			Token1Decimals: meta.Token1Decimals,
			Ts:             time.Now(),
		})
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			refresh()
		}
	}
}

// RunGasPoller refreshes the suggested gas price on its own interval.
func RunGasPoller(ctx context.Context, cfg *config.Config, r *Reader, holder *GasHolder, log *zap.Logger) {
	t := time.NewTicker(cfg.GasPoll())
	defer t.Stop()

	refresh := func() {
		callCtx, cancel := context.WithTimeout(ctx, cfg.RPCTimeout())
		defer cancel()
		gp, err := r.GasPrice(callCtx)
		if err != nil {
			log.Warn("gas poll failed, keeping last price", zap.Error(err))
			return
		}
		holder.Set(gp, time.Now())
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			refresh()
		}
	}
}
