package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ninjatosba/arbitrage-detector/internal/cex"
	"github.com/Ninjatosba/arbitrage-detector/internal/chain"
	"github.com/Ninjatosba/arbitrage-detector/internal/config"
	"github.com/Ninjatosba/arbitrage-detector/internal/evaluator"
	"github.com/Ninjatosba/arbitrage-detector/internal/journal"
	"github.com/Ninjatosba/arbitrage-detector/internal/orderbook"
	"github.com/Ninjatosba/arbitrage-detector/internal/redisfeed"
	"github.com/Ninjatosba/arbitrage-detector/internal/types"
	"github.com/Ninjatosba/arbitrage-detector/internal/univ3"
)

// App wires the feeds, pollers, evaluator and sinks together and manages
// their shared lifecycle.
type App struct {
	cfg *config.Config
	log *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *App {
	return &App{cfg: cfg, log: log}
}

func (a *App) Run(ctx context.Context) error {
	reader, err := chain.NewReader(a.cfg.Chain.RPCHTTP, a.cfg.Chain.PoolAddress,
		a.cfg.Chain.MulticallAddress, a.cfg.Chain.RPCRateLimit, a.log)
	if err != nil {
		return err
	}

	metaCtx, cancel := context.WithTimeout(ctx, a.cfg.RPCTimeout())
	meta, err := reader.Meta(metaCtx)
	cancel()
	if err != nil {
		return err
	}
	feeBps := a.cfg.DEX.FeeBps
	if feeBps == 0 {
		feeBps = meta.FeeBps
		a.log.Info("using LP fee from chain", zap.Float64("fee_bps", feeBps))
	}

	book := orderbook.NewBook()
	poolHolder := univ3.NewStateHolder()
	gasHolder := chain.NewGasHolder()

	go chain.RunPoolPoller(ctx, a.cfg, reader, meta, feeBps, poolHolder, a.log.Named("pool"))
	go chain.RunGasPoller(ctx, a.cfg, reader, gasHolder, a.log.Named("gas"))

	feed := cex.NewFeed(a.cfg, a.log.Named("cex"))
	go feed.Run(ctx, book)

	oppCh := make(chan types.Opportunity, 64)
	eval := evaluator.New(a.cfg, a.slippageModel(), a.log.Named("eval"))
	go eval.Run(ctx, poolHolder, book, gasHolder, oppCh)

	a.log.Info("arbitrage detector started",
		zap.String("pair", a.cfg.Pair),
		zap.String("pool", a.cfg.Chain.PoolAddress),
		zap.String("slippage_model", a.cfg.DEX.SlippageModel),
		zap.Float64("dex_fee_bps", feeBps),
		zap.Float64("cex_fee_bps", a.cfg.CEX.FeeBps),
	)

	a.runSinks(ctx, oppCh)
	return nil
}

func (a *App) slippageModel() univ3.SlippageModel {
	if a.cfg.DEX.SlippageModel == "coefficient" {
		return univ3.CoefficientModel{
			Coefficient:  a.cfg.DEX.Coefficient,
			MaxImpactBps: a.cfg.DEX.MaxImpactBps,
		}
	}
	return univ3.SingleTickModel{MaxTickExcursion: a.cfg.DEX.MaxTickExcursion}
}

// runSinks consumes opportunities until shutdown: every record is logged,
// optionally journaled to sqlite and published to Redis. Sink failures are
// logged and never stop the loop.
func (a *App) runSinks(ctx context.Context, in <-chan types.Opportunity) {
	var jnl *journal.Journal
	if a.cfg.Journal.Path != "" {
		var err error
		jnl, err = journal.Open(a.cfg.Journal.Path)
		if err != nil {
			a.log.Error("journal disabled", zap.Error(err))
		} else {
			defer jnl.Close()
		}
	}

	var pub *redisfeed.Publisher
	if a.cfg.Redis.Addr != "" {
		pub = redisfeed.NewPublisher(a.cfg)
		defer pub.Close()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case opp := <-in:
			opp.ID = uuid.NewString()
			a.log.Info("opportunity",
				zap.String("id", opp.ID),
				zap.String("direction", string(opp.Direction)),
				zap.Float64("size_usd", opp.TradeSize),
				zap.Float64("gross_usd", opp.GrossPnL),
				zap.Float64("net_usd", opp.NetPnL),
				zap.Float64("cex_px", opp.CexPriceUsed),
				zap.Float64("dex_px", opp.DexQuote.EffectivePrice),
				zap.Float64("dex_slip_bps", opp.DexQuote.SlippageBps),
				zap.Float64("gas_usd", opp.GasUSD),
				zap.Time("ts", opp.Ts),
			)
			if jnl != nil {
				if err := jnl.Record(ctx, opp); err != nil {
					a.log.Warn("journal write failed", zap.Error(err))
				}
			}
			if pub != nil {
				pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				if err := pub.PublishOpportunity(pubCtx, opp); err != nil {
					a.log.Warn("redis publish failed", zap.Error(err))
				}
				cancel()
			}
		}
	}
}

// NewLogger builds the process-wide structured logger.
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg.Build()
}
