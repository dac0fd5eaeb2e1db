// Package redisfeed publishes emitted opportunities to Redis: an append-only
// stream for consumers and a latest-value key for dashboards.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Ninjatosba/arbitrage-detector/internal/config"
	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

type Publisher struct {
	rdb       *redis.Client
	stream    string
	latestKey string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{
		rdb:       rdb,
		stream:    cfg.Redis.Stream,
		latestKey: cfg.Redis.LatestKey,
	}
}

func (p *Publisher) PublishOpportunity(ctx context.Context, opp types.Opportunity) error {
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"id":        opp.ID,
			"direction": string(opp.Direction),
			"size_usd":  opp.TradeSize,
			"gross_usd": opp.GrossPnL,
			"net_usd":   opp.NetPnL,
			"cex_px":    opp.CexPriceUsed,
			"dex_px":    opp.DexQuote.EffectivePrice,
			"gas_usd":   opp.GasUSD,
			"ts_ms":     opp.Ts.UnixMilli(),
		},
	}).Err(); err != nil {
		return fmt.Errorf("redisfeed: xadd: %w", err)
	}

	blob, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redisfeed: marshal: %w", err)
	}
	if err := p.rdb.Set(ctx, p.latestKey, blob, 0).Err(); err != nil {
		return fmt.Errorf("redisfeed: set latest: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.rdb.Close() }
