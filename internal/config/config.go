package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type CEXCfg struct {
	WsURL  string  `yaml:"ws_url"`
	Symbol string  `yaml:"symbol"`
	FeeBps float64 `yaml:"fee_bps"`
}

type ChainCfg struct {
	RPCHTTP     string `yaml:"rpc_http"`
	PoolAddress string `yaml:"pool_address"`
	// MulticallAddress enables batched pool reads; empty falls back to
	// one eth_call per view.
	MulticallAddress string  `yaml:"multicall_address"`
	RPCRateLimit     float64 `yaml:"rpc_rate_limit"` // calls per second
}

type DEXCfg struct {
	// FeeBps of 0 means "read fee() from the pool at startup".
	FeeBps           float64 `yaml:"fee_bps"`
	SlippageModel    string  `yaml:"slippage_model"` // single_tick | coefficient
	Coefficient      float64 `yaml:"coefficient"`
	MaxImpactBps     float64 `yaml:"max_impact_bps"`
	MaxTickExcursion float64 `yaml:"max_tick_excursion"`
}

type GasCfg struct {
	Units      float64 `yaml:"units"`
	Multiplier float64 `yaml:"multiplier"`
}

type RiskCfg struct {
	MinPnLUSD float64 `yaml:"min_pnl_usd"`
}

type TradeCfg struct {
	NotionalUSD  float64 `yaml:"notional_usd"`
	LadderSteps  int     `yaml:"ladder_steps"`
	LadderFactor float64 `yaml:"ladder_factor"`
}

type TimingsCfg struct {
	EvalTickMs      int `yaml:"eval_tick_ms"`
	PoolPollMs      int `yaml:"pool_poll_ms"`
	GasPollMs       int `yaml:"gas_poll_ms"`
	BookStaleMs     int `yaml:"book_stale_ms"`
	PoolStaleMs     int `yaml:"pool_stale_ms"`
	RPCTimeoutMs    int `yaml:"rpc_timeout_ms"`
	WSBackoffBaseMs int `yaml:"ws_backoff_base_ms"`
	WSBackoffMaxMs  int `yaml:"ws_backoff_max_ms"`
	WSSustainMs     int `yaml:"ws_sustain_ms"`
}

type MetricsCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type RedisCfg struct {
	Addr      string `yaml:"addr"` // empty disables the Redis sink
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Stream    string `yaml:"stream"`
	LatestKey string `yaml:"latest_key"`
}

type JournalCfg struct {
	Path string `yaml:"path"` // empty disables the sqlite journal
}

type Config struct {
	Pair string `yaml:"pair"`

	CEX     CEXCfg     `yaml:"cex"`
	Chain   ChainCfg   `yaml:"chain"`
	DEX     DEXCfg     `yaml:"dex"`
	Gas     GasCfg     `yaml:"gas"`
	Risk    RiskCfg    `yaml:"risk"`
	Trade   TradeCfg   `yaml:"trade"`
	Timings TimingsCfg `yaml:"timings"`
	Metrics MetricsCfg `yaml:"metrics"`
	Redis   RedisCfg   `yaml:"redis"`
	Journal JournalCfg `yaml:"journal"`
}

// Load reads the YAML config, overlays secrets from the environment (a .env
// file is honored when present) and applies defaults. Validation failures here
// are the only fatal error path in the program.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if v := os.Getenv("RPC_HTTP"); v != "" {
		c.Chain.RPCHTTP = v
	}
	if v := os.Getenv("CEX_WS_URL"); v != "" {
		c.CEX.WsURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.CEX.WsURL == "" {
		c.CEX.WsURL = "wss://stream.binance.com:9443/ws"
	}
	if c.DEX.SlippageModel == "" {
		c.DEX.SlippageModel = "single_tick"
	}
	if c.DEX.MaxTickExcursion == 0 {
		c.DEX.MaxTickExcursion = 100
	}
	if c.DEX.MaxImpactBps == 0 {
		c.DEX.MaxImpactBps = 200
	}
	if c.Chain.RPCRateLimit == 0 {
		c.Chain.RPCRateLimit = 10
	}
	if c.Gas.Units == 0 {
		c.Gas.Units = 350000
	}
	if c.Gas.Multiplier == 0 {
		c.Gas.Multiplier = 1.2
	}
	if c.Trade.NotionalUSD == 0 {
		c.Trade.NotionalUSD = 1000
	}
	if c.Trade.LadderSteps == 0 {
		c.Trade.LadderSteps = 4
	}
	if c.Trade.LadderFactor == 0 {
		c.Trade.LadderFactor = 2.0
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "opp:stream"
	}
	if c.Redis.LatestKey == "" {
		c.Redis.LatestKey = "opp:latest"
	}

	t := &c.Timings
	if t.EvalTickMs == 0 {
		t.EvalTickMs = 1000
	}
	if t.PoolPollMs == 0 {
		t.PoolPollMs = 5000
	}
	if t.GasPollMs == 0 {
		t.GasPollMs = 10000
	}
	if t.BookStaleMs == 0 {
		t.BookStaleMs = 3000
	}
	if t.PoolStaleMs == 0 {
		t.PoolStaleMs = 30000
	}
	if t.RPCTimeoutMs == 0 {
		t.RPCTimeoutMs = 4000
	}
	if t.WSBackoffBaseMs == 0 {
		t.WSBackoffBaseMs = 500
	}
	if t.WSBackoffMaxMs == 0 {
		t.WSBackoffMaxMs = 30000
	}
	if t.WSSustainMs == 0 {
		t.WSSustainMs = 60000
	}
}

func (c *Config) Validate() error {
	if c.Pair == "" {
		return fmt.Errorf("pair must be set")
	}
	if c.CEX.Symbol == "" {
		return fmt.Errorf("cex.symbol must be set")
	}
	if c.Chain.RPCHTTP == "" {
		return fmt.Errorf("chain.rpc_http must be set (config or RPC_HTTP env)")
	}
	if _, err := toChecksumAddress(c.Chain.PoolAddress); err != nil {
		return fmt.Errorf("chain.pool_address: %w", err)
	}
	if c.Chain.MulticallAddress != "" {
		if _, err := toChecksumAddress(c.Chain.MulticallAddress); err != nil {
			return fmt.Errorf("chain.multicall_address: %w", err)
		}
	}
	if c.CEX.FeeBps < 0 || c.DEX.FeeBps < 0 {
		return fmt.Errorf("fee bps must be non-negative")
	}
	if c.Gas.Units < 0 || c.Gas.Multiplier < 0 {
		return fmt.Errorf("gas settings must be non-negative")
	}
	if c.Risk.MinPnLUSD < 0 {
		return fmt.Errorf("risk.min_pnl_usd must be non-negative")
	}
	if c.Trade.NotionalUSD <= 0 {
		return fmt.Errorf("trade.notional_usd must be > 0")
	}
	if c.Trade.LadderSteps < 1 {
		return fmt.Errorf("trade.ladder_steps must be >= 1")
	}
	if c.Trade.LadderFactor <= 1 {
		return fmt.Errorf("trade.ladder_factor must be > 1")
	}
	switch c.DEX.SlippageModel {
	case "single_tick", "coefficient":
	default:
		return fmt.Errorf("dex.slippage_model must be single_tick or coefficient, got %q", c.DEX.SlippageModel)
	}
	if c.DEX.SlippageModel == "coefficient" && c.DEX.Coefficient <= 0 {
		return fmt.Errorf("dex.coefficient must be > 0 for the coefficient model")
	}
	return nil
}

func (c *Config) EvalTick() time.Duration      { return ms(c.Timings.EvalTickMs) }
func (c *Config) PoolPoll() time.Duration      { return ms(c.Timings.PoolPollMs) }
func (c *Config) GasPoll() time.Duration       { return ms(c.Timings.GasPollMs) }
func (c *Config) BookStale() time.Duration     { return ms(c.Timings.BookStaleMs) }
func (c *Config) PoolStale() time.Duration     { return ms(c.Timings.PoolStaleMs) }
func (c *Config) RPCTimeout() time.Duration    { return ms(c.Timings.RPCTimeoutMs) }
func (c *Config) WSBackoffBase() time.Duration { return ms(c.Timings.WSBackoffBaseMs) }
func (c *Config) WSBackoffMax() time.Duration  { return ms(c.Timings.WSBackoffMaxMs) }
func (c *Config) WSSustain() time.Duration     { return ms(c.Timings.WSSustainMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
