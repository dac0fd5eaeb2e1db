package chain

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum" // CallMsg
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Ninjatosba/arbitrage-detector/internal/metrics"
	"github.com/Ninjatosba/arbitrage-detector/internal/multicall"
)

// Minimal pool ABI: slot0 for the price, liquidity for depth, fee and tokens
// for startup metadata.
const poolABI = `[
  {"inputs":[],"name":"slot0","outputs":[
     {"internalType":"uint160","name":"sqrtPriceX96","type":"uint160"},
     {"internalType":"int24","name":"tick","type":"int24"},
     {"internalType":"uint16","name":"observationIndex","type":"uint16"},
     {"internalType":"uint16","name":"observationCardinality","type":"uint16"},
     {"internalType":"uint16","name":"observationCardinalityNext","type":"uint16"},
     {"internalType":"uint8","name":"feeProtocol","type":"uint8"},
     {"internalType":"bool","name":"unlocked","type":"bool"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[],"name":"liquidity","outputs":[{"internalType":"uint128","name":"","type":"uint128"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"fee","outputs":[{"internalType":"uint24","name":"","type":"uint24"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token1","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const erc20ABI = `[
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// Reader owns the RPC connection to one Uniswap V3 pool. All calls go through
// a shared rate limiter so pollers can't stampede the endpoint.
type Reader struct {
	ec      *ethclient.Client
	pabi    abi.ABI
	eabi    abi.ABI
	pool    common.Address
	mc      *multicall.Caller // nil when no aggregator is configured
	limiter *rate.Limiter
	log     *zap.Logger
}

type PoolMeta struct {
	Token0         common.Address
	Token1         common.Address
	Token0Decimals int
	Token1Decimals int
	FeeBps         float64
}

func NewReader(rpcURL, poolHex, multicallHex string, callsPerSec float64, log *zap.Logger) (*Reader, error) {
	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	pabi, err := abi.JSON(strings.NewReader(poolABI))
	if err != nil {
		return nil, fmt.Errorf("pool abi: %w", err)
	}
	eabi, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("erc20 abi: %w", err)
	}
	var mc *multicall.Caller
	if multicallHex != "" {
		if mc, err = multicall.New(ec, common.HexToAddress(multicallHex)); err != nil {
			return nil, err
		}
	}
	if callsPerSec <= 0 {
		callsPerSec = 10
	}
	return &Reader{
		ec:      ec,
		pabi:    pabi,
		eabi:    eabi,
		pool:    common.HexToAddress(poolHex),
		mc:      mc,
		limiter: rate.NewLimiter(rate.Limit(callsPerSec), int(math.Ceil(callsPerSec))),
		log:     log,
	}, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, a abi.ABI, method string) ([]interface{}, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	input, err := a.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	start := time.Now()
	res, err := r.ec.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	metrics.RPCLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	outs, err := a.Methods[method].Outputs.Unpack(res)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("empty %s output", method)
	}
	return outs, nil
}

// Meta reads the pool's static facts once at startup: token addresses, their
// decimals and the LP fee. fee() returns hundredths of a bip (500 = 5 bps).
func (r *Reader) Meta(ctx context.Context) (PoolMeta, error) {
	var m PoolMeta

	outs, err := r.call(ctx, r.pool, r.pabi, "token0")
	if err != nil {
		return m, err
	}
	m.Token0 = outs[0].(common.Address)

	outs, err = r.call(ctx, r.pool, r.pabi, "token1")
	if err != nil {
		return m, err
	}
	m.Token1 = outs[0].(common.Address)

	if m.Token0Decimals, err = r.erc20Decimals(ctx, m.Token0); err != nil {
		return m, err
	}
	if m.Token1Decimals, err = r.erc20Decimals(ctx, m.Token1); err != nil {
		return m, err
	}

	outs, err = r.call(ctx, r.pool, r.pabi, "fee")
	if err != nil {
		return m, err
	}
	switch v := outs[0].(type) {
	case *big.Int:
		m.FeeBps = float64(v.Int64()) / 100.0
	case uint32:
		m.FeeBps = float64(v) / 100.0
	default:
		return m, fmt.Errorf("unexpected fee type %T", v)
	}

	r.log.Info("pool metadata",
		zap.String("pool", r.pool.Hex()),
		zap.String("token0", m.Token0.Hex()),
		zap.String("token1", m.Token1.Hex()),
		zap.Int("dec0", m.Token0Decimals),
		zap.Int("dec1", m.Token1Decimals),
		zap.Float64("fee_bps", m.FeeBps),
	)
	return m, nil
}

// Slot0 returns the current sqrtPriceX96 and tick.
func (r *Reader) Slot0(ctx context.Context) (*big.Int, int32, error) {
	outs, err := r.call(ctx, r.pool, r.pabi, "slot0")
	if err != nil {
		return nil, 0, err
	}
	return decodeSlot0(outs)
}

// Liquidity returns the in-range liquidity L.
func (r *Reader) Liquidity(ctx context.Context) (*big.Int, error) {
	outs, err := r.call(ctx, r.pool, r.pabi, "liquidity")
	if err != nil {
		return nil, err
	}
	return decodeLiquidity(outs)
}

// PoolSync reads sqrtPriceX96, tick and liquidity. With an aggregator
// configured both views come back from a single eth_call against the same
// block; without one they are read back to back and may straddle a block.
func (r *Reader) PoolSync(ctx context.Context) (*big.Int, int32, *big.Int, error) {
	if r.mc == nil {
		sqrtPriceX96, tick, err := r.Slot0(ctx)
		if err != nil {
			return nil, 0, nil, err
		}
		liq, err := r.Liquidity(ctx)
		if err != nil {
			return nil, 0, nil, err
		}
		return sqrtPriceX96, tick, liq, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, 0, nil, err
	}
	slot0Data, err := r.pabi.Pack("slot0")
	if err != nil {
		return nil, 0, nil, fmt.Errorf("pack slot0: %w", err)
	}
	liqData, err := r.pabi.Pack("liquidity")
	if err != nil {
		return nil, 0, nil, fmt.Errorf("pack liquidity: %w", err)
	}

	start := time.Now()
	rets, err := r.mc.Aggregate(ctx, []multicall.Call{
		{Target: r.pool, CallData: slot0Data},
		{Target: r.pool, CallData: liqData},
	})
	metrics.RPCLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, 0, nil, err
	}

	slotOuts, err := r.pabi.Methods["slot0"].Outputs.Unpack(rets[0])
	if err != nil {
		return nil, 0, nil, fmt.Errorf("decode slot0: %w", err)
	}
	sqrtPriceX96, tick, err := decodeSlot0(slotOuts)
	if err != nil {
		return nil, 0, nil, err
	}
	liqOuts, err := r.pabi.Methods["liquidity"].Outputs.Unpack(rets[1])
	if err != nil {
		return nil, 0, nil, fmt.Errorf("decode liquidity: %w", err)
	}
	liq, err := decodeLiquidity(liqOuts)
	if err != nil {
		return nil, 0, nil, err
	}
	return sqrtPriceX96, tick, liq, nil
}

func decodeSlot0(outs []interface{}) (*big.Int, int32, error) {
	if len(outs) < 2 {
		return nil, 0, fmt.Errorf("slot0 returned %d values", len(outs))
	}
	sqrtPriceX96, ok := outs[0].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected sqrtPriceX96 type %T", outs[0])
	}
	tickBI, ok := outs[1].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected tick type %T", outs[1])
	}
	ti := tickBI.Int64()
	if ti > math.MaxInt32 || ti < math.MinInt32 {
		return nil, 0, fmt.Errorf("tick out of int32 range: %d", ti)
	}
	return sqrtPriceX96, int32(ti), nil
}

func decodeLiquidity(outs []interface{}) (*big.Int, error) {
	if len(outs) == 0 {
		return nil, fmt.Errorf("empty liquidity output")
	}
	liq, ok := outs[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected liquidity type %T", outs[0])
	}
	return liq, nil
}

// GasPrice asks the node for the current suggested gas price in wei.
func (r *Reader) GasPrice(ctx context.Context) (*big.Int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	gp, err := r.ec.SuggestGasPrice(ctx)
	metrics.RPCLatency.Observe(time.Since(start).Seconds())
	return gp, err
}

func (r *Reader) erc20Decimals(ctx context.Context, token common.Address) (int, error) {
	outs, err := r.call(ctx, token, r.eabi, "decimals")
	if err != nil {
		return 0, err
	}
	switch v := outs[0].(type) {
	case uint8:
		return int(v), nil
	case *big.Int:
		return int(v.Int64()), nil
	default:
		return 0, fmt.Errorf("unexpected decimals type %T", v)
	}
}
