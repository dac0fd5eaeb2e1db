package univ3

import (
	"math/big"
	"sync"
	"time"
)

// PoolState is an immutable-per-snapshot view of the pool. The chain poller
// builds a fully new value on every successful read and installs it wholesale;
// nothing mutates the big.Ints after installation.
type PoolState struct {
	SqrtPriceX96   *big.Int
	Liquidity      *big.Int
	Tick           int32
	FeeBps         float64 // LP fee in basis points (Uniswap fee() / 100)
	Token0Decimals int
	Token1Decimals int
	Ts             time.Time
}

// SpotPrice returns the human price of token1 in token0.
func (p PoolState) SpotPrice() (float64, error) {
	return PriceToken1InToken0(p.SqrtPriceX96, p.Token0Decimals, p.Token1Decimals)
}

// StateHolder is the single-writer/multi-reader slot for the latest PoolState.
// The poller is the only writer; the evaluator reads copies. A failed poll
// keeps the previous snapshot in place.
type StateHolder struct {
	mu  sync.RWMutex
	cur PoolState
	ok  bool
}

func NewStateHolder() *StateHolder { return &StateHolder{} }

func (h *StateHolder) Set(s PoolState) {
	h.mu.Lock()
	h.cur = s
	h.ok = true
	h.mu.Unlock()
}

// Snapshot returns the latest state and whether one has been installed yet.
func (h *StateHolder) Snapshot() (PoolState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur, h.ok
}
