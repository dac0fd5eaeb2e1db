package orderbook

import (
	"fmt"
	"sync"
	"time"

	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

type Level struct {
	Price float64
	Qty   float64
}

// Top is an immutable snapshot of the best bid/ask. Both sides are always
// present in a valid snapshot; Book.Snapshot reports false until the first
// accepted update.
type Top struct {
	Bid       Level
	Ask       Level
	UpdatedAt time.Time
}

// MaxTradable reports how much base quantity can be filled at or better than
// priceLimit. Only top-of-book depth is tracked today, so the answer is the
// displayed quantity of the relevant side or zero.
func (t Top) MaxTradable(side types.Side, priceLimit float64) float64 {
	switch side {
	case types.SideBuyBase: // lifting the ask
		if t.Ask.Price <= priceLimit {
			return t.Ask.Qty
		}
	case types.SideSellBase: // hitting the bid
		if t.Bid.Price >= priceLimit {
			return t.Bid.Qty
		}
	}
	return 0
}

// Stale reports whether the snapshot is older than maxAge at time now.
func (t Top) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(t.UpdatedAt) > maxAge
}

// Book is the shared top-of-book cell: written only by the feed-ingest
// goroutine, read by the evaluator. Updates replace the whole record under a
// short lock; readers get copies and never observe a half-written pair.
type Book struct {
	mu  sync.RWMutex
	top Top
	ok  bool
}

func NewBook() *Book { return &Book{} }

// ApplyUpdate atomically replaces both sides. A crossed or locked book
// (bid >= ask) is a transient feed glitch: the update is rejected with
// ErrCrossedBook and the prior snapshot stays in place.
func (b *Book) ApplyUpdate(bid, ask Level, ts time.Time) error {
	if bid.Price <= 0 || ask.Price <= 0 || bid.Qty < 0 || ask.Qty < 0 {
		return fmt.Errorf("%w: bid %.8f ask %.8f", types.ErrInvalidInput, bid.Price, ask.Price)
	}
	if bid.Price >= ask.Price {
		return fmt.Errorf("%w: bid %.8f >= ask %.8f", types.ErrCrossedBook, bid.Price, ask.Price)
	}
	b.mu.Lock()
	b.top = Top{Bid: bid, Ask: ask, UpdatedAt: ts}
	b.ok = true
	b.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the latest top and whether one exists yet.
func (b *Book) Snapshot() (Top, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.top, b.ok
}
