package cex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Ninjatosba/arbitrage-detector/internal/config"
	"github.com/Ninjatosba/arbitrage-detector/internal/metrics"
	"github.com/Ninjatosba/arbitrage-detector/internal/orderbook"
	"github.com/Ninjatosba/arbitrage-detector/internal/types"
)

// Feed connection lifecycle. Timeouts are treated the same as stream errors:
// both land in Backoff.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateSubscribed   State = "SUBSCRIBED"
	StateStreaming    State = "STREAMING"
	StateBackoff      State = "BACKOFF"
)

const readIdleTimeout = 90 * time.Second

// depthMsg is the exchange's partial depth push. Only the top level is
// consumed; deeper levels are parsed and ignored.
type depthMsg struct {
	LastUpdateID uint64      `json:"lastUpdateId"`
	Bids         [][2]string `json:"bids"`
	Asks         [][2]string `json:"asks"`
}

// Feed owns the websocket connection to the exchange depth stream and is the
// book's only writer. All transport failures stay inside Run; they never
// propagate to the evaluator.
type Feed struct {
	streamURL   string
	dialer      *websocket.Dialer
	log         *zap.Logger
	backoffBase time.Duration
	backoffMax  time.Duration
	sustain     time.Duration

	mu    sync.Mutex
	state State
}

func NewFeed(cfg *config.Config, log *zap.Logger) *Feed {
	base := strings.TrimRight(cfg.CEX.WsURL, "/")
	stream := fmt.Sprintf("%s/%s@depth5@100ms", base, strings.ToLower(cfg.CEX.Symbol))
	return &Feed{
		streamURL: stream,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
		log:         log,
		backoffBase: cfg.WSBackoffBase(),
		backoffMax:  cfg.WSBackoffMax(),
		sustain:     cfg.WSSustain(),
		state:       StateDisconnected,
	}
}

func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	prev := f.state
	f.state = s
	f.mu.Unlock()
	if prev != s {
		f.log.Debug("feed state", zap.String("from", string(prev)), zap.String("to", string(s)))
	}
}

// Run drives the reconnect loop until ctx is cancelled. The backoff delay
// doubles up to the ceiling and resets to the base after a sustained period
// of streaming.
func (f *Feed) Run(ctx context.Context, book *orderbook.Book) {
	delay := f.backoffBase
	for ctx.Err() == nil {
		f.setState(StateConnecting)
		metrics.FeedReconnects.Inc()

		conn, _, err := f.dialer.DialContext(ctx, f.streamURL, nil)
		if err != nil {
			f.log.Warn("feed connect failed", zap.String("url", f.streamURL), zap.Error(err))
		} else {
			// Handshake carries the subscription (it is encoded in the
			// stream path), so a successful dial means subscribed.
			f.setState(StateSubscribed)
			streamed := f.stream(ctx, conn, book)
			_ = conn.Close()
			if ctx.Err() != nil {
				f.setState(StateDisconnected)
				return
			}
			if streamed >= f.sustain {
				delay = f.backoffBase
			}
		}

		f.setState(StateBackoff)
		select {
		case <-ctx.Done():
			f.setState(StateDisconnected)
			return
		case <-time.After(delay):
		}
		delay = nextBackoff(delay, f.backoffMax)
	}
	f.setState(StateDisconnected)
}

// stream pumps depth messages into the book until the connection dies.
// Returns how long the feed spent in Streaming, for the backoff reset.
func (f *Feed) stream(ctx context.Context, conn *websocket.Conn, book *orderbook.Book) time.Duration {
	_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	conn.SetPingHandler(func(payload string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(5*time.Second))
	})

	// The reader goroutine lets us honor ctx cancellation while blocked in
	// ReadMessage; conn.Close unblocks it.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	var streamingSince time.Time
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			f.log.Warn("feed stream closed", zap.Error(err))
			if streamingSince.IsZero() {
				return 0
			}
			return time.Since(streamingSince)
		}
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))

		if msgType != websocket.TextMessage {
			continue
		}
		upd, err := parseDepth(data)
		if err != nil {
			f.log.Debug("feed message skipped", zap.Error(err))
			continue
		}
		if streamingSince.IsZero() {
			streamingSince = time.Now()
			f.setState(StateStreaming)
		}

		if err := book.ApplyUpdate(upd.Bid, upd.Ask, time.Now()); err != nil {
			if errors.Is(err, types.ErrCrossedBook) {
				metrics.CrossedBookRejects.Inc()
				f.log.Warn("crossed book update rejected",
					zap.Float64("bid", upd.Bid.Price), zap.Float64("ask", upd.Ask.Price))
			} else {
				f.log.Debug("book update rejected", zap.Error(err))
			}
			continue
		}
		metrics.CEXMid.Set(0.5 * (upd.Bid.Price + upd.Ask.Price))
	}
}

type depthUpdate struct {
	Bid orderbook.Level
	Ask orderbook.Level
}

// parseDepth decodes a partial depth message and extracts the top level.
func parseDepth(data []byte) (depthUpdate, error) {
	var msg depthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return depthUpdate{}, fmt.Errorf("depth json: %w", err)
	}
	if len(msg.Bids) == 0 || len(msg.Asks) == 0 {
		return depthUpdate{}, fmt.Errorf("depth message with empty side")
	}
	bid, err := parseLevel(msg.Bids[0])
	if err != nil {
		return depthUpdate{}, fmt.Errorf("bid: %w", err)
	}
	ask, err := parseLevel(msg.Asks[0])
	if err != nil {
		return depthUpdate{}, fmt.Errorf("ask: %w", err)
	}
	return depthUpdate{Bid: bid, Ask: ask}, nil
}

func parseLevel(raw [2]string) (orderbook.Level, error) {
	price, err := strconv.ParseFloat(raw[0], 64)
	if err != nil {
		return orderbook.Level{}, fmt.Errorf("price %q: %w", raw[0], err)
	}
	qty, err := strconv.ParseFloat(raw[1], 64)
	if err != nil {
		return orderbook.Level{}, fmt.Errorf("qty %q: %w", raw[1], err)
	}
	return orderbook.Level{Price: price, Qty: qty}, nil
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
