// Package feed consumes price ticks from an external market-data websocket
// and keeps the tick store current. The feed is an unreliable collaborator:
// the client reconnects with backoff and the rest of the system treats a
// silent feed as missing data, never as an error.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rustyeddy/botgate/market"
)

const (
	readTimeout      = 60 * time.Second
	reconnectMin     = time.Second
	reconnectMax     = 30 * time.Second
	handshakeTimeout = 10 * time.Second
)

// tickMessage is the wire format of one quote.
type tickMessage struct {
	Pair string  `json:"pair"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	TS   int64   `json:"ts"` // unix milliseconds
}

// Client maintains one websocket connection and pumps ticks into the store.
type Client struct {
	url    string
	source string
	store  *market.TickStore
	logger *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(url, source string, store *market.TickStore, logger *zap.Logger) *Client {
	return &Client{
		url:    url,
		source: source,
		store:  store,
		logger: logger.With(zap.String("component", "price_feed"), zap.String("source", source)),
	}
}

// Start launches the connect/read loop. It returns immediately; connection
// failures are retried in the background until ctx is cancelled or Close is
// called.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go c.run(ctx)
}

func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		<-c.done
	}
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	backoff := reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err == nil {
			healthy := c.readPump(ctx, conn)
			conn.Close()
			if healthy {
				backoff = reconnectMin
				continue
			}
			// The server accepted and dropped us before a single message;
			// re-dialing immediately would spin against it.
		} else {
			c.logger.Warn("feed connect failed", zap.Error(err), zap.Duration("retry_in", backoff))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	c.logger.Info("feed connected", zap.String("url", c.url))
	return conn, nil
}

// readPump drains messages until the connection breaks or ctx is cancelled.
// It reports whether at least one message arrived, so the caller can tell a
// working connection from one the server dropped straight away.
func (c *Client) readPump(ctx context.Context, conn *websocket.Conn) bool {
	// The watcher is scoped to this connection; connDone releases it when
	// the pump exits so reconnects don't accumulate goroutines.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-connDone:
		}
	}()

	healthy := false
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("feed read failed, reconnecting", zap.Error(err))
			}
			return healthy
		}
		healthy = true

		var msg tickMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Debug("dropping malformed tick", zap.Error(err))
			continue
		}
		if msg.Pair == "" || msg.Bid <= 0 || msg.Ask <= 0 {
			continue
		}

		c.store.Set(market.Tick{
			Pair:   msg.Pair,
			Bid:    msg.Bid,
			Ask:    msg.Ask,
			Time:   time.UnixMilli(msg.TS),
			Source: c.source,
		})
	}
}
