// Package wsfeed records ticks from a WebSocket price feed.
package wsfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Options configures a Client.
type Options struct {
	Subscribe     []byte        // sent as a text frame after every (re)connect; optional
	DialTimeout   time.Duration // per dial attempt
	MaxReconnects int           // reconnect attempts after an unexpected read error
	RetryDelay    time.Duration // base delay between reconnect attempts
}

// Client handles the WebSocket connection to the feed and decodes frames
// into ticks.
type Client struct {
	url    string
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	deadline time.Time
	closed   bool
}

// NewClient creates a new WebSocket client with the given URL and logger.
func NewClient(url string, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Client{url: url, opts: opts, logger: logger}
}

// Connect establishes the WebSocket connection and sends the subscription
// message. It does not start reading.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return net.ErrClosed
	}
	c.conn = conn
	if !c.deadline.IsZero() {
		_ = c.conn.SetReadDeadline(c.deadline)
	}
	c.logger.Info("WebSocket connected", zap.String("url", c.url))
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}

	if len(c.opts.Subscribe) > 0 {
		if err := conn.WriteMessage(websocket.TextMessage, c.opts.Subscribe); err != nil {
			conn.Close()
			return nil, fmt.Errorf("websocket subscribe failed: %w", err)
		}
	}
	return conn, nil
}

// SetDeadline bounds every future read; reconnects keep it.
func (c *Client) SetDeadline(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	if c.conn != nil {
		_ = c.conn.SetReadDeadline(t)
	}
}

// ReadTicks blocks for the next frame and returns the ticks it carries (maybe
// none). It returns io.EOF when the server closes the stream normally, the
// deadline passes, or the client is closed. Unexpected read errors trigger
// up to MaxReconnects reconnect attempts.
func (c *Client) ReadTicks(ctx context.Context) ([]Tick, error) {
	attempts := 0
	for {
		c.mu.Lock()
		conn, closed := c.conn, c.closed
		c.mu.Unlock()
		if closed || conn == nil {
			return nil, io.EOF
		}

		_, frame, err := conn.ReadMessage()
		if err == nil {
			ticks, err := DecodeFrame(frame)
			if err != nil {
				c.logger.Warn("failed to decode frame", zap.Error(err))
				return nil, nil
			}
			return ticks, nil
		}

		if c.finished(err) {
			return nil, io.EOF
		}

		c.logger.Error("WebSocket read error", zap.Error(err))
		if attempts >= c.opts.MaxReconnects {
			return nil, fmt.Errorf("websocket read: %w", err)
		}
		attempts++

		if err := c.sleep(ctx, time.Duration(attempts)*c.opts.RetryDelay); err != nil {
			return nil, io.EOF
		}
		if err := c.reconnect(ctx); err != nil {
			c.logger.Warn("Retrying reconnect...", zap.Int("attempt", attempts), zap.Error(err))
			continue
		}
		c.logger.Info("Reconnected successfully", zap.Int("attempt", attempts))
	}
}

// finished reports whether err ends the capture rather than the connection.
func (c *Client) finished(err error) bool {
	c.mu.Lock()
	closed := c.closed
	deadline := c.deadline
	c.mu.Unlock()

	if closed {
		return true
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && !deadline.IsZero() && !time.Now().Before(deadline) {
		return true
	}
	return false
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()
	if !deadline.IsZero() && time.Now().Add(d).After(deadline) {
		return errors.New("capture window over")
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	newConn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		newConn.Close()
		return net.ErrClosed
	}
	// Close the old connection if it exists
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = newConn
	if !c.deadline.IsZero() {
		_ = c.conn.SetReadDeadline(c.deadline)
	}
	return nil
}

// Close sends a close frame (best effort) and closes the connection. Safe to
// call more than once and concurrently with ReadTicks.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
