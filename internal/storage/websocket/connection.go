package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/meridianops/voyagesim/pkg/streaming"
)

const (
	sendChSize   = 10_000
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

// connection owns the voyage stream's WebSocket. A single write goroutine
// drains sendCh; the read goroutine routes server acks to sendAndWait
// callers. When the link drops mid-voyage, reconnect re-dials and replays
// the start_voyage header so the server can re-associate the stream.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL  string
	secret string

	// start_voyage header, replayed after every reconnect.
	startMsg []byte

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// setStartMessage records the start_voyage header to replay on reconnect.
func (c *connection) setStartMessage(data []byte) {
	c.mu.Lock()
	c.startMsg = data
	c.mu.Unlock()
}

// clearStartMessage drops the header once the voyage has ended; a reconnect
// after end_voyage has nothing to resume.
func (c *connection) clearStartMessage() {
	c.setStartMessage(nil)
}

// dial connects to the WebSocket server and starts the read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop()
	go c.readLoop()

	return nil
}

// dialOnce performs a single dial. The server authenticates streams by a
// secret query param, not a header.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// current returns the live conn, or nil when disconnected.
func (c *connection) current() *ws.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// writeFrame writes one text frame under the write deadline.
func writeFrame(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop drains sendCh onto the wire. Only one writeLoop runs at a time;
// it hands off to reconnect on the first write error.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			conn := c.current()
			if conn == nil {
				continue
			}
			if err := writeFrame(conn, data); err != nil {
				c.logger.Warn("Voyage stream write failed", "error", err)
				go c.reconnect()
				return
			}
		}
	}
}

// readLoop routes server acks to ackCh. Anything that doesn't parse as an
// ack is noise from the server and is logged at debug, not fatal.
func (c *connection) readLoop() {
	for {
		conn := c.current()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("Voyage stream read failed", "error", err)
			go c.reconnect()
			return
		}
		c.routeAck(message)
	}
}

func (c *connection) routeAck(message []byte) {
	var ack streaming.AckMessage
	if err := json.Unmarshal(message, &ack); err != nil {
		c.logger.Debug("Non-ack message received", "raw", string(message))
		return
	}
	if ack.Type != "ack" {
		return
	}
	select {
	case c.ackCh <- ack:
	default:
		c.logger.Debug("Ack channel full, dropping", "for", ack.For)
	}
}

// reconnect re-establishes the stream with exponential backoff, replays the
// start_voyage header, and restarts the loops.
func (c *connection) reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		c.logger.Info("Reconnecting voyage stream", "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = nextBackoff(backoff)
			continue
		}

		if err := c.replayStart(conn); err != nil {
			c.logger.Warn("Failed to replay voyage header after reconnect", "error", err)
			_ = conn.Close()
			backoff = nextBackoff(backoff)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("Voyage stream reconnected", "attempt", attempt)
		go c.writeLoop()
		go c.readLoop()
		return
	}

	c.logger.Error("Voyage stream reconnect gave up", "maxAttempts", maxReconnect)
}

// replayStart resends the start_voyage header so the server knows which
// voyage the fresh connection continues.
func (c *connection) replayStart(conn *ws.Conn) error {
	c.mu.Lock()
	cached := c.startMsg
	c.mu.Unlock()

	if cached == nil {
		return nil
	}
	return writeFrame(conn, cached)
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// send queues data for the write loop. Non-blocking; a full queue drops the
// message rather than stalling the voyage.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("Voyage stream send queue full, dropping message")
	}
}

// sendAndWait sends data and blocks until the server acknowledges with a
// matching ack message or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
			// Not our ack, keep waiting.
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
