package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arena/internal/net/proto"
	"arena/internal/telemetry"
)

var (
	// ErrConnectionClosed is returned by Send after Close.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when the peer falls too far behind.
	ErrSendBufferFull = errors.New("send buffer full")
)

const (
	defaultSendBuffer   = 64
	defaultWriteTimeout = 10 * time.Second
)

// Connection is the outbound half of a player's websocket. Frames are
// encoded on the caller's goroutine and written by a dedicated writer, so
// Send never blocks the tick.
type Connection struct {
	conn         *websocket.Conn
	metrics      telemetry.Metrics
	writeTimeout time.Duration

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func newConnection(conn *websocket.Conn, buffer int, writeTimeout time.Duration, metrics telemetry.Metrics) *Connection {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if metrics == nil {
		metrics = telemetry.WrapMetrics(nil)
	}
	c := &Connection{
		conn:         conn,
		metrics:      metrics,
		writeTimeout: writeTimeout,
		out:          make(chan []byte, buffer),
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send queues msg for the writer.
func (c *Connection) Send(msg proto.ServerMessage) error {
	data, err := proto.EncodeServerMessage(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.out <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the writer and closes the socket. It is safe to call twice.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				c.Close()
				return
			}
			c.metrics.Add(telemetry.MetricBytesSent, uint64(len(data)))
		}
	}
}
