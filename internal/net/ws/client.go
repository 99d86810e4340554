package ws

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arena/internal/net/proto"
)

// Client is the player side of the socket. Send may be called from any
// goroutine; Read must be called from one.
type Client struct {
	conn  *websocket.Conn
	token string

	writeMu sync.Mutex
}

// Dial connects to endpoint (a ws:// or wss:// URL of the socket route) as
// the seat holding token.
func Dial(ctx context.Context, endpoint, token string) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse socket url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	conn.SetReadLimit(1 << 20)
	return &Client{conn: conn, token: token}, nil
}

// Send signs msg with the client's token and writes it.
func (c *Client) Send(msg proto.ClientMessage) error {
	data, err := proto.EncodeClientMessage(proto.SignedClientMessage{Token: c.token, Message: msg})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Read blocks for the next server message. Non-binary frames are skipped.
func (c *Client) Read() (proto.ServerMessage, error) {
	for {
		kind, payload, err := c.conn.ReadMessage()
		if err != nil {
			return proto.ServerMessage{}, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		return proto.DecodeServerMessage(payload)
	}
}

// Close sends a normal close frame and releases the socket.
func (c *Client) Close() error {
	c.writeMu.Lock()
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}
