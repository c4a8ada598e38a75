// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package connection

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketConnection carries STOMP frame bytes over a websocket, one
// websocket message per Send. Read returns whole websocket messages,
// which may hold partial frames or several frames; the frame buffer
// upstream does not care either way.
//
// Like TCPConnection, the socket is shared between a read loop and
// sender goroutines, so the socket and the pending read remainder are
// mutex guarded; the websocket read itself happens on a snapshot
// outside the lock.
type WebSocketConnection struct {
	url     string
	timeout time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	pending []byte

	log *logrus.Entry
}

// NewWebSocketConnection creates an unconnected websocket transport for
// the given broker host, port and endpoint path (e.g. "/fabric").
func NewWebSocketConnection(host string, port int, endpoint string, timeout time.Duration) *WebSocketConnection {
	url := fmt.Sprintf("ws://%s:%d%s", host, port, endpoint)
	return &WebSocketConnection{
		url:     url,
		timeout: timeout,
		log: logrus.WithFields(logrus.Fields{
			"component": "websocket-connection",
			"url":       url,
		}),
	}
}

// Connect performs the websocket handshake if no session is open.
func (c *WebSocketConnection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *WebSocketConnection) connectLocked() error {
	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return &ConnError{Op: "connect", Addr: c.url, Err: err}
	}

	c.log.Debug("websocket connected")
	c.conn = conn
	return nil
}

// Send writes data as a single text message, dialing first if needed.
func (c *WebSocketConnection) Send(data []byte) error {
	c.mu.Lock()
	if err := c.connectLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	conn := c.conn
	c.mu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.drop(conn)
		return &ConnError{Op: "send", Addr: c.url, Err: err}
	}
	return nil
}

// Read returns up to max bytes from the next websocket message. A
// message larger than max is returned across successive Reads.
func (c *WebSocketConnection) Read(max int) ([]byte, error) {
	c.mu.Lock()
	conn := c.conn
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if conn == nil {
		return nil, ErrNotConnected
	}

	if len(pending) == 0 {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				err == io.EOF || errors.Is(err, net.ErrClosed) {
				// the peer closed, or a concurrent Disconnect closed the
				// socket under us; either way the stream is over.
				return nil, nil
			}
			return nil, &ConnError{Op: "read", Addr: c.url, Err: err}
		}
		pending = data
	}

	if len(pending) <= max {
		return pending, nil
	}

	c.mu.Lock()
	c.pending = pending[max:]
	c.mu.Unlock()
	return pending[:max], nil
}

// Disconnect closes the websocket, if open. A read loop blocked on the
// socket wakes with end of stream.
func (c *WebSocketConnection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.pending = nil
	c.log.Debug("websocket disconnected")
	return err
}

// drop discards a failed socket unless a concurrent reconnect already
// replaced it.
func (c *WebSocketConnection) drop(failed *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	failed.Close()
	if c.conn == failed {
		c.conn = nil
	}
}
