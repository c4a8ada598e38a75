// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

// Package broker provides a small in-process STOMP broker, used by the
// dev-broker CLI mode and the client integration tests. It speaks the
// same wire grammar as the clients: CONNECT, SEND, SUBSCRIBE,
// UNSUBSCRIBE, DISCONNECT, the transaction commands and receipts.
package broker

import (
	"net"

	"github.com/pb33f/lasso/frame"
	"github.com/pkg/errors"
)

const readChunkSize = 4096

// RawConnection is a server-side framed transport: one decoded frame
// per read, one encoded frame per write. Implementations exist for
// plain TCP sockets and websockets.
type RawConnection interface {
	// ReadFrame blocks until one complete frame arrives.
	ReadFrame() (*frame.Frame, error)

	// WriteFrame encodes and sends a single frame.
	WriteFrame(f *frame.Frame) error

	// RemoteAddr returns the peer's address.
	RemoteAddr() string

	// Close tears the transport down.
	Close() error
}

// Listener accepts raw framed connections for the broker.
type Listener interface {
	// Accept blocks until a new RawConnection is established.
	Accept() (RawConnection, error)

	// Addr returns the address the listener is bound to, useful when
	// listening on port 0.
	Addr() string

	// Close stops the listener.
	Close() error
}

// tcpRawConnection adapts a TCP socket into a framed transport by
// pulling complete frames through a frame buffer.
type tcpRawConnection struct {
	conn   net.Conn
	buffer *frame.Buffer
}

func (c *tcpRawConnection) ReadFrame() (*frame.Frame, error) {
	for {
		f, err := c.buffer.Next()
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}

		chunk := make([]byte, readChunkSize)
		n, err := c.conn.Read(chunk)
		if n > 0 {
			c.buffer.Append(chunk[:n])
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

func (c *tcpRawConnection) WriteFrame(f *frame.Frame) error {
	_, err := c.conn.Write(frame.Marshal(f))
	return err
}

func (c *tcpRawConnection) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *tcpRawConnection) Close() error {
	return c.conn.Close()
}

type tcpListener struct {
	listener net.Listener
}

// NewTCPListener binds a TCP listener for the broker on addr. Pass
// "127.0.0.1:0" to bind an ephemeral port and recover it from Addr.
func NewTCPListener(addr string) (Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to bind broker listener on %s", addr)
	}
	return &tcpListener{listener: l}, nil
}

func (l *tcpListener) Accept() (RawConnection, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	return &tcpRawConnection{conn: conn, buffer: frame.NewBuffer()}, nil
}

func (l *tcpListener) Addr() string {
	return l.listener.Addr().String()
}

func (l *tcpListener) Close() error {
	return l.listener.Close()
}
