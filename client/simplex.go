// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import (
	"github.com/pb33f/lasso/connection"
	"github.com/pb33f/lasso/frame"
	"github.com/pkg/errors"
)

// SimplexClient is a publish-only STOMP client. It runs no read loop,
// so it cannot observe anything the broker sends back: CONNECTED frames
// are not awaited, subscriptions are refused, and receipts are refused
// because there is no mechanism to see the reply. That makes it safe to
// use with a Fresh (per-worker) connection provider in multi-goroutine
// servers.
type SimplexClient struct {
	core
}

// NewSimplexClient creates a publish-only client for the given broker
// address, drawing its transport from the provider.
func NewSimplexClient(host string, port int, provider connection.Provider) *SimplexClient {
	return &SimplexClient{
		core: newCore(host, port, provider, "simplex-client"),
	}
}

// Connect sends a CONNECT frame with optional credentials. The
// CONNECTED reply is not read; this role trusts the broker session
// without tracking it.
func (c *SimplexClient) Connect(login, passcode string) error {
	return c.writeFrame(connectFrame(login, passcode))
}

// Disconnect sends DISCONNECT and closes the transport.
func (c *SimplexClient) Disconnect() error {
	if err := c.writeFrame(disconnectFrame()); err != nil {
		c.log.WithError(err).Debug("disconnect frame not delivered")
	}
	return c.conn.Disconnect()
}

// Send publishes a message to a destination. Requesting a receipt is
// rejected: with no read loop there is nothing to deliver it to.
func (c *SimplexClient) Send(destination string, body []byte, opts ...SendOption) error {
	var options sendOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.receipt != "" || headersContain(options.headers, frame.Receipt) {
		return errors.Wrap(ErrUnsupportedOperation, "simplex client cannot observe receipts")
	}

	return c.writeFrame(sendFrame(destination, body, options))
}

// Subscribe is not available for this role; there is no read loop to
// receive MESSAGE frames.
func (c *SimplexClient) Subscribe(destination string, opts ...SubscribeOption) error {
	return errors.Wrap(ErrUnsupportedOperation, "simplex client cannot subscribe")
}

// Unsubscribe is not available for this role.
func (c *SimplexClient) Unsubscribe(destination string) error {
	return errors.Wrap(ErrUnsupportedOperation, "simplex client cannot unsubscribe")
}

func headersContain(entries []string, key string) bool {
	for i := 0; i+1 < len(entries); i += 2 {
		if entries[i] == key {
			return true
		}
	}
	return false
}
