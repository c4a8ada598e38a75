// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

// Package client provides the STOMP client roles: a send-only
// SimplexClient, and a DuplexClient that runs a background read loop
// and routes inbound frames to per-command delivery queues.
package client

import (
	"github.com/pb33f/lasso/connection"
	"github.com/pb33f/lasso/frame"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// core carries the state and send machinery shared by both client
// roles: the broker address, the transport handed out by the Provider,
// and the reconnect-once retry policy.
type core struct {
	host string
	port int
	conn connection.Connection
	log  *logrus.Entry
}

func newCore(host string, port int, provider connection.Provider, role string) core {
	return core{
		host: host,
		port: port,
		conn: provider.Get(host, port),
		log: logrus.WithFields(logrus.Fields{
			"component": role,
			"host":      host,
			"port":      port,
		}),
	}
}

// writeFrame encodes and sends a frame. A transport-level failure gets
// exactly one retry on a freshly established session; any second
// failure, and every non-transport error, propagates to the caller.
func (c *core) writeFrame(f *frame.Frame) error {
	data := frame.Marshal(f)

	err := c.conn.Send(data)
	if err == nil {
		return nil
	}
	if !connection.IsConnError(err) {
		return err
	}

	c.log.WithError(err).Debug("send failed, reconnecting for one retry")
	c.conn.Disconnect()
	if retryErr := c.conn.Send(data); retryErr != nil {
		return errors.Wrapf(retryErr, "send failed after reconnect (first failure: %v)", err)
	}
	return nil
}

// Begin opens a broker transaction with the given identifier.
func (c *core) Begin(transaction string) error {
	return c.writeFrame(beginFrame(transaction))
}

// Commit commits the given broker transaction.
func (c *core) Commit(transaction string) error {
	return c.writeFrame(commitFrame(transaction))
}

// Abort rolls the given broker transaction back.
func (c *core) Abort(transaction string) error {
	return c.writeFrame(abortFrame(transaction))
}

// Ack acknowledges receipt of a message, optionally inside a
// transaction (pass "" for none).
func (c *core) Ack(messageId, transaction string) error {
	return c.writeFrame(ackFrame(messageId, transaction))
}
