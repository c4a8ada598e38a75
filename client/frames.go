// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import (
	"github.com/pb33f/lasso/frame"
)

// Frame builders for each client command. These are the outbound
// counterparts of the wire grammar in the frame package; every client
// method funnels through one of them.

func connectFrame(login, passcode string) *frame.Frame {
	f := frame.MustNew(frame.CONNECT)
	if login != "" {
		f.Header.Add(frame.Login, login)
	}
	if passcode != "" {
		f.Header.Add(frame.Passcode, passcode)
	}
	return f
}

func disconnectFrame() *frame.Frame {
	return frame.MustNew(frame.DISCONNECT)
}

func sendFrame(destination string, body []byte, opts sendOptions) *frame.Frame {
	f := frame.MustNew(frame.SEND, frame.Destination, destination)
	if opts.transaction != "" {
		f.Header.Add(frame.Transaction, opts.transaction)
	}
	for i := 0; i+1 < len(opts.headers); i += 2 {
		f.Header.Add(opts.headers[i], opts.headers[i+1])
	}
	f.Body = body
	f.LengthFramed = true
	return f
}

func subscribeFrame(destination string, opts subscribeOptions) *frame.Frame {
	f := frame.MustNew(frame.SUBSCRIBE, frame.Destination, destination)
	if opts.ack != "" {
		f.Header.Add(frame.Ack, opts.ack)
	}
	if opts.id != "" {
		f.Header.Add(frame.Id, opts.id)
	}
	if opts.selector != "" {
		f.Header.Add(frame.Selector, opts.selector)
	}
	return f
}

func unsubscribeFrame(destination string) *frame.Frame {
	return frame.MustNew(frame.UNSUBSCRIBE, frame.Destination, destination)
}

func beginFrame(transaction string) *frame.Frame {
	return frame.MustNew(frame.BEGIN, frame.Transaction, transaction)
}

func commitFrame(transaction string) *frame.Frame {
	return frame.MustNew(frame.COMMIT, frame.Transaction, transaction)
}

func abortFrame(transaction string) *frame.Frame {
	return frame.MustNew(frame.ABORT, frame.Transaction, transaction)
}

func ackFrame(messageId, transaction string) *frame.Frame {
	f := frame.MustNew(frame.ACK, frame.MessageId, messageId)
	if transaction != "" {
		f.Header.Add(frame.Transaction, transaction)
	}
	return f
}

type sendOptions struct {
	transaction string
	receipt     string
	headers     []string
}

// SendOption customizes an outbound SEND frame.
type SendOption func(*sendOptions)

// WithTransaction stamps the SEND with a transaction identifier.
func WithTransaction(transaction string) SendOption {
	return func(o *sendOptions) {
		o.transaction = transaction
	}
}

// WithHeader adds an arbitrary header entry to the SEND frame.
func WithHeader(key, value string) SendOption {
	return func(o *sendOptions) {
		o.headers = append(o.headers, key, value)
	}
}

// WithReceipt sets an explicit receipt identifier. Only meaningful for
// SendWithReceipt; when omitted a UUID is generated.
func WithReceipt(receipt string) SendOption {
	return func(o *sendOptions) {
		o.receipt = receipt
	}
}

type subscribeOptions struct {
	ack      string
	id       string
	selector string
}

// SubscribeOption customizes an outbound SUBSCRIBE frame.
type SubscribeOption func(*subscribeOptions)

// WithAck sets the subscription acknowledgement mode (e.g. "client").
func WithAck(mode string) SubscribeOption {
	return func(o *subscribeOptions) {
		o.ack = mode
	}
}

// WithSubscriptionId sets an explicit subscription identifier that a
// later UNSUBSCRIBE can reference.
func WithSubscriptionId(id string) SubscribeOption {
	return func(o *subscribeOptions) {
		o.id = id
	}
}

// WithSelector sets a broker-side SQL-92 selector for content routing,
// where the broker supports one.
func WithSelector(selector string) SubscribeOption {
	return func(o *subscribeOptions) {
		o.selector = selector
	}
}
