// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pb33f/lasso/connection"
	"github.com/pb33f/lasso/frame"
	"github.com/pkg/errors"
)

const defaultReadBufferSize = 8192

// read loop states
const (
	idle int32 = iota
	listening
	stopped
)

// DuplexClient is a publish-and-subscribe STOMP client. A single
// dedicated goroutine runs Listen, reading the transport, feeding the
// frame buffer and routing each decoded frame to the delivery queue for
// its command:
//
//	CONNECTED → connected queue   (Connect blocks here)
//	RECEIPT   → receipt queue     (SendWithReceipt blocks here)
//	MESSAGE   → message queue     (only for subscribed destinations)
//	ERROR     → error queue
//
// All other methods may be called from any goroutine. Frames are
// delivered to each queue in stream order; there is no ordering
// guarantee across queues. When the read loop stops, every queue is
// closed so blocked callers wake with ErrListenerClosed instead of
// hanging.
type DuplexClient struct {
	core
	buffer *frame.Buffer
	subs   *subscriptionSet

	connectedQueue *deliveryQueue
	messageQueue   *deliveryQueue
	receiptQueue   *deliveryQueue
	errorQueue     *deliveryQueue

	state          int32
	shutdown       chan struct{}
	shutdownOnce   sync.Once
	closeOnce      sync.Once
	readBufferSize int
}

// NewDuplexClient creates a duplex client for the given broker address.
// The provider must hand the same Connection back on repeated Gets for
// this address (a shared Pool, not Fresh): the read loop and the
// senders have to share one session.
func NewDuplexClient(host string, port int, provider connection.Provider) *DuplexClient {
	return &DuplexClient{
		core:           newCore(host, port, provider, "duplex-client"),
		buffer:         frame.NewBuffer(),
		subs:           newSubscriptionSet(),
		connectedQueue: newDeliveryQueue(),
		messageQueue:   newDeliveryQueue(),
		receiptQueue:   newDeliveryQueue(),
		errorQueue:     newDeliveryQueue(),
		shutdown:       make(chan struct{}),
		readBufferSize: defaultReadBufferSize,
	}
}

// Listen runs the read loop until the stream ends, the context fires,
// Disconnect is called, or an unrecoverable error occurs. Run it on its
// own goroutine (an errgroup works well) before calling Connect. The
// returned error is nil for every deliberate stop; a non-nil error is
// what killed the loop, surfaced here so a supervisor can observe it.
// On exit all four delivery queues are closed and the frame buffer is
// reset.
//
// A DuplexClient is one-shot: once its loop has stopped the queues are
// closed for good, so a second Listen is refused with ErrListenerClosed
// rather than running a loop nothing can consume. Reconnect by building
// a new client.
func (c *DuplexClient) Listen(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&c.state, idle, listening) {
		if atomic.LoadInt32(&c.state) == stopped {
			return errors.Wrap(ErrListenerClosed, "listener cannot be restarted")
		}
		return errors.Wrap(ErrUnsupportedOperation, "listener already running")
	}

	defer func() {
		atomic.StoreInt32(&c.state, stopped)
		c.buffer.Reset()
		c.closeQueues()
	}()

	if err := c.conn.Connect(); err != nil {
		return errors.Wrap(err, "listener could not open transport")
	}

	c.log.Debug("listener loop running")
	for {
		if c.stopRequested(ctx) {
			return nil
		}

		data, err := c.conn.Read(c.readBufferSize)
		if err != nil {
			if c.stopRequested(ctx) {
				// the transport error is a side effect of shutdown
				return nil
			}
			return errors.Wrap(err, "listener read failed")
		}
		if data == nil {
			c.log.Debug("end of stream, listener exiting")
			return nil
		}

		c.buffer.Append(data)
		frames, frameErr := c.buffer.Drain()
		for _, f := range frames {
			c.dispatch(f)
		}
		if frameErr != nil {
			// bytes that survived resync failed to parse; a peer
			// encoder defect, not a recoverable condition.
			return errors.Wrap(frameErr, "malformed frame on stream")
		}
	}
}

// Listening reports whether the read loop is currently running.
func (c *DuplexClient) Listening() bool {
	return atomic.LoadInt32(&c.state) == listening
}

func (c *DuplexClient) stopRequested(ctx context.Context) bool {
	select {
	case <-c.shutdown:
		return true
	default:
	}
	return ctx.Err() != nil
}

func (c *DuplexClient) dispatch(f *frame.Frame) {
	switch f.Command {
	case frame.RECEIPT:
		c.receiptQueue.Push(f)

	case frame.MESSAGE:
		destination := f.Header.Get(frame.Destination)
		if c.subs.Matches(destination) {
			c.messageQueue.Push(f)
		} else {
			// stale or duplicate server state, dropped by design
			c.log.WithField("destination", destination).
				Debug("dropping message for unsubscribed destination")
		}

	case frame.ERROR:
		c.errorQueue.Push(f)

	case frame.CONNECTED:
		c.connectedQueue.Push(f)

	default:
		c.log.WithField("command", f.Command).Debug("dropping unexpected frame")
	}
}

func (c *DuplexClient) closeQueues() {
	c.closeOnce.Do(func() {
		c.connectedQueue.Close()
		c.messageQueue.Close()
		c.receiptQueue.Close()
		c.errorQueue.Close()
	})
}

// Connect sends a CONNECT frame with optional credentials and blocks
// until the broker's CONNECTED frame arrives. The read loop must
// already be running, otherwise nothing can observe the reply and this
// fails fast with ErrNotListening.
func (c *DuplexClient) Connect(ctx context.Context, login, passcode string) (*frame.Frame, error) {
	if !c.Listening() {
		return nil, errors.Wrap(ErrNotListening, "connect cannot await CONNECTED")
	}

	if err := c.writeFrame(connectFrame(login, passcode)); err != nil {
		return nil, err
	}
	return c.connectedQueue.Pop(ctx)
}

// Subscribe sends a SUBSCRIBE frame and, once the send succeeds, adds
// the destination to the local filter set. A MESSAGE racing the
// SUBSCRIBE may arrive before the set is updated and be dropped; that
// window is accepted rather than filing frames under a subscription
// that might still fail to send. The destination may be a glob pattern
// for local filtering; the broker receives it verbatim.
func (c *DuplexClient) Subscribe(destination string, opts ...SubscribeOption) error {
	var options subscribeOptions
	for _, opt := range opts {
		opt(&options)
	}

	if err := c.writeFrame(subscribeFrame(destination, options)); err != nil {
		return err
	}
	c.subs.Add(destination)
	c.log.WithField("destination", destination).Debug("subscribed")
	return nil
}

// Unsubscribe sends an UNSUBSCRIBE frame and removes the destination
// from the local filter set.
func (c *DuplexClient) Unsubscribe(destination string) error {
	if err := c.writeFrame(unsubscribeFrame(destination)); err != nil {
		return err
	}
	c.subs.Remove(destination)
	c.log.WithField("destination", destination).Debug("unsubscribed")
	return nil
}

// Subscriptions returns the destinations currently in the filter set.
func (c *DuplexClient) Subscriptions() []string {
	return c.subs.Snapshot()
}

// Send publishes a message to a destination and returns as soon as the
// write completes. Requesting a receipt here is rejected; use
// SendWithReceipt, which can block for the reply.
func (c *DuplexClient) Send(destination string, body []byte, opts ...SendOption) error {
	var options sendOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.receipt != "" || headersContain(options.headers, frame.Receipt) {
		return errors.Wrap(ErrUnsupportedOperation, "use SendWithReceipt to request a receipt")
	}

	return c.writeFrame(sendFrame(destination, body, options))
}

// SendWithReceipt publishes a message with a receipt header and blocks
// until a RECEIPT frame arrives, returning it. When no explicit receipt
// id is supplied via WithReceipt, a UUID is generated.
//
// Correlation is by queue order only: the first RECEIPT to arrive
// answers the oldest waiter, regardless of its receipt-id. With a
// single sender in flight at a time this is exact; concurrent senders
// can observe each other's receipts. This matches the legacy protocol
// usage and is a documented limitation, not a bug.
func (c *DuplexClient) SendWithReceipt(ctx context.Context, destination string, body []byte, opts ...SendOption) (*frame.Frame, error) {
	if !c.Listening() {
		return nil, errors.Wrap(ErrNotListening, "receipt requested but nothing can deliver it")
	}

	var options sendOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.receipt == "" {
		options.receipt = uuid.New().String()
	}

	f := sendFrame(destination, body, options)
	f.Header.Set(frame.Receipt, options.receipt)

	if err := c.writeFrame(f); err != nil {
		return nil, err
	}
	return c.receiptQueue.Pop(ctx)
}

// NextMessage blocks until a MESSAGE frame for a subscribed destination
// is available and returns it.
func (c *DuplexClient) NextMessage(ctx context.Context) (*frame.Frame, error) {
	return c.messageQueue.Pop(ctx)
}

// NextError blocks until an ERROR frame is available and returns it.
func (c *DuplexClient) NextError(ctx context.Context) (*frame.Frame, error) {
	return c.errorQueue.Pop(ctx)
}

// Disconnect unsubscribes from every subscribed destination (iterating
// a snapshot, since unsubscribe mutates the set), sends DISCONNECT,
// stops the read loop and closes the transport. Queues are closed so
// any blocked waiters wake with ErrListenerClosed.
func (c *DuplexClient) Disconnect() error {
	for _, destination := range c.subs.Snapshot() {
		if err := c.Unsubscribe(destination); err != nil {
			c.log.WithError(err).WithField("destination", destination).
				Warn("unsubscribe during disconnect failed")
		}
	}

	sendErr := c.writeFrame(disconnectFrame())

	c.shutdownOnce.Do(func() {
		close(c.shutdown)
	})

	connErr := c.conn.Disconnect()
	c.closeQueues()

	if sendErr != nil {
		return sendErr
	}
	return connErr
}
