// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import (
	"testing"

	"github.com/pb33f/lasso/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimplexForTest() (*SimplexClient, *mockConnection) {
	conn := newMockConnection()
	return NewSimplexClient("localhost", 61613, &mockProvider{conn: conn}), conn
}

// TestSimplexConnect verifies the fire-and-forget CONNECT: credentials
// go on the wire, no reply is awaited.
func TestSimplexConnect(t *testing.T) {
	c, conn := newSimplexForTest()

	require.NoError(t, c.Connect("guest", "secret"))

	sent := conn.sentFrames()
	require.Len(t, sent, 1)
	assert.Equal(t, frame.CONNECT, sent[0].Command)
	assert.Equal(t, "guest", sent[0].Header.Get(frame.Login))
	assert.Equal(t, "secret", sent[0].Header.Get(frame.Passcode))
}

// TestSimplexConnectAnonymous verifies empty credentials produce no
// login headers at all.
func TestSimplexConnectAnonymous(t *testing.T) {
	c, conn := newSimplexForTest()

	require.NoError(t, c.Connect("", ""))

	sent := conn.sentFrames()
	require.Len(t, sent, 1)
	_, hasLogin := sent[0].Header.Contains(frame.Login)
	_, hasPasscode := sent[0].Header.Contains(frame.Passcode)
	assert.False(t, hasLogin)
	assert.False(t, hasPasscode)
}

// TestSimplexSend verifies the SEND frame shape: destination, custom
// headers, transaction and a content-length framed body.
func TestSimplexSend(t *testing.T) {
	c, conn := newSimplexForTest()

	err := c.Send("/queue/a", []byte("hello"),
		WithTransaction("tx-1"),
		WithHeader("priority", "9"))
	require.NoError(t, err)

	sent := conn.sentFrames()
	require.Len(t, sent, 1)
	f := sent[0]
	assert.Equal(t, frame.SEND, f.Command)
	assert.Equal(t, "/queue/a", f.Header.Get(frame.Destination))
	assert.Equal(t, "tx-1", f.Header.Get(frame.Transaction))
	assert.Equal(t, "9", f.Header.Get("priority"))
	assert.Equal(t, "5", f.Header.Get(frame.ContentLength))
	assert.Equal(t, []byte("hello"), f.Body)
}

// TestSimplexSendRejectsReceipt verifies receipts are refused on a
// client with no way to observe the reply.
func TestSimplexSendRejectsReceipt(t *testing.T) {
	c, conn := newSimplexForTest()

	err := c.Send("/queue/a", []byte("x"), WithReceipt("r-1"))
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	err = c.Send("/queue/a", []byte("x"), WithHeader(frame.Receipt, "r-1"))
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	assert.Empty(t, conn.sentFrames())
}

// TestSimplexSubscribeUnsupported verifies both subscription operations
// are refused for the send-only role.
func TestSimplexSubscribeUnsupported(t *testing.T) {
	c, conn := newSimplexForTest()

	assert.ErrorIs(t, c.Subscribe("/queue/a"), ErrUnsupportedOperation)
	assert.ErrorIs(t, c.Unsubscribe("/queue/a"), ErrUnsupportedOperation)
	assert.Empty(t, conn.sentFrames())
}

// TestSimplexDisconnect verifies DISCONNECT goes out and the transport
// is torn down.
func TestSimplexDisconnect(t *testing.T) {
	c, conn := newSimplexForTest()

	require.NoError(t, c.Disconnect())

	sent := conn.sentFrames()
	require.Len(t, sent, 1)
	assert.Equal(t, frame.DISCONNECT, sent[0].Command)
	assert.Equal(t, 1, conn.disconnectCalls)
}
