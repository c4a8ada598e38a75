// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import "errors"

var (
	// ErrUnsupportedOperation is returned when a client role is asked
	// to do something it structurally cannot, such as a simplex client
	// subscribing or requesting a receipt.
	ErrUnsupportedOperation = errors.New("operation not supported by this client role")

	// ErrNotListening is returned when an operation needs the read loop
	// to be running and it is not. Failing fast here beats deadlocking
	// on a queue no loop will ever fill.
	ErrNotListening = errors.New("listener loop is not running")

	// ErrListenerClosed wakes callers blocked on a delivery queue when
	// the read loop stops; without it a waiter would hang forever.
	ErrListenerClosed = errors.New("listener loop has stopped")
)
