// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package broker

import "errors"

var (
	errNotConnected          = errors.New("not connected")
	errAlreadyConnected      = errors.New("already connected")
	errUnsupportedCommand    = errors.New("unsupported STOMP command")
	errInvalidHeader         = errors.New("invalid frame header")
	errInvalidFrame          = errors.New("invalid frame")
	errInvalidSendDest       = errors.New("invalid send destination")
	errInvalidSubscription   = errors.New("invalid subscription")
	errUnknownTransaction    = errors.New("unknown transaction")
	errAuthenticationFailure = errors.New("authentication failed")
)
