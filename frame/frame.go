// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

// Package frame implements the STOMP v1.0 wire format: the Frame value
// type, encoding and decoding, and a streaming Buffer that extracts
// complete frames from a chunked byte stream.
package frame

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidCommand is returned when a frame carries a command that
	// is not part of the STOMP command set.
	ErrInvalidCommand = errors.New("invalid STOMP command")

	// ErrInvalidFormat is returned when frame content that passed the
	// resync check cannot be parsed: a header line with no colon, a
	// missing header/body separator, or a bad content-length value.
	ErrInvalidFormat = errors.New("invalid frame format")
)

// A Frame represents a single STOMP message: a command, an ordered set
// of header entries and an optional body. Frames are handed off by
// value between the codec, the delivery queues and the caller; nothing
// mutates a frame once it crosses the send/receive boundary.
type Frame struct {
	Command string
	Header  *Header
	Body    []byte

	// LengthFramed selects content-length framing on encode. Decoding
	// sets it when the wire frame carried a content-length header.
	// Length framing is required for bodies containing NUL bytes; the
	// legacy terminator-delimited form cannot represent them.
	LengthFramed bool
}

// New creates a frame with the specified command and header entries.
// The entries are key/value alternating, as in NewHeader. An
// unrecognized command is a construction error, not a silent acceptance.
func New(command string, headers ...string) (*Frame, error) {
	if !ValidCommand(command) {
		return nil, errors.Wrapf(ErrInvalidCommand, "%q", command)
	}
	return &Frame{Command: command, Header: NewHeader(headers...)}, nil
}

// MustNew is New for commands known valid at compile time; it panics on
// an invalid command.
func MustNew(command string, headers ...string) *Frame {
	f, err := New(command, headers...)
	if err != nil {
		panic(err)
	}
	return f
}

// Clone returns a deep copy of the frame, its header and its body.
func (f *Frame) Clone() *Frame {
	fc := &Frame{Command: f.Command, LengthFramed: f.LengthFramed}
	if f.Header != nil {
		fc.Header = f.Header.Clone()
	}
	if f.Body != nil {
		fc.Body = make([]byte, len(f.Body))
		copy(fc.Body, f.Body)
	}
	return fc
}
