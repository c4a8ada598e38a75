// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package frame

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// A Buffer smooths over a transport that delivers partial frames, or
// several frames in a single read. Bytes are fed in with Append and
// complete frames pulled off the front with Next; incomplete trailing
// bytes stay buffered until more data arrives.
//
// The buffer heuristically recovers from stream corruption: when the
// bytes at the front do not start with a recognized command, everything
// up to and including the next terminator byte is discarded, since that
// is the most plausible frame boundary. A single misparsed frame
// therefore cannot wedge the parser forever.
//
// A Buffer is owned by a single reader goroutine; it is not safe for
// concurrent use.
type Buffer struct {
	buf []byte
	log *logrus.Entry
}

// NewBuffer creates an empty frame buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		log: logrus.WithField("component", "frame-buffer"),
	}
}

// Append adds raw bytes to the buffer. No parsing happens here.
func (b *Buffer) Append(data []byte) {
	b.buf = append(b.buf, data...)
}

// Len returns the number of buffered bytes not yet consumed.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Empty reports whether the buffer holds no bytes.
func (b *Buffer) Empty() bool {
	return len(b.buf) == 0
}

// Reset discards all buffered bytes. Called on disconnect so a stale
// partial frame never bleeds into the next session.
func (b *Buffer) Reset() {
	b.buf = nil
}

// Next pulls one complete frame off the front of the buffer. It returns
// (nil, nil) when the buffer does not yet hold a complete frame; the
// caller should append more data and try again. A non-nil error means
// bytes that passed the resync check failed to parse, which indicates a
// peer encoder bug rather than a recoverable condition; the offending
// span has already been consumed.
func (b *Buffer) Next() (*Frame, error) {
	b.sync()

	total, ok := b.findFrameBounds()
	if !ok {
		return nil, nil
	}

	span := b.buf[:total]
	b.buf = b.buf[total:]
	return Unmarshal(span)
}

// Drain repeatedly calls Next and returns every complete frame
// currently buffered, in stream order. This is how a read loop consumes
// all the frames delivered by a single socket read.
func (b *Buffer) Drain() ([]*Frame, error) {
	var frames []*Frame
	for {
		f, err := b.Next()
		if err != nil {
			return frames, err
		}
		if f == nil {
			return frames, nil
		}
		frames = append(frames, f)
	}
}

// sync detects and corrects corruption at the front of the buffer.
// The buffer is corrupt when it contains at least one newline and the
// text before the first newline is not a STOMP command. Bytes are then
// flushed up to and including the first terminator byte, the most
// likely frame boundary; if no terminator exists the whole buffer is
// cleared, since the real boundary cannot be recovered. The pass
// repeats until the buffer starts with a command, holds no newline yet
// (not enough data to judge), or is empty. Feeding sync an already
// valid buffer leaves it unchanged.
func (b *Buffer) sync() {
	for {
		// leading newlines are heart-beats or the stray trailing \n some
		// legacy encoders emit after the terminator; skip them rather
		// than treating them as corruption.
		for len(b.buf) > 0 && (b.buf[0] == newline || b.buf[0] == cr) {
			b.buf = b.buf[1:]
		}

		if len(b.buf) == 0 {
			return
		}

		i := bytes.IndexByte(b.buf, newline)
		if i < 0 {
			// no newline yet, cannot judge; assume the bytes are the
			// start of a valid frame and wait for more.
			return
		}

		if ValidCommand(string(trimCR(b.buf[:i]))) {
			return
		}

		j := bytes.IndexByte(b.buf, terminator)
		if j < 0 {
			b.log.Debug("corrupt buffer with no frame boundary, discarding entirely")
			b.buf = nil
			return
		}

		b.log.WithField("discarded", j+1).Debug("resynchronizing corrupt buffer")
		b.buf = b.buf[j+1:]
	}
}

// findFrameBounds reports the byte length of the first complete frame
// in the buffer, including its terminator. ok is false when the buffer
// does not yet contain a complete frame.
func (b *Buffer) findFrameBounds() (total int, ok bool) {
	hdrEnd, bodyStart, ok := splitHeaderBody(b.buf)
	if !ok {
		// the header block is not fully buffered yet
		return 0, false
	}

	if contentLength, found := scanContentLength(b.buf[:hdrEnd]); found {
		// <header><blank line><content-length bytes>\x00: binary safe,
		// any terminator or newline bytes inside the body are data.
		total = bodyStart + contentLength + 1
		if len(b.buf) < total {
			return 0, false
		}
		return total, true
	}

	// terminator-delimited: the body runs to the first NUL byte.
	j := bytes.IndexByte(b.buf[bodyStart:], terminator)
	if j < 0 {
		return 0, false
	}
	return bodyStart + j + 1, true
}

// scanContentLength looks for a content-length header in the raw header
// block (command line included, so the header always sits after a
// newline). The body is never scanned, which keeps a body that happens
// to contain "content-length:" from confusing the framing decision.
// A header with an unparseable value is ignored here and surfaces as a
// format error from Unmarshal instead.
func scanContentLength(headerBlock []byte) (int, bool) {
	lines := bytes.Split(headerBlock, []byte{newline})
	for _, line := range lines[1:] {
		idx := bytes.IndexByte(line, colon)
		if idx < 0 {
			continue
		}
		if strings.TrimSpace(string(line[:idx])) != ContentLength {
			continue
		}
		value := strings.TrimSpace(string(trimCR(line[idx+1:])))
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			continue
		}
		return int(n), true
	}
	return 0, false
}
