// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendFrame(t *testing.T, destination, body string) *Frame {
	t.Helper()
	f := MustNew(SEND, Destination, destination)
	f.Body = []byte(body)
	f.LengthFramed = true
	return f
}

// TestBufferSingleFrame verifies extraction of one complete frame and
// that the buffer is empty afterwards.
func TestBufferSingleFrame(t *testing.T) {
	b := NewBuffer()
	b.Append(Marshal(sendFrame(t, "/queue/a", "hello")))

	f, err := b.Next()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, SEND, f.Command)
	assert.Equal(t, "hello", string(f.Body))
	assert.True(t, b.Empty())

	// nothing left
	f, err = b.Next()
	require.NoError(t, err)
	assert.Nil(t, f)
}

// TestBufferPartialFrame verifies that Next returns nil until the full
// frame has arrived.
func TestBufferPartialFrame(t *testing.T) {
	encoded := Marshal(sendFrame(t, "/queue/a", "hello"))

	b := NewBuffer()
	b.Append(encoded[:10])

	f, err := b.Next()
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, 10, b.Len())

	b.Append(encoded[10:])
	f, err = b.Next()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "hello", string(f.Body))
}

// TestChunkedDeliveryInvariance verifies that splitting a multi-frame
// stream into arbitrary chunk sizes yields the same decoded sequence as
// feeding the whole stream at once.
func TestChunkedDeliveryInvariance(t *testing.T) {
	var stream []byte
	bodies := []string{"one", "two", "three", "bin\x00ary", ""}
	for _, body := range bodies {
		stream = append(stream, Marshal(sendFrame(t, "/queue/a", body))...)
	}

	for _, chunkSize := range []int{1, 2, 3, 7, 16, len(stream)} {
		b := NewBuffer()
		var got []string
		for start := 0; start < len(stream); start += chunkSize {
			end := start + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			b.Append(stream[start:end])
			frames, err := b.Drain()
			require.NoError(t, err)
			for _, f := range frames {
				got = append(got, string(f.Body))
			}
		}
		assert.Equal(t, bodies, got, "chunk size %d", chunkSize)
		assert.True(t, b.Empty(), "chunk size %d", chunkSize)
	}
}

// TestBufferDrainMultipleFrames verifies Drain pulls every complete
// frame from a single append, preserving stream order.
func TestBufferDrainMultipleFrames(t *testing.T) {
	b := NewBuffer()
	b.Append(Marshal(sendFrame(t, "/queue/a", "first")))
	b.Append(Marshal(sendFrame(t, "/queue/a", "second")))
	partial := Marshal(sendFrame(t, "/queue/a", "third"))
	b.Append(partial[:5])

	frames, err := b.Drain()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "first", string(frames[0].Body))
	assert.Equal(t, "second", string(frames[1].Body))

	b.Append(partial[5:])
	frames, err = b.Drain()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "third", string(frames[0].Body))
}

// TestBufferCorruptionRecovery verifies that garbage before a valid
// frame is discarded up to the terminator and the valid frame decodes.
func TestBufferCorruptionRecovery(t *testing.T) {
	valid := sendFrame(t, "/queue/a", "hello")

	b := NewBuffer()
	b.Append([]byte("GARBAGE\ndata\x00"))
	b.Append(Marshal(valid))

	f, err := b.Next()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "hello", string(f.Body))
	assert.True(t, b.Empty())
}

// TestBufferCorruptionWithoutTerminator verifies that corrupt content
// holding no terminator byte clears the whole buffer.
func TestBufferCorruptionWithoutTerminator(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("GARBAGE\nno boundary here"))

	f, err := b.Next()
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.True(t, b.Empty())
}

// TestSyncIdempotentOnValidBuffer verifies the resync pass leaves an
// already valid buffer untouched.
func TestSyncIdempotentOnValidBuffer(t *testing.T) {
	encoded := Marshal(sendFrame(t, "/queue/a", "hello"))

	b := NewBuffer()
	b.Append(encoded)
	b.sync()
	assert.Equal(t, len(encoded), b.Len())

	// partial command with no newline cannot be judged, so it stays.
	b2 := NewBuffer()
	b2.Append([]byte("SEN"))
	b2.sync()
	assert.Equal(t, 3, b2.Len())
}

// TestBufferSkipsHeartbeats verifies that bare newlines between frames
// (heart-beats, or the trailing newline some encoders emit after the
// terminator) are skipped rather than treated as corruption.
func TestBufferSkipsHeartbeats(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("\n\n"))
	b.Append(Marshal(sendFrame(t, "/queue/a", "hello")))
	b.Append([]byte("\n"))
	b.Append(Marshal(sendFrame(t, "/queue/a", "again")))

	frames, err := b.Drain()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "hello", string(frames[0].Body))
	assert.Equal(t, "again", string(frames[1].Body))
	assert.True(t, b.Empty())
}

// TestBufferContentLengthWaitsForBody verifies a length-framed frame is
// not extracted until its full body plus terminator is buffered, even
// when the body contains bytes that look like a terminator.
func TestBufferContentLengthWaitsForBody(t *testing.T) {
	f := MustNew(SEND, Destination, "/queue/a")
	f.Body = []byte("abc\x00def")
	f.LengthFramed = true
	encoded := Marshal(f)

	b := NewBuffer()
	// stop just after the embedded NUL; terminator mode would wrongly
	// see a complete frame here.
	b.Append(encoded[:len(encoded)-4])

	got, err := b.Next()
	require.NoError(t, err)
	assert.Nil(t, got)

	b.Append(encoded[len(encoded)-4:])
	got, err = b.Next()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte("abc\x00def"), got.Body)
}

// TestBufferCRLFFrames verifies frames from a CRLF peer complete and
// decode through the buffer, including a partial delivery that splits
// the \r\n\r\n separator.
func TestBufferCRLFFrames(t *testing.T) {
	encoded := []byte("SEND\r\ndestination:/queue/a\r\ncontent-length:5\r\n\r\nhello\x00")

	b := NewBuffer()
	b.Append(encoded)
	f, err := b.Next()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "hello", string(f.Body))
	assert.True(t, b.Empty())

	// split mid separator; the frame must stay pending until the rest
	// of the header block arrives.
	split := bytes.Index(encoded, []byte("\r\n\r\n")) + 2
	b2 := NewBuffer()
	b2.Append(encoded[:split])
	f, err = b2.Next()
	require.NoError(t, err)
	assert.Nil(t, f)

	b2.Append(encoded[split:])
	f, err = b2.Next()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "hello", string(f.Body))
}

// TestBufferReset verifies Reset clears any partial state.
func TestBufferReset(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("SEND\ndest"))
	assert.False(t, b.Empty())
	b.Reset()
	assert.True(t, b.Empty())
}
