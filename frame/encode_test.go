// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package frame

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarshalWireFormat pins the exact byte layout of an encoded frame,
// header order following insertion order.
func TestMarshalWireFormat(t *testing.T) {
	f := MustNew(SEND, Destination, "/queue/a")
	f.Body = []byte("hello")
	f.LengthFramed = true

	expected := "SEND\ndestination:/queue/a\ncontent-length:5\n\nhello\x00"
	assert.Equal(t, []byte(expected), Marshal(f))
}

func TestMarshalTerminatorFramed(t *testing.T) {
	f := MustNew(SEND, Destination, "/queue/a")
	f.Body = []byte("hello")

	expected := "SEND\ndestination:/queue/a\n\nhello\x00"
	assert.Equal(t, []byte(expected), Marshal(f))
}

func TestMarshalEmptyBodyAndHeaders(t *testing.T) {
	f := MustNew(DISCONNECT)
	assert.Equal(t, []byte("DISCONNECT\n\n\x00"), Marshal(f))
}

// TestRoundTrip verifies decode(encode(f)) == f for length-framed
// frames with arbitrary byte bodies.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		f    *Frame
	}{
		{
			name: "text body",
			f: func() *Frame {
				f := MustNew(SEND, Destination, "/queue/a", Transaction, "tx-1")
				f.Body = []byte("hello world")
				f.LengthFramed = true
				return f
			}(),
		},
		{
			name: "binary body with embedded terminator and newlines",
			f: func() *Frame {
				f := MustNew(MESSAGE, Destination, "/topic/bin", MessageId, "9")
				f.Body = []byte{'a', 0, '\n', 0, 'z'}
				f.LengthFramed = true
				return f
			}(),
		},
		{
			name: "empty body",
			f: func() *Frame {
				f := MustNew(RECEIPT, ReceiptId, "123")
				f.LengthFramed = true
				return f
			}(),
		},
		{
			name: "header value containing colons",
			f: func() *Frame {
				f := MustNew(ERROR, Message, "bad destination: /queue/a: denied")
				f.LengthFramed = true
				return f
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Unmarshal(Marshal(tt.f))
			require.NoError(t, err)
			assert.Equal(t, tt.f.Command, decoded.Command)
			assert.Equal(t, string(tt.f.Body), string(decoded.Body))
			assert.True(t, decoded.LengthFramed)
			for i := 0; i < tt.f.Header.Len(); i++ {
				key, value := tt.f.Header.GetAt(i)
				assert.Equal(t, value, decoded.Header.Get(key))
			}
		})
	}
}

// TestBinarySafetyModes verifies that a body containing a NUL byte
// round-trips with content-length framing and is truncated at the NUL
// with terminator framing, as the two modes specify.
func TestBinarySafetyModes(t *testing.T) {
	body := []byte("bin\x00ary")

	framed := MustNew(SEND, Destination, "/queue/a")
	framed.Body = body
	framed.LengthFramed = true

	decoded, err := Unmarshal(Marshal(framed))
	require.NoError(t, err)
	assert.Equal(t, body, decoded.Body)

	// terminator framing cannot represent an embedded NUL; the decoder
	// stops at the first one.
	bare := MustNew(SEND, Destination, "/queue/a")
	bare.Body = body

	decoded, err = Unmarshal(Marshal(bare))
	require.NoError(t, err)
	assert.Equal(t, []byte("bin"), decoded.Body)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		sentinel error
	}{
		{
			name:     "unknown command",
			data:     "BUNK\ndestination:/queue/a\n\nhi\x00",
			sentinel: ErrInvalidCommand,
		},
		{
			name:     "header line without colon",
			data:     "SEND\ndestination\n\nhi\x00",
			sentinel: ErrInvalidFormat,
		},
		{
			name:     "missing header body separator",
			data:     "SEND\ndestination:/queue/a\nhi\x00",
			sentinel: ErrInvalidFormat,
		},
		{
			name:     "content-length longer than body",
			data:     "SEND\ncontent-length:99\n\nhi\x00",
			sentinel: ErrInvalidFormat,
		},
		{
			name:     "content-length not a number",
			data:     "SEND\ncontent-length:lots\n\nhi\x00",
			sentinel: ErrInvalidFormat,
		},
		{
			name:     "terminator missing",
			data:     "SEND\ndestination:/queue/a\n\nhi",
			sentinel: ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Unmarshal([]byte(tt.data))
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, tt.sentinel), "expected %v, got %v", tt.sentinel, err)
		})
	}
}

// TestUnmarshalCRLFLineEndings verifies that a peer terminating its
// lines with CRLF decodes the same as an LF-only peer: the \r\n\r\n
// header/body separator is recognized and header lines lose their
// trailing carriage returns.
func TestUnmarshalCRLFLineEndings(t *testing.T) {
	t.Run("terminator framed", func(t *testing.T) {
		data := "SEND\r\ndestination:/queue/a\r\n\r\nhello\x00"
		f, err := Unmarshal([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, SEND, f.Command)
		assert.Equal(t, "/queue/a", f.Header.Get(Destination))
		assert.Equal(t, "hello", string(f.Body))
	})

	t.Run("length framed", func(t *testing.T) {
		data := "MESSAGE\r\ndestination:/queue/a\r\ncontent-length:5\r\n\r\nhe\x00lo\x00"
		f, err := Unmarshal([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, MESSAGE, f.Command)
		assert.Equal(t, []byte("he\x00lo"), f.Body)
		assert.True(t, f.LengthFramed)
	})

	t.Run("no headers", func(t *testing.T) {
		f, err := Unmarshal([]byte("DISCONNECT\r\n\r\n\x00"))
		require.NoError(t, err)
		assert.Equal(t, DISCONNECT, f.Command)
		assert.Equal(t, 0, f.Header.Len())
	})

	// a body beginning with a newline must not pull the separator
	// decision forward onto the LF pair inside \r\n\r\n\n.
	t.Run("body starting with newline", func(t *testing.T) {
		f, err := Unmarshal([]byte("SEND\r\ndestination:/queue/a\r\n\r\n\nline two\x00"))
		require.NoError(t, err)
		assert.Equal(t, "\nline two", string(f.Body))
	})
}

// TestUnmarshalDuplicateHeaders verifies that the first occurrence of a
// duplicated header key wins on decode.
func TestUnmarshalDuplicateHeaders(t *testing.T) {
	data := "MESSAGE\ncomment:first\ncomment:second\n\nbody\x00"
	f, err := Unmarshal([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "first", f.Header.Get("comment"))
	assert.Equal(t, 2, f.Header.Len())
}
