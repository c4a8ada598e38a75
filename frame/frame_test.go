// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package frame

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewValidatesCommand verifies that constructing a frame with an
// unknown command fails instead of being silently accepted.
func TestNewValidatesCommand(t *testing.T) {
	f, err := New(SEND, Destination, "/queue/a")
	require.NoError(t, err)
	assert.Equal(t, SEND, f.Command)
	assert.Equal(t, "/queue/a", f.Header.Get(Destination))

	f, err = New("BUNK")
	assert.Nil(t, f)
	assert.True(t, errors.Is(err, ErrInvalidCommand))
}

func TestMustNewPanicsOnInvalidCommand(t *testing.T) {
	assert.Panics(t, func() {
		MustNew("NOT-A-COMMAND")
	})
}

// TestHeaderOrderAndDuplicates verifies insertion order is preserved
// and that duplicate keys resolve to their first occurrence on lookup.
func TestHeaderOrderAndDuplicates(t *testing.T) {
	h := NewHeader(Login, "scott", Passcode, "tiger")
	h.Add("comment", "first")
	h.Add("comment", "second")

	assert.Equal(t, 4, h.Len())
	assert.Equal(t, "first", h.Get("comment"))

	key, value := h.GetAt(0)
	assert.Equal(t, Login, key)
	assert.Equal(t, "scott", value)

	m := h.Map()
	assert.Equal(t, "first", m["comment"])

	h.Set("comment", "replaced")
	assert.Equal(t, "replaced", h.Get("comment"))

	h.Del("comment")
	_, ok := h.Contains("comment")
	assert.False(t, ok)
	assert.Equal(t, 2, h.Len())
}

func TestHeaderContentLength(t *testing.T) {
	h := NewHeader(ContentLength, "42")
	n, ok, err := h.ContentLength()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	missing := NewHeader()
	_, ok, err = missing.ContentLength()
	require.NoError(t, err)
	assert.False(t, ok)

	bad := NewHeader(ContentLength, "many")
	_, ok, err = bad.ContentLength()
	assert.True(t, ok)
	assert.True(t, errors.Is(err, ErrInvalidFormat))
}

// TestHeaderDecode verifies typed header views via the header tag.
func TestHeaderDecode(t *testing.T) {
	type messageInfo struct {
		MessageId     string `header:"message-id"`
		Destination   string `header:"destination"`
		ContentLength int    `header:"content-length"`
	}

	h := NewHeader(
		MessageId, "msg-1",
		Destination, "/queue/a",
		ContentLength, "5",
	)

	var info messageInfo
	require.NoError(t, h.Decode(&info))
	assert.Equal(t, "msg-1", info.MessageId)
	assert.Equal(t, "/queue/a", info.Destination)
	assert.Equal(t, 5, info.ContentLength)
}

func TestFrameClone(t *testing.T) {
	f := MustNew(SEND, Destination, "/queue/a")
	f.Body = []byte("payload")
	f.LengthFramed = true

	fc := f.Clone()
	fc.Header.Set(Destination, "/queue/b")
	fc.Body[0] = 'x'

	assert.Equal(t, "/queue/a", f.Header.Get(Destination))
	assert.Equal(t, byte('p'), f.Body[0])
	assert.True(t, fc.LengthFramed)
}
