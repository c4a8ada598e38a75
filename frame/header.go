// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package frame

import (
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// STOMP header names.
const (
	ContentLength = "content-length"
	ContentType   = "content-type"
	Receipt       = "receipt"
	Login         = "login"
	Passcode      = "passcode"
	Session       = "session"
	Server        = "server"
	Destination   = "destination"
	Id            = "id"
	Ack           = "ack"
	Selector      = "selector"
	Transaction   = "transaction"
	ReceiptId     = "receipt-id"
	Subscription  = "subscription"
	MessageId     = "message-id"
	Message       = "message"
)

// A Header holds the header entries of a STOMP frame as an ordered list
// of key/value pairs. Insertion order is preserved so that encoding is
// deterministic. The STOMP wire format permits duplicate keys; when
// duplicates are present the first occurrence wins on lookup, and any
// later entries are carried but ignored.
type Header struct {
	slice []string
}

// NewHeader creates a Header populated from the supplied entries. The
// even indices are keys, the odd indices are values; a trailing key
// without a value gets the empty string.
func NewHeader(entries ...string) *Header {
	h := &Header{}
	h.slice = append(h.slice, entries...)
	if len(h.slice)%2 != 0 {
		h.slice = append(h.slice, "")
	}
	return h
}

// Add appends a key/value pair to the header, without replacing any
// existing entry for the same key.
func (h *Header) Add(key, value string) {
	h.slice = append(h.slice, key, value)
}

// Set replaces the value of the first existing entry with the given key,
// or appends a new entry if the key is not present.
func (h *Header) Set(key, value string) {
	if i, ok := h.index(key); ok {
		h.slice[i+1] = value
	} else {
		h.slice = append(h.slice, key, value)
	}
}

// Get returns the first value associated with key, or "" when absent.
func (h *Header) Get(key string) string {
	value, _ := h.Contains(key)
	return value
}

// Contains returns the first value associated with key and whether an
// entry for it exists at all.
func (h *Header) Contains(key string) (value string, ok bool) {
	var i int
	if i, ok = h.index(key); ok {
		value = h.slice[i+1]
	}
	return
}

// Del removes every entry with the given key.
func (h *Header) Del(key string) {
	for i, ok := h.index(key); ok; i, ok = h.index(key) {
		h.slice = append(h.slice[:i], h.slice[i+2:]...)
	}
}

// Len returns the number of header entries.
func (h *Header) Len() int {
	return len(h.slice) / 2
}

// GetAt returns the key and value at the given entry index. The index
// must satisfy 0 <= index < Len().
func (h *Header) GetAt(index int) (key, value string) {
	index *= 2
	return h.slice[index], h.slice[index+1]
}

// Clone returns a deep copy of the header.
func (h *Header) Clone() *Header {
	hc := &Header{slice: make([]string, len(h.slice))}
	copy(hc.slice, h.slice)
	return hc
}

// Map flattens the header into a plain map. Duplicate keys collapse to
// their first occurrence, matching lookup semantics.
func (h *Header) Map() map[string]string {
	m := make(map[string]string, h.Len())
	for i := 0; i < len(h.slice); i += 2 {
		if _, exists := m[h.slice[i]]; !exists {
			m[h.slice[i]] = h.slice[i+1]
		}
	}
	return m
}

// Decode unmarshals the header entries into a struct. Fields are matched
// by the "header" tag, so numeric headers like content-length can land
// directly in int fields.
func (h *Header) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "header",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "unable to build header decoder")
	}
	return decoder.Decode(h.Map())
}

// ContentLength returns the value of the content-length entry. ok is
// false when the entry is missing; err is non-nil when the entry exists
// but is not a valid non-negative integer.
func (h *Header) ContentLength() (value int, ok bool, err error) {
	text, ok := h.Contains(ContentLength)
	if !ok {
		return 0, false, nil
	}

	n, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, true, errors.Wrapf(ErrInvalidFormat, "bad content-length %q", text)
	}

	return int(n), true, nil
}

func (h *Header) index(key string) (int, bool) {
	for i := 0; i < len(h.slice); i += 2 {
		if h.slice[i] == key {
			return i, true
		}
	}
	return -1, false
}
