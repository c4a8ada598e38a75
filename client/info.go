// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package client

import (
	"github.com/pb33f/lasso/frame"
)

// Typed views over the headers of inbound frames. These replace the
// old dynamic header-as-attribute sugar with explicit decoding; lookup
// happens once, up front, into a plain struct.

// ConnectedInfo is the typed view of a CONNECTED frame's headers.
type ConnectedInfo struct {
	Session string `header:"session"`
	Server  string `header:"server"`
	Version string `header:"version"`
}

// MessageInfo is the typed view of a MESSAGE frame's headers.
type MessageInfo struct {
	MessageId     string `header:"message-id"`
	Destination   string `header:"destination"`
	Subscription  string `header:"subscription"`
	ContentLength int    `header:"content-length"`
}

// ReceiptInfo is the typed view of a RECEIPT frame's headers.
type ReceiptInfo struct {
	ReceiptId string `header:"receipt-id"`
}

// ErrorInfo is the typed view of an ERROR frame's headers.
type ErrorInfo struct {
	Message   string `header:"message"`
	ReceiptId string `header:"receipt-id"`
}

// ConnectedInfoOf decodes the headers of a CONNECTED frame.
func ConnectedInfoOf(f *frame.Frame) (ConnectedInfo, error) {
	var info ConnectedInfo
	err := f.Header.Decode(&info)
	return info, err
}

// MessageInfoOf decodes the headers of a MESSAGE frame.
func MessageInfoOf(f *frame.Frame) (MessageInfo, error) {
	var info MessageInfo
	err := f.Header.Decode(&info)
	return info, err
}

// ReceiptInfoOf decodes the headers of a RECEIPT frame.
func ReceiptInfoOf(f *frame.Frame) (ReceiptInfo, error) {
	var info ReceiptInfo
	err := f.Header.Decode(&info)
	return info, err
}

// ErrorInfoOf decodes the headers of an ERROR frame.
func ErrorInfoOf(f *frame.Frame) (ErrorInfo, error) {
	var info ErrorInfo
	err := f.Header.Decode(&info)
	return info, err
}
