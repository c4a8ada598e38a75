// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package frame

// STOMP v1.0 frame commands. Commands use an upper-case naming
// convention, header names use pascal-case (see header.go).
const (
	CONNECT     = "CONNECT"
	CONNECTED   = "CONNECTED"
	SEND        = "SEND"
	SUBSCRIBE   = "SUBSCRIBE"
	UNSUBSCRIBE = "UNSUBSCRIBE"
	BEGIN       = "BEGIN"
	COMMIT      = "COMMIT"
	ABORT       = "ABORT"
	ACK         = "ACK"
	NACK        = "NACK"
	DISCONNECT  = "DISCONNECT"
	MESSAGE     = "MESSAGE"
	RECEIPT     = "RECEIPT"
	ERROR       = "ERROR"
)

// NACK is not part of v1.0 and is never produced by this library, but a
// v1.1 peer emitting one must not trip the buffer's resync heuristic, so
// it is accepted as a recognized command on the wire.
var validCommands = map[string]struct{}{
	CONNECT:     {},
	CONNECTED:   {},
	SEND:        {},
	SUBSCRIBE:   {},
	UNSUBSCRIBE: {},
	BEGIN:       {},
	COMMIT:      {},
	ABORT:       {},
	ACK:         {},
	NACK:        {},
	DISCONNECT:  {},
	MESSAGE:     {},
	RECEIPT:     {},
	ERROR:       {},
}

// ValidCommand reports whether command is a recognized STOMP command.
func ValidCommand(command string) bool {
	_, ok := validCommands[command]
	return ok
}
