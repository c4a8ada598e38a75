// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

package frame

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

const (
	newline    = byte('\n')
	cr         = byte('\r')
	colon      = byte(':')
	terminator = byte(0)
)

var (
	lfSeparator   = []byte("\n\n")
	crlfSeparator = []byte("\r\n\r\n")
)

// splitHeaderBody locates the blank line ending the header block.
// Frames are emitted LF-only, but decoding tolerates a CRLF peer, so
// both separators are recognized; whichever appears first wins. hdrEnd
// indexes the end of the header block, bodyStart the first body byte.
func splitHeaderBody(data []byte) (hdrEnd, bodyStart int, ok bool) {
	lf := bytes.Index(data, lfSeparator)
	crlf := bytes.Index(data, crlfSeparator)

	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf, crlf + len(crlfSeparator), true
	case lf >= 0:
		return lf, lf + len(lfSeparator), true
	}
	return 0, 0, false
}

// Marshal renders a frame into its wire form:
//
//	COMMAND\n
//	key:value\n
//	...
//	\n
//	<body>\x00
//
// Header entries are written in insertion order. When the frame is
// length framed, a content-length header equal to len(Body) is set
// before the header block is serialized; otherwise the terminator byte
// alone marks the end of the frame.
func Marshal(f *Frame) []byte {
	header := f.Header
	if header == nil {
		header = NewHeader()
	}
	if f.LengthFramed {
		header = header.Clone()
		header.Set(ContentLength, strconv.Itoa(len(f.Body)))
	}

	var buf bytes.Buffer
	buf.Grow(len(f.Command) + 1 + len(f.Body) + 2 + header.Len()*16)
	buf.WriteString(f.Command)
	buf.WriteByte(newline)
	for i := 0; i < header.Len(); i++ {
		key, value := header.GetAt(i)
		buf.WriteString(key)
		buf.WriteByte(colon)
		buf.WriteString(value)
		buf.WriteByte(newline)
	}
	buf.WriteByte(newline)
	buf.Write(f.Body)
	buf.WriteByte(terminator)
	return buf.Bytes()
}

// Unmarshal parses a single complete frame from its wire form,
// including the trailing terminator byte. The command is validated
// against the STOMP command set, header lines split on the first colon
// only (values may contain colons), and the body is taken either from
// the content-length header (binary safe) or up to the terminator.
//
// Unmarshal never touches shared state; it returns a fresh Frame.
func Unmarshal(data []byte) (*Frame, error) {
	cmdEnd := bytes.IndexByte(data, newline)
	if cmdEnd < 0 {
		return nil, errors.Wrap(ErrInvalidFormat, "no command line")
	}

	command := string(trimCR(data[:cmdEnd]))
	if !ValidCommand(command) {
		return nil, errors.Wrapf(ErrInvalidCommand, "%q", command)
	}

	hdrEnd, bodyStart, ok := splitHeaderBody(data)
	if !ok {
		return nil, errors.Wrap(ErrInvalidFormat, "missing header/body separator")
	}

	f := &Frame{Command: command, Header: NewHeader()}
	if hdrEnd > cmdEnd {
		for _, line := range bytes.Split(data[cmdEnd+1:hdrEnd], []byte{newline}) {
			line = trimCR(line)
			idx := bytes.IndexByte(line, colon)
			if idx <= 0 {
				// colon missing, or zero-length header name
				return nil, errors.Wrapf(ErrInvalidFormat, "malformed header line %q", line)
			}
			f.Header.Add(string(line[:idx]), string(line[idx+1:]))
		}
	}

	if contentLength, ok, err := f.Header.ContentLength(); err != nil {
		return nil, err
	} else if ok {
		if bodyStart+contentLength+1 > len(data) {
			return nil, errors.Wrap(ErrInvalidFormat, "body shorter than content-length")
		}
		if data[bodyStart+contentLength] != terminator {
			return nil, errors.Wrap(ErrInvalidFormat, "content-length does not point at frame terminator")
		}
		f.Body = append([]byte(nil), data[bodyStart:bodyStart+contentLength]...)
		f.LengthFramed = true
	} else {
		end := bytes.IndexByte(data[bodyStart:], terminator)
		if end < 0 {
			return nil, errors.Wrap(ErrInvalidFormat, "missing frame terminator")
		}
		f.Body = append([]byte(nil), data[bodyStart:bodyStart+end]...)
	}

	return f, nil
}

func trimCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == cr {
		return line[:len(line)-1]
	}
	return line
}
