// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package tmc decodes IEEE 488.2 definite-length arbitrary blocks, the "TMC
// block" framing SCPI instruments use to return binary payloads.
//
//	'#' marker, 1 byte
//	d, 1 ASCII digit 1-9: width of the length field
//	L, d ASCII digits: payload length in bytes
//	payload, L bytes
//	terminator, 1 byte ('\n')
package tmc

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// Marker is the first byte of every block.
	Marker = '#'
	// Terminator follows the payload.
	Terminator = '\n'
)

var (
	// ErrMalformedHeader is returned when the marker or length digits are invalid.
	ErrMalformedHeader = errors.New("malformed TMC block header")
	// ErrShortHeader means the buffer does not yet hold a complete header.
	// More bytes may fix it.
	ErrShortHeader = errors.New("TMC block header incomplete")
	// ErrIncomplete means the buffer holds fewer payload bytes than the header
	// announced.
	ErrIncomplete = errors.New("TMC block payload incomplete")
)

// HeaderLen returns the length of the block header, 2 plus the width digit.
func HeaderLen(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, ErrShortHeader
	}
	if buf[0] != Marker {
		return 0, fmt.Errorf("%w: want %q got %q", ErrMalformedHeader, Marker, buf[0])
	}
	d := buf[1]
	if d < '1' || d > '9' {
		return 0, fmt.Errorf("%w: length width %q not in 1-9", ErrMalformedHeader, d)
	}
	return 2 + int(d-'0'), nil
}

// PayloadLen returns the payload length L announced by the header.
func PayloadLen(buf []byte) (int, error) {
	hl, err := HeaderLen(buf)
	if err != nil {
		return 0, err
	}
	if len(buf) < hl {
		return 0, ErrShortHeader
	}
	digits := buf[2:hl]
	for _, c := range digits {
		// no sign, no exponent
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: length %q is not decimal", ErrMalformedHeader, digits)
		}
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMalformedHeader, err)
	}
	return n, nil
}

// TotalLen returns the framed length of the block: header, payload and the
// trailing terminator.
func TotalLen(buf []byte) (int, error) {
	hl, err := HeaderLen(buf)
	if err != nil {
		return 0, err
	}
	n, err := PayloadLen(buf)
	if err != nil {
		return 0, err
	}
	return hl + n + 1, nil
}

// Payload returns the L payload bytes of buf. The returned slice aliases buf.
func Payload(buf []byte) ([]byte, error) {
	hl, err := HeaderLen(buf)
	if err != nil {
		return nil, err
	}
	n, err := PayloadLen(buf)
	if err != nil {
		return nil, err
	}
	if len(buf) < hl+n {
		return nil, fmt.Errorf("%w: have %d of %d bytes", ErrIncomplete, len(buf)-hl, n)
	}
	return buf[hl : hl+n], nil
}

// Encode frames payload as a block using the narrowest length field, followed
// by the terminator.
func Encode(payload []byte) []byte {
	l := strconv.Itoa(len(payload))
	buf := make([]byte, 0, 2+len(l)+len(payload)+1)
	buf = append(buf, Marker, byte('0'+len(l)))
	buf = append(buf, l...)
	buf = append(buf, payload...)
	return append(buf, Terminator)
}

// EncodeWidth is like Encode but zero-pads the length field to width digits,
// the way DS1000Z scopes always send 9.
func EncodeWidth(payload []byte, width int) ([]byte, error) {
	if width < 1 || width > 9 {
		return nil, fmt.Errorf("length width %d not in 1-9", width)
	}
	l := fmt.Sprintf("%0*d", width, len(payload))
	if len(l) > width {
		return nil, fmt.Errorf("payload length %d does not fit in %d digits", len(payload), width)
	}
	buf := make([]byte, 0, 2+width+len(payload)+1)
	buf = append(buf, Marker, byte('0'+width))
	buf = append(buf, l...)
	buf = append(buf, payload...)
	return append(buf, Terminator), nil
}
