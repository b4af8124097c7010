// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package lan opens the byte-stream session to a LAN instrument's SCPI socket.
package lan

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ziutek/telnet"
)

// Port is the SCPI socket of Rigol LXI instruments.
const Port = 5555

// byteConn is what both framings provide.
type byteConn interface {
	Write(p []byte) (int, error)
	ReadByte() (byte, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

type rawConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *rawConn) ReadByte() (byte, error) { return c.r.ReadByte() }

// Session is an open connection to one instrument.
type Session struct {
	addr string
	conn byteConn
}

// SessionOption applies an option to Dial.
type SessionOption func(*dialConfig)

type dialConfig struct {
	telnet  bool
	timeout time.Duration
}

// WithTelnet runs the session through a telnet client, which handles IAC
// negotiation. Payload bytes equal to 0xff are interpreted as telnet commands
// in this mode, so raw binary blocks may come out short.
func WithTelnet() SessionOption { return func(c *dialConfig) { c.telnet = true } }

// WithDialTimeout bounds the connection attempt.
func WithDialTimeout(d time.Duration) SessionOption {
	return func(c *dialConfig) { c.timeout = d }
}

// Dial connects to host on the given port. A port of 0 selects Port.
func Dial(host string, port int, opts ...SessionOption) (*Session, error) {
	cfg := dialConfig{timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	if port == 0 {
		port = Port
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if cfg.telnet {
		conn, err := telnet.DialTimeout("tcp", addr, cfg.timeout)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return &Session{addr: addr, conn: conn}, nil
	}
	conn, err := net.DialTimeout("tcp", addr, cfg.timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Session{addr: addr, conn: &rawConn{Conn: conn, r: bufio.NewReaderSize(conn, 64*1024)}}, nil
}

// Addr returns host:port of the instrument.
func (s *Session) Addr() string { return s.addr }

// Write writes all of p.
func (s *Session) Write(p []byte) (int, error) {
	return s.conn.Write(p)
}

// ReadUntil reads until delim has been read or wait has elapsed, whichever is
// first, and returns the bytes read including delim. An elapsed wait is not an
// error: whatever arrived, possibly nothing, is returned with a nil error.
func (s *Session) ReadUntil(delim byte, wait time.Duration) ([]byte, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, err
	}
	var buf []byte
	for {
		b, err := s.conn.ReadByte()
		if err != nil {
			if isTimeout(err) {
				return buf, nil
			}
			return buf, err
		}
		buf = append(buf, b)
		if b == delim {
			return buf, nil
		}
	}
}

// Close closes the connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
