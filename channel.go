// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package rigol captures screens and waveforms from Rigol DS1000Z
// oscilloscopes over SCPI.
package rigol

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kalofin/DS1054Z-screen-capture/lib/cmdlog"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/metrics"
)

const (
	terminator = '\n'
	readyQuery = "*OPC?"
	readyToken = "1\n"
)

// Session is the byte stream to the instrument. ReadUntil returns what
// arrived up to and including delim, or by the time wait elapsed, with a nil
// error in both cases.
type Session interface {
	io.Writer
	ReadUntil(delim byte, wait time.Duration) ([]byte, error)
}

// Channel runs one SCPI exchange at a time, each gated on the instrument
// reporting that its previous operation has completed.
type Channel struct {
	sess         Session
	wait         time.Duration
	readyTimeout time.Duration
	log          logrus.FieldLogger
	metrics      *metrics.Transfer

	// last command sent, blamed for a "command error" that turns up in
	// place of a *OPC? reply
	last string
}

// ChannelOption applies an option to the channel.
type ChannelOption func(*Channel)

// NewChannel creates a command channel over sess.
func NewChannel(sess Session, opts ...ChannelOption) *Channel {
	c := Channel{
		sess: sess,
		wait: time.Second,
		log:  discard(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// WithWait sets the bounded wait of every read. The default is one second.
func WithWait(d time.Duration) ChannelOption {
	return func(c *Channel) {
		if d > 0 {
			c.wait = d
		}
	}
}

// WithReadyTimeout gives up on *OPC? polling after d and returns ErrNotReady.
// Without it an instrument that never reports ready blocks forever.
func WithReadyTimeout(d time.Duration) ChannelOption {
	return func(c *Channel) { c.readyTimeout = d }
}

// WithLogger sends exchanges to log at debug level.
func WithLogger(log logrus.FieldLogger) ChannelOption {
	return func(c *Channel) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics counts commands and reads in m.
func WithMetrics(m *metrics.Transfer) ChannelOption {
	return func(c *Channel) { c.metrics = m }
}

// Wait returns the bounded wait used for each read.
func (c *Channel) Wait() time.Duration { return c.wait }

// WaitReady polls *OPC? until the instrument answers exactly "1\n".
func (c *Channel) WaitReady() error {
	start := time.Now()
	for {
		if c.readyTimeout > 0 && time.Since(start) > c.readyTimeout {
			return fmt.Errorf("%w after %s", ErrNotReady, c.readyTimeout)
		}
		if err := c.write(readyQuery); err != nil {
			return err
		}
		c.metrics.ReadyPoll()
		resp, err := c.read()
		if err != nil {
			return fmt.Errorf("reading %s response: %w", readyQuery, err)
		}
		c.log.Debugf("%s: %s", readyQuery, cmdlog.Describe(resp))
		if string(resp) == readyToken {
			return nil
		}
		// setters are not read back, so a refused one is only seen here
		if strings.TrimSpace(string(resp)) == commandError {
			return fmt.Errorf("%s: %w", c.last, ErrCommandRejected)
		}
	}
}

// Execute waits for the instrument to be ready, sends cmd and returns the
// response as text. Commands returning raw bytes use ExecuteBinary.
func (c *Channel) Execute(cmd string) (string, error) {
	resp, err := c.exchange(cmd, metrics.KindText)
	return string(resp), err
}

// ExecuteBinary is Execute for responses that are raw bytes, such as TMC
// blocks.
func (c *Channel) ExecuteBinary(cmd string) ([]byte, error) {
	return c.exchange(cmd, metrics.KindBinary)
}

// Command waits for the instrument to be ready and sends cmd without reading
// a response. It is for setters, which the instrument does not answer. A
// setter the instrument refuses fails the next exchange with
// ErrCommandRejected.
func (c *Channel) Command(cmd string) error {
	if err := c.WaitReady(); err != nil {
		return err
	}
	c.metrics.Command(metrics.KindWrite)
	c.log.Debugf("cmd %q", cmd)
	c.last = cmd
	return c.write(cmd)
}

// Query is Execute with surrounding whitespace removed from the response.
func (c *Channel) Query(cmd string) (string, error) {
	s, err := c.Execute(cmd)
	return strings.TrimSpace(s), err
}

// ReadMore performs one bounded read, for responses that did not arrive
// within the first one.
func (c *Channel) ReadMore() ([]byte, error) {
	return c.read()
}

func (c *Channel) exchange(cmd, kind string) ([]byte, error) {
	if err := c.WaitReady(); err != nil {
		return nil, err
	}
	c.metrics.Command(kind)
	c.last = cmd
	if err := c.write(cmd); err != nil {
		return nil, err
	}
	resp, err := c.read()
	switch {
	case errors.Is(err, io.EOF) && len(resp) == 0:
		return nil, fmt.Errorf("%w: %s: %w", ErrIncompleteTransfer, cmd, err)
	case errors.Is(err, io.EOF):
		// the completion loops decide whether the partial response will do
		c.log.Warnf("%s: connection closed after %d bytes", cmd, len(resp))
	case err != nil:
		return resp, fmt.Errorf("reading %s response: %w", cmd, err)
	}
	c.log.Debugf("%s: %s", cmd, cmdlog.Describe(resp))
	return resp, nil
}

func (c *Channel) write(cmd string) error {
	b := make([]byte, 0, len(cmd)+1)
	b = append(b, strings.TrimSpace(cmd)...)
	b = append(b, terminator)
	if _, err := c.sess.Write(b); err != nil {
		return fmt.Errorf("writing %s: %w", cmd, err)
	}
	return nil
}

func (c *Channel) read() ([]byte, error) {
	resp, err := c.sess.ReadUntil(terminator, c.wait)
	c.metrics.Read(len(resp))
	return resp, err
}

func discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
