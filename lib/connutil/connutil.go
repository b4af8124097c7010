// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package connutil holds the connection flags shared by commands and opens
// the scope they name.
package connutil

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	rigol "github.com/Kalofin/DS1054Z-screen-capture"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/config"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/lan"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/metrics"
)

type Conn struct {
	Host         string
	Port         int
	Telnet       bool
	DialTimeout  time.Duration
	Wait         time.Duration
	ReadyTimeout time.Duration
}

// FromConfig returns the connection settings of the scope section.
func FromConfig(sc config.ScopeConfig) Conn {
	return Conn{
		Host:         sc.Host,
		Port:         sc.Port,
		Telnet:       sc.Telnet,
		DialTimeout:  sc.DialTimeout,
		Wait:         sc.Wait,
		ReadyTimeout: sc.ReadyTimeout,
	}
}

// AddFlags registers the connection flags on fs, with the current values as
// defaults. It is to be called before fs is parsed.
func (c *Conn) AddFlags(fs *pflag.FlagSet) {
	if c.Port == 0 {
		c.Port = lan.Port
	}
	if c.Wait == 0 {
		c.Wait = time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}

	fs.StringVarP(&c.Host, "ip", "i", c.Host, "IP address of the oscilloscope")
	fs.IntVar(&c.Port, "port", c.Port, "SCPI port of the oscilloscope")
	fs.BoolVar(&c.Telnet, "telnet", c.Telnet, "talk to the scope through a telnet client instead of raw TCP")
	fs.DurationVar(&c.DialTimeout, "dial-timeout", c.DialTimeout, "time allowed to connect")
	fs.DurationVar(&c.Wait, "wait", c.Wait, "bounded wait of each read")
	fs.DurationVar(&c.ReadyTimeout, "ready-timeout", c.ReadyTimeout, "give up when the scope stays busy this long (0 waits forever)")
}

// Apply copies the flags that were set on fs into sc, leaving the others as
// loaded.
func (c *Conn) Apply(fs *pflag.FlagSet, sc *config.ScopeConfig) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "ip":
			sc.Host = c.Host
		case "port":
			sc.Port = c.Port
		case "telnet":
			sc.Telnet = c.Telnet
		case "dial-timeout":
			sc.DialTimeout = c.DialTimeout
		case "wait":
			sc.Wait = c.Wait
		case "ready-timeout":
			sc.ReadyTimeout = c.ReadyTimeout
		}
	})
	*c = FromConfig(*sc)
}

// Setup connects to the scope and identifies it. The cleanup function closes
// the session and must be called once the scope is no longer used; on error
// the session is already closed.
func (c *Conn) Setup(log logrus.FieldLogger, m *metrics.Transfer) (scope *rigol.Scope, cleanup func() error, err error) {
	nocleanup := func() error { return nil }

	log.Infof("connecting to %s port %d", c.Host, c.Port)
	opts := []lan.SessionOption{lan.WithDialTimeout(c.DialTimeout)}
	if c.Telnet {
		opts = append(opts, lan.WithTelnet())
	}
	sess, err := lan.Dial(c.Host, c.Port, opts...)
	if err != nil {
		return nil, nocleanup, err
	}

	ch := rigol.NewChannel(sess,
		rigol.WithWait(c.Wait),
		rigol.WithReadyTimeout(c.ReadyTimeout),
		rigol.WithLogger(log),
		rigol.WithMetrics(m),
	)
	scope, err = rigol.Open(ch)
	if err != nil {
		return nil, nocleanup, multierr.Append(err, sess.Close())
	}

	cleanup = func() error {
		log.Infof("closing session to %s", sess.Addr())
		return sess.Close()
	}
	return scope, cleanup, nil
}
