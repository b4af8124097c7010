// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package cmdlog sets up the run's diagnostic logger and the styled console
// used for user-facing progress messages.
package cmdlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// binary payloads are only partially dumped
const maxHexDump = 32

func isASCII(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

// Describe renders an instrument response for a log line: quoted text when it
// is printable, quoted and hex when it is short binary, a truncated hex dump
// otherwise.
func Describe(b []byte) string {
	s := strings.TrimSuffix(string(b), "\n")
	switch {
	case len(s) == 0:
		return "<no response>"
	case isASCII(s):
		return fmt.Sprintf("[%d] %q", len(b), s)
	case len(s) < maxHexDump:
		return fmt.Sprintf("[%d] %q (% 2x)", len(b), s, []byte(s))
	default:
		return fmt.Sprintf("[%d] % 2x ...", len(b), []byte(s[:maxHexDump]))
	}
}

// NewLogger builds the diagnostic logger. Entries go to path, which is only
// created (and truncated) when the first entry is written. An empty path logs
// to stderr. The returned close function flushes and closes the file.
func NewLogger(level, format, path string) (*logrus.Logger, func() error, error) {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			DisableColors:   path != "",
		})
	}

	if path == "" {
		log.SetOutput(os.Stderr)
		return log, func() error { return nil }, nil
	}
	f := &lazyFile{path: path}
	log.SetOutput(f)
	return log, f.Close, nil
}

// lazyFile opens its file on first write.
type lazyFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
	err  error
}

func (l *lazyFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil && l.err == nil {
		l.f, l.err = os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	}
	if l.err != nil {
		return 0, l.err
	}
	return l.f.Write(p)
}

func (l *lazyFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// Console prints progress for the person running the tool.
type Console struct {
	w io.Writer

	Cmd  lipgloss.Style
	OK   lipgloss.Style
	Warn lipgloss.Style
	Err  lipgloss.Style
}

// NewConsole styles output for w. Colours are dropped when w is not a
// terminal.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:    w,
		Cmd:  r.NewStyle().Foreground(lipgloss.Color("12")),
		OK:   r.NewStyle().Foreground(lipgloss.Color("35")),
		Warn: r.NewStyle().Foreground(lipgloss.Color("214")),
		Err:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

// Printf prints an unstyled line.
func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintln(c.w, fmt.Sprintf(format, a...))
}

// Progressf prints a line announcing a transfer step.
func (c *Console) Progressf(format string, a ...any) {
	fmt.Fprintln(c.w, c.Cmd.Render(fmt.Sprintf(format, a...)))
}

// Donef prints a success line.
func (c *Console) Donef(format string, a ...any) {
	fmt.Fprintln(c.w, c.OK.Render(fmt.Sprintf(format, a...)))
}

// Warnf prints a warning line.
func (c *Console) Warnf(format string, a ...any) {
	fmt.Fprintln(c.w, c.Warn.Render(fmt.Sprintf(format, a...)))
}

// Errorf prints an error line.
func (c *Console) Errorf(format string, a ...any) {
	fmt.Fprintln(c.w, c.Err.Render(fmt.Sprintf(format, a...)))
}
