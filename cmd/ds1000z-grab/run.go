// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	rigol "github.com/Kalofin/DS1054Z-screen-capture"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/cmdlog"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/config"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/connutil"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/metrics"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/sink"
)

var now = time.Now

// mode is what a run captures and where it goes.
type mode int

const (
	modeClip mode = iota
	modePNG
	modeBMP
	modeCSV
)

func parseMode(s string) (mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clip", "clipboard-copy":
		return modeClip, nil
	case "png", "image":
		return modePNG, nil
	case "bmp", "bitmap":
		return modeBMP, nil
	case "csv":
		return modeCSV, nil
	}
	return 0, fmt.Errorf("unknown format %q, want png, bmp, csv or clip", s)
}

// ext is the file extension of the saved capture, empty for the clipboard.
func (m mode) ext() string {
	switch m {
	case modePNG:
		return ".png"
	case modeBMP:
		return ".bmp"
	case modeCSV:
		return ".csv"
	}
	return ""
}

func run(cfg *config.Config, con *cmdlog.Console) (err error) {
	m, err := parseMode(cfg.Output.Format)
	if err != nil {
		return err
	}

	log, closeLog, err := cmdlog.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeLog()) }()

	var tm *metrics.Transfer
	if cfg.Metrics.Textfile != "" {
		tm = metrics.New()
		defer func() { err = multierr.Append(err, tm.WriteTextfile(cfg.Metrics.Textfile)) }()
	}

	conn := connutil.FromConfig(cfg.Scope)
	scope, cleanup, err := conn.Setup(log, tm)
	if err != nil {
		explain(con, cfg.Scope.Host, err)
		return err
	}
	defer func() { err = multierr.Append(err, cleanup()) }()
	con.Printf("Instrument ID: %s", scope.ID)

	name := filepath.Join(filepath.Clean(cfg.Output.Path), scope.ID.FileStem(now())+m.ext())
	switch m {
	case modeCSV:
		err = saveWaveforms(scope, log, con, name)
	default:
		err = saveScreen(scope, con, m, name)
	}
	if err != nil {
		explain(con, cfg.Scope.Host, err)
	}
	return err
}

func saveScreen(scope *rigol.Scope, con *cmdlog.Console, m mode, name string) error {
	con.Progressf("Receiving screen capture...")
	data, err := scope.Screen()
	if err != nil {
		return err
	}

	switch m {
	case modePNG:
		err = sink.Image(name, data, sink.PNG)
	case modeBMP:
		err = sink.Image(name, data, sink.BMP)
	default:
		err = sink.Clipboard(data)
		if errors.Is(err, sink.ErrClipboardUnsupported) {
			con.Warnf("Copying screen shots to the clipboard on %s is not supported yet.", runtime.GOOS)
			return nil
		}
		if err == nil {
			con.Donef("Copied to clipboard")
		}
		return err
	}
	if err != nil {
		return err
	}
	con.Donef("Saved file: '%s'", name)
	return nil
}

func saveWaveforms(scope *rigol.Scope, log logrus.FieldLogger, con *cmdlog.Console, name string) error {
	if depth, err := scope.MemoryDepth(); err != nil {
		log.Warnf("memory depth unknown: %s", err)
	} else {
		log.Infof("memory depth %d points", depth)
	}

	con.Progressf("Receiving waveforms of the displayed channels, points 1-1200...")
	table, err := scope.Waveforms()
	if err != nil {
		return err
	}
	if len(table.Columns()) == 0 {
		con.Warnf("No channel is displayed. Nothing done.")
		return nil
	}
	for _, ch := range table.Columns() {
		n := 0
		for r := 0; r < table.Rows(); r++ {
			if _, ok := table.Value(r, ch); ok {
				n++
			}
		}
		con.Printf("Data from channel '%s': %d points", ch, n)
	}
	if err := sink.CSV(name, table); err != nil {
		return err
	}
	con.Donef("Saved file: '%s'", name)
	return nil
}

// explain prints the hints the person at the scope needs for the errors they
// can fix there.
func explain(con *cmdlog.Console, host string, err error) {
	switch {
	case errors.Is(err, rigol.ErrCommandRejected):
		con.Errorf("Instrument reply: command error")
		con.Printf("Check the oscilloscope settings.")
		con.Printf("Utility -> IO Setting -> RemoteIO -> LAN must be ON")
	case errors.Is(err, rigol.ErrDeviceNotRecognized):
		con.Warnf("WARNING: No Rigol from series DS1000Z found at %s", host)
	case errors.Is(err, rigol.ErrIncompleteTransfer):
		con.Errorf("The transfer did not complete. Try a longer --wait.")
	}
}
