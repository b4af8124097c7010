// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rigol

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gotmc/query"

	"github.com/Kalofin/DS1054Z-screen-capture/lib/samples"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/tmc"
)

// Waveform sources, in the order they are scanned.
var Sources = []string{"CHAN1", "CHAN2", "CHAN3", "CHAN4", "MATH"}

const (
	// MATH has a fixed window, the others are read over the screen's
	// 1200 points.
	mathSource = "MATH"
	waveStart  = 1
	waveStop   = 1200

	// horizontal grid divisions of the DS1000Z display
	hGrid = 12

	screenQuery   = ":DISP:DATA?"
	waveDataQuery = ":WAV:DATA?"
	enabledToken  = "1\n"
)

// Scope is a DS1000Z oscilloscope reached through a command channel.
type Scope struct {
	*Channel
	ID Identity
}

// Open identifies the instrument on ch and checks that it is a supported
// scope.
func Open(ch *Channel) (*Scope, error) {
	resp, err := ch.Execute("*IDN?")
	if err != nil {
		return nil, err
	}
	id, err := ParseIdentity(resp)
	if err != nil {
		return nil, err
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	ch.log.Infof("instrument ID: %s", id)
	return &Scope{Channel: ch, ID: id}, nil
}

// Screen returns the display image exactly as the scope sends it, normally a
// BMP file.
func (s *Scope) Screen() ([]byte, error) {
	defer s.metrics.Since("screen", time.Now())

	buf, err := s.ExecuteBinary(screenQuery)
	if err != nil {
		return nil, err
	}
	if err := rejected(screenQuery, string(buf)); err != nil {
		return nil, err
	}
	buf, err = s.readBlock(screenQuery, buf)
	if err != nil {
		return nil, err
	}
	return tmc.Payload(buf)
}

// readBlock reads until buf holds the whole TMC block announced by its
// header. It fails with ErrIncompleteTransfer when a read brings nothing.
func (s *Scope) readBlock(cmd string, buf []byte) ([]byte, error) {
	for {
		want, err := tmc.TotalLen(buf)
		switch {
		case err == nil && len(buf) >= want:
			return buf, nil
		case err == nil:
			s.log.Warnf("%s: received less data than expected (%d out of %d bytes)", cmd, len(buf), want)
		case errors.Is(err, tmc.ErrShortHeader):
			s.log.Warnf("%s: block header incomplete after %d bytes", cmd, len(buf))
		default:
			return nil, fmt.Errorf("%s: %w", cmd, err)
		}

		more, rerr := s.ReadMore()
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return nil, fmt.Errorf("%s: %w", cmd, rerr)
		}
		if len(more) == 0 {
			if want == 0 {
				return nil, fmt.Errorf("%w: %s: %d bytes, header incomplete", ErrIncompleteTransfer, cmd, len(buf))
			}
			s.log.Errorf("%s: after reading all data chunks only %d out of %d bytes arrived", cmd, len(buf), want)
			return nil, fmt.Errorf("%w: %s: %d of %d bytes", ErrIncompleteTransfer, cmd, len(buf), want)
		}
		s.metrics.Refill()
		buf = append(buf, more...)
		s.log.Warnf("%s: %d leftover bytes added", cmd, len(more))
	}
}

// readText reads until the text response ends with the line terminator.
func (s *Scope) readText(cmd, resp string) (string, error) {
	for !strings.HasSuffix(resp, "\n") {
		s.log.Warnf("%s: transfer did not complete within %s", cmd, s.Wait())
		more, err := s.ReadMore()
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%s: %w", cmd, err)
		}
		if len(more) == 0 {
			s.log.Errorf("%s: no terminator after %d bytes", cmd, len(resp))
			return "", fmt.Errorf("%w: %s: no terminator after %d bytes", ErrIncompleteTransfer, cmd, len(resp))
		}
		s.metrics.Refill()
		resp += string(more)
		s.log.Warnf("%s: %d leftover bytes added", cmd, len(more))
	}
	return resp, nil
}

// ActiveChannels returns the sources shown on the display, in scan order.
func (s *Scope) ActiveChannels() ([]string, error) {
	var active []string
	for _, src := range Sources {
		cmd := ":" + src + ":DISP?"
		resp, err := s.Execute(cmd)
		if err != nil {
			return nil, err
		}
		if err := rejected(cmd, resp); err != nil {
			return nil, err
		}
		if resp == enabledToken {
			active = append(active, src)
		}
	}
	return active, nil
}

// Waveforms reads the displayed points of every active channel, one column
// per channel. Channels returning different point counts are kept; the
// missing cells are empty.
func (s *Scope) Waveforms() (*samples.Table, error) {
	defer s.metrics.Since("csv", time.Now())

	active, err := s.ActiveChannels()
	if err != nil {
		return nil, err
	}
	s.log.Infof("active channels: %v", active)

	var table samples.Table
	if len(active) == 0 {
		return &table, nil
	}
	if err := s.Command(":WAV:MODE NORM"); err != nil {
		return nil, err
	}
	for _, src := range active {
		points, err := s.Waveform(src)
		if err != nil {
			return nil, err
		}
		table.AddColumn(src, points)
	}
	return &table, nil
}

// Waveform reads the points of one source as the ASCII values the scope
// sends.
func (s *Scope) Waveform(src string) ([]string, error) {
	cmds := []string{
		":WAV:SOUR " + src,
		":WAV:FORM ASC",
	}
	if src != mathSource {
		cmds = append(cmds,
			":WAV:STAR "+strconv.Itoa(waveStart),
			":WAV:STOP "+strconv.Itoa(waveStop),
		)
	}
	for _, cmd := range cmds {
		if err := s.Command(cmd); err != nil {
			return nil, err
		}
	}

	s.log.Infof("data from channel %s, points %d-%d", src, waveStart, waveStop)
	resp, err := s.Execute(waveDataQuery)
	if err != nil {
		return nil, err
	}
	if err := rejected(waveDataQuery, resp); err != nil {
		return nil, err
	}
	resp, err = s.readText(waveDataQuery, resp)
	if err != nil {
		return nil, err
	}
	return splitPoints(resp)
}

// splitPoints strips the block header and terminator from an ASCII waveform
// and splits the comma-separated values.
func splitPoints(resp string) ([]string, error) {
	hl, err := tmc.HeaderLen([]byte(resp))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", waveDataQuery, err)
	}
	if len(resp) < hl+1 {
		return nil, fmt.Errorf("%s: %w: %d byte response shorter than its header", waveDataQuery, ErrMalformedHeader, len(resp))
	}
	body := strings.TrimRightFunc(resp[hl:len(resp)-1], unicode.IsSpace)
	if body == "" {
		return nil, nil
	}
	return strings.Split(body, ","), nil
}

// MemoryDepth returns the acquisition memory depth in points. In AUTO mode
// the depth is derived from the timebase and sample rate.
func (s *Scope) MemoryDepth() (int, error) {
	mdep, err := s.Query(":ACQ:MDEP?")
	if err != nil {
		return 0, err
	}
	if mdep == "AUTO" {
		srate, err := query.Float64(s.Channel, ":ACQ:SRAT?")
		if err != nil {
			return 0, err
		}
		scal, err := query.Float64(s.Channel, ":TIM:SCAL?")
		if err != nil {
			return 0, err
		}
		return int(math.Round(hGrid * scal * srate)), nil
	}
	f, err := strconv.ParseFloat(mdep, 64)
	if err != nil {
		return 0, fmt.Errorf(":ACQ:MDEP? returned %q: %w", mdep, err)
	}
	return int(f), nil
}

func rejected(cmd, resp string) error {
	if strings.TrimSpace(resp) == commandError {
		return fmt.Errorf("%s: %w", cmd, ErrCommandRejected)
	}
	return nil
}
