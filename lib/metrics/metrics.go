// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package metrics counts instrument traffic for one capture run. The counters
// live in a private registry that can be dumped in the node_exporter textfile
// format when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command kinds used as the "kind" label.
const (
	KindText   = "text"
	KindBinary = "binary"
	KindWrite  = "write"
)

// Transfer holds the counters for a run. A nil *Transfer is valid and records
// nothing.
type Transfer struct {
	reg *prometheus.Registry

	Commands        *prometheus.CounterVec
	ReadyPolls      prometheus.Counter
	Reads           prometheus.Counter
	BytesReceived   prometheus.Counter
	Refills         prometheus.Counter
	CaptureDuration *prometheus.HistogramVec
}

// New creates the counters and registers them.
func New() *Transfer {
	t := &Transfer{
		reg: prometheus.NewRegistry(),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ds1000z_commands_total",
				Help: "SCPI commands sent, by kind",
			},
			[]string{"kind"},
		),
		ReadyPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ds1000z_ready_polls_total",
			Help: "*OPC? queries sent before a command",
		}),
		Reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ds1000z_read_events_total",
			Help: "Bounded reads issued on the session",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ds1000z_bytes_received_total",
			Help: "Bytes read from the instrument",
		}),
		Refills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ds1000z_refill_reads_total",
			Help: "Extra reads needed to complete a response",
		}),
		CaptureDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ds1000z_capture_duration_seconds",
				Help:    "Time taken by a capture, by mode",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"mode"},
		),
	}
	t.reg.MustRegister(
		t.Commands,
		t.ReadyPolls,
		t.Reads,
		t.BytesReceived,
		t.Refills,
		t.CaptureDuration,
	)
	return t
}

// Command counts one command of the given kind.
func (t *Transfer) Command(kind string) {
	if t == nil {
		return
	}
	t.Commands.WithLabelValues(kind).Inc()
}

// ReadyPoll counts one *OPC? poll.
func (t *Transfer) ReadyPoll() {
	if t == nil {
		return
	}
	t.ReadyPolls.Inc()
}

// Read counts a bounded read that returned n bytes.
func (t *Transfer) Read(n int) {
	if t == nil {
		return
	}
	t.Reads.Inc()
	t.BytesReceived.Add(float64(n))
}

// Refill counts a completion-loop read.
func (t *Transfer) Refill() {
	if t == nil {
		return
	}
	t.Refills.Inc()
}

// Since records the time elapsed since start for a capture mode.
func (t *Transfer) Since(mode string, start time.Time) {
	if t == nil {
		return
	}
	t.CaptureDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes all counters to path in the text exposition format.
func (t *Transfer) WriteTextfile(path string) error {
	if t == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, t.reg)
}
