package rigol

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Kalofin/DS1054Z-screen-capture/lib/metrics"
)

func TestExecuteWaitsForReady(t *testing.T) {
	f := newFakeScope().on(":CHAN1:DISP?", "1\n")
	// one poll times out, one reports busy, the third is ready
	f.opc = []string{"", "0\n"}
	c := NewChannel(f)

	resp, err := c.Execute(":CHAN1:DISP?")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "1\n" {
		t.Errorf("response %q, want %q", resp, "1\n")
	}
	want := []string{"*OPC?", "*OPC?", "*OPC?", ":CHAN1:DISP?"}
	if !reflect.DeepEqual(f.sent, want) {
		t.Errorf("sent %q, want %q", f.sent, want)
	}
}

func TestWaitReadyIdempotent(t *testing.T) {
	f := newFakeScope()
	c := NewChannel(f)
	for i := 0; i < 3; i++ {
		if err := c.WaitReady(); err != nil {
			t.Fatal(err)
		}
	}
	if len(f.commands()) != 0 {
		t.Errorf("WaitReady sent %q", f.commands())
	}
	if len(f.pending) != 0 {
		t.Errorf("unread replies left: %q", f.pending)
	}
}

func TestReadyTimeout(t *testing.T) {
	f := newFakeScope()
	f.busy = true
	c := NewChannel(f, WithReadyTimeout(20*time.Millisecond))

	_, err := c.Execute("*IDN?")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("err %v, want ErrNotReady", err)
	}
	for _, cmd := range f.sent {
		if cmd == "*IDN?" {
			t.Fatal("command sent while instrument was busy")
		}
	}
}

func TestExecuteBinaryKeepsBytes(t *testing.T) {
	raw := "#15\x00\r\xff\x01\x1b\n"
	f := newFakeScope().on(":DISP:DATA?", raw)
	c := NewChannel(f)

	b, err := c.ExecuteBinary(":DISP:DATA?")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != raw {
		t.Errorf("got %q, want %q", b, raw)
	}
}

func TestCommandDoesNotRead(t *testing.T) {
	f := newFakeScope()
	c := NewChannel(f)
	if err := c.Command(":WAV:FORM ASC"); err != nil {
		t.Fatal(err)
	}
	if f.reads != 1 {
		t.Errorf("%d reads, want only the *OPC? read", f.reads)
	}
	if got := f.commands(); !reflect.DeepEqual(got, []string{":WAV:FORM ASC"}) {
		t.Errorf("sent %q", got)
	}
}

func TestQueryTrims(t *testing.T) {
	f := newFakeScope().on(":ACQ:SRAT?", "1.000000e+09\n")
	c := NewChannel(f)
	s, err := c.Query(" :ACQ:SRAT? ")
	if err != nil {
		t.Fatal(err)
	}
	if s != "1.000000e+09" {
		t.Errorf("got %q", s)
	}
	if got := f.commands(); !reflect.DeepEqual(got, []string{":ACQ:SRAT?"}) {
		t.Errorf("sent %q", got)
	}
}

func TestChannelMetrics(t *testing.T) {
	f := newFakeScope().on("*IDN?", "RIGOL TECHNOLOGIES,DS1054Z,DS1ZA1,00.04.04\n")
	f.opc = []string{"0\n"}
	m := metrics.New()
	c := NewChannel(f, WithMetrics(m))

	if _, err := c.Execute("*IDN?"); err != nil {
		t.Fatal(err)
	}
	if err := c.Command(":WAV:MODE NORM"); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.ReadyPolls); got != 3 {
		t.Errorf("ready polls %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Commands.WithLabelValues(metrics.KindText)); got != 1 {
		t.Errorf("text commands %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Commands.WithLabelValues(metrics.KindWrite)); got != 1 {
		t.Errorf("write commands %v, want 1", got)
	}
	// 3 polls of 2 bytes plus the identity
	if got := testutil.ToFloat64(m.BytesReceived); got != 6+43 {
		t.Errorf("bytes %v, want %d", got, 6+43)
	}
}

func TestRejectedSetterFailsNextExchange(t *testing.T) {
	f := newFakeScope().on(":WAV:SOUR CHAN9", "command error\n")
	c := NewChannel(f)

	if err := c.Command(":WAV:SOUR CHAN9"); err != nil {
		t.Fatal(err)
	}
	err := c.Command(":WAV:FORM ASC")
	if !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("err %v, want ErrCommandRejected", err)
	}
	if !strings.Contains(err.Error(), ":WAV:SOUR CHAN9") {
		t.Errorf("error %q does not name the refused setter", err)
	}
	if got := f.commands(); !reflect.DeepEqual(got, []string{":WAV:SOUR CHAN9"}) {
		t.Errorf("sent %q", got)
	}
}
