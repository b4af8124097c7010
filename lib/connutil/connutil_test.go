package connutil

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	rigol "github.com/Kalofin/DS1054Z-screen-capture"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/config"
)

// serve answers *OPC? and *IDN? on a loopback listener until the client
// hangs up, which closes hungUp.
func serve(t *testing.T, idn string) (host string, port int, hungUp <-chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	done := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				close(done)
				return
			}
			switch line {
			case "*OPC?\n":
				io.WriteString(conn, "1\n")
			case "*IDN?\n":
				io.WriteString(conn, idn)
			}
		}
	}()
	h, p, _ := net.SplitHostPort(ln.Addr().String())
	port, _ = strconv.Atoi(p)
	return h, port, done
}

func waitHangUp(t *testing.T, hungUp <-chan struct{}) {
	t.Helper()
	select {
	case <-hungUp:
	case <-time.After(2 * time.Second):
		t.Error("session still open")
	}
}

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSetup(t *testing.T) {
	host, port, hungUp := serve(t, "RIGOL TECHNOLOGIES,DS1054Z,DS1ZA1,00.04.04\n")
	c := Conn{Host: host, Port: port, Wait: 200 * time.Millisecond, DialTimeout: time.Second}

	scope, cleanup, err := c.Setup(quiet(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if scope.ID.Model != "DS1054Z" {
		t.Errorf("model %q", scope.ID.Model)
	}
	select {
	case <-hungUp:
		t.Fatal("session closed before cleanup")
	default:
	}
	if err := cleanup(); err != nil {
		t.Errorf("cleanup: %v", err)
	}
	waitHangUp(t, hungUp)
}

func TestSetupWrongDevice(t *testing.T) {
	host, port, hungUp := serve(t, "ACME,Multimeter,1,1\n")
	c := Conn{Host: host, Port: port, Wait: 200 * time.Millisecond, DialTimeout: time.Second}

	_, cleanup, err := c.Setup(quiet(), nil)
	if !errors.Is(err, rigol.ErrDeviceNotRecognized) {
		t.Fatalf("err %v, want ErrDeviceNotRecognized", err)
	}
	// closed by Setup itself, before cleanup is called
	waitHangUp(t, hungUp)
	if err := cleanup(); err != nil {
		t.Errorf("cleanup after failure: %v", err)
	}
}

func TestApply(t *testing.T) {
	sc := config.Default().Scope
	sc.Host = "10.0.0.7"
	c := FromConfig(sc)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.AddFlags(fs)
	if err := fs.Parse([]string{"--wait", "3s", "--telnet"}); err != nil {
		t.Fatal(err)
	}
	c.Apply(fs, &sc)

	// flags given on the command line win, the rest keep the file's values
	if sc.Host != "10.0.0.7" || sc.Wait != 3*time.Second || !sc.Telnet {
		t.Errorf("scope config %+v", sc)
	}
	if c.Host != "10.0.0.7" || c.Wait != 3*time.Second {
		t.Errorf("conn %+v", c)
	}
}
