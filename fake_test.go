package rigol

import (
	"bytes"
	"io"
	"strings"
	"time"
)

// fakeScope is an in-memory instrument. Every reply is a list of chunks; each
// chunk is what arrives within one bounded wait. Reads stop at the delimiter
// inside a chunk and leave the rest for the next read.
type fakeScope struct {
	// replies holds the successive answers to a command. The last one
	// repeats.
	replies map[string][][]string

	// opc is consumed by successive *OPC? polls before they start
	// answering "1\n". An empty entry is a poll that times out.
	opc []string

	// busy makes every *OPC? poll answer "0\n".
	busy bool

	// closed makes reads return io.EOF once nothing is pending, as when
	// the peer hangs up.
	closed bool

	sent    []string
	pending [][]byte
	reads   int
}

func newFakeScope() *fakeScope {
	return &fakeScope{replies: map[string][][]string{}}
}

// on sets the reply to cmd, replacing any queued ones.
func (f *fakeScope) on(cmd string, chunks ...string) *fakeScope {
	f.replies[cmd] = [][]string{chunks}
	return f
}

// then queues a reply for the next time cmd is sent.
func (f *fakeScope) then(cmd string, chunks ...string) *fakeScope {
	f.replies[cmd] = append(f.replies[cmd], chunks)
	return f
}

func (f *fakeScope) Write(p []byte) (int, error) {
	for _, line := range strings.SplitAfter(string(p), "\n") {
		if line == "" {
			continue
		}
		cmd := strings.TrimSuffix(line, "\n")
		f.sent = append(f.sent, cmd)
		if cmd == readyQuery {
			reply := readyToken
			switch {
			case f.busy:
				reply = "0\n"
			case len(f.opc) > 0:
				reply, f.opc = f.opc[0], f.opc[1:]
			}
			if reply != "" {
				f.pending = append(f.pending, []byte(reply))
			}
			continue
		}
		queue := f.replies[cmd]
		if len(queue) == 0 {
			continue
		}
		if len(queue) > 1 {
			f.replies[cmd] = queue[1:]
		}
		for _, c := range queue[0] {
			f.pending = append(f.pending, []byte(c))
		}
	}
	return len(p), nil
}

func (f *fakeScope) ReadUntil(delim byte, wait time.Duration) ([]byte, error) {
	f.reads++
	if len(f.pending) == 0 {
		if f.closed {
			return nil, io.EOF
		}
		return nil, nil
	}
	chunk := f.pending[0]
	if i := bytes.IndexByte(chunk, delim); i >= 0 && i < len(chunk)-1 {
		f.pending[0] = chunk[i+1:]
		return chunk[:i+1], nil
	}
	f.pending = f.pending[1:]
	if f.closed && len(f.pending) == 0 && chunk[len(chunk)-1] != delim {
		return chunk, io.EOF
	}
	return chunk, nil
}

// commands returns what was sent, without the *OPC? polls.
func (f *fakeScope) commands() []string {
	var cmds []string
	for _, c := range f.sent {
		if c != readyQuery {
			cmds = append(cmds, c)
		}
	}
	return cmds
}
