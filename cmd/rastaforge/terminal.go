package main

import (
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// quitListener puts stdin into raw mode and watches for a single 'q'
// keypress, signalling on quitCh without requiring Enter. Grounded on
// the teacher's terminal_host.go raw-mode-plus-nonblocking-read pattern,
// narrowed from a full terminal MMIO bridge to one quit key.
type quitListener struct {
	fd       int
	oldState *term.State
	stopCh   chan struct{}
	done     chan struct{}
	stopped  sync.Once
}

// newQuitListener starts watching stdin if it is a terminal; if stdin is
// redirected (a pipe, /dev/null, a CI runner) or cannot be put into raw
// mode it returns a nil listener and a quitCh that never fires, which is
// the correct no-op for a non-interactive run.
func newQuitListener() (*quitListener, <-chan struct{}) {
	quitCh := make(chan struct{})
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, quitCh
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, quitCh
	}
	ql := &quitListener{
		fd:       fd,
		oldState: oldState,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(ql.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-ql.stopCh:
				return
			default:
			}
			n, err := syscall.Read(ql.fd, buf)
			if n > 0 && (buf[0] == 'q' || buf[0] == 'Q' || buf[0] == 3) {
				close(quitCh)
				return
			}
			if err != nil {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
	return ql, quitCh
}

// Stop restores the terminal to its prior state.
func (ql *quitListener) Stop() {
	if ql == nil {
		return
	}
	ql.stopped.Do(func() {
		close(ql.stopCh)
	})
	_ = term.Restore(ql.fd, ql.oldState)
}
