package chario

import (
	"bufio"
	"os"

	"golang.org/x/term"
)

// Line is the default console backend: a column-tracking writer over
// stdout plus a background reader goroutine over stdin so StatusByte can
// answer without blocking (CP/M's "console status" call has no concept
// of waiting). Stdin is switched into raw mode for the life of the Line
// so a guest's own BDOS-level line editor sees every keystroke
// unfiltered by the host tty driver, rather than fighting it for
// control of echo and line buffering.
type Line struct {
	out *bufio.Writer
	col int

	in     chan uint8
	closed chan struct{}

	rawState *term.State
}

// NewLine starts the background stdin reader and returns a ready Line.
// If stdin isn't a terminal (e.g. piped input in a test harness), raw
// mode is silently skipped and bytes are read as given.
func NewLine() *Line {
	l := &Line{
		out:    bufio.NewWriter(os.Stdout),
		in:     make(chan uint8, 256),
		closed: make(chan struct{}),
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if st, err := term.MakeRaw(int(os.Stdin.Fd())); err == nil {
			l.rawState = st
		}
	}
	go l.pump()
	return l
}

func (l *Line) pump() {
	r := bufio.NewReader(os.Stdin)
	for {
		b, err := r.ReadByte()
		if err != nil {
			close(l.in)
			return
		}
		select {
		case l.in <- b:
		case <-l.closed:
			close(l.in)
			return
		}
	}
}

// Column reports the 0-based output column, used by the BDOS line
// editor (function 10) to find where a ^R redisplay starts.
func (l *Line) Column() int { return l.col }

func (l *Line) WriteByte(b uint8) {
	switch b {
	case '\r':
		l.col = 0
	case '\n':
		// column unchanged; CP/M programs emit CR LF together
	case '\b':
		if l.col > 0 {
			l.col--
		}
	case '\t':
		l.col = (l.col/8 + 1) * 8
	default:
		if b >= 0x20 && b < 0x7F {
			l.col++
		}
	}
	l.out.WriteByte(b)
	l.out.Flush()
}

func (l *Line) ReadByte() (uint8, bool) {
	b, ok := <-l.in
	return b, ok
}

func (l *Line) StatusByte() bool {
	return len(l.in) > 0
}

func (l *Line) Close() error {
	close(l.closed)
	if l.rawState != nil {
		term.Restore(int(os.Stdin.Fd()), l.rawState)
	}
	return l.out.Flush()
}
