package chario

import (
	"github.com/gdamore/tcell/v2"
)

// escState tracks how many bytes of a VT52 escape sequence have been
// consumed so far; VT52's sequences are short and fixed-length once the
// leading letter is known, unlike ANSI's variable-length CSI forms.
type escState int

const (
	escNone escState = iota
	escSeen        // ESC consumed, waiting for the letter
	escY1          // ESC Y consumed, waiting for the row byte
	escY2          // ESC Y row consumed, waiting for the column byte
)

// VT52 emulates the handful of VT52 escape sequences CP/M programs
// actually issue (cursor addressing, home, erase-to-end-of-line/screen)
// on top of a tcell.Screen, repurposed here as a direct character-cell
// terminal rather than a widget host.
type VT52 struct {
	screen tcell.Screen
	state  escState
	row    int
	col    int
	rows   int
	cols   int
	events chan tcell.Event
	done   chan struct{}
}

// NewVT52 initializes a tcell.Screen sized rows x cols and starts the
// background event pump that feeds ReadByte/StatusByte.
func NewVT52(rows, cols int) (*VT52, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.SetSize(cols, rows)
	screen.Clear()
	screen.Show()

	v := &VT52{
		screen: screen,
		rows:   rows,
		cols:   cols,
		events: make(chan tcell.Event, 64),
		done:   make(chan struct{}),
	}
	go screen.ChannelEvents(v.events, v.done)
	return v, nil
}

func (v *VT52) WriteByte(b uint8) {
	switch v.state {
	case escSeen:
		v.handleEscLetter(b)
		return
	case escY1:
		v.row = int(b) - 32
		v.state = escY2
		return
	case escY2:
		v.col = int(b) - 32
		v.clampCursor()
		v.state = escNone
		return
	}

	switch b {
	case 0x1B:
		v.state = escSeen
	case '\r':
		v.col = 0
	case '\n':
		v.row++
		v.clampCursor()
		v.scrollIfNeeded()
	case '\b':
		if v.col > 0 {
			v.col--
		}
	case 0x07: // BEL
		v.screen.Beep()
	default:
		if b >= 0x20 && b < 0x7F {
			v.screen.SetContent(v.col, v.row, rune(b), nil, tcell.StyleDefault)
			v.col++
			if v.col >= v.cols {
				v.col = 0
				v.row++
				v.clampCursor()
				v.scrollIfNeeded()
			}
		}
	}
	v.screen.ShowCursor(v.col, v.row)
	v.screen.Show()
}

func (v *VT52) handleEscLetter(b uint8) {
	v.state = escNone
	switch b {
	case 'A':
		if v.row > 0 {
			v.row--
		}
	case 'B':
		if v.row < v.rows-1 {
			v.row++
		}
	case 'C':
		if v.col < v.cols-1 {
			v.col++
		}
	case 'D':
		if v.col > 0 {
			v.col--
		}
	case 'H': // home
		v.row, v.col = 0, 0
	case 'I': // reverse line feed
		if v.row > 0 {
			v.row--
		}
	case 'J': // erase to end of screen
		v.eraseToEOL()
		for r := v.row + 1; r < v.rows; r++ {
			for c := 0; c < v.cols; c++ {
				v.screen.SetContent(c, r, ' ', nil, tcell.StyleDefault)
			}
		}
	case 'K': // erase to end of line
		v.eraseToEOL()
	case 'Y': // direct cursor address follows: row, col
		v.state = escY1
	default:
		// Unrecognized sequence: ignored, matching a real VT52 terminal's
		// tolerance of stray escape sequences it doesn't implement.
	}
}

func (v *VT52) eraseToEOL() {
	for c := v.col; c < v.cols; c++ {
		v.screen.SetContent(c, v.row, ' ', nil, tcell.StyleDefault)
	}
}

func (v *VT52) clampCursor() {
	if v.row < 0 {
		v.row = 0
	}
	if v.col < 0 {
		v.col = 0
	}
	if v.col >= v.cols {
		v.col = v.cols - 1
	}
}

func (v *VT52) scrollIfNeeded() {
	if v.row < v.rows {
		return
	}
	v.screen.Sync() // tcell has no native scroll-region primitive; redraw
	v.row = v.rows - 1
}

func (v *VT52) ReadByte() (uint8, bool) {
	for {
		select {
		case ev, ok := <-v.events:
			if !ok {
				return 0, false
			}
			if b, ok := keyEventToByte(ev); ok {
				return b, true
			}
		case <-v.done:
			return 0, false
		}
	}
}

func (v *VT52) StatusByte() bool {
	return len(v.events) > 0
}

func (v *VT52) Close() error {
	close(v.done)
	v.screen.Fini()
	return nil
}

func keyEventToByte(ev tcell.Event) (uint8, bool) {
	ke, ok := ev.(*tcell.EventKey)
	if !ok {
		return 0, false
	}
	switch ke.Key() {
	case tcell.KeyEnter:
		return '\r', true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return '\b', true
	case tcell.KeyCtrlC:
		return 0x03, true
	case tcell.KeyRune:
		r := ke.Rune()
		if r < 0x80 {
			return uint8(r), true
		}
	}
	return 0, false
}
