package trap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmulate/cpmemu/bdos"
	"github.com/cpmulate/cpmemu/chario"
	"github.com/cpmulate/cpmemu/fdos"
	"github.com/cpmulate/cpmemu/machine"
	"github.com/cpmulate/cpmemu/registry"
)

// fakeConsole is a minimal CharIO double that records written bytes,
// hands out queued bytes in order and reports whatever status the test
// sets, without pulling in the
// goroutine machinery of chario.Line.
type fakeConsole struct {
	written []byte
	queued  []byte
	ready   bool
}

func (f *fakeConsole) WriteByte(b uint8) { f.written = append(f.written, b) }
func (f *fakeConsole) ReadByte() (uint8, bool) {
	if len(f.queued) == 0 {
		return 0, false
	}
	b := f.queued[0]
	f.queued = f.queued[1:]
	return b, true
}
func (f *fakeConsole) StatusByte() bool { return f.ready }
func (f *fakeConsole) Close() error     { return nil }

func newDispatcher(t *testing.T, console chario.CharIO) *Dispatcher {
	t.Helper()
	fd := fdos.New(fdos.NewDrives(), registry.New(nil))
	b := bdos.New(fd, console, chario.NullDevice{}, chario.NullDevice{}, chario.NullDevice{}, nil)
	return New(b, nil)
}

func TestHandleWBootSetsNormalTermination(t *testing.T) {
	d := newDispatcher(t, &fakeConsole{})
	m := machine.New()
	d.Handle(m, biosWBoot)
	assert.True(t, m.Terminate)
	assert.Equal(t, machine.Normal, m.TermReason)
}

func TestHandleBootIsAnError(t *testing.T) {
	d := newDispatcher(t, &fakeConsole{})
	m := machine.New()
	d.Handle(m, biosBoot)
	assert.True(t, m.Terminate)
	assert.Equal(t, machine.ErrBoot, m.TermReason)
}

func TestHandleConstReflectsStatus(t *testing.T) {
	console := &fakeConsole{ready: true}
	d := newDispatcher(t, console)
	m := machine.New()
	d.Handle(m, biosConst)
	assert.Equal(t, uint8(0xFF), m.A)

	console.ready = false
	d.Handle(m, biosConst)
	assert.Equal(t, uint8(0x00), m.A)
}

func TestHandleConoutWritesC(t *testing.T) {
	console := &fakeConsole{}
	d := newDispatcher(t, console)
	m := machine.New()
	m.C = 'X'
	d.Handle(m, biosConout)
	require.Len(t, console.written, 1)
	assert.Equal(t, uint8('X'), console.written[0])
}

func TestHandleConinBlockedSetsHostError(t *testing.T) {
	d := newDispatcher(t, &fakeConsole{})
	m := machine.New()
	d.Handle(m, biosConin)
	assert.True(t, m.Terminate)
	assert.Equal(t, machine.ErrHost, m.TermReason)
}

func TestHandleDiskGeometryEntriesAreNoops(t *testing.T) {
	d := newDispatcher(t, &fakeConsole{})
	m := machine.New()
	for _, off := range []int{biosHome, biosSelDsk, biosSetTrk, biosSetSec, biosSetDMA, biosRead, biosWrite, biosSecTran} {
		d.Handle(m, off)
		assert.False(t, m.Terminate, "offset %d should not terminate", off)
	}
}

func TestHandleBDOSDispatchesToFunction0(t *testing.T) {
	d := newDispatcher(t, &fakeConsole{})
	m := machine.New()
	m.C = 0 // System Reset
	d.Handle(m, OffsetBDOS)
	assert.True(t, m.Terminate)
	assert.Equal(t, machine.Normal, m.TermReason)
}
