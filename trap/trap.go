// Package trap implements the magic-page dispatcher: the 19-entry table
// a guest reaches by jumping into machine.MagicBase..0xFFFF, simulating
// CALL 5 (BDOS) and the BIOS jump vector without actually hosting BDOS/
// BIOS code in guest memory.
package trap

import (
	"log/slog"
	"time"

	"github.com/cpmulate/cpmemu/bdos"
	"github.com/cpmulate/cpmemu/clock"
	"github.com/cpmulate/cpmemu/machine"
)

// Offsets within the magic page, matching the loader's BIOS jump vector
// layout: offset 0 is the BDOS entry itself; 1-17 are the seventeen
// standard BIOS vector slots (BOOT WBOOT CONST CONIN CONOUT LIST
// PUNCH READER HOME SELDSK SETTRK SETSEC SETDMA READ WRITE LISTST
// SECTRAN); offset 18 is the non-standard millisecond-delay hook, reached
// through the eighteenth slot of the loader's jump vector.
const OffsetBDOS = 0

const (
	biosBoot = iota + 1
	biosWBoot
	biosConst
	biosConin
	biosConout
	biosList
	biosPunch
	biosReader
	biosHome
	biosSelDsk
	biosSetTrk
	biosSetSec
	biosSetDMA
	biosRead
	biosWrite
	biosListSt
	biosSecTran
	offsetDelay = 18
)

// Dispatcher is a z80.TrapFunc bound to a BDOS and the console device
// the BIOS console entries also talk to.
type Dispatcher struct {
	BDOS    *bdos.BDOS
	Log     *slog.Logger
}

// New returns a Dispatcher for b.
func New(b *bdos.BDOS, log *slog.Logger) *Dispatcher {
	return &Dispatcher{BDOS: b, Log: log}
}

// Handle implements z80.TrapFunc.
func (d *Dispatcher) Handle(m *machine.Machine, offset int) {
	switch offset {
	case OffsetBDOS:
		d.BDOS.Dispatch(m)
	case biosBoot:
		m.SetTerminate(machine.ErrBoot)
	case biosWBoot:
		m.SetTerminate(machine.Normal)
	case biosConst:
		if d.BDOS.Console.StatusByte() {
			m.A = 0xFF
		} else {
			m.A = 0x00
		}
	case biosConin:
		c, ok := d.BDOS.Console.ReadByte()
		if !ok {
			m.SetTerminate(machine.ErrHost)
			return
		}
		m.A = c
	case biosConout:
		d.BDOS.Console.WriteByte(m.C)
	case biosList:
		d.BDOS.Printer.WriteByte(m.C)
	case biosPunch:
		d.BDOS.Punch.WriteByte(m.C)
	case biosReader:
		c, ok := d.BDOS.Reader.ReadByte()
		if !ok {
			c = 0x1A
		}
		m.A = c
	case biosHome, biosSelDsk, biosSetTrk, biosSetSec, biosSetDMA, biosRead, biosWrite, biosSecTran:
		// Disk-geometry BIOS entries have no meaning over a host
		// filesystem backend; FDOS intercepts file access at the BDOS
		// layer instead, so these are accepted and ignored.
	case biosListSt:
		m.A = 0xFF
	case offsetDelay:
		d.delay(m)
	default:
		d.Log.Warn("unimplemented magic-page offset", "offset", offset)
	}
}

// delay implements the non-standard millisecond-delay hook: the guest
// passes the delay in BC.
func (d *Dispatcher) delay(m *machine.Machine) {
	ms := m.BC()
	clock.Delay(time.Duration(ms) * time.Millisecond)
}
