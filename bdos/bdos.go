// Package bdos implements the CP/M BDOS function table: everything
// reached through the magic page's function-0 entry, keyed on the guest
// register C.
package bdos

import (
	"log/slog"
	"time"

	"github.com/cpmulate/cpmemu/chario"
	"github.com/cpmulate/cpmemu/clock"
	"github.com/cpmulate/cpmemu/fdos"
	"github.com/cpmulate/cpmemu/machine"
)

// columnTracker is implemented by console backends that can report the
// current output column, used by the line editor (function 10) to find
// where a ^R redisplay starts; ^U/^X erase by the buffer length instead.
type columnTracker interface {
	Column() int
}

// BDOS holds every piece of state the function table touches: the file
// subsystem, the console/auxiliary devices, one outstanding directory
// search, and the current DMA address and IOBYTE (the user number is
// held by FDOS).
type BDOS struct {
	FDOS    *fdos.FDOS
	Console chario.CharIO
	Reader  chario.CharIO
	Punch   chario.CharIO
	Printer chario.CharIO

	DMA      uint16
	IOByte   uint8
	search   fdos.SearchState
	ExchangeDelete bool

	Log *slog.Logger
}

// New returns a BDOS wired to the given devices, with the DMA default of
// 0x0080 a freshly loaded program expects.
func New(fd *fdos.FDOS, console, reader, punch, printer chario.CharIO, log *slog.Logger) *BDOS {
	return &BDOS{
		FDOS:    fd,
		Console: console,
		Reader:  reader,
		Punch:   punch,
		Printer: printer,
		DMA:     0x0080,
		Log:     log,
	}
}

// Dispatch runs BDOS function m.C, reading arguments from DE/the FCB at
// DE and leaving the result in A (and HL for the handful of calls that
// document a 16-bit result).
func (b *BDOS) Dispatch(m *machine.Machine) {
	fn := m.C
	switch fn {
	case 0:
		b.termCPM(m)
	case 1:
		b.consoleRead(m)
	case 2:
		b.consoleWrite(m)
	case 3:
		b.readerIn(m)
	case 4:
		b.punchOut(m)
	case 5:
		b.listOut(m)
	case 6:
		b.directIO(m)
	case 7:
		m.A = b.IOByte
	case 8:
		b.IOByte = m.E
	case 9:
		b.printString(m)
	case 10:
		b.readLine(m)
	case 11:
		m.A = b.consoleStatus()
	case 12:
		m.SetHL(0x0022) // BDOS version 2.2
		m.A = 0x22
	case 13:
		b.search = fdos.SearchState{}
		m.A = 0
	case 14:
		b.FDOS.Drives.SetCurrent(int(m.E))
		b.writeDrvUser(m)
		m.A = 0
	case 15:
		b.result(m, b.FDOS.Open(b.fcb(m)))
	case 16:
		b.result(m, b.FDOS.Close(b.fcb(m)))
	case 17:
		b.findFirst(m)
	case 18:
		b.findNext(m)
	case 19:
		b.result(m, b.FDOS.Delete(b.fcb(m)))
	case 20:
		b.readSeq(m)
	case 21:
		b.writeSeq(m)
	case 22:
		b.result(m, b.FDOS.Make(b.fcb(m)))
	case 23:
		b.rename(m)
	case 24:
		m.SetHL(1 << uint(b.FDOS.Drives.Current())) // login vector: only the current drive is "logged in"
	case 25:
		m.A = uint8(b.FDOS.Drives.Current())
	case 26:
		b.DMA = m.DE()
	case 27:
		m.SetHL(0) // allocation vector: no real block allocation is modeled
	case 28:
		m.A = 0
	case 29:
		m.SetHL(0) // read-only vector: tracked per Drive, not exposed as a bitmap here
	case 30:
		b.setAttributes(m)
	case 31:
		m.SetHL(0) // DPB: no disk geometry is emulated
	case 32:
		b.userNumber(m)
	case 33:
		b.readRand(m)
	case 34:
		b.writeRand(m)
	case 35:
		b.computeFileSize(m)
	case 36:
		b.setRandomFromCursor(m)
	case 37:
		m.A = 0 // reset drive: host directories need no reset
	case 40:
		b.writeRandZeroFill(m)
	case 49:
		m.A = 0 // generic IOCTL: no device-specific control is modeled
	case 101, 102, 108:
		m.A = 0 // CP/M 3 extensions with no host-relevant effect here
	case 105:
		b.getDateTime(m)
	case 141: // delay: DE ticks of 20 ms
		clock.Delay(time.Duration(m.DE()) * 20 * time.Millisecond)
		m.A = 0
	default:
		b.Log.Warn("unimplemented bdos function", "function", fn)
		m.A = 0xFF
	}
}

func (b *BDOS) fcb(m *machine.Machine) fdos.FCB {
	return fdos.Wrap(m.Mem[:], m.DE())
}

func (b *BDOS) result(m *machine.Machine, res fdos.Result, fault *fdos.Fault) {
	if fault != nil {
		m.SetTerminate(reasonFor(fault.Reason))
		return
	}
	m.A = uint8(res)
}

func reasonFor(name string) machine.TermReason {
	switch name {
	case "ErrSelect":
		return machine.ErrSelect
	case "ErrRODisk":
		return machine.ErrRODisk
	case "ErrROFile":
		return machine.ErrROFile
	case "ErrLogic":
		return machine.ErrLogic
	default:
		return machine.ErrHost
	}
}

func (b *BDOS) termCPM(m *machine.Machine) {
	m.SetTerminate(machine.Normal)
}

func (b *BDOS) consoleRead(m *machine.Machine) {
	c, ok := b.Console.ReadByte()
	if !ok {
		m.SetTerminate(machine.ErrHost)
		return
	}
	if c == 0x03 {
		m.SetTerminate(machine.CtrlC)
		return
	}
	b.Console.WriteByte(c) // echo
	m.A = c
}

func (b *BDOS) consoleWrite(m *machine.Machine) {
	b.Console.WriteByte(m.E)
}

func (b *BDOS) readerIn(m *machine.Machine) {
	c, ok := b.Reader.ReadByte()
	if !ok {
		c = 0x1A
	}
	m.A = c
}

func (b *BDOS) punchOut(m *machine.Machine) { b.Punch.WriteByte(m.E) }
func (b *BDOS) listOut(m *machine.Machine)  { b.Printer.WriteByte(m.E) }

// directIO implements function 6: E=0xFF polls input without blocking
// (returning 0 if nothing is waiting), E=0xFE returns console status,
// anything else is an output byte.
func (b *BDOS) directIO(m *machine.Machine) {
	switch m.E {
	case 0xFF:
		if b.Console.StatusByte() {
			c, ok := b.Console.ReadByte()
			if ok {
				m.A = c
				return
			}
		}
		m.A = 0
	case 0xFE:
		m.A = b.consoleStatus()
	default:
		b.Console.WriteByte(m.E)
	}
}

func (b *BDOS) consoleStatus() uint8 {
	if b.Console.StatusByte() {
		return 0xFF
	}
	return 0x00
}

// printString implements function 9: print the $-terminated string at DE.
func (b *BDOS) printString(m *machine.Machine) {
	addr := m.DE()
	for {
		c := m.ReadByte(addr)
		if c == '$' {
			return
		}
		b.Console.WriteByte(c)
		addr++
	}
}

// readLine implements function 10: a buffered line editor into the
// caller-supplied buffer at DE (byte 0 = max length, byte 1 = returned
// length, bytes 2.. = text). Both BS and DEL erase the previous
// character; ^U and ^X erase the whole line; ^R redisplays it; ^C
// requests termination mid-line.
func (b *BDOS) readLine(m *machine.Machine) {
	addr := m.DE()
	max := int(m.ReadByte(addr))
	buf := make([]byte, 0, max)
	startCol := b.column()

	redraw := func() {
		for b.column() > startCol {
			b.Console.WriteByte('\b')
			b.Console.WriteByte(' ')
			b.Console.WriteByte('\b')
		}
		for _, c := range buf {
			b.Console.WriteByte(c)
		}
	}

	for {
		c, ok := b.Console.ReadByte()
		if !ok {
			m.SetTerminate(machine.ErrHost)
			return
		}
		switch {
		case c == 0x03: // ^C
			m.SetTerminate(machine.CtrlC)
			return
		case c == '\r' || c == '\n':
			b.Console.WriteByte('\r')
			b.Console.WriteByte('\n')
			m.WriteByte(addr+1, uint8(len(buf)))
			m.WriteBlock(addr+2, buf)
			return
		case b.isEraseChar(c):
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				b.Console.WriteByte('\b')
				b.Console.WriteByte(' ')
				b.Console.WriteByte('\b')
			}
		case c == 0x15 || c == 0x18: // ^U / ^X: kill line
			for len(buf) > 0 {
				buf = buf[:len(buf)-1]
				b.Console.WriteByte('\b')
				b.Console.WriteByte(' ')
				b.Console.WriteByte('\b')
			}
		case c == 0x12: // ^R: redisplay
			b.Console.WriteByte('\r')
			b.Console.WriteByte('\n')
			redraw()
		case c >= 0x20 && c < 0x7F:
			if len(buf) < max {
				buf = append(buf, c)
				b.Console.WriteByte(c)
			} else {
				b.Console.WriteByte(0x07) // BEL: buffer full
			}
		}
	}
}

// isEraseChar reports whether c erases the previous character. Normally
// both BS and DEL do; with the config's "exchange delete" option set
// (some terminals send DEL where CP/M software expects BS), only DEL
// erases and a BS is ignored (neither stored nor echoed).
func (b *BDOS) isEraseChar(c uint8) bool {
	if b.ExchangeDelete {
		return c == 0x7F
	}
	return c == 0x08 || c == 0x7F
}

func (b *BDOS) column() int {
	if ct, ok := b.Console.(columnTracker); ok {
		return ct.Column()
	}
	return 0
}

func (b *BDOS) findFirst(m *machine.Machine) {
	res, name, fault := b.FDOS.FindFirst(b.fcb(m), &b.search)
	b.resultWithDirEntry(m, res, name, fault)
}

func (b *BDOS) findNext(m *machine.Machine) {
	res, name, fault := b.FDOS.FindNext(&b.search)
	b.resultWithDirEntry(m, res, name, fault)
}

// resultWithDirEntry writes a directory-entry-shaped FCB into the DMA
// buffer on success, the way CP/M's F_SFIRST/F_SNEXT return their match.
func (b *BDOS) resultWithDirEntry(m *machine.Machine, res fdos.Result, name string, fault *fdos.Fault) {
	if fault != nil {
		m.SetTerminate(reasonFor(fault.Reason))
		return
	}
	if res != fdos.OK {
		m.A = uint8(res)
		return
	}
	entry := fdos.Wrap(m.Mem[:], b.DMA)
	entry.SetDrive(0)
	base, ext := splitName(name)
	entry.SetNameType(base, ext)
	m.A = 0
}

func splitName(name string) (base, ext string) {
	for i, c := range name {
		if c == '.' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}

func (b *BDOS) readSeq(m *machine.Machine) {
	buf := make([]byte, 128)
	res, fault := b.FDOS.ReadSeq(b.fcb(m), buf)
	if fault != nil {
		m.SetTerminate(reasonFor(fault.Reason))
		return
	}
	if res == fdos.OK {
		m.WriteBlock(b.DMA, buf)
	}
	m.A = uint8(res)
}

func (b *BDOS) writeSeq(m *machine.Machine) {
	buf := m.ReadBlock(b.DMA, 128)
	b.result(m, b.FDOS.WriteSeq(b.fcb(m), buf))
}

func (b *BDOS) rename(m *machine.Machine) {
	src := b.fcb(m)
	dst := fdos.Wrap(m.Mem[:], m.DE()+16)
	b.result(m, b.FDOS.Rename(src, dst))
}

func (b *BDOS) setAttributes(m *machine.Machine) {
	f := b.fcb(m)
	f.SetReadOnly(f.ReadOnly())
	m.A = 0
}

func (b *BDOS) userNumber(m *machine.Machine) {
	if m.E == 0xFF {
		m.A = uint8(b.FDOS.User)
		return
	}
	b.FDOS.User = int(m.E & 0x1F)
	b.writeDrvUser(m)
	m.A = 0
}

// writeDrvUser keeps guest memory address 0x0004 (DRVUSER) in sync with
// the current user number (bits 4-7) and default drive (bits 0-3), the
// same byte a guest reading location 4 directly expects to see after
// Select Disk or Get/Set User Number.
func (b *BDOS) writeDrvUser(m *machine.Machine) {
	drive := uint8(b.FDOS.Drives.Current()) & 0x0F
	user := uint8(b.FDOS.User&0x0F) << 4
	m.WriteByte(0x0004, user|drive)
}

func (b *BDOS) readRand(m *machine.Machine) {
	buf := make([]byte, 128)
	res, fault := b.FDOS.ReadRand(b.fcb(m), buf)
	if fault != nil {
		m.SetTerminate(reasonFor(fault.Reason))
		return
	}
	if res == fdos.OK {
		m.WriteBlock(b.DMA, buf)
	}
	m.A = uint8(res)
}

func (b *BDOS) writeRand(m *machine.Machine) {
	buf := m.ReadBlock(b.DMA, 128)
	b.result(m, b.FDOS.WriteRand(b.fcb(m), buf))
}

func (b *BDOS) writeRandZeroFill(m *machine.Machine) {
	buf := m.ReadBlock(b.DMA, 128)
	b.result(m, b.FDOS.WriteRand(b.fcb(m), buf))
}

func (b *BDOS) computeFileSize(m *machine.Machine) {
	f := b.fcb(m)
	entry := b.FDOS.Reg.Lookup(f.ID())
	if entry == nil {
		m.A = uint8(fdos.NotFound)
		return
	}
	info, err := entry.File.Stat()
	if err != nil {
		m.SetTerminate(machine.ErrHost)
		return
	}
	records := uint32((info.Size() + 127) / 128)
	f.SetRandom(records)
	m.A = 0
}

func (b *BDOS) setRandomFromCursor(m *machine.Machine) {
	f := b.fcb(m)
	f.SetRandom(f.SequentialRecord())
	m.A = 0
}

func (b *BDOS) getDateTime(m *machine.Machine) {
	d := clock.FromTime(time.Now())
	m.WriteWord(b.DMA, d.Days)
	m.WriteByte(b.DMA+2, d.Hour)
	m.WriteByte(b.DMA+3, d.Minute)
	m.A = 0
}
