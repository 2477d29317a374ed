// Package machine holds the architectural state of the emulated Z80: its
// 64 KiB address space, register file (including the alternate set and
// index registers) and flag bits. It owns no behavior beyond simple
// accessors — decoding and execution live in package z80.
package machine

// MagicBase is the first address of the 19-byte magic page. Instruction
// fetch from this address or above traps to the host dispatcher instead of
// being decoded.
const MagicBase uint16 = 0xFFED

// MagicSize is the number of magic-page entries: BDOS (1) + BIOS (17) +
// the non-standard delay hook (1).
const MagicSize = 19

// TermReason classifies why the emulator stopped running guest code.
type TermReason int

const (
	// NotRun means the machine has not executed an instruction yet.
	NotRun TermReason = iota
	// Normal is a clean termination via BDOS 0 or BIOS WBOOT.
	Normal
	// CtrlC is a normal termination via the line editor seeing ^C.
	CtrlC
	// ErrBoot means the guest called BIOS BOOT (offset 1), which is an error.
	ErrBoot
	// ErrBdosArg means a BDOS argument pointer or $-string was malformed.
	ErrBdosArg
	// ErrSelect means the guest addressed an unconfigured drive.
	ErrSelect
	// ErrRODisk means the guest tried to write to a read-only drive.
	ErrRODisk
	// ErrROFile means the guest tried to write to a read-only file.
	ErrROFile
	// ErrHost means an underlying host operation failed unexpectedly.
	ErrHost
	// ErrLogic means the guest violated the FCB file-ID protocol.
	ErrLogic
	// ErrSignal means a terminating signal was caught.
	ErrSignal
)

// String renders the reason the way the emulator's trace log does.
func (r TermReason) String() string {
	switch r {
	case NotRun:
		return "not-run"
	case Normal:
		return "ok-term"
	case CtrlC:
		return "ok-ctrlc"
	case ErrBoot:
		return "err-boot"
	case ErrBdosArg:
		return "err-bdosarg"
	case ErrSelect:
		return "err-select"
	case ErrRODisk:
		return "err-rodisk"
	case ErrROFile:
		return "err-rofile"
	case ErrHost:
		return "err-host"
	case ErrLogic:
		return "err-logic"
	case ErrSignal:
		return "err-signal"
	default:
		return "unknown"
	}
}

// Flags holds the eight independent Z80 condition-code bits.
type Flags struct {
	S  bool // Sign
	Z  bool // Zero
	Y  bool // undocumented, bit 5 of result
	H  bool // half-carry
	X  bool // undocumented, bit 3 of result
	PV bool // parity/overflow
	N  bool // subtract
	C  bool // carry
}

// ToByte packs the flags into the F register layout: S Z Y H X PV N C,
// bit 7 down to bit 0.
func (f Flags) ToByte() uint8 {
	var v uint8
	if f.S {
		v |= 1 << 7
	}
	if f.Z {
		v |= 1 << 6
	}
	if f.Y {
		v |= 1 << 5
	}
	if f.H {
		v |= 1 << 4
	}
	if f.X {
		v |= 1 << 3
	}
	if f.PV {
		v |= 1 << 2
	}
	if f.N {
		v |= 1 << 1
	}
	if f.C {
		v |= 1 << 0
	}
	return v
}

// FromByte unpacks the F register layout into individual flag bits.
func (f *Flags) FromByte(v uint8) {
	f.S = v&(1<<7) != 0
	f.Z = v&(1<<6) != 0
	f.Y = v&(1<<5) != 0
	f.H = v&(1<<4) != 0
	f.X = v&(1<<3) != 0
	f.PV = v&(1<<2) != 0
	f.N = v&(1<<1) != 0
	f.C = v&(1<<0) != 0
}

// Regs is the primary 8080/Z80 register file, excluding the alternates.
type Regs struct {
	A, B, C, D, E, H, L uint8
	F                   Flags
	I, R                uint8
	SP, PC, IX, IY      uint16
}

// Machine is the full architectural state of the emulated CPU: a flat 64
// KiB address space plus every register the Z80 exposes.
type Machine struct {
	Mem [65536]byte

	Regs
	AltA, AltB, AltC, AltD, AltE, AltH, AltL uint8
	AltF                                     Flags

	IFF1, IFF2 bool // stored, never serviced (no interrupt emulation)

	Terminate  bool
	TermReason TermReason

	// LastIndexedAddr latches the most recent (IX+d)/(IY+d) effective
	// address, consumed by the BIT n,(IX+d) Y/X flag-fidelity rule.
	LastIndexedAddr uint16

	// TPATop is the upper bound of the Transient Program Area, exposed so
	// an optional post-run memory dump can be bounded sensibly.
	TPATop uint16

	// InstrCount is incremented on every M1 (opcode) fetch; used for the
	// CPU-delay cadence and the final instruction count in the log.
	InstrCount uint64
}

// New returns a Machine with memory filled with RET (0xC9) in the magic
// page and zero elsewhere, matching the reset state a loader then builds on.
func New() *Machine {
	m := &Machine{}
	for i := MagicBase; ; i++ {
		m.Mem[i] = 0xC9
		if i == 0xFFFF {
			break
		}
	}
	return m
}

// ReadByte reads memory with modulo-65536 address wraparound.
func (m *Machine) ReadByte(addr uint16) uint8 {
	return m.Mem[addr]
}

// WriteByte writes memory with modulo-65536 address wraparound.
func (m *Machine) WriteByte(addr uint16, v uint8) {
	m.Mem[addr] = v
}

// ReadWord reads a little-endian 16-bit value.
func (m *Machine) ReadWord(addr uint16) uint16 {
	lo := m.Mem[addr]
	hi := m.Mem[addr+1]
	return uint16(lo) | uint16(hi)<<8
}

// WriteWord writes a little-endian 16-bit value.
func (m *Machine) WriteWord(addr uint16, v uint16) {
	m.Mem[addr] = uint8(v)
	m.Mem[addr+1] = uint8(v >> 8)
}

// ReadBlock copies n bytes starting at addr, wrapping at the 64 KiB
// boundary one byte at a time (matches §3.1's modular-address-arithmetic
// invariant for multi-byte transfers such as DMA records).
func (m *Machine) ReadBlock(addr uint16, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = m.Mem[uint16(int(addr)+i)]
	}
	return out
}

// WriteBlock writes data starting at addr, wrapping at the 64 KiB boundary.
func (m *Machine) WriteBlock(addr uint16, data []byte) {
	for i, b := range data {
		m.Mem[uint16(int(addr)+i)] = b
	}
}

// IncR bumps the low 7 bits of R modulo 128 on every M1 fetch, preserving
// bit 7 (§3.1, §8 invariant 2).
func (m *Machine) IncR() {
	bit7 := m.R & 0x80
	m.R = bit7 | ((m.R + 1) & 0x7F)
}

// HL, DE, BC, AF return the 16-bit register pairs.
func (m *Machine) HL() uint16 { return uint16(m.H)<<8 | uint16(m.L) }
func (m *Machine) DE() uint16 { return uint16(m.D)<<8 | uint16(m.E) }
func (m *Machine) BC() uint16 { return uint16(m.B)<<8 | uint16(m.C) }
func (m *Machine) AF() uint16 { return uint16(m.A)<<8 | uint16(m.F.ToByte()) }

// SetHL, SetDE, SetBC, SetAF store into the 16-bit register pairs.
func (m *Machine) SetHL(v uint16) { m.H = uint8(v >> 8); m.L = uint8(v) }
func (m *Machine) SetDE(v uint16) { m.D = uint8(v >> 8); m.E = uint8(v) }
func (m *Machine) SetBC(v uint16) { m.B = uint8(v >> 8); m.C = uint8(v) }
func (m *Machine) SetAF(v uint16) { m.A = uint8(v >> 8); m.F.FromByte(uint8(v)) }

// ExAF swaps AF with the shadow AF' (EX AF,AF').
func (m *Machine) ExAF() {
	m.A, m.AltA = m.AltA, m.A
	m.F, m.AltF = m.AltF, m.F
}

// Exx swaps BC, DE, HL with their shadow registers (EXX).
func (m *Machine) Exx() {
	m.B, m.AltB = m.AltB, m.B
	m.C, m.AltC = m.AltC, m.C
	m.D, m.AltD = m.AltD, m.D
	m.E, m.AltE = m.AltE, m.E
	m.H, m.AltH = m.AltH, m.H
	m.L, m.AltL = m.AltL, m.L
}

// SetTerminate sets the termination flag and reason, honoring only the
// first call: a signal delivered after BDOS 0 has already asked to stop
// must not overwrite the original reason.
func (m *Machine) SetTerminate(reason TermReason) {
	if m.Terminate {
		return
	}
	m.Terminate = true
	m.TermReason = reason
}
