// Package z80 implements the Decoder/Executor: a byte-at-a-time Z80
// instruction interpreter operating directly on a machine.Machine. It
// understands the full documented opcode map plus the common undocumented
// DD/FD-prefixed IXH/IXL/IYH/IYL forms and the CB-after-displacement
// (DD CB d op / FD CB d op) encoding.
package z80

import "github.com/cpmulate/cpmemu/machine"

// TrapFunc is invoked when the program counter enters the magic page
// (machine.MagicBase..0xFFFF). offset is PC-machine.MagicBase. The
// function is expected to leave result registers set as the call
// requires; Step then performs the RET that magic-page byte would have
// executed, without actually decoding it.
type TrapFunc func(m *machine.Machine, offset int)

// Step executes exactly one instruction (or one magic-page trap). Each M1
// opcode fetch adds one to m.InstrCount (2 or more for a prefixed
// instruction, 1 otherwise); that count drives only the CPU-delay
// cadence, not cycle-accurate timing, which is an explicit Non-goal.
func Step(m *machine.Machine, trap TrapFunc) {
	if m.PC >= machine.MagicBase {
		offset := int(m.PC - machine.MagicBase)
		trap(m, offset)
		// Synthetic RET: pop the return address pushed by the guest's CALL.
		m.PC = m.ReadWord(m.SP)
		m.SP += 2
		return
	}

	var s state
	op := fetchOpcode(m)

	for op == 0xDD || op == 0xFD {
		if op == 0xDD {
			s.idx = ixIndex
		} else {
			s.idx = iyIndex
		}
		op = fetchOpcode(m)
	}

	switch op {
	case 0xCB:
		if s.idx != noIndex {
			s.disp = int8(fetch8(m))
			s.hasDisp = true
			op2 := fetch8(m) // not an M1 fetch, no R increment
			execIndexedCB(m, &s, op2)
		} else {
			op2 := fetchOpcode(m)
			execCB(m, &s, op2)
		}
	case 0xED:
		op2 := fetchOpcode(m)
		execED(m, &s, op2)
	default:
		execBase(m, &s, op)
	}
}

// fetchOpcode reads the byte at PC, advances PC, and bumps R (an M1 cycle).
func fetchOpcode(m *machine.Machine) uint8 {
	b := m.ReadByte(m.PC)
	m.PC++
	m.IncR()
	m.InstrCount++
	return b
}

// fetch8/fetch16 read an immediate operand following the opcode, without
// touching R (they are not M1 fetches).
func fetch8(m *machine.Machine) uint8 {
	b := m.ReadByte(m.PC)
	m.PC++
	return b
}

func fetch16(m *machine.Machine) uint16 {
	lo := fetch8(m)
	hi := fetch8(m)
	return uint16(hi)<<8 | uint16(lo)
}

func push(m *machine.Machine, v uint16) {
	m.SP -= 2
	m.WriteWord(m.SP, v)
}

func pop(m *machine.Machine) uint16 {
	v := m.ReadWord(m.SP)
	m.SP += 2
	return v
}
