package z80

import "github.com/cpmulate/cpmemu/machine"

// rotApply runs the rotate/shift named by y (per rotOp order) on v,
// returning the new value and the outgoing carry. carryIn is the C flag
// that RL and RR rotate in.
func rotApply(y int, v uint8, carryIn bool) (uint8, bool) {
	switch y {
	case 0:
		return rlc(v)
	case 1:
		return rrc(v)
	case 2:
		return rl(v, carryIn)
	case 3:
		return rr(v, carryIn)
	case 4:
		return sla(v)
	case 5:
		return sra(v)
	case 6:
		return sll(v)
	case 7:
		return srl(v)
	}
	panic("unreachable")
}

// execBIT implements the BIT instruction's flag semantics. fromMemory
// selects the Y/X-from-address latch rule: memory operands take Y/X
// from the high byte of the address just dereferenced, register
// operands take Y/X from the tested value itself.
func execBIT(f *machine.Flags, bit int, value uint8, addr uint16, fromMemory bool) {
	set := value&(1<<uint(bit)) != 0
	f.Z = !set
	f.PV = f.Z
	f.S = bit == 7 && set
	f.H = true
	f.N = false
	if fromMemory {
		f.Y = uint8(addr>>8)&0x20 != 0
		f.X = uint8(addr>>8)&0x08 != 0
	} else {
		f.Y = value&0x20 != 0
		f.X = value&0x08 != 0
	}
}

// execCB executes an unprefixed CB opcode; the DD CB / FD CB forms go to
// execIndexedCB instead.
func execCB(m *machine.Machine, s *state, op uint8) {
	x := int(op >> 6)
	y := int(op>>3) & 7
	z := int(op & 7)

	v := s.getReg8(m, z, z)
	fromMemory := z == 6

	switch x {
	case 0:
		r, c := rotApply(y, v, m.F.C)
		setRotFlags(&m.F, r, c)
		s.setReg8(m, z, z, r)
	case 1:
		var addr uint16
		if fromMemory {
			addr = m.LastIndexedAddr
		}
		execBIT(&m.F, y, v, addr, fromMemory)
	case 2:
		s.setReg8(m, z, z, v&^(1<<uint(y)))
	case 3:
		s.setReg8(m, z, z, v|(1<<uint(y)))
	}
}

// execIndexedCB executes a DD CB d op / FD CB d op instruction: the
// operand is always (IX+d)/(IY+d), and the undocumented variants that
// also copy the result into an 8-bit register (when z != 6) are honored.
func execIndexedCB(m *machine.Machine, s *state, op uint8) {
	x := int(op >> 6)
	y := int(op>>3) & 7
	z := int(op & 7)

	addr := s.effAddr(m)
	v := m.ReadByte(addr)

	switch x {
	case 0:
		r, c := rotApply(y, v, m.F.C)
		setRotFlags(&m.F, r, c)
		m.WriteByte(addr, r)
		if z != 6 {
			plainSetReg8(m, z, r)
		}
	case 1:
		execBIT(&m.F, y, v, addr, true)
	case 2:
		r := v &^ (1 << uint(y))
		m.WriteByte(addr, r)
		if z != 6 {
			plainSetReg8(m, z, r)
		}
	case 3:
		r := v | (1 << uint(y))
		m.WriteByte(addr, r)
		if z != 6 {
			plainSetReg8(m, z, r)
		}
	}
}
