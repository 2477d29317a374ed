package z80

import "github.com/cpmulate/cpmemu/machine"

// indexPrefix names which index register, if any, substitutes for HL in
// the instruction currently being decoded.
type indexPrefix uint8

const (
	noIndex indexPrefix = iota
	ixIndex
	iyIndex
)

// state carries everything the decoder resolves before dispatch: the
// index-register substitution in effect and the (IX+d)/(IY+d)
// displacement, if any (for DD CB d op / FD CB d op the displacement
// precedes the opcode byte).
type state struct {
	idx     indexPrefix
	disp    int8
	hasDisp bool
}

// indexBase returns the current value of HL, or IX/IY when substituted.
func (s *state) indexBase(m *machine.Machine) uint16 {
	switch s.idx {
	case ixIndex:
		return m.IX
	case iyIndex:
		return m.IY
	default:
		return m.HL()
	}
}

func (s *state) setIndexBase(m *machine.Machine, v uint16) {
	switch s.idx {
	case ixIndex:
		m.IX = v
	case iyIndex:
		m.IY = v
	default:
		m.SetHL(v)
	}
}

// effAddr computes the (HL)/(IX+d)/(IY+d) effective address and latches
// it for the BIT n,(IX+d) Y/X flag-fidelity rule.
func (s *state) effAddr(m *machine.Machine) uint16 {
	base := s.indexBase(m)
	var addr uint16
	if s.idx != noIndex {
		addr = uint16(int32(base) + int32(s.disp))
	} else {
		addr = base
	}
	m.LastIndexedAddr = addr
	return addr
}

// getReg8 reads an 8-bit operand selected by the z/y field value idx
// (0..7 per r8 order). When idx==6 it dereferences (HL)/(IX+d)/(IY+d).
// Under a DD/FD prefix, non-6, non-A/complementary halves of H/L are
// replaced by IXH/IXL/IYH/IYL, the well-known undocumented-opcode
// behavior real Z80 silicon exhibits — unless partner==6, meaning the
// other half of this same instruction addresses (IX+d)/(IY+d) memory
// (e.g. LD (IX+d),H or LD H,(IX+d)), in which case the prefix-halving
// is suppressed and idx resolves to the plain H/L register instead.
func (s *state) getReg8(m *machine.Machine, idx, partner int) uint8 {
	if idx == 6 {
		return m.ReadByte(s.effAddr(m))
	}
	if s.idx != noIndex && partner != 6 {
		switch idx {
		case 4: // H slot -> IXH/IYH
			return uint8(s.indexBase(m) >> 8)
		case 5: // L slot -> IXL/IYL
			return uint8(s.indexBase(m))
		}
	}
	switch idx {
	case 0:
		return m.B
	case 1:
		return m.C
	case 2:
		return m.D
	case 3:
		return m.E
	case 4:
		return m.H
	case 5:
		return m.L
	case 7:
		return m.A
	}
	panic("unreachable")
}

func (s *state) setReg8(m *machine.Machine, idx, partner int, v uint8) {
	if idx == 6 {
		m.WriteByte(s.effAddr(m), v)
		return
	}
	if s.idx != noIndex && partner != 6 {
		switch idx {
		case 4:
			base := s.indexBase(m)
			s.setIndexBase(m, uint16(v)<<8|base&0xFF)
			return
		case 5:
			base := s.indexBase(m)
			s.setIndexBase(m, base&0xFF00|uint16(v))
			return
		}
	}
	switch idx {
	case 0:
		m.B = v
	case 1:
		m.C = v
	case 2:
		m.D = v
	case 3:
		m.E = v
	case 4:
		m.H = v
	case 5:
		m.L = v
	case 7:
		m.A = v
	default:
		panic("unreachable")
	}
}

// plainSetReg8 writes B/C/D/E/H/L/A directly, bypassing the DD/FD IXH/IXL
// substitution: the undocumented DD CB d op / FD CB d op forms that also
// copy their result into a register always mean the plain H/L, never the
// index half, even while a prefix is active for address computation.
func plainSetReg8(m *machine.Machine, idx int, v uint8) {
	switch idx {
	case 0:
		m.B = v
	case 1:
		m.C = v
	case 2:
		m.D = v
	case 3:
		m.E = v
	case 4:
		m.H = v
	case 5:
		m.L = v
	case 7:
		m.A = v
	default:
		panic("unreachable")
	}
}

// getRP16/setRP16 read/write the SP-terminated register pair group
// (BC/DE/HL-or-index/SP), substituting IX or IY for the HL slot.
func (s *state) getRP16(m *machine.Machine, p int) uint16 {
	switch p {
	case 0:
		return m.BC()
	case 1:
		return m.DE()
	case 2:
		return s.indexBase(m)
	case 3:
		return m.SP
	}
	panic("unreachable")
}

func (s *state) setRP16(m *machine.Machine, p int, v uint16) {
	switch p {
	case 0:
		m.SetBC(v)
	case 1:
		m.SetDE(v)
	case 2:
		s.setIndexBase(m, v)
	case 3:
		m.SP = v
	}
}

// getRP16AF/setRP16AF are the PUSH/POP variant where slot 3 is AF, not SP.
func (s *state) getRP16AF(m *machine.Machine, p int) uint16 {
	if p == 3 {
		return m.AF()
	}
	return s.getRP16(m, p)
}

func (s *state) setRP16AF(m *machine.Machine, p int, v uint16) {
	if p == 3 {
		m.SetAF(v)
		return
	}
	s.setRP16(m, p, v)
}
