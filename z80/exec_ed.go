package z80

import "github.com/cpmulate/cpmemu/machine"

// execED executes an ED-prefixed opcode. Undefined ED opcodes (most of
// the x=0/x=3 space) behave as an 8-cycle NOP on real hardware; this
// emulator has no cycle timing to preserve, so they are simply ignored.
func execED(m *machine.Machine, s *state, op uint8) {
	x := int(op >> 6)
	y := int(op>>3) & 7
	z := int(op & 7)
	p := y >> 1
	q := y & 1

	if x != 2 {
		if x == 1 {
			execED1(m, s, y, z, p, q)
		}
		return
	}

	// x==2: the block instruction group (z 0..3, y 4..7).
	if z > 3 || y < 4 {
		return
	}
	execBlock(m, y, z)
}

func execED1(m *machine.Machine, s *state, y, z, p, q int) {
	switch z {
	case 0: // IN r[y],(C); sets flags like a logical op, port reads 0
		v := uint8(0)
		if y != 6 {
			s.setReg8(m, y, y, v)
		}
		szFlags(&m.F, v)
		m.F.H = false
		m.F.N = false
		m.F.PV = parityTable[v]
	case 1: // OUT (C),r[y]; port I/O is not emulated
		_ = y
	case 2:
		if q == 0 {
			m.SetHL(sbc16(&m.F, m.HL(), s.getRP16(m, p)))
		} else {
			m.SetHL(adc16(&m.F, m.HL(), s.getRP16(m, p)))
		}
	case 3:
		if q == 0 { // LD (nn),rp[p]
			m.WriteWord(fetch16(m), s.getRP16(m, p))
		} else { // LD rp[p],(nn)
			s.setRP16(m, p, m.ReadWord(fetch16(m)))
		}
	case 4: // NEG
		m.A = neg(&m.F, m.A)
	case 5: // RETN/RETI: interrupts are not modeled, so both just return
		m.PC = pop(m)
		m.IFF1 = m.IFF2
	case 6: // IM 0/1/2: interrupt modes are not modeled, so a no-op
		_ = y
	case 7:
		execMiscED(m, y)
	}
}

func execMiscED(m *machine.Machine, y int) {
	switch y {
	case 0: // LD I,A
		m.I = m.A
	case 1: // LD R,A
		m.R = m.A
	case 2: // LD A,I
		m.A = m.I
		m.F.S = m.A&0x80 != 0
		m.F.Z = m.A == 0
		m.F.H = false
		m.F.N = false
		m.F.PV = m.IFF2
		m.F.Y = m.A&0x20 != 0
		m.F.X = m.A&0x08 != 0
	case 3: // LD A,R
		m.A = m.R
		m.F.S = m.A&0x80 != 0
		m.F.Z = m.A == 0
		m.F.H = false
		m.F.N = false
		m.F.PV = m.IFF2
		m.F.Y = m.A&0x20 != 0
		m.F.X = m.A&0x08 != 0
	case 4: // RRD
		rrd(m)
	case 5: // RLD
		rld(m)
	case 6, 7: // NOP (ED 77/ED 7F undefined slots)
	}
}

func rrd(m *machine.Machine) {
	addr := m.HL()
	mv := m.ReadByte(addr)
	newA := (m.A & 0xF0) | (mv & 0x0F)
	newM := (m.A&0x0F)<<4 | (mv >> 4)
	m.A = newA
	m.WriteByte(addr, newM)
	szFlags(&m.F, m.A)
	m.F.H = false
	m.F.N = false
	m.F.PV = parityTable[m.A]
}

func rld(m *machine.Machine) {
	addr := m.HL()
	mv := m.ReadByte(addr)
	newA := (m.A & 0xF0) | (mv >> 4)
	newM := (mv&0x0F)<<4 | (m.A & 0x0F)
	m.A = newA
	m.WriteByte(addr, newM)
	szFlags(&m.F, m.A)
	m.F.H = false
	m.F.N = false
	m.F.PV = parityTable[m.A]
}

// execBlock implements LDI/LDD/LDIR/LDDR, CPI/CPD/CPIR/CPDR, INI/IND/
// INIR/INDR and OUTI/OUTD/OTIR/OTDR. The repeat (*IR/*DR) forms
// re-execute by decrementing PC back onto the ED prefix rather than
// looping in Go. All four families derive P/V from the decremented
// counter and Y/X from the transferred byte, the same undocumented
// flag behavior real Z80 silicon exhibits across the whole group.
func execBlock(m *machine.Machine, y, z int) {
	inc := int32(1)
	if y == 5 || y == 7 {
		inc = -1
	}
	repeat := y == 6 || y == 7

	switch z {
	case 0: // LDI/LDD/LDIR/LDDR
		v := m.ReadByte(m.HL())
		m.WriteByte(m.DE(), v)
		m.SetHL(uint16(int32(m.HL()) + inc))
		m.SetDE(uint16(int32(m.DE()) + inc))
		m.SetBC(m.BC() - 1)
		n := v + m.A
		m.F.H = false
		m.F.N = false
		m.F.PV = m.BC() != 0
		m.F.Y = n&0x02 != 0
		m.F.X = n&0x08 != 0
		if repeat && m.BC() != 0 {
			m.PC -= 2
		}
	case 1: // CPI/CPD/CPIR/CPDR
		v := m.ReadByte(m.HL())
		result := m.A - v
		m.SetHL(uint16(int32(m.HL()) + inc))
		m.SetBC(m.BC() - 1)
		m.F.S = result&0x80 != 0
		m.F.Z = result == 0
		m.F.H = m.A&0xF < v&0xF
		m.F.N = true
		m.F.PV = m.BC() != 0
		n := result
		if m.F.H {
			n--
		}
		m.F.Y = n&0x02 != 0
		m.F.X = n&0x08 != 0
		if repeat && m.BC() != 0 && result != 0 {
			m.PC -= 2
		}
	case 2: // INI/IND/INIR/INDR: port input always reads 0
		v := uint8(0)
		m.WriteByte(m.HL(), v)
		m.SetHL(uint16(int32(m.HL()) + inc))
		m.B--
		m.F.Z = m.B == 0
		m.F.N = true
		m.F.PV = m.BC() != 0
		m.F.Y = v&0x02 != 0
		m.F.X = v&0x08 != 0
		if repeat && m.B != 0 {
			m.PC -= 2
		}
	case 3: // OUTI/OUTD/OTIR/OTDR: port output is not emulated
		v := m.ReadByte(m.HL())
		m.B--
		m.SetHL(uint16(int32(m.HL()) + inc))
		m.F.Z = m.B == 0
		m.F.N = true
		m.F.PV = m.BC() != 0
		m.F.Y = v&0x02 != 0
		m.F.X = v&0x08 != 0
		if repeat && m.B != 0 {
			m.PC -= 2
		}
	}
}
