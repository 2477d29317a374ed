package z80

import "github.com/cpmulate/cpmemu/machine"

// maybeFetchDisp consumes the (IX+d)/(IY+d) displacement byte the first
// time an instruction under a DD/FD prefix turns out to reference memory
// through the index register rather than substituting IXH/IXL/IYH/IYL.
func (s *state) maybeFetchDisp(m *machine.Machine) {
	if s.idx != noIndex && !s.hasDisp {
		s.disp = int8(fetch8(m))
		s.hasDisp = true
	}
}

// execBase executes one unprefixed (or DD/FD-prefixed, CB/ED already
// peeled off by Step) opcode, decomposed into the standard x/y/z/p/q
// fields.
func execBase(m *machine.Machine, s *state, op uint8) {
	x := int(op >> 6)
	y := int(op>>3) & 7
	z := int(op & 7)
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		execX0(m, s, y, z, p, q)
	case 1:
		if y == 6 && z == 6 {
			// HALT: the emulator has no interrupts to wake it, so PC stays
			// on the HALT opcode and it runs again on every Step; the CPU
			// spins until something else (a signal) ends the run.
			m.PC--
			return
		}
		if y == 6 || z == 6 {
			s.maybeFetchDisp(m)
		}
		v := s.getReg8(m, z, y)
		s.setReg8(m, y, z, v)
	case 2:
		if z == 6 {
			s.maybeFetchDisp(m)
		}
		execALU(m, y, s.getReg8(m, z, 7))
	case 3:
		execX3(m, s, y, z, p, q)
	}
}

func execX0(m *machine.Machine, s *state, y, z, p, q int) {
	switch z {
	case 0:
		switch {
		case y == 0: // NOP
		case y == 1:
			m.ExAF()
		case y == 2: // DJNZ d
			d := int8(fetch8(m))
			m.B--
			if m.B != 0 {
				m.PC = uint16(int32(m.PC) + int32(d))
			}
		case y == 3: // JR d
			d := int8(fetch8(m))
			m.PC = uint16(int32(m.PC) + int32(d))
		default: // JR cc[y-4], d
			d := int8(fetch8(m))
			if evalCC(&m.F, y-4) {
				m.PC = uint16(int32(m.PC) + int32(d))
			}
		}
	case 1:
		if q == 0 {
			s.setRP16(m, p, fetch16(m))
		} else {
			s.setIndexBase(m, add16(&m.F, s.indexBase(m), s.getRP16(m, p)))
		}
	case 2:
		switch {
		case q == 0 && p == 0: // LD (BC),A
			m.WriteByte(m.BC(), m.A)
		case q == 0 && p == 1: // LD (DE),A
			m.WriteByte(m.DE(), m.A)
		case q == 0 && p == 2: // LD (nn),HL/IX/IY
			m.WriteWord(fetch16(m), s.indexBase(m))
		case q == 0 && p == 3: // LD (nn),A
			m.WriteByte(fetch16(m), m.A)
		case q == 1 && p == 0: // LD A,(BC)
			m.A = m.ReadByte(m.BC())
		case q == 1 && p == 1: // LD A,(DE)
			m.A = m.ReadByte(m.DE())
		case q == 1 && p == 2: // LD HL/IX/IY,(nn)
			s.setIndexBase(m, m.ReadWord(fetch16(m)))
		case q == 1 && p == 3: // LD A,(nn)
			m.A = m.ReadByte(fetch16(m))
		}
	case 3:
		if q == 0 {
			s.setRP16(m, p, s.getRP16(m, p)+1)
		} else {
			s.setRP16(m, p, s.getRP16(m, p)-1)
		}
	case 4:
		if y == 6 {
			s.maybeFetchDisp(m)
		}
		s.setReg8(m, y, y, inc8(&m.F, s.getReg8(m, y, y)))
	case 5:
		if y == 6 {
			s.maybeFetchDisp(m)
		}
		s.setReg8(m, y, y, dec8(&m.F, s.getReg8(m, y, y)))
	case 6:
		if y == 6 {
			s.maybeFetchDisp(m)
		}
		s.setReg8(m, y, y, fetch8(m))
	case 7:
		execAccumOp(m, y)
	}
}

func execAccumOp(m *machine.Machine, y int) {
	switch y {
	case 0: // RLCA
		r, c := rlc(m.A)
		m.A = r
		m.F.H, m.F.N, m.F.C = false, false, c
		m.F.Y, m.F.X = m.A&0x20 != 0, m.A&0x08 != 0
	case 1: // RRCA
		r, c := rrc(m.A)
		m.A = r
		m.F.H, m.F.N, m.F.C = false, false, c
		m.F.Y, m.F.X = m.A&0x20 != 0, m.A&0x08 != 0
	case 2: // RLA
		r, c := rl(m.A, m.F.C)
		m.A = r
		m.F.H, m.F.N, m.F.C = false, false, c
		m.F.Y, m.F.X = m.A&0x20 != 0, m.A&0x08 != 0
	case 3: // RRA
		r, c := rr(m.A, m.F.C)
		m.A = r
		m.F.H, m.F.N, m.F.C = false, false, c
		m.F.Y, m.F.X = m.A&0x20 != 0, m.A&0x08 != 0
	case 4: // DAA
		m.A = daa(&m.F, m.A)
	case 5: // CPL
		m.A = cpl(&m.F, m.A)
	case 6: // SCF
		scf(&m.F, m.A)
	case 7: // CCF
		ccf(&m.F, m.A)
	}
}

func execALU(m *machine.Machine, y int, operand uint8) {
	switch y {
	case 0:
		m.A = add8(&m.F, m.A, operand, false)
	case 1:
		m.A = add8(&m.F, m.A, operand, true)
	case 2:
		m.A = sub8(&m.F, m.A, operand, false)
	case 3:
		m.A = sub8(&m.F, m.A, operand, true)
	case 4:
		m.A = and8(&m.F, m.A, operand)
	case 5:
		m.A = xor8(&m.F, m.A, operand)
	case 6:
		m.A = or8(&m.F, m.A, operand)
	case 7:
		cp8(&m.F, m.A, operand)
	}
}

func execX3(m *machine.Machine, s *state, y, z, p, q int) {
	switch z {
	case 0: // RET cc[y]
		if evalCC(&m.F, y) {
			m.PC = pop(m)
		}
	case 1:
		switch {
		case q == 0: // POP rp2[p]
			s.setRP16AF(m, p, pop(m))
		case p == 0: // RET
			m.PC = pop(m)
		case p == 1: // EXX
			m.Exx()
		case p == 2: // JP (HL)/(IX)/(IY)
			m.PC = s.indexBase(m)
		case p == 3: // LD SP,HL/IX/IY
			m.SP = s.indexBase(m)
		}
	case 2: // JP cc[y],nn
		addr := fetch16(m)
		if evalCC(&m.F, y) {
			m.PC = addr
		}
	case 3:
		switch y {
		case 0: // JP nn
			m.PC = fetch16(m)
		case 2: // OUT (n),A: port I/O is not emulated
			fetch8(m)
		case 3: // IN A,(n): always reads 0
			fetch8(m)
			m.A = 0
		case 4: // EX (SP),HL/IX/IY
			top := m.ReadWord(m.SP)
			m.WriteWord(m.SP, s.indexBase(m))
			s.setIndexBase(m, top)
		case 5: // EX DE,HL
			de, hl := m.DE(), m.HL()
			m.SetDE(hl)
			m.SetHL(de)
		case 6: // DI
			m.IFF1, m.IFF2 = false, false
		case 7: // EI
			m.IFF1, m.IFF2 = true, true
		}
	case 4: // CALL cc[y],nn
		addr := fetch16(m)
		if evalCC(&m.F, y) {
			push(m, m.PC)
			m.PC = addr
		}
	case 5:
		switch {
		case q == 0: // PUSH rp2[p]
			push(m, s.getRP16AF(m, p))
		case p == 0: // CALL nn
			addr := fetch16(m)
			push(m, m.PC)
			m.PC = addr
		}
		// p==1 (DD), p==2 (ED), p==3 (FD) are peeled off by Step before
		// execBase is reached.
	case 6: // alu[y] A,n
		execALU(m, y, fetch8(m))
	case 7: // RST y*8
		push(m, m.PC)
		m.PC = uint16(y) * 8
	}
}
