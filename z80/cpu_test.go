package z80

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cpmulate/cpmemu/machine"
)

func run(m *machine.Machine, steps int) {
	for i := 0; i < steps; i++ {
		Step(m, func(*machine.Machine, int) {})
	}
}

func TestLDRegImmediateAndAdd(t *testing.T) {
	m := machine.New()
	m.WriteBlock(0x0100, []byte{
		0x3E, 0x05, // LD A,5
		0x06, 0x0A, // LD B,10
		0x80, // ADD A,B
	})
	m.PC = 0x0100
	run(m, 3)
	assert.Equal(t, uint8(15), m.A)
	assert.False(t, m.F.C)
	assert.False(t, m.F.Z)
}

func TestDecZeroFlag(t *testing.T) {
	m := machine.New()
	m.A = 1
	m.WriteBlock(0x0100, []byte{0x3D}) // DEC A
	m.PC = 0x0100
	run(m, 1)
	assert.Equal(t, uint8(0), m.A)
	assert.True(t, m.F.Z)
	assert.True(t, m.F.N)
}

func TestJRTakenSkipsInstruction(t *testing.T) {
	m := machine.New()
	m.WriteBlock(0x0100, []byte{
		0xAF,       // XOR A (Z=1)
		0x28, 0x02, // JR Z,+2
		0x3E, 0xFF, // LD A,0xFF (skipped)
		0x3E, 0x01, // LD A,1
	})
	m.PC = 0x0100
	run(m, 3)
	assert.Equal(t, uint8(1), m.A)
}

func TestIndexedIXLoadStore(t *testing.T) {
	m := machine.New()
	m.IX = 0x2000
	m.WriteBlock(0x0100, []byte{
		0xDD, 0x36, 0x05, 0x42, // LD (IX+5),0x42
		0xDD, 0x7E, 0x05, // LD A,(IX+5)
	})
	m.PC = 0x0100
	run(m, 2)
	assert.Equal(t, uint8(0x42), m.Mem[0x2005])
	assert.Equal(t, uint8(0x42), m.A)
}

func TestUndocumentedIXHIXL(t *testing.T) {
	m := machine.New()
	m.IX = 0xABCD
	m.WriteBlock(0x0100, []byte{
		0xDD, 0x26, 0x11, // LD IXH,0x11
		0xDD, 0x2E, 0x22, // LD IXL,0x22
	})
	m.PC = 0x0100
	run(m, 2)
	assert.Equal(t, uint16(0x1122), m.IX)
}

func TestBitIndexedUsesAddressForYX(t *testing.T) {
	m := machine.New()
	m.IY = 0x3000
	m.Mem[0x3010] = 0x00
	m.WriteBlock(0x0100, []byte{
		0xFD, 0xCB, 0x10, 0x46, // BIT 0,(IY+0x10)
	})
	m.PC = 0x0100
	run(m, 1)
	assert.True(t, m.F.Z)
	assert.Equal(t, uint8(0x30)&0x20 != 0, m.F.Y)
	assert.Equal(t, uint8(0x30)&0x08 != 0, m.F.X)
}

func TestLDIRCopiesBlock(t *testing.T) {
	m := machine.New()
	m.WriteBlock(0x2000, []byte{1, 2, 3})
	m.SetHL(0x2000)
	m.SetDE(0x3000)
	m.SetBC(3)
	m.WriteBlock(0x0100, []byte{0xED, 0xB0}) // LDIR
	m.PC = 0x0100
	// LDIR moves one byte per Step and rewinds PC until BC reaches 0.
	run(m, 3)
	assert.Equal(t, []uint8{1, 2, 3}, m.Mem[0x3000:0x3003])
	assert.Equal(t, uint16(0), m.BC())
	assert.Equal(t, uint16(0x2003), m.HL())
}

func TestCallAndRet(t *testing.T) {
	m := machine.New()
	m.SP = 0xFF00
	m.WriteBlock(0x0100, []byte{0xCD, 0x00, 0x02}) // CALL 0x0200
	m.WriteBlock(0x0200, []byte{0xC9})              // RET
	m.PC = 0x0100
	run(m, 1)
	assert.Equal(t, uint16(0x0200), m.PC)
	run(m, 1)
	assert.Equal(t, uint16(0x0103), m.PC)
}

func TestMagicPageTrapAndSyntheticRET(t *testing.T) {
	m := machine.New()
	m.SP = 0xFF00
	m.WriteWord(0xFF00, 0x0103) // return address the "CALL" pushed
	m.PC = machine.MagicBase
	called := false
	Step(m, func(mm *machine.Machine, offset int) {
		called = true
		assert.Equal(t, 0, offset)
	})
	assert.True(t, called)
	assert.Equal(t, uint16(0x0103), m.PC)
	assert.Equal(t, uint16(0xFF02), m.SP)
}

func TestIndexedPartnerSuppressesHLHalfSubstitution(t *testing.T) {
	m := machine.New()
	m.IX = 0x4000
	m.H = 0xAA
	m.WriteBlock(0x0100, []byte{
		0xDD, 0x74, 0x10, // LD (IX+0x10),H -- must store plain H, not IXH
		0xDD, 0x66, 0x10, // LD H,(IX+0x10) -- must load plain H, not IXH
	})
	m.PC = 0x0100
	run(m, 1)
	assert.Equal(t, uint8(0xAA), m.Mem[0x4010])

	m.H = 0
	run(m, 1)
	assert.Equal(t, uint8(0xAA), m.H)
	assert.Equal(t, uint16(0x4000), m.IX)
}

func TestDAAAfterBCDAdd(t *testing.T) {
	m := machine.New()
	m.A = 0x19 // BCD 19
	m.WriteBlock(0x0100, []byte{
		0xC6, 0x08, // ADD A,0x08 (BCD 19+8=27 raw 0x21 before DAA)
		0x27, // DAA
	})
	m.PC = 0x0100
	run(m, 2)
	assert.Equal(t, uint8(0x27), m.A)
}
