package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMagicPageIsRET(t *testing.T) {
	m := New()
	for a := int(MagicBase); a <= 0xFFFF; a++ {
		assert.Equal(t, uint8(0xC9), m.Mem[a], "offset %d should be RET", a-int(MagicBase))
	}
}

func TestWordWrapAround(t *testing.T) {
	m := New()
	m.WriteWord(0xFFFF, 0x1234)
	assert.Equal(t, uint8(0x34), m.Mem[0xFFFF])
	assert.Equal(t, uint8(0x12), m.Mem[0x0000])
	assert.Equal(t, uint16(0x1234), m.ReadWord(0xFFFF))
}

func TestIncRPreservesBit7(t *testing.T) {
	m := New()
	m.R = 0x80 | 0x7F
	m.IncR()
	assert.Equal(t, uint8(0x80), m.R)

	m.R = 0x05
	m.IncR()
	assert.Equal(t, uint8(0x06), m.R)
}

func TestFlagsRoundTrip(t *testing.T) {
	f := Flags{S: true, Z: false, Y: true, H: true, X: false, PV: true, N: false, C: true}
	var g Flags
	g.FromByte(f.ToByte())
	assert.Equal(t, f, g)
}

func TestRegisterPairs(t *testing.T) {
	m := New()
	m.SetHL(0xBEEF)
	assert.Equal(t, uint8(0xBE), m.H)
	assert.Equal(t, uint8(0xEF), m.L)
	assert.Equal(t, uint16(0xBEEF), m.HL())
}

func TestExxAndExAF(t *testing.T) {
	m := New()
	m.SetBC(0x1111)
	m.AltB, m.AltC = 0x22, 0x22
	m.Exx()
	assert.Equal(t, uint16(0x2222), m.BC())

	m.A = 0x01
	m.F.Z = true
	m.AltA = 0x02
	m.AltF.Z = false
	m.ExAF()
	assert.Equal(t, uint8(0x02), m.A)
	assert.False(t, m.F.Z)
}

func TestSetTerminateIgnoresSecondCall(t *testing.T) {
	m := New()
	m.SetTerminate(Normal)
	m.SetTerminate(ErrSignal)
	assert.Equal(t, Normal, m.TermReason)
}
