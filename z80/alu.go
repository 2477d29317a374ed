package z80

import "github.com/cpmulate/cpmemu/machine"

// parityTable[b] is true when b has an even number of set bits, used for
// the P/V flag on logical operations.
var parityTable [256]bool

func init() {
	for i := 0; i < 256; i++ {
		bits := 0
		for v := i; v != 0; v >>= 1 {
			bits += v & 1
		}
		parityTable[i] = bits%2 == 0
	}
}

func szFlags(f *machine.Flags, result uint8) {
	f.S = result&0x80 != 0
	f.Z = result == 0
	f.Y = result&0x20 != 0
	f.X = result&0x08 != 0
}

// add8 computes a + b (+carry if withCarry) and sets all flags per the
// Z80 reference: §8 invariant 8.
func add8(f *machine.Flags, a, b uint8, withCarry bool) uint8 {
	var c uint8
	if withCarry && f.C {
		c = 1
	}
	result16 := uint16(a) + uint16(b) + uint16(c)
	result := uint8(result16)
	szFlags(f, result)
	f.H = (a&0xF)+(b&0xF)+c > 0xF
	f.C = result16 > 0xFF
	f.PV = (a^b)&0x80 == 0 && (a^result)&0x80 != 0
	f.N = false
	return result
}

// sub8 computes a - b (-carry if withCarry) and sets all flags.
func sub8(f *machine.Flags, a, b uint8, withCarry bool) uint8 {
	var c uint8
	if withCarry && f.C {
		c = 1
	}
	result16 := int16(a) - int16(b) - int16(c)
	result := uint8(result16)
	szFlags(f, result)
	f.H = int16(a&0xF)-int16(b&0xF)-int16(c) < 0
	f.C = result16 < 0
	f.PV = (a^b)&0x80 != 0 && (a^result)&0x80 != 0
	f.N = true
	return result
}

func and8(f *machine.Flags, a, b uint8) uint8 {
	result := a & b
	szFlags(f, result)
	f.H = true
	f.N = false
	f.C = false
	f.PV = parityTable[result]
	return result
}

func or8(f *machine.Flags, a, b uint8) uint8 {
	result := a | b
	szFlags(f, result)
	f.H = false
	f.N = false
	f.C = false
	f.PV = parityTable[result]
	return result
}

func xor8(f *machine.Flags, a, b uint8) uint8 {
	result := a ^ b
	szFlags(f, result)
	f.H = false
	f.N = false
	f.C = false
	f.PV = parityTable[result]
	return result
}

// cp8 compares a and b (like sub8 but discards the result) for the CP
// instruction; Y/X come from the operand b, not the result, matching real
// Z80 behavior.
func cp8(f *machine.Flags, a, b uint8) {
	result16 := int16(a) - int16(b)
	result := uint8(result16)
	f.S = result&0x80 != 0
	f.Z = result == 0
	f.Y = b&0x20 != 0
	f.X = b&0x08 != 0
	f.H = int16(a&0xF)-int16(b&0xF) < 0
	f.C = result16 < 0
	f.PV = (a^b)&0x80 != 0 && (a^result)&0x80 != 0
	f.N = true
}

func inc8(f *machine.Flags, a uint8) uint8 {
	result := a + 1
	szFlags(f, result)
	f.H = a&0xF == 0xF
	f.PV = a == 0x7F
	f.N = false
	return result
}

func dec8(f *machine.Flags, a uint8) uint8 {
	result := a - 1
	szFlags(f, result)
	f.H = a&0xF == 0
	f.PV = a == 0x80
	f.N = true
	return result
}

// add16 is ADD HL/IX/IY,rp: no S/Z/PV change, H/C/N per the 16-bit add,
// Y/X taken from bits 13/11 of the high byte of the result.
func add16(f *machine.Flags, a, b uint16) uint16 {
	result32 := uint32(a) + uint32(b)
	result := uint16(result32)
	f.H = (a&0xFFF)+(b&0xFFF) > 0xFFF
	f.C = result32 > 0xFFFF
	f.N = false
	f.Y = uint8(result>>8)&0x20 != 0
	f.X = uint8(result>>8)&0x08 != 0
	return result
}

// adc16/sbc16 are the ED-prefixed 16-bit adds/subtracts with carry, which
// do update S/Z/PV unlike ADD HL,rp.
func adc16(f *machine.Flags, a, b uint16) uint16 {
	var c uint32
	if f.C {
		c = 1
	}
	result32 := uint32(a) + uint32(b) + c
	result := uint16(result32)
	f.S = result&0x8000 != 0
	f.Z = result == 0
	f.H = (a&0xFFF)+(b&0xFFF)+uint16(c) > 0xFFF
	f.C = result32 > 0xFFFF
	f.PV = (a^b)&0x8000 == 0 && (a^result)&0x8000 != 0
	f.N = false
	f.Y = uint8(result>>8)&0x20 != 0
	f.X = uint8(result>>8)&0x08 != 0
	return result
}

func sbc16(f *machine.Flags, a, b uint16) uint16 {
	var c int32
	if f.C {
		c = 1
	}
	result32 := int32(a) - int32(b) - c
	result := uint16(result32)
	f.S = result&0x8000 != 0
	f.Z = result == 0
	f.H = int32(a&0xFFF)-int32(b&0xFFF)-c < 0
	f.C = result32 < 0
	f.PV = (a^b)&0x8000 != 0 && (a^result)&0x8000 != 0
	f.N = true
	f.Y = uint8(result>>8)&0x20 != 0
	f.X = uint8(result>>8)&0x08 != 0
	return result
}

// daa implements decimal adjust with the standard BCD correction table and
// correct H-flag update.
func daa(f *machine.Flags, a uint8) uint8 {
	correction := uint8(0)
	carry := f.C
	halfCarry := f.H

	if halfCarry || a&0xF > 9 {
		correction |= 0x06
	}
	if carry || a > 0x99 {
		correction |= 0x60
		carry = true
	}

	var result uint8
	if f.N {
		result = a - correction
		f.H = halfCarry && a&0xF < 6
	} else {
		result = a + correction
		f.H = a&0xF > 9
	}

	szFlags(f, result)
	f.PV = parityTable[result]
	f.C = carry
	return result
}

func cpl(f *machine.Flags, a uint8) uint8 {
	result := ^a
	f.H = true
	f.N = true
	f.Y = result&0x20 != 0
	f.X = result&0x08 != 0
	return result
}

func neg(f *machine.Flags, a uint8) uint8 {
	result16 := int16(0) - int16(a)
	result := uint8(result16)
	szFlags(f, result)
	f.H = a&0xF != 0
	f.PV = a == 0x80
	f.C = a != 0
	f.N = true
	return result
}

func scf(f *machine.Flags, a uint8) {
	f.H = false
	f.N = false
	f.C = true
	f.Y = a&0x20 != 0
	f.X = a&0x08 != 0
}

func ccf(f *machine.Flags, a uint8) {
	f.H = f.C
	f.N = false
	f.C = !f.C
	f.Y = a&0x20 != 0
	f.X = a&0x08 != 0
}

// Rotate/shift helpers used by both accumulator-only (RLCA etc, no S/Z/PV
// change) and the CB-prefixed register/memory forms (which do set S/Z/PV).

func rlc(v uint8) (uint8, bool) {
	carry := v&0x80 != 0
	result := v << 1
	if carry {
		result |= 1
	}
	return result, carry
}

func rrc(v uint8) (uint8, bool) {
	carry := v&1 != 0
	result := v >> 1
	if carry {
		result |= 0x80
	}
	return result, carry
}

func rl(v uint8, carryIn bool) (uint8, bool) {
	carry := v&0x80 != 0
	result := v << 1
	if carryIn {
		result |= 1
	}
	return result, carry
}

func rr(v uint8, carryIn bool) (uint8, bool) {
	carry := v&1 != 0
	result := v >> 1
	if carryIn {
		result |= 0x80
	}
	return result, carry
}

func sla(v uint8) (uint8, bool) {
	carry := v&0x80 != 0
	return v << 1, carry
}

func sra(v uint8) (uint8, bool) {
	carry := v&1 != 0
	result := (v >> 1) | (v & 0x80)
	return result, carry
}

// sll is the undocumented "shift left logical" that shifts in a 1, not a 0.
func sll(v uint8) (uint8, bool) {
	carry := v&0x80 != 0
	result := (v << 1) | 1
	return result, carry
}

func srl(v uint8) (uint8, bool) {
	carry := v&1 != 0
	return v >> 1, carry
}

func setRotFlags(f *machine.Flags, result uint8, carry bool) {
	szFlags(f, result)
	f.H = false
	f.N = false
	f.PV = parityTable[result]
	f.C = carry
}
