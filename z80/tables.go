package z80

import "github.com/cpmulate/cpmemu/machine"

// The base opcode map decomposes into fields x = op>>6, y = (op>>3)&7,
// z = op&7, p = y>>1, q = y&1. These lookup tables translate the y/p
// fields into register, register-pair, condition and operation indices,
// the same decomposition used throughout the Z80 documentation and by
// other Z80 cores in the wild (see DESIGN.md).

// r8 names the single-byte-register operands for a given y/z field, in
// opcode order: B C D E H L (HL) A. Index 6 is never looked up directly
// since (HL)/(IX+d)/(IY+d) is resolved through state.getReg8/setReg8
// instead.
var r8 = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// rp16 names the register pairs selected by p for instructions that use
// SP as the fourth pair (LD/INC/DEC/ADD).
var rp16 = [4]string{"BC", "DE", "HL", "SP"}

// rp16af names the register pairs selected by p for PUSH/POP, where the
// fourth pair is AF instead of SP.
var rp16af = [4]string{"BC", "DE", "HL", "AF"}

// cc names the condition codes selected by y for JP/JR/CALL/RET cc.
var cc = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

// aluOp names the 8-bit ALU operations selected by y for the ADD/ADC/
// SUB/SBC/AND/XOR/OR/CP opcode block and the immediate-operand forms.
var aluOp = [8]string{"ADD", "ADC", "SUB", "SBC", "AND", "XOR", "OR", "CP"}

// rotOp names the CB-prefixed rotate/shift operations selected by y.
var rotOp = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

// evalCC evaluates the condition named by y (per the cc table above)
// against the current flags.
func evalCC(f *machine.Flags, y int) bool {
	switch y {
	case 0:
		return !f.Z
	case 1:
		return f.Z
	case 2:
		return !f.C
	case 3:
		return f.C
	case 4:
		return !f.PV
	case 5:
		return f.PV
	case 6:
		return !f.S
	case 7:
		return f.S
	}
	panic("unreachable")
}
