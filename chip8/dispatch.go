package chip8

import "c8emu/byteconv"

type routine func(m *Machine, op Opcode, info *uint8) error

// Instruction describes one decoded operation.
type Instruction struct {
	// Name is the assembly mnemonic.
	Name string
	// Pattern is the canonical encoding, e.g. "8XY4".
	Pattern string

	operands func(Opcode) string
	exec     routine
}

// A family groups the opcodes sharing a top nibble. The secondary
// discriminant is the instruction word masked by mask.
type family struct {
	mask         uint16
	instructions map[uint16]Instruction
}

var families [16]family

func init() {
	families = [16]family{
		0x0: {0xFFFF, map[uint16]Instruction{
			0x00E0: {"CLS", "00E0", nil, clearScreen},
			0x00EE: {"RET", "00EE", nil, returnFromSubroutine},
		}},
		0x1: single("JP", "1NNN", addr, jumpToLocation),
		0x2: single("CALL", "2NNN", addr, callSubroutine),
		0x3: single("SE", "3XKK", regByte, stepIfXEqualsKK),
		0x4: single("SNE", "4XKK", regByte, stepIfXNotEqualsKK),
		0x5: single("SE", "5XY0", regReg, stepIfXEqualsY),
		0x6: single("LD", "6XKK", regByte, setXToKK),
		0x7: single("ADD", "7XKK", regByte, addKKToX),
		0x8: {0x000F, map[uint16]Instruction{
			0x0: {"LD", "8XY0", regReg, setXToY},
			0x1: {"OR", "8XY1", regReg, orXY},
			0x2: {"AND", "8XY2", regReg, andXY},
			0x3: {"XOR", "8XY3", regReg, xorXY},
			0x4: {"ADD", "8XY4", regReg, addXY},
			0x5: {"SUB", "8XY5", regReg, subtractYFromX},
			0x6: {"SHR", "8XY6", reg, shiftRightX},
			0x7: {"SUBN", "8XY7", regReg, subtractXFromY},
			0xE: {"SHL", "8XYE", reg, shiftLeftX},
		}},
		0x9: single("SNE", "9XY0", regReg, stepIfXNotEqualsY),
		0xA: single("LD", "ANNN", fixed("I, ", addr), setIToNNN),
		0xB: single("JP", "BNNN", fixed("V0, ", addr), jumpWithOffset),
		0xC: single("RND", "CXKK", regByte, setXToRandom),
		0xD: single("DRW", "DXYN", sprite, drawSprite),
		0xE: {0x00FF, map[uint16]Instruction{
			0x9E: {"SKP", "EX9E", reg, stepIfKeyDown},
			0xA1: {"SKNP", "EXA1", reg, stepIfKeyUp},
		}},
		0xF: {0x00FF, map[uint16]Instruction{
			0x07: {"LD", "FX07", suffix(", DT"), setXToDelay},
			0x0A: {"LD", "FX0A", suffix(", K"), pauseUntilKeyPressed},
			0x15: {"LD", "FX15", fixed("DT, ", reg), setDelayToX},
			0x18: {"LD", "FX18", fixed("ST, ", reg), setSoundToX},
			0x1E: {"ADD", "FX1E", fixed("I, ", reg), addXToI},
			0x29: {"LD", "FX29", fixed("F, ", reg), setIToSymbol},
			0x33: {"LD", "FX33", fixed("B, ", reg), binaryCodedDecimal},
			0x55: {"LD", "FX55", fixed("[I], ", reg), setRegistersToMemory},
			0x65: {"LD", "FX65", suffix(", [I]"), setMemoryToRegisters},
		}},
	}
}

func single(name, pattern string, operands func(Opcode) string, exec routine) family {
	return family{0, map[uint16]Instruction{0: {name, pattern, operands, exec}}}
}

// Decode looks up the instruction for an instruction word. The second
// result is false for encodings that match no known instruction.
func Decode(op Opcode) (Instruction, bool) {
	f := families[op.Kind()]
	ins, ok := f.instructions[uint16(op)&f.mask]
	return ins, ok
}

// execute runs the routine for op. Unknown encodings are ignored.
func execute(m *Machine, op Opcode, info *uint8) error {
	ins, ok := Decode(op)
	if !ok {
		return nil
	}
	return ins.exec(m, op, info)
}

func addr(op Opcode) string {
	return byteconv.U16toh(op.NNN(), 3)
}

func reg(op Opcode) string {
	return "V" + byteconv.U8toh(op.X(), 1)
}

func regByte(op Opcode) string {
	return reg(op) + ", " + byteconv.U8toh(op.KK(), 2)
}

func regReg(op Opcode) string {
	return reg(op) + ", V" + byteconv.U8toh(op.Y(), 1)
}

func sprite(op Opcode) string {
	return regReg(op) + ", " + byteconv.U8toh(op.N(), 1)
}

func fixed(prefix string, f func(Opcode) string) func(Opcode) string {
	return func(op Opcode) string {
		return prefix + f(op)
	}
}

func suffix(s string) func(Opcode) string {
	return func(op Opcode) string {
		return reg(op) + s
	}
}
