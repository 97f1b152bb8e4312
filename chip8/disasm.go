package chip8

import "c8emu/byteconv"

// Line is one entry of a program listing.
type Line struct {
	Address uint16
	Opcode  Opcode
	Known   bool
}

func (l Line) String() string {
	return byteconv.U16toh(l.Address, 3) + "  " + byteconv.U16toh(uint16(l.Opcode), 4) + "  " + l.Opcode.String()
}

// Disassemble decodes program as a linear sequence of instruction words
// loaded at base. A trailing odd byte is listed as a data word.
func Disassemble(program []byte, base uint16) []Line {
	lines := make([]Line, 0, (len(program)+1)/2)
	for i := 0; i < len(program); i += 2 {
		w := uint16(program[i]) << 8
		if i+1 < len(program) {
			w |= uint16(program[i+1])
		}
		op := Opcode(w)
		_, known := Decode(op)
		lines = append(lines, Line{
			Address: base + uint16(i),
			Opcode:  op,
			Known:   known,
		})
	}
	return lines
}
