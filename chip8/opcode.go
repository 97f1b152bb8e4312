/*
 * Copyright 2026 Joshua Jones <joshua.jones.software@gmail.com>
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      www.apache.org
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package chip8

import "c8emu/byteconv"

func clearScreen(m *Machine, _ Opcode, info *uint8) error {
	m.video.Clear()
	*info |= Redraw
	return nil
}

func returnFromSubroutine(m *Machine, _ Opcode, _ *uint8) error {
	if m.sp == 0 {
		return ErrStackUnderflow
	}
	m.pc = m.stack[m.sp]
	m.sp--
	return nil
}

func jumpToLocation(m *Machine, op Opcode, _ *uint8) error {
	m.pc = op.NNN()
	return nil
}

func callSubroutine(m *Machine, op Opcode, _ *uint8) error {
	if int(m.sp) >= len(m.stack)-1 {
		return ErrStackOverflow
	}
	m.sp++
	m.stack[m.sp] = m.pc
	m.pc = op.NNN()
	return nil
}

func stepIfXEqualsKK(m *Machine, op Opcode, _ *uint8) error {
	if m.v[op.X()] == op.KK() {
		m.pc += 2
	}
	return nil
}

func stepIfXNotEqualsKK(m *Machine, op Opcode, _ *uint8) error {
	if m.v[op.X()] != op.KK() {
		m.pc += 2
	}
	return nil
}

func stepIfXEqualsY(m *Machine, op Opcode, _ *uint8) error {
	if m.v[op.X()] == m.v[op.Y()] {
		m.pc += 2
	}
	return nil
}

func setXToKK(m *Machine, op Opcode, _ *uint8) error {
	m.v[op.X()] = op.KK()
	return nil
}

func addKKToX(m *Machine, op Opcode, _ *uint8) error {
	m.v[op.X()] += op.KK()
	return nil
}

func setXToY(m *Machine, op Opcode, _ *uint8) error {
	m.v[op.X()] = m.v[op.Y()]
	return nil
}

func orXY(m *Machine, op Opcode, _ *uint8) error {
	m.v[op.X()] |= m.v[op.Y()]
	return nil
}

func andXY(m *Machine, op Opcode, _ *uint8) error {
	m.v[op.X()] &= m.v[op.Y()]
	return nil
}

func xorXY(m *Machine, op Opcode, _ *uint8) error {
	m.v[op.X()] ^= m.v[op.Y()]
	return nil
}

// The arithmetic routines write VF before the result, so when X is F the
// result wins.
func addXY(m *Machine, op Opcode, _ *uint8) error {
	sum := uint16(m.v[op.X()]) + uint16(m.v[op.Y()])
	m.v[CarryFlag] = 0
	if sum > 255 {
		m.v[CarryFlag] = 1
	}
	m.v[op.X()] = byte(sum)
	return nil
}

func subtractYFromX(m *Machine, op Opcode, _ *uint8) error {
	vx, vy := m.v[op.X()], m.v[op.Y()]
	m.v[CarryFlag] = 0
	if vx > vy {
		m.v[CarryFlag] = 1
	}
	m.v[op.X()] = vx - vy
	return nil
}

func shiftRightX(m *Machine, op Opcode, _ *uint8) error {
	vx := m.v[op.X()]
	m.v[CarryFlag] = vx & 0x1
	m.v[op.X()] = vx >> 1
	return nil
}

func subtractXFromY(m *Machine, op Opcode, _ *uint8) error {
	vx, vy := m.v[op.X()], m.v[op.Y()]
	m.v[CarryFlag] = 0
	if vy > vx {
		m.v[CarryFlag] = 1
	}
	m.v[op.X()] = vy - vx
	return nil
}

func shiftLeftX(m *Machine, op Opcode, _ *uint8) error {
	vx := m.v[op.X()]
	if m.quirks.ShiftFlagLowBit {
		m.v[CarryFlag] = vx & 0x1
	} else {
		m.v[CarryFlag] = (vx & 0x80) >> 7
	}
	m.v[op.X()] = vx << 1
	return nil
}

func stepIfXNotEqualsY(m *Machine, op Opcode, _ *uint8) error {
	if m.v[op.X()] != m.v[op.Y()] {
		m.pc += 2
	}
	return nil
}

func setIToNNN(m *Machine, op Opcode, _ *uint8) error {
	m.i = op.NNN()
	return nil
}

func jumpWithOffset(m *Machine, op Opcode, _ *uint8) error {
	m.pc = op.NNN() + uint16(m.v[0x0])
	return nil
}

func setXToRandom(m *Machine, op Opcode, _ *uint8) error {
	randomByte := byte(m.rand.UintN(256))
	m.v[op.X()] = randomByte & op.KK()
	return nil
}

func drawSprite(m *Machine, op Opcode, info *uint8) error {
	end := int(m.i) + int(op.N())
	if end > MemorySize {
		return ErrAddress
	}
	sprite := m.memory[m.i:end]
	m.v[CarryFlag] = m.video.DrawSprite(m.v[op.X()], m.v[op.Y()], sprite, m.quirks.AnyCollision)
	*info |= Redraw
	return nil
}

func stepIfKeyDown(m *Machine, op Opcode, _ *uint8) error {
	if m.keypad.Down(m.v[op.X()]) {
		m.pc += 2
	}
	return nil
}

func stepIfKeyUp(m *Machine, op Opcode, _ *uint8) error {
	if !m.keypad.Down(m.v[op.X()]) {
		m.pc += 2
	}
	return nil
}

func setXToDelay(m *Machine, op Opcode, _ *uint8) error {
	m.v[op.X()] = m.delay.Load()
	return nil
}

// pauseUntilKeyPressed completes at once if a key is already down. Otherwise
// the machine parks in the waiting state, which Step resolves once a key
// goes down.
func pauseUntilKeyPressed(m *Machine, op Opcode, _ *uint8) error {
	if key, ok := m.keypad.FirstDown(); ok {
		m.v[op.X()] = key
		return nil
	}
	m.waiting.Store(true)
	m.waitReg = op.X()
	return nil
}

func setDelayToX(m *Machine, op Opcode, _ *uint8) error {
	m.delay.Store(m.v[op.X()])
	return nil
}

func setSoundToX(m *Machine, op Opcode, _ *uint8) error {
	m.sound.Store(m.v[op.X()])
	return nil
}

func addXToI(m *Machine, op Opcode, _ *uint8) error {
	m.i += uint16(m.v[op.X()])
	return nil
}

func setIToSymbol(m *Machine, op Opcode, _ *uint8) error {
	m.i = uint16(m.v[op.X()])*5 + FontStartAddress
	return nil
}

func binaryCodedDecimal(m *Machine, op Opcode, _ *uint8) error {
	if int(m.i)+3 > MemorySize {
		return ErrAddress
	}

	// Double dabble: shift the value in one bit at a time, adding 3 to any
	// BCD digit that is 5 or more before the shift so it carries correctly.
	var bcd uint32
	val := uint32(m.v[op.X()])

	for i := range 8 {
		if (bcd & 0x00F) >= 5 {
			bcd += 3
		}
		if (bcd & 0x0F0) >= 0x050 {
			bcd += 0x030
		}
		if (bcd & 0xF00) >= 0x500 {
			bcd += 0x300
		}
		bcd = (bcd << 1) | ((val >> (7 - i)) & 1)
	}

	m.memory[m.i] = byte((bcd >> 8) & 0xF)   // Hundreds
	m.memory[m.i+1] = byte((bcd >> 4) & 0xF) // Tens
	m.memory[m.i+2] = byte(bcd & 0xF)        // Ones
	return nil
}

func setRegistersToMemory(m *Machine, op Opcode, _ *uint8) error {
	x := op.X()
	if int(m.i)+int(x) >= MemorySize {
		return ErrAddress
	}
	for i := uint8(0); i <= x; i++ {
		m.memory[m.i+uint16(i)] = m.v[i]
	}
	return nil
}

func setMemoryToRegisters(m *Machine, op Opcode, _ *uint8) error {
	x := op.X()
	if int(m.i)+int(x) >= MemorySize {
		return ErrAddress
	}
	for i := uint8(0); i <= x; i++ {
		m.v[i] = m.memory[m.i+uint16(i)]
	}
	return nil
}

// Opcode is a 16-bit instruction word.
type Opcode uint16

// Kind returns the opcode family, the top nibble.
func (o Opcode) Kind() uint8 {
	return uint8((uint16(o) & 0xF000) >> 12)
}

func (o Opcode) X() uint8 {
	return uint8((uint16(o) & 0x0F00) >> 8)
}

func (o Opcode) Y() uint8 {
	return uint8((uint16(o) & 0x00F0) >> 4)
}

func (o Opcode) N() uint8 {
	return uint8(uint16(o) & 0x000F)
}

func (o Opcode) KK() uint8 {
	return uint8(uint16(o) & 0x00FF)
}

func (o Opcode) NNN() uint16 {
	return uint16(o) & 0x0FFF
}

// String returns the conventional assembly form of the instruction, or a
// data word for an unknown encoding.
func (o Opcode) String() string {
	ins, ok := Decode(o)
	if !ok {
		return "DW " + byteconv.U16toh(uint16(o), 4)
	}
	if ins.operands == nil {
		return ins.Name
	}
	return ins.Name + " " + ins.operands(o)
}
