package chip8

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMachine returns a machine with the given instruction words loaded at
// the program start address.
func newMachine(t *testing.T, words ...uint16) *Machine {
	t.Helper()
	m := New(WithRand(rand.New(rand.NewPCG(1, 2))))
	program := make([]byte, 0, len(words)*2)
	for _, w := range words {
		program = append(program, byte(w>>8), byte(w))
	}
	require.NoError(t, m.Load(program))
	return m
}

// step executes one instruction and fails the test on a fault.
func step(t *testing.T, m *Machine) uint8 {
	t.Helper()
	info, err := m.Step()
	require.NoError(t, err)
	return info
}

func TestAddByteWrapsAndKeepsFlag(t *testing.T) {
	tests := []struct {
		name string
		v    uint8
		kk   uint8
		want uint8
	}{
		{"no overflow", 0x10, 0x20, 0x30},
		{"exact 255", 0xF0, 0x0F, 0xFF},
		{"wraps", 0xFF, 0x02, 0x01},
		{"zero", 0x00, 0x00, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, 0x7300|uint16(tt.kk))
			m.SetRegister(3, tt.v)
			m.SetRegister(CarryFlag, 0x55)

			step(t, m)

			assert.Equal(t, tt.want, m.Register(3))
			assert.Equal(t, uint8(0x55), m.Register(CarryFlag))
		})
	}
}

func TestArithmeticFlags(t *testing.T) {
	tests := []struct {
		name   string
		op     uint16
		vx, vy uint8
		want   uint8
		flag   uint8
	}{
		{"add no carry", 0x8124, 100, 150, 250, 0},
		{"add carry", 0x8124, 200, 100, 44, 1},
		{"sub no borrow", 0x8125, 0x80, 0x75, 0x0B, 1},
		{"sub borrow", 0x8125, 0x75, 0x80, 0xF5, 0},
		{"sub equal", 0x8125, 5, 5, 0, 0},
		{"subn no borrow", 0x8127, 2, 4, 2, 1},
		{"subn borrow", 0x8127, 4, 2, 0xFE, 0},
		{"shr odd", 0x8126, 0x05, 0, 0x02, 1},
		{"shr even", 0x8126, 0x04, 0, 0x02, 0},
		{"shl high bit", 0x812E, 0x81, 0, 0x02, 1},
		{"shl low bit only", 0x812E, 0x01, 0, 0x02, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, tt.op)
			m.SetRegister(1, tt.vx)
			m.SetRegister(2, tt.vy)

			step(t, m)

			assert.Equal(t, tt.want, m.Register(1))
			assert.Equal(t, tt.flag, m.Register(CarryFlag))
		})
	}
}

func TestShiftLeftLowBitQuirk(t *testing.T) {
	m := New(WithQuirks(Quirks{ShiftFlagLowBit: true}))
	require.NoError(t, m.Load([]byte{0x81, 0x2E, 0x81, 0x2E}))

	m.SetRegister(1, 0x81)
	step(t, m)
	assert.Equal(t, uint8(0x02), m.Register(1))
	assert.Equal(t, uint8(1), m.Register(CarryFlag))

	step(t, m)
	assert.Equal(t, uint8(0x04), m.Register(1))
	assert.Equal(t, uint8(0), m.Register(CarryFlag))
}

func TestFlagWrittenBeforeResult(t *testing.T) {
	m := newMachine(t, 0x8F14)
	m.SetRegister(CarryFlag, 200)
	m.SetRegister(1, 100)

	step(t, m)

	assert.Equal(t, uint8(44), m.Register(CarryFlag))
}

func TestLogicAndLoads(t *testing.T) {
	tests := []struct {
		name string
		op   uint16
		want uint8
	}{
		{"ld", 0x8120, 0x3C},
		{"or", 0x8121, 0xFC},
		{"and", 0x8122, 0x00},
		{"xor", 0x8123, 0xFC},
		{"ld byte", 0x61AB, 0xAB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, tt.op)
			m.SetRegister(1, 0xC0)
			m.SetRegister(2, 0x3C)
			m.SetRegister(CarryFlag, 0x77)

			step(t, m)

			assert.Equal(t, tt.want, m.Register(1))
			assert.Equal(t, uint8(0x77), m.Register(CarryFlag))
		})
	}
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name   string
		op     uint16
		vx, vy uint8
		skip   bool
	}{
		{"se byte equal", 0x3142, 0x42, 0, true},
		{"se byte differ", 0x3142, 0x41, 0, false},
		{"sne byte equal", 0x4142, 0x42, 0, false},
		{"sne byte differ", 0x4142, 0x41, 0, true},
		{"se reg equal", 0x5120, 7, 7, true},
		{"se reg differ", 0x5120, 7, 8, false},
		{"sne reg equal", 0x9120, 7, 7, false},
		{"sne reg differ", 0x9120, 7, 8, true},
		{"se reg ignores low nibble", 0x5121, 0, 0, true},
		{"se reg low nibble differ", 0x512F, 3, 4, false},
		{"sne reg ignores low nibble", 0x9121, 1, 0, true},
		{"sne reg low nibble equal", 0x912F, 5, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, tt.op)
			m.SetRegister(1, tt.vx)
			m.SetRegister(2, tt.vy)

			step(t, m)

			want := uint16(ProgramStartAddress + 2)
			if tt.skip {
				want += 2
			}
			assert.Equal(t, want, m.ProgramCounter())
		})
	}
}

func TestJumps(t *testing.T) {
	m := newMachine(t, 0x1456)
	step(t, m)
	assert.Equal(t, uint16(0x456), m.ProgramCounter())

	m = newMachine(t, 0xB300)
	m.SetRegister(0, 0x20)
	step(t, m)
	assert.Equal(t, uint16(0x320), m.ProgramCounter())

	m = newMachine(t, 0xA123)
	step(t, m)
	assert.Equal(t, uint16(0x123), m.Index())
}

func TestCallReturnRoundTrip(t *testing.T) {
	m := newMachine(t, 0x6000, 0x2555)
	m.Write(0x555, []byte{0x00, 0xEE})

	step(t, m)
	pc, sp := m.ProgramCounter(), m.StackPointer()

	step(t, m)
	assert.Equal(t, uint16(0x555), m.ProgramCounter())
	assert.Equal(t, sp+1, m.StackPointer())

	step(t, m)
	assert.Equal(t, pc+2, m.ProgramCounter())
	assert.Equal(t, sp, m.StackPointer())
}

func TestStackFaults(t *testing.T) {
	t.Run("underflow", func(t *testing.T) {
		m := newMachine(t, 0x00EE)
		_, err := m.Step()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStackUnderflow))

		var fault *Fault
		require.True(t, errors.As(err, &fault))
		assert.Equal(t, uint16(ProgramStartAddress), fault.PC)
		assert.Equal(t, Opcode(0x00EE), fault.Opcode)
	})

	t.Run("overflow", func(t *testing.T) {
		m := newMachine(t, 0x2200)
		for range StackSize - 1 {
			step(t, m)
		}
		assert.Equal(t, uint8(StackSize-1), m.StackPointer())

		_, err := m.Step()
		assert.ErrorIs(t, err, ErrStackOverflow)
	})
}

func TestClearScreen(t *testing.T) {
	m := newMachine(t, 0x00E0)
	for y := range Height {
		for x := range Width {
			m.Display().Set(x, y, true)
		}
	}

	info := step(t, m)

	assert.NotZero(t, info&Redraw)
	for _, p := range m.Display().Snapshot(nil) {
		require.Equal(t, Dark, p)
	}
}

func TestRandomMasked(t *testing.T) {
	m := newMachine(t, 0xC10F, 0xC200)
	m.SetRegister(2, 0xFF)

	step(t, m)
	step(t, m)

	assert.Zero(t, m.Register(1)&0xF0)
	assert.Zero(t, m.Register(2))
}

func TestKeySkips(t *testing.T) {
	m := newMachine(t, 0xE19E, 0x0000, 0xE1A1)
	m.SetRegister(1, 0xA)

	m.Keypad().Set(0xA, true)
	step(t, m)
	assert.Equal(t, uint16(0x204), m.ProgramCounter())

	step(t, m)
	assert.Equal(t, uint16(0x206), m.ProgramCounter())

	m.SetProgramCounter(0x204)
	m.Keypad().Set(0xA, false)
	step(t, m)
	assert.Equal(t, uint16(0x208), m.ProgramCounter())
}

func TestTimerRegisters(t *testing.T) {
	m := newMachine(t, 0xF115, 0xF218, 0xF307)
	m.SetRegister(1, 30)
	m.SetRegister(2, 40)

	step(t, m)
	step(t, m)
	info := step(t, m)

	assert.Equal(t, uint8(30), m.DelayTimer())
	assert.Equal(t, uint8(40), m.SoundTimer())
	assert.Equal(t, uint8(30), m.Register(3))
	assert.NotZero(t, info&Sound)
	assert.NotZero(t, info&Delay)
}

func TestWaitForKey(t *testing.T) {
	m := newMachine(t, 0xF30A, 0x6101)

	info := step(t, m)
	assert.NotZero(t, info&Waiting)
	assert.True(t, m.WaitingForKey())
	assert.Equal(t, uint16(0x202), m.ProgramCounter())

	info = step(t, m)
	assert.NotZero(t, info&Waiting)
	assert.Equal(t, uint16(0x202), m.ProgramCounter())

	m.Keypad().Set(0x7, true)
	info = step(t, m)
	assert.Zero(t, info&Waiting)
	assert.False(t, m.WaitingForKey())
	assert.Equal(t, uint8(0x7), m.Register(3))
	assert.Equal(t, uint16(0x202), m.ProgramCounter())

	step(t, m)
	assert.Equal(t, uint8(1), m.Register(1))
}

func TestWaitForKeyAlreadyDown(t *testing.T) {
	m := newMachine(t, 0xF50A)
	m.Keypad().Set(0xC, true)
	m.Keypad().Set(0x4, true)

	info := step(t, m)

	assert.Zero(t, info&Waiting)
	assert.Equal(t, uint8(0x4), m.Register(5))
}

func TestIndexOperations(t *testing.T) {
	m := newMachine(t, 0xA300, 0xF11E, 0xF229)
	m.SetRegister(1, 0x10)
	m.SetRegister(2, 0xA)

	step(t, m)
	step(t, m)
	assert.Equal(t, uint16(0x310), m.Index())

	step(t, m)
	assert.Equal(t, uint16(FontStartAddress+0xA*5), m.Index())
}

func TestBinaryCodedDecimal(t *testing.T) {
	tests := []struct {
		v    uint8
		want []byte
	}{
		{127, []byte{1, 2, 7}},
		{0, []byte{0, 0, 0}},
		{255, []byte{2, 5, 5}},
		{9, []byte{0, 0, 9}},
		{100, []byte{1, 0, 0}},
	}

	for _, tt := range tests {
		m := newMachine(t, 0xA400, 0xF433)
		m.SetRegister(4, tt.v)

		step(t, m)
		step(t, m)

		got := make([]byte, 3)
		m.Read(0x400, got)
		assert.Equal(t, tt.want, got, "value %d", tt.v)
	}
}

func TestRegisterMemoryRoundTrip(t *testing.T) {
	m := newMachine(t, 0xA250, 0xFF55, 0xFF65)
	for x := range uint8(RegisterCount) {
		m.SetRegister(x, 251)
	}

	step(t, m)
	step(t, m)
	for x := range uint8(RegisterCount) {
		m.SetRegister(x, 0)
	}
	step(t, m)

	for x := range uint8(RegisterCount) {
		assert.Equal(t, uint8(251), m.Register(x), "V%X", x)
	}
	assert.Equal(t, uint16(0x250), m.Index())
}

func TestStoreRegistersPartial(t *testing.T) {
	m := newMachine(t, 0xA300, 0xF255)
	m.SetRegister(0, 1)
	m.SetRegister(1, 2)
	m.SetRegister(2, 3)
	m.SetRegister(3, 4)

	step(t, m)
	step(t, m)

	got := make([]byte, 4)
	m.Read(0x300, got)
	assert.Equal(t, []byte{1, 2, 3, 0}, got)
}

func TestMemoryOperandOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		op   uint16
	}{
		{"bcd", 0xF033},
		{"store", 0xF155},
		{"load", 0xF165},
		{"draw", 0xD002},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, 0xAFFF, tt.op)
			step(t, m)

			_, err := m.Step()
			assert.ErrorIs(t, err, ErrAddress)
		})
	}
}

func TestUnknownOpcodeIsIgnored(t *testing.T) {
	for _, w := range []uint16{0x8128, 0xE1FF, 0xF1FF, 0x0123} {
		m := newMachine(t, w)
		before := m.Snapshot()

		step(t, m)

		after := m.Snapshot()
		assert.Equal(t, before.V, after.V, "%04X", w)
		assert.Equal(t, before.PC+2, after.PC, "%04X", w)
		assert.Equal(t, Opcode(w), after.Instruction)
	}
}

func TestDecode(t *testing.T) {
	ins, ok := Decode(0x8AB4)
	require.True(t, ok)
	assert.Equal(t, "ADD", ins.Name)
	assert.Equal(t, "8XY4", ins.Pattern)

	_, ok = Decode(0x8AB9)
	assert.False(t, ok)
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{0x00E0, "CLS"},
		{0x00EE, "RET"},
		{0x1234, "JP 234"},
		{0x2ABC, "CALL ABC"},
		{0x3A12, "SE VA, 12"},
		{0x5120, "SE V1, V2"},
		{0x8AB4, "ADD VA, VB"},
		{0x8A06, "SHR VA"},
		{0xA123, "LD I, 123"},
		{0xB200, "JP V0, 200"},
		{0xD125, "DRW V1, V2, 5"},
		{0xE29E, "SKP V2"},
		{0xF30A, "LD V3, K"},
		{0xF415, "LD DT, V4"},
		{0xF455, "LD [I], V4"},
		{0xF465, "LD V4, [I]"},
		{0x5121, "DW 5121"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}
