package chip8

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

const (
	MemorySize          = 4096
	RegisterCount       = 16
	StackSize           = 16
	KeyCount            = 16
	FontStartAddress    = 0x50
	ProgramStartAddress = 0x200
	MaxProgramSize      = MemorySize - ProgramStartAddress
	CarryFlag           = 0xF

	TimerRate time.Duration = time.Second / 60  // 60hz
	ClockRate time.Duration = time.Second / 500 // 500hz

	Width  int = 64
	Height int = 32
	Area   int = Width * Height
)

// Info flags returned by Step and Scheduler.Poll.
const (
	Delay uint8 = 1 << iota
	Sound
	Redraw
	Waiting
)

var fontSet = [...]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Quirks selects between the interpretations real ROMs disagree on. The zero
// value is the default behaviour.
type Quirks struct {
	// ShiftFlagLowBit makes 8XYE take VF from bit 0 like 8XY6 does, instead
	// of from bit 7.
	ShiftFlagLowBit bool
	// AnyCollision makes DXYN set VF when any lit pixel was erased, instead of
	// reporting the prior state of the last cell the sprite covered.
	AnyCollision bool
}

// Machine is the complete state of one CHIP-8 session.
//
// Memory, registers, the stack and the index register are owned by the
// goroutine calling Step. The keypad, framebuffer and timers are safe to
// share with frontends: the keypad is written by the input collaborator only,
// the framebuffer by Step only, and the timers by Step and TickTimers only.
type Machine struct {
	memory [MemorySize]byte
	stack  [StackSize]uint16
	v      [RegisterCount]byte
	keypad Keypad
	video  Framebuffer
	i      uint16
	pc     uint16
	sound  Timer
	delay  Timer
	sp     uint8
	inst   Opcode

	waiting atomic.Bool
	waitReg uint8
	quirks  Quirks
	rand    *rand.Rand
}

// An Option configures a Machine built by New.
type Option func(*Machine)

// WithQuirks sets the compatibility switches.
func WithQuirks(q Quirks) Option {
	return func(m *Machine) {
		m.quirks = q
	}
}

// WithRand sets the random source used by CXKK.
func WithRand(r *rand.Rand) Option {
	return func(m *Machine) {
		m.rand = r
	}
}

// New returns a machine with zeroed state, the font loaded and the program
// counter at the program start address.
func New(opts ...Option) *Machine {
	m := &Machine{}
	m.keypad.init()
	for _, opt := range opts {
		opt(m)
	}
	if m.rand == nil {
		m.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m.Reset()
	return m
}

// Reset restores the machine to its freshly constructed state. The loaded
// program is discarded.
func (m *Machine) Reset() {
	m.memory = [MemorySize]byte{}
	m.stack = [StackSize]uint16{}
	m.v = [RegisterCount]byte{}
	m.keypad.Release()
	m.video.Clear()
	m.i = 0
	m.pc = ProgramStartAddress
	m.sound.Store(0)
	m.delay.Store(0)
	m.sp = 0
	m.inst = 0
	m.waiting.Store(false)
	m.waitReg = 0

	copy(m.memory[FontStartAddress:], fontSet[:])
}

// Load copies a program into memory at the program start address.
func (m *Machine) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, %d available", ErrROMTooLarge, len(program), MaxProgramSize)
	}
	copy(m.memory[ProgramStartAddress:], program)
	return nil
}

// Quirks returns the active compatibility switches.
func (m *Machine) Quirks() Quirks {
	return m.quirks
}

func (m *Machine) Register(x uint8) uint8 {
	return m.v[x&0xF]
}

func (m *Machine) SetRegister(x, value uint8) {
	m.v[x&0xF] = value
}

func (m *Machine) Index() uint16 {
	return m.i
}

func (m *Machine) SetIndex(i uint16) {
	m.i = i
}

func (m *Machine) ProgramCounter() uint16 {
	return m.pc
}

func (m *Machine) SetProgramCounter(pc uint16) {
	m.pc = pc
}

func (m *Machine) StackPointer() uint8 {
	return m.sp
}

// Instruction returns the most recently fetched instruction word.
func (m *Machine) Instruction() Opcode {
	return m.inst
}

// Memory returns a copy of the address space.
func (m *Machine) Memory() []byte {
	b := make([]byte, MemorySize)
	copy(b, m.memory[:])
	return b
}

// Read copies memory starting at loc into data and returns the number of
// bytes copied. Reads stop at the end of the address space.
func (m *Machine) Read(loc uint16, data []byte) int {
	if int(loc) >= MemorySize {
		return 0
	}
	return copy(data, m.memory[loc:])
}

// Write copies data into memory starting at loc and returns the number of
// bytes written. Writes stop at the end of the address space.
func (m *Machine) Write(loc uint16, data []byte) int {
	if int(loc) >= MemorySize {
		return 0
	}
	return copy(m.memory[loc:], data)
}

func (m *Machine) Keypad() *Keypad {
	return &m.keypad
}

func (m *Machine) Display() *Framebuffer {
	return &m.video
}

func (m *Machine) DelayTimer() uint8 {
	return m.delay.Load()
}

func (m *Machine) SoundTimer() uint8 {
	return m.sound.Load()
}

// WaitingForKey reports whether an FX0A instruction is blocked on input. It
// is safe to call from any goroutine.
func (m *Machine) WaitingForKey() bool {
	return m.waiting.Load()
}

// TickTimers performs one 60hz timer decrement.
func (m *Machine) TickTimers() {
	m.sound.Decrement()
	m.delay.Decrement()
}

// OpcodeAt returns the instruction word stored at offset.
func (m *Machine) OpcodeAt(offset uint16) (Opcode, error) {
	if int(offset)+1 >= MemorySize {
		return 0, &Fault{PC: offset, Err: ErrAddress}
	}

	// opcode is a 16bit value, comprised of two contiguous 8bit values
	// in memory, starting at the program counter
	high := uint16(m.memory[offset])  // high-order bits of opcode
	low := uint16(m.memory[offset+1]) // low-order bits of opcode
	return Opcode((high << 8) | low), nil
}

// Step runs one fetch-decode-execute cycle. While an FX0A wait is pending no
// instruction is fetched; Step only checks the keypad and reports Waiting if
// no key is down.
func (m *Machine) Step() (uint8, error) {
	var info uint8

	if m.waiting.Load() {
		key, ok := m.keypad.FirstDown()
		if !ok {
			return m.status(info | Waiting), nil
		}
		m.v[m.waitReg] = key
		m.waiting.Store(false)
		return m.status(info), nil
	}

	pc := m.pc
	op, err := m.OpcodeAt(pc)
	if err != nil {
		return info, err
	}
	m.inst = op
	m.pc += 2

	if err := execute(m, op, &info); err != nil {
		return info, &Fault{PC: pc, Opcode: op, Err: err}
	}
	if m.waiting.Load() {
		info |= Waiting
	}
	return m.status(info), nil
}

func (m *Machine) status(info uint8) uint8 {
	if m.sound.Load() > 0 {
		info |= Sound
	}

	if m.delay.Load() > 0 {
		info |= Delay
	}
	return info
}

// State is a point-in-time copy of the machine registers, for debuggers.
type State struct {
	V             [RegisterCount]uint8
	Stack         [StackSize]uint16
	I             uint16
	PC            uint16
	SP            uint8
	DelayTimer    uint8
	SoundTimer    uint8
	Instruction   Opcode
	WaitingForKey bool
}

// Snapshot copies the register state. It must be called from the goroutine
// that calls Step.
func (m *Machine) Snapshot() State {
	return State{
		V:             m.v,
		Stack:         m.stack,
		I:             m.i,
		PC:            m.pc,
		SP:            m.sp,
		DelayTimer:    m.delay.Load(),
		SoundTimer:    m.sound.Load(),
		Instruction:   m.inst,
		WaitingForKey: m.waiting.Load(),
	}
}
