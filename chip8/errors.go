package chip8

import (
	"errors"
	"fmt"
)

var (
	// ErrROMTooLarge is returned when a program does not fit between the
	// program start address and the end of memory.
	ErrROMTooLarge = errors.New("program exceeds available memory")
	// ErrStackOverflow is returned when a call is made with a full stack.
	ErrStackOverflow = errors.New("stack overflow")
	// ErrStackUnderflow is returned when a return is made with an empty stack.
	ErrStackUnderflow = errors.New("stack underflow")
	// ErrAddress is returned when the program counter or a memory operand
	// leaves the address space.
	ErrAddress = errors.New("address out of range")
)

// A Fault is an execution error, annotated with the address and instruction
// that caused it.
type Fault struct {
	PC     uint16
	Opcode Opcode
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%04X %04X %s: %v", f.PC, uint16(f.Opcode), f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
