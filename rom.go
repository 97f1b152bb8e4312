package c8emu

import (
	"c8emu/chip8"
	"fmt"
	"os"
)

// LoadROM reads a program image from disk and checks that it fits in the
// machine's program area.
func LoadROM(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM: %w", err)
	}
	if len(b) > chip8.MaxProgramSize {
		return nil, fmt.Errorf("ROM '%s' is %d bytes, %d available: %w",
			path, len(b), chip8.MaxProgramSize, chip8.ErrROMTooLarge)
	}
	return b, nil
}
