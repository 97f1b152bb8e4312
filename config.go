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

package c8emu

import (
	"c8emu/chip8"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

// QuirksConfig mirrors chip8.Quirks in the config file.
type QuirksConfig struct {
	ShiftFlagLowBit bool `toml:"shift_flag_low_bit"`
	AnyCollision    bool `toml:"any_collision"`
}

// Config holds the emulator settings. Zero values are not meaningful; start
// from DefaultConfig.
type Config struct {
	// Frontend names the registered frontend: desktop, terminal or headless.
	Frontend string `toml:"frontend"`
	// ClockHz is the instruction rate.
	ClockHz int `toml:"clock_hz"`
	// TimerHz is the delay and sound timer decrement rate.
	TimerHz int `toml:"timer_hz"`
	// PollInterval is the host loop period. It must be shorter than the
	// instruction period or instructions are dropped.
	PollInterval time.Duration `toml:"poll_interval"`
	// Scale is the desktop window pixel size.
	Scale int `toml:"scale"`
	// Mute disables the audio collaborator's tone.
	Mute bool `toml:"mute"`
	// ToneHz is the beep frequency.
	ToneHz float64 `toml:"tone_hz"`
	// KeyHold is how long the terminal frontend keeps a key down, since
	// terminals report no key release.
	KeyHold time.Duration `toml:"key_hold"`
	// Seed seeds CXKK. Zero picks a random seed.
	Seed uint64 `toml:"seed"`
	// Cycles stops the session after that many instructions. Zero runs
	// until the lifecycle is cleared.
	Cycles uint64 `toml:"cycles"`

	Quirks QuirksConfig `toml:"quirks"`
	// Keymap overrides entries of DefaultKeymap, keyed by a single
	// character.
	Keymap map[string]uint8 `toml:"keymap"`
}

// DefaultKeymap is the conventional QWERTY layout of the hex keypad:
//
//	1 2 3 4      1 2 3 C
//	Q W E R  ->  4 5 6 D
//	A S D F      7 8 9 E
//	Z X C V      A 0 B F
var DefaultKeymap = map[rune]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

func DefaultConfig() Config {
	return Config{
		Frontend:     "desktop",
		ClockHz:      500,
		TimerHz:      60,
		PollInterval: time.Millisecond,
		Scale:        10,
		ToneHz:       440,
		KeyHold:      100 * time.Millisecond,
	}
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("decoding config file '%s': %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown config keys in '%s': %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks the settings for values the emulator cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.ClockHz <= 0 {
		errs = append(errs, fmt.Errorf("clock_hz must be positive, got %d", c.ClockHz))
	}
	if c.TimerHz <= 0 {
		errs = append(errs, fmt.Errorf("timer_hz must be positive, got %d", c.TimerHz))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %d", c.Scale))
	}
	if c.ToneHz <= 0 {
		errs = append(errs, fmt.Errorf("tone_hz must be positive, got %g", c.ToneHz))
	}
	if c.KeyHold <= 0 {
		errs = append(errs, fmt.Errorf("key_hold must be positive, got %s", c.KeyHold))
	}

	names := make([]string, 0, len(c.Keymap))
	for name := range c.Keymap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if utf8.RuneCountInString(name) != 1 {
			errs = append(errs, fmt.Errorf("keymap entry '%s' must be a single character", name))
		}
		if key := c.Keymap[name]; key > 0xF {
			errs = append(errs, fmt.Errorf("keymap entry '%s' maps to invalid key 0x%X", name, key))
		}
	}
	return errors.Join(errs...)
}

// Keys returns the effective keymap: DefaultKeymap with the configured
// overrides applied. Letters are lower case.
func (c Config) Keys() map[rune]uint8 {
	keys := make(map[rune]uint8, len(DefaultKeymap)+len(c.Keymap))
	for r, k := range DefaultKeymap {
		keys[r] = k
	}
	for name, k := range c.Keymap {
		r, _ := utf8.DecodeRuneInString(strings.ToLower(name))
		keys[r] = k & 0x0F
	}
	return keys
}

// MachineQuirks converts the quirk settings for the core.
func (c Config) MachineQuirks() chip8.Quirks {
	return chip8.Quirks{
		ShiftFlagLowBit: c.Quirks.ShiftFlagLowBit,
		AnyCollision:    c.Quirks.AnyCollision,
	}
}
