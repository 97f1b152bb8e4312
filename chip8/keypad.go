package chip8

import "sync/atomic"

// Keypad holds the down state of the 16 hexadecimal keys. It is written by
// the input collaborator and read by the interpreter.
type Keypad struct {
	keys    [KeyCount]atomic.Bool
	pressed chan struct{}
}

func (k *Keypad) init() {
	k.pressed = make(chan struct{}, 1)
}

// Set records a key edge. Keys outside 0-F are masked to their low nibble.
func (k *Keypad) Set(key uint8, down bool) {
	if k.keys[key&0x0F].Swap(down) == down || !down {
		return
	}
	select {
	case k.pressed <- struct{}{}:
	default:
	}
}

func (k *Keypad) Down(key uint8) bool {
	return k.keys[key&0x0F].Load()
}

// FirstDown returns the lowest key that is currently down.
func (k *Keypad) FirstDown() (uint8, bool) {
	for i := range uint8(KeyCount) {
		if k.keys[i].Load() {
			return i, true
		}
	}
	return 0, false
}

// Pressed delivers a value after a key goes down. Notifications coalesce, so
// receivers must re-check the key state with FirstDown.
func (k *Keypad) Pressed() <-chan struct{} {
	return k.pressed
}

// Release marks every key as up.
func (k *Keypad) Release() {
	for i := range k.keys {
		k.keys[i].Store(false)
	}
}
