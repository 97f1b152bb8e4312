package chip8

import "sync/atomic"

// Timer is an 8-bit countdown register. The audio collaborator reads the
// sound timer while the interpreter writes it, so the value is atomic.
type Timer struct {
	value atomic.Uint32
}

func (t *Timer) Load() uint8 {
	return uint8(t.value.Load())
}

func (t *Timer) Store(v uint8) {
	t.value.Store(uint32(v))
}

// Decrement lowers a nonzero timer by one. A zero timer stays at zero.
func (t *Timer) Decrement() {
	if v := t.value.Load(); v > 0 {
		t.value.Store(v - 1)
	}
}
