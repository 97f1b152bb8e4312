package chip8

import (
	"sync"
	"sync/atomic"
)

// Lifecycle is the single run flag shared by the interpreter and every I/O
// loop. It starts set and is cleared once; every loop polls it as its
// termination condition.
type Lifecycle struct {
	running atomic.Bool
	once    sync.Once
	done    chan struct{}
}

func NewLifecycle() *Lifecycle {
	l := &Lifecycle{done: make(chan struct{})}
	l.running.Store(true)
	return l
}

func (l *Lifecycle) Running() bool {
	return l.running.Load()
}

// Stop clears the flag. Calls after the first have no effect.
func (l *Lifecycle) Stop() {
	l.once.Do(func() {
		l.running.Store(false)
		close(l.done)
	})
}

// Done is closed when the flag is cleared, for loops that block.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}
