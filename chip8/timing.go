package chip8

import "time"

// Clock is the time source for the timing controller.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the monotonic wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Cadence fires at most once per poll when more than Period has passed since
// it last fired. Missed periods are dropped, never replayed.
type Cadence struct {
	Period time.Duration
	last   time.Time
}

// Due reports whether the cadence fires at now, and if so moves its
// reference point to now.
func (c *Cadence) Due(now time.Time) bool {
	if !c.last.IsZero() && now.Sub(c.last) <= c.Period {
		return false
	}
	c.last = now
	return true
}

// Scheduler drives a machine at two independent rates: one for instruction
// execution and one for the delay and sound timers.
type Scheduler struct {
	clock       Clock
	instruction Cadence
	timer       Cadence

	instructions uint64
	timerTicks   uint64
}

// NewScheduler returns a scheduler executing clockHz instructions and
// timerHz timer decrements per second. Non-positive rates select the
// defaults of 500hz and 60hz.
func NewScheduler(clock Clock, clockHz, timerHz int) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		clock:       clock,
		instruction: Cadence{Period: period(clockHz, ClockRate)},
		timer:       Cadence{Period: period(timerHz, TimerRate)},
	}
}

func period(hz int, fallback time.Duration) time.Duration {
	if hz <= 0 {
		return fallback
	}
	return time.Second / time.Duration(hz)
}

// Poll runs whatever work is due: first a timer decrement, then one
// instruction. It is called once per host loop iteration.
func (s *Scheduler) Poll(m *Machine) (uint8, error) {
	var info uint8
	now := s.clock.Now()

	if s.timer.Due(now) {
		m.TickTimers()
		s.timerTicks++
	}

	if s.instruction.Due(now) {
		s.instructions++
		stepInfo, err := m.Step()
		if err != nil {
			return stepInfo, err
		}
		info |= stepInfo
	}
	return m.status(info), nil
}

// PollTimers runs only the timer cadence. It keeps the timers counting while
// the interpreter is blocked on FX0A.
func (s *Scheduler) PollTimers(m *Machine) {
	if s.timer.Due(s.clock.Now()) {
		m.TickTimers()
		s.timerTicks++
	}
}

// TimerPeriod returns the interval between timer decrements.
func (s *Scheduler) TimerPeriod() time.Duration {
	return s.timer.Period
}

// InstructionPeriod returns the interval between instructions.
func (s *Scheduler) InstructionPeriod() time.Duration {
	return s.instruction.Period
}

// Instructions returns the number of instruction ticks so far.
func (s *Scheduler) Instructions() uint64 {
	return s.instructions
}

// TimerTicks returns the number of timer decrement ticks so far.
func (s *Scheduler) TimerTicks() uint64 {
	return s.timerTicks
}
