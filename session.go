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
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/retroenv/retrogolib/log"
	"golang.org/x/sync/errgroup"
)

// An Observer is called on the interpreter goroutine after every executed
// instruction.
type Observer func(op chip8.Opcode, state chip8.State, info uint8)

// Session is the shared state of one running program. The interpreter loop,
// the audio collaborator and the frontend all receive the same *Session and
// coordinate only through the machine's keypad, framebuffer and timers and
// through the lifecycle flag.
type Session struct {
	Machine   *chip8.Machine
	Lifecycle *chip8.Lifecycle
	Scheduler *chip8.Scheduler

	logger   *log.Logger
	poll     time.Duration
	cycles   uint64
	tone     Tone
	observer atomic.Pointer[Observer]

	paused atomic.Bool
	next   atomic.Bool

	g *errgroup.Group
}

// A SessionOption customises a Session built by NewSession.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	clock chip8.Clock
	tone  Tone
}

// WithClock replaces the wall clock driving the timing controller.
func WithClock(c chip8.Clock) SessionOption {
	return func(o *sessionOptions) {
		o.clock = c
	}
}

// WithTone replaces the audio output.
func WithTone(t Tone) SessionOption {
	return func(o *sessionOptions) {
		o.tone = t
	}
}

// NewSession builds a session from a validated config.
func NewSession(cfg Config, logger *log.Logger, opts ...SessionOption) *Session {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.tone == nil {
		if cfg.Mute {
			o.tone = silence{}
		} else {
			o.tone = NewBeep(cfg.ToneHz)
		}
	}

	machineOpts := []chip8.Option{chip8.WithQuirks(cfg.MachineQuirks())}
	if cfg.Seed != 0 {
		machineOpts = append(machineOpts, chip8.WithRand(rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))))
	}

	return &Session{
		Machine:   chip8.New(machineOpts...),
		Lifecycle: chip8.NewLifecycle(),
		Scheduler: chip8.NewScheduler(o.clock, cfg.ClockHz, cfg.TimerHz),
		logger:    logger,
		poll:      cfg.PollInterval,
		cycles:    cfg.Cycles,
		tone:      o.tone,
	}
}

// Load resets the machine and loads a program.
func (s *Session) Load(program []byte) error {
	s.Machine.Reset()
	if err := s.Machine.Load(program); err != nil {
		return err
	}
	s.logger.Debug("Program loaded",
		log.Int("size", len(program)),
		log.Hex("address", chip8.ProgramStartAddress))
	return nil
}

// Observe installs the per-instruction observer. Passing nil removes it.
func (s *Session) Observe(fn Observer) {
	if fn == nil {
		s.observer.Store(nil)
		return
	}
	s.observer.Store(&fn)
}

func (s *Session) Pause() {
	s.paused.Store(true)
}

func (s *Session) Resume() {
	s.paused.Store(false)
}

func (s *Session) TogglePause() {
	s.paused.Store(!s.paused.Load())
}

func (s *Session) Paused() bool {
	return s.paused.Load()
}

// StepOnce executes a single instruction while the session is paused.
func (s *Session) StepOnce() {
	s.next.Store(true)
}

// Start launches the interpreter loop and the audio collaborator. Cancelling
// ctx clears the lifecycle flag.
func (s *Session) Start(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	s.g = g

	g.Go(func() error {
		select {
		case <-ctx.Done():
			s.Lifecycle.Stop()
		case <-s.Lifecycle.Done():
		}
		return nil
	})
	g.Go(s.interpret)
	g.Go(func() error {
		return s.sound(ctx)
	})
}

// Stop clears the lifecycle flag. Every loop exits at its next poll.
func (s *Session) Stop() {
	s.Lifecycle.Stop()
}

// Wait blocks until all session goroutines have exited and returns the
// first error, typically an execution fault.
func (s *Session) Wait() error {
	if s.g == nil {
		return nil
	}
	return s.g.Wait()
}

// interpret is the host loop: it polls the timing controller once per tick
// until the lifecycle is cleared or the program faults.
func (s *Session) interpret() error {
	defer s.Lifecycle.Stop()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for s.Lifecycle.Running() {
		select {
		case <-s.Lifecycle.Done():
			return nil
		case <-ticker.C:
		}

		if err := s.tick(); err != nil {
			var fault *chip8.Fault
			if errors.As(err, &fault) {
				s.logger.Error("Execution fault",
					log.Hex("pc", fault.PC),
					log.String("instruction", fault.Opcode.String()),
					log.Err(fault.Err))
			}
			return err
		}

		if s.cycles > 0 && s.Scheduler.Instructions() >= s.cycles {
			s.logger.Debug("Cycle limit reached", log.Int("cycles", int(s.cycles)))
			return nil
		}
	}
	return nil
}

func (s *Session) tick() error {
	m := s.Machine

	if s.paused.Load() {
		if !s.next.Swap(false) {
			return nil
		}
		info, err := m.Step()
		if err != nil {
			return err
		}
		s.notify(info)
		return nil
	}

	before := s.Scheduler.Instructions()
	info, err := s.Scheduler.Poll(m)
	if err != nil {
		return err
	}
	if s.Scheduler.Instructions() != before {
		s.notify(info)
	}

	if info&chip8.Waiting != 0 {
		s.waitForKey()
	}
	return nil
}

func (s *Session) notify(info uint8) {
	if fn := s.observer.Load(); fn != nil {
		(*fn)(s.Machine.Instruction(), s.Machine.Snapshot(), info)
	}
}

// waitForKey blocks the interpreter while FX0A has no key to report. The
// timers keep counting and the wait ends as soon as a key goes down or the
// lifecycle is cleared.
//
// Pause, StepOnce and the cycle limit are only checked again once the wait
// has ended.
func (s *Session) waitForKey() {
	m := s.Machine
	keypad := m.Keypad()

	timer := time.NewTicker(s.Scheduler.TimerPeriod())
	defer timer.Stop()

	s.logger.Debug("Waiting for key", log.Hex("pc", m.ProgramCounter()))

	for m.WaitingForKey() {
		if _, ok := keypad.FirstDown(); ok {
			return
		}
		select {
		case <-s.Lifecycle.Done():
			return
		case <-keypad.Pressed():
		case <-timer.C:
			s.Scheduler.PollTimers(m)
		}
	}
}

// sound is the audio collaborator. It gates the tone on the sound timer at
// the timer rate.
func (s *Session) sound(ctx context.Context) error {
	ticker := time.NewTicker(s.Scheduler.TimerPeriod())
	defer ticker.Stop()
	defer func() {
		_ = s.tone.Stop()
	}()

	for s.Lifecycle.Running() {
		select {
		case <-s.Lifecycle.Done():
			return nil
		case <-ticker.C:
		}

		if s.Machine.SoundTimer() == 0 {
			if err := s.tone.Stop(); err != nil {
				s.logger.Warn("Audio disabled", log.Err(err))
				s.tone = silence{}
			}
			continue
		}

		if err := s.tone.Start(ctx); err != nil {
			s.logger.Warn("Audio disabled", log.Err(err))
			s.tone = silence{}
		}
	}
	return nil
}
