package c8emu

import (
	"c8emu/chip8"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/retroenv/retrogolib/log"
)

// Terminal renders the framebuffer into a text terminal, two pixel rows per
// character cell. Terminals report key presses but not releases, so a key
// stays down for a fixed hold time after its last press.
//
// Controls: P pauses, N single-steps while paused, Esc or Ctrl-C quits.
type Terminal struct {
	logger    *log.Logger
	keys      map[rune]uint8
	hold      time.Duration
	newScreen func() (tcell.Screen, error)

	mu      sync.Mutex
	pressed [chip8.KeyCount]time.Time
}

func newTerminal(cfg Config, logger *log.Logger) Frontend {
	return NewTerminal(cfg.Keys(), cfg.KeyHold, logger)
}

// NewTerminal creates a terminal frontend on the process's terminal.
func NewTerminal(keymap map[rune]uint8, hold time.Duration, logger *log.Logger) *Terminal {
	return &Terminal{
		logger:    logger,
		keys:      keymap,
		hold:      hold,
		newScreen: tcell.NewScreen,
	}
}

func (t *Terminal) Run(ctx context.Context, s *Session) error {
	screen, err := t.newScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	screen.HideCursor()
	screen.Clear()

	t.logger.Debug("Terminal frontend started", log.String("hold", t.hold.String()))

	var wg sync.WaitGroup
	defer wg.Wait()

	wg.Go(func() {
		ticker := time.NewTicker(frameRate)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.Stop()
			case <-s.Lifecycle.Done():
				// Wakes PollEvent in the event loop.
				_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
				return
			case now := <-ticker.C:
				t.release(s.Machine.Keypad(), now)
				t.render(screen, s.Machine.Display())
				screen.Show()
			}
		}
	})

	for s.Lifecycle.Running() {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.handleKey(s, ev)
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventInterrupt:
			return nil
		case nil:
			// Screen finalized.
			s.Stop()
			return nil
		}
	}
	return nil
}

func (t *Terminal) handleKey(s *Session, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEsc:
		s.Stop()
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch r := ev.Rune(); r {
	case 'p', 'P':
		s.TogglePause()
	case 'n', 'N':
		s.StepOnce()
	default:
		key, ok := t.keys[r]
		if !ok || ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) != 0 {
			return
		}
		t.mu.Lock()
		t.pressed[key] = time.Now()
		t.mu.Unlock()
		s.Machine.Keypad().Set(key, true)
	}
}

// release lifts every key whose last press is older than the hold time.
func (t *Terminal) release(keypad *chip8.Keypad, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, at := range t.pressed {
		if at.IsZero() || now.Sub(at) < t.hold {
			continue
		}
		t.pressed[key] = time.Time{}
		keypad.Set(uint8(key), false)
	}
}

// render draws two framebuffer rows per cell using the upper half block:
// the foreground colours the top pixel and the background the bottom one.
func (t *Terminal) render(screen tcell.Screen, video *chip8.Framebuffer) {
	for row := 0; row < chip8.Height; row += 2 {
		for x := range chip8.Width {
			style := tcell.StyleDefault.
				Foreground(pixelColor(video.Lit(x, row))).
				Background(pixelColor(video.Lit(x, row+1)))
			screen.SetContent(x, row/2, '▀', nil, style)
		}
	}
}

func pixelColor(lit bool) tcell.Color {
	if lit {
		return tcell.ColorWhite
	}
	return tcell.ColorBlack
}
