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
	"c8emu/byteconv"
	"c8emu/chip8"
	"context"
	"errors"
	"image"
	"image/color"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/retroenv/retrogolib/log"
)

const frameRate = time.Second / 60

// Desktop is the windowed frontend. It renders the framebuffer, feeds key
// events into the keypad and shows a debugger panel with the recent
// instructions and the register state.
//
// Controls: P pauses, N single-steps while paused, Escape quits.
type Desktop struct {
	logger  *log.Logger
	scale   int
	keys    map[fyne.KeyName]uint8
	session *Session
}

func newDesktop(cfg Config, logger *log.Logger) Frontend {
	return NewDesktop(cfg.Keys(), cfg.Scale, logger)
}

// NewDesktop creates a desktop frontend with the given keymap, keyed by
// character, and window scale.
func NewDesktop(keymap map[rune]uint8, scale int, logger *log.Logger) *Desktop {
	keys := make(map[fyne.KeyName]uint8, len(keymap))
	for r, k := range keymap {
		keys[fyne.KeyName(strings.ToUpper(string(r)))] = k
	}
	return &Desktop{
		logger: logger,
		scale:  scale,
		keys:   keys,
	}
}

func (d *Desktop) onKeyDown(k *fyne.KeyEvent) {
	if hex, ok := d.keys[k.Name]; ok {
		d.session.Machine.Keypad().Set(hex, true)
	}
}

func (d *Desktop) onKeyUp(k *fyne.KeyEvent) {
	switch k.Name {
	case fyne.KeyP:
		d.session.TogglePause()
		return
	case fyne.KeyN:
		d.session.StepOnce()
		return
	case fyne.KeyEscape:
		d.session.Stop()
		return
	}

	if hex, ok := d.keys[k.Name]; ok {
		d.session.Machine.Keypad().Set(hex, false)
	}
}

// Console is a fixed size list of recent messages, newest first. Prepend may
// be called from any goroutine; Refresh must run on the UI goroutine.
type Console struct {
	mu        sync.Mutex
	lines     []string
	labels    []*widget.Label
	container *fyne.Container
}

func NewConsole(capacity int) *Console {
	labels := make([]*widget.Label, capacity)
	objects := make([]fyne.CanvasObject, capacity)
	for i := range capacity {
		labels[i] = widget.NewLabel("")
		labels[i].TextStyle = fyne.TextStyle{Monospace: true}
		objects[i] = labels[i]
	}
	return &Console{
		lines:     make([]string, 0, capacity),
		labels:    labels,
		container: container.NewVBox(objects...),
	}
}

func (o *Console) Prepend(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.lines) < cap(o.lines) {
		o.lines = append(o.lines, "")
	}
	copy(o.lines[1:], o.lines)
	o.lines[0] = msg
}

func (o *Console) Refresh() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, label := range o.labels {
		text := ""
		if i < len(o.lines) {
			text = o.lines[i]
		}
		label.SetText(text)
	}
}

func (o *Console) Object() fyne.CanvasObject {
	return o.container
}

func registerLabel(i int, value uint8) string {
	return "V" + byteconv.U8toh(uint8(i), 1) + ": " + byteconv.U8toh(value, 2)
}

func (d *Desktop) Run(ctx context.Context, s *Session) error {
	d.session = s

	a := app.New()
	w := a.NewWindow("Chip-8 Emulator")

	// Create a back-buffer for the pixel data
	buffer := image.NewRGBA(image.Rect(0, 0, chip8.Width, chip8.Height))

	screen := canvas.NewImageFromImage(buffer)
	screen.FillMode = canvas.ImageFillStretch  // Scales the grid to window size
	screen.ScaleMode = canvas.ImageScalePixels // Maintains "pixelated" retro look

	canv, ok := w.Canvas().(desktop.Canvas) // Extension that exposes OnKeyUp event
	if !ok {
		return errors.New("desktop frontend cannot be run on mobile")
	}
	canv.SetOnKeyDown(d.onKeyDown)
	canv.SetOnKeyUp(d.onKeyUp)

	scale := float32(d.scale)
	imageContent := container.New(
		layout.NewGridWrapLayout(fyne.NewSize(float32(chip8.Width)*scale, float32(chip8.Height)*scale)),
		screen,
	)

	opcodeData := NewConsole(9)
	opcodeContent := container.New(
		layout.NewGridWrapLayout(fyne.NewSize(125, float32(chip8.Height))),
		opcodeData.Object(),
	)

	registerData := make([]string, chip8.RegisterCount)
	for i := range registerData {
		registerData[i] = registerLabel(i, 0)
	}
	boundRegisters := binding.BindStringList(&registerData)

	registerList := widget.NewListWithData(
		boundRegisters,
		func() fyne.CanvasObject {
			return widget.NewLabel("template")
		},
		func(di binding.DataItem, obj fyne.CanvasObject) {
			text, _ := di.(binding.String).Get()
			obj.(*widget.Label).SetText(text)
		},
	)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaPlayIcon(), s.Resume),
		widget.NewToolbarAction(theme.MediaPauseIcon(), s.Pause),
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), s.StepOnce),
	)

	programCounter := widget.NewLabel("PC: " + byteconv.U16toh(chip8.ProgramStartAddress, 3))
	index := widget.NewLabel("I: " + byteconv.U16toh(0, 3))
	stackDepth := widget.NewLabel("Stack: 0")

	hbox := container.NewHBox(layout.NewSpacer(), programCounter, layout.NewSpacer(), index, layout.NewSpacer(), stackDepth, layout.NewSpacer())

	box := container.NewBorder(toolbar, hbox, opcodeContent, registerList, imageContent)

	w.SetContent(box)

	w.Resize(fyne.NewSize(float32(chip8.Width)*scale, float32(chip8.Height)*scale))

	w.SetFixedSize(true)

	var latest atomic.Pointer[chip8.State]
	s.Observe(func(op chip8.Opcode, state chip8.State, _ uint8) {
		opcodeData.Prepend(op.String())
		latest.Store(&state)
	})
	defer s.Observe(nil)

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Go(func() {
		ticker := time.NewTicker(frameRate)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				s.Stop()
			case <-s.Lifecycle.Done():
				fyne.Do(a.Quit)
				return
			case <-ticker.C:
			}

			pixels := s.Machine.Display().Snapshot(nil)
			state := latest.Load()

			fyne.Do(func() {
				for i, val := range pixels {
					x, y := i%chip8.Width, i/chip8.Width
					c := color.Black
					if val == chip8.Lit {
						c = color.White
					}
					buffer.Set(x, y, c) // Directly sets pixels in the buffer
				}
				screen.Refresh()

				opcodeData.Refresh()

				if state == nil {
					return
				}
				for i, v := range state.V {
					registerData[i] = registerLabel(i, v)
				}
				_ = boundRegisters.Reload()

				programCounter.SetText("PC: " + byteconv.U16toh(state.PC, 3))
				index.SetText("I: " + byteconv.U16toh(state.I, 3))
				stackDepth.SetText("Stack: " + strconv.Itoa(int(state.SP)))
			})
		}
	})

	d.logger.Debug("Desktop frontend started", log.Int("scale", d.scale))

	w.ShowAndRun()
	s.Stop()
	close(done)
	wg.Wait()
	return nil
}
