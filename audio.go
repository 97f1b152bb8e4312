package c8emu

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/generator"
	"github.com/gordonklaus/portaudio"
	"golang.org/x/sync/errgroup"
)

// framesPerBuffer is the number of samples handed to the output device per
// write.
const framesPerBuffer = 512

// A Tone is the audio collaborator's output. Start and Stop are idempotent.
type Tone interface {
	Start(ctx context.Context) error
	Stop() error
}

// Beep plays a continuous sine wave through the default output device
// between Start and Stop.
type Beep struct {
	Note float64

	g       errgroup.Group
	beeping atomic.Bool
}

func NewBeep(note float64) *Beep {
	return &Beep{Note: note}
}

func (b *Beep) Start(ctx context.Context) error {
	if !b.beeping.CompareAndSwap(false, true) {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		b.beeping.Store(false)
		return fmt.Errorf("initializing audio: %w", err)
	}

	b.g.Go(func() error {
		defer func() {
			_ = portaudio.Terminate()
		}()
		return b.play(ctx)
	})
	return nil
}

// play streams the oscillator until Stop is called or ctx is done.
func (b *Beep) play(ctx context.Context) error {
	samples := &audio.FloatBuffer{
		Data:   make([]float64, framesPerBuffer),
		Format: audio.FormatMono44100,
	}
	osc := generator.NewOsc(generator.WaveSine, b.Note, samples.Format.SampleRate)
	osc.Amplitude = 1

	out := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, samples.Format.NumChannels,
		float64(samples.Format.SampleRate), len(out), &out)
	if err != nil {
		return fmt.Errorf("opening audio stream: %w", err)
	}
	defer func() {
		_ = stream.Close()
	}()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting audio stream: %w", err)
	}
	defer func() {
		_ = stream.Stop()
	}()

	for b.beeping.Load() && ctx.Err() == nil {
		if err := osc.Fill(samples); err != nil {
			return fmt.Errorf("generating tone: %w", err)
		}
		f64Tof32(out, samples.Data)
		if err := stream.Write(); err != nil {
			return fmt.Errorf("writing audio stream: %w", err)
		}
	}
	return nil
}

// Stop silences the tone and reports any error the stream ended with.
func (b *Beep) Stop() error {
	if !b.beeping.CompareAndSwap(true, false) {
		return nil
	}
	return b.g.Wait()
}

func f64Tof32(dst []float32, src []float64) {
	for i := range src {
		dst[i] = float32(src[i])
	}
}

// silence is the Tone used when audio is muted or unavailable.
type silence struct{}

func (silence) Start(context.Context) error { return nil }
func (silence) Stop() error                 { return nil }
