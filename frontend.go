package c8emu

import (
	"context"
	"fmt"
	"sort"

	"github.com/retroenv/retrogolib/log"
)

// A Frontend is the video and input collaborator of a session. Run blocks
// until the session's lifecycle is cleared. Frontends that own the
// lifecycle, like a window whose close button ends the program, clear it
// themselves.
type Frontend interface {
	Run(ctx context.Context, s *Session) error
}

// A FrontendFactory builds a frontend from the emulator config.
type FrontendFactory func(cfg Config, logger *log.Logger) Frontend

var frontends = map[string]FrontendFactory{}

// RegisterFrontend makes a frontend available by name. It is not safe for
// concurrent use and is meant to be called from init.
func RegisterFrontend(name string, factory FrontendFactory) error {
	if _, ok := frontends[name]; ok {
		return fmt.Errorf("frontend %s already registered", name)
	}
	frontends[name] = factory
	return nil
}

// NewFrontend builds the frontend registered under name.
func NewFrontend(name string, cfg Config, logger *log.Logger) (Frontend, error) {
	factory, ok := frontends[name]
	if !ok {
		return nil, fmt.Errorf("unknown frontend %s, available: %v", name, FrontendNames())
	}
	return factory(cfg, logger), nil
}

// FrontendNames lists the registered frontends in sorted order.
func FrontendNames() []string {
	names := make([]string, 0, len(frontends))
	for name := range frontends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Headless runs a session without video or input. The lifecycle ends when
// the context is cancelled, the cycle limit is reached or the program
// faults.
type Headless struct{}

func (Headless) Run(ctx context.Context, s *Session) error {
	select {
	case <-ctx.Done():
		s.Stop()
	case <-s.Lifecycle.Done():
	}
	return nil
}

func init() {
	for name, factory := range map[string]FrontendFactory{
		"headless": func(Config, *log.Logger) Frontend { return Headless{} },
		"desktop":  newDesktop,
		"terminal": newTerminal,
	} {
		if err := RegisterFrontend(name, factory); err != nil {
			panic(err)
		}
	}
}
