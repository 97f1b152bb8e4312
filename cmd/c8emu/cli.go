package main

import (
	"c8emu"
	"flag"
	"fmt"
	"io"
	"strings"
)

// options are the parsed command line settings.
type options struct {
	rom    string
	config string
	debug  bool
	quiet  bool
	disasm bool

	// cfg holds the config file, or the defaults, with every flag that was
	// given on the command line applied over it.
	cfg c8emu.Config
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "usage: c8emu [options] <rom file>\n\n")
	e.flags.SetOutput(w)
	e.flags.PrintDefaults()
	_, _ = fmt.Fprintln(w)
}

// parseFlags parses the arguments following the program name.
func parseFlags(args []string) (options, error) {
	flags := flag.NewFlagSet("c8emu", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var opts options
	defaults := c8emu.DefaultConfig()
	var set c8emu.Config

	flags.StringVar(&opts.config, "config", "", "TOML config file; flags override its settings")
	flags.StringVar(&set.Frontend, "frontend", defaults.Frontend, "frontend to run ("+strings.Join(c8emu.FrontendNames(), "/")+")")
	flags.IntVar(&set.ClockHz, "hz", defaults.ClockHz, "instructions per second")
	flags.IntVar(&set.TimerHz, "timer-hz", defaults.TimerHz, "timer decrements per second")
	flags.IntVar(&set.Scale, "scale", defaults.Scale, "desktop window pixel size")
	flags.BoolVar(&set.Mute, "mute", false, "disable sound")
	flags.Uint64Var(&set.Seed, "seed", 0, "random number seed, 0 picks one")
	flags.Uint64Var(&set.Cycles, "cycles", 0, "stop after this many instructions, 0 runs until quit")
	flags.BoolVar(&set.Quirks.ShiftFlagLowBit, "quirk-shift", false, "8XYE sets VF from bit 0 instead of bit 7")
	flags.BoolVar(&set.Quirks.AnyCollision, "quirk-collision", false, "DXYN sets VF when any lit pixel is erased")
	flags.BoolVar(&opts.debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.quiet, "q", false, "perform operations quietly")
	flags.BoolVar(&opts.disasm, "disasm", false, "print a listing of the ROM and exit")

	err := flags.Parse(args)
	rest := flags.Args()
	if err != nil {
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}
	if len(rest) == 0 {
		return opts, &UsageError{flags: flags, msg: "no ROM file given"}
	}
	if err := validateArgs(flags, rest); err != nil {
		return opts, err
	}
	opts.rom = rest[0]

	opts.cfg = defaults
	if opts.config != "" {
		if opts.cfg, err = c8emu.LoadConfig(opts.config); err != nil {
			return opts, err
		}
	}

	flags.Visit(func(f *flag.Flag) {
		applyFlag(&opts.cfg, set, f.Name)
	})

	if err := opts.cfg.Validate(); err != nil {
		return opts, fmt.Errorf("invalid settings: %w", err)
	}
	return opts, nil
}

// validateArgs checks that the ROM file is the last argument.
func validateArgs(flags *flag.FlagSet, args []string) error {
	for i, arg := range args {
		if i > 0 && strings.HasPrefix(arg, "-") {
			return &UsageError{
				flags: flags,
				msg:   fmt.Sprintf("Potential argument %s found after ROM file, please pass the ROM file as last argument", arg),
			}
		}
	}
	if len(args) > 1 {
		return &UsageError{flags: flags, msg: "only one ROM file can be run"}
	}
	return nil
}

// applyFlag copies the setting behind flag name from set into cfg.
func applyFlag(cfg *c8emu.Config, set c8emu.Config, name string) {
	switch name {
	case "frontend":
		cfg.Frontend = set.Frontend
	case "hz":
		cfg.ClockHz = set.ClockHz
	case "timer-hz":
		cfg.TimerHz = set.TimerHz
	case "scale":
		cfg.Scale = set.Scale
	case "mute":
		cfg.Mute = set.Mute
	case "seed":
		cfg.Seed = set.Seed
	case "cycles":
		cfg.Cycles = set.Cycles
	case "quirk-shift":
		cfg.Quirks.ShiftFlagLowBit = set.Quirks.ShiftFlagLowBit
	case "quirk-collision":
		cfg.Quirks.AnyCollision = set.Quirks.AnyCollision
	}
}
