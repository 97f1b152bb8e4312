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

// Package main implements the c8emu CHIP-8 interpreter.
package main

import (
	"c8emu"
	"c8emu/chip8"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, err := parseFlags(os.Args[1:])
	logger := c8emu.CreateLogger(opts.debug, opts.quiet)
	if err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			printBanner(logger, opts)
			logger.Error(usageErr.Error())
			usageErr.ShowUsage(os.Stderr)
		} else {
			logger.Fatal(err.Error())
		}
		os.Exit(1)
	}

	printBanner(logger, opts)

	program, err := c8emu.LoadROM(opts.rom)
	if err != nil {
		logger.Fatal(err.Error())
	}

	if opts.disasm {
		for _, line := range chip8.Disassemble(program, chip8.ProgramStartAddress) {
			fmt.Println(line)
		}
		return
	}

	if err := run(ctx, logger, opts.cfg, program); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Emulation cancelled")
			return
		}
		logger.Error("Emulation failed", log.Err(err))
		os.Exit(1)
	}
}

func printBanner(logger *log.Logger, opts options) {
	if opts.quiet {
		return
	}
	logger.Info("c8emu", log.String("version", buildinfo.Version(version, commit, date)))
}

// run drives one session. The frontend runs on the calling goroutine, which
// windowing toolkits require to be the main one.
func run(ctx context.Context, logger *log.Logger, cfg c8emu.Config, program []byte) error {
	frontend, err := c8emu.NewFrontend(cfg.Frontend, cfg, logger)
	if err != nil {
		return err
	}

	session := c8emu.NewSession(cfg, logger)
	if err := session.Load(program); err != nil {
		return err
	}

	logger.Debug("Starting session",
		log.String("frontend", cfg.Frontend),
		log.Int("clock_hz", cfg.ClockHz),
		log.Int("timer_hz", cfg.TimerHz))

	session.Start(ctx)
	runErr := frontend.Run(ctx, session)
	session.Stop()

	if err := session.Wait(); err != nil {
		return err
	}
	return runErr
}
