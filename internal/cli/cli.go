// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/thediveo/xproc"
	"github.com/thediveo/xproc/internal/config"
	"github.com/thediveo/xproc/internal/poll"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// env is what subcommands need to run.
type env struct {
	proc   xproc.Proc
	opts   config.Options
	stdout io.Writer
}

// loop returns the polling loop configured from the command line options.
func (e *env) loop() poll.Loop {
	return poll.Loop{Interval: e.opts.Interval, Count: e.opts.Count}
}

// command runs a subcommand.
type command func(ctx context.Context, e *env) error

var commands = map[string]command{
	"version":    version,
	"process":    process,
	"memory":     memory,
	"vmstat":     vmstat,
	"load":       load,
	"interrupts": interrupts,
	"slab":       slab,
	"cgroups":    cgroups,
	"vmalloc":    vmalloc,
	"uptime":     uptime,
}

// Run runs xproc with the specified command line arguments (without the
// program name) and returns the exit code. Cancelling the context ends
// polling subcommands successfully.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global, rest, err := config.ParseGlobal(args, stderr)
	if err != nil {
		return exitCode(err, stderr)
	}
	log := funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(stderr, args)
	}, funcr.Options{Verbosity: global.Verbosity})
	ctx = logr.NewContext(ctx, log)

	cmd, ok := config.Lookup(rest[0])
	if !ok {
		return exitCode(fmt.Errorf("%w: unknown command %q", config.ErrUsage, rest[0]), stderr)
	}
	opts, err := cmd.Parse(rest[1:], stderr)
	if err != nil {
		return exitCode(err, stderr)
	}
	log.V(1).Info("running", "command", cmd.Name, "root", global.Root)
	e := &env{
		proc:   xproc.NewProc(global.Root),
		opts:   opts,
		stdout: stdout,
	}
	if err := commands[cmd.Name](ctx, e); err != nil {
		return exitCode(err, stderr)
	}
	return ExitOK
}

// exitCode reports err and returns the exit code corresponding to it.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, config.ErrUsage):
		fmt.Fprintf(stderr, "xproc: %s\n", err)
		return ExitUsage
	default:
		fmt.Fprintf(stderr, "xproc: %s\n", err)
		return ExitError
	}
}

// columns returns the default column names followed by the extra ones not
// already present.
func columns(defaults, extra []string) []string {
	names := slices.Clone(defaults)
	for _, name := range extra {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// warnUnknown logs the requested names that aren't available.
func warnUnknown(log logr.Logger, available, requested []string) {
	for _, name := range requested {
		if !slices.Contains(available, name) {
			log.Info("ignoring unknown column", "name", name)
		}
	}
}

// finish ends the output of a polling subcommand with an empty line when it
// got cancelled.
func finish(ctx context.Context, e *env, err error) error {
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		fmt.Fprintln(e.stdout)
	}
	return nil
}
