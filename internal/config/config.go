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

package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrUsage signals invalid command line arguments.
var ErrUsage = errors.New("usage error")

// Options carries the parsed options of a single subcommand. Which options are
// actually set depends on the subcommand.
type Options struct {
	Interval int      // polling interval in seconds, at least 1
	Count    int      // number of samples; 0 means until cancelled
	List     bool     // list available columns/labels instead of sampling
	Extra    []string // additional columns to show
	Top      int      // show only the top N entries; 0 means all
	Details  bool     // show IRQ details with --list
	Sort     string   // slab sort key
	PID      int      // process ID
	Output   string   // output format: text or yaml
	All      bool     // show all process status fields
}

// Output formats.
const (
	OutputText = "text"
	OutputYAML = "yaml"
)

// Global carries the options that precede the subcommand.
type Global struct {
	Verbosity int    // logging verbosity
	Root      string // filesystem root to read /proc and /sys from
}

// Command describes a subcommand together with its options.
type Command struct {
	Name    string
	Aliases []string
	Summary string
	Polling bool // takes optional positional [interval] [count] arguments
	flags   func(fs *flag.FlagSet, o *Options)
}

// Commands lists the supported subcommands.
var Commands = []Command{
	{
		Name:    "version",
		Summary: "show version information",
	},
	{
		Name:    "process",
		Aliases: []string{"ps"},
		Summary: "show the status of a process",
		flags: func(fs *flag.FlagSet, o *Options) {
			fs.IntVar(&o.PID, "P", 0, "PID of the process")
			fs.IntVar(&o.PID, "pid", 0, "PID of the process")
			fs.StringVar(&o.Output, "o", OutputText, "output format: text|yaml")
			fs.BoolVar(&o.All, "a", false, "show all status fields")
		},
	},
	{
		Name:    "memory",
		Aliases: []string{"mem"},
		Summary: "sample memory usage",
		Polling: true,
		flags:   columnFlags,
	},
	{
		Name:    "vmstat",
		Summary: "sample processes, memory, interrupts and CPU activity",
		Polling: true,
		flags:   columnFlags,
	},
	{
		Name:    "load",
		Aliases: []string{"loadavg"},
		Summary: "sample the load average",
		Polling: true,
		flags: func(fs *flag.FlagSet, o *Options) {
			fs.BoolVar(&o.List, "list", false, "list available columns and exit")
		},
	},
	{
		Name:    "interrupts",
		Aliases: []string{"irq"},
		Summary: "sample the busiest interrupts",
		Polling: true,
		flags: func(fs *flag.FlagSet, o *Options) {
			fs.IntVar(&o.Top, "top", 10, "show only the top N interrupts; 0 shows all")
			fs.BoolVar(&o.List, "list", false, "list interrupt labels and exit")
			fs.BoolVar(&o.Details, "details", false, "include IRQ actions and CPU affinities with --list")
		},
	},
	{
		Name:    "slab",
		Summary: "show slab caches",
		flags: func(fs *flag.FlagSet, o *Options) {
			fs.StringVar(&o.Sort, "sort", "o", "sort key: a|o|v|l|s (active objs, objs, active slabs, slabs, object size)")
			fs.IntVar(&o.Top, "top", 0, "show only the top N slab caches; 0 shows all")
		},
	},
	{
		Name:    "cgroups",
		Summary: "show cgroup controllers",
	},
	{
		Name:    "vmalloc",
		Summary: "show vmalloc usage and its top callers",
		flags: func(fs *flag.FlagSet, o *Options) {
			fs.IntVar(&o.Top, "top", 10, "show only the top N callers; 0 shows all")
		},
	},
	{
		Name:    "uptime",
		Summary: "show the time since boot",
	},
}

func columnFlags(fs *flag.FlagSet, o *Options) {
	fs.BoolVar(&o.List, "list", false, "list available columns and exit")
	extra := (*listValue)(&o.Extra)
	fs.Var(extra, "e", "additional column(s) to show; comma-separated or repeated")
	fs.Var(extra, "extra", "additional column(s) to show; comma-separated or repeated")
}

// Lookup returns the subcommand with the specified name or alias.
func Lookup(name string) (Command, bool) {
	for _, cmd := range Commands {
		if cmd.Name == name {
			return cmd, true
		}
		for _, alias := range cmd.Aliases {
			if alias == name {
				return cmd, true
			}
		}
	}
	return Command{}, false
}

// ParseGlobal parses the global options up to the subcommand, returning the
// remaining arguments, starting with the subcommand.
func ParseGlobal(args []string, output io.Writer) (Global, []string, error) {
	var g Global
	fs := flag.NewFlagSet("xproc", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&g.Verbosity, "v", 0, "logging verbosity")
	fs.StringVar(&g.Root, "root", "", "filesystem root to read /proc and /sys from")
	fs.Usage = func() { Usage(output, fs) }
	if err := fs.Parse(args); err != nil {
		return Global{}, nil, usageError(err)
	}
	if fs.NArg() == 0 {
		Usage(output, fs)
		return Global{}, nil, fmt.Errorf("%w: missing command", ErrUsage)
	}
	return g, fs.Args(), nil
}

// Usage prints the global usage including the list of subcommands.
func Usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "usage: xproc [options] <command> [command options]\n\noptions:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, "\ncommands:\n")
	for _, cmd := range Commands {
		name := cmd.Name
		if len(cmd.Aliases) > 0 {
			name += "|" + strings.Join(cmd.Aliases, "|")
		}
		fmt.Fprintf(w, "  %-18s %s\n", name, cmd.Summary)
	}
}

// Parse parses the arguments following the subcommand name. Flags and the
// positional interval and count arguments of polling commands may be mixed.
func (c Command) Parse(args []string, output io.Writer) (Options, error) {
	o := Options{Interval: 1}
	fs := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	fs.SetOutput(output)
	if c.flags != nil {
		c.flags(fs, &o)
	}
	fs.Usage = func() {
		fmt.Fprintf(output, "usage: xproc %s [options]", c.Name)
		if c.Polling {
			fmt.Fprint(output, " [interval] [count]")
		}
		fmt.Fprintf(output, "\n\n%s\n\noptions:\n", c.Summary)
		fs.PrintDefaults()
	}

	flags, positional := splitArgs(fs, args)
	if err := fs.Parse(flags); err != nil {
		return Options{}, usageError(err)
	}
	positional = append(positional, fs.Args()...)

	if err := c.positional(&o, positional); err != nil {
		fs.Usage()
		return Options{}, err
	}
	if err := c.validate(&o); err != nil {
		fs.Usage()
		return Options{}, err
	}
	return o, nil
}

// splitArgs separates the flags (together with their values) from the
// positional arguments. Numbers are positional even when negative, unless
// they are the value of a preceding flag, such as in "--top -1".
func splitArgs(fs *flag.FlagSet, args []string) (flags, positional []string) {
	for idx := 0; idx < len(args); idx++ {
		arg := args[idx]
		if arg == "--" {
			positional = append(positional, args[idx+1:]...)
			break
		}
		if _, err := strconv.Atoi(arg); err == nil || arg == "-" || !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if hasValue || isBoolFlag(fs.Lookup(name)) || idx+1 >= len(args) {
			continue
		}
		idx++
		flags = append(flags, args[idx])
	}
	return flags, positional
}

// isBoolFlag returns true for boolean flags, which don't take a separate
// value argument. Unknown flags are reported by the flag set later anyway.
func isBoolFlag(f *flag.Flag) bool {
	if f == nil {
		return true
	}
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// positional sets interval and count from the positional arguments, clamping
// the interval to at least one second and mapping non-positive counts to
// “until cancelled”.
func (c Command) positional(o *Options, args []string) error {
	maxArgs := 0
	if c.Polling {
		maxArgs = 2
	}
	if len(args) > maxArgs {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, args[maxArgs])
	}
	nums := make([]int, len(args))
	for idx, arg := range args {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("%w: invalid number %q", ErrUsage, arg)
		}
		nums[idx] = num
	}
	if len(nums) > 0 {
		o.Interval = max(nums[0], 1)
	}
	if len(nums) > 1 {
		o.Count = max(nums[1], 0)
	}
	return nil
}

func (c Command) validate(o *Options) error {
	if o.Top < 0 {
		o.Top = 0
	}
	switch c.Name {
	case "process":
		if o.PID <= 0 {
			return fmt.Errorf("%w: missing or invalid PID", ErrUsage)
		}
		if o.Output != OutputText && o.Output != OutputYAML {
			return fmt.Errorf("%w: invalid output format %q", ErrUsage, o.Output)
		}
	case "slab":
		if len(o.Sort) != 1 || !strings.Contains("aovls", o.Sort) {
			return fmt.Errorf("%w: invalid slab sort key %q", ErrUsage, o.Sort)
		}
	}
	return nil
}

// usageError maps flag parsing errors to ErrUsage, except for help requests.
func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUsage, err)
}

// listValue is a flag.Value collecting comma-separated and repeated values.
type listValue []string

func (l *listValue) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *listValue) Set(s string) error {
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*l = append(*l, item)
		}
	}
	return nil
}
