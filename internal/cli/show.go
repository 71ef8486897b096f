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
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"github.com/thediveo/xproc"
	"github.com/thediveo/xproc/internal/config"
	"github.com/thediveo/xproc/internal/render"
)

// version shows the xproc version, the Go version it was built with, and the
// kernel release it runs on.
func version(_ context.Context, e *env) error {
	vers, goVers := "(devel)", "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" {
			vers = info.Main.Version
		}
		goVers = info.GoVersion
	}
	fmt.Fprintf(e.stdout, "xproc %s (%s)\n", vers, goVers)
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fmt.Errorf("cannot determine kernel release: %w", err)
	}
	fmt.Fprintf(e.stdout, "%s %s %s\n",
		unix.ByteSliceToString(uts.Sysname[:]),
		unix.ByteSliceToString(uts.Release[:]),
		unix.ByteSliceToString(uts.Machine[:]))
	return nil
}

// process shows the status of a single process.
func process(_ context.Context, e *env) error {
	status, err := e.proc.PIDStatus(e.opts.PID)
	if err != nil {
		if xproc.IsProcessGone(err) {
			return fmt.Errorf("no such process %d: %w", e.opts.PID, err)
		}
		return err
	}
	var attrs []xproc.Attr
	if e.opts.All {
		attrs = slices.Collect(status.Attrs())
	} else {
		attrs = status.Select(xproc.DefaultPIDStatusAttrs)
	}
	if e.opts.Output == config.OutputYAML {
		return statusYAML(e, attrs)
	}
	width := 0
	for _, attr := range attrs {
		width = max(width, len(attr.Name)+1)
	}
	for _, attr := range attrs {
		fmt.Fprintf(e.stdout, "%-*s %s\n", width, attr.Name+":", attr.String())
	}
	return nil
}

// statusYAML writes the attributes as a YAML mapping, keeping their order.
func statusYAML(e *env, attrs []xproc.Attr) error {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, attr := range attrs {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: attr.Name},
			yamlValue(attr))
	}
	enc := yaml.NewEncoder(e.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}); err != nil {
		return err
	}
	return enc.Close()
}

// yamlValue returns the YAML node for an attribute value: plain integers and
// floats become numbers, integer lists become flow sequences, and everything
// else, including values with units, becomes a string.
func yamlValue(attr xproc.Attr) *yaml.Node {
	switch attr.Value.Kind() {
	case xproc.KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: attr.Value.String()}
	case xproc.KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: attr.Value.String()}
	case xproc.KindIntList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, i := range attr.Value.Raw().([]int64) {
			seq.Content = append(seq.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(i)})
		}
		return seq
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: attr.String()}
	}
}

// slab shows the slab caches, sorted by the requested key.
func slab(_ context.Context, e *env) error {
	info, err := e.proc.SlabInfo()
	if err != nil {
		return err
	}
	caches, err := info.Sort(e.opts.Sort[0], e.opts.Top)
	if err != nil {
		return err
	}
	rows := make([][]xproc.Attr, 0, len(caches))
	for _, cache := range caches {
		rows = append(rows, cache.Attrs())
	}
	return render.NewColumns(e.stdout).Table(rows)
}

// cgroups shows the cgroup controllers.
func cgroups(_ context.Context, e *env) error {
	cgs, err := e.proc.CGroups()
	if err != nil {
		return err
	}
	subsystems := cgs.SubSystems()
	rows := make([][]xproc.Attr, 0, len(subsystems))
	for _, subsys := range subsystems {
		rows = append(rows, subsys.Attrs())
	}
	return render.NewColumns(e.stdout).Table(rows)
}

// vmalloc shows the overall vmalloc usage, followed by the callers using the
// most vmalloc space.
func vmalloc(_ context.Context, e *env) error {
	info, err := e.proc.VmallocInfo()
	if err != nil {
		return err
	}
	sum := info.Summary()
	summary := []xproc.Attr{
		{Name: "areas", Value: xproc.IntValue(int64(sum.Areas))},
		{Name: "size", Value: xproc.IntUnitValue(kiB(sum.Bytes), "kB"), Format: xproc.FmtUnit},
	}
	flags := make([]string, 0, len(sum.ByFlag))
	for flag := range sum.ByFlag {
		flags = append(flags, flag)
	}
	slices.Sort(flags)
	for _, flag := range flags {
		summary = append(summary, xproc.Attr{
			Name:   flag,
			Value:  xproc.IntUnitValue(kiB(sum.ByFlag[flag]), "kB"),
			Format: xproc.FmtUnit,
		})
	}
	if err := render.NewColumns(e.stdout).Table([][]xproc.Attr{summary}); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout)
	callers := info.TopCallers(e.opts.Top)
	rows := make([][]xproc.Attr, 0, len(callers))
	for _, caller := range callers {
		rows = append(rows, caller.Attrs())
	}
	return render.NewColumns(e.stdout).Table(rows)
}

// kiB returns the number of (started) kilobytes.
func kiB(bytes int64) int64 { return (bytes + 1023) / 1024 }

// uptime shows the time since boot.
func uptime(_ context.Context, e *env) error {
	up, err := e.proc.Uptime()
	if err != nil {
		return err
	}
	return render.NewColumns(e.stdout).Table([][]xproc.Attr{up.Attrs(time.Now())})
}
