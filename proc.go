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

package xproc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	procPath = "/proc/"

	meminfoNode     = "meminfo"
	statNode        = "stat"
	loadavgNode     = "loadavg"
	uptimeNode      = "uptime"
	slabinfoNode    = "slabinfo"
	cgroupsNode     = "cgroups"
	vmallocinfoNode = "vmallocinfo"
	interruptsNode  = "interrupts"
	statusNode      = "/status"
)

// Proc reads kernel telemetry from the /proc (and /sys) pseudo filesystems
// found below a particular filesystem root. The zero value reads from the
// host's root, that is, from “/proc/...”.
//
// Every read of a snapshot is a single, whole-file read; Proc never caches.
type Proc struct {
	root string
}

// Host reads from the host's “/proc” and “/sys”.
var Host = Proc{}

// NewProc returns a Proc reading from “<root>/proc/...” and “<root>/sys/...”
// instead of the host's root, such as for reading a procfs tree captured as
// test data. An empty root reads from the host.
func NewProc(root string) Proc {
	return Proc{root: strings.TrimRight(root, "/")}
}

// Root returns the filesystem root this Proc reads from; "" is the host root.
func (p Proc) Root() string { return p.root }

func (p Proc) path(node string) string {
	return p.root + procPath + node
}

// readFile reads the full contents of the specified /proc node. Failures
// are reported as ErrSourceUnavailable.
func (p Proc) readFile(node string) ([]byte, error) {
	path := p.path(node)
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, sourceError(path, err)
	}
	return contents, nil
}

// readReader is readFile returning a reader over the contents.
func (p Proc) readReader(node string) (*bytes.Reader, error) {
	contents, err := p.readFile(node)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(contents), nil
}

func sourceError(path string, err error) error {
	if path == "" {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
}

// IsProcessGone returns true if err indicates that a process went away while
// reading its status, as opposed to other reasons, such as lacking access
// permissions.
func IsProcessGone(err error) bool {
	return errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ESRCH)
}
