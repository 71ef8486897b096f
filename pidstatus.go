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
	"context"
	"io"
	"iter"
	"slices"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/thediveo/faf"
)

// Names of the fields in “/proc/[PID]/status”.
const (
	PSName                     = "Name"
	PSUmask                    = "Umask"
	PSState                    = "State"
	PSTgid                     = "Tgid"
	PSNgid                     = "Ngid"
	PSPid                      = "Pid"
	PSPPid                     = "PPid"
	PSTracerPid                = "TracerPid"
	PSUid                      = "Uid"
	PSGid                      = "Gid"
	PSFDSize                   = "FDSize"
	PSGroups                   = "Groups"
	PSNStgid                   = "NStgid"
	PSNSpid                    = "NSpid"
	PSNSpgid                   = "NSpgid"
	PSNSsid                    = "NSsid"
	PSVmPeak                   = "VmPeak"
	PSVmSize                   = "VmSize"
	PSVmLck                    = "VmLck"
	PSVmPin                    = "VmPin"
	PSVmHWM                    = "VmHWM"
	PSVmRSS                    = "VmRSS"
	PSRssAnon                  = "RssAnon"
	PSRssFile                  = "RssFile"
	PSRssShmem                 = "RssShmem"
	PSVmData                   = "VmData"
	PSVmStk                    = "VmStk"
	PSVmExe                    = "VmExe"
	PSVmLib                    = "VmLib"
	PSVmPTE                    = "VmPTE"
	PSVmSwap                   = "VmSwap"
	PSHugetlbPages             = "HugetlbPages"
	PSCoreDumping              = "CoreDumping"
	PSTHPEnabled               = "THP_enabled"
	PSThreads                  = "Threads"
	PSSigQ                     = "SigQ"
	PSSigPnd                   = "SigPnd"
	PSShdPnd                   = "ShdPnd"
	PSSigBlk                   = "SigBlk"
	PSSigIgn                   = "SigIgn"
	PSSigCgt                   = "SigCgt"
	PSCapInh                   = "CapInh"
	PSCapPrm                   = "CapPrm"
	PSCapEff                   = "CapEff"
	PSCapBnd                   = "CapBnd"
	PSCapAmb                   = "CapAmb"
	PSNoNewPrivs               = "NoNewPrivs"
	PSSeccomp                  = "Seccomp"
	PSSpeculationStoreBypass   = "Speculation_Store_Bypass"
	PSCpusAllowed              = "Cpus_allowed"
	PSCpusAllowedList          = "Cpus_allowed_list"
	PSMemsAllowed              = "Mems_allowed"
	PSMemsAllowedList          = "Mems_allowed_list"
	PSVoluntaryCtxtSwitches    = "voluntary_ctxt_switches"
	PSNonvoluntaryCtxtSwitches = "nonvoluntary_ctxt_switches"
)

// DefaultPIDStatusAttrs lists the status fields shown when not all fields
// have been requested.
var DefaultPIDStatusAttrs = []string{
	PSName, PSState, PSPid, PSPPid, PSUid, PSGid, PSThreads,
	PSVmPeak, PSVmSize, PSVmHWM, PSVmRSS, PSVmSwap,
	PSCpusAllowedList, PSMemsAllowedList,
	PSVoluntaryCtxtSwitches, PSNonvoluntaryCtxtSwitches,
}

// The NS* fields list one ID per nested PID namespace level, so they are
// integer lists instead of single integers.
var pidStatusFields = fieldTable{
	PSName:                     strField,
	PSUmask:                    strField,
	PSState:                    strField,
	PSTgid:                     intField,
	PSNgid:                     intField,
	PSPid:                      intField,
	PSPPid:                     intField,
	PSTracerPid:                intField,
	PSUid:                      strField,
	PSGid:                      strField,
	PSFDSize:                   intField,
	PSGroups:                   strField,
	PSNStgid:                   intListField,
	PSNSpid:                    intListField,
	PSNSpgid:                   intListField,
	PSNSsid:                    intListField,
	PSVmPeak:                   intUnitField,
	PSVmSize:                   intUnitField,
	PSVmLck:                    intUnitField,
	PSVmPin:                    intUnitField,
	PSVmHWM:                    intUnitField,
	PSVmRSS:                    intUnitField,
	PSRssAnon:                  intUnitField,
	PSRssFile:                  intUnitField,
	PSRssShmem:                 intUnitField,
	PSVmData:                   intUnitField,
	PSVmStk:                    intUnitField,
	PSVmExe:                    intUnitField,
	PSVmLib:                    intUnitField,
	PSVmPTE:                    intUnitField,
	PSVmSwap:                   intUnitField,
	PSHugetlbPages:             intUnitField,
	PSCoreDumping:              intField,
	PSTHPEnabled:               intField,
	PSThreads:                  intField,
	PSSigQ:                     strField,
	PSSigPnd:                   strField,
	PSShdPnd:                   strField,
	PSSigBlk:                   strField,
	PSSigIgn:                   strField,
	PSSigCgt:                   strField,
	PSCapInh:                   strField,
	PSCapPrm:                   strField,
	PSCapEff:                   strField,
	PSCapBnd:                   strField,
	PSCapAmb:                   strField,
	PSNoNewPrivs:               intField,
	PSSeccomp:                  intField,
	PSSpeculationStoreBypass:   strField,
	PSCpusAllowed:              strField,
	PSCpusAllowedList:          strField,
	PSMemsAllowed:              strField,
	PSMemsAllowedList:          strField,
	PSVoluntaryCtxtSwitches:    intField,
	PSNonvoluntaryCtxtSwitches: intField,
}

// PIDStatus is a snapshot of the status of a single process, as read from
// “/proc/[PID]/status”.
type PIDStatus struct {
	pid   int
	attrs *Attrs
}

// PIDStatus returns a new snapshot of the status of the process with the
// specified PID. If the process doesn't exist (anymore), the error is an
// ErrSourceUnavailable for which IsProcessGone returns true.
func (p Proc) PIDStatus(pid int) (*PIDStatus, error) {
	r, err := p.readReader(strconv.Itoa(pid) + statusNode)
	if err != nil {
		return nil, err
	}
	status, err := ParsePIDStatus(r)
	if err != nil {
		return nil, err
	}
	status.pid = pid
	return status, nil
}

// ParsePIDStatus returns a process status snapshot from text in
// “/proc/[PID]/status” format. The PID is taken from the “Pid” field.
func ParsePIDStatus(r io.Reader) (*PIDStatus, error) {
	attrs, err := parseColonFields(r, pidStatusFields)
	if err != nil {
		return nil, err
	}
	pid, _ := attrs.Get(PSPid).Value.Int()
	return &PIDStatus{pid: int(pid), attrs: attrs}, nil
}

// PID returns the process ID this status belongs to.
func (s *PIDStatus) PID() int { return s.pid }

// Get returns the named field value rendered as text, or "" if the field
// isn't present.
func (s *PIDStatus) Get(name string) string {
	attr, ok := s.attrs.Lookup(name)
	if !ok {
		return ""
	}
	return attr.String()
}

// Attr returns the named attribute, or EmptyAttr if not present.
func (s *PIDStatus) Attr(name string) Attr { return s.attrs.Get(name) }

// Attrs returns all attributes in file order.
func (s *PIDStatus) Attrs() iter.Seq[Attr] { return s.attrs.All() }

// Select returns the requested attributes in the requested order, leaving out
// the ones not present.
func (s *PIDStatus) Select(requested []string) []Attr {
	attrs := make([]Attr, 0, len(requested))
	for _, name := range requested {
		if attr, ok := s.attrs.Lookup(name); ok {
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

// Names returns the names of the available fields in file order.
func (s *PIDStatus) Names() []string { return s.attrs.Names() }

// CPUsAllowed returns the CPUs this process is allowed to run on.
func (s *PIDStatus) CPUsAllowed() CPURanges {
	return ParseCPURanges(s.Get(PSCpusAllowedList))
}

// MemsAllowed returns the NUMA memory nodes this process is allowed to
// allocate memory from.
func (s *PIDStatus) MemsAllowed() CPURanges {
	return ParseCPURanges(s.Get(PSMemsAllowedList))
}

// PIDs returns the sorted list of the PIDs of the processes currently listed
// in “/proc”.
func (p Proc) PIDs() []int {
	pids := []int{}
	for entry := range faf.ReadDir(p.root + procPath) {
		if !entry.IsDir() {
			continue
		}
		pid, ok := faf.ParseUint(entry.Name)
		if !ok || pid == 0 {
			continue
		}
		pids = append(pids, int(pid))
	}
	slices.Sort(pids)
	return pids
}

// AllPIDStatus returns an iterator over the status snapshots of all processes
// listed in “/proc”. Processes can terminate between listing “/proc” and
// reading their status; such processes, as well as processes with unreadable
// or malformed status, are skipped and logged at verbosity level 1 to the
// logger taken from the context. Cancelling the context ends the iteration.
func (p Proc) AllPIDStatus(ctx context.Context) iter.Seq[*PIDStatus] {
	log := logr.FromContextOrDiscard(ctx)
	return func(yield func(*PIDStatus) bool) {
		for _, pid := range p.PIDs() {
			if ctx.Err() != nil {
				return
			}
			status, err := p.PIDStatus(pid)
			if err != nil {
				log.V(1).Info("skipping process", "pid", pid, "gone", IsProcessGone(err), "error", err.Error())
				continue
			}
			if !yield(status) {
				return
			}
		}
	}
}
