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
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("process status", func() {

	It("parses a process status", func() {
		status := Successful(testHost.PIDStatus(1))
		Expect(status.PID()).To(Equal(1))
		Expect(status.Get(PSName)).To(Equal("systemd"))
		Expect(status.Get(PSState)).To(Equal("S (sleeping)"))
		Expect(status.Get(PSPPid)).To(Equal("0"))
		Expect(status.Attr(PSPPid).Value).To(Equal(IntValue(0)))
		Expect(status.Get(PSVmRSS)).To(Equal("12836 kB"))
		Expect(status.Get(PSGroups)).To(BeEmpty())
		Expect(status.Get("NoSuchField")).To(BeEmpty())
		Expect(status.Attr("NoSuchField").IsEmpty()).To(BeTrue())
		Expect(status.CPUsAllowed()).To(Equal(CPURanges{{0, 7}}))
		Expect(status.MemsAllowed()).To(Equal(CPURanges{{0, 0}}))
		Expect(status.Names()[0]).To(Equal(PSName))
	})

	It("selects fields", func() {
		status := Successful(testHost.PIDStatus(1))
		names := []string{}
		for _, attr := range status.Select(DefaultPIDStatusAttrs) {
			names = append(names, attr.Name)
		}
		Expect(names).To(HaveExactElements(
			PSName, PSState, PSPid, PSPPid, PSUid, PSGid, PSThreads,
			PSVmPeak, PSVmSize, PSVmRSS,
			PSCpusAllowedList, PSMemsAllowedList,
			PSVoluntaryCtxtSwitches, PSNonvoluntaryCtxtSwitches))
		Expect(status.Select([]string{"NoSuchField"})).To(BeEmpty())
	})

	It("parses namespaced PIDs as lists", func() {
		status := Successful(ParsePIDStatus(strings.NewReader("Pid:\t42\nNSpid:\t42\t7\n")))
		Expect(status.PID()).To(Equal(42))
		Expect(status.Attr(PSNSpid).Value.Raw()).To(Equal([]int64{42, 7}))
		Expect(status.Get(PSNSpid)).To(Equal("42 7"))
	})

	It("fails on malformed known fields", func() {
		Expect(testHost.PIDStatus(42)).Error().To(MatchError(ErrMalformedField))
	})

	It("reports vanished processes", func() {
		_, err := testHost.PIDStatus(666)
		Expect(err).To(MatchError(ErrSourceUnavailable))
		Expect(IsProcessGone(err)).To(BeTrue())
	})

	It("lists PIDs", func() {
		Expect(testHost.PIDs()).To(HaveExactElements(1, 42))
	})

	It("iterates over all readable processes, logging skipped ones", func() {
		var logged strings.Builder
		log := funcr.New(func(prefix, args string) {
			logged.WriteString(args + "\n")
		}, funcr.Options{Verbosity: 1})
		ctx := logr.NewContext(context.Background(), log)
		pids := []int{}
		for status := range testHost.AllPIDStatus(ctx) {
			pids = append(pids, status.PID())
		}
		Expect(pids).To(HaveExactElements(1))
		Expect(logged.String()).To(ContainSubstring(`"pid"=42`))
	})

	It("stops iterating when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(testHost.AllPIDStatus(ctx)).To(BeEmpty())
	})

	It("reads its own status", func() {
		status := Successful(Host.PIDStatus(os.Getpid()))
		Expect(status.PID()).To(Equal(os.Getpid()))
		Expect(status.Get(PSName)).NotTo(BeEmpty())
	})

})
