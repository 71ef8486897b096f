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
	"bufio"
	"io"
	"iter"
	"strings"
	"time"
)

// Attr binds a stable kernel-defined name, such as “MemTotal” or “VmRSS”, to
// a typed Value, together with the format used to display it.
type Attr struct {
	Name   string
	Value  Value
	Format Format
}

// EmptyAttr is returned from lookups for attributes that are not present.
var EmptyAttr = Attr{Name: "EmptyAttr", Value: StringValue("")}

// TimeAttrName is the name of the capture time attribute prepended to sampled
// attribute rows.
const TimeAttrName = "TIME"

// IsEmpty returns true if this attribute is the EmptyAttr sentinel.
func (a Attr) IsEmpty() bool {
	return a.Name == EmptyAttr.Name && a.Value.kind == KindString && a.Value.s == ""
}

// String renders the attribute value using the attribute's format.
func (a Attr) String() string { return a.Value.Render(a.Format) }

// CaptureTimeAttr returns the synthesized capture time attribute in
// “15:04:05” format.
func CaptureTimeAttr(t time.Time) Attr {
	return Attr{Name: TimeAttrName, Value: StringValue(t.Format(time.TimeOnly))}
}

// Attrs is an ordered collection of attributes with unique names, where the
// iteration order is the order in which the attributes have been added, that
// is, the order of the fields in the kernel pseudo file.
type Attrs struct {
	names  []string
	byName map[string]Attr
}

// NewAttrs returns a new, empty attribute collection.
func NewAttrs() *Attrs {
	return &Attrs{byName: map[string]Attr{}}
}

// add appends the attribute; an attribute of the same name already present is
// replaced in place, keeping its original position.
func (a *Attrs) add(attr Attr) {
	if _, ok := a.byName[attr.Name]; !ok {
		a.names = append(a.names, attr.Name)
	}
	a.byName[attr.Name] = attr
}

// Lookup returns the named attribute and true, or EmptyAttr and false.
func (a *Attrs) Lookup(name string) (Attr, bool) {
	if a == nil {
		return EmptyAttr, false
	}
	attr, ok := a.byName[name]
	if !ok {
		return EmptyAttr, false
	}
	return attr, true
}

// Get returns the named attribute, or EmptyAttr if not present.
func (a *Attrs) Get(name string) Attr {
	attr, _ := a.Lookup(name)
	return attr
}

// Names returns the attribute names in order.
func (a *Attrs) Names() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.names...)
}

// Len returns the number of attributes.
func (a *Attrs) Len() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}

// All returns an iterator over the attributes in order.
func (a *Attrs) All() iter.Seq[Attr] {
	return func(yield func(Attr) bool) {
		if a == nil {
			return
		}
		for _, name := range a.names {
			if !yield(a.byName[name]) {
				return
			}
		}
	}
}

// Select returns the requested attributes, silently leaving out the ones not
// present, prefixed by the capture time attribute.
func (a *Attrs) Select(now time.Time, requested []string) []Attr {
	attrs := make([]Attr, 0, 1+len(requested))
	attrs = append(attrs, CaptureTimeAttr(now))
	for _, name := range requested {
		attr, ok := a.Lookup(name)
		if !ok {
			continue
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// field describes how to parse and display a known kernel field.
type field struct {
	parse  func(string) (Value, error)
	format Format
}

var (
	strField     = field{parse: ParseString, format: FmtPlain}
	intField     = field{parse: ParseInt, format: FmtPlain}
	intUnitField = field{parse: ParseIntUnit, format: FmtUnit}
	intListField = field{parse: ParseIntList, format: FmtPlain}
)

// fieldTable maps kernel field names to their parser and display format.
type fieldTable map[string]field

// parseColonFields reads “name: value” lines from r, splitting each line at
// its first colon. Lines with names not in the table are skipped, so that
// fields introduced by newer kernels don't break parsing. Known fields that
// fail to parse fail the whole snapshot.
func parseColonFields(r io.Reader, table fieldTable) (*Attrs, error) {
	attrs := NewAttrs()
	sc := newLineScanner(r)
	for sc.Scan() {
		line := sc.Text()
		name, raw, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		f, ok := table[name]
		if !ok {
			continue
		}
		value, err := f.parse(raw)
		if err != nil {
			return nil, fieldError(name, raw, err)
		}
		attrs.add(Attr{Name: name, Value: value, Format: f.format})
	}
	if err := sc.Err(); err != nil {
		return nil, sourceError("", err)
	}
	return attrs, nil
}

// maxLineLength is the maximum length of a single line of kernel text; the
// “intr” line of /proc/stat on systems with many IRQs easily exceeds the
// default bufio.Scanner limit.
const maxLineLength = 4 * 1024 * 1024

// newLineScanner returns a line scanner accepting lines up to maxLineLength.
func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineLength)
	return sc
}
