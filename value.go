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
	"strconv"
	"strings"
)

// Kind identifies the variant of a Value. The set of kinds is closed.
type Kind uint8

const (
	KindString  Kind = iota // text, such as a process name or a hex mask
	KindInt                 // plain integer count
	KindIntUnit             // integer with a unit, such as “16384000 kB”
	KindFloat               // floating point, such as a load average
	KindIntList             // ordered list of integers
)

var kindNames = [...]string{
	KindString:  "string",
	KindInt:     "int",
	KindIntUnit: "int+unit",
	KindFloat:   "float",
	KindIntList: "int list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Format is a display template applied when rendering a Value. Formats are
// passed at render time instead of being attached to the value itself.
type Format uint8

const (
	// FmtDefault renders a value using the default template of its kind.
	FmtDefault Format = iota
	// FmtPlain renders only the (single) payload, without any unit.
	FmtPlain
	// FmtUnit renders an IntUnit value as “<value> <unit>”. It has two slots
	// and thus applies only to IntUnit values; other kinds fall back to their
	// default template.
	FmtUnit
)

// Value is a typed, immutable measured quantity.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string // string payload, or unit for KindIntUnit
	l    []int64
}

// StringValue returns a new Value of kind KindString.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue returns a new Value of kind KindInt.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// IntUnitValue returns a new Value of kind KindIntUnit carrying the specified
// unit, such as “kB”.
func IntUnitValue(i int64, unit string) Value { return Value{kind: KindIntUnit, i: i, s: unit} }

// FloatValue returns a new Value of kind KindFloat.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// IntListValue returns a new Value of kind KindIntList; the list is copied.
func IntListValue(l []int64) Value {
	return Value{kind: KindIntList, l: append([]int64(nil), l...)}
}

// Kind returns the variant of this value.
func (v Value) Kind() Kind { return v.kind }

// Raw returns the untyped payload: int64 for KindInt and KindIntUnit, float64,
// string, or a copy of the []int64 list.
func (v Value) Raw() any {
	switch v.kind {
	case KindInt, KindIntUnit:
		return v.i
	case KindFloat:
		return v.f
	case KindIntList:
		return append([]int64(nil), v.l...)
	default:
		return v.s
	}
}

// Int returns the integer payload of KindInt and KindIntUnit values, and ok
// true. For all other kinds it returns 0 and false.
func (v Value) Int() (i int64, ok bool) {
	if v.kind == KindInt || v.kind == KindIntUnit {
		return v.i, true
	}
	return 0, false
}

// Float returns the floating point payload of a KindFloat value and ok true.
func (v Value) Float() (f float64, ok bool) {
	if v.kind == KindFloat {
		return v.f, true
	}
	return 0, false
}

// Unit returns the unit of a KindIntUnit value, otherwise "".
func (v Value) Unit() string {
	if v.kind == KindIntUnit {
		return v.s
	}
	return ""
}

// Render returns the textual representation of this value using the
// specified format.
func (v Value) Render(f Format) string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindIntUnit:
		if f == FmtPlain {
			return strconv.FormatInt(v.i, 10)
		}
		return strconv.FormatInt(v.i, 10) + " " + v.s
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', 2, 64)
	case KindIntList:
		var b strings.Builder
		for idx, i := range v.l {
			if idx > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatInt(i, 10))
		}
		return b.String()
	default:
		return v.s
	}
}

// String renders this value using the default format of its kind.
func (v Value) String() string { return v.Render(FmtDefault) }

// ParseString returns the trimmed text as a KindString value; it never fails.
func ParseString(s string) (Value, error) {
	return StringValue(strings.TrimSpace(s)), nil
}

// ParseInt parses the trimmed text as a decimal integer.
func ParseInt(s string) (Value, error) {
	s = strings.TrimSpace(s)
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Value{}, err
	}
	return IntValue(i), nil
}

// ParseIntUnit parses text in “<integer> <unit>” format, such as “1024 kB”.
func ParseIntUnit(s string) (Value, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Value{}, strconv.ErrSyntax
	}
	i, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Value{}, err
	}
	return IntUnitValue(i, fields[1]), nil
}

// ParseFloat parses the trimmed text as a floating point number.
func ParseFloat(s string) (Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Value{}, err
	}
	return FloatValue(f), nil
}

// ParseIntList parses a whitespace-separated list of decimal integers. An
// empty list is valid.
func ParseIntList(s string) (Value, error) {
	fields := strings.Fields(s)
	l := make([]int64, len(fields))
	for idx, field := range fields {
		i, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return Value{}, err
		}
		l[idx] = i
	}
	return Value{kind: KindIntList, l: l}, nil
}
