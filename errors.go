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
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable signals that a kernel pseudo file could not be
	// opened or read, such as when /proc isn't mounted, access is denied, or a
	// process has gone away before its status could be read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedField signals that the value of a known field does not parse
	// as the type declared for it. Unknown fields are never an error.
	ErrMalformedField = errors.New("malformed field")

	// ErrShapeMismatch signals violated positional assumptions: too few CPU
	// columns in an interrupt or stat line, or two interrupt snapshots that
	// cannot be subtracted from each other.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// fieldError returns an ErrMalformedField error for the named field and its
// offending raw text, optionally wrapping the underlying parse error.
func fieldError(name, raw string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s: %q", ErrMalformedField, name, raw)
	}
	return fmt.Errorf("%w: %s: %q: %w", ErrMalformedField, name, raw, err)
}

// shapeError returns an ErrShapeMismatch error with the given details.
func shapeError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrShapeMismatch}, args...)...)
}
