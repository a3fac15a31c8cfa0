// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pbwterr defines the error kinds surfaced by the pbwt engine and
// its surrounding I/O and ingestion layers: format, shape, argument, I/O,
// and invariant violations, each meant to be discovered by an error kind
// check rather than by string-matching an error message.
package pbwterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error so that callers (in particular the CLI driver)
// can decide whether to retry, discard a companion file, or abort.
type Kind int

const (
	// Unknown is the zero Kind; it should not normally be constructed
	// directly.
	Unknown Kind = iota
	// Format indicates malformed framing: a bad file tag, truncated header,
	// or a non-binary character encountered during ingestion.
	Format
	// Shape indicates an inconsistent M or N, or a sites-file line count
	// that does not match a panel's N.
	Shape
	// Argument indicates an invalid CLI parameter or out-of-range numeric
	// option.
	Argument
	// IO indicates an underlying read/write failure.
	IO
	// Invariant indicates a check-mode-only detected violation: a decoded
	// column that disagrees with its source, a self-match, or a
	// non-maximal match emitted by the maximal reporter.
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Format:
		return "FormatError"
	case Shape:
		return "ShapeError"
	case Argument:
		return "ArgumentError"
	case IO:
		return "IOError"
	case Invariant:
		return "InvariantViolation"
	default:
		return "Error"
	}
}

// Error is a Kind-carrying error. It wraps an optional underlying cause so
// that errors.Cause (and fmt's %+v) still reaches the original error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

// Cause lets github.com/pkg/errors.Cause and errors.Unwrap see through to
// the underlying error.
func (e *Error) Cause() error  { return e.Err }
func (e *Error) Unwrap() error { return e.Err }

// E constructs an *Error. op names the offending operation (e.g. "decode
// column 412" or "read panel header"); err, if non-nil, is wrapped.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is a pbwterr.Error of the given Kind.
func Is(kind Kind, err error) bool {
	e, ok := errors.Cause(err).(*Error)
	if !ok {
		if e, ok = err.(*Error); !ok {
			return false
		}
	}
	return e.Kind == kind
}
