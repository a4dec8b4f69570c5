// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package p7z

import "fmt"

// Kind identifies the broad category of an error returned by this
// package. Callers that need to branch on failure class should switch on
// Kind rather than on the error's string form.
type Kind int

const (
	// KindNone indicates no error; the zero value of Kind.
	KindNone Kind = iota
	// KindInvalidArgument covers null/empty inputs, configuration outside
	// the permitted ranges, item-count and solid-mode size ceilings, and
	// arithmetic overflow detected while validating sizes.
	KindInvalidArgument
	// KindOutOfMemory covers allocation failures for the solid buffer or a
	// job's compressed-bytes buffer.
	KindOutOfMemory
	// KindCancelled indicates the caller's ShouldCancel predicate requested
	// shutdown.
	KindCancelled
	// KindIO covers read failures on an input handle or write failures on
	// the output sink, propagated verbatim from the underlying stream.
	KindIO
	// KindCoder covers a non-zero/failed return from a Coder.
	KindCoder
	// KindAssembly covers an inconsistency detected by the archive
	// assembler, such as a pack write whose size disagrees with the
	// recorded pack-size entry.
	KindAssembly
	// KindFatal covers the case where every job in a batch failed, or
	// assembly itself failed; callers should discard any partial output.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindOutOfMemory:
		return "out of memory"
	case KindCancelled:
		return "cancelled"
	case KindIO:
		return "io error"
	case KindCoder:
		return "coder error"
	case KindAssembly:
		return "assembly error"
	case KindFatal:
		return "fatal"
	default:
		return "none"
	}
}

// Error is the concrete error type returned by this package's public
// entry points. It carries a Kind so callers can branch on failure class,
// and wraps an underlying cause where one exists.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("p7z: %s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("p7z: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(k Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Outcome is the overall result of a batch. A batch always finishes with
// one of three outcomes; the per-job detail behind a partial outcome is
// available via Stats.
type Outcome int

const (
	// OutcomeOK indicates every job in the batch succeeded.
	OutcomeOK Outcome = iota
	// OutcomePartial indicates at least one job failed but the archive is
	// well-formed and contains every job that succeeded.
	OutcomePartial
	// OutcomeFatal indicates every job failed, or assembly failed; any
	// output produced should be discarded.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomePartial:
		return "partial"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
