// Package faults defines the error taxonomy shared by the production
// pipeline and its entry points. Errors are classified by Kind so callers
// can map them onto client responses without string matching.
package faults

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindNotFound marks lookups for unknown jobs, episodes, or artifacts.
	KindNotFound Kind = iota
	// KindUpstream marks failures reported by an external collaborator
	// (text generation, TTS, object storage).
	KindUpstream
	// KindValidation marks requests rejected before any work was done.
	KindValidation
	// KindInternal marks unexpected failures inside the pipeline.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_failure"
	case KindValidation:
		return "validation_failure"
	default:
		return "internal_failure"
	}
}

// Error carries a kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on bare kind sentinels created by the
// constructors below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf reports the kind of err, defaulting to KindInternal for errors
// produced outside this package.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a not-found fault.
func IsNotFound(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindNotFound
}

// IsValidation reports whether err is a validation fault.
func IsValidation(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindValidation
}

// IsUpstream reports whether err is an upstream collaborator fault.
func IsUpstream(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindUpstream
}
