// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package herrors defines the error taxonomy shared by every retrieval
// engine component: hashing, caching, indexing, ranking, and the pipeline
// that drives them. Every boundary call returns (value, error); only
// InputInvalid is ever raised as a programming error (a panic in a helper
// that validates caller-supplied literals).
package herrors

import (
	"errors"
	"fmt"
)

// Code enumerates the stable reason codes surfaced to callers. The string
// form is what appears in a Result's explanation and in CLI stderr output,
// so changing a Code's String() value is a wire-compatibility break.
type Code int

const (
	// InputInvalid covers an empty query, a malformed URL, or an
	// unsupported URL scheme. Surfaces to the caller.
	InputInvalid Code = iota
	// Timeout covers any external call (snapshot, model, executor,
	// persistent cache) that exceeded its deadline. Surfaces to the caller.
	Timeout
	// NotFound means no candidate cleared the minimum score threshold;
	// distinct from a low-confidence match. Surfaces to the caller.
	NotFound
	// Ambiguous means multiple candidates fell within epsilon of the top
	// score and no tie-break rule resolved them, and the caller asked for
	// a unique result. Surfaces to the caller.
	Ambiguous
	// Occluded means live-page verification found the element present but
	// not clickable/visible at its reported location.
	Occluded
	// Disabled means live-page verification found the element disabled.
	Disabled
	// Invisible means live-page verification found the element not visible.
	Invisible
	// ModelUnavailable means the embedder resolver could not load model
	// artifacts; the deterministic-hash fallback engaged and the operation
	// continued. The pipeline also returns this code to the caller when an
	// embedding call fails during a query.
	ModelUnavailable
	// CacheIO means a persistent-cache read or write failed; recovered
	// locally by treating the operation as a miss. Never surfaces on its
	// own.
	CacheIO
	// ExecutorFailed means the external action executor returned an error;
	// the pipeline records a promotion failure, triggers self-heal, and
	// retries up to max_retries before this surfaces.
	ExecutorFailed
)

func (c Code) String() string {
	switch c {
	case InputInvalid:
		return "input_invalid"
	case Timeout:
		return "timeout"
	case NotFound:
		return "not_found"
	case Ambiguous:
		return "ambiguous"
	case Occluded:
		return "occluded"
	case Disabled:
		return "disabled"
	case Invisible:
		return "invisible"
	case ModelUnavailable:
		return "model_unavailable"
	case CacheIO:
		return "cache_io"
	case ExecutorFailed:
		return "executor_failed"
	default:
		return "unknown"
	}
}

// Step names the pipeline phase that produced the error: parse, index,
// rank, verify, or execute. A structured failure result names both a Step and a
// Code so the explanation line is stable and greppable.
type Step string

const (
	StepParse   Step = "parse"
	StepIndex   Step = "index"
	StepRank    Step = "rank"
	StepVerify  Step = "verify"
	StepExecute Step = "execute"
)

// Error is the concrete error type returned by every exported operation in
// this module. It wraps an optional inner error via Unwrap so callers can
// still use errors.Is/errors.As against stdlib-style sentinels.
type Error struct {
	Code Code
	Step Step
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Step != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Step, e.Code, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %s: %s", e.Step, e.Code, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, herrors.NotFound) style checks by comparing
// Codes, since Code is not itself an error.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// New builds an *Error with no step and no wrapped cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap builds an *Error that carries an inner cause.
func Wrap(code Code, step Step, msg string, err error) *Error {
	return &Error{Code: code, Step: step, Msg: msg, Err: err}
}

// WithStep returns a copy of sentinel e tagged with step, used so a shared
// sentinel (e.g. ErrEmptyQuery) can be raised from different pipeline
// stages without losing its Code.
func (e *Error) WithStep(step Step) *Error {
	cp := *e
	cp.Step = step
	return &cp
}

// Sentinels matched with errors.Is in tests and callers.
var (
	ErrEmptyQuery     = New(InputInvalid, "empty query")
	ErrBadURL         = New(InputInvalid, "malformed or unsupported URL")
	ErrNoCandidates   = New(NotFound, "no candidate cleared the minimum score threshold")
	ErrAmbiguous      = New(Ambiguous, "multiple candidates tied for the top score")
	ErrDeadlineBlown  = New(Timeout, "external call exceeded its deadline")
	ErrModelUnavail   = New(ModelUnavailable, "embedder artifacts unavailable")
	ErrSessionUnknown = New(InputInvalid, "unknown session id")
)

// Explanation renders the single-line, stable-reason-code failure message
// described in spec.md §7: it names the failing step and the reason code.
func Explanation(err error) string {
	var he *Error
	if errors.As(err, &he) {
		step := he.Step
		if step == "" {
			step = "pipeline"
		}
		return fmt.Sprintf("%s failed: %s (%s)", step, he.Code, he.Msg)
	}
	return err.Error()
}
