// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"context"
	"sync"
)

// Fake is an in-memory Executor for tests and the CLI's offline mode. It
// tracks a fixed set of locators considered "present" (Exists/Unique) and
// records every mutating call it receives so a test can assert on call
// order without a real browser.
type Fake struct {
	mu sync.Mutex

	// Present maps a locator string to whether Exists should report it
	// found. A locator absent from the map is treated as not found.
	Present map[string]bool
	// Ambiguous lists locators for which Unique should report false.
	Ambiguous map[string]bool
	// FailLocators lists locators whose mutating calls should return a
	// failed Outcome, simulating ExecutorFailed (spec.md §7).
	FailLocators map[string]bool

	Calls []Call
}

// Call records one mutating invocation for test assertions.
type Call struct {
	Method  string
	Locator string
	Value   string
}

// NewFake returns an empty Fake; zero value is also usable.
func NewFake() *Fake {
	return &Fake{
		Present:      make(map[string]bool),
		Ambiguous:    make(map[string]bool),
		FailLocators: make(map[string]bool),
	}
}

func (f *Fake) Exists(ctx context.Context, locator string, strategy Strategy) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Present[locator], nil
}

func (f *Fake) Unique(ctx context.Context, locator string, strategy Strategy) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Ambiguous[locator], nil
}

func (f *Fake) record(method, locator, value string) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: method, Locator: locator, Value: value})
	if f.FailLocators[locator] {
		return Outcome{OK: false, Err: errFakeExecution(locator)}
	}
	return Outcome{OK: true}
}

func (f *Fake) Click(ctx context.Context, locator string) Outcome        { return f.record("click", locator, "") }
func (f *Fake) Type(ctx context.Context, locator, value string) Outcome  { return f.record("type", locator, value) }
func (f *Fake) Press(ctx context.Context, locator, key string) Outcome   { return f.record("press", locator, key) }
func (f *Fake) Hover(ctx context.Context, locator string) Outcome        { return f.record("hover", locator, "") }
func (f *Fake) Check(ctx context.Context, locator string) Outcome        { return f.record("check", locator, "") }
func (f *Fake) Uncheck(ctx context.Context, locator string) Outcome      { return f.record("uncheck", locator, "") }
func (f *Fake) Select(ctx context.Context, locator, value string) Outcome {
	return f.record("select", locator, value)
}

type executionError string

func (e executionError) Error() string { return string(e) }

func errFakeExecution(locator string) error {
	return executionError("fake executor: configured to fail for locator " + locator)
}
