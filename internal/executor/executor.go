// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package executor defines the Action executor external collaborator of
// spec.md §6: the thing that actually drives a live page given a locator.
// This module never talks to a browser directly — it defines the
// contract plus an in-memory Fake for tests and the CLI's offline mode.
package executor

import "context"

// Strategy names the locator dialect a call is expressed in, mirroring
// Result.strategy in spec.md §6.
type Strategy string

const (
	StrategySemantic  Strategy = "semantic"
	StrategyCSS       Strategy = "css"
	StrategyXPath     Strategy = "xpath"
	StrategyTextFast  Strategy = "text-fast"
	StrategyPromotion Strategy = "promotion"
	StrategyCached    Strategy = "cached"
)

// Outcome is the {ok, err?} shape every mutating call returns.
type Outcome struct {
	OK  bool
	Err error
}

// Executor is the consumed external collaborator of spec.md §6. Every
// mutating method must be idempotent on success, per the spec: calling
// Click twice on an already-clicked toggle must not double-fire it from
// the caller's point of view (the concrete driver, not this module, is
// responsible for that property).
type Executor interface {
	Exists(ctx context.Context, locator string, strategy Strategy) (bool, error)
	Unique(ctx context.Context, locator string, strategy Strategy) (bool, error)

	Click(ctx context.Context, locator string) Outcome
	Type(ctx context.Context, locator, value string) Outcome
	Press(ctx context.Context, locator, key string) Outcome
	Hover(ctx context.Context, locator string) Outcome
	Check(ctx context.Context, locator string) Outcome
	Uncheck(ctx context.Context, locator string) Outcome
	Select(ctx context.Context, locator, value string) Outcome
}
