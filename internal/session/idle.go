// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"time"
)

// IdleWaiter is the wait_for_idle external collaborator of spec.md §4.5:
// it consumes a browser (or any external driver) to wait for the page to
// settle before a snapshot is taken. The core never depends on it for
// correctness — a failing or absent waiter just means the snapshot runs
// immediately instead of after a quiet period.
type IdleWaiter interface {
	WaitForIdle(ctx context.Context, deadline time.Time) error
}

// NoopIdleWaiter returns immediately without waiting; it is the default
// when no collaborator is configured.
type NoopIdleWaiter struct{}

func (NoopIdleWaiter) WaitForIdle(ctx context.Context, deadline time.Time) error { return nil }

// WaitForIdle calls waiter best-effort: any error (including a blown
// deadline) is discarded, since spec.md §4.5 treats this purely as a
// hint. A nil waiter is treated the same as NoopIdleWaiter.
func WaitForIdle(ctx context.Context, waiter IdleWaiter, deadline time.Time) {
	if waiter == nil {
		return
	}
	_ = waiter.WaitForIdle(ctx, deadline)
}
