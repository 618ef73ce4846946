// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package selfheal generates alternative locators when a chosen locator
// returns zero live matches, per spec.md §4.9: relax exact-match
// conditions, strip position indices, fuzz the text match, pivot to a
// parent/child/sibling, and as a last resort resnapshot the page and
// re-run the full query. Each candidate is tested with the external
// Executor's Exists probe; the first hit wins.
package selfheal

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Strategy names the step that produced a healed locator, recorded on
// the result so the pipeline can log or promote it.
type Strategy string

const (
	StrategyRelaxExactMatch Strategy = "relax_exact_match"
	StrategyRemoveIndex     Strategy = "remove_index"
	StrategyFuzzyText       Strategy = "fuzzy_text"
	StrategyPivot           Strategy = "pivot"
	StrategyResnapshot      Strategy = "resnapshot"
)

// Prober is the subset of internal/executor.Executor self-heal needs: a
// cheap existence check against the live page. All candidates this
// package generates are XPath expressions, so callers typically pass
// executor.Executor.Exists bound with executor.StrategyXPath.
type Prober interface {
	Exists(ctx context.Context, locator string) (bool, error)
}

// ProberFunc adapts executor.Executor.Exists (which additionally takes
// a locator strategy) into a Prober fixed to a single strategy.
type ProberFunc func(ctx context.Context, locator string) (bool, error)

func (f ProberFunc) Exists(ctx context.Context, locator string) (bool, error) {
	return f(ctx, locator)
}

// Resnapshotter re-invokes the full query pipeline against a fresh
// snapshot with the original target phrase, per the step-5 contract of
// spec.md §4.9. It lives behind an interface here so this package never
// imports internal/pipeline — pipeline imports selfheal, not the other
// way around.
type Resnapshotter interface {
	Requery(ctx context.Context, targetPhrase string) (locator string, err error)
}

// Result is the outcome of a healing attempt.
type Result struct {
	Locator  string
	Strategy Strategy
	Attempts int
}

// Heal tries, in priority order, every candidate locator the four
// static transforms can derive from failedLocator, probing each with
// probe.Exists; it falls back to resnapshotting as a last resort if
// resnap is non-nil. It returns the first existing candidate, or an
// error if none existed.
func Heal(ctx context.Context, probe Prober, resnap Resnapshotter, failedLocator, targetPhrase string) (*Result, error) {
	attempts := 0

	staticSteps := []struct {
		strategy Strategy
		generate func(string) []string
	}{
		{StrategyRelaxExactMatch, RelaxExactMatch},
		{StrategyRemoveIndex, RemoveIndex},
		{StrategyFuzzyText, FuzzyText},
		{StrategyPivot, Pivot},
	}

	for _, step := range staticSteps {
		for _, candidate := range step.generate(failedLocator) {
			if candidate == "" || candidate == failedLocator {
				continue
			}
			attempts++
			ok, err := probe.Exists(ctx, candidate)
			if err != nil {
				continue
			}
			if ok {
				return &Result{Locator: candidate, Strategy: step.strategy, Attempts: attempts}, nil
			}
		}
	}

	if resnap != nil {
		attempts++
		locator, err := resnap.Requery(ctx, targetPhrase)
		if err == nil && locator != "" {
			return &Result{Locator: locator, Strategy: StrategyResnapshot, Attempts: attempts}, nil
		}
	}

	return nil, fmt.Errorf("selfheal: no candidate locator resolved for %q after %d attempts", failedLocator, attempts)
}

var (
	textExactRe      = regexp.MustCompile(`text\(\)\s*=\s*(['"])([^'"]+)['"]`)
	attrExactRe      = regexp.MustCompile(`@(\w+)\s*=\s*(['"])([^'"]+)['"]`)
	indexRe          = regexp.MustCompile(`\[\d+\]`)
	upperCaseLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerCaseLetters = "abcdefghijklmnopqrstuvwxyz"
)

// RelaxExactMatch turns text() and attribute exact-match conditions
// into contains() conditions, and wraps bare text() comparisons in
// normalize-space(), per spec.md §4.9 step 1.
func RelaxExactMatch(xpath string) []string {
	var out []string

	if textExactRe.MatchString(xpath) {
		out = append(out, textExactRe.ReplaceAllString(xpath, "contains(text(), '$2')"))
	}
	if attrExactRe.MatchString(xpath) {
		out = append(out, attrExactRe.ReplaceAllString(xpath, "contains(@$1, '$3')"))
	}
	if strings.Contains(xpath, "text()") && !strings.Contains(xpath, "normalize-space") {
		out = append(out, strings.ReplaceAll(xpath, "text()", "normalize-space(text())"))
	}
	return out
}

// RemoveIndex strips position predicates entirely, or swaps them for
// [1] and [last()], per spec.md §4.9 step 2.
func RemoveIndex(xpath string) []string {
	if !indexRe.MatchString(xpath) {
		return nil
	}
	return []string{
		indexRe.ReplaceAllString(xpath, ""),
		indexRe.ReplaceAllString(xpath, "[1]"),
		indexRe.ReplaceAllString(xpath, "[last()]"),
	}
}

// FuzzyText derives case-insensitive, prefix, and longest-keyword
// variants of a text() exact-match condition, per spec.md §4.9 step 3.
func FuzzyText(xpath string) []string {
	m := textExactRe.FindStringSubmatch(xpath)
	if m == nil {
		return nil
	}
	quote, text := m[1], m[2]
	original := fmt.Sprintf("text()=%s%s%s", quote, text, quote)
	altOriginal := fmt.Sprintf("text() = %s%s%s", quote, text, quote)

	var out []string

	caseInsensitive := fmt.Sprintf("translate(text(), '%s', '%s')=%s%s%s",
		upperCaseLetters, lowerCaseLetters, quote, strings.ToLower(text), quote)
	out = append(out, replaceEither(xpath, original, altOriginal, caseInsensitive))

	half := len(text) / 2
	if half == 0 {
		half = len(text)
	}
	startsWith := fmt.Sprintf("starts-with(text(), %s%s%s)", quote, text[:half], quote)
	out = append(out, replaceEither(xpath, original, altOriginal, startsWith))

	words := strings.Fields(text)
	if len(words) > 1 {
		longest := words[0]
		for _, w := range words[1:] {
			if len(w) > len(longest) {
				longest = w
			}
		}
		containsKeyword := fmt.Sprintf("contains(text(), %s%s%s)", quote, longest, quote)
		out = append(out, replaceEither(xpath, original, altOriginal, containsKeyword))
	}

	return out
}

func replaceEither(xpath, a, b, replacement string) string {
	if strings.Contains(xpath, a) {
		return strings.ReplaceAll(xpath, a, replacement)
	}
	return strings.ReplaceAll(xpath, b, replacement)
}

// Pivot walks to a parent, first child, or adjacent sibling of the
// failed locator's node, per spec.md §4.9 step 4.
func Pivot(xpath string) []string {
	var out []string
	if !strings.HasSuffix(xpath, "/..") {
		out = append(out, xpath+"/..")
	}
	out = append(out, xpath+"/*[1]")
	out = append(out, xpath+"/following-sibling::*[1]")
	out = append(out, xpath+"/preceding-sibling::*[1]")
	return out
}
