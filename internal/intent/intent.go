// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package intent defines the Intent data type and the intent-parse
// external collaborator of spec.md §4.7 step 1 ("Intent parse
// (external)"). The real NLU parser lives outside this module; what
// belongs here is the shape it produces plus a rule-based Parser good
// enough for the CLI and tests.
package intent

import (
	"regexp"
	"strings"
)

// Action enumerates the supported action verbs, per spec.md §3.
type Action string

const (
	ActionClick        Action = "click"
	ActionType         Action = "type"
	ActionPress        Action = "press"
	ActionHover        Action = "hover"
	ActionCheck        Action = "check"
	ActionUncheck      Action = "uncheck"
	ActionSelect       Action = "select"
	ActionNavigate     Action = "navigate"
	ActionWait         Action = "wait"
	ActionSubmit       Action = "submit"
	ActionClear        Action = "clear"
	ActionValidateURL  Action = "validate_url"
	ActionValidateElem Action = "validate_element"
)

// Intent is the parsed shape of a query phrase, per spec.md §3.
type Intent struct {
	Action       Action
	TargetPhrase string
	Value        string
	Constraints  map[string]string
}

// Parser is the external intent-parse collaborator: turn a raw query
// string into an Intent. A real implementation is typically backed by an
// LLM or a trained classifier; this package only defines the contract and
// a deterministic fallback.
type Parser interface {
	Parse(text string) (Intent, error)
}

// verbPattern matches a leading action verb at the start of the query
// phrase and captures the rest; Parse splits a quoted value out of that
// rest for "type"/"enter" and "select"/"choose" only.
var verbPattern = regexp.MustCompile(`(?i)^(click|tap|press|type|enter|hover|check|uncheck|select|choose|navigate|go to|wait|submit|clear|validate)\b\s*(.*)$`)

// RuleBasedParser is a dependency-free Parser used by the CLI's default
// mode and by tests: it recognizes a small set of leading verbs and
// treats the remainder of the phrase as the target. Anything it cannot
// classify defaults to ActionClick, since "find and click this" is the
// dominant use case for a locator query.
type RuleBasedParser struct{}

// NewRuleBasedParser returns the default Parser.
func NewRuleBasedParser() Parser { return RuleBasedParser{} }

func (RuleBasedParser) Parse(text string) (Intent, error) {
	trimmed := strings.TrimSpace(text)
	m := verbPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Intent{Action: ActionClick, TargetPhrase: trimmed}, nil
	}

	verb := strings.ToLower(m[1])
	rest := strings.TrimSpace(m[2])

	switch verb {
	case "click", "tap":
		return Intent{Action: ActionClick, TargetPhrase: rest}, nil
	case "press":
		return Intent{Action: ActionPress, TargetPhrase: rest}, nil
	case "type", "enter":
		target, value := splitTypeValue(rest)
		return Intent{Action: ActionType, TargetPhrase: target, Value: value}, nil
	case "hover":
		return Intent{Action: ActionHover, TargetPhrase: rest}, nil
	case "check":
		return Intent{Action: ActionCheck, TargetPhrase: rest}, nil
	case "uncheck":
		return Intent{Action: ActionUncheck, TargetPhrase: rest}, nil
	case "select", "choose":
		target, value := splitTypeValue(rest)
		return Intent{Action: ActionSelect, TargetPhrase: target, Value: value}, nil
	case "navigate", "go to":
		return Intent{Action: ActionNavigate, TargetPhrase: rest, Value: rest}, nil
	case "wait":
		return Intent{Action: ActionWait, TargetPhrase: rest}, nil
	case "submit":
		return Intent{Action: ActionSubmit, TargetPhrase: rest}, nil
	case "clear":
		return Intent{Action: ActionClear, TargetPhrase: rest}, nil
	case "validate":
		return Intent{Action: ActionValidateElem, TargetPhrase: rest}, nil
	default:
		return Intent{Action: ActionClick, TargetPhrase: rest}, nil
	}
}

// splitTypeValue splits a phrase like `"the search box" with "golang"` or
// `the search box "golang"` into (target, value); a phrase with no
// quoted segment is treated entirely as the target with an empty value.
func splitTypeValue(phrase string) (target, value string) {
	idx := strings.IndexByte(phrase, '"')
	if idx < 0 {
		return phrase, ""
	}
	end := strings.IndexByte(phrase[idx+1:], '"')
	if end < 0 {
		return phrase, ""
	}
	value = phrase[idx+1 : idx+1+end]
	target = strings.TrimSpace(strings.Replace(phrase[:idx], "with", "", 1))
	return strings.TrimSpace(target), value
}
