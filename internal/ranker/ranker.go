// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ranker implements the fusion ranker of spec.md §4.6: cosine
// base score, a fixed additive/multiplicative bias table, an optional
// expr-lang custom bias expression, a deterministic tie-break sort, a
// near-duplicate dedup pass, and a logistic confidence score.
package ranker

import (
	"math"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/traylinx/her/internal/descriptor"
	"github.com/traylinx/her/internal/embedding"
)

// Candidate is one row the ranker scores: its embedding (for cosine and
// dedup) and its descriptor (for biases and tie-breaks).
type Candidate struct {
	Vector     []float32
	Descriptor *descriptor.Descriptor
	FrameID    string
	// PreferredFrame marks whether this candidate's frame is the one the
	// query named or preferred, for the frame-preference bias.
	PreferredFrame bool
}

// Scored is one ranked candidate with its final score and tie-break
// components resolved.
type Scored struct {
	Candidate Candidate
	Score     float64
}

// Intent is the minimal slice of intent.Intent the ranker biases on; kept
// as its own small struct (rather than importing internal/intent) so the
// ranker has no dependency on how intent is parsed.
type Intent struct {
	Action         string
	TargetPhrase   string
	MentionsFrame  bool
	MentionsShadow bool
	Categories     []string // category tokens found in the query text itself, e.g. ["phone"]
	// AllCategories is the full known category vocabulary (e.g. "phone",
	// "laptop", "tablet"), used alongside Categories so the wrong-category
	// penalty can tell a foreign category mention apart from the query's
	// own: a candidate mentioning a member of AllCategories that is not
	// also in Categories is penalized.
	AllCategories []string
}

// Options configures a Ranker beyond the fixed spec.md §4.6 table.
type Options struct {
	// ActionRoleBonus overrides the per-action role-boost table; nil uses
	// the built-in default (type/combobox/textbox, click/button/link).
	ActionRoleBonus map[string][]string
	// CustomBiasExpr is an optional expr-lang expression evaluated once
	// per candidate with {Tag, Role, Visible, Clickable, Query} in scope;
	// its float64 result is added directly to the fixed-table score
	// before final clamping. Empty disables it entirely (SPEC_FULL.md
	// §4.6 domain stack) — the fixed table alone governs scoring.
	CustomBiasExpr string
}

// Ranker scores and orders candidates for one query.
type Ranker struct {
	opts    Options
	program *vm.Program
}

// New compiles opts.CustomBiasExpr (if set) and returns a Ranker.
func New(opts Options) (*Ranker, error) {
	r := &Ranker{opts: opts}
	if opts.CustomBiasExpr != "" {
		program, err := expr.Compile(opts.CustomBiasExpr, expr.Env(biasExprEnv{}))
		if err != nil {
			return nil, err
		}
		r.program = program
	}
	return r, nil
}

// biasExprEnv is the expr-lang evaluation environment for a custom bias
// expression: {Tag, Role, Visible, Clickable, Query}.
type biasExprEnv struct {
	Tag       string
	Role      string
	Visible   bool
	Clickable bool
	Query     string
}

var defaultActionRoleBonus = map[string][]string{
	"type":  {"textbox", "combobox"},
	"click": {"button", "link"},
}

const (
	tagBiasButton = 0.02
	tagBiasA      = 0.015
	tagBiasInput  = 0.01

	roleBonusInteractive = 0.02
	hrefMatchBonus        = 0.02
	actionBonus           = 0.02
	exactTokenBonus       = 0.15
	importantAttrBonus    = 0.20
	framePreferenceBonus  = 0.05
	framePreferredMatch   = 0.10
	shadowDOMBonus        = 0.10

	invisiblePenalty     = -0.15
	disabledPenalty      = -0.15
	wrongCategoryFactor  = 0.5

	dedupCosineThreshold = 0.995
)

var importantAttrs = []string{"id", "data-testid", "aria-label", "name", "title", "placeholder"}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "menuitem": true, "tab": true, "checkbox": true, "radio": true,
}

// Rank scores every candidate against query embedding q and intent,
// applies the deterministic tie-break, drops near-duplicates, and
// returns the ordered result plus a confidence for the top entry (and a
// decaying confidence for the rest, per spec.md §4.6).
func (r *Ranker) Rank(q []float32, queryText string, candidates []Candidate, it Intent) ([]Scored, []float64) {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		score := r.score(q, queryText, c, it)
		scored = append(scored, Scored{Candidate: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return tieBreakLess(scored[i], scored[j])
	})

	deduped := dedupNearDuplicates(scored)

	confidences := make([]float64, len(deduped))
	for i := range deduped {
		confidences[i] = confidenceAt(deduped, i)
	}
	return deduped, confidences
}

func (r *Ranker) score(q []float32, queryText string, c Candidate, it Intent) float64 {
	base := embedding.CosineSimilarity(q, c.Vector)
	if base < 0 {
		base = 0
	}
	if base > 1 {
		base = 1
	}

	d := c.Descriptor
	tag := strings.ToLower(d.Tag)
	role := strings.ToLower(d.Role)
	score := base

	switch tag {
	case "button":
		score += tagBiasButton
	case "a":
		score += tagBiasA
	case "input":
		score += tagBiasInput
	}

	if interactiveRoles[role] {
		score += roleBonusInteractive
	}

	if hrefMatchesQueryToken(d, queryText) {
		score += hrefMatchBonus
	}

	score += r.actionBonus(role, it)

	score += labelTokenBonus(d, queryText)

	if it.MentionsFrame {
		score += framePreferenceBonus
		if c.PreferredFrame {
			score += framePreferredMatch
		}
	}

	if it.MentionsShadow && d.InShadowDOM {
		score += shadowDOMBonus
	}

	if !d.Visible {
		score += invisiblePenalty
	}
	if d.Disabled {
		score += disabledPenalty
	}

	if wrongCategory(d, it.Categories, it.AllCategories) {
		score *= wrongCategoryFactor
	}

	if r.program != nil {
		if custom, err := expr.Run(r.program, biasExprEnv{
			Tag: tag, Role: role, Visible: d.Visible, Clickable: d.Clickable, Query: queryText,
		}); err == nil {
			if f, ok := custom.(float64); ok {
				score += f
			}
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func (r *Ranker) actionBonus(role string, it Intent) float64 {
	table := r.opts.ActionRoleBonus
	if table == nil {
		table = defaultActionRoleBonus
	}
	roles, ok := table[it.Action]
	if !ok {
		return 0
	}
	for _, want := range roles {
		if role == want {
			return actionBonus
		}
	}
	return 0
}

func hrefMatchesQueryToken(d *descriptor.Descriptor, queryText string) bool {
	href, ok := d.Attributes["href"]
	if !ok {
		return false
	}
	href = strings.ToLower(href)
	for _, tok := range queryTokens(queryText) {
		if len(tok) >= 3 && strings.Contains(href, tok) {
			return true
		}
	}
	return false
}

func labelTokenBonus(d *descriptor.Descriptor, queryText string) float64 {
	text := strings.ToLower(strings.TrimSpace(d.Text))
	for _, tok := range queryTokens(queryText) {
		if text != "" && text == tok {
			return exactTokenBonus
		}
	}
	for _, attr := range importantAttrs {
		v, ok := d.Attributes[attr]
		if !ok {
			continue
		}
		v = strings.ToLower(v)
		for _, tok := range queryTokens(queryText) {
			if len(tok) > 0 && strings.Contains(v, tok) {
				return importantAttrBonus
			}
		}
	}
	return 0
}

// wrongCategory implements spec.md §4.6's penalty: the query names a
// category but this candidate's text/attrs name a *different* one.
// queryCategories is what the query itself matched (possibly empty, in
// which case there is nothing to be "wrong" relative to); allCategories
// is the full known vocabulary, so a candidate mentioning a vocabulary
// member the query didn't match is the foreign-category signal.
func wrongCategory(d *descriptor.Descriptor, queryCategories, allCategories []string) bool {
	if len(queryCategories) == 0 || len(allCategories) == 0 {
		return false
	}
	haystack := strings.ToLower(d.Text)
	for _, v := range d.Attributes {
		haystack += " " + strings.ToLower(v)
	}
	matched := make(map[string]bool, len(queryCategories))
	for _, cat := range queryCategories {
		matched[strings.ToLower(cat)] = true
	}
	for _, cat := range allCategories {
		lc := strings.ToLower(cat)
		if matched[lc] {
			continue
		}
		if strings.Contains(haystack, lc) {
			return true
		}
	}
	return false
}

func queryTokens(queryText string) []string {
	return strings.Fields(strings.ToLower(queryText))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// tieBreakLess implements spec.md §4.6's deterministic tie-break key:
// (-final_score, -visible, xpath_depth, -bbox_area, interactive_rank).
func tieBreakLess(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	av, bv := boolRank(a.Candidate.Descriptor.Visible), boolRank(b.Candidate.Descriptor.Visible)
	if av != bv {
		return av < bv // -visible: visible (rank 0) sorts before not (rank 1)
	}
	ad, bd := xpathDepth(a.Candidate.Descriptor), xpathDepth(b.Candidate.Descriptor)
	if ad != bd {
		return ad < bd
	}
	aa, ba := a.Candidate.Descriptor.BBox.Area(), b.Candidate.Descriptor.BBox.Area()
	if aa != ba {
		return aa > ba // -bbox_area: larger sorts first
	}
	ar, br := a.Candidate.Descriptor.InteractiveRank(), b.Candidate.Descriptor.InteractiveRank()
	return ar < br
}

func boolRank(visible bool) int {
	if visible {
		return 0
	}
	return 1
}

func xpathDepth(d *descriptor.Descriptor) int {
	path := d.ComputedXPath
	if path == "" {
		path = d.XPath
	}
	return strings.Count(path, "/")
}

// dedupNearDuplicates drops a candidate whose embedding's cosine with any
// earlier-kept candidate exceeds the threshold, preserving the incoming
// (already tie-break-sorted) order so the earlier-sorting duplicate is
// always the one kept.
func dedupNearDuplicates(scored []Scored) []Scored {
	kept := make([]Scored, 0, len(scored))
	for _, s := range scored {
		dup := false
		for _, k := range kept {
			if embedding.CosineSimilarity(s.Candidate.Vector, k.Candidate.Vector) > dedupCosineThreshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, s)
		}
	}
	return kept
}

// confidenceAt returns the logistic confidence for rank i: sigma((top -
// 0.7) * 6) for the top rank, decaying by 0.05 per subsequent rank.
func confidenceAt(scored []Scored, i int) float64 {
	if len(scored) == 0 {
		return 0
	}
	top := scored[0].Score
	base := sigmoid((top - 0.7) * 6)
	conf := base - 0.05*float64(i)
	return clamp01(conf)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
