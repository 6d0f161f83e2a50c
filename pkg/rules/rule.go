// Package rules compiles ordered match rules for one category and stage.
//
// A rule is either a case-insensitive literal substring or a case-insensitive
// regular expression searched anywhere in the line. A Set evaluates its rules
// in declaration order and reports the first one that matches.
package rules

import (
	"bytes"
	"fmt"
	"regexp"
)

// Kind selects how a rule's pattern is interpreted.
type Kind string

const (
	KindSubstring Kind = "substring"
	KindRegex     Kind = "regex"
)

// Stage identifies which pass of the pipeline a rule set belongs to.
type Stage string

const (
	// StageRoute is the coarse keyword pass that sorts lines into categories.
	StageRoute Stage = "route"
	// StageFilter is the precise pattern pass that isolates issues.
	StageFilter Stage = "filter"
)

// Rule is one uncompiled match predicate.
type Rule struct {
	Kind    Kind   `yaml:"kind" json:"kind"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Substring returns a case-insensitive literal substring rule.
func Substring(s string) Rule { return Rule{Kind: KindSubstring, Pattern: s} }

// Regex returns a case-insensitive regular expression rule. Unlike Substring,
// case folding follows Go's (?i), which is Unicode simple folding: "k" also
// matches the Kelvin sign U+212A. Both kinds agree on ASCII input.
func Regex(s string) Rule { return Rule{Kind: KindRegex, Pattern: s} }

func (r Rule) String() string {
	return string(r.Kind) + ":" + r.Pattern
}

type matcher interface {
	match(l Line) bool
}

// substringMatcher holds the ASCII-folded needle.
type substringMatcher []byte

func (m substringMatcher) match(l Line) bool {
	return bytes.Contains(l.Folded, m)
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) match(l Line) bool {
	return m.re.Match(l.Raw)
}

// Set is the compiled, immutable rule list of one category and stage.
// It is safe for concurrent use.
type Set struct {
	category string
	stage    Stage
	rules    []Rule
	matchers []matcher
	fold     bool
}

// Compile compiles rs in order. Any invalid rule fails the whole set with a
// *CompileError; there is no partially compiled Set.
func Compile(category string, stage Stage, rs []Rule) (*Set, error) {
	if len(rs) == 0 {
		return nil, &CompileError{Category: category, Stage: stage, Index: -1, Err: ErrNoRules}
	}

	s := &Set{
		category: category,
		stage:    stage,
		rules:    append([]Rule(nil), rs...),
		matchers: make([]matcher, 0, len(rs)),
	}
	for i, r := range rs {
		m, err := compileRule(r)
		if err != nil {
			return nil, &CompileError{Category: category, Stage: stage, Index: i, Pattern: r.Pattern, Err: err}
		}
		if r.Kind == KindSubstring {
			s.fold = true
		}
		s.matchers = append(s.matchers, m)
	}
	return s, nil
}

// MustCompile is like Compile but panics on error. Intended for the built-in tables.
func MustCompile(category string, stage Stage, rs []Rule) *Set {
	s, err := Compile(category, stage, rs)
	if err != nil {
		panic(err)
	}
	return s
}

func compileRule(r Rule) (matcher, error) {
	if r.Pattern == "" {
		return nil, ErrEmptyPattern
	}
	switch r.Kind {
	case KindSubstring:
		return substringMatcher(Fold(nil, []byte(r.Pattern))), nil
	case KindRegex:
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, err
		}
		return regexMatcher{re: re}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, r.Kind)
	}
}

// Match evaluates the rules in declaration order and returns the index of the
// first rule that matches l. Evaluation stops at that rule.
func (s *Set) Match(l Line) (int, bool) {
	for i, m := range s.matchers {
		if m.match(l) {
			return i, true
		}
	}
	return -1, false
}

// Category returns the name of the category the set was compiled for.
func (s *Set) Category() string { return s.category }

// Stage returns the pipeline stage the set was compiled for.
func (s *Set) Stage() Stage { return s.stage }

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Rule returns the i-th rule as declared.
func (s *Set) Rule(i int) Rule { return s.rules[i] }

// NeedsFold reports whether any rule reads Line.Folded.
func (s *Set) NeedsFold() bool { return s.fold }
