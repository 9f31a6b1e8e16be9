// Copyright 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import "regexp"

// Grammar is a minimal PEG-style rule set producing accept/reject plus an
// optional warning (spec.md §4.1 "Grammar"). It is compiled once per
// schema and reused for every validation, mirroring the "compile once,
// evaluate many" discipline the teacher applies to YANG pattern
// compilation (caching *regexp.Regexp on the schema.Entry rather than
// recompiling per call).
type Grammar struct {
	root    rule
	Warning string
}

// rule is one node of the compiled grammar; Match attempts to consume a
// prefix of s and returns the remaining suffix and whether it matched.
type rule interface {
	match(s string) (rest string, ok bool)
}

// Match reports whether the grammar accepts the entirety of s (a
// full-input match, per spec.md §4.1 validation rule 4).
func (g *Grammar) Match(s string) bool {
	if g == nil || g.root == nil {
		return true
	}
	rest, ok := g.root.match(s)
	return ok && rest == ""
}

// Lit matches a literal string.
func Lit(s string) *Grammar { return &Grammar{root: litRule(s)} }

// Class matches one run of characters accepted by pattern (a regexp
// fragment, anchored internally to the start of the remaining input).
func Class(pattern string) *Grammar {
	re := regexp.MustCompile("^(?:" + pattern + ")")
	return &Grammar{root: classRule{re}}
}

// Seq matches each grammar in order.
func Seq(parts ...*Grammar) *Grammar {
	rs := make([]rule, len(parts))
	for i, p := range parts {
		rs[i] = p.root
	}
	return &Grammar{root: seqRule(rs)}
}

// Alt matches the first grammar of alts that matches.
func Alt(alts ...*Grammar) *Grammar {
	rs := make([]rule, len(alts))
	for i, a := range alts {
		rs[i] = a.root
	}
	return &Grammar{root: altRule(rs)}
}

// Rep matches g between min and max times (max < 0 means unbounded),
// greedily, without backtracking across repetitions (sufficient for the
// full-input-match contract required here).
func Rep(g *Grammar, min, max int) *Grammar {
	return &Grammar{root: repRule{g.root, min, max}}
}

// WithWarning attaches a warning message surfaced when the grammar fails
// to match (spec.md §4.1: grammar "producing accept/reject + warning").
func (g *Grammar) WithWarning(msg string) *Grammar {
	g.Warning = msg
	return g
}

type litRule string

func (l litRule) match(s string) (string, bool) {
	if len(s) >= len(l) && s[:len(l)] == string(l) {
		return s[len(l):], true
	}
	return s, false
}

type classRule struct{ re *regexp.Regexp }

func (c classRule) match(s string) (string, bool) {
	loc := c.re.FindStringIndex(s)
	if loc == nil || loc[0] != 0 {
		return s, false
	}
	return s[loc[1]:], true
}

type seqRule []rule

func (seq seqRule) match(s string) (string, bool) {
	rest := s
	for _, r := range seq {
		var ok bool
		rest, ok = r.match(rest)
		if !ok {
			return s, false
		}
	}
	return rest, true
}

type altRule []rule

func (alt altRule) match(s string) (string, bool) {
	for _, r := range alt {
		if rest, ok := r.match(s); ok {
			return rest, true
		}
	}
	return s, false
}

type repRule struct {
	r        rule
	min, max int
}

func (rr repRule) match(s string) (string, bool) {
	rest := s
	count := 0
	for rr.max < 0 || count < rr.max {
		next, ok := rr.r.match(rest)
		if !ok || next == rest {
			break
		}
		rest = next
		count++
	}
	if count < rr.min {
		return s, false
	}
	return rest, true
}
