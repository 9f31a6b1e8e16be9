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

// Option configures an Element at construction time. Catalogs are built
// programmatically (spec.md §6: "exact on-disk form is a backend
// concern") by composing these the way ygot's generator composes struct
// tags, except here the composition happens at schema-construction time
// rather than codegen time.
type Option func(*Element)

// Leaf constructs a KindLeaf element of the given value type.
func Leaf(name string, vt ValueType, opts ...Option) *Element {
	e := &Element{Name: name, Kind: KindLeaf, ValueType: vt}
	apply(e, opts)
	return e
}

// Hash constructs a KindHash collection whose entries follow cargo's shape.
func Hash(name string, cargo *Element, opts ...Option) *Element {
	e := &Element{Name: name, Kind: KindHash, Cargo: cargo, IndexType: IndexString}
	apply(e, opts)
	return e
}

// List constructs a KindList collection whose entries follow cargo's shape.
func List(name string, cargo *Element, opts ...Option) *Element {
	e := &Element{Name: name, Kind: KindList, Cargo: cargo, IndexType: IndexInteger}
	apply(e, opts)
	return e
}

// CheckList constructs a KindCheckList collection: a List whose cargo is
// restricted to a fixed choice set.
func CheckList(name string, choice []string, opts ...Option) *Element {
	cargo := Leaf("", TypeEnum, WithChoice(choice))
	e := &Element{Name: name, Kind: KindCheckList, Cargo: cargo, IndexType: IndexInteger}
	apply(e, opts)
	return e
}

// Node constructs a KindNode element with the given declared children.
func Node(name string, children []*Element, opts ...Option) *Element {
	e := &Element{Name: name, Kind: KindNode, Elements: children}
	apply(e, opts)
	return e
}

// WarpedNode constructs a KindWarpedNode element driven by the sibling
// leaf named master.
func WarpedNode(name, master string, rules []WarpRule, opts ...Option) *Element {
	e := &Element{Name: name, Kind: KindWarpedNode, WarpMaster: master, WarpRules: rules}
	apply(e, opts)
	return e
}

func apply(e *Element, opts []Option) {
	for _, o := range opts {
		o(e)
	}
}

// --- common options ---

func WithLevel(l Level) Option   { return func(e *Element) { e.Level = l } }
func WithStatus(s Status) Option { return func(e *Element) { e.Status = s } }
func WithDescription(d string) Option {
	return func(e *Element) { e.Description = d }
}
func WithGist(g string) Option { return func(e *Element) { e.Gist = g } }

// --- leaf options ---

func WithMin(v float64) Option { return func(e *Element) { e.Min = &v } }
func WithMax(v float64) Option { return func(e *Element) { e.Max = &v } }
func WithChoice(c []string) Option {
	return func(e *Element) { e.Choice = append([]string{}, c...) }
}
func WithWriteAs(falseStr, trueStr string) Option {
	return func(e *Element) { e.WriteAs = [2]string{falseStr, trueStr} }
}
func WithDefault(v string) Option { return func(e *Element) { e.Default = &v } }
func WithUpstreamDefault(v string) Option {
	return func(e *Element) { e.UpstreamDefault = &v }
}
func Mandatory() Option { return func(e *Element) { e.Mandatory = true } }
func WithMatch(pattern string) Option {
	re := regexp.MustCompile(pattern)
	return func(e *Element) { e.Match = re }
}
func WithGrammar(g *Grammar) Option { return func(e *Element) { e.Grammar = g } }
func WithWarnIfMatch(rules ...RegexRule) Option {
	return func(e *Element) { e.WarnIfMatch = append(e.WarnIfMatch, rules...) }
}
func WithWarnUnlessMatch(rules ...RegexRule) Option {
	return func(e *Element) { e.WarnUnlessMatch = append(e.WarnUnlessMatch, rules...) }
}
func WithAssert(rules ...AssertRule) Option {
	return func(e *Element) { e.Assert = append(e.Assert, rules...) }
}
func WithWarnIf(rules ...AssertRule) Option {
	return func(e *Element) { e.WarnIf = append(e.WarnIf, rules...) }
}
func WithWarnUnless(rules ...AssertRule) Option {
	return func(e *Element) { e.WarnUnless = append(e.WarnUnless, rules...) }
}
func WithWarn(msg string) Option { return func(e *Element) { e.Warn = msg } }
func WithConvert(c Convert) Option {
	return func(e *Element) { e.ConvertCase = c }
}
func WithReplace(m map[string]string) Option {
	return func(e *Element) { e.Replace = m }
}
func WithReplaceFollow(path string) Option {
	return func(e *Element) { e.ReplaceFollow = path }
}
func WithCompute(c *ComputeSpec) Option { return func(e *Element) { e.Compute = c } }
func WithMigrateFrom(c *ComputeSpec) Option {
	return func(e *Element) { e.MigrateFrom = c }
}
func WithHelp(entries ...HelpEntry) Option {
	return func(e *Element) { e.Help = append(e.Help, entries...) }
}
func WithReferTo(path string) Option { return func(e *Element) { e.ReferTo = path } }
func WithComputedReferTo(c *ComputeSpec) Option {
	return func(e *Element) { e.ComputedReferTo = c }
}

// --- collection options ---

func WithMinIndex(v int) Option { return func(e *Element) { e.MinIndex = &v } }
func WithMaxIndex(v int) Option { return func(e *Element) { e.MaxIndex = &v } }
func WithMaxNb(v int) Option    { return func(e *Element) { e.MaxNb = &v } }
func WithDefaultKeys(keys ...string) Option {
	return func(e *Element) { e.DefaultKeys = append(e.DefaultKeys, keys...) }
}
func WithDefaultWithInit(m map[string]string) Option {
	return func(e *Element) { e.DefaultWithInit = m }
}
func WithFollowKeysFrom(path string) Option {
	return func(e *Element) { e.FollowKeysFrom = path }
}
func WithAllowKeys(keys ...string) Option {
	return func(e *Element) { e.AllowKeys = append(e.AllowKeys, keys...) }
}
func WithAllowKeysFrom(path string) Option {
	return func(e *Element) { e.AllowKeysFrom = path }
}
func WithAllowKeysMatching(pattern string) Option {
	re := regexp.MustCompile(pattern)
	return func(e *Element) { e.AllowKeysMatching = re }
}
func AutoCreateKeys() Option { return func(e *Element) { e.AutoCreateKeys = true } }
func AutoCreateIDs() Option  { return func(e *Element) { e.AutoCreateIDs = true } }
func WithWarnIfKeyMatch(rules ...RegexRule) Option {
	return func(e *Element) { e.WarnIfKeyMatch = append(e.WarnIfKeyMatch, rules...) }
}
func WithWarnUnlessKeyMatch(rules ...RegexRule) Option {
	return func(e *Element) { e.WarnUnlessKeyMatch = append(e.WarnUnlessKeyMatch, rules...) }
}
func WithDuplicates(d Duplicates) Option { return func(e *Element) { e.Duplicates = d } }
func WithMigrateKeysFrom(c *ComputeSpec) Option {
	return func(e *Element) { e.MigrateKeysFrom = c }
}
func WithMigrateValuesFrom(c *ComputeSpec) Option {
	return func(e *Element) { e.MigrateValuesFrom = c }
}
func Ordered() Option { return func(e *Element) { e.Ordered = true } }
func WithConvertKeys(c Convert) Option {
	return func(e *Element) { e.ConvertKeys = c }
}
func WriteEmptyValue() Option { return func(e *Element) { e.WriteEmptyValue = true } }

// --- node options ---

func WithAccept(rules ...AcceptRule) Option {
	return func(e *Element) { e.Accept = append(e.Accept, rules...) }
}
func WithRWConfig(backend, file string) Option {
	return func(e *Element) { e.RWConfig = &RWConfig{Backend: backend, File: file} }
}

// Class builds a ConfigClass from a name and a set of top-level elements.
func Class(name string, elements []*Element, opts ...ClassOption) *ConfigClass {
	c := &ConfigClass{Name: name, Elements: elements}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ClassOption configures a ConfigClass at construction time.
type ClassOption func(*ConfigClass)

func WithClassDescription(d string) ClassOption {
	return func(c *ConfigClass) { c.ClassDescription = d }
}
func WithClassAccept(rules ...AcceptRule) ClassOption {
	return func(c *ConfigClass) { c.Accept = append(c.Accept, rules...) }
}
func WithClassRWConfig(backend, file string) ClassOption {
	return func(c *ConfigClass) { c.RWConfig = &RWConfig{Backend: backend, File: file} }
}
