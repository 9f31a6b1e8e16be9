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

// Package schema describes the ConfigClass catalog: the immutable,
// runtime schema for a configuration tree. It plays the role that
// yang.Entry plays in the teacher library, but describes the confmodel
// tree kinds (leaf, hash, list, node, warped_node) rather than YANG nodes,
// and carries no on-disk syntax of its own — catalog ingestion formats are
// a backend concern (spec.md §6).
package schema

import (
	"fmt"
	"regexp"
)

// Kind identifies what an Element holds.
type Kind int

const (
	// KindLeaf is a scalar Value.
	KindLeaf Kind = iota
	// KindHash is a string-keyed IdCollection.
	KindHash
	// KindList is an integer-indexed, ordered IdCollection.
	KindList
	// KindCheckList is a List whose cargo is restricted to a fixed choice
	// set (a list of enum-like tokens), used for the common "pick any of
	// these flags" pattern.
	KindCheckList
	// KindNode is a record of named elements.
	KindNode
	// KindWarpedNode is a Node whose concrete element set is chosen by
	// the value of a warp master element.
	KindWarpedNode
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindHash:
		return "hash"
	case KindList:
		return "list"
	case KindCheckList:
		return "check_list"
	case KindNode:
		return "node"
	case KindWarpedNode:
		return "warped_node"
	default:
		return "unknown"
	}
}

// ValueType is the scalar type of a leaf.
type ValueType int

const (
	// TypeUnset means the leaf's type is not yet fixed — only legal on a
	// warped leaf, whose type is determined by the warp master.
	TypeUnset ValueType = iota
	TypeBoolean
	TypeEnum
	TypeInteger
	TypeNumber
	TypeUniline
	TypeString
	TypeReference
	TypeFile
	TypeDir
)

func (t ValueType) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeEnum:
		return "enum"
	case TypeInteger:
		return "integer"
	case TypeNumber:
		return "number"
	case TypeUniline:
		return "uniline"
	case TypeString:
		return "string"
	case TypeReference:
		return "reference"
	case TypeFile:
		return "file"
	case TypeDir:
		return "dir"
	default:
		return "unset"
	}
}

// Level is the visibility tier of an element (spec.md §3 Node).
type Level int

const (
	LevelNormal Level = iota
	LevelImportant
	LevelHidden
)

// Status is the lifecycle tier of an element (spec.md §3 Node).
type Status int

const (
	StatusStandard Status = iota
	StatusDeprecated
	StatusObsolete
)

// Convert is a case-normalization applied on store.
type Convert int

const (
	ConvertNone Convert = iota
	ConvertLC
	ConvertUC
)

// Duplicates is the duplicate-entry policy of an IdCollection (spec.md §4.2).
type Duplicates int

const (
	DuplicatesAllow Duplicates = iota
	DuplicatesForbid
	DuplicatesSuppress
	DuplicatesWarn
)

// IndexType is the index kind of a Hash collection; List collections are
// always integer-indexed.
type IndexType int

const (
	IndexString IndexType = iota
	IndexInteger
)

// FixFunc repairs a pending value in place, returning the replacement.
type FixFunc func(current string) string

// AssertFunc evaluates a pending value, returning true if it is acceptable.
type AssertFunc func(current string) bool

// RegexRule is one entry of a warn_if_match/warn_unless_match map: a
// pattern, the message to emit when it fires, and an optional fix.
type RegexRule struct {
	Label   string
	Pattern *regexp.Regexp
	Msg     string
	Fix     FixFunc
}

// AssertRule is one entry of an assert/warn_if/warn_unless map: a label, a
// predicate over the pending value, and an optional fix run when the
// predicate fails (assert/warn_if) or succeeds (warn_unless — see
// validate.go for the exact polarity).
type AssertRule struct {
	Label string
	Code  string
	Msg   string
	Check AssertFunc
	Fix   FixFunc
}

// ComputeSpec describes a computed or migrated value (spec.md §4.1 Compute,
// Migrate): a formula evaluated over named variables, each variable being a
// path into the same tree, resolved by the caller (model package) since
// schema has no access to a live tree.
type ComputeSpec struct {
	// Formula receives the resolved string value of each Variables entry,
	// in order, and returns the computed string value.
	Formula func(vars []string) (string, error)
	// Variables are tree paths (Loader navigation syntax, e.g.
	// "../other_elt" or "/root/elt") whose resolved values are passed to
	// Formula in order.
	Variables []string
	// AllowOverride: if false, any store attempt is rejected/no-op
	// (Compute only; ignored for Migrate, which is one-shot by
	// definition).
	AllowOverride bool
}

// HelpEntry is one regex->text mapping of a leaf's help table. Entries are
// tried longest-pattern-first; "." and ".*" act as fallbacks.
type HelpEntry struct {
	Pattern *regexp.Regexp
	Text    string
}

// AcceptRule is one entry of a Node's Accept list (spec.md §4.3): any
// element name matching Pattern that is not otherwise declared is spliced
// into the live model using Template, inserted after the element named
// After (if set, otherwise appended).
type AcceptRule struct {
	Pattern  *regexp.Regexp
	Template *Element
	After    string
}

// WarpRule is one row of a Warper's rule table (spec.md §4.5): when Cond
// evaluates true over the current master values (keyed by the symbolic
// variable names registered with the Warper), Overrides is applied to the
// warped element's properties. Template is used only by a warped_node
// element (spec.md §2: "Node whose concrete class is chosen dynamically"):
// when set, the matching rule splices Template's Elements into the live
// WarpedNode instead of (or in addition to) applying Overrides.
type WarpRule struct {
	Cond      func(masters map[string]string) bool
	Overrides PropertyOverrides
	Template  *Element
}

// PropertyOverrides is the subset of Element properties a Warper or Accept
// rule may override on a live element without altering its declared
// identity.
type PropertyOverrides struct {
	ValueType ValueType
	Choice    []string
	Min, Max  *float64
	Mandatory *bool
	Default   *string
}

// Element is one named member of a ConfigClass: a leaf, hash, list,
// check_list, node or warped_node, plus every recognized schema parameter
// for that kind (spec.md §4.1, §4.2).
type Element struct {
	Name        string
	Kind        Kind
	Level       Level
	Status      Status
	Description string
	Gist        string

	// --- leaf parameters (spec.md §4.1) ---
	ValueType        ValueType
	Min, Max         *float64
	Choice           []string
	WriteAs          [2]string // [falseString, trueString]; WriteAs[0]=="" means unset
	Default          *string
	UpstreamDefault  *string
	Mandatory        bool
	Match            *regexp.Regexp
	Grammar          *Grammar
	WarnIfMatch      []RegexRule
	WarnUnlessMatch  []RegexRule
	Assert           []AssertRule
	WarnIf           []AssertRule
	WarnUnless       []AssertRule
	Warn             string
	ConvertCase      Convert
	Replace          map[string]string
	ReplaceFollow    string // path to an external hash used as a replacement map
	Compute          *ComputeSpec
	MigrateFrom      *ComputeSpec
	Help             []HelpEntry
	ReferTo          string       // static path whose resolved indices form the choice set
	ComputedReferTo  *ComputeSpec // same, but the path itself is templated/computed

	// --- collection parameters (spec.md §4.2); Kind in {hash, list, check_list} ---
	IndexType           IndexType
	MinIndex, MaxIndex  *int
	MaxNb               *int
	DefaultKeys         []string
	DefaultWithInit     map[string]string // key -> loader program run against the new entry
	FollowKeysFrom      string            // path to another collection whose live keys bound this one's
	AllowKeys           []string
	AllowKeysFrom       string
	AllowKeysMatching   *regexp.Regexp
	AutoCreateKeys      bool // hash
	AutoCreateIDs       bool // list
	WarnIfKeyMatch      []RegexRule
	WarnUnlessKeyMatch  []RegexRule
	Duplicates          Duplicates
	MigrateKeysFrom     *ComputeSpec
	MigrateValuesFrom   *ComputeSpec
	Ordered             bool // hash only
	ConvertKeys         Convert
	WriteEmptyValue     bool
	Cargo               *Element // schema of each entry: a leaf or node template

	// --- node parameters; Kind == node ---
	Elements []*Element // declared, in model order
	Accept   []AcceptRule

	// --- warped_node parameters; Kind == warped_node ---
	WarpMaster string // name of the element (a sibling Value) that drives this warp
	WarpRules  []WarpRule

	// RWConfig, if set, marks this element (must be KindNode) as a
	// backend read/write root: Instance.init will invoke the registered
	// backend's Read during initial load, and WriteBack will invoke
	// Write.
	RWConfig *RWConfig
}

// RWConfig names the backend and file a node's subtree round-trips
// through (spec.md §6 Backend interface).
type RWConfig struct {
	Backend string
	File    string
}

// Validate checks that e's own parameters are mutually consistent
// (spec.md §4.1 ModelError examples): write_as only on booleans,
// default/upstream_default not both set, a value_type required unless this
// is a warped leaf, etc. It does not check values — only the schema
// itself.
func (e *Element) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("schema: element with empty name")
	}
	if e.Kind == KindLeaf {
		if e.ValueType == TypeUnset {
			return fmt.Errorf("schema: leaf %q has no value_type", e.Name)
		}
		if e.WriteAs[0] != "" || e.WriteAs[1] != "" {
			if e.ValueType != TypeBoolean {
				return fmt.Errorf("schema: write_as set on non-boolean leaf %q", e.Name)
			}
		}
		if e.Default != nil && e.UpstreamDefault != nil {
			return fmt.Errorf("schema: leaf %q has both default and upstream_default", e.Name)
		}
		if e.ValueType == TypeEnum && len(e.Choice) == 0 && e.ReferTo == "" && e.ComputedReferTo == nil {
			return fmt.Errorf("schema: enum leaf %q has no choice and no refer_to", e.Name)
		}
	}
	if e.Kind == KindHash || e.Kind == KindList || e.Kind == KindCheckList {
		if e.Cargo == nil {
			return fmt.Errorf("schema: collection %q has no cargo element", e.Name)
		}
		if e.Kind == KindList && e.IndexType == IndexString {
			return fmt.Errorf("schema: list %q cannot have a string index_type", e.Name)
		}
	}
	if e.Kind == KindNode && len(e.Elements) == 0 && len(e.Accept) == 0 {
		return fmt.Errorf("schema: node %q has no elements and no accept rules", e.Name)
	}
	if e.Kind == KindWarpedNode && e.WarpMaster == "" {
		return fmt.Errorf("schema: warped_node %q has no warp master", e.Name)
	}
	return nil
}

// ElementByName returns the declared child of e named name, or nil. It does
// not consider Accept rules — use ConfigClass/Node machinery for that.
func (e *Element) ElementByName(name string) *Element {
	for _, c := range e.Elements {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ConfigClass is a named, immutable schema record: an ordered list of
// elements plus class-level metadata (spec.md §3).
type ConfigClass struct {
	Name             string
	Elements         []*Element
	Accept           []AcceptRule
	RWConfig         *RWConfig
	ClassDescription string
}

// Validate checks every element of c (recursively through node/collection
// cargo) for schema-level consistency.
func (c *ConfigClass) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("schema: class with empty name")
	}
	for _, e := range c.Elements {
		if err := validateElementTree(e); err != nil {
			return fmt.Errorf("class %s: %w", c.Name, err)
		}
	}
	return nil
}

func validateElementTree(e *Element) error {
	if err := e.Validate(); err != nil {
		return err
	}
	for _, c := range e.Elements {
		if err := validateElementTree(c); err != nil {
			return err
		}
	}
	if e.Cargo != nil {
		if err := validateElementTree(e.Cargo); err != nil {
			return err
		}
	}
	return nil
}

// ElementByName returns the declared top-level element of c named name, or
// nil.
func (c *ConfigClass) ElementByName(name string) *Element {
	for _, e := range c.Elements {
		if e.Name == name {
			return e
		}
	}
	return nil
}
