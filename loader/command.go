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

package loader

import "regexp"

// Kind tags what a Command does (spec.md §4.4's navigation/element_cmd
// split, further split by action/subaction).
type Kind int

const (
	// KindPopRoot is '!': jump back to the tree root.
	KindPopRoot Kind = iota
	// KindPop is '-': pop one level, or exit the Loader if already at the
	// top of the program.
	KindPop
	// KindSearch is '/name': search up the ancestor chain for name.
	KindSearch
	// KindDescend is a bare element name, or name:key for a collection
	// entry: push the resolved Node/WarpedNode/collection-entry-node and
	// continue.
	KindDescend
	// KindCollectionOp is name:.method(args): an IdCollection mutator.
	KindCollectionOp
	// KindRegexLoop is name:~pattern: foreach_match over an IdCollection.
	KindRegexLoop
	// KindStore is name=value: Value.Store.
	KindStore
	// KindAppend is name.=value: Value.Store(current+value).
	KindAppend
	// KindSubst is name=~s/pat/repl/flags: regex-substitute the current
	// value and store the result.
	KindSubst
	// KindClear is name~: Value.Clear().
	KindClear
	// KindProject is name=.file(...)/=.json(...)/=.yaml(...)/=.env(...):
	// load a leaf's value from an external source.
	KindProject
)

// Command is one parsed word of a Loader program.
type Command struct {
	Kind Kind

	// Name is the element being addressed; empty for KindPopRoot/KindPop.
	Name string
	// Key is the collection-entry id for KindDescend, or the searched
	// name for KindSearch.
	Key string

	// Method and Args serve KindCollectionOp ("push", "unshift",
	// "insert_at", "insert_before", "insort", "sort", "copy", "clear",
	// "rm") and KindProject ("file", "json", "yaml", "env").
	Method string
	Args   []string

	// Pattern serves KindRegexLoop and KindSubst.
	Pattern *regexp.Regexp

	// Value serves KindStore, KindAppend and KindProject (the raw text
	// between the subaction and the annotation).
	Value string

	// Repl and Flags serve KindSubst.
	Repl  string
	Flags string

	HasAnnotation bool
	Annotation    string
}
