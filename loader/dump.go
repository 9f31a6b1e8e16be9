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

import (
	"sort"
	"strings"

	"github.com/conftree/confmodel/model"
)

// Dump renders node's live content back into a Loader program (spec.md §6,
// §8: "load(dump(tree)) reproduces tree up to element order"). Only data
// that actually differs from "nothing was ever stored" is emitted: a leaf
// with no data, or an empty collection, contributes no words, so dumping an
// untouched tree yields the empty program.
func Dump(node *model.Node) string {
	var words []string
	dumpNode(node, &words)
	return strings.Join(words, " ")
}

func dumpNode(node *model.Node, words *[]string) {
	names := append([]string{}, node.Children(true)...)
	sort.Strings(names)
	for _, name := range names {
		it, err := node.FetchElement(name, model.CheckNo, false, true)
		if err != nil || it == nil {
			continue
		}
		switch v := it.(type) {
		case *model.Value:
			val, has, err := v.Fetch(model.FetchUser, model.CheckNo, true)
			if err != nil || !has {
				continue
			}
			*words = append(*words, quoteIfNeeded(name)+"="+quoteIfNeeded(val))
		case *model.Node:
			dumpChildNode(name, v, words)
		case *model.WarpedNode:
			dumpChildNode(name, v.Node, words)
		case *model.IdCollection:
			dumpCollection(name, v, words)
		}
	}
}

func dumpChildNode(name string, n *model.Node, words *[]string) {
	var inner []string
	dumpNode(n, &inner)
	if len(inner) == 0 {
		return
	}
	*words = append(*words, quoteIfNeeded(name))
	*words = append(*words, inner...)
	*words = append(*words, "-")
}

func dumpCollection(name string, c *model.IdCollection, words *[]string) {
	for _, k := range c.Keys() {
		entry, err := c.Get(k, model.CheckNo)
		if err != nil || entry == nil {
			continue
		}
		head := quoteIfNeeded(name) + ":" + quoteIfNeeded(k)
		switch v := entry.(type) {
		case *model.Value:
			val, has, err := v.Fetch(model.FetchUser, model.CheckNo, true)
			if err != nil || !has {
				continue
			}
			// A leaf collection entry has nowhere to descend, so the action
			// (':key') and the subaction ('=value') combine into one word,
			// the same form parseCommand accepts on the way in.
			*words = append(*words, head+"="+quoteIfNeeded(val))
		case *model.Node:
			var inner []string
			dumpNode(v, &inner)
			if len(inner) == 0 {
				continue
			}
			*words = append(*words, head)
			*words = append(*words, inner...)
			*words = append(*words, "-")
		case *model.WarpedNode:
			var inner []string
			dumpNode(v.Node, &inner)
			if len(inner) == 0 {
				continue
			}
			*words = append(*words, head)
			*words = append(*words, inner...)
			*words = append(*words, "-")
		}
	}
}

// quoteIfNeeded wraps s in double quotes (escaping \\ and ") if it contains
// whitespace or characters the tokenizer would otherwise split or
// misinterpret.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '"' || r == '\\':
			needsQuote = true
		case r == ':' || r == '=' || r == '#' || r == '~':
			needsQuote = true
		}
	}
	if !needsQuote {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
