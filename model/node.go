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

package model

import (
	"strings"
	"sync"

	trie "github.com/derekparker/trie"

	"github.com/conftree/confmodel/schema"
	"github.com/conftree/confmodel/util"
)

// elementOverride holds a per-instance level/status override (spec.md §3
// "Node ... Carries per-element overrides of level ... and status").
type elementOverride struct {
	level  *schema.Level
	status *schema.Status
}

// Node is a record of named elements (spec.md §4.3). Non-root nodes know
// their parent by back-reference only — a relation, never ownership
// (spec.md §3 "Ownership").
type Node struct {
	inst        *Instance
	parent      *Node
	path        *util.Path
	elements    []*schema.Element
	acceptRules []schema.AcceptRule
	description string
	gist        string
	dataMode    Mode

	children  map[string]item
	overrides map[string]*elementOverride

	trieIdx *trie.Trie
}

// deprecatedWarned dedups the "dropping deprecated parameter" warning once
// per schema.Element pointer per process (spec.md §4.3: "once per element
// per process" — a schema.Element is shared across every live Node of the
// same class, so its pointer identity is the right dedup key).
var deprecatedWarned sync.Map // map[*schema.Element]bool

func newRootNode(inst *Instance, class *schema.ConfigClass) *Node {
	return &Node{
		inst:        inst,
		path:        util.NewPath(),
		elements:    class.Elements,
		acceptRules: class.Accept,
		description: class.ClassDescription,
		children:    map[string]item{},
		dataMode:    inst.Mode(),
	}
}

func newChildNode(inst *Instance, parent *Node, path *util.Path, elem *schema.Element) *Node {
	return &Node{
		inst:        inst,
		parent:      parent,
		path:        path,
		elements:    elem.Elements,
		acceptRules: elem.Accept,
		description: elem.Description,
		gist:        elem.Gist,
		children:    map[string]item{},
		dataMode:    inst.Mode(),
	}
}

func (n *Node) itemPath() *util.Path { return n.path }

// Path returns n's canonical location.
func (n *Node) Path() *util.Path { return n.path }

// Parent returns n's parent, or nil at the root.
func (n *Node) Parent() *Node { return n.parent }

func (n *Node) declared(name string) *schema.Element {
	for _, e := range n.elements {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (n *Node) override(name string) *elementOverride {
	if n.overrides == nil {
		return nil
	}
	return n.overrides[name]
}

// SetOverride installs a per-instance level/status override for name
// (spec.md §3). Either argument may be nil to leave that property alone.
func (n *Node) SetOverride(name string, level *schema.Level, status *schema.Status) {
	if n.overrides == nil {
		n.overrides = map[string]*elementOverride{}
	}
	o := n.overrides[name]
	if o == nil {
		o = &elementOverride{}
		n.overrides[name] = o
	}
	if level != nil {
		o.level = level
	}
	if status != nil {
		o.status = status
	}
}

func (n *Node) effectiveLevel(decl *schema.Element) schema.Level {
	if o := n.override(decl.Name); o != nil && o.level != nil {
		return *o.level
	}
	return decl.Level
}

func (n *Node) effectiveStatus(decl *schema.Element) schema.Status {
	if o := n.override(decl.Name); o != nil && o.status != nil {
		return *o.status
	}
	return decl.Status
}

// FetchElement implements spec.md §4.3's fetch_element(name, check,
// autoadd, accept_hidden).
func (n *Node) FetchElement(name string, check CheckMode, autoadd, acceptHidden bool) (item, error) {
	path := util.PathString(n.path)
	decl := n.declared(name)
	if decl == nil {
		if !autoadd {
			return nil, n.unknownElement(name, check)
		}
		var err error
		decl, err = n.tryAccept(name, check)
		if err != nil {
			return nil, err
		}
		if decl == nil {
			return nil, n.unknownElement(name, check)
		}
	}

	level := n.effectiveLevel(decl)
	status := n.effectiveStatus(decl)

	if level == schema.LevelHidden && !acceptHidden {
		if check == CheckYes {
			return nil, util.Errf(util.KindUserError, path, "element %q is hidden", name)
		}
		return nil, nil
	}
	if status == schema.StatusObsolete {
		if check == CheckYes {
			return nil, util.Errf(util.KindUserError, path, "element %q is obsolete", name)
		}
		return nil, nil
	}
	if status == schema.StatusDeprecated && check == CheckYes {
		if _, already := deprecatedWarned.LoadOrStore(decl, true); !already {
			n.inst.warn(util.AppendName(n.path, name), "element is deprecated")
		}
		n.inst.recordChange(util.AppendName(n.path, name), "dropping deprecated parameter", nil, nil, true)
	}

	if it, ok := n.children[name]; ok {
		return it, nil
	}
	it := n.materialize(name, decl)
	n.children[name] = it
	return it, nil
}

func (n *Node) unknownElement(name string, check CheckMode) error {
	path := util.PathString(n.path)
	err := util.Errf(util.KindUnknownElement, path, "no element named %q", name)
	if check == CheckYes {
		return err
	}
	n.inst.recordError(n.path, err)
	return nil
}

// tryAccept matches name against n's Accept rules (spec.md §4.3 "Accept"),
// splicing a cloned template element into the live model on first match. It
// also emits a fuzzy-match "possible typo" warning when name is close (edit
// distance <= 2) to an existing declared name, per the same spec paragraph.
func (n *Node) tryAccept(name string, check CheckMode) (*schema.Element, error) {
	n.warnIfTypo(name)
	for _, rule := range n.acceptRules {
		if rule.Pattern == nil || !rule.Pattern.MatchString(name) {
			continue
		}
		clone := *rule.Template
		clone.Name = name
		if rule.After != "" {
			for i, e := range n.elements {
				if e.Name == rule.After {
					n.elements = append(n.elements[:i+1], append([]*schema.Element{&clone}, n.elements[i+1:]...)...)
					return &clone, nil
				}
			}
		}
		n.elements = append(n.elements, &clone)
		return &clone, nil
	}
	return nil, nil
}

func (n *Node) warnIfTypo(name string) {
	if len(n.elements) == 0 {
		return
	}
	if n.trieIdx == nil {
		n.trieIdx = trie.New()
		for _, e := range n.elements {
			n.trieIdx.Add(e.Name, nil)
		}
	}
	best := ""
	bestDist := -1
	for _, cand := range n.trieIdx.FuzzySearch(name) {
		d := util.EditDistance(name, cand)
		if bestDist == -1 || d < bestDist {
			bestDist, best = d, cand
		}
	}
	if bestDist >= 0 && bestDist <= 2 && best != name {
		n.inst.warn(util.AppendName(n.path, name), "possible typo: did you mean \""+best+"\"?")
	}
}

func (n *Node) materialize(name string, decl *schema.Element) item {
	childPath := util.AppendName(n.path, name)
	switch decl.Kind {
	case schema.KindLeaf:
		return newValue(n.inst, n, childPath, decl)
	case schema.KindHash, schema.KindList, schema.KindCheckList:
		return newIdCollection(n.inst, n, childPath, decl)
	case schema.KindWarpedNode:
		return newWarpedNode(n.inst, n, childPath, decl)
	default:
		return newChildNode(n.inst, n, childPath, decl)
	}
}

// HasElement reports whether name is declared (without materializing it).
func (n *Node) HasElement(name string) bool { return n.declared(name) != nil }

// Children returns declared element names in model order; unless all is
// set, hidden/obsolete/deprecated elements are excluded (spec.md §4.3
// "Iteration").
func (n *Node) Children(all bool) []string {
	var out []string
	for _, e := range n.elements {
		if !all {
			level := n.effectiveLevel(e)
			status := n.effectiveStatus(e)
			if level == schema.LevelHidden || status != schema.StatusStandard {
				continue
			}
		}
		out = append(out, e.Name)
	}
	return out
}

// Gist resolves n's template string, substituting {elt} with elt's fetched
// value (empty if missing) (spec.md §4.3 "Gist").
func (n *Node) Gist() string {
	if n.gist == "" {
		return ""
	}
	out := n.gist
	for {
		start := strings.Index(out, "{")
		if start < 0 {
			break
		}
		end := strings.Index(out[start:], "}")
		if end < 0 {
			break
		}
		end += start
		name := out[start+1 : end]
		val := ""
		if it, err := n.FetchElement(name, CheckNo, false, false); err == nil {
			if v, ok := it.(*Value); ok {
				val, _, _ = v.Fetch(FetchUser, CheckNo, true)
			}
		}
		out = out[:start] + val + out[end+1:]
	}
	return out
}

// --- relative path navigation, used by compute/migrate/refer_to/replace_follow ---

func splitKey(seg string) (name, key string, hasKey bool) {
	i := strings.Index(seg, "[")
	if i < 0 || !strings.HasSuffix(seg, "]") {
		return seg, "", false
	}
	return seg[:i], seg[i+1 : len(seg)-1], true
}

// navigate walks a Loader-style relative path ("../x", "/x/y", "x[key]")
// starting at n, returning the final live item.
func (n *Node) navigate(path string) (item, error) {
	segs := strings.Split(path, "/")
	cur := n
	if len(segs) > 0 && segs[0] == "" {
		cur = n.inst.Root()
		segs = segs[1:]
	}
	var result item = cur
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		if seg == ".." {
			if cur.parent == nil {
				return nil, util.Errf(util.KindLoadError, util.PathString(cur.path), "no parent above root")
			}
			cur = cur.parent
			result = cur
			continue
		}
		name, key, hasKey := splitKey(seg)
		it, err := cur.FetchElement(name, CheckYes, true, true)
		if err != nil {
			return nil, err
		}
		if hasKey {
			coll, ok := it.(*IdCollection)
			if !ok {
				return nil, util.Errf(util.KindWrongType, util.PathString(cur.path), "%q is not a collection", name)
			}
			it, err = coll.Get(key, CheckYes)
			if err != nil {
				return nil, err
			}
		}
		result = it
		switch v := it.(type) {
		case *Node:
			cur = v
		case *WarpedNode:
			cur = v.Node
		}
	}
	return result, nil
}

func (n *Node) resolveValuePath(path string) (string, error) {
	it, err := n.navigate(path)
	if err != nil {
		return "", err
	}
	v, ok := it.(*Value)
	if !ok {
		return "", util.Errf(util.KindWrongType, util.PathString(n.path), "%q does not resolve to a leaf", path)
	}
	s, _, err := v.Fetch(FetchUser, CheckNo, true)
	return s, err
}

func (n *Node) resolveChoiceSet(path string) ([]string, error) {
	it, err := n.navigate(path)
	if err != nil {
		return nil, err
	}
	switch v := it.(type) {
	case *IdCollection:
		return v.Keys(), nil
	case *Value:
		s, has, err := v.Fetch(FetchUser, CheckNo, true)
		if err != nil || !has {
			return nil, err
		}
		return []string{s}, nil
	default:
		return nil, util.Errf(util.KindWrongType, util.PathString(n.path), "%q does not resolve to a key set", path)
	}
}

func (n *Node) resolveHashValue(path, key string) (string, error) {
	it, err := n.navigate(path)
	if err != nil {
		return "", err
	}
	coll, ok := it.(*IdCollection)
	if !ok {
		return "", util.Errf(util.KindWrongType, util.PathString(n.path), "%q is not a hash", path)
	}
	entry, err := coll.Get(key, CheckNo)
	if err != nil || entry == nil {
		return "", err
	}
	v, ok := entry.(*Value)
	if !ok {
		return "", util.Errf(util.KindWrongType, util.PathString(n.path), "%q[%s] is not a leaf", path, key)
	}
	s, has, err := v.Fetch(FetchUser, CheckNo, true)
	if err != nil || !has {
		return "", err
	}
	return s, nil
}
