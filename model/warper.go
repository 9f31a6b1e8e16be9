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
	"github.com/conftree/confmodel/schema"
	"github.com/conftree/confmodel/util"
)

// WarpedNode is a Node whose concrete element set is chosen dynamically by
// the value of a sibling "warp master" leaf (spec.md §2, §4.1 table). It
// embeds Node so every Node method (FetchElement, Children, Gist, ...)
// applies directly to whatever element set the current warp rule selected.
type WarpedNode struct {
	*Node
	master string
}

func newWarpedNode(inst *Instance, parent *Node, path *util.Path, elem *schema.Element) *WarpedNode {
	wn := &WarpedNode{Node: newChildNode(inst, parent, path, elem), master: elem.WarpMaster}
	inst.warper().registerNode(parent, elem.WarpMaster, wn, elem.WarpRules)
	inst.warper().evaluateNode(parent, wn)
	return wn
}

// warperReg is one registration: a dependent target plus the rule table
// evaluated against its master's current value (spec.md §4.5).
type warperReg struct {
	targetNode  *WarpedNode
	targetValue *Value
	rules       []schema.WarpRule
	entries     int // reentrancy counter; spec.md §9 "treat re-entry ... as a schema error"
}

// warper tracks master -> dependant registrations, scoped per parent Node
// since a "warp master" name is resolved as a sibling of the warped
// element (spec.md §4.5 "registers with zero or more masters"). It lives on
// Instance, one per tree, matching the single-threaded, single-owner
// contract of spec.md §5.
type warper struct {
	inst *Instance
	regs map[*Node]map[string][]*warperReg
}

func (inst *Instance) warper() *warper {
	if inst.warp == nil {
		inst.warp = &warper{inst: inst, regs: map[*Node]map[string][]*warperReg{}}
	}
	return inst.warp
}

func (w *warper) register(parent *Node, master string, reg *warperReg) {
	m := w.regs[parent]
	if m == nil {
		m = map[string][]*warperReg{}
		w.regs[parent] = m
	}
	m[master] = append(m[master], reg)
}

func (w *warper) registerNode(parent *Node, master string, wn *WarpedNode, rules []schema.WarpRule) {
	w.register(parent, master, &warperReg{targetNode: wn, rules: rules})
}

// RegisterValueWarp wires up the generic Warper mechanism of spec.md §4.5
// (distinct from WarpedNode's concrete-class switch): whenever the sibling
// leaf named master changes, target's schema properties are reconfigured
// per the first matching rule's Overrides.
func (n *Node) RegisterValueWarp(target *Value, master string, rules []schema.WarpRule) {
	w := n.inst.warper()
	w.register(n, master, &warperReg{targetValue: target, rules: rules})
	w.evaluateValue(n, target, rules)
}

// NotifyMasterChanged re-evaluates every warp registered against master
// under parent (called after a successful store to a leaf that might be a
// warp master; the model package does not auto-detect master-ness, since a
// leaf has no back-pointer to the warps that depend on it — the Loader and
// callers that know a leaf is a master invoke this explicitly).
func (n *Node) NotifyMasterChanged(master string) {
	n.inst.warper().notify(n, master)
}

func (w *warper) notify(parent *Node, master string) {
	for _, reg := range w.regs[parent][master] {
		if reg.entries > 0 {
			w.inst.recordError(parent.path, util.Errf(util.KindModelError, util.PathString(parent.path),
				"warp cascade re-entered master %q", master))
			continue
		}
		reg.entries++
		if reg.targetNode != nil {
			w.evaluateNode(parent, reg.targetNode)
		} else if reg.targetValue != nil {
			w.evaluateValue(parent, reg.targetValue, reg.rules)
		}
		reg.entries--
	}
}

func (w *warper) masterValue(parent *Node, master string) string {
	it, err := parent.FetchElement(master, CheckNo, false, true)
	if err != nil {
		return ""
	}
	v, ok := it.(*Value)
	if !ok {
		return ""
	}
	s, _, _ := v.Fetch(FetchUser, CheckNo, true)
	return s
}

func (w *warper) evaluateNode(parent *Node, wn *WarpedNode) {
	val := w.masterValue(parent, wn.master)
	vars := map[string]string{"value": val}
	regs := w.regs[parent][wn.master]
	var rules []schema.WarpRule
	for _, r := range regs {
		if r.targetNode == wn {
			rules = r.rules
			break
		}
	}
	for _, rule := range rules {
		if rule.Cond == nil || rule.Cond(vars) {
			if rule.Template != nil {
				wn.elements = rule.Template.Elements
				wn.acceptRules = rule.Template.Accept
				wn.children = map[string]item{}
			}
			return
		}
	}
}

func (w *warper) evaluateValue(parent *Node, target *Value, rules []schema.WarpRule) {
	master := ""
	for name, regs := range w.regs[parent] {
		for _, r := range regs {
			if r.targetValue == target {
				master = name
			}
		}
	}
	vars := map[string]string{"value": w.masterValue(parent, master)}
	for _, rule := range rules {
		if rule.Cond == nil || rule.Cond(vars) {
			applyOverrides(target, rule.Overrides)
			return
		}
	}
}

// applyOverrides mutates target's schema element in place with the subset
// of properties a Warper rule may reconfigure (spec.md §4.5
// "set_properties"). target.elem is never shared with the declaring
// ConfigClass's template after the first warp (the Node/collection
// machinery clones Accept templates per instance; a warped non-Accept leaf
// must likewise be given its own Element before this is called).
func applyOverrides(target *Value, o schema.PropertyOverrides) {
	if o.ValueType != schema.TypeUnset {
		target.elem.ValueType = o.ValueType
	}
	if o.Choice != nil {
		target.elem.Choice = o.Choice
	}
	if o.Min != nil {
		target.elem.Min = o.Min
	}
	if o.Max != nil {
		target.elem.Max = o.Max
	}
	if o.Mandatory != nil {
		target.elem.Mandatory = *o.Mandatory
	}
	if o.Default != nil {
		target.elem.Default = o.Default
	}
}
