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
	"strconv"
	"strings"

	"github.com/conftree/confmodel/model"
	"github.com/conftree/confmodel/util"
)

// Executor walks a parsed program against a live tree (spec.md §4.4's
// "navigation" and "element_cmd" dispatch). It keeps its own navigation
// stack rather than reusing model.Node's relative-path resolver: the
// Loader's '!'/'-'/'/name' operators address the *command* stack built up
// by previous Loader commands, not the schema-declared parent/root
// relationship resolveValuePath walks.
type Executor struct {
	inst  *model.Instance
	check model.CheckMode
}

// NewExecutor creates an Executor that runs commands under check (spec.md
// §4.1/§4.3's check=yes/skip/no) against inst.
func NewExecutor(inst *model.Instance, check model.CheckMode) *Executor {
	return &Executor{inst: inst, check: check}
}

// Run executes program starting at start (spec.md §4.4's program entry
// point, typically the tree root).
func (e *Executor) Run(start *model.Node, program string) error {
	cmds, err := Parse(program)
	if err != nil {
		return err
	}
	return e.run([]*model.Node{start}, cmds)
}

// run executes cmds against stack, the current chain of descended nodes.
// Returning early on a '-' past the bottom of stack matches spec.md §4.4
// ("if already at the top of the program, exit the Loader").
func (e *Executor) run(stack []*model.Node, cmds []*Command) error {
	for i := 0; i < len(cmds); i++ {
		cmd := cmds[i]
		cur := stack[len(stack)-1]

		switch cmd.Kind {
		case KindPopRoot:
			stack = []*model.Node{e.inst.Root()}
			continue
		case KindPop:
			if len(stack) == 1 {
				return nil
			}
			stack = stack[:len(stack)-1]
			continue
		case KindSearch:
			n, err := e.search(stack, cmd.Key)
			if err != nil {
				if e.check == model.CheckYes {
					return err
				}
				continue
			}
			stack = append(stack, n)
			continue
		case KindRegexLoop:
			return e.runRegexLoop(cur, cmd, cmds[i+1:])
		}

		if err := e.execOne(cur, cmd); err != nil {
			if e.check == model.CheckYes {
				return err
			}
			continue
		}
		if cmd.Kind == KindDescend {
			if n, ok := e.descended(cur, cmd); ok {
				stack = append(stack, n)
			}
		}
	}
	return nil
}

// search walks up from the current node (spec.md §4.4 "'/' name: search the
// ancestor chain, innermost first, for an element called name, and descend
// into it"), starting at the innermost node of stack.
func (e *Executor) search(stack []*model.Node, name string) (*model.Node, error) {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].HasElement(name) {
			it, err := stack[i].FetchElement(name, e.check, true, true)
			if err != nil {
				return nil, err
			}
			switch v := it.(type) {
			case *model.Node:
				return v, nil
			case *model.WarpedNode:
				return v.Node, nil
			}
			return nil, util.Errf(util.KindWrongType, util.PathString(stack[i].Path()), "%q is not a node", name)
		}
	}
	return nil, util.Errf(util.KindUnknownElement, "", "no ancestor declares %q", name)
}

// descended resolves cmd's target element to a *model.Node worth pushing,
// for a plain (keyless) descend or a name:key collection descend.
func (e *Executor) descended(cur *model.Node, cmd *Command) (*model.Node, bool) {
	it, err := cur.FetchElement(cmd.Name, e.check, true, true)
	if err != nil || it == nil {
		return nil, false
	}
	if cmd.Key != "" {
		coll, ok := it.(*model.IdCollection)
		if !ok {
			return nil, false
		}
		entry, err := coll.Get(cmd.Key, e.check)
		if err != nil || entry == nil {
			return nil, false
		}
		switch v := entry.(type) {
		case *model.Node:
			return v, true
		case *model.WarpedNode:
			return v.Node, true
		}
		return nil, false
	}
	switch v := it.(type) {
	case *model.Node:
		return v, true
	case *model.WarpedNode:
		return v.Node, true
	}
	return nil, false
}

// execOne runs the leaf-level or collection-level effect of cmd against
// cur, and attaches its annotation if any (spec.md §4.4's per-(ElementKind,
// CargoKind, Verb) dispatch table of §9).
func (e *Executor) execOne(cur *model.Node, cmd *Command) error {
	var annotatePath *util.Path
	switch cmd.Kind {
	case KindDescend:
		it, err := cur.FetchElement(cmd.Name, e.check, true, true)
		if err != nil {
			return err
		}
		if cmd.Key != "" {
			if n, ok := e.descended(cur, cmd); ok {
				annotatePath = n.Path()
			} else {
				annotatePath = itemAnnotationPath(it)
			}
		} else {
			annotatePath = itemAnnotationPath(it)
		}
	case KindCollectionOp:
		it, err := cur.FetchElement(cmd.Name, e.check, true, true)
		if err != nil {
			return err
		}
		coll, ok := it.(*model.IdCollection)
		if !ok {
			return util.Errf(util.KindWrongType, util.PathString(cur.Path()), "%q is not a collection", cmd.Name)
		}
		if err := runCollectionOp(coll, cmd, e.check); err != nil {
			return err
		}
		annotatePath = coll.Path()
	case KindStore:
		if cmd.Key == "" {
			if it, err := cur.FetchElement(cmd.Name, e.check, true, true); err == nil {
				if coll, ok := it.(*model.IdCollection); ok && coll.IsList() {
					if err := storeList(coll, cmd.Value, e.check); err != nil {
						return err
					}
					annotatePath = coll.Path()
					break
				}
			}
		}
		v, err := e.resolveLeafTarget(cur, cmd)
		if err != nil {
			return err
		}
		if err := v.Store(cmd.Value, e.check, false); err != nil {
			return err
		}
		annotatePath = v.Path()
	case KindAppend:
		v, err := e.resolveLeafTarget(cur, cmd)
		if err != nil {
			return err
		}
		curVal, _, err := v.Fetch(model.FetchUser, model.CheckNo, true)
		if err != nil {
			return err
		}
		if err := v.Store(curVal+cmd.Value, e.check, false); err != nil {
			return err
		}
		annotatePath = v.Path()
	case KindClear:
		v, err := e.resolveLeafTarget(cur, cmd)
		if err != nil {
			return err
		}
		if err := v.Clear(); err != nil {
			return err
		}
		annotatePath = v.Path()
	case KindSubst:
		v, err := e.resolveLeafTarget(cur, cmd)
		if err != nil {
			return err
		}
		curVal, _, err := v.Fetch(model.FetchUser, model.CheckNo, true)
		if err != nil {
			return err
		}
		if err := v.Store(cmd.Pattern.ReplaceAllString(curVal, cmd.Repl), e.check, false); err != nil {
			return err
		}
		annotatePath = v.Path()
	case KindProject:
		v, err := e.resolveLeafTarget(cur, cmd)
		if err != nil {
			return err
		}
		val, err := project(e.inst.RootDir(), cmd)
		if err != nil {
			return err
		}
		if err := v.Store(val, e.check, false); err != nil {
			return err
		}
		annotatePath = v.Path()
	}
	if cmd.HasAnnotation && annotatePath != nil {
		e.inst.SetAnnotation(annotatePath, cmd.Annotation)
	}
	return nil
}

// resolveLeafTarget finds the *model.Value a leaf-targeting command (Store,
// Append, Subst, Clear, Project) applies to. With no Key, cmd.Name must
// itself be a leaf. With a Key, cmd.Name must be a collection and Key
// addresses one of its entries (spec.md §4.4's combined
// `name:key=value`-style command, where the action selects the entry and
// the subaction applies to it directly since it has nowhere further to
// descend).
func (e *Executor) resolveLeafTarget(cur *model.Node, cmd *Command) (*model.Value, error) {
	it, err := cur.FetchElement(cmd.Name, e.check, true, true)
	if err != nil {
		return nil, err
	}
	if cmd.Key == "" {
		v, ok := it.(*model.Value)
		if !ok {
			return nil, util.Errf(util.KindWrongType, util.PathString(cur.Path()), "%q is not a leaf", cmd.Name)
		}
		return v, nil
	}
	coll, ok := it.(*model.IdCollection)
	if !ok {
		return nil, util.Errf(util.KindWrongType, util.PathString(cur.Path()), "%q is not a collection", cmd.Name)
	}
	entry, err := coll.Get(cmd.Key, e.check)
	if err != nil {
		return nil, err
	}
	v, ok := entry.(*model.Value)
	if !ok {
		return nil, util.Errf(util.KindWrongType, util.PathString(coll.Path()), "entry %q cargo is not a leaf", cmd.Key)
	}
	return v, nil
}

func itemAnnotationPath(it interface{}) *util.Path {
	switch v := it.(type) {
	case *model.Node:
		return v.Path()
	case *model.WarpedNode:
		return v.Node.Path()
	case *model.Value:
		return v.Path()
	case *model.IdCollection:
		return v.Path()
	}
	return nil
}

// runCollectionOp applies a ":.method(args)" command (spec.md §4.2's
// push/unshift/insert_at/insert_before/insort/sort/copy/clear/rm, surfaced
// to the Loader).
func runCollectionOp(coll *model.IdCollection, cmd *Command, check model.CheckMode) error {
	args := cmd.Args
	switch cmd.Method {
	case "push":
		return coll.Push(arg(args, 0), check)
	case "unshift":
		return coll.Unshift(arg(args, 0), check)
	case "insert_at":
		idx, err := strconv.Atoi(arg(args, 0))
		if err != nil {
			return util.Errf(util.KindWrongType, util.PathString(coll.Path()), "insert_at requires an integer index: %v", err)
		}
		return coll.InsertAt(idx, arg(args, 1), check)
	case "insert_before":
		return coll.InsertBefore(arg(args, 0), arg(args, 1), check)
	case "insort":
		return coll.Insort(arg(args, 0), check)
	case "sort":
		coll.Sort()
		return nil
	case "copy":
		return coll.Copy(arg(args, 0), arg(args, 1))
	case "clear":
		coll.Clear()
		return nil
	case "rm":
		coll.Delete(arg(args, 0))
		return nil
	default:
		return util.Errf(util.KindSyntaxError, util.PathString(coll.Path()), "unknown collection method %q", cmd.Method)
	}
}

// storeList implements spec.md §8 scenario 4's `bounded_list=foo,bar,baz`:
// a subaction '=' directly on a list (rather than on one of its entries)
// replaces the whole list with the comma-separated values, in order.
func storeList(coll *model.IdCollection, raw string, check model.CheckMode) error {
	coll.Clear()
	for _, part := range strings.Split(raw, ",") {
		if err := coll.Push(part, check); err != nil {
			return err
		}
	}
	return nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// runRegexLoop implements spec.md §4.4's "foreach_match": tail is run once
// per matching key, each time starting a fresh sub-stack rooted at that
// key's cargo node, with the residual command list restored between
// iterations. A pop ('-' or '!') that would cross the loop-starting level
// ends that iteration only; the loop itself always consumes every command
// in tail, so nothing in the program can follow a regex loop.
func (e *Executor) runRegexLoop(cur *model.Node, cmd *Command, tail []*Command) error {
	it, err := cur.FetchElement(cmd.Name, e.check, true, true)
	if err != nil {
		if e.check == model.CheckYes {
			return err
		}
		return nil
	}
	coll, ok := it.(*model.IdCollection)
	if !ok {
		return util.Errf(util.KindWrongType, util.PathString(cur.Path()), "%q is not a collection", cmd.Name)
	}
	for _, k := range coll.Keys() {
		if cmd.Pattern != nil && !cmd.Pattern.MatchString(k) {
			continue
		}
		entry, err := coll.Get(k, e.check)
		if err != nil {
			if e.check == model.CheckYes {
				return err
			}
			continue
		}
		var loopNode *model.Node
		switch v := entry.(type) {
		case *model.Node:
			loopNode = v
		case *model.WarpedNode:
			loopNode = v.Node
		default:
			continue
		}
		if err := e.run([]*model.Node{loopNode}, tail); err != nil {
			if e.check == model.CheckYes {
				return err
			}
		}
	}
	return nil
}
