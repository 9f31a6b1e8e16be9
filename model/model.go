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

// Package model implements the live configuration tree: Value, IdCollection
// (Hash and List), Node, WarpedNode and Warper (spec.md §4), plus Instance
// (spec.md §4.6) — the tree owner, mode stack and change log. Instance is
// kept in this package rather than split out because it is mutually
// recursive with Value/Node: a store() must consult Instance.Mode(), and
// Instance.recordChange formats paths back through the tree. The teacher,
// ygot, makes the same call keeping leaf/list/container/node logic in one
// `ytypes` package instead of one-file-per-kind.
package model

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/conftree/confmodel/schema"
	"github.com/conftree/confmodel/util"
)

// Mode is the Instance-wide load mode (spec.md §3, §4.6, §5).
type Mode int

const (
	// ModeNormal is ordinary user/program mutation: stores land in the user
	// slot and are logged.
	ModeNormal Mode = iota
	// ModePreset: stores land in the preset slot.
	ModePreset
	// ModeLayered: stores land in the layered slot.
	ModeLayered
	// ModeInitialLoad: stores still land in the user slot (this is how a
	// backend populates the tree) but change notification is suppressed
	// except for model-driven transforms or store conflicts (spec.md §5).
	ModeInitialLoad
)

func (m Mode) String() string {
	switch m {
	case ModePreset:
		return "preset"
	case ModeLayered:
		return "layered"
	case ModeInitialLoad:
		return "initial-load"
	default:
		return "normal"
	}
}

// CheckMode is the "check" parameter threaded through nearly every store and
// fetch_element operation (spec.md §4.1, §4.3, §7).
type CheckMode int

const (
	// CheckYes fails the operation outright on any validation/lookup error.
	CheckYes CheckMode = iota
	// CheckSkip keeps the prior value / returns null, records a soft error,
	// and emits a warning unless silenced.
	CheckSkip
	// CheckNo stores the bad value anyway (or proceeds past the missing
	// element) but still records the error.
	CheckNo
)

// ChangeRecord is one entry of Instance's append-only change log (spec.md
// §3 "Change log").
type ChangeRecord struct {
	Path *util.Path
	Note string
	Old  *string
	New  *string
}

func (c ChangeRecord) String() string {
	ps := util.PathString(c.Path)
	if c.Note != "" {
		return fmt.Sprintf("%s: %s", ps, c.Note)
	}
	old, new_ := "<undef>", "<undef>"
	if c.Old != nil {
		old = *c.Old
	}
	if c.New != nil {
		new_ = *c.New
	}
	return fmt.Sprintf("%s: %s -> %s", ps, old, new_)
}

// item is the tagged-variant interface every live tree element satisfies:
// *Value, *IdCollection, *Node or *WarpedNode (spec.md §9 "dynamic dispatch
// over cargo kinds... a tagged variant in a single arena").
type item interface {
	itemPath() *util.Path
}

// WriteBackEntry is one registration made by register_write_back (spec.md
// §4.6): a subtree, the backend that owns it, and the closure that performs
// the write.
type WriteBackEntry struct {
	Path        *util.Path
	BackendName string
	Write       func(rootDir string) error
}

// Instance owns one tree: the root Node, the current mode, the root
// filesystem path, the change log, the per-path error map and the
// write-back registry (spec.md §4.6).
type Instance struct {
	catalog   *schema.Catalog
	className string
	root      *Node
	rootDir   string

	modeStack []Mode

	changeLog    []ChangeRecord
	needsSave    int
	errorsByPath map[string][]error
	warnSeen     map[string]map[string]bool

	writeBacks []WriteBackEntry

	warp *warper

	annotations map[string]string
}

// NewInstance creates the root Node lazily from className in cat (spec.md
// §2 "Instance creates the root Node lazily from a ConfigClass catalog").
func NewInstance(cat *schema.Catalog, className, rootDir string) (*Instance, error) {
	class, ok := cat.Get(className)
	if !ok {
		return nil, util.Errf(util.KindModelError, "", "unknown class %q", className)
	}
	inst := &Instance{
		catalog:      cat,
		className:    className,
		rootDir:      rootDir,
		modeStack:    []Mode{ModeNormal},
		errorsByPath: map[string][]error{},
		warnSeen:     map[string]map[string]bool{},
		annotations:  map[string]string{},
	}
	inst.root = newRootNode(inst, class)
	return inst, nil
}

// Root returns the tree's root Node.
func (inst *Instance) Root() *Node { return inst.root }

// RootDir returns the filesystem root backends resolve relative paths
// against.
func (inst *Instance) RootDir() string { return inst.rootDir }

// Mode returns the current load mode.
func (inst *Instance) Mode() Mode { return inst.modeStack[len(inst.modeStack)-1] }

func (inst *Instance) pushMode(m Mode) { inst.modeStack = append(inst.modeStack, m) }
func (inst *Instance) popMode() {
	if len(inst.modeStack) > 1 {
		inst.modeStack = inst.modeStack[:len(inst.modeStack)-1]
	}
}

// PresetStart/PresetStop bracket a region of stores that land in the preset
// slot (spec.md §4.6).
func (inst *Instance) PresetStart() { inst.pushMode(ModePreset) }
func (inst *Instance) PresetStop()  { inst.popMode() }

// LayeredStart/LayeredStop bracket a region of stores that land in the
// layered slot.
func (inst *Instance) LayeredStart() { inst.pushMode(ModeLayered) }
func (inst *Instance) LayeredStop()  { inst.popMode() }

// LayeredClear removes every layered-slot value in the tree (spec.md §4.6
// "layered_clear").
func (inst *Instance) LayeredClear() {
	walkTree(inst.root, func(it item) {
		switch v := it.(type) {
		case *Value:
			v.slots[srcLayered] = nil
		case *IdCollection:
			v.removeLayeredEntries()
		}
	})
}

// InitialLoadStart/InitialLoadStop bracket the region in which a backend
// populates the tree; stores still land in the user slot but change
// notification is suppressed per spec.md §5.
func (inst *Instance) InitialLoadStart() { inst.pushMode(ModeInitialLoad) }
func (inst *Instance) InitialLoadStop()  { inst.popMode() }

// RegisterWriteBack records a backend's write closure for a subtree (spec.md
// §4.6 "register_write_back").
func (inst *Instance) RegisterWriteBack(path *util.Path, backendName string, write func(rootDir string) error) {
	inst.writeBacks = append(inst.writeBacks, WriteBackEntry{Path: path, BackendName: backendName, Write: write})
}

// WriteBack invokes every registered backend's write closure (spec.md §4.6
// "write_back(options)"; the core does not specify options in detail).
func (inst *Instance) WriteBack() error {
	var errs util.Errors
	for _, wb := range inst.writeBacks {
		if err := wb.Write(inst.rootDir); err != nil {
			errs = util.AppendErr(errs, fmt.Errorf("write_back %s (%s): %w", util.PathString(wb.Path), wb.BackendName, err))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// NeedsSave returns the number of recorded changes since the tree was
// created (spec.md §4.6 "needs_save()").
func (inst *Instance) NeedsSave() int { return inst.needsSave }

// ListChanges returns the change log in recorded order (spec.md §4.6
// "list_changes()").
func (inst *Instance) ListChanges() []ChangeRecord {
	out := make([]ChangeRecord, len(inst.changeLog))
	copy(out, inst.changeLog)
	return out
}

// ListChangesString renders ListChanges with godebug/pretty, the form used
// by the CLI's "changes" subcommand.
func (inst *Instance) ListChangesString() string {
	return util.PrettyTree(inst.ListChanges())
}

// Errors returns a copy of the per-path soft-error map accumulated by
// check=skip/no operations (spec.md §7).
func (inst *Instance) Errors() map[string][]error {
	out := make(map[string][]error, len(inst.errorsByPath))
	for k, v := range inst.errorsByPath {
		out[k] = append([]error{}, v...)
	}
	return out
}

// recordError appends err to path's soft-error list (spec.md §7: "check=skip
// ... an entry is appended to the Instance's per-path error map").
func (inst *Instance) recordError(path *util.Path, err error) {
	ps := util.PathString(path)
	inst.errorsByPath[ps] = append(inst.errorsByPath[ps], err)
}

// warn emits msg for path through glog, exactly once per identical message
// per value; subsequent identical messages drop to V(2) (spec.md §7). The
// dedup set for a path is cleared by recordChange, since the contract is
// "until the value changes".
func (inst *Instance) warn(path *util.Path, msg string) {
	ps := util.PathString(path)
	seen := inst.warnSeen[ps]
	if seen == nil {
		seen = map[string]bool{}
		inst.warnSeen[ps] = seen
	}
	if seen[msg] {
		glog.V(2).Infof("%s: %s", ps, msg)
		return
	}
	seen[msg] = true
	glog.Warningf("%s: %s", ps, msg)
}

// recordChange is the single centralized decision point for whether a
// mutation is logged (spec.md §9: "Implementers must centralize the
// decision [on initial-load mode] in one function — scattering the check is
// the single biggest source of source-code bugs"). force is set by callers
// for the two carve-outs spec.md §5 grants during initial load: a
// model-driven transform changed the incoming value, or two consecutive
// stores conflict.
func (inst *Instance) recordChange(path *util.Path, note string, old, new_ *string, force bool) {
	if old != nil && new_ != nil && *old == *new_ {
		return
	}
	if inst.Mode() == ModeInitialLoad && !force {
		return
	}
	inst.changeLog = append(inst.changeLog, ChangeRecord{Path: path, Note: note, Old: old, New: new_})
	inst.needsSave++
	delete(inst.warnSeen, util.PathString(path))
}

// SetAnnotation attaches a free-text note to path (the Loader's '#text'
// trailer, spec.md §4.4). Annotations are ordinary core state: any backend
// advertising SupportsAnnotation() is expected to round-trip them, but the
// core itself only stores and returns them.
func (inst *Instance) SetAnnotation(path *util.Path, text string) {
	inst.annotations[util.PathString(path)] = text
}

// Annotation returns the note set for path, or "" if none was set.
func (inst *Instance) Annotation(path *util.Path) string {
	return inst.annotations[util.PathString(path)]
}

// walkTree visits every live item reachable from n, depth first, including
// n itself if n is non-nil and has been materialized.
func walkTree(n *Node, visit func(item)) {
	if n == nil {
		return
	}
	for _, it := range n.children {
		visit(it)
		switch v := it.(type) {
		case *Node:
			walkTree(v, visit)
		case *WarpedNode:
			walkTree(v.Node, visit)
		case *IdCollection:
			for _, e := range v.entries {
				switch cargo := e.value.(type) {
				case *Node:
					visit(cargo)
					walkTree(cargo, visit)
				case *Value:
					visit(cargo)
				}
			}
		}
	}
}
