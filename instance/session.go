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

// Package instance wires a model.Instance to a named set of backends
// (spec.md §2 "BackendMgr ... invoked by Instance", §6 "Backend
// interface"). It is the thin orchestration layer SPEC_FULL.md's MODULE
// LAYOUT splits out of model/ precisely because it imports backend/, which
// model/ must not.
package instance

import (
	"fmt"

	"github.com/conftree/confmodel/backend"
	"github.com/conftree/confmodel/model"
	"github.com/conftree/confmodel/schema"
	"github.com/conftree/confmodel/util"
)

// rwBinding is one rw_config site discovered by walking the catalog:
// names is the sequence of element names from the root down to the node
// carrying the spec (empty for a class-level rw_config).
type rwBinding struct {
	names       []string
	backendName string
	file        string
}

// Session owns one model.Instance plus the backend registry that
// populates and writes back its rw_config subtrees.
type Session struct {
	inst     *model.Instance
	backends map[string]backend.Backend
	bindings []rwBinding
}

// New creates a Session over a freshly built model.Instance for className
// in cat, rooted at rootDir on disk. backends maps rw_config's backend_name
// to a concrete backend.Backend (e.g. "file" -> backend.FileBackend{}).
func New(cat *schema.Catalog, className, rootDir string, backends map[string]backend.Backend) (*Session, error) {
	inst, err := model.NewInstance(cat, className, rootDir)
	if err != nil {
		return nil, err
	}
	class, _ := cat.Get(className)
	s := &Session{inst: inst, backends: backends}
	if class.RWConfig != nil {
		s.bindings = append(s.bindings, rwBinding{backendName: class.RWConfig.Backend, file: class.RWConfig.File})
	}
	for _, e := range class.Elements {
		s.discoverBindings(e, nil)
	}
	return s, nil
}

func (s *Session) discoverBindings(e *schema.Element, prefix []string) {
	path := append(append([]string{}, prefix...), e.Name)
	if e.Kind == schema.KindNode {
		if e.RWConfig != nil {
			s.bindings = append(s.bindings, rwBinding{names: path, backendName: e.RWConfig.Backend, file: e.RWConfig.File})
		}
		for _, c := range e.Elements {
			s.discoverBindings(c, path)
		}
	}
}

// Init performs the initial load (spec.md §2 "Backends populate the tree
// ... in initial-load mode"): every discovered rw_config node is
// materialized and populated from its backend, then a write-back closure
// is registered for it.
func (s *Session) Init() error {
	s.inst.InitialLoadStart()
	defer s.inst.InitialLoadStop()

	for _, b := range s.bindings {
		be, ok := s.backends[b.backendName]
		if !ok {
			return fmt.Errorf("instance: no backend registered for %q", b.backendName)
		}
		node, err := s.navigate(b.names)
		if err != nil {
			return err
		}
		if err := be.Read(node, s.inst.RootDir(), b.file, model.CheckYes); err != nil {
			return err
		}
		file, backendName := b.file, b.backendName
		s.inst.RegisterWriteBack(node.Path(), backendName, func(rootDir string) error {
			return be.Write(node, rootDir, file, 0o644)
		})
	}
	return nil
}

func (s *Session) navigate(names []string) (*model.Node, error) {
	n := s.inst.Root()
	for _, name := range names {
		it, err := n.FetchElement(name, model.CheckYes, true, true)
		if err != nil {
			return nil, err
		}
		switch v := it.(type) {
		case *model.Node:
			n = v
		case *model.WarpedNode:
			n = v.Node
		default:
			return nil, util.Errf(util.KindWrongType, util.PathString(n.Path()), "%q is not a node", name)
		}
	}
	return n, nil
}

// Root returns the tree's root Node.
func (s *Session) Root() *model.Node { return s.inst.Root() }

// Instance returns the underlying model.Instance, for callers (the Loader,
// tests) that need mode/change-log access beyond what Session exposes.
func (s *Session) Instance() *model.Instance { return s.inst }

// WriteBack invokes every registered backend's write closure.
func (s *Session) WriteBack() error { return s.inst.WriteBack() }

// NeedsSave reports the number of recorded changes since the tree was
// created (spec.md §4.6 "needs_save()").
func (s *Session) NeedsSave() int { return s.inst.NeedsSave() }

// ListChanges returns the change log in recorded order.
func (s *Session) ListChanges() []model.ChangeRecord { return s.inst.ListChanges() }

// ListChangesString renders ListChanges with godebug/pretty (spec.md §4.6
// "list_changes() formatted log").
func (s *Session) ListChangesString() string { return s.inst.ListChangesString() }

// PresetStart/PresetStop bracket a region of stores that land in the
// preset slot (spec.md §4.6).
func (s *Session) PresetStart() { s.inst.PresetStart() }
func (s *Session) PresetStop()  { s.inst.PresetStop() }

// LayeredStart/LayeredStop/LayeredClear bracket and reset the layered
// slot region (spec.md §4.6).
func (s *Session) LayeredStart() { s.inst.LayeredStart() }
func (s *Session) LayeredStop()  { s.inst.LayeredStop() }
func (s *Session) LayeredClear() { s.inst.LayeredClear() }
