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

package util

import (
	"fmt"

	gpb "github.com/openconfig/gnmi/proto/gnmi"
)

// Path is the canonical location of a tree element: a Node element, a
// collection entry, or a leaf. It is a thin alias over *gpb.Path so that
// the model, instance and loader packages all agree on one representation
// for the change log, error map keys and the Loader's "/name" navigation
// target.
type Path = gpb.Path

// PathElem is one step of a Path: a plain element name, or (within an
// IdCollection) an element name plus its index carried in Key["id"].
type PathElem = gpb.PathElem

// NewPath returns a Path made of plain-name elements.
func NewPath(names ...string) *Path {
	p := &Path{}
	for _, n := range names {
		p.Elem = append(p.Elem, &PathElem{Name: n})
	}
	return p
}

// AppendElem returns a new Path with elem appended; the receiver is not
// mutated.
func AppendElem(p *Path, elem *PathElem) *Path {
	out := &Path{Origin: p.GetOrigin(), Target: p.GetTarget()}
	out.Elem = append(append([]*PathElem{}, p.GetElem()...), elem)
	return out
}

// AppendName is a convenience wrapper around AppendElem for a plain name.
func AppendName(p *Path, name string) *Path {
	return AppendElem(p, &PathElem{Name: name})
}

// AppendIndex is a convenience wrapper around AppendElem for a collection
// entry, where name is the collection's element name and idx is the
// stringified index (hash key or list position).
func AppendIndex(p *Path, name, idx string) *Path {
	return AppendElem(p, &PathElem{Name: name, Key: map[string]string{"id": idx}})
}

// PopPath returns path with the first element removed. If path is empty it
// returns an empty path. Used by the Loader's navigation pop ("-").
func PopPath(path *Path) *Path {
	if len(path.GetElem()) == 0 {
		return path
	}
	return &Path{Elem: path.GetElem()[1:]}
}

// PathString renders a Path in "a/b[id=c]/d" form, the form used by the
// change log and the CLI.
func PathString(p *Path) string {
	var parts []string
	for _, e := range p.GetElem() {
		s := e.GetName()
		for k, v := range e.GetKey() {
			s += fmt.Sprintf("[%s=%s]", k, v)
		}
		parts = append(parts, s)
	}
	return SlicePathToString(append([]string{""}, parts...))
}
