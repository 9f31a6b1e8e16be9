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
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/testing/protocmp"
)

func TestAppendIndex(t *testing.T) {
	p := NewPath("root", "hash_of_nodes")
	got := AppendIndex(p, "hash_of_nodes", "foo node")
	want := NewPath("root", "hash_of_nodes")
	want.Elem = append(want.Elem, &PathElem{Name: "hash_of_nodes", Key: map[string]string{"id": "foo node"}})

	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("AppendIndex() diff (-want +got):\n%s", diff)
	}
}

func TestPopPath(t *testing.T) {
	p := NewPath("a", "b", "c")
	got := PopPath(p)
	want := NewPath("b", "c")
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("PopPath() diff (-want +got):\n%s", diff)
	}
}

func TestPathString(t *testing.T) {
	p := AppendIndex(NewPath("root"), "hash_of_nodes", "foo node")
	if got, want := PathString(p), "/root/hash_of_nodes[id=foo node]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
