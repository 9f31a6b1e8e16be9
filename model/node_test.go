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
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/conftree/confmodel/schema"
)

func TestFetchElementUnknown(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{schema.Leaf("foo", schema.TypeString)})
	if _, err := inst.Root().FetchElement("bar", CheckYes, false, false); err == nil {
		t.Fatalf("FetchElement(bar) err = nil, want UnknownElement")
	}
	if it, err := inst.Root().FetchElement("bar", CheckSkip, false, false); err != nil || it != nil {
		t.Errorf("FetchElement(bar, skip) = %v, %v, want nil, nil", it, err)
	}
}

func TestFetchElementHiddenRequiresAcceptHidden(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{
		schema.Leaf("secret", schema.TypeString, schema.WithLevel(schema.LevelHidden)),
	})
	if _, err := inst.Root().FetchElement("secret", CheckYes, false, false); err == nil {
		t.Fatalf("FetchElement(secret) err = nil, want hidden error")
	}
	if _, err := inst.Root().FetchElement("secret", CheckYes, false, true); err != nil {
		t.Fatalf("FetchElement(secret, acceptHidden) = %v, want nil", err)
	}
}

func TestFetchElementObsolete(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{
		schema.Leaf("old", schema.TypeString, schema.WithStatus(schema.StatusObsolete)),
	})
	if _, err := inst.Root().FetchElement("old", CheckYes, false, false); err == nil {
		t.Fatalf("FetchElement(old) err = nil, want obsolete error")
	}
}

func TestAcceptSplicesElement(t *testing.T) {
	tmpl := schema.Leaf("", schema.TypeString)
	inst := newTestInstance(t, []*schema.Element{
		schema.Node("n", nil, schema.WithAccept(schema.AcceptRule{
			Pattern:  regexp.MustCompile(`^x_`),
			Template: tmpl,
		})),
	})
	n, err := inst.Root().FetchElement("n", CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(n) = %v", err)
	}
	node := n.(*Node)
	it, err := node.FetchElement("x_custom", CheckYes, true, false)
	if err != nil {
		t.Fatalf("FetchElement(x_custom) = %v", err)
	}
	if _, ok := it.(*Value); !ok {
		t.Fatalf("FetchElement(x_custom) = %T, want *Value", it)
	}
	if !node.HasElement("x_custom") {
		t.Errorf("HasElement(x_custom) = false, want true after Accept splice")
	}
}

func TestChildrenExcludesHiddenByDefault(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{
		schema.Leaf("a", schema.TypeString),
		schema.Leaf("b", schema.TypeString, schema.WithLevel(schema.LevelHidden)),
		schema.Leaf("c", schema.TypeString, schema.WithStatus(schema.StatusDeprecated)),
	})
	if diff := cmp.Diff([]string{"a"}, inst.Root().Children(false)); diff != "" {
		t.Errorf("Children(false) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, inst.Root().Children(true)); diff != "" {
		t.Errorf("Children(true) mismatch (-want +got):\n%s", diff)
	}
}

func TestGistSubstitutesValues(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{
		schema.Node("n", []*schema.Element{
			schema.Leaf("name", schema.TypeString, schema.WithDefault("widget")),
		}, schema.WithGist("element {name}")),
	})
	n, err := inst.Root().FetchElement("n", CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(n) = %v", err)
	}
	node := n.(*Node)
	if got, want := node.Gist(), "element widget"; got != want {
		t.Errorf("Gist() = %q, want %q", got, want)
	}
}

func TestComputeResolvesSiblingValue(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{
		schema.Leaf("base", schema.TypeInteger, schema.WithDefault("10")),
		schema.Leaf("derived", schema.TypeInteger, schema.WithCompute(&schema.ComputeSpec{
			Variables: []string{"../base"},
			Formula: func(vars []string) (string, error) {
				return vars[0] + "0", nil
			},
		})),
	})
	v := leafValue(t, inst, "derived")
	if got, _, err := v.Fetch(FetchUser, CheckYes, false); err != nil || got != "100" {
		t.Errorf("Fetch(derived) = %q, %v, want 100, nil", got, err)
	}
}

func TestNavigateRootAndParent(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{
		schema.Leaf("top", schema.TypeString, schema.WithDefault("T")),
		schema.Node("child", []*schema.Element{
			schema.Leaf("leaf", schema.TypeString, schema.WithDefault("L")),
		}),
	})
	childIt, err := inst.Root().FetchElement("child", CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(child) = %v", err)
	}
	child := childIt.(*Node)
	s, err := child.resolveValuePath("/top")
	if err != nil || s != "T" {
		t.Errorf("resolveValuePath(/top) = %q, %v, want T, nil", s, err)
	}
	leafIt, err := child.FetchElement("leaf", CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(leaf) = %v", err)
	}
	leafNode := leafIt.(*Value).parent
	s2, err := leafNode.resolveValuePath("../top")
	if err != nil || s2 != "T" {
		t.Errorf("resolveValuePath(../top) = %q, %v, want T, nil", s2, err)
	}
}
