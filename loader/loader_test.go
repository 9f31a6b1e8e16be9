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
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/conftree/confmodel/model"
	"github.com/conftree/confmodel/schema"
)

// loaderTestClass builds the class spec.md §8's scenarios 4 and 5 are
// phrased against: a plain (leaf-cargo) hash, a bounded (leaf-cargo) list,
// a hash of nodes each carrying a "foo" and a "bar" leaf, and a hash of
// nodes ("std_id") each carrying "DX" and "int_v" leaves.
func loaderTestClass() *schema.ConfigClass {
	return schema.Class("Root", []*schema.Element{
		schema.Hash("plain_hash", schema.Leaf("entry", schema.TypeString)),
		schema.List("bounded_list", schema.Leaf("entry", schema.TypeString), schema.WithMaxNb(10)),
		schema.Hash("hash_of_nodes", schema.Node("entry", []*schema.Element{
			schema.Leaf("foo", schema.TypeString),
			schema.Leaf("bar", schema.TypeString),
		})),
		schema.Hash("std_id", schema.Node("entry", []*schema.Element{
			schema.Leaf("DX", schema.TypeString),
			schema.Leaf("int_v", schema.TypeInteger),
		})),
	})
}

func newLoaderTestInstance(t *testing.T) *model.Instance {
	t.Helper()
	cat := schema.NewCatalog()
	if err := cat.Register(loaderTestClass()); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	inst, err := model.NewInstance(cat, "Root", t.TempDir())
	if err != nil {
		t.Fatalf("NewInstance() = %v", err)
	}
	return inst
}

func mustFetchString(t *testing.T, v *model.Value) string {
	t.Helper()
	s, _, err := v.Fetch(model.FetchUser, model.CheckYes, true)
	if err != nil {
		t.Fatalf("Fetch() = %v", err)
	}
	return s
}

// TestLoaderSequence is spec.md §8 scenario 4.
func TestLoaderSequence(t *testing.T) {
	inst := newLoaderTestInstance(t)
	program := `plain_hash:foo=boo bounded_list=foo,bar,baz hash_of_nodes:"foo node" foo="in foo node" - hash_of_nodes:"bar node" bar="in bar node"`

	exec := NewExecutor(inst, model.CheckYes)
	if err := exec.Run(inst.Root(), program); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	phIt, err := inst.Root().FetchElement("plain_hash", model.CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(plain_hash) = %v", err)
	}
	ph := phIt.(*model.IdCollection)
	fooEntry, err := ph.Get("foo", model.CheckYes)
	if err != nil {
		t.Fatalf("Get(foo) = %v", err)
	}
	if got := mustFetchString(t, fooEntry.(*model.Value)); got != "boo" {
		t.Errorf(`plain_hash["foo"] = %q, want "boo"`, got)
	}

	blIt, err := inst.Root().FetchElement("bounded_list", model.CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(bounded_list) = %v", err)
	}
	bl := blIt.(*model.IdCollection)
	keys := bl.Keys()
	if len(keys) != 3 {
		t.Fatalf("bounded_list has %d entries, want 3: %v", len(keys), keys)
	}
	want := []string{"foo", "bar", "baz"}
	for i, k := range keys {
		e, err := bl.Get(k, model.CheckYes)
		if err != nil {
			t.Fatalf("Get(%s) = %v", k, err)
		}
		if got := mustFetchString(t, e.(*model.Value)); got != want[i] {
			t.Errorf("bounded_list[%d] = %q, want %q", i, got, want[i])
		}
	}

	honIt, err := inst.Root().FetchElement("hash_of_nodes", model.CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(hash_of_nodes) = %v", err)
	}
	hon := honIt.(*model.IdCollection)
	fooNodeIt, err := hon.Get("foo node", model.CheckYes)
	if err != nil {
		t.Fatalf("Get(foo node) = %v", err)
	}
	fooLeafIt, err := fooNodeIt.(*model.Node).FetchElement("foo", model.CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(foo) = %v", err)
	}
	if got := mustFetchString(t, fooLeafIt.(*model.Value)); got != "in foo node" {
		t.Errorf(`hash_of_nodes["foo node"].foo = %q, want "in foo node"`, got)
	}

	barNodeIt, err := hon.Get("bar node", model.CheckYes)
	if err != nil {
		t.Fatalf("Get(bar node) = %v", err)
	}
	barLeafIt, err := barNodeIt.(*model.Node).FetchElement("bar", model.CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(bar) = %v", err)
	}
	if got := mustFetchString(t, barLeafIt.(*model.Value)); got != "in bar node" {
		t.Errorf(`hash_of_nodes["bar node"].bar = %q, want "in bar node"`, got)
	}
}

// TestLoaderRegexLoop is spec.md §8 scenario 5.
func TestLoaderRegexLoop(t *testing.T) {
	inst := newLoaderTestInstance(t)
	// Seed three std_id entries, two of which are "word" keys the loop's
	// pattern matches and one of which (with a space) is not.
	stdIt, err := inst.Root().FetchElement("std_id", model.CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(std_id) = %v", err)
	}
	std := stdIt.(*model.IdCollection)
	for _, k := range []string{"alpha", "beta", "not a word"} {
		if _, err := std.Get(k, model.CheckYes); err != nil {
			t.Fatalf("Get(%s) = %v", k, err)
		}
	}

	exec := NewExecutor(inst, model.CheckYes)
	if err := exec.Run(inst.Root(), `std_id:~/^\w+$/ DX=Bv int_v=9`); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	for _, k := range []string{"alpha", "beta"} {
		entry, err := std.Get(k, model.CheckYes)
		if err != nil {
			t.Fatalf("Get(%s) = %v", k, err)
		}
		n := entry.(*model.Node)
		dxIt, err := n.FetchElement("DX", model.CheckYes, false, false)
		if err != nil {
			t.Fatalf("FetchElement(DX) = %v", err)
		}
		if got := mustFetchString(t, dxIt.(*model.Value)); got != "Bv" {
			t.Errorf("std_id[%s].DX = %q, want \"Bv\"", k, got)
		}
		ivIt, err := n.FetchElement("int_v", model.CheckYes, false, false)
		if err != nil {
			t.Fatalf("FetchElement(int_v) = %v", err)
		}
		if got := mustFetchString(t, ivIt.(*model.Value)); got != "9" {
			t.Errorf("std_id[%s].int_v = %q, want \"9\"", k, got)
		}
	}

	notWord, err := std.Get("not a word", model.CheckYes)
	if err != nil {
		t.Fatalf("Get(not a word) = %v", err)
	}
	dxIt, err := notWord.(*model.Node).FetchElement("DX", model.CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(DX) = %v", err)
	}
	if got, has, _ := dxIt.(*model.Value).Fetch(model.FetchUser, model.CheckYes, true); has {
		t.Errorf(`std_id["not a word"].DX = %q, want unset (key doesn't match the loop pattern)`, got)
	}
}

// TestLoaderRegexLoopConfinedByPop exercises spec.md §4.4's "a '-' that
// would pop above the loop terminates the loop for that iteration" rule: a
// bare '-' between DX and int_v confines the second store to nothing,
// since it pops back to the loop-starting node (the collection's parent)
// rather than staying inside the just-entered entry.
func TestLoaderRegexLoopConfinedByPop(t *testing.T) {
	inst := newLoaderTestInstance(t)
	stdIt, _ := inst.Root().FetchElement("std_id", model.CheckYes, false, false)
	std := stdIt.(*model.IdCollection)
	if _, err := std.Get("alpha", model.CheckYes); err != nil {
		t.Fatalf("Get(alpha) = %v", err)
	}

	exec := NewExecutor(inst, model.CheckYes)
	if err := exec.Run(inst.Root(), `std_id:~/^\w+$/ DX=Bv - int_v=9`); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	entry, _ := std.Get("alpha", model.CheckYes)
	n := entry.(*model.Node)
	dxIt, _ := n.FetchElement("DX", model.CheckYes, false, false)
	if got := mustFetchString(t, dxIt.(*model.Value)); got != "Bv" {
		t.Errorf("std_id[alpha].DX = %q, want \"Bv\"", got)
	}

	ivIt, err := n.FetchElement("int_v", model.CheckYes, false, false)
	if err != nil {
		t.Fatalf("FetchElement(int_v) = %v", err)
	}
	if _, has, _ := ivIt.(*model.Value).Fetch(model.FetchUser, model.CheckYes, true); has {
		t.Errorf("std_id[alpha].int_v should be unset: the '-' before it exits the loop's tail before int_v=9 runs")
	}
}

// TestDumpRoundTrips is spec.md §6/§8: load(dump(tree)) == tree up to
// element order.
func TestDumpRoundTrips(t *testing.T) {
	inst := newLoaderTestInstance(t)
	exec := NewExecutor(inst, model.CheckYes)
	program := `plain_hash:foo=boo bounded_list=foo,bar,baz hash_of_nodes:"foo node" foo="in foo node" -`
	if err := exec.Run(inst.Root(), program); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	dumped := Dump(inst.Root())

	replay := newLoaderTestInstance(t)
	replayExec := NewExecutor(replay, model.CheckYes)
	if err := replayExec.Run(replay.Root(), dumped); err != nil {
		t.Fatalf("Run(dump) = %v", err)
	}

	if redumped := Dump(replay.Root()); redumped != dumped {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(dumped),
			B:        difflib.SplitLines(redumped),
			FromFile: "dump",
			ToFile:   "redump",
			Context:  1,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Errorf("dump is not a fixed point:\n%s", text)
	}
}

func TestParseAnnotation(t *testing.T) {
	cmds, err := Parse(`host="example.com"#primary front-end`)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("Parse() = %d commands, want 2 (the annotation text is a separate word)", len(cmds))
	}
	c := cmds[0]
	if c.Kind != KindStore || c.Name != "host" || c.Value != "example.com" {
		t.Fatalf("cmds[0] = %+v, want a host=example.com store", c)
	}
	if !c.HasAnnotation || c.Annotation != "primary" {
		t.Errorf("cmds[0].Annotation = %q, want %q", c.Annotation, "primary")
	}
}

func TestParseClearAndSubst(t *testing.T) {
	cmds, err := Parse(`a~ b=~s/foo/bar/i`)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if cmds[0].Kind != KindClear || cmds[0].Name != "a" {
		t.Fatalf("cmds[0] = %+v, want a clear of \"a\"", cmds[0])
	}
	if cmds[1].Kind != KindSubst || cmds[1].Name != "b" || cmds[1].Repl != "bar" {
		t.Fatalf("cmds[1] = %+v, want a substitution on \"b\"", cmds[1])
	}
	if !cmds[1].Pattern.MatchString("FOO") {
		t.Errorf("substitution pattern %v should match case-insensitively", cmds[1].Pattern)
	}
}
