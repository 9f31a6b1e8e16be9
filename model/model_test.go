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
	"testing"

	"github.com/conftree/confmodel/schema"
)

func TestModeStackNesting(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{schema.Leaf("a", schema.TypeString)})
	if inst.Mode() != ModeNormal {
		t.Fatalf("Mode() = %v, want normal", inst.Mode())
	}
	inst.PresetStart()
	if inst.Mode() != ModePreset {
		t.Fatalf("Mode() = %v, want preset", inst.Mode())
	}
	inst.LayeredStart()
	if inst.Mode() != ModeLayered {
		t.Fatalf("Mode() = %v, want layered", inst.Mode())
	}
	inst.LayeredStop()
	if inst.Mode() != ModePreset {
		t.Fatalf("Mode() = %v, want preset after layered stop", inst.Mode())
	}
	inst.PresetStop()
	if inst.Mode() != ModeNormal {
		t.Fatalf("Mode() = %v, want normal after preset stop", inst.Mode())
	}
}

func TestInitialLoadSuppressesChangeLog(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{schema.Leaf("a", schema.TypeString)})
	v := leafValue(t, inst, "a")

	inst.InitialLoadStart()
	if err := v.Store("x", CheckYes, false); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	inst.InitialLoadStop()

	if got := inst.NeedsSave(); got != 0 {
		t.Errorf("NeedsSave() = %d, want 0 during initial load", got)
	}
	if got := len(inst.ListChanges()); got != 0 {
		t.Errorf("len(ListChanges()) = %d, want 0 during initial load", got)
	}

	if err := v.Store("y", CheckYes, false); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	if got := inst.NeedsSave(); got != 1 {
		t.Errorf("NeedsSave() = %d, want 1 after normal-mode store", got)
	}
	if got := len(inst.ListChanges()); got != 1 {
		t.Errorf("len(ListChanges()) = %d, want 1", got)
	}
}

func TestInitialLoadConflictForcesLog(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{schema.Leaf("a", schema.TypeString)})
	v := leafValue(t, inst, "a")

	inst.InitialLoadStart()
	if err := v.Store("x", CheckYes, false); err != nil {
		t.Fatalf("Store(x) = %v", err)
	}
	if err := v.Store("y", CheckYes, false); err != nil {
		t.Fatalf("Store(y) = %v", err)
	}
	inst.InitialLoadStop()

	if got := inst.NeedsSave(); got != 1 {
		t.Errorf("NeedsSave() = %d, want 1 (conflicting initial-load stores are logged)", got)
	}
}

func TestRecordErrorPerPath(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{
		schema.Leaf("n", schema.TypeInteger),
	})
	v := leafValue(t, inst, "n")
	if err := v.Store("not-a-number", CheckNo, false); err != nil {
		t.Fatalf("Store(check=no) = %v, want nil (error recorded, not returned)", err)
	}
	errs := inst.Errors()
	total := 0
	for _, list := range errs {
		total += len(list)
	}
	if total != 1 {
		t.Errorf("total recorded errors = %d, want 1", total)
	}
}

func TestWriteBackInvokesRegisteredBackends(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{schema.Leaf("a", schema.TypeString)})
	called := false
	inst.RegisterWriteBack(inst.Root().Path(), "file", func(rootDir string) error {
		called = true
		return nil
	})
	if err := inst.WriteBack(); err != nil {
		t.Fatalf("WriteBack() = %v", err)
	}
	if !called {
		t.Errorf("registered write-back closure was not invoked")
	}
}

func TestListChangesStringNonEmpty(t *testing.T) {
	inst := newTestInstance(t, []*schema.Element{schema.Leaf("a", schema.TypeString)})
	v := leafValue(t, inst, "a")
	if err := v.Store("x", CheckYes, false); err != nil {
		t.Fatalf("Store() = %v", err)
	}
	if got := inst.ListChangesString(); got == "" {
		t.Errorf("ListChangesString() = %q, want non-empty", got)
	}
}
