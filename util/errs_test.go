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
	"errors"
	"testing"
)

func TestAppendErr(t *testing.T) {
	tests := []struct {
		desc string
		errs []error
		err  error
		want []error
	}{
		{desc: "nil err not appended", errs: nil, err: nil, want: nil},
		{desc: "err appended", errs: []error{errors.New("a")}, err: errors.New("b"), want: []error{errors.New("a"), errors.New("b")}},
	}
	for _, tt := range tests {
		got := AppendErr(tt.errs, tt.err)
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.desc, got, tt.want)
		}
	}
}

func TestErrorsError(t *testing.T) {
	e := Errors{errors.New("a"), nil, errors.New("b")}
	if got, want := e.Error(), "a, b"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if NewErrs(nil) != nil {
		t.Errorf("NewErrs(nil) should be nil")
	}
}

func TestTreeErrorKindMatching(t *testing.T) {
	err := Errf(KindWrongValue, "a/b", "value %d out of range", 5)
	if !errors.Is(err, &TreeError{Kind: KindWrongValue}) {
		t.Errorf("expected errors.Is to match on Kind")
	}
	if errors.Is(err, &TreeError{Kind: KindModelError}) {
		t.Errorf("expected errors.Is to not match a different Kind")
	}
	if got, want := err.Error(), `WrongValue: value 5 out of range (at a/b)`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoadErrf(t *testing.T) {
	err := LoadErrf("foo:=bar", "unknown command")
	if got, want := err.Error(), `LoadError: unknown command (near "foo:=bar")`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
