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
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "/a/b/c", want: []string{"", "a", "b", "c"}},
		{in: "a/b[id=c/d]/e", want: []string{"a", "b[id=c/d]", "e"}},
	}
	for _, tt := range tests {
		got := SplitPath(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitPath(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPathStringToElements(t *testing.T) {
	got := PathStringToElements("/a/b/c")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSlicePathToString(t *testing.T) {
	got := SlicePathToString([]string{"", "foo", "bar"})
	if want := "/foo/bar"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
