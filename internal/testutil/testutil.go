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

// Package testutil collects small test-only helpers shared across this
// module's _test.go files, in the spirit of the teacher's internal
// testutil/ytestutil packages.
package testutil

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/kr/pretty"
)

// DiffString returns a failure message for want vs got: a go-cmp diff when
// one exists, followed by a kr/pretty "%# v" dump of each side so a test
// failure shows both the structural diff and the full value, the way the
// teacher's ytestutil prints field values for intergration-test failures.
func DiffString(want, got interface{}) string {
	diff := cmp.Diff(want, got)
	if diff == "" {
		return ""
	}
	return fmt.Sprintf("mismatch (-want +got):\n%s\nwant: %# v\ngot:  %# v", diff, pretty.Formatter(want), pretty.Formatter(got))
}
