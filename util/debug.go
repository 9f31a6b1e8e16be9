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
	"reflect"
	"strings"

	"github.com/kylelemons/godebug/pretty"
)

var (
	// debugLibrary controls the debugging output from the library's tree
	// traversal. Since this setting causes global variables to be
	// manipulated, it MUST NOT be used in a setting whereby thread-safety
	// is required.
	debugLibrary = false
	// maxCharsPerLine is the maximum number of characters per line from
	// DbgPrint. Additional characters are truncated.
	maxCharsPerLine = 1000
	// maxValueStrLen is the maximum number of characters output from ValueStr.
	maxValueStrLen = 150
)

// SetDebug turns the package-global trace output on or off. It is a
// process-wide, test-only knob — see spec.md §6 "Environment": the core
// has no global mutable state except this one flag, which is explicitly
// not part of the contract.
func SetDebug(on bool) { debugLibrary = on }

// Debug reports whether SetDebug(true) is currently in effect.
func Debug() bool { return debugLibrary }

// DbgPrint prints v if debug tracing is enabled. v has the same format as
// Printf. A trailing newline is added to the output.
func DbgPrint(v ...interface{}) {
	if !debugLibrary {
		return
	}
	out := fmt.Sprintf(v[0].(string), v[1:]...)
	if len(out) > maxCharsPerLine {
		out = out[:maxCharsPerLine]
	}
	fmt.Println(globalIndent + out)
}

// DbgErr DbgPrints err and returns it.
func DbgErr(err error) error {
	DbgPrint("ERR: " + err.Error())
	return err
}

// globalIndent is used to control Indent level.
var globalIndent = ""

// Indent increases DbgPrint indent level.
func Indent() {
	if !debugLibrary {
		return
	}
	globalIndent += ". "
}

// Dedent decreases DbgPrint indent level.
func Dedent() {
	if !debugLibrary {
		return
	}
	globalIndent = strings.TrimPrefix(globalIndent, ". ")
}

// ResetIndent sets the indent level to zero.
func ResetIndent() {
	if !debugLibrary {
		return
	}
	globalIndent = ""
}

// ValueStrDebug returns "<not calculated>" if debug tracing is disabled.
// Otherwise it is the same as ValueStr. Use this instead of ValueStr when
// the output feeds DbgPrint, since ValueStr can be the bottleneck for
// large inputs that are never actually printed.
func ValueStrDebug(value interface{}) string {
	if !debugLibrary {
		return "<not calculated>"
	}
	return ValueStr(value)
}

// ValueStr returns a string representation of value, which may be a scalar,
// pointer, or slice.
func ValueStr(value interface{}) string {
	out := valueStrInternal(value)
	if len(out) > maxValueStrLen {
		out = out[:maxValueStrLen] + "..."
	}
	return out
}

func valueStrInternal(value interface{}) string {
	if value == nil {
		return "nil"
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() || !v.IsValid() {
			return "nil"
		}
		return strings.Replace(ValueStr(v.Elem().Interface()), ")", " ptr)", -1)
	case reflect.Slice:
		var out string
		for i := 0; i < v.Len(); i++ {
			if i != 0 {
				out += ", "
			}
			out += ValueStr(v.Index(i).Interface())
		}
		return "[ " + out + " ]"
	}
	return fmt.Sprintf("%v (%v)", value, v.Kind())
}

// PrettyTree renders v (typically a model.Node or schema.ConfigClass) as a
// human-readable indented dump, used by the Instance.ListChanges formatter
// and by the CLI's "dump" subcommand.
func PrettyTree(v interface{}) string {
	return pretty.Sprint(v)
}
