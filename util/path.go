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

import "bytes"

// PathStringToElements splits the string s, which represents a slash
// separated path, into its constituent elements. It does not parse
// bracketed keys, which are left unchanged within the path - but removes
// escape characters from element names. The path returned omits any
// leading or trailing empty elements when splitting on the / character.
func PathStringToElements(path string) []string {
	parts := SplitPath(path)
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && path[len(path)-1] == '/' {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// SplitPath splits path across unescaped /. Any / inside square brackets is
// ignored, so that "hash_of_nodes[key=a/b]/elt" splits into
// {"hash_of_nodes[key=a/b]", "elt"}.
func SplitPath(path string) []string {
	var parts []string
	var buf bytes.Buffer

	var inKey, inEscape bool

	var ch rune
	for _, ch = range path {
		switch {
		case ch == '[' && !inEscape:
			inKey = true
		case ch == ']' && !inEscape:
			inKey = false
		case ch == '\\' && !inEscape && !inKey:
			inEscape = true
			continue
		case ch == '/' && !inEscape && !inKey:
			parts = append(parts, buf.String())
			buf.Reset()
			continue
		}

		buf.WriteRune(ch)
		inEscape = false
	}

	if buf.Len() != 0 || (len(path) != 1 && ch == '/') {
		parts = append(parts, buf.String())
	}

	return parts
}

// SlicePathToString concatenates a slice of strings into a / separated path,
// e.g. []string{"", "foo", "bar"} becomes "/foo/bar".
func SlicePathToString(parts []string) string {
	var buf bytes.Buffer
	for i, p := range parts {
		buf.WriteString(p)
		if i != len(parts)-1 {
			buf.WriteRune('/')
		}
	}
	return buf.String()
}
