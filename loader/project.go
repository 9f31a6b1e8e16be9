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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/conftree/confmodel/util"
)

// project resolves a KindProject command's external source into the
// string a leaf's Store will receive (spec.md §4.4's "=.file"/"=.json"/
// "=.yaml"/"=.env" subactions). Unlike backend.FileBackend, which stores a
// whole subtree, a projection always yields exactly one scalar; a source
// whose shape doesn't reduce to one is an error rather than a guess (spec.md
// §9's Open Question on "=.json path" is resolved here: a path with no
// trailing key, or one that resolves to a mapping/sequence rather than a
// scalar, raises load_data_error instead of picking an arbitrary entry).
func project(rootDir string, cmd *Command) (string, error) {
	switch cmd.Method {
	case "file":
		path := arg(cmd.Args, 0)
		raw, err := os.ReadFile(filepath.Join(rootDir, path))
		if err != nil {
			return "", util.Errf(util.KindLoadError, "", "=.file(%s): %v", path, err)
		}
		return string(raw), nil
	case "env":
		name := arg(cmd.Args, 0)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", util.Errf(util.KindLoadDataError, "", "=.env(%s): not set", name)
		}
		return v, nil
	case "json", "yaml":
		return projectStructured(rootDir, cmd)
	default:
		return "", util.Errf(util.KindSyntaxError, "", "unknown projection %q", cmd.Method)
	}
}

// projectStructured implements "=.json(file, key1, key2, ...)" and
// "=.yaml(...)": read file, then descend into the decoded document one key
// at a time (a map key by name, a sequence index by integer). The document
// must decode through the whole descent; the final value must be a scalar.
func projectStructured(rootDir string, cmd *Command) (string, error) {
	if len(cmd.Args) == 0 {
		return "", util.Errf(util.KindSyntaxError, "", "=.%s requires a file argument", cmd.Method)
	}
	path := cmd.Args[0]
	raw, err := os.ReadFile(filepath.Join(rootDir, path))
	if err != nil {
		return "", util.Errf(util.KindLoadError, "", "=.%s(%s): %v", cmd.Method, path, err)
	}
	var doc any
	var decodeErr error
	if cmd.Method == "json" {
		decodeErr = json.Unmarshal(raw, &doc)
	} else {
		decodeErr = yaml.Unmarshal(raw, &doc)
	}
	if decodeErr != nil {
		return "", util.Errf(util.KindLoadDataError, "", "=.%s(%s): %v", cmd.Method, path, decodeErr)
	}
	cur := doc
	for _, key := range cmd.Args[1:] {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[key]
			if !ok {
				return "", util.Errf(util.KindLoadDataError, "", "=.%s(%s): no key %q", cmd.Method, path, key)
			}
			cur = next
		case []any:
			idx, ok := atoi(key)
			if !ok || idx < 0 || idx >= len(v) {
				return "", util.Errf(util.KindLoadDataError, "", "=.%s(%s): bad index %q", cmd.Method, path, key)
			}
			cur = v[idx]
		default:
			return "", util.Errf(util.KindLoadDataError, "", "=.%s(%s): %q does not address a container", cmd.Method, path, key)
		}
	}
	switch v := cur.(type) {
	case string:
		return v, nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	case nil:
		return "", nil
	default:
		return "", util.Errf(util.KindLoadDataError, "", "=.%s(%s): value is not a scalar", cmd.Method, path)
	}
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
