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

package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/conftree/confmodel/model"
	"github.com/conftree/confmodel/util"
)

// FileBackend is a whole-subtree YAML backend (spec.md §6): it reads one
// file into a generic map/slice shape with gopkg.in/yaml.v3, the same
// decode-to-any approach the pack's awsqed-config-formatter uses before
// walking a compose file, and stores each leaf/collection entry through the
// node's normal store operations so every Value validator still runs.
type FileBackend struct{}

func (FileBackend) SupportsAnnotation() bool { return false }

// Read implements Backend.Read.
func (FileBackend) Read(node *model.Node, configDir, file string, check model.CheckMode) error {
	raw, err := os.ReadFile(filepath.Join(configDir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return util.Errf(util.KindLoadError, "", "read %s: %v", file, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return util.Errf(util.KindLoadDataError, "", "parse %s: %v", file, err)
	}
	return storeMap(node, doc, check)
}

// Write implements Backend.Write.
func (FileBackend) Write(node *model.Node, configDir, file string, mode os.FileMode) error {
	doc, err := dumpNode(node)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", file, err)
	}
	path := filepath.Join(configDir, file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, out, mode)
}

// storeMap stores each key of doc into node, dispatching on the live
// element's kind the way instance/Session.Init drives initial load.
func storeMap(node *model.Node, doc map[string]any, check model.CheckMode) error {
	for name, raw := range doc {
		it, err := node.FetchElement(name, check, true, false)
		if err != nil {
			return err
		}
		if it == nil {
			continue
		}
		if err := storeItem(it, raw, check); err != nil {
			return err
		}
	}
	return nil
}

func storeItem(it any, raw any, check model.CheckMode) error {
	switch target := it.(type) {
	case *model.Value:
		s, err := scalarString(raw)
		if err != nil {
			return err
		}
		return target.Store(s, check, false)
	case *model.Node:
		m, ok := raw.(map[string]any)
		if !ok {
			return util.Errf(util.KindLoadDataError, "", "expected a mapping at %s, got %T", util.PathString(target.Path()), raw)
		}
		return storeMap(target, m, check)
	case *model.WarpedNode:
		m, ok := raw.(map[string]any)
		if !ok {
			return util.Errf(util.KindLoadDataError, "", "expected a mapping at %s, got %T", util.PathString(target.Path()), raw)
		}
		return storeMap(target.Node, m, check)
	case *model.IdCollection:
		return storeCollection(target, raw, check)
	default:
		return util.Errf(util.KindModelError, "", "unhandled cargo kind %T", it)
	}
}

func storeCollection(c *model.IdCollection, raw any, check model.CheckMode) error {
	if c.IsList() {
		list, ok := raw.([]any)
		if !ok {
			return util.Errf(util.KindLoadDataError, "", "expected a sequence at %s, got %T", util.PathString(c.Path()), raw)
		}
		for i, v := range list {
			it, err := c.Get(strconv.Itoa(i), check)
			if err != nil || it == nil {
				return err
			}
			if err := storeItem(it, v, check); err != nil {
				return err
			}
		}
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return util.Errf(util.KindLoadDataError, "", "expected a mapping at %s, got %T", util.PathString(c.Path()), raw)
	}
	for k, v := range m {
		it, err := c.Get(k, check)
		if err != nil || it == nil {
			return err
		}
		if err := storeItem(it, v, check); err != nil {
			return err
		}
	}
	return nil
}

func scalarString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool, int, int64, float64:
		return fmt.Sprint(v), nil
	case nil:
		return "", nil
	default:
		return "", util.Errf(util.KindLoadDataError, "", "cannot store non-scalar %T as a leaf value", raw)
	}
}

// dumpNode is the inverse of storeMap, building a generic shape for
// yaml.Marshal from node's current live content (spec.md §6 "write(node,
// config_dir, file, file_mode)").
func dumpNode(node *model.Node) (map[string]any, error) {
	out := map[string]any{}
	for _, name := range node.Children(true) {
		it, err := node.FetchElement(name, model.CheckNo, false, true)
		if err != nil || it == nil {
			continue
		}
		v, err := dumpItem(it)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[name] = v
		}
	}
	return out, nil
}

func dumpItem(it any) (any, error) {
	switch target := it.(type) {
	case *model.Value:
		s, has, err := target.Fetch(model.FetchUser, model.CheckNo, true)
		if err != nil || !has {
			return nil, err
		}
		return s, nil
	case *model.Node:
		return dumpNode(target)
	case *model.WarpedNode:
		return dumpNode(target.Node)
	case *model.IdCollection:
		return dumpCollection(target)
	default:
		return nil, util.Errf(util.KindModelError, "", "unhandled cargo kind %T", it)
	}
}

func dumpCollection(c *model.IdCollection) (any, error) {
	keys := c.Keys()
	if c.IsList() {
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			it, err := c.Get(k, model.CheckNo)
			if err != nil || it == nil {
				continue
			}
			v, err := dumpItem(it)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	out := map[string]any{}
	for _, k := range keys {
		it, err := c.Get(k, model.CheckNo)
		if err != nil || it == nil {
			continue
		}
		v, err := dumpItem(it)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
