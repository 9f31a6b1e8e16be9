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

package schema

import "fmt"

// Catalog maps class names to their ConfigClass (spec.md §2: "Instance
// creates the root Node lazily from a ConfigClass catalog (schema)").
type Catalog struct {
	classes map[string]*ConfigClass
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{classes: make(map[string]*ConfigClass)}
}

// Register adds c to the catalog, validating it first. It returns an error
// (rather than panicking) because a bad catalog is a ModelError, not an
// Internal bug — see spec.md §7.
func (cat *Catalog) Register(c *ConfigClass) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, exists := cat.classes[c.Name]; exists {
		return fmt.Errorf("schema: class %q already registered", c.Name)
	}
	cat.classes[c.Name] = c
	return nil
}

// Get returns the class named name, or nil, ok=false.
func (cat *Catalog) Get(name string) (*ConfigClass, bool) {
	c, ok := cat.classes[name]
	return c, ok
}

// Names returns the registered class names, unordered.
func (cat *Catalog) Names() []string {
	out := make([]string, 0, len(cat.classes))
	for n := range cat.classes {
		out = append(out, n)
	}
	return out
}
