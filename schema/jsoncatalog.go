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

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// jsonElement is the on-disk shape read by ReadCatalogFile: a minimal,
// non-exhaustive subset of Element covering the parameters most catalogs
// need (spec.md §6: "exact on-disk form is a backend concern, not the
// contract"). Parameters with no natural JSON encoding (Compute formulas,
// Assert predicates, Accept templates) are builder-API-only and are not
// read back from JSON.
type jsonElement struct {
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	ValueType   string         `json:"value_type,omitempty"`
	Level       string         `json:"level,omitempty"`
	Status      string         `json:"status,omitempty"`
	Description string         `json:"description,omitempty"`
	Choice      []string       `json:"choice,omitempty"`
	Default     *string        `json:"default,omitempty"`
	Mandatory   bool           `json:"mandatory,omitempty"`
	Match       string         `json:"match,omitempty"`
	MaxNb       *int           `json:"max_nb,omitempty"`
	Cargo       *jsonElement   `json:"cargo,omitempty"`
	Elements    []*jsonElement `json:"elements,omitempty"`
	WarpMaster  string         `json:"warp_master,omitempty"`
}

type jsonClass struct {
	Name     string         `json:"name"`
	Elements []*jsonElement `json:"elements"`
}

// ReadCatalogFile decodes a JSON-encoded catalog (one or more ConfigClass
// definitions, keyed by class name) from raw and registers each into cat.
// This is the one concrete, documented on-disk catalog format this module
// ships; it is deliberately not the only way to build a Catalog — the
// builder API in builder.go remains the full-fidelity path.
func ReadCatalogFile(cat *Catalog, raw []byte) error {
	var classes []jsonClass
	if err := json.Unmarshal(raw, &classes); err != nil {
		return fmt.Errorf("schema: decoding catalog: %w", err)
	}
	for _, jc := range classes {
		elements := make([]*Element, 0, len(jc.Elements))
		for _, je := range jc.Elements {
			e, err := je.toElement()
			if err != nil {
				return fmt.Errorf("schema: class %s: %w", jc.Name, err)
			}
			elements = append(elements, e)
		}
		if err := cat.Register(&ConfigClass{Name: jc.Name, Elements: elements}); err != nil {
			return err
		}
	}
	return nil
}

func (je *jsonElement) toElement() (*Element, error) {
	if je.Name == "" {
		return nil, fmt.Errorf("element with no name")
	}
	e := &Element{
		Name:        je.Name,
		Description: je.Description,
		Mandatory:   je.Mandatory,
		MaxNb:       je.MaxNb,
		Choice:      je.Choice,
		Default:     je.Default,
		WarpMaster:  je.WarpMaster,
	}
	if lv, ok := parseLevel(je.Level); ok {
		e.Level = lv
	}
	if st, ok := parseStatus(je.Status); ok {
		e.Status = st
	}
	if je.Match != "" {
		re, err := regexp.Compile(je.Match)
		if err != nil {
			return nil, fmt.Errorf("element %s: match: %w", je.Name, err)
		}
		e.Match = re
	}

	switch je.Kind {
	case "leaf":
		e.Kind = KindLeaf
		vt, ok := parseValueType(je.ValueType)
		if !ok {
			return nil, fmt.Errorf("leaf %s: unknown value_type %q", je.Name, je.ValueType)
		}
		e.ValueType = vt
	case "hash", "list":
		if je.Kind == "hash" {
			e.Kind = KindHash
			e.IndexType = IndexString
		} else {
			e.Kind = KindList
			e.IndexType = IndexInteger
		}
		if je.Cargo == nil {
			return nil, fmt.Errorf("collection %s: no cargo", je.Name)
		}
		cargo, err := je.Cargo.toElement()
		if err != nil {
			return nil, fmt.Errorf("collection %s: cargo: %w", je.Name, err)
		}
		e.Cargo = cargo
	case "node":
		e.Kind = KindNode
		children := make([]*Element, 0, len(je.Elements))
		for _, child := range je.Elements {
			c, err := child.toElement()
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		e.Elements = children
	case "warped_node":
		e.Kind = KindWarpedNode
		if e.WarpMaster == "" {
			return nil, fmt.Errorf("warped_node %s: no warp_master", je.Name)
		}
	default:
		return nil, fmt.Errorf("element %s: unknown kind %q", je.Name, je.Kind)
	}
	return e, nil
}

func parseValueType(s string) (ValueType, bool) {
	switch s {
	case "boolean":
		return TypeBoolean, true
	case "enum":
		return TypeEnum, true
	case "integer":
		return TypeInteger, true
	case "number":
		return TypeNumber, true
	case "uniline":
		return TypeUniline, true
	case "string":
		return TypeString, true
	case "reference":
		return TypeReference, true
	case "file":
		return TypeFile, true
	case "dir":
		return TypeDir, true
	default:
		return TypeUnset, false
	}
}

func parseLevel(s string) (Level, bool) {
	switch s {
	case "important":
		return LevelImportant, true
	case "hidden":
		return LevelHidden, true
	case "", "normal":
		return LevelNormal, s != ""
	default:
		return LevelNormal, false
	}
}

func parseStatus(s string) (Status, bool) {
	switch s {
	case "deprecated":
		return StatusDeprecated, true
	case "obsolete":
		return StatusObsolete, true
	case "", "standard":
		return StatusStandard, s != ""
	default:
		return StatusStandard, false
	}
}
