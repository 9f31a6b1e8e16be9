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

// Package backend implements the BackendMgr collaborator (spec.md §2, §6):
// the interface through which Instance populates and writes back a tree's
// rw_config subtrees. The core never imports this package; instance/ does,
// wiring concrete backends against model.Node via closures registered with
// model.Instance.RegisterWriteBack, so model/ stays backend-agnostic
// (spec.md §6 "Backend interface").
package backend

import (
	"os"

	"github.com/conftree/confmodel/model"
)

// Backend is the core -> backend contract of spec.md §6: Read is invoked
// during a node's initial load, Write during write_back.
type Backend interface {
	// Read populates node from file under configDir, storing values through
	// node's own store/fetch_element operations in the initial-load mode
	// the caller (instance.Session) has already entered.
	Read(node *model.Node, configDir, file string, check model.CheckMode) error
	// Write serializes node's live content to file under configDir.
	Write(node *model.Node, configDir, file string, mode os.FileMode) error
	// SupportsAnnotation advertises whether this backend round-trips
	// comments (spec.md §6 "annotation() flag").
	SupportsAnnotation() bool
}
