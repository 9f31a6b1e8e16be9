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

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/conftree/confmodel/backend"
	"github.com/conftree/confmodel/instance"
	"github.com/conftree/confmodel/schema"
)

// openSession reads the catalog named by --catalog, registers the backend
// named by --backend under its own name, and builds an instance.Session
// for className rooted at --root_dir, running its initial load.
func openSession(className string) (*instance.Session, error) {
	catalogPath := viper.GetString("catalog")
	if catalogPath == "" {
		return nil, fmt.Errorf("confmodel: --catalog is required")
	}
	raw, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("confmodel: reading catalog: %w", err)
	}
	cat := schema.NewCatalog()
	if err := schema.ReadCatalogFile(cat, raw); err != nil {
		return nil, err
	}

	backends := map[string]backend.Backend{
		viper.GetString("backend"): backend.FileBackend{},
	}
	sess, err := instance.New(cat, className, viper.GetString("root_dir"), backends)
	if err != nil {
		return nil, fmt.Errorf("confmodel: building instance: %w", err)
	}
	if err := sess.Init(); err != nil {
		return nil, fmt.Errorf("confmodel: initial load: %w", err)
	}
	return sess, nil
}
