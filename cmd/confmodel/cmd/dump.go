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

	"github.com/spf13/cobra"

	"github.com/conftree/confmodel/loader"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <class>",
		Short: "Prints the tree's live content as a re-loadable Loader program.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(args[0])
			if err != nil {
				return err
			}
			fmt.Println(loader.Dump(sess.Root()))
			return nil
		},
	}
}
