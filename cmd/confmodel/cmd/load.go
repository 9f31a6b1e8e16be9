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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conftree/confmodel/loader"
	"github.com/conftree/confmodel/model"
)

func newLoadCmd() *cobra.Command {
	load := &cobra.Command{
		Use:   "load <class> <loader program words...>",
		Short: "Runs a Loader program against the tree and writes it back.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runLoad,
	}
	load.Flags().Bool("check_yes", true, "Run the program in check=yes mode (fail on the first error).")
	load.Flags().Bool("dry_run", false, "Skip the write-back step.")
	return load
}

func runLoad(cmd *cobra.Command, args []string) error {
	sess, err := openSession(args[0])
	if err != nil {
		return err
	}

	check := model.CheckNo
	if viper.GetBool("check_yes") {
		check = model.CheckYes
	}
	exec := loader.NewExecutor(sess.Instance(), check)
	program := strings.Join(args[1:], " ")
	if err := exec.Run(sess.Root(), program); err != nil {
		return fmt.Errorf("confmodel: running loader program: %w", err)
	}

	if viper.GetBool("dry_run") {
		fmt.Println(sess.ListChangesString())
		return nil
	}
	if err := sess.WriteBack(); err != nil {
		return fmt.Errorf("confmodel: writing back: %w", err)
	}
	fmt.Println(sess.ListChangesString())
	return nil
}
