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

// Package cmd implements the confmodel CLI: a cobra command tree wrapping
// instance.Session and loader around a catalog read from disk, in the
// idiom of the teacher's gnmidiff/cmd package.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute builds the root command and runs it, exiting non-zero on error
// (mirroring gnmidiff/cmd.Execute).
func Execute() {
	rootCmd := &cobra.Command{
		Use:   "confmodel",
		Short: "confmodel inspects and edits configuration trees described by a catalog",
	}

	cfgFile := rootCmd.PersistentFlags().String("config_file", "", "Path to config file.")
	rootCmd.PersistentFlags().String("catalog", "", "Path to a JSON catalog file (required).")
	rootCmd.PersistentFlags().String("root_dir", ".", "Root directory backends read/write under.")
	rootCmd.PersistentFlags().String("backend", "file", "Backend name bound to rw_config elements.")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *cfgFile != "" {
			viper.SetConfigFile(*cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("error reading config: %w", err)
			}
		}
		viper.BindPFlags(cmd.Flags())
		viper.BindPFlags(rootCmd.PersistentFlags())
		viper.AutomaticEnv()
		return nil
	}

	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newDumpCmd())
	rootCmd.AddCommand(newChangesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
