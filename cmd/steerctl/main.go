// Copyright 2024 Antrea Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main under directory cmd parses and validates user input,
// instantiates and initializes objects imported from pkg, and runs
// the process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"antrea.io/steering/pkg/log"
	"antrea.io/steering/pkg/version"
)

func main() {
	command := newSteerctlCommand()
	if err := command.Execute(); err != nil {
		log.FlushLogs()
		os.Exit(1)
	}
}

func newSteerctlCommand() *cobra.Command {
	opts := newOptions()

	cmd := &cobra.Command{
		Use:   "steerctl",
		Short: "steerctl compiles steering matchers",
		Long: "steerctl compiles match masks into steering entry templates and links " +
			"the resulting matchers into the hash table chain of a simulated device.",
		Version: version.Get().String(),
	}

	flags := cmd.PersistentFlags()
	opts.addFlags(flags)
	log.AddFlags(flags)

	cmd.AddCommand(newCompileCommand(opts))
	cmd.AddCommand(newPortsCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// runWithOptions completes and validates opts before calling fn. Errors are
// fatal, as in the other commands of the project.
func runWithOptions(opts *Options, name string, fn func() error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		log.InitLogs(cmd.Flags())
		defer log.FlushLogs()

		if err := opts.complete(args); err != nil {
			klog.Fatalf("Failed to complete: %v", err)
		}
		if err := opts.validate(args); err != nil {
			klog.Fatalf("Failed to validate: %v", err)
		}
		if err := fn(); err != nil {
			klog.Fatalf("Error running %s: %v", name, err)
		}
	}
}

func newVersionCommand() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), info.Short())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the release version")
	return cmd
}
