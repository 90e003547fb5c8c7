// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command zplctl parses, validates, and reformats Zebra Programming
// Language label templates from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	tablesPath  string
	profilePath string
	verbose     bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "zplctl",
		Short: "A Zebra Programming Language toolchain",
		Long:  "A ZPL parser, validator, and formatter built for label-template pipelines",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 0.1.0")
		},
	}

	var validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validates ZPL label files",
		Args:  cobra.MinimumNArgs(1),
		Run:   runValidate,
	}

	var formatCmd = &cobra.Command{
		Use:   "fmt",
		Short: "Reformats a ZPL label file",
		Args:  cobra.ExactArgs(1),
		Run:   runFormat,
	}

	var batchCmd = &cobra.Command{
		Use:   "batch",
		Short: "Validates every label file under a directory concurrently",
		Args:  cobra.ExactArgs(1),
		Run:   runBatch,
	}

	rootCmd.PersistentFlags().StringVarP(&tablesPath, "tables", "t", "", "path to a parser tables document")
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "path to a printer profile document")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	formatCmd.Flags().Bool("indent", false, "put every command on its own indented line")
	formatCmd.Flags().Int("field-indent", 2, "spaces of indentation before each command")
	formatCmd.Flags().Bool("compact", false, "collapse field blocks onto one line")

	batchCmd.Flags().Int("workers", 4, "number of concurrent validation workers")
	batchCmd.Flags().Int("max-diagnostics", 0, "truncate diagnostics per file (0 = unlimited)")

	rootCmd.AddCommand(versionCmd, validateCmd, formatCmd, batchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
