// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/zplkit/zpltoolchain"
)

func newLogger() zpl.Logger {
	if verbose {
		return zpl.NewStdLogger(os.Stderr)
	}
	return zpl.NewNopLogger()
}

func loadTables() *zpl.ParserTables {
	if tablesPath == "" {
		return nil
	}
	tables, err := zpl.LoadParserTablesFile(tablesPath)
	if err != nil {
		log.Fatalf("loading parser tables %s: %v", tablesPath, err)
	}
	if err := zpl.CheckTableVersion(tables); err != nil {
		log.Fatalf("%v", err)
	}
	return tables
}

func loadProfile() *zpl.Profile {
	if profilePath == "" {
		return nil
	}
	profile, err := zpl.LoadProfileFile(profilePath)
	if err != nil {
		log.Fatalf("loading printer profile %s: %v", profilePath, err)
	}
	return profile
}

func validateOneFile(path string, tables *zpl.ParserTables, profile *zpl.Profile, opts zpl.LoadOptions) []zpl.Diagnostic {
	sf, err := zpl.OpenSourceFile(path)
	if err != nil {
		opts.Logger.Error("opening file", "path", path, "err", err)
		return nil
	}
	defer sf.Close()

	text, err := sf.Text()
	if err != nil {
		opts.Logger.Error("decoding file", "path", path, "err", err)
		return nil
	}

	result := zpl.ParseAndValidate(text, tables, profile)
	issues, dropped := opts.TruncateDiagnostics(result.Diagnostics)
	if dropped > 0 {
		opts.Logger.Warn("truncated diagnostics", "path", path, "dropped", dropped)
	}
	return issues
}

func printDiagnostics(path string, issues []zpl.Diagnostic) {
	for _, d := range issues {
		fmt.Printf("%s: %s\n", path, d.String())
	}
}

func runValidate(cmd *cobra.Command, args []string) {
	tables := loadTables()
	profile := loadProfile()
	opts := zpl.DefaultLoadOptions()
	opts.Logger = newLogger()

	failed := false
	for _, path := range args {
		issues := validateOneFile(path, tables, profile, opts)
		printDiagnostics(path, issues)
		if zpl.HasError(issues) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
