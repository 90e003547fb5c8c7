// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
	"github.com/zplkit/zpltoolchain"
)

// batchResult carries one file's outcome back to the reporting goroutine.
type batchResult struct {
	path   string
	issues []zpl.Diagnostic
	failed bool
}

func isLikelyLabelFile(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for t := mtype; t != nil; t = t.Parent() {
		if t.Is("text/plain") {
			return true
		}
	}
	return false
}

func collectLabelFiles(root string) []string {
	var files []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".zpl") || isLikelyLabelFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// runFileWorker drains paths, validates each one, and sends its result on
// results until paths is closed.
func runFileWorker(paths <-chan string, results chan<- batchResult, tables *zpl.ParserTables, profile *zpl.Profile, opts zpl.LoadOptions) {
	for path := range paths {
		issues := validateOneFile(path, tables, profile, opts)
		results <- batchResult{path: path, issues: issues, failed: zpl.HasError(issues)}
	}
}

func runBatch(cmd *cobra.Command, args []string) {
	workers, _ := cmd.Flags().GetInt("workers")
	if workers < 1 {
		workers = 1
	}
	maxDiag, _ := cmd.Flags().GetInt("max-diagnostics")

	tables := loadTables()
	profile := loadProfile()
	opts := zpl.DefaultLoadOptions()
	opts.Logger = newLogger()
	opts.MaxDiagnostics = maxDiag

	files := collectLabelFiles(args[0])
	paths := make(chan string)
	results := make(chan batchResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runFileWorker(paths, results, tables, profile, opts)
		}()
	}

	go func() {
		for _, f := range files {
			paths <- f
		}
		close(paths)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	failedCount := 0
	for res := range results {
		printDiagnostics(res.path, res.issues)
		if res.failed {
			failedCount++
		}
	}

	fmt.Printf("validated %d files, %d with errors\n", len(files), failedCount)
	if failedCount > 0 {
		os.Exit(1)
	}
}
