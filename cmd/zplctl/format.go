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

func runFormat(cmd *cobra.Command, args []string) {
	tables := loadTables()

	indent, _ := cmd.Flags().GetBool("indent")
	fieldIndent, _ := cmd.Flags().GetInt("field-indent")
	compact, _ := cmd.Flags().GetBool("compact")

	sf, err := zpl.OpenSourceFile(args[0])
	if err != nil {
		log.Fatalf("opening file: %v", err)
	}
	defer sf.Close()

	text, err := sf.Text()
	if err != nil {
		log.Fatalf("decoding file: %v", err)
	}

	opts := zpl.EmitOptions{
		Indent:             indent,
		FieldIndent:        fieldIndent,
		CompactFieldBlocks: compact,
		Tables:             tables,
	}

	out, issues := zpl.Format(text, tables, opts)
	for _, d := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s\n", args[0], d.String())
	}
	fmt.Print(out)
}
