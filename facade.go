// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

// ParseResult bundles a parse's tree and diagnostics, the unit most
// callers actually want to pass around together.
type ParseResult struct {
	Tree        Tree
	Diagnostics []Diagnostic
}

// ParseAndValidate parses input with tables (which may be nil) and then
// validates the resulting tree against profile (which may also be nil),
// returning the combined diagnostic set in document order: parser
// diagnostics first, then validator diagnostics.
func ParseAndValidate(input string, tables *ParserTables, profile *Profile) ParseResult {
	tree, parseIssues := ParseWithTables(input, tables)
	validateIssues := Validate(tree, tables, profile)
	issues := make([]Diagnostic, 0, len(parseIssues)+len(validateIssues))
	issues = append(issues, parseIssues...)
	issues = append(issues, validateIssues...)
	return ParseResult{Tree: tree, Diagnostics: issues}
}

// Format parses input, then re-emits it through EmitWithOptions using
// tables for split-rule re-gluing and opts for any requested rewrites —
// the "zplctl fmt" entry point.
func Format(input string, tables *ParserTables, opts EmitOptions) (string, []Diagnostic) {
	tree, issues := ParseWithTables(input, tables)
	opts.Tables = tables
	return EmitWithOptions(tree, opts), issues
}

// RoundTrips reports whether emitting tree reproduces text structurally:
// re-parsing the emitted output and comparing span-stripped trees for
// equality. It does not compare diagnostics, only tree shape.
func RoundTrips(text string, tables *ParserTables) bool {
	tree, _ := ParseWithTables(text, tables)
	again, _ := ParseWithTables(EmitWithOptions(tree, EmitOptions{Tables: tables}), tables)
	return treesEqual(StripSpans(tree), StripSpans(again))
}

func treesEqual(a, b Tree) bool {
	if len(a.Labels) != len(b.Labels) {
		return false
	}
	for i := range a.Labels {
		if !labelsEqual(a.Labels[i], b.Labels[i]) {
			return false
		}
	}
	return true
}

func labelsEqual(a, b Label) bool {
	if len(a.Nodes) != len(b.Nodes) {
		return false
	}
	for i := range a.Nodes {
		if !nodesEqual(a.Nodes[i], b.Nodes[i]) {
			return false
		}
	}
	return true
}

func nodesEqual(a, b Node) bool {
	if a.Kind != b.Kind || a.Code != b.Code || a.Content != b.Content ||
		a.HexEscaped != b.HexEscaped || a.OpeningCode != b.OpeningCode ||
		a.Raw != b.Raw || a.Text != b.Text || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i].Presence != b.Args[i].Presence || a.Args[i].ValueOr("") != b.Args[i].ValueOr("") {
			return false
		}
	}
	return true
}
