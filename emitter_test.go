// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import "testing"

func TestEmitRoundTripsSimpleLabel(t *testing.T) {
	tables := sampleParserTables()
	src := "^XA^FO10,20^FDHello^FS^XZ"
	tree, issues := ParseWithTables(src, tables)
	for _, d := range issues {
		if d.Severity == SeverityError {
			t.Fatalf("unexpected parse error: %s", d.String())
		}
	}
	out := Emit(tree)
	if out != src {
		t.Errorf("Emit() = %q, want %q", out, src)
	}
}

func TestEmitWithOptionsIndent(t *testing.T) {
	tables := sampleParserTables()
	tree, _ := ParseWithTables("^XA^FO10,20^FS^XZ", tables)
	out := EmitWithOptions(tree, EmitOptions{Indent: true, FieldIndent: 2})
	if out == Emit(tree) {
		t.Error("Indent option should change the rendered output")
	}
}

func TestMergeSplitArgsReglues(t *testing.T) {
	rule := SplitRule{ParamIndex: 0, CharCounts: []int{2, 2, 2}}
	parts := []string{"06", "07", "08", "trailing"}
	out := mergeSplitArgs(parts, rule)
	want := []string{"060708", "trailing"}
	if len(out) != len(want) {
		t.Fatalf("mergeSplitArgs() = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %q, want %q", i, out[i], want[i])
		}
	}
}

func TestMergeSplitArgsEmitterRoundTripsWithSplitRule(t *testing.T) {
	data := []byte(`{
		"schemaVersion": "1.0.0",
		"formatVersion": "0.3.0",
		"commands": [
			{"codes": ["^BT"], "arity": 1, "signature": {"params": ["h", "m", "s"], "joiner": ",", "spacing": "forbid", "allow_empty_trailing": true, "split_rule": {"param_index": 0, "char_counts": [2, 2, 2]}}}
		]
	}`)
	tables, err := LoadParserTables(data)
	if err != nil {
		t.Fatalf("LoadParserTables() error = %v", err)
	}
	tree, _ := ParseWithTables("^XA^BT060708^XZ", tables)
	out := EmitWithOptions(tree, EmitOptions{Tables: tables})
	want := "^XA^BT060708^XZ"
	if out != want {
		t.Errorf("Emit() = %q, want %q", out, want)
	}
}

func TestCompactFieldBlocksCollapsesFieldOntoOneLine(t *testing.T) {
	in := "^XA\n^FO10,20\nHello\n^FS\n^XZ"
	out := compactFieldBlocks(in)
	want := "^XA\n^FO10,20Hello^FS\n^XZ"
	if out != want {
		t.Errorf("compactFieldBlocks() = %q, want %q", out, want)
	}
}

func TestEmitCommandTrimsEmptyTrailingArgs(t *testing.T) {
	n := CommandNode("^BY", []ArgSlot{
		{Presence: PresenceSlotValue, Value: strp("2")},
		{Presence: PresenceSlotUnset},
		{Presence: PresenceSlotUnset},
	}, Span{})
	tree := Tree{Labels: []Label{{Nodes: []Node{n}}}}
	out := Emit(tree)
	if out != "^BY2" {
		t.Errorf("Emit() = %q, want %q", out, "^BY2")
	}
}
