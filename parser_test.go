// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import "testing"

func sampleParserTables() *ParserTables {
	data := []byte(`{
		"schemaVersion": "1.0.0",
		"formatVersion": "0.3.0",
		"commands": [
			{"codes": ["^XA"], "arity": 0},
			{"codes": ["^XZ"], "arity": 0},
			{"codes": ["^FO"], "arity": 2, "plane": "device", "opens_field": true, "signature": {"params": ["x", "y"], "joiner": ",", "spacing": "forbid", "allow_empty_trailing": true}},
			{"codes": ["^FS"], "arity": 0, "plane": "device", "closes_field": true},
			{"codes": ["^FD"], "arity": 1, "plane": "device", "field_data": true, "requires_field": true, "signature": {"params": ["data"], "joiner": "", "spacing": "allow"}},
			{"codes": ["^FH"], "arity": 1, "plane": "device", "field_data": true, "hex_escape_modifier": true, "requires_field": true, "signature": {"params": ["data"], "joiner": "", "spacing": "allow"}},
			{"codes": ["^GF"], "arity": 5, "plane": "device", "raw_payload": true, "signature": {"params": ["f", "b", "g", "x", "data"], "joiner": ",", "spacing": "forbid", "allow_empty_trailing": true}},
			{"codes": ["^CC"], "arity": 1, "plane": "format"},
			{"codes": ["^CD"], "arity": 1, "plane": "format"},
			{"codes": ["^BY"], "arity": 3, "plane": "device", "signature": {"params": ["w", "r", "h"], "joiner": ",", "spacing": "forbid", "allow_empty_trailing": true}}
		],
		"opcodeTrie": {
			"children": {
				"X": {"children": {"A": {"terminal": true}, "Z": {"terminal": true}}},
				"F": {"children": {"O": {"terminal": true}, "S": {"terminal": true}, "D": {"terminal": true}, "H": {"terminal": true}}},
				"G": {"children": {"F": {"terminal": true}}},
				"C": {"children": {"C": {"terminal": true}, "D": {"terminal": true}}},
				"B": {"children": {"Y": {"terminal": true}}}
			}
		}
	}`)
	tables, err := LoadParserTables(data)
	if err != nil {
		panic(err)
	}
	return tables
}

func TestParseSimpleLabel(t *testing.T) {
	tree, issues := ParseWithTables("^XA^FO10,20^FDHello^FS^XZ", sampleParserTables())
	for _, d := range issues {
		if d.Severity == SeverityError {
			t.Fatalf("unexpected error diagnostic: %s", d.String())
		}
	}
	if len(tree.Labels) != 1 {
		t.Fatalf("len(Labels) = %d, want 1", len(tree.Labels))
	}
	label := tree.Labels[0]

	var codes []string
	var fd *Node
	for i, n := range label.Nodes {
		if n.Kind == NodeCommand {
			codes = append(codes, n.Code)
			if n.Code == "^FD" {
				fd = &label.Nodes[i]
			}
		}
	}
	want := []string{"^XA", "^FO", "^FD", "^FS", "^XZ"}
	if len(codes) != len(want) {
		t.Fatalf("commands = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, codes[i], want[i])
		}
	}

	if fd == nil || len(fd.Args) != 1 || fd.Args[0].ValueOr("") != "Hello" {
		t.Fatalf("expected ^FD's own argument to carry the field content, got %+v", fd)
	}
}

func TestParseFOArguments(t *testing.T) {
	tree, _ := ParseWithTables("^XA^FO10,20^FS^XZ", sampleParserTables())
	fo := tree.Labels[0].Nodes[1]
	if fo.Code != "^FO" || len(fo.Args) != 2 {
		t.Fatalf("unexpected ^FO node: %+v", fo)
	}
	if fo.Args[0].ValueOr("") != "10" || fo.Args[1].ValueOr("") != "20" {
		t.Errorf("args = %+v, want [10 20]", fo.Args)
	}
}

func TestParseMissingTerminatorEmitsDiagnostic(t *testing.T) {
	_, issues := ParseWithTables("^XA^FO10,20^FS", sampleParserTables())
	found := false
	for _, d := range issues {
		if d.ID == CodeParserMissingTerminator {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s diagnostic for an unterminated label, got %v", CodeParserMissingTerminator, issues)
	}
}

func TestParseMissingFieldSeparatorEmitsDiagnostic(t *testing.T) {
	_, issues := ParseWithTables("^XA^FO10,20^FDHello", sampleParserTables())
	found := false
	for _, d := range issues {
		if d.ID == CodeParserMissingFieldSeparator {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s diagnostic for field data never closed with ^FS, got %v", CodeParserMissingFieldSeparator, issues)
	}
}

func TestParseFieldDataInterruptedByAnotherCommand(t *testing.T) {
	_, issues := ParseWithTables("^XA^FO10,20^FDHello^XZ", sampleParserTables())
	found := false
	for _, d := range issues {
		if d.ID == CodeParserFieldDataInterrupted {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s diagnostic when ^XZ interrupts an open field before ^FS, got %v", CodeParserFieldDataInterrupted, issues)
	}
}

func TestParseNoLabelsEmitsInfo(t *testing.T) {
	_, issues := ParseWithTables("just some text", sampleParserTables())
	if len(issues) != 1 || issues[0].ID != CodeParserNoLabels {
		t.Fatalf("issues = %v, want exactly one %s", issues, CodeParserNoLabels)
	}
}

func TestParseUnknownCommandWarns(t *testing.T) {
	_, issues := ParseWithTables("^XA^ZZ1,2^FS^XZ", sampleParserTables())
	found := false
	for _, d := range issues {
		if d.ID == CodeParserUnknownCommand && d.Severity == SeverityWarn {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s warning for an unrecognised opcode, got %v", CodeParserUnknownCommand, issues)
	}
}

func TestParsePrefixReconfigReassignsDelimiter(t *testing.T) {
	tree, issues := ParseWithTables("^XA^CD#^FO10#20^FS^XZ", sampleParserTables())
	for _, d := range issues {
		if d.Severity == SeverityError {
			t.Fatalf("unexpected error: %s", d.String())
		}
	}
	fo := tree.Labels[0].Nodes[2]
	if fo.Code != "^FO" || fo.Args[0].ValueOr("") != "10" || fo.Args[1].ValueOr("") != "20" {
		t.Fatalf("^FO after ^CD# reconfiguration = %+v", fo)
	}
}

func TestParseRawPayloadConsumesUntilNextLeader(t *testing.T) {
	tree, _ := ParseWithTables("^XA^GFA,100,100,10\n:data-here^FS^XZ", sampleParserTables())
	var raw *Node
	for i := range tree.Labels[0].Nodes {
		if tree.Labels[0].Nodes[i].Kind == NodeRawData {
			raw = &tree.Labels[0].Nodes[i]
		}
	}
	if raw == nil {
		t.Fatal("expected a raw data node after ^GF")
	}
	if raw.OpeningCode != "^GF" {
		t.Errorf("OpeningCode = %q, want ^GF", raw.OpeningCode)
	}
}

func TestParseWithNoTablesUsesHeuristicRecognition(t *testing.T) {
	tree, _ := Parse("^XYZ123^ABC")
	if len(tree.Labels) == 0 {
		t.Fatal("expected at least one synthesised label from heuristic parsing")
	}
}

func TestParseArgsPadsTrailingWhenAllowed(t *testing.T) {
	sig := Signature{Params: []string{"w", "r", "h"}, Joiner: ",", AllowEmptyTrailing: true}
	slots := parseArgs("2", sig, ',')
	if len(slots) != 3 {
		t.Fatalf("len(slots) = %d, want 3", len(slots))
	}
	if slots[0].ValueOr("") != "2" {
		t.Errorf("slots[0] = %+v, want value 2", slots[0])
	}
	if slots[1].Presence != PresenceSlotUnset || slots[2].Presence != PresenceSlotUnset {
		t.Errorf("padded slots should be Unset, got %+v", slots[1:])
	}
}

func TestApplySplitRuleConsumesCharCounts(t *testing.T) {
	v := "060708"
	slots := []ArgSlot{{Presence: PresenceSlotValue, Value: &v}}
	rule := SplitRule{ParamIndex: 0, CharCounts: []int{2, 2, 2}}
	out := applySplitRule(slots, rule, []string{"h", "m", "s"})
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	want := []string{"06", "07", "08"}
	for i, w := range want {
		if out[i].ValueOr("") != w {
			t.Errorf("out[%d] = %q, want %q", i, out[i].ValueOr(""), w)
		}
	}
}

func TestApplySplitRuleAppendsExtraTailToLastPart(t *testing.T) {
	v := "0607089"
	slots := []ArgSlot{{Presence: PresenceSlotValue, Value: &v}}
	rule := SplitRule{ParamIndex: 0, CharCounts: []int{2, 2, 2}}
	out := applySplitRule(slots, rule, []string{"h", "m", "s"})
	if out[2].ValueOr("") != "089" {
		t.Errorf("last part = %q, want 089 (extra tail appended)", out[2].ValueOr(""))
	}
}
