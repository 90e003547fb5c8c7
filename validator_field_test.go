// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import "testing"

func TestFieldTrackerProcessCommandOpensField(t *testing.T) {
	ft := NewFieldTracker()
	entry := &CommandEntry{OpensField: true}
	issues := ft.ProcessCommand(0, "^FO", entry, nil, Span{})
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
	if !ft.Open || ft.StartIdx != 0 {
		t.Errorf("ft = %+v, want Open=true StartIdx=0", ft)
	}
}

func TestFieldTrackerProcessCommandReopenWithoutCloseWarns(t *testing.T) {
	ft := NewFieldTracker()
	entry := &CommandEntry{OpensField: true}
	ft.ProcessCommand(0, "^FO", entry, nil, Span{})
	issues := ft.ProcessCommand(1, "^FO", entry, nil, Span{})
	if len(issues) != 1 || issues[0].ID != CodeFieldNotClosed {
		t.Errorf("issues = %v, want one %s", issues, CodeFieldNotClosed)
	}
}

func TestFieldTrackerProcessCommandFieldDataWithoutOriginErrors(t *testing.T) {
	ft := NewFieldTracker()
	entry := &CommandEntry{FieldData: true}
	issues := ft.ProcessCommand(0, "^FD", entry, nil, Span{})
	if len(issues) != 1 || issues[0].ID != CodeFieldDataWithoutOrigin {
		t.Errorf("issues = %v, want one %s", issues, CodeFieldDataWithoutOrigin)
	}
}

func TestFieldTrackerProcessCommandCollectsFieldDataAndHexIndicator(t *testing.T) {
	ft := NewFieldTracker()
	ft.ProcessCommand(0, "^FO", &CommandEntry{OpensField: true}, nil, Span{})

	fh := &CommandEntry{HexEscapeModifier: true, FieldData: true}
	ft.ProcessCommand(1, "^FH", fh, []ArgSlot{{Value: strp("_")}}, Span{})
	if !ft.HasFH || ft.FHIndicator != '_' {
		t.Errorf("ft = %+v, want HasFH=true FHIndicator=_", ft)
	}

	fd := &CommandEntry{FieldData: true}
	ft.ProcessCommand(2, "^FD", fd, []ArgSlot{{Value: strp("hello_5F")}}, Span{})
	if len(ft.fieldData) != 2 || ft.fieldData[1] != "hello_5F" {
		t.Errorf("fieldData = %v, want two entries ending in hello_5F", ft.fieldData)
	}
}

func TestFieldTrackerCloseOrphanedFieldSeparator(t *testing.T) {
	ft := NewFieldTracker()
	issues := ft.Close(Span{}, NewLabelValueState(), nil, nil, nil)
	if len(issues) != 1 || issues[0].ID != CodeOrphanedFieldSeparator {
		t.Errorf("issues = %v, want one %s", issues, CodeOrphanedFieldSeparator)
	}
}

func TestFieldTrackerCloseValidatesHexEscapesWhenFH(t *testing.T) {
	ft := NewFieldTracker()
	ft.ProcessCommand(0, "^FO", &CommandEntry{OpensField: true}, nil, Span{})
	ft.ProcessCommand(1, "^FH", &CommandEntry{HexEscapeModifier: true}, []ArgSlot{{Value: strp("_")}}, Span{})
	ft.ProcessCommand(2, "^FD", &CommandEntry{FieldData: true}, []ArgSlot{{Value: strp("bad_Z")}}, Span{})

	issues := ft.Close(Span{}, NewLabelValueState(), nil, nil, nil)
	found := false
	for _, d := range issues {
		if d.ID == CodeInvalidHexEscape {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s among %v", CodeInvalidHexEscape, issues)
	}
}

func TestFieldTrackerCloseFlagsSerializationWithoutFieldNumber(t *testing.T) {
	ft := NewFieldTracker()
	ft.ProcessCommand(0, "^FO", &CommandEntry{OpensField: true}, nil, Span{})
	ft.ProcessCommand(1, "^SN", &CommandEntry{Serialization: true}, nil, Span{})

	issues := ft.Close(Span{}, NewLabelValueState(), nil, nil, nil)
	found := false
	for _, d := range issues {
		if d.ID == CodeSerializationWithoutFieldNumber {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s among %v", CodeSerializationWithoutFieldNumber, issues)
	}
}

func TestValidateHexEscapesFlagsMalformedSequence(t *testing.T) {
	issues := validateHexEscapes("abc_Z", '_', Span{})
	if len(issues) != 1 || issues[0].ID != CodeInvalidHexEscape {
		t.Errorf("issues = %v, want one %s", issues, CodeInvalidHexEscape)
	}
	if issues := validateHexEscapes("abc_5F", '_', Span{}); len(issues) != 0 {
		t.Errorf("issues = %v, want none for a well-formed escape", issues)
	}
}

func TestCharInSetRangesEscapesAndLiterals(t *testing.T) {
	if !charInSet("A-Z0-9", 'M') {
		t.Error("M should match A-Z")
	}
	if !charInSet("A-Z0-9", '5') {
		t.Error("5 should match 0-9")
	}
	if charInSet("A-Z0-9", '-') {
		t.Error("- should not match A-Z0-9")
	}
	if !charInSet(`A-Z\-`, '-') {
		t.Error("escaped - should match")
	}
	if !charInSet(`A-Z\ `, ' ') {
		t.Error("escaped space should match")
	}
}

func TestValidateBarcodeFieldDataCharacterSet(t *testing.T) {
	rules := FieldDataRules{CharacterSet: "0-9"}
	issues := validateBarcodeFieldData("^BC", rules, "12a34", Span{})
	if len(issues) != 1 || issues[0].ID != CodeBarcodeInvalidChar {
		t.Errorf("issues = %v, want one %s", issues, CodeBarcodeInvalidChar)
	}
}

func TestValidateBarcodeFieldDataExactLength(t *testing.T) {
	exact := 5
	rules := FieldDataRules{ExactLength: &exact}
	if issues := validateBarcodeFieldData("^BE", rules, "1234", Span{}); len(issues) != 1 || issues[0].ID != CodeBarcodeDataLength {
		t.Errorf("issues = %v, want one %s", issues, CodeBarcodeDataLength)
	}
	if issues := validateBarcodeFieldData("^BE", rules, "12345", Span{}); len(issues) != 0 {
		t.Errorf("issues = %v, want none for matching exact length", issues)
	}
}

func TestValidateBarcodeFieldDataAllowedLengths(t *testing.T) {
	rules := FieldDataRules{AllowedLengths: []int{8, 13}}
	if issues := validateBarcodeFieldData("^BE", rules, "1234567", Span{}); len(issues) != 1 {
		t.Errorf("issues = %v, want one violation", issues)
	}
	if issues := validateBarcodeFieldData("^BE", rules, "12345678", Span{}); len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestValidateBarcodeFieldDataMinMaxLength(t *testing.T) {
	min, max := 3, 6
	rules := FieldDataRules{MinLength: &min, MaxLength: &max}
	if issues := validateBarcodeFieldData("^BE", rules, "ab", Span{}); len(issues) != 1 {
		t.Errorf("issues = %v, want a too-short violation", issues)
	}
	if issues := validateBarcodeFieldData("^BE", rules, "abcdefgh", Span{}); len(issues) != 1 {
		t.Errorf("issues = %v, want a too-long violation", issues)
	}
}

func TestValidateBarcodeFieldDataLengthParity(t *testing.T) {
	rules := FieldDataRules{LengthParity: "even"}
	if issues := validateBarcodeFieldData("^B2", rules, "123", Span{}); len(issues) != 1 {
		t.Errorf("issues = %v, want a parity violation for odd-length data", issues)
	}
	if issues := validateBarcodeFieldData("^B2", rules, "1234", Span{}); len(issues) != 0 {
		t.Errorf("issues = %v, want none for even-length data", issues)
	}
}

func TestValidateObjectBoundsSkippedWithoutResolvableBound(t *testing.T) {
	ft := NewFieldTracker()
	ft.fieldData = []string{"hello"}
	if issues := validateObjectBounds(ft, NewLabelValueState(), nil, nil, nil, Span{}); issues != nil {
		t.Errorf("issues = %v, want nil without any resolvable bound", issues)
	}
}

func TestValidateObjectBoundsFlagsOverflow(t *testing.T) {
	ft := NewFieldTracker()
	ft.fieldData = []string{"HELLOWORLD"}
	labelState := NewLabelValueState()
	labelState.LabelHome.X = 0
	maxX := 50.0
	issues := validateObjectBounds(ft, labelState, nil, &maxX, nil, Span{})
	found := false
	for _, d := range issues {
		if d.ID == CodeObjectBoundsOverflow {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s among %v", CodeObjectBoundsOverflow, issues)
	}
}

func TestValidateObjectBoundsSkippedWhenNoFieldDataCollected(t *testing.T) {
	ft := NewFieldTracker()
	maxX := 10.0
	if issues := validateObjectBounds(ft, NewLabelValueState(), nil, &maxX, nil, Span{}); issues != nil {
		t.Errorf("issues = %v, want nil when no field data was collected", issues)
	}
}
