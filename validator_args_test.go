// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"encoding/json"
	"testing"
)

func TestSelectEffectiveArgSingle(t *testing.T) {
	u := ArgUnion{Single: &Arg{Type: "int"}}
	if got := selectEffectiveArg(u, "anything"); got != u.Single {
		t.Errorf("selectEffectiveArg(Single) = %+v, want the Single arg unconditionally", got)
	}
}

func TestSelectEffectiveArgOneOfPrefersMatchingEnum(t *testing.T) {
	u := ArgUnion{OneOf: []Arg{
		{Type: "enum", Enum: []EnumValue{{Value: "Y"}, {Value: "N"}}},
		{Type: "int"},
	}}
	got := selectEffectiveArg(u, "Y")
	if got == nil || got.Type != "enum" {
		t.Errorf("selectEffectiveArg() = %+v, want the matching enum alternative", got)
	}
}

func TestSelectEffectiveArgOneOfFallsBackToNumeric(t *testing.T) {
	u := ArgUnion{OneOf: []Arg{
		{Type: "enum", Enum: []EnumValue{{Value: "Y"}, {Value: "N"}}},
		{Type: "int"},
	}}
	got := selectEffectiveArg(u, "42")
	if got == nil || got.Type != "int" {
		t.Errorf("selectEffectiveArg() = %+v, want the numeric alternative", got)
	}
}

func TestSelectEffectiveArgOneOfFallsBackToFirst(t *testing.T) {
	u := ArgUnion{OneOf: []Arg{
		{Type: "enum", Enum: []EnumValue{{Value: "Y"}}},
		{Type: "enum", Enum: []EnumValue{{Value: "N"}}},
	}}
	got := selectEffectiveArg(u, "garbage")
	if got != &u.OneOf[0] {
		t.Errorf("selectEffectiveArg() = %+v, want the first alternative as last resort", got)
	}
}

func TestArgDisplayName(t *testing.T) {
	if got := (&Arg{Name: "width"}).displayName(0); got != "width" {
		t.Errorf("displayName() = %q, want width", got)
	}
	if got := (&Arg{Key: "w"}).displayName(0); got != "w" {
		t.Errorf("displayName() = %q, want w", got)
	}
	if got := (&Arg{}).displayName(2); got != "arg2" {
		t.Errorf("displayName() = %q, want arg2", got)
	}
}

func TestValidateArgValueEnumMismatchWarnsButDoesNotBlock(t *testing.T) {
	c := argContext{code: "^FW", index: 0, arg: &Arg{Type: "enum", Enum: []EnumValue{{Value: "N"}}}}
	issues, blocked := validateArgValue(c, "Z")
	if blocked {
		t.Error("an invalid enum should not block subsequent checks")
	}
	if len(issues) != 1 || issues[0].ID != CodeInvalidEnum {
		t.Errorf("issues = %v, want one %s", issues, CodeInvalidEnum)
	}
}

func TestValidateArgValueIntParseFailureBlocks(t *testing.T) {
	c := argContext{code: "^BY", index: 0, arg: &Arg{Type: "int"}}
	issues, blocked := validateArgValue(c, "notanumber")
	if !blocked {
		t.Error("an unparseable integer should block subsequent checks")
	}
	if len(issues) != 1 || issues[0].ID != CodeExpectedInteger {
		t.Errorf("issues = %v, want one %s", issues, CodeExpectedInteger)
	}
}

func TestValidateArgValueFloatParseFailureBlocks(t *testing.T) {
	c := argContext{code: "^BY", index: 0, arg: &Arg{Type: "float"}}
	_, blocked := validateArgValue(c, "xyz")
	if !blocked {
		t.Error("an unparseable float should block")
	}
}

func TestValidateArgValueCharWrongLengthBlocks(t *testing.T) {
	c := argContext{code: "^CW", index: 0, arg: &Arg{Type: "char"}}
	issues, blocked := validateArgValue(c, "ab")
	if !blocked || len(issues) != 1 || issues[0].ID != CodeExpectedChar {
		t.Errorf("issues = %v, blocked = %v, want one %s and blocked", issues, blocked, CodeExpectedChar)
	}
}

func TestValidateArgValueValidCaseProducesNoIssues(t *testing.T) {
	c := argContext{code: "^BY", index: 0, arg: &Arg{Type: "int"}}
	issues, blocked := validateArgValue(c, "42")
	if blocked || len(issues) != 0 {
		t.Errorf("issues = %v, blocked = %v, want none", issues, blocked)
	}
}

func TestValidateArgRangeFlagsOutOfRange(t *testing.T) {
	rng := [2]float64{0, 10}
	c := argContext{code: "^BY", index: 0, arg: &Arg{Range: &rng}}
	issues := validateArgRange(c, "15", nil)
	if len(issues) != 1 || issues[0].ID != CodeOutOfRange {
		t.Errorf("issues = %v, want one %s", issues, CodeOutOfRange)
	}
}

func TestValidateArgRangeConvertsDotsUnitsUsingDeviceDPI(t *testing.T) {
	dpi := 200
	device := &DeviceState{Units: UnitsInches, DPI: &dpi}
	rng := [2]float64{0, 100}
	c := argContext{code: "^FO", index: 0, arg: &Arg{Range: &rng, Unit: "dots"}, device: device}
	// 1 inch at 200 dpi normalizes to 200 dots, which exceeds the range.
	issues := validateArgRange(c, "1", nil)
	if len(issues) != 1 || issues[0].ID != CodeOutOfRange {
		t.Errorf("issues = %v, want one %s after dots conversion", issues, CodeOutOfRange)
	}
}

func TestValidateArgRangeWithinBoundsProducesNoIssue(t *testing.T) {
	rng := [2]float64{0, 10}
	c := argContext{code: "^BY", index: 0, arg: &Arg{Range: &rng}}
	if issues := validateArgRange(c, "5", nil); len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestValidateArgLengthChecksMinAndMax(t *testing.T) {
	min, max := 3, 5
	c := argContext{code: "^FD", index: 0, arg: &Arg{MinLength: &min, MaxLength: &max}}
	if issues := validateArgLength(c, "ab"); len(issues) != 1 || issues[0].ID != CodeStringTooShort {
		t.Errorf("issues = %v, want one %s", issues, CodeStringTooShort)
	}
	if issues := validateArgLength(c, "abcdefgh"); len(issues) != 1 || issues[0].ID != CodeStringTooLong {
		t.Errorf("issues = %v, want one %s", issues, CodeStringTooLong)
	}
	if issues := validateArgLength(c, "abcd"); len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestValidateArgRoundingFlagsNonMultiple(t *testing.T) {
	c := argContext{code: "^BY", index: 0, arg: &Arg{
		RoundingPolicy: &RoundingPolicy{Mode: RoundingToMultiple, Multiple: 2, Epsilon: 0.001},
	}}
	if issues := validateArgRounding(c, "5", nil); len(issues) != 1 || issues[0].ID != CodeRoundingViolation {
		t.Errorf("issues = %v, want one %s", issues, CodeRoundingViolation)
	}
	if issues := validateArgRounding(c, "4", nil); len(issues) != 0 {
		t.Errorf("issues = %v, want none for an exact multiple", issues)
	}
}

func TestValidateArgRangeConditionalOverridesBaseWhenSiblingMatches(t *testing.T) {
	base := [2]float64{0, 10}
	narrow := [2]float64{0, 3}
	c := argContext{code: "^BY", index: 0, arg: &Arg{
		Range:     &base,
		RangeWhen: []ConditionalRange{{When: "mode=thin", Range: narrow}},
	}}
	if issues := validateArgRange(c, "5", map[string]string{"mode": "thin"}); len(issues) != 1 || issues[0].ID != CodeOutOfRange {
		t.Errorf("issues = %v, want one %s under the narrowed conditional range", issues, CodeOutOfRange)
	}
	if issues := validateArgRange(c, "5", map[string]string{"mode": "wide"}); len(issues) != 0 {
		t.Errorf("issues = %v, want none: the condition's value does not match, so the base range applies", issues)
	}
	if issues := validateArgRange(c, "5", nil); len(issues) != 0 {
		t.Errorf("issues = %v, want none with no sibling values at all", issues)
	}
}

func TestValidateArgRoundingConditionalOverridesBaseWhenSiblingMatches(t *testing.T) {
	c := argContext{code: "^BY", index: 0, arg: &Arg{
		RoundingPolicy: &RoundingPolicy{Mode: RoundingToMultiple, Multiple: 2, Epsilon: 0.001},
		RoundingPolicyWhen: []ConditionalRounding{
			{When: "unit=mm", Mode: RoundingToMultiple, Multiple: 5, Epsilon: 0.001},
		},
	}}
	if issues := validateArgRounding(c, "4", map[string]string{"unit": "mm"}); len(issues) != 1 || issues[0].ID != CodeRoundingViolation {
		t.Errorf("issues = %v, want one %s: 4 is not a multiple of 5", issues, CodeRoundingViolation)
	}
	if issues := validateArgRounding(c, "4", map[string]string{"unit": "dots"}); len(issues) != 0 {
		t.Errorf("issues = %v, want none: the condition does not match, so the base policy (multiple of 2) applies", issues)
	}
}

func TestValidateArgProfileConstraintFlagsViolation(t *testing.T) {
	profile := &Profile{DPI: 203, Page: &Page{WidthDots: floatp(812)}}
	c := argContext{code: "^FO", index: 0, arg: &Arg{
		ProfileConstraint: &ProfileConstraint{Field: "page.width_dots", Op: OpLte},
	}, profile: profile}
	if issues := validateArgProfileConstraint(c, "1000"); len(issues) != 1 || issues[0].ID != CodeProfileConstraint {
		t.Errorf("issues = %v, want one %s", issues, CodeProfileConstraint)
	}
	if issues := validateArgProfileConstraint(c, "100"); len(issues) != 0 {
		t.Errorf("issues = %v, want none when within the profile constraint", issues)
	}
}

func TestValidateArgProfileConstraintSkippedWithoutProfile(t *testing.T) {
	c := argContext{code: "^FO", index: 0, arg: &Arg{
		ProfileConstraint: &ProfileConstraint{Field: "page.width_dots", Op: OpLte},
	}}
	if issues := validateArgProfileConstraint(c, "1000"); len(issues) != 0 {
		t.Errorf("issues = %v, want none with no profile loaded", issues)
	}
}

func TestOpDesc(t *testing.T) {
	if opDesc(OpLte) != "exceeds" || opDesc(OpLt) != "exceeds" {
		t.Error("opDesc(Lte/Lt) should read as 'exceeds'")
	}
	if opDesc(OpGte) != "is below" || opDesc(OpGt) != "is below" {
		t.Error("opDesc(Gte/Gt) should read as 'is below'")
	}
	if opDesc(OpEq) != "does not equal" {
		t.Error("opDesc(Eq) should read as 'does not equal'")
	}
}

func TestValidateArgEnumGatesFlagsUnavailableFeature(t *testing.T) {
	profile := &Profile{Features: &Features{Cutter: boolp(false)}}
	arg := &Arg{Type: "enum", Enum: []EnumValue{{Value: "C", PrinterGates: []string{"cutter"}}}}
	c := argContext{code: "^MM", index: 0, arg: arg}
	issues := validateArgEnumGates(c, "C", profile)
	if len(issues) != 1 || issues[0].ID != CodePrinterGate {
		t.Errorf("issues = %v, want one %s", issues, CodePrinterGate)
	}
}

func TestValidateArgEnumGatesSilentWhenGateUnknownOrAvailable(t *testing.T) {
	profile := &Profile{Features: &Features{Cutter: boolp(true)}}
	arg := &Arg{Type: "enum", Enum: []EnumValue{{Value: "C", PrinterGates: []string{"cutter"}}}}
	c := argContext{code: "^MM", index: 0, arg: arg}
	if issues := validateArgEnumGates(c, "C", profile); len(issues) != 0 {
		t.Errorf("issues = %v, want none when the gate is available", issues)
	}
}

func TestValueToArgString(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantOK  bool
	}{
		{`"hello"`, "hello", true},
		{"true", "Y", true},
		{"false", "N", true},
		{"null", "", false},
		{"", "", false},
		{"42", "42", true},
	}
	for _, tt := range tests {
		got, ok := valueToArgString([]byte(tt.raw))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("valueToArgString(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolveEffectiveDefaultValuePrefersDefaultFrom(t *testing.T) {
	labelState := NewLabelValueState()
	device := NewDeviceState()
	labelState.ApplyProducer("^BY", []ArgSlot{{Value: strp("2")}}, device)
	scratch := newSemanticScratch()

	a := &Arg{DefaultFrom: "^BY", DefaultFromStateKey: "barcode.moduleWidth", Default: []byte(`"9"`)}
	v, ok := resolveEffectiveDefaultValue(a, labelState, nil, scratch)
	if !ok || v != "2" {
		t.Errorf("resolveEffectiveDefaultValue() = (%q, %v), want (2, true)", v, ok)
	}
	if !scratch.consumed["barcode.moduleWidth"] {
		t.Error("expected the state key to be marked consumed")
	}
}

func TestResolveEffectiveDefaultValueFallsBackToDPIThenStatic(t *testing.T) {
	a := &Arg{
		DefaultByDPI: map[string]json.RawMessage{"300": []byte(`"30"`)},
		Default:      []byte(`"10"`),
	}
	profile := &Profile{DPI: 300}
	v, ok := resolveEffectiveDefaultValue(a, nil, profile, nil)
	if !ok || v != "30" {
		t.Errorf("resolveEffectiveDefaultValue() = (%q, %v), want the DPI-keyed default (30, true)", v, ok)
	}

	v, ok = resolveEffectiveDefaultValue(a, nil, nil, nil)
	if !ok || v != "10" {
		t.Errorf("resolveEffectiveDefaultValue() = (%q, %v), want the static default (10, true)", v, ok)
	}
}

func TestValidateCommandArgsFlagsRequiredMissing(t *testing.T) {
	entry := &CommandEntry{
		Args: []ArgUnion{{Single: &Arg{Name: "width", Type: "int"}}},
	}
	issues := validateCommandArgs("^BY", entry, nil, NewLabelValueState(), NewDeviceState(), nil, newSemanticScratch(), Span{})
	if len(issues) != 1 || issues[0].ID != CodeRequiredMissing {
		t.Errorf("issues = %v, want one %s", issues, CodeRequiredMissing)
	}
}

func TestValidateCommandArgsOptionalMissingProducesNoIssue(t *testing.T) {
	entry := &CommandEntry{
		Args: []ArgUnion{{Single: &Arg{Name: "width", Type: "int", Optional: true}}},
	}
	issues := validateCommandArgs("^BY", entry, nil, NewLabelValueState(), NewDeviceState(), nil, newSemanticScratch(), Span{})
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none for an optional missing argument", issues)
	}
}

func TestValidateCommandArgsUsesStaticDefaultWhenSlotUnset(t *testing.T) {
	entry := &CommandEntry{
		Args: []ArgUnion{{Single: &Arg{Name: "width", Type: "int", Default: []byte(`2`)}}},
	}
	issues := validateCommandArgs("^BY", entry, nil, NewLabelValueState(), NewDeviceState(), nil, newSemanticScratch(), Span{})
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none: the default should satisfy the type check", issues)
	}
}

func TestValidateCommandArgsFlagsRequiredEmptyDistinctFromMissing(t *testing.T) {
	entry := &CommandEntry{
		Args: []ArgUnion{{Single: &Arg{Name: "width", Type: "int"}}},
	}
	slots := []ArgSlot{{Presence: PresenceSlotEmpty}}
	issues := validateCommandArgs("^BY", entry, slots, NewLabelValueState(), NewDeviceState(), nil, newSemanticScratch(), Span{})
	if len(issues) != 1 || issues[0].ID != CodeRequiredEmpty {
		t.Errorf("issues = %v, want one %s for a required argument left empty between delimiters", issues, CodeRequiredEmpty)
	}
}

func TestValidateCommandArgsEmptyMeansUseDefaultSkipsRequiredEmpty(t *testing.T) {
	entry := &CommandEntry{
		Args: []ArgUnion{{Single: &Arg{Name: "width", Type: "int", Default: []byte(`2`), Presence: PresenceEmptyMeansUseDefault}}},
	}
	slots := []ArgSlot{{Presence: PresenceSlotEmpty}}
	issues := validateCommandArgs("^BY", entry, slots, NewLabelValueState(), NewDeviceState(), nil, newSemanticScratch(), Span{})
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none: an empty slot should fall through to the default", issues)
	}
}
