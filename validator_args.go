// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"fmt"
	"strconv"
	"strings"
)

// selectEffectiveArg resolves an ArgUnion to the single Arg schema that
// applies to slot's actual or default value: Single passes through
// unconditionally; OneOf first tries every enum-typed alternative (the
// value must belong to its declared enum), then every numeric-typed
// alternative (the value must parse), and finally falls back to the
// first alternative so a later value-check still reports something
// sensible.
func selectEffectiveArg(u ArgUnion, raw string) *Arg {
	if u.Single != nil {
		return u.Single
	}
	for i := range u.OneOf {
		a := &u.OneOf[i]
		if a.Type == "enum" && EnumContains(a.Enum, raw) {
			return a
		}
	}
	for i := range u.OneOf {
		a := &u.OneOf[i]
		if a.Type == "int" || a.Type == "float" {
			if _, err := strconv.ParseFloat(raw, 64); err == nil {
				return a
			}
		}
	}
	if len(u.OneOf) > 0 {
		return &u.OneOf[0]
	}
	return nil
}

// argContext carries the shared inputs the per-argument validation
// functions need: command code, argument index, the resolved Arg
// schema, device/profile state, and the span to attach to any emitted
// diagnostic.
type argContext struct {
	code    string
	index   int
	arg     *Arg
	device  *DeviceState
	profile *Profile
	span    Span
}

func (c argContext) labelCtx(extra ...string) map[string]string {
	pairs := append([]string{"command", c.code, "arg", c.arg.displayName(c.index)}, extra...)
	return ctx(pairs...)
}

func (a *Arg) displayName(index int) string {
	if a.Name != "" {
		return a.Name
	}
	if a.Key != "" {
		return a.Key
	}
	return fmt.Sprintf("arg%d", index)
}

// validateArgValue type-checks raw against the argument's declared
// type. Enum mismatches do not block further checks (range/length may
// still run against the raw string); int/float/char parse failures do.
func validateArgValue(c argContext, raw string) (issues []Diagnostic, blocked bool) {
	switch c.arg.Type {
	case "enum":
		if !EnumContains(c.arg.Enum, raw) {
			issues = append(issues, WarnDiag(CodeInvalidEnum,
				fmt.Sprintf("%s is not a valid value for %s", raw, c.arg.displayName(c.index)), spanPtr(c.span)).
				WithContext(c.labelCtx("value", raw)))
		}
	case "int":
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			issues = append(issues, ErrorDiag(CodeExpectedInteger,
				fmt.Sprintf("%q is not a valid integer for %s", raw, c.arg.displayName(c.index)), spanPtr(c.span)).
				WithContext(c.labelCtx()))
			blocked = true
		}
	case "float":
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			issues = append(issues, ErrorDiag(CodeExpectedNumeric,
				fmt.Sprintf("%q is not a valid number for %s", raw, c.arg.displayName(c.index)), spanPtr(c.span)).
				WithContext(c.labelCtx()))
			blocked = true
		}
	case "char":
		if len(raw) != 1 {
			issues = append(issues, ErrorDiag(CodeExpectedChar,
				fmt.Sprintf("%s must be exactly one character", c.arg.displayName(c.index)), spanPtr(c.span)).
				WithContext(c.labelCtx()))
			blocked = true
		}
	}
	return issues, blocked
}

// parseWhenCondition splits a conditional range/rounding predicate of
// the form "key=value" into the sibling argument key to look up and the
// value it must hold for the condition to match. A predicate with no
// "=" is treated as a bare key that must hold the empty string.
func parseWhenCondition(when string) (key, value string) {
	if i := strings.IndexByte(when, '='); i >= 0 {
		return when[:i], when[i+1:]
	}
	return when, ""
}

// siblingArgValues resolves the effective raw value of every argument
// declared on a command invocation, keyed by its schema Key (falling
// back to Name), so a conditional range/rounding predicate on one
// argument can test another's value.
func siblingArgValues(entry *CommandEntry, slots []ArgSlot) map[string]string {
	values := make(map[string]string, len(entry.Args))
	for i, union := range entry.Args {
		var slot ArgSlot
		if i < len(slots) {
			slot = slots[i]
		}
		raw := ""
		if slot.Value != nil {
			raw = *slot.Value
		}
		probe := raw
		if probe == "" {
			if def, ok := peekDefault(union); ok {
				probe = def
			}
		}
		arg := selectEffectiveArg(union, probe)
		if arg == nil {
			continue
		}
		key := arg.Key
		if key == "" {
			key = arg.Name
		}
		if key == "" {
			continue
		}
		values[key] = raw
	}
	return values
}

// validateArgRange checks raw (parsed numerically) against the
// argument's declared Range, or a range_when override whose predicate
// matches whenValues, a map of sibling arguments' already-resolved
// values keyed by schema Key. The value is converted to dots before the
// comparison only when the argument declares unit=="dots" and the device
// is using non-dot units with a known DPI; the bounds are used as-is.
func validateArgRange(c argContext, raw string, whenValues map[string]string) []Diagnostic {
	rng := c.arg.Range
	for _, cond := range c.arg.RangeWhen {
		key, want := parseWhenCondition(cond.When)
		if v, ok := whenValues[key]; ok && v == want {
			r := cond.Range
			rng = &r
		}
	}
	if rng == nil {
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	lo, hi := rng[0], rng[1]
	if c.arg.Unit == "dots" && c.device != nil && c.device.Units != UnitsDots && c.device.DPI != nil {
		n = c.device.NormalizeToDots(n)
	}
	if n < lo || n > hi {
		return []Diagnostic{WarnDiag(CodeOutOfRange,
			fmt.Sprintf("%v is outside the valid range [%v, %v] for %s", n, lo, hi, c.arg.displayName(c.index)),
			spanPtr(c.span)).WithContext(c.labelCtx("value", raw))}
	}
	return nil
}

// validateArgLength checks raw's byte length against MinLength/MaxLength.
func validateArgLength(c argContext, raw string) []Diagnostic {
	var issues []Diagnostic
	n := len(raw)
	if c.arg.MinLength != nil && n < *c.arg.MinLength {
		issues = append(issues, WarnDiag(CodeStringTooShort,
			fmt.Sprintf("%s is shorter than the minimum length of %d", c.arg.displayName(c.index), *c.arg.MinLength),
			spanPtr(c.span)).WithContext(c.labelCtx()))
	}
	if c.arg.MaxLength != nil && n > *c.arg.MaxLength {
		issues = append(issues, WarnDiag(CodeStringTooLong,
			fmt.Sprintf("%s is longer than the maximum length of %d", c.arg.displayName(c.index), *c.arg.MaxLength),
			spanPtr(c.span)).WithContext(c.labelCtx()))
	}
	return issues
}

// validateArgRounding checks raw against a ToMultiple rounding policy,
// either the argument's static one or a rounding_policy_when override
// whose predicate matches whenValues, a map of sibling arguments'
// already-resolved values keyed by schema Key.
func validateArgRounding(c argContext, raw string, whenValues map[string]string) []Diagnostic {
	policy := c.arg.RoundingPolicy
	for _, cond := range c.arg.RoundingPolicyWhen {
		key, want := parseWhenCondition(cond.When)
		if v, ok := whenValues[key]; ok && v == want {
			policy = &RoundingPolicy{Mode: cond.Mode, Multiple: cond.Multiple, Epsilon: cond.Epsilon}
		}
	}
	if policy == nil || policy.Mode != RoundingToMultiple || policy.Multiple == 0 {
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	ratio := n / policy.Multiple
	rem := ratio - float64(int64(ratio))
	if rem < 0 {
		rem += 1
	}
	eps := policy.Epsilon
	if rem > eps && (1.0-rem) > eps {
		return []Diagnostic{WarnDiag(CodeRoundingViolation,
			fmt.Sprintf("%v is not a multiple of %v for %s", n, policy.Multiple, c.arg.displayName(c.index)),
			spanPtr(c.span)).WithContext(c.labelCtx())}
	}
	return nil
}

// validateArgProfileConstraint checks raw against the limit named by the
// argument's ProfileConstraint, skipped entirely when no profile is
// loaded or the field is unresolvable.
func validateArgProfileConstraint(c argContext, raw string) []Diagnostic {
	pc := c.arg.ProfileConstraint
	if pc == nil || c.profile == nil {
		return nil
	}
	limit, ok := ResolveProfileField(c.profile, pc.Field)
	if !ok {
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	if c.arg.Unit == "dots" && c.device != nil && c.device.Units != UnitsDots && c.device.DPI != nil {
		n = c.device.NormalizeToDots(n)
	}
	if !CheckProfileOp(n, pc.Op, limit) {
		return []Diagnostic{WarnDiag(CodeProfileConstraint,
			fmt.Sprintf("%s.%s %s profile %s (%v)", c.code, c.arg.displayName(c.index), opDesc(pc.Op), pc.Field, limit),
			spanPtr(c.span)).WithContext(c.labelCtx("value", raw))}
	}
	return nil
}

func opDesc(op ComparisonOp) string {
	switch op {
	case OpLte, OpLt:
		return "exceeds"
	case OpGte, OpGt:
		return "is below"
	default:
		return "does not equal"
	}
}

// validateArgEnumGates checks the printer_gates declared on the enum
// member matching raw, if any, against the profile's hardware features.
func validateArgEnumGates(c argContext, raw string, profile *Profile) []Diagnostic {
	if c.arg.Type != "enum" || profile == nil {
		return nil
	}
	var gates []string
	for _, ev := range c.arg.Enum {
		if ev.Value == raw {
			gates = ev.PrinterGates
			break
		}
	}
	var issues []Diagnostic
	for _, g := range gates {
		if avail := ResolveGate(profile.Features, g); avail != nil && !*avail {
			issues = append(issues, WarnDiag(CodePrinterGate,
				fmt.Sprintf("%s=%s requires the %q hardware feature, which this profile marks unavailable", c.arg.displayName(c.index), raw, g),
				spanPtr(c.span)).WithContext(c.labelCtx("gate", g, "level", "value")))
		}
	}
	return issues
}

// valueToArgString renders a JSON default value (string/number/bool) the
// way it would appear as a ZPL argument token.
func valueToArgString(raw []byte) (string, bool) {
	s := string(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], true
	}
	switch s {
	case "true":
		return "Y", true
	case "false":
		return "N", true
	case "null", "":
		return "", false
	default:
		return s, true
	}
}

// resolveEffectiveDefaultValue applies the priority order: an explicit
// default_from reference into another label-state producer's value,
// then a DPI-keyed static default, then the plain static default.
func resolveEffectiveDefaultValue(a *Arg, labelState *LabelValueState, profile *Profile, scratch *semanticScratch) (string, bool) {
	if a.DefaultFrom != "" && labelState != nil {
		if v, ok := labelState.StateValueByKey(a.DefaultFromStateKey); ok {
			if scratch != nil {
				scratch.markConsumed(a.DefaultFromStateKey)
			}
			return v, true
		}
	}
	if profile != nil && a.DefaultByDPI != nil {
		if raw, ok := a.DefaultByDPI[strconv.Itoa(profile.DPI)]; ok {
			return valueToArgString(raw)
		}
	}
	if a.Default != nil {
		return valueToArgString(a.Default)
	}
	return "", false
}

// validateCommandArgs runs the full per-argument pipeline — presence,
// then type/range/length/rounding/profile-constraint/enum-gate checks —
// over every declared argument of code, against the slots actually
// parsed for that command invocation.
func validateCommandArgs(code string, entry *CommandEntry, slots []ArgSlot, labelState *LabelValueState, device *DeviceState, profile *Profile, scratch *semanticScratch, span Span) []Diagnostic {
	var issues []Diagnostic
	whenValues := siblingArgValues(entry, slots)
	for i, union := range entry.Args {
		var slot ArgSlot
		hasSlot := i < len(slots)
		if hasSlot {
			slot = slots[i]
		} else {
			slot = ArgSlot{Presence: PresenceSlotUnset}
		}

		raw := ""
		if slot.Value != nil {
			raw = *slot.Value
		}

		probe := raw
		if probe == "" {
			if def, ok := peekDefault(union); ok {
				probe = def
			}
		}
		arg := selectEffectiveArg(union, probe)
		if arg == nil {
			continue
		}
		c := argContext{code: code, index: i, arg: arg, device: device, profile: profile, span: span}

		hasStaticDefault := arg.Default != nil || arg.DefaultByDPI != nil || arg.DefaultFrom != ""
		hasAnyDefault := hasStaticDefault
		emptyUsesDefault := slot.Presence == PresenceSlotEmpty && arg.Presence == PresenceEmptyMeansUseDefault

		if slot.Presence == PresenceSlotUnset || slot.Presence == PresenceSlotEmpty {
			if !arg.Optional && !hasAnyDefault && !emptyUsesDefault {
				if slot.Presence == PresenceSlotEmpty {
					issues = append(issues, ErrorDiag(CodeRequiredEmpty,
						fmt.Sprintf("%s was left empty", arg.displayName(i)), spanPtr(span)).WithContext(c.labelCtx()))
				} else {
					issues = append(issues, ErrorDiag(CodeRequiredMissing,
						fmt.Sprintf("%s is required but was not provided", arg.displayName(i)), spanPtr(span)).
						WithContext(c.labelCtx()))
				}
				continue
			}
			def, ok := resolveEffectiveDefaultValue(arg, labelState, profile, scratch)
			if !ok {
				continue
			}
			raw = def
		} else if raw == "" {
			continue
		}

		vIssues, blocked := validateArgValue(c, raw)
		issues = append(issues, vIssues...)
		if blocked {
			continue
		}
		issues = append(issues, validateArgRange(c, raw, whenValues)...)
		issues = append(issues, validateArgLength(c, raw)...)
		issues = append(issues, validateArgRounding(c, raw, whenValues)...)
		issues = append(issues, validateArgProfileConstraint(c, raw)...)
		issues = append(issues, validateArgEnumGates(c, raw, profile)...)
	}
	return issues
}

func peekDefault(u ArgUnion) (string, bool) {
	if u.Single != nil && u.Single.Default != nil {
		return valueToArgString(u.Single.Default)
	}
	return "", false
}
