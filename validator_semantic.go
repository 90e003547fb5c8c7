// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"fmt"
	"strconv"
)

// semanticScratch is the per-label scratch state the structural-rule
// checks accumulate into as a label is walked node by node. It is
// distinct from LabelValueState (typed producer defaults) because these
// fields are purely bookkeeping for diagnostics, not values other
// commands resolve defaults from.
type semanticScratch struct {
	fieldNumbers    map[string]int
	loadedFonts     map[byte]bool
	effectiveWidth  *float64
	effectiveHeight *float64
	hasExplicitPW   bool
	hasExplicitLL   bool
	gfBytesSeen     int

	// producerSetAt and consumed track the RedundantState bookkeeping:
	// a state key is redundant only if it was set again before anything
	// consumed (read via default_from) its previous value.
	producerSetAt map[string]int
	consumed      map[string]bool
}

func newSemanticScratch() *semanticScratch {
	return &semanticScratch{
		fieldNumbers:  make(map[string]int),
		loadedFonts:   make(map[byte]bool),
		producerSetAt: make(map[string]int),
		consumed:      make(map[string]bool),
	}
}

// markConsumed records that a default_from_state_key reference
// successfully resolved against key, satisfying RedundantState's
// consumption requirement for it.
func (s *semanticScratch) markConsumed(key string) {
	if key != "" {
		s.consumed[key] = true
	}
}

// applyStructuralRules runs every StructuralRule declared on entry
// against this command's invocation, updating scratch and labelState and
// returning any diagnostics produced.
func applyStructuralRules(code string, entry *CommandEntry, args []ArgSlot, idx int, span Span,
	scratch *semanticScratch, labelState *LabelValueState, profile *Profile, rawPayload string) []Diagnostic {
	var issues []Diagnostic
	for _, rule := range entry.StructuralRules {
		switch rule.Kind {
		case "position_bounds":
			if rule.PositionBounds != nil {
				issues = append(issues, applyPositionBounds(*rule.PositionBounds, args, scratch, labelState, profile, span)...)
			}
		case "font_reference":
			if rule.FontReference != nil {
				issues = append(issues, applyFontReference(*rule.FontReference, args, scratch, span)...)
			}
		case "media_modes":
			if rule.MediaModes != nil {
				issues = append(issues, applyMediaModes(*rule.MediaModes, args, profile, span)...)
			}
		case "gf_data_length":
			if rule.GfDataLength != nil {
				issues = append(issues, applyGfDataLength(*rule.GfDataLength, args, rawPayload, span)...)
			}
		}
		if rule.DuplicateFieldNumberArgIndex != nil {
			issues = append(issues, applyDuplicateFieldNumber(*rule.DuplicateFieldNumberArgIndex, args, idx, scratch, span)...)
		}
	}
	return issues
}

// applyDuplicateFieldNumber implements ZPL2301: the same ^FN field
// number used twice within one label.
func applyDuplicateFieldNumber(argIdx int, args []ArgSlot, nodeIdx int, scratch *semanticScratch, span Span) []Diagnostic {
	if argIdx >= len(args) || args[argIdx].Value == nil {
		return nil
	}
	num := *args[argIdx].Value
	if first, seen := scratch.fieldNumbers[num]; seen {
		return []Diagnostic{WarnDiag(CodeDuplicateFieldNumber,
			fmt.Sprintf("field number %s was already used earlier in this label", num), spanPtr(span)).
			WithContext(ctx("fieldNumber", num, "firstNodeIndex", strconv.Itoa(first)))}
	}
	scratch.fieldNumbers[num] = nodeIdx
	return nil
}

// applyPositionBounds implements ZPL2302's four actions: tracking the
// label's effective width/height from ^PW/^LL, tracking the running
// field-origin coordinate from ^FO/^LH, and validating it against the
// effective bounds.
func applyPositionBounds(rule PositionBoundsRule, args []ArgSlot, scratch *semanticScratch, labelState *LabelValueState, profile *Profile, span Span) []Diagnostic {
	switch rule.Action {
	case ActionTrackWidth:
		if labelState.Layout.PrintWidth != nil {
			scratch.effectiveWidth = labelState.Layout.PrintWidth
			scratch.hasExplicitPW = true
		}
	case ActionTrackHeight:
		if labelState.Layout.LabelLength != nil {
			scratch.effectiveHeight = labelState.Layout.LabelLength
			scratch.hasExplicitLL = true
		}
	case ActionTrackFieldOrigin:
		x, y := labelState.LabelHome.X, labelState.LabelHome.Y
		if len(args) > 0 {
			if v := argFloat(args, 0); v != nil {
				x = labelState.LabelHome.X + *v
			}
		}
		if len(args) > 1 {
			if v := argFloat(args, 1); v != nil {
				y = labelState.LabelHome.Y + *v
			}
		}
		labelState.LabelHome.X = x
		labelState.LabelHome.Y = y
	case ActionValidateFieldOrigin:
		var issues []Diagnostic
		maxX := scratch.effectiveWidth
		if maxX == nil && profile != nil && profile.Page != nil {
			maxX = profile.Page.WidthDots
		}
		maxY := scratch.effectiveHeight
		if maxY == nil && profile != nil && profile.Page != nil {
			maxY = profile.Page.HeightDots
		}
		if maxX != nil && labelState.LabelHome.X > *maxX {
			issues = append(issues, WarnDiag(CodePositionOutOfBounds,
				fmt.Sprintf("field origin x=%v exceeds the effective label width of %v", labelState.LabelHome.X, *maxX), spanPtr(span)).
				WithContext(ctx("axis", "x")))
		}
		if maxY != nil && labelState.LabelHome.Y > *maxY {
			issues = append(issues, WarnDiag(CodePositionOutOfBounds,
				fmt.Sprintf("field origin y=%v exceeds the effective label height of %v", labelState.LabelHome.Y, *maxY), spanPtr(span)).
				WithContext(ctx("axis", "y")))
		}
		return issues
	}
	return nil
}

// applyFontReference implements ZPL2303: ^CW registers a one-character
// font alias, ^A0/^AF-style commands validate their font argument is
// either a built-in (uppercase letter or digit) or a registered alias.
func applyFontReference(rule FontReferenceRule, args []ArgSlot, scratch *semanticScratch, span Span) []Diagnostic {
	if rule.ArgIndex >= len(args) || args[rule.ArgIndex].Value == nil {
		return nil
	}
	v := *args[rule.ArgIndex].Value
	if len(v) != 1 {
		return nil
	}
	b := v[0]
	switch rule.Action {
	case FontActionRegister:
		scratch.loadedFonts[b] = true
	case FontActionValidate:
		isBuiltin := (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
		if !isBuiltin && !scratch.loadedFonts[b] {
			return []Diagnostic{WarnDiag(CodeUnknownFont,
				fmt.Sprintf("font %q is neither a built-in font nor registered with ^CW", v), spanPtr(span))}
		}
	}
	return nil
}

// applyMediaModes implements ZPL1403: a media-mode or tracking argument
// must be among the profile's declared supported lists, when the
// profile declares any (an empty list means "not restricted").
func applyMediaModes(rule MediaModesRule, args []ArgSlot, profile *Profile, span Span) []Diagnostic {
	if profile == nil || profile.Media == nil || rule.ArgIndex >= len(args) || args[rule.ArgIndex].Value == nil {
		return nil
	}
	v := *args[rule.ArgIndex].Value
	var allowed []string
	switch rule.Target {
	case MediaTargetSupportedModes:
		allowed = profile.Media.SupportedModes
	case MediaTargetSupportedTracking:
		allowed = profile.Media.SupportedTracking
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, a := range allowed {
		if a == v {
			return nil
		}
	}
	return []Diagnostic{WarnDiag(CodeMediaModeUnsupported,
		fmt.Sprintf("%q is not among this profile's supported values for %s", v, rule.Target), spanPtr(span))}
}

// applyGfDataLength implements the ^GF data-length structural rule: for
// ASCII-hex compression ("A"), the declared byte count must equal half
// the hex-digit payload length (each byte is two hex digits); binary
// ("B") is checked 1:1 against the raw payload length; compressed ("C",
// Z64-style) is not checked since its effective length depends on
// decoding the run-length stream, which is out of scope for static
// validation.
func applyGfDataLength(rule GfDataLengthRule, args []ArgSlot, rawPayload string, span Span) []Diagnostic {
	if rule.CompressionArgIndex >= len(args) || rule.ByteCountArgIndex >= len(args) {
		return nil
	}
	comp := args[rule.CompressionArgIndex].ValueOr("")
	declared := args[rule.ByteCountArgIndex].ValueOr("")
	n, err := strconv.Atoi(declared)
	if err != nil {
		return nil
	}
	var effective int
	switch comp {
	case "A", "a":
		effective = len(rawPayload) / 2
	case "B", "b":
		effective = len(rawPayload)
	default:
		return nil
	}
	if effective != n {
		return []Diagnostic{ErrorDiag(CodeGfDataLengthMismatch,
			fmt.Sprintf("^GF declared %d data bytes but the payload carries %d", n, effective), spanPtr(span))}
	}
	return nil
}
