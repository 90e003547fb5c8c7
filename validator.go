// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"fmt"
	"strings"
)

// ResolvedLabelState is the typed, fully-resolved view of one label's
// producer defaults and structural bookkeeping after validation, handed
// back to callers that want to inspect what a label would actually do
// on a device (e.g. a preview renderer) without re-walking its nodes.
type ResolvedLabelState struct {
	Value    *LabelValueState
	scratch  *semanticScratch
}

// ValidateLabel runs the full validation pipeline over one label: field
// membership and structural tracking, per-command argument and
// constraint checks, printer-gate and placement enforcement, and the
// label-level preflight/empty-label checks. Diagnostics are appended to
// issues; device carries session-scoped state forward across the
// caller's label loop.
func ValidateLabel(label Label, tables *ParserTables, profile *Profile, device *DeviceState) (ResolvedLabelState, []Diagnostic) {
	var issues []Diagnostic
	labelState := NewLabelValueState()
	scratch := newSemanticScratch()
	tracker := NewFieldTracker()

	seenCodes := make(map[string]bool)
	seenFieldCodes := make(map[string]bool)
	insideBounds := false
	hasPrintable := false

	for idx, node := range label.Nodes {
		if node.Kind != NodeCommand {
			continue
		}
		code := node.Code
		switch code {
		case "^XA":
			insideBounds = true
		}

		var entry *CommandEntry
		if tables != nil {
			entry = tables.CmdByCode(code)
		}

		issues = append(issues, enforcePlacement(code, entry, insideBounds, node.Span)...)

		if entry != nil {
			if n := uint32(len(node.Args)); n > entry.Arity {
				issues = append(issues, ErrorDiag(CodeArity,
					arityMessage(code, n, entry.Arity), spanPtr(node.Span)))
			}
			issues = append(issues, validateCommandArgs(code, entry, node.Args, labelState, device, profile, scratch, node.Span)...)

			if entry.Effects != nil {
				issues = append(issues, checkRedundantState(code, entry, scratch, idx, node.Span)...)
			}

			rawPayload := ""
			fieldDataContent := ""
			if idx+1 < len(label.Nodes) {
				switch label.Nodes[idx+1].Kind {
				case NodeRawData:
					rawPayload = label.Nodes[idx+1].Raw
					fieldDataContent = rawPayload
				case NodeFieldData:
					fieldDataContent = label.Nodes[idx+1].Content
				}
			}

			if entry.OpensField {
				seenFieldCodes = make(map[string]bool)
			}
			issues = append(issues, evaluateConstraints(entry, node, seenCodes, seenFieldCodes, fieldDataContent, node.Span)...)
			issues = append(issues, enforcePrinterGates(code, entry, profile, node.Span)...)

			labelState.ApplyProducer(code, node.Args, device)
			issues = append(issues, applyStructuralRules(code, entry, node.Args, idx, node.Span, scratch, labelState, profile, rawPayload)...)

			if entry.IsFieldRelated() {
				if entry.ClosesField {
					issues = append(issues, tracker.Close(node.Span, labelState, profile, scratch.effectiveWidth, scratch.effectiveHeight)...)
				} else {
					issues = append(issues, tracker.ProcessCommand(idx, code, entry, node.Args, node.Span)...)
				}
			}

			updateSessionState(code, entry, node.Args, device)
			if code != "^XA" && code != "^XZ" {
				hasPrintable = hasPrintable || entry.IsFieldRelated() || entry.Category == CategoryGraphics
			}
		}

		seenCodes[code] = true
		seenFieldCodes[code] = true
		if code == "^XZ" {
			insideBounds = false
		}
	}

	if tracker.Open {
		issues = append(issues, ErrorDiag(CodeFieldNotClosed,
			"a field was opened with a field-origin command but never closed with ^FS", spanPtr(EmptySpan(0))))
	}
	if !hasPrintable {
		issues = append(issues, InfoDiag(CodeEmptyLabel, "the label contained no printable content", nil))
	}
	if profile != nil && !scratch.hasExplicitPW && !scratch.hasExplicitLL {
		issues = append(issues, InfoDiag(CodeMissingExplicitDimensions,
			"a profile is loaded but the label does not declare an explicit ^PW/^LL", nil))
	}

	return ResolvedLabelState{Value: labelState, scratch: scratch}, issues
}

// Validate runs ValidateLabel over every label in tree in document
// order, carrying one DeviceState across the whole call so session-scope
// commands (notably ^MU) affect every later label as the real firmware
// would.
func Validate(tree Tree, tables *ParserTables, profile *Profile) []Diagnostic {
	device := NewDeviceState()
	var issues []Diagnostic
	for _, label := range tree.Labels {
		_, labelIssues := ValidateLabel(label, tables, profile, device)
		issues = append(issues, labelIssues...)
	}
	return issues
}

// enforcePlacement implements ZPL2205: a command's Placement restricts
// whether it may appear inside (between ^XA/^XZ) or outside a label.
// ^XA/^XZ themselves are exempt. When Placement is silent on the inside
// case, a command's Plane determines the default: Host and Device plane
// commands are assumed label-safe, Config/Format/Unknown are not.
func enforcePlacement(code string, entry *CommandEntry, insideLabel bool, span Span) []Diagnostic {
	if entry == nil || code == "^XA" || code == "^XZ" {
		return nil
	}
	placement := entry.Placement
	if insideLabel {
		allowed := true
		if placement != nil && placement.AllowedInsideLabel != nil {
			allowed = *placement.AllowedInsideLabel
		} else {
			allowed = entry.Plane == PlaneHost || entry.Plane == PlaneDevice
		}
		if !allowed {
			return []Diagnostic{ErrorDiag(CodeHostCommandInLabel,
				code+" may not appear inside an open label", spanPtr(span)).
				WithContext(ctx("command", code, "plane", planeString(entry.Plane)))}
		}
	} else {
		if placement != nil && placement.AllowedOutsideLabel != nil && !*placement.AllowedOutsideLabel {
			return []Diagnostic{ErrorDiag(CodeHostCommandInLabel,
				code+" may not appear outside a label", spanPtr(span)).
				WithContext(ctx("command", code, "plane", planeString(entry.Plane)))}
		}
	}
	return nil
}

func arityMessage(code string, got, max uint32) string {
	return fmt.Sprintf("%s has too many arguments (%d>%d)", code, got, max)
}

func planeString(p Plane) string {
	switch p {
	case PlaneFormat:
		return "format"
	case PlaneDevice:
		return "device"
	case PlaneHost:
		return "host"
	case PlaneConfig:
		return "config"
	default:
		return "unknown"
	}
}

// checkRedundantState implements ZPL2305: a producer is flagged
// redundant only when the previous instance of the same producer key was
// never consumed via a default_from reference — merely being overwritten
// is not itself redundant, since firmware commands are routinely
// reissued to refresh unrelated sibling arguments.
func checkRedundantState(code string, entry *CommandEntry, scratch *semanticScratch, idx int, span Span) []Diagnostic {
	var issues []Diagnostic
	for _, key := range entry.Effects.Sets {
		if _, wasSet := scratch.producerSetAt[key]; wasSet && !scratch.consumed[key] {
			issues = append(issues, InfoDiag(CodeRedundantState,
				code+" overwrites a previously set value that was never read", spanPtr(span)).
				WithContext(ctx("command", code, "stateKey", key)))
		}
		scratch.producerSetAt[key] = idx
		delete(scratch.consumed, key)
	}
	return issues
}

// evaluateConstraints runs a command's declared Order/Requires/
// Incompatible/EmptyData/Note constraints against the codes already
// seen this label. Each constraint checks the label-wide seenCodes set
// or, when Scope is field-scoped, the seenFieldCodes set that resets at
// every field-origin command.
func evaluateConstraints(entry *CommandEntry, node Node, seenCodes, seenFieldCodes map[string]bool, fieldData string, span Span) []Diagnostic {
	var issues []Diagnostic
	for _, c := range entry.Constraints {
		seen := seenCodes
		if c.Scope == ConstraintScopeField {
			seen = seenFieldCodes
		}
		switch c.Kind {
		case ConstraintIncompatible:
			if seen[c.Expr] {
				issues = append(issues, NewDiagnostic(CodeIncompatibleCommand, c.Severity.ToSeverity(),
					constraintMessage(c, c.Expr+" is incompatible with this command"), spanPtr(span)))
			}
		case ConstraintRequires:
			if !seen[c.Expr] {
				issues = append(issues, NewDiagnostic(CodeRequiresCommand, c.Severity.ToSeverity(),
					constraintMessage(c, "requires "+c.Expr+" to also appear in this label"), spanPtr(span)))
			}
		case ConstraintOrder:
			after, codes := parseOrderExpr(c.Expr)
			for _, code := range codes {
				if after && !seen[code] {
					issues = append(issues, NewDiagnostic(CodeOrderViolation, c.Severity.ToSeverity(),
						constraintMessage(c, "must appear after "+code), spanPtr(span)))
				} else if !after && seen[code] {
					issues = append(issues, NewDiagnostic(CodeOrderViolation, c.Severity.ToSeverity(),
						constraintMessage(c, "must appear before "+code), spanPtr(span)))
				}
			}
		case ConstraintEmptyData:
			if !hasFieldData(node, fieldData) {
				issues = append(issues, NewDiagnostic(CodeEmptyFieldData, c.Severity.ToSeverity(),
					constraintMessage(c, "field data is empty"), spanPtr(span)))
			}
		case ConstraintNote:
			issues = append(issues, NewDiagnostic(CodeNote, c.Severity.ToSeverity(),
				constraintMessage(c, c.Expr), spanPtr(span)))
		}
	}
	return issues
}

// parseOrderExpr splits an Order constraint's expression into its
// direction and alternative codes. "before:X|Y" is satisfied only if
// none of X or Y has been seen yet; "after:X|Y" requires all of them to
// already have been seen. An expression with no direction prefix
// defaults to "before", matching a bare code list.
func parseOrderExpr(expr string) (after bool, codes []string) {
	switch {
	case strings.HasPrefix(expr, "before:"):
		expr = strings.TrimPrefix(expr, "before:")
	case strings.HasPrefix(expr, "after:"):
		after = true
		expr = strings.TrimPrefix(expr, "after:")
	}
	return after, strings.Split(expr, "|")
}

// hasFieldData reports whether node carries non-empty associated field
// data: either an inline argument value, or non-empty trailing field
// data text (an ^FD/^FV content node, or a raw-payload blob).
func hasFieldData(node Node, trailing string) bool {
	for _, slot := range node.Args {
		if slot.Presence == PresenceSlotValue && slot.Value != nil && *slot.Value != "" {
			return true
		}
	}
	return trailing != ""
}

func constraintMessage(c Constraint, fallback string) string {
	if c.Message != "" {
		return c.Message
	}
	return fallback
}

// enforcePrinterGates checks a command-level printer_gates list against
// the profile's tri-state hardware features. An unresolved gate name, or
// a nil (unknown) feature state, is never treated as a failure.
func enforcePrinterGates(code string, entry *CommandEntry, profile *Profile, span Span) []Diagnostic {
	if profile == nil || len(entry.PrinterGates) == 0 {
		return nil
	}
	var issues []Diagnostic
	for _, g := range entry.PrinterGates {
		if avail := ResolveGate(profile.Features, g); avail != nil && !*avail {
			issues = append(issues, WarnDiag(CodePrinterGate,
				code+" requires the "+g+" hardware feature, which this profile marks unavailable", spanPtr(span)).
				WithContext(ctx("command", code, "gate", g, "level", "command", "profile", profile.ID)))
		}
	}
	return issues
}

// updateSessionState persists the effects of session-scope commands to
// device, so later labels in the same Validate call see them. ^MU is
// handled specially since it updates typed Units/DPI fields rather than
// a generic string-keyed slot.
func updateSessionState(code string, entry *CommandEntry, args []ArgSlot, device *DeviceState) {
	if code == "^MU" {
		device.ApplyMU(args)
		return
	}
	if entry.Scope == ScopeSession {
		device.SessionProducers[code] = true
	}
}
