// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"fmt"
	"strings"
)

// activeBarcode tracks one barcode command seen within the currently
// open field, paired with the data rules it expects its ^FD/^FV content
// to satisfy.
type activeBarcode struct {
	index int
	code  string
	rules FieldDataRules
}

// FieldTracker accumulates the state needed to validate one open
// ^FO...^FS field: whether it is open, whether it carries a pending hex
// escape indicator, field-number/serialization flags, and any barcode
// commands seen inside it.
type FieldTracker struct {
	Open          bool
	HasFH         bool
	FHIndicator   byte
	HasFN         bool
	HasSerial     bool
	StartIdx      int
	ActiveBarcodes []activeBarcode

	fieldData []string
}

// NewFieldTracker returns a closed FieldTracker.
func NewFieldTracker() *FieldTracker {
	return &FieldTracker{FHIndicator: '_'}
}

// ProcessCommand updates the tracker for one command node seen while
// walking a label, returning any diagnostics the transition itself
// produces (FieldNotClosed, FieldDataWithoutOrigin).
func (ft *FieldTracker) ProcessCommand(idx int, code string, entry *CommandEntry, args []ArgSlot, span Span) []Diagnostic {
	var issues []Diagnostic
	if entry == nil {
		return issues
	}
	if entry.OpensField {
		if ft.Open {
			issues = append(issues, WarnDiag(CodeFieldNotClosed,
				"a field was opened again before the previous one was closed with ^FS", spanPtr(span)).
				WithContext(ctx("command", code)))
		}
		*ft = FieldTracker{Open: true, StartIdx: idx, FHIndicator: '_'}
		return issues
	}
	if !ft.Open && (entry.FieldData || entry.RequiresField) {
		issues = append(issues, ErrorDiag(CodeFieldDataWithoutOrigin,
			code+" appeared with no open field", spanPtr(span)).WithContext(ctx("command", code)))
		return issues
	}
	if entry.HexEscapeModifier {
		ft.HasFH = true
		if len(args) > 0 && args[0].Value != nil && len(*args[0].Value) == 1 {
			ft.FHIndicator = (*args[0].Value)[0]
		}
	}
	if entry.FieldNumber {
		ft.HasFN = true
	}
	if entry.Serialization {
		ft.HasSerial = true
	}
	if entry.FieldData {
		if len(args) > 0 && args[0].Value != nil {
			ft.fieldData = append(ft.fieldData, *args[0].Value)
		}
	}
	if entry.FieldDataRules != nil && entry.FieldDataRules.HasRules() {
		ft.ActiveBarcodes = append(ft.ActiveBarcodes, activeBarcode{index: idx, code: code, rules: *entry.FieldDataRules})
	}
	return issues
}

// Close runs the field-close validation sequence for ^FS, then resets
// the tracker. OrphanedFieldSeparator is checked first and returns
// immediately, matching the reference behaviour of not compounding
// further diagnostics onto an already-malformed close.
func (ft *FieldTracker) Close(span Span, labelState *LabelValueState, profile *Profile, effectiveWidth, effectiveHeight *float64) []Diagnostic {
	if !ft.Open {
		issues := []Diagnostic{ErrorDiag(CodeOrphanedFieldSeparator,
			"^FS appeared with no preceding field-opening command", spanPtr(span))}
		return issues
	}
	var issues []Diagnostic

	if ft.HasFH {
		for _, fd := range ft.fieldData {
			issues = append(issues, validateHexEscapes(fd, ft.FHIndicator, span)...)
		}
	}

	if ft.HasSerial && !ft.HasFN {
		issues = append(issues, WarnDiag(CodeSerializationWithoutFieldNumber,
			"^SN/^SF appeared in a field with no ^FN field number", spanPtr(span)))
	}

	if !ft.HasFH {
		combined := strings.Join(ft.fieldData, "")
		for _, b := range ft.ActiveBarcodes {
			issues = append(issues, validateBarcodeFieldData(b.code, b.rules, combined, span)...)
		}
	}

	issues = append(issues, validateObjectBounds(ft, labelState, profile, effectiveWidth, effectiveHeight, span)...)

	*ft = FieldTracker{FHIndicator: '_'}
	return issues
}

// validateHexEscapes scans field data for the `_XX` hex-escape sequences
// enabled by ^FH, reporting malformed escapes (missing or non-hex digit
// pairs at end of input).
func validateHexEscapes(data string, indicator byte, span Span) []Diagnostic {
	var issues []Diagnostic
	for i := 0; i < len(data); i++ {
		if data[i] != indicator {
			continue
		}
		if i+2 >= len(data) || !isHexDigit(data[i+1]) || !isHexDigit(data[i+2]) {
			issues = append(issues, ErrorDiag(CodeInvalidHexEscape,
				"hex-escape sequence is malformed", spanPtr(span)))
			break
		}
		i += 2
	}
	return issues
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// charInSet parses an ASCII charset notation ("A-Z0-9 \-") and reports
// whether b matches it. Supports X-Y ranges (either order), \X escaped
// literals, and bare literals including space.
func charInSet(set string, b byte) bool {
	for i := 0; i < len(set); {
		if set[i] == '\\' && i+1 < len(set) {
			if set[i+1] == b {
				return true
			}
			i += 2
			continue
		}
		if i+2 < len(set) && set[i+1] == '-' {
			lo, hi := set[i], set[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if b >= lo && b <= hi {
				return true
			}
			i += 3
			continue
		}
		if set[i] == b {
			return true
		}
		i++
	}
	return false
}

// validateBarcodeFieldData runs the charset and length checks declared
// on rules against data.
func validateBarcodeFieldData(code string, rules FieldDataRules, data string, span Span) []Diagnostic {
	var issues []Diagnostic
	if rules.CharacterSet != "" {
		sev := SeverityError
		if rules.CharacterSetSeverity != nil {
			sev = rules.CharacterSetSeverity.ToSeverity()
		}
		for i := 0; i < len(data); i++ {
			if !charInSet(rules.CharacterSet, data[i]) {
				issues = append(issues, NewDiagnostic(CodeBarcodeInvalidChar, sev,
					fmt.Sprintf("%s field data contains %q outside its allowed character set", code, data[i]), spanPtr(span)))
				break
			}
		}
	}

	lenSev := SeverityWarn
	if rules.LengthSeverity != nil {
		lenSev = rules.LengthSeverity.ToSeverity()
	}
	n := len(data)
	switch {
	case rules.AllowedLengths != nil:
		ok := false
		for _, l := range rules.AllowedLengths {
			if l == n {
				ok = true
				break
			}
		}
		if !ok {
			issues = append(issues, NewDiagnostic(CodeBarcodeDataLength, lenSev,
				fmt.Sprintf("%s field data length %d is not one of the allowed lengths", code, n), spanPtr(span)))
		}
	case rules.ExactLength != nil:
		if n != *rules.ExactLength {
			issues = append(issues, NewDiagnostic(CodeBarcodeDataLength, lenSev,
				fmt.Sprintf("%s field data length %d does not equal the required length of %d", code, n, *rules.ExactLength), spanPtr(span)))
		}
	default:
		if rules.MinLength != nil && n < *rules.MinLength {
			issues = append(issues, NewDiagnostic(CodeBarcodeDataLength, lenSev,
				fmt.Sprintf("%s field data length %d is below the minimum of %d", code, n, *rules.MinLength), spanPtr(span)))
		}
		if rules.MaxLength != nil && n > *rules.MaxLength {
			issues = append(issues, NewDiagnostic(CodeBarcodeDataLength, lenSev,
				fmt.Sprintf("%s field data length %d exceeds the maximum of %d", code, n, *rules.MaxLength), spanPtr(span)))
		}
	}
	if rules.LengthParity != "" {
		isEven := n%2 == 0
		if (rules.LengthParity == "even") != isEven {
			issues = append(issues, NewDiagnostic(CodeBarcodeDataLength, lenSev,
				fmt.Sprintf("%s field data length %d does not have %s parity", code, n, rules.LengthParity), spanPtr(span)))
		}
	}
	return issues
}

// Object-bounds heuristic policy constants. A field whose overflow is
// within both the absolute and proportional thresholds is reported at
// Info severity with confidence="low" rather than Warn, since the
// underlying width/height estimate is itself approximate.
const (
	objectBoundsLowConfidenceMaxOverflowDots = 4.0
	objectBoundsLowConfidenceMaxRatio        = 0.02
	modulesPerChar                           = 11.0
	defaultFontWidthHeight                   = 20.0
	defaultBarcodeHeight                     = 50.0
)

// validateObjectBounds estimates the rendered width/height of the field
// just closed and reports ZPL2311 if it appears to overflow the label's
// or profile's effective bounds. Requires collected field data and a
// resolvable bound on at least one axis; otherwise the check is skipped.
// The field's position is read from labelState.LabelHome, which is the
// origin when nothing has set it.
func validateObjectBounds(ft *FieldTracker, labelState *LabelValueState, profile *Profile, effectiveWidth, effectiveHeight *float64, span Span) []Diagnostic {
	if labelState == nil {
		return nil
	}
	maxX := effectiveWidth
	if maxX == nil && profile != nil && profile.Page != nil {
		maxX = profile.Page.WidthDots
	}
	maxY := effectiveHeight
	if maxY == nil && profile != nil && profile.Page != nil {
		maxY = profile.Page.HeightDots
	}
	if maxX == nil && maxY == nil {
		return nil
	}

	combined := strings.Join(ft.fieldData, "")
	if combined == "" {
		return nil
	}

	var width, height float64
	if len(ft.ActiveBarcodes) > 0 {
		mw := 2.0
		if labelState.Barcode.ModuleWidth != nil {
			mw = *labelState.Barcode.ModuleWidth
		}
		modules := modulesPerChar*float64(len(combined)) + 22
		width = ceil(modules) * mw
		height = defaultBarcodeHeight
		if labelState.Barcode.Height != nil {
			height = *labelState.Barcode.Height
		}
	} else {
		fh := defaultFontWidthHeight
		if labelState.Font.Height != nil {
			fh = *labelState.Font.Height
		}
		fw := fh
		if labelState.Font.Width != nil {
			fw = *labelState.Font.Width
		}
		width = fw * float64(len(combined))
		height = fh
	}

	x := labelState.LabelHome.X
	y := labelState.LabelHome.Y

	var issues []Diagnostic
	if maxX != nil {
		overflow := (x + width) - *maxX
		if overflow > 0 {
			issues = append(issues, objectBoundsDiagnostic("x", overflow, *maxX, span))
		}
	}
	if maxY != nil {
		overflow := (y + height) - *maxY
		if overflow > 0 {
			issues = append(issues, objectBoundsDiagnostic("y", overflow, *maxY, span))
		}
	}
	return issues
}

func objectBoundsDiagnostic(axis string, overflow, bound float64, span Span) Diagnostic {
	ratio := overflow / bound
	lowConfidence := overflow <= objectBoundsLowConfidenceMaxOverflowDots && ratio <= objectBoundsLowConfidenceMaxRatio
	sev := SeverityWarn
	confidence := "high"
	template := "the field appears to extend %.1f dots beyond the label's %s bound"
	if lowConfidence {
		sev = SeverityInfo
		confidence = "low"
		template = "the field may extend up to %.1f dots beyond the label's %s bound"
	}
	return NewDiagnostic(CodeObjectBoundsOverflow, sev,
		fmt.Sprintf(template, overflow, axis), spanPtr(span)).
		WithContext(ctx("axis", axis, "confidence", confidence, "audience", "problem"))
}

func ceil(f float64) float64 {
	i := float64(int64(f))
	if f > i {
		return i + 1
	}
	return i
}
