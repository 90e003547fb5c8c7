// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"strconv"
	"strings"
)

// Units is the active measurement unit a device interprets coordinate
// and dimension arguments in, set by ^MU.
type Units int

// Supported Units values. Dots is the zero value and the firmware
// default.
const (
	UnitsDots Units = iota
	UnitsInches
	UnitsMillimeters
)

// convertToDots converts value, expressed in unit, to dots at the given
// DPI. When dpi is nil and unit is not already Dots, the raw value is
// preserved rather than guessed at — callers must not silently assume a
// DPI the input never declared.
func convertToDots(value float64, unit Units, dpi *int) float64 {
	switch unit {
	case UnitsDots:
		return value
	case UnitsInches:
		if dpi == nil {
			return value
		}
		return value * float64(*dpi)
	case UnitsMillimeters:
		if dpi == nil {
			return value
		}
		return value * float64(*dpi) / 25.4
	default:
		return value
	}
}

// DeviceState is session-scoped: it persists across every label parsed
// in one Validate call, since ^MU and similar commands affect the
// device, not just the label in progress.
type DeviceState struct {
	SessionProducers map[string]bool
	Units            Units
	DPI              *int
}

// NewDeviceState returns a zero-valued DeviceState with Dots units.
func NewDeviceState() *DeviceState {
	return &DeviceState{SessionProducers: make(map[string]bool)}
}

// ApplyMU applies ^MU's arguments, switching the device's active units
// and, when supplied, its known DPI.
func (d *DeviceState) ApplyMU(args []ArgSlot) {
	if len(args) > 0 {
		if v := args[0].Value; v != nil {
			switch strings.ToUpper(*v) {
			case "D":
				d.Units = UnitsDots
			case "I":
				d.Units = UnitsInches
			case "M":
				d.Units = UnitsMillimeters
			}
		}
	}
	if len(args) > 1 {
		if v := args[1].Value; v != nil {
			if n, err := strconv.Atoi(*v); err == nil {
				d.DPI = &n
			}
		}
	}
}

// NormalizeToDots converts value from the device's active units to dots,
// preserving the raw value when the DPI needed for the conversion is
// unknown.
func (d *DeviceState) NormalizeToDots(value float64) float64 {
	return convertToDots(value, d.Units, d.DPI)
}

// BarcodeDefaults holds the ^BY-configured defaults new barcode commands
// inherit until ^BY changes them again.
type BarcodeDefaults struct {
	ModuleWidth *float64
	Ratio       *float64
	Height      *float64
}

// FontDefaults holds the ^CF-configured defaults new text fields
// inherit.
type FontDefaults struct {
	Font   *string
	Height *float64
	Width  *float64
}

// FieldOrientationDefaults holds the ^FW-configured defaults new fields
// inherit for rotation and justification.
type FieldOrientationDefaults struct {
	Orientation   *string
	Justification *string
}

// LayoutDefaults holds the ^PW/^LL/^PO/^PM/^LR/^LS-configured label
// layout, which feeds object-bounds and position-bounds checks.
type LayoutDefaults struct {
	PrintWidth      *float64
	LabelLength     *float64
	PrintOrientation *string
	MirrorImage     *bool
	ReversePrint    *bool
	LabelTop        *float64
	LabelShift      *float64
}

// LabelHome is the ^LH-configured label home offset applied to every
// subsequent ^FO within the label.
type LabelHome struct {
	X float64
	Y float64
}

// DefaultLabelHome is LabelHome's firmware default: the coordinate
// origin.
func DefaultLabelHome() LabelHome { return LabelHome{X: 0, Y: 0} }

// LabelValueState is label-scoped: initialised fresh at ^XA and
// discarded at ^XZ. It tracks the typed defaults most recently set by
// producer commands within the label currently being processed.
type LabelValueState struct {
	Barcode     BarcodeDefaults
	Font        FontDefaults
	Field       FieldOrientationDefaults
	LabelHome   LabelHome
	Layout      LayoutDefaults
}

// NewLabelValueState returns a LabelValueState with LabelHome at the
// firmware default and every other field unset.
func NewLabelValueState() *LabelValueState {
	return &LabelValueState{LabelHome: DefaultLabelHome()}
}

// ApplyProducer dispatches a known session/label-value producer command
// to the typed field(s) it sets, converting numeric arguments to dots
// via device.
func (s *LabelValueState) ApplyProducer(code string, args []ArgSlot, device *DeviceState) {
	switch code {
	case "^BY":
		s.applyBY(args, device)
	case "^CF":
		s.applyCF(args, device)
	case "^FW":
		s.applyFW(args)
	case "^LH":
		s.applyLH(args, device)
	case "^PW":
		s.applyPW(args, device)
	case "^LL":
		s.applyLL(args, device)
	case "^PO":
		s.Layout.PrintOrientation = argString(args, 0)
	case "^PM":
		s.Layout.MirrorImage = argBool(args, 0, "Y")
	case "^LR":
		s.Layout.ReversePrint = argBool(args, 0, "Y")
	case "^LT":
		s.Layout.LabelTop = argFloatDots(args, 0, device)
	case "^LS":
		s.Layout.LabelShift = argFloatDots(args, 0, device)
	}
}

func (s *LabelValueState) applyBY(args []ArgSlot, device *DeviceState) {
	if v := argFloat(args, 0); v != nil {
		s.Barcode.ModuleWidth = v
	}
	if v := argFloat(args, 1); v != nil {
		s.Barcode.Ratio = v
	}
	if v := argFloatDots(args, 2, device); v != nil {
		s.Barcode.Height = v
	}
}

func (s *LabelValueState) applyCF(args []ArgSlot, device *DeviceState) {
	if v := argString(args, 0); v != nil {
		s.Font.Font = v
	}
	if v := argFloatDots(args, 1, device); v != nil {
		s.Font.Height = v
		if s.Font.Width == nil {
			s.Font.Width = v
		}
	}
	if v := argFloatDots(args, 2, device); v != nil {
		s.Font.Width = v
	}
}

func (s *LabelValueState) applyFW(args []ArgSlot) {
	if v := argString(args, 0); v != nil {
		s.Field.Orientation = v
	}
	if v := argString(args, 1); v != nil {
		s.Field.Justification = v
	}
}

func (s *LabelValueState) applyLH(args []ArgSlot, device *DeviceState) {
	if v := argFloatDots(args, 0, device); v != nil {
		s.LabelHome.X = *v
	}
	if v := argFloatDots(args, 1, device); v != nil {
		s.LabelHome.Y = *v
	}
}

func (s *LabelValueState) applyPW(args []ArgSlot, device *DeviceState) {
	if v := argFloatDots(args, 0, device); v != nil {
		s.Layout.PrintWidth = v
	}
}

func (s *LabelValueState) applyLL(args []ArgSlot, device *DeviceState) {
	if v := argFloatDots(args, 0, device); v != nil {
		s.Layout.LabelLength = v
	}
}

// StateValueByKey resolves a dotted state-key reference (as used by
// default_from_state_key) against this label's typed defaults.
func (s *LabelValueState) StateValueByKey(key string) (string, bool) {
	switch key {
	case "barcode.moduleWidth":
		return floatPtrString(s.Barcode.ModuleWidth)
	case "barcode.ratio":
		return floatPtrString(s.Barcode.Ratio)
	case "barcode.height":
		return floatPtrString(s.Barcode.Height)
	case "font.font":
		return strPtrString(s.Font.Font)
	case "font.height":
		return floatPtrString(s.Font.Height)
	case "font.width":
		return floatPtrString(s.Font.Width)
	case "field.orientation":
		return strPtrString(s.Field.Orientation)
	case "field.justification":
		return strPtrString(s.Field.Justification)
	case "label.home.x":
		return trimFloat(s.LabelHome.X), true
	case "label.home.y":
		return trimFloat(s.LabelHome.Y), true
	case "layout.printWidth":
		return floatPtrString(s.Layout.PrintWidth)
	case "layout.labelLength":
		return floatPtrString(s.Layout.LabelLength)
	default:
		return "", false
	}
}

func argString(args []ArgSlot, i int) *string {
	if i >= len(args) || args[i].Value == nil {
		return nil
	}
	v := *args[i].Value
	return &v
}

func argBool(args []ArgSlot, i int, trueValue string) *bool {
	if i >= len(args) || args[i].Value == nil {
		return nil
	}
	b := strings.EqualFold(*args[i].Value, trueValue)
	return &b
}

func argFloat(args []ArgSlot, i int) *float64 {
	if i >= len(args) || args[i].Value == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*args[i].Value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func argFloatDots(args []ArgSlot, i int, device *DeviceState) *float64 {
	f := argFloat(args, i)
	if f == nil {
		return nil
	}
	v := device.NormalizeToDots(*f)
	return &v
}

func floatPtrString(f *float64) (string, bool) {
	if f == nil {
		return "", false
	}
	return trimFloat(*f), true
}

func strPtrString(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}

// trimFloat formats n to 6 decimal places then trims trailing zeros and
// a trailing decimal point, matching the compact numeric form used when
// defaults are substituted back into emitted argument text.
func trimFloat(n float64) string {
	s := strconv.FormatFloat(n, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
