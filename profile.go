// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Printer DPI bounds accepted by a Profile.
const (
	MinProfileDPI = 100
	MaxProfileDPI = 600

	// MaxProfileSpeedIPS is the highest print speed, in inches per
	// second, any supported printer firmware reports.
	MaxProfileSpeedIPS = 14
	// MaxProfileDarkness is the highest darkness setting value.
	MaxProfileDarkness = 30
)

// Errors returned while loading or validating a Profile.
var (
	// ErrProfileInvalidJSON is returned when the profile document is not
	// well-formed JSON.
	ErrProfileInvalidJSON = errors.New("zpl: profile is not valid JSON")

	// ErrProfileInvalidField is returned when a profile field fails its
	// declared validation rule. Use errors.As with *InvalidFieldError to
	// recover the offending field path and reason.
	ErrProfileInvalidField = errors.New("zpl: invalid profile field")
)

// InvalidFieldError carries the field path and reason for a profile
// validation failure, wrapping ErrProfileInvalidField.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidFieldError) Unwrap() error { return ErrProfileInvalidField }

func invalidField(field, reason string) error {
	return &InvalidFieldError{Field: field, Reason: reason}
}

// PrintMethod is a printer's thermal printing capability.
type PrintMethod string

// Supported PrintMethod values.
const (
	PrintMethodDirectThermal   PrintMethod = "direct_thermal"
	PrintMethodThermalTransfer PrintMethod = "thermal_transfer"
	PrintMethodBoth            PrintMethod = "both"
)

// Page describes a printer's fixed page dimensions, in dots.
type Page struct {
	WidthDots  *float64 `json:"width_dots,omitempty"`
	HeightDots *float64 `json:"height_dots,omitempty"`
}

// Range is an inclusive numeric [Min, Max] bound.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Features is a tri-state hardware capability map. Each field is a
// pointer so the three states — present (true), absent (false), and
// unknown (nil) — remain distinguishable; collapsing unknown to absent
// produces silent false-negatives in printer-gate checks.
type Features struct {
	Cutter     *bool `json:"cutter,omitempty"`
	Peel       *bool `json:"peel,omitempty"`
	Rewinder   *bool `json:"rewinder,omitempty"`
	Applicator *bool `json:"applicator,omitempty"`
	RFID       *bool `json:"rfid,omitempty"`
	RTC        *bool `json:"rtc,omitempty"`
	Battery    *bool `json:"battery,omitempty"`
	ZBI        *bool `json:"zbi,omitempty"`
	LCD        *bool `json:"lcd,omitempty"`
	Kiosk      *bool `json:"kiosk,omitempty"`
}

// ResolveGate resolves a named gate against Features. An unrecognised
// gate name resolves to nil ("unknown"), never false — callers must skip
// unrecognised gates rather than treat them as failures.
func ResolveGate(f *Features, gate string) *bool {
	if f == nil {
		return nil
	}
	switch gate {
	case "cutter":
		return f.Cutter
	case "peel":
		return f.Peel
	case "rewinder":
		return f.Rewinder
	case "applicator":
		return f.Applicator
	case "rfid":
		return f.RFID
	case "rtc":
		return f.RTC
	case "battery":
		return f.Battery
	case "zbi":
		return f.ZBI
	case "lcd":
		return f.LCD
	case "kiosk":
		return f.Kiosk
	default:
		return nil
	}
}

// Media describes a printer's supported media handling.
type Media struct {
	PrintMethod        PrintMethod `json:"print_method,omitempty"`
	SupportedModes     []string    `json:"supported_modes,omitempty"`
	SupportedTracking  []string    `json:"supported_tracking,omitempty"`
}

// Memory describes a printer's onboard storage.
type Memory struct {
	RAMKB           *int   `json:"ram_kb,omitempty"`
	FlashKB         *int   `json:"flash_kb,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
}

// Profile is a printer capability descriptor: identity, DPI, optional
// page/speed/darkness bounds, optional tri-state feature flags, optional
// media and memory descriptors.
type Profile struct {
	ID            string    `json:"id"`
	SchemaVersion string    `json:"schema_version"`
	DPI           int       `json:"dpi"`
	Page          *Page     `json:"page,omitempty"`
	SpeedRange    *Range    `json:"speed_range,omitempty"`
	DarknessRange *Range    `json:"darkness_range,omitempty"`
	Features      *Features `json:"features,omitempty"`
	Media         *Media    `json:"media,omitempty"`
	Memory        *Memory   `json:"memory,omitempty"`
}

// LoadProfileFromBytes parses and validates a Profile document.
//
// Validation mirrors the reference implementation's rules exactly:
// id/schema_version must be non-empty after trimming; dpi must fall in
// [100,600]; page dimensions, if present, must be positive; speed_range
// requires min>0, min<=max, max<=14; darkness_range requires min<=max,
// max<=30; memory fields, if present, must be positive.
func LoadProfileFromBytes(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileInvalidJSON, err)
	}
	if err := validateProfile(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func validateProfile(p *Profile) error {
	if trimEmpty(p.ID) {
		return invalidField("id", "must not be empty")
	}
	if trimEmpty(p.SchemaVersion) {
		return invalidField("schema_version", "must not be empty")
	}
	if p.DPI < MinProfileDPI {
		return invalidField("dpi", fmt.Sprintf("%d is below minimum supported DPI (%d)", p.DPI, MinProfileDPI))
	}
	if p.DPI > MaxProfileDPI {
		return invalidField("dpi", fmt.Sprintf("%d exceeds maximum supported DPI (%d)", p.DPI, MaxProfileDPI))
	}
	if p.Page != nil {
		if p.Page.WidthDots != nil && *p.Page.WidthDots <= 0 {
			return invalidField("page.width_dots", "must be greater than 0")
		}
		if p.Page.HeightDots != nil && *p.Page.HeightDots <= 0 {
			return invalidField("page.height_dots", "must be greater than 0")
		}
	}
	if p.SpeedRange != nil {
		r := p.SpeedRange
		if r.Min <= 0 {
			return invalidField("speed_range.min", "must be greater than 0")
		}
		if r.Min > r.Max {
			return invalidField("speed_range", "min must not exceed max")
		}
		if r.Max > MaxProfileSpeedIPS {
			return invalidField("speed_range.max", fmt.Sprintf("%v exceeds maximum print speed (%d ips)", r.Max, MaxProfileSpeedIPS))
		}
	}
	if p.DarknessRange != nil {
		r := p.DarknessRange
		if r.Min > r.Max {
			return invalidField("darkness_range", "min must not exceed max")
		}
		if r.Max > MaxProfileDarkness {
			return invalidField("darkness_range.max", fmt.Sprintf("%v exceeds maximum darkness (%d)", r.Max, MaxProfileDarkness))
		}
	}
	if p.Memory != nil {
		if p.Memory.RAMKB != nil && *p.Memory.RAMKB <= 0 {
			return invalidField("memory.ram_kb", "must be greater than 0")
		}
		if p.Memory.FlashKB != nil && *p.Memory.FlashKB <= 0 {
			return invalidField("memory.flash_kb", "must be greater than 0")
		}
	}
	return nil
}

func trimEmpty(s string) bool {
	i, j := 0, len(s)
	for i < j && isSpaceByte(s[i]) {
		i++
	}
	for j > i && isSpaceByte(s[j-1]) {
		j--
	}
	return i == j
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// ResolveProfileField resolves a dotted field path referenced by argument
// schemas' profile_constraint.field (e.g. "page.width_dots") to a numeric
// value on a fully-populated profile. Returns false if the path is
// unrecognised or its value is unset.
func ResolveProfileField(p *Profile, path string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	switch path {
	case "dpi":
		return float64(p.DPI), true
	case "page.width_dots":
		if p.Page != nil && p.Page.WidthDots != nil {
			return *p.Page.WidthDots, true
		}
	case "page.height_dots":
		if p.Page != nil && p.Page.HeightDots != nil {
			return *p.Page.HeightDots, true
		}
	case "speed_range.min":
		if p.SpeedRange != nil {
			return p.SpeedRange.Min, true
		}
	case "speed_range.max":
		if p.SpeedRange != nil {
			return p.SpeedRange.Max, true
		}
	case "darkness_range.min":
		if p.DarknessRange != nil {
			return p.DarknessRange.Min, true
		}
	case "darkness_range.max":
		if p.DarknessRange != nil {
			return p.DarknessRange.Max, true
		}
	case "memory.ram_kb":
		if p.Memory != nil && p.Memory.RAMKB != nil {
			return float64(*p.Memory.RAMKB), true
		}
	case "memory.flash_kb":
		if p.Memory != nil && p.Memory.FlashKB != nil {
			return float64(*p.Memory.FlashKB), true
		}
	}
	return 0, false
}

// ComparisonOp is a profile-constraint comparison operator.
type ComparisonOp string

// Supported ComparisonOp values.
const (
	OpLte ComparisonOp = "lte"
	OpGte ComparisonOp = "gte"
	OpLt  ComparisonOp = "lt"
	OpGt  ComparisonOp = "gt"
	OpEq  ComparisonOp = "eq"
)

// CheckProfileOp reports whether value satisfies op against limit.
func CheckProfileOp(value float64, op ComparisonOp, limit float64) bool {
	switch op {
	case OpLte:
		return value <= limit
	case OpGte:
		return value >= limit
	case OpLt:
		return value < limit
	case OpGt:
		return value > limit
	case OpEq:
		return value == limit
	default:
		return true
	}
}
