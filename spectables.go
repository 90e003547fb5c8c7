// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// TableFormatVersion is the format_version this toolchain speaks. Tables
// artifacts are checked against it with semver.Compare (see version.go)
// before being trusted.
const TableFormatVersion = "0.3.0"

// ErrInvalidTables is returned when a parser tables document fails to
// decode or contains a structurally invalid opcode trie.
var ErrInvalidTables = errors.New("zpl: invalid parser tables")

// CommandScope is the scope at which a command's effects apply.
type CommandScope string

// Supported CommandScope values.
const (
	ScopeDocument CommandScope = "document"
	ScopeField    CommandScope = "field"
	ScopeJob      CommandScope = "job"
	ScopeSession  CommandScope = "session"
	ScopeLabel    CommandScope = "label"
)

// CommandCategory classifies a command for documentation/compaction
// purposes (e.g. deciding whether a field block is "printable").
type CommandCategory string

// Supported CommandCategory values.
const (
	CategoryText     CommandCategory = "text"
	CategoryBarcode  CommandCategory = "barcode"
	CategoryGraphics CommandCategory = "graphics"
	CategoryMedia    CommandCategory = "media"
	CategoryFormat   CommandCategory = "format"
	CategoryDevice   CommandCategory = "device"
	CategoryHost     CommandCategory = "host"
	CategoryConfig   CommandCategory = "config"
	CategoryNetwork  CommandCategory = "network"
	CategoryRFID     CommandCategory = "rfid"
	CategoryWireless CommandCategory = "wireless"
	CategoryStorage  CommandCategory = "storage"
	CategoryKDU      CommandCategory = "kdu"
	CategoryMisc     CommandCategory = "misc"
)

// Stability marks a command entry's maturity.
type Stability string

// Supported Stability values.
const (
	StabilityStable       Stability = "stable"
	StabilityExperimental Stability = "experimental"
	StabilityDeprecated   Stability = "deprecated"
)

// Plane is the execution category of a command.
type Plane string

// Supported Plane values.
const (
	PlaneFormat Plane = "format"
	PlaneDevice Plane = "device"
	PlaneHost   Plane = "host"
	PlaneConfig Plane = "config"
)

// SpacingPolicy controls whether whitespace is required, forbidden, or
// optional between an opcode and its raw argument text.
type SpacingPolicy string

// Supported SpacingPolicy values.
const (
	SpacingForbid SpacingPolicy = "forbid"
	SpacingRequire SpacingPolicy = "require"
	SpacingAllow  SpacingPolicy = "allow"
)

// SplitRule describes how one raw comma-slot packs multiple semantic
// parameters (e.g. ^A0N packs font+orientation into one slot).
type SplitRule struct {
	ParamIndex int   `json:"param_index"`
	CharCounts []int `json:"char_counts"`
}

// Signature describes how a command's raw argument text is split into,
// and later re-joined from, argument slots.
type Signature struct {
	Params             []string      `json:"params"`
	Joiner             string        `json:"joiner"`
	Spacing            SpacingPolicy `json:"spacing"`
	AllowEmptyTrailing bool          `json:"allow_empty_trailing"`
	SplitRule          *SplitRule    `json:"split_rule,omitempty"`
}

// DefaultSignature returns the conventional comma-joined signature with
// trailing-empty padding enabled, used when a command has no explicit
// signature override.
func DefaultSignature(params []string) Signature {
	return Signature{Params: params, Joiner: ",", Spacing: SpacingAllow, AllowEmptyTrailing: true}
}

// ArgPresence classifies how an Arg's slot participates in validation
// when it resolves via a default.
type ArgPresence string

// Supported ArgPresence values.
const (
	PresenceUnset               ArgPresence = "unset"
	PresenceEmpty               ArgPresence = "empty"
	PresenceValue               ArgPresence = "value"
	PresenceValueOrDefault      ArgPresence = "value_or_default"
	PresenceEmptyMeansUseDefault ArgPresence = "empty_means_use_default"
)

// ResourceKind classifies a resourceRef argument's referent.
type ResourceKind string

// Supported ResourceKind values.
const (
	ResourceGraphic ResourceKind = "graphic"
	ResourceFont    ResourceKind = "font"
	ResourceAny     ResourceKind = "any"
)

// EnumValue is either a bare string or an object form carrying per-value
// printer gates.
type EnumValue struct {
	Value        string
	PrinterGates []string
}

// UnmarshalJSON accepts both `"N"` and `{"value":"N","printer_gates":[...]}`.
func (e *EnumValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Value = s
		return nil
	}
	var obj struct {
		Value        string   `json:"value"`
		PrinterGates []string `json:"printer_gates,omitempty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.Value = obj.Value
	e.PrinterGates = obj.PrinterGates
	return nil
}

// EnumContains reports whether val matches any member of values.
func EnumContains(values []EnumValue, val string) bool {
	for _, v := range values {
		if v.Value == val {
			return true
		}
	}
	return false
}

// ConditionalRange is a range that applies only when When matches the
// sibling arguments of the command invocation.
type ConditionalRange struct {
	When  string     `json:"when"`
	Range [2]float64 `json:"range"`
}

// RoundingMode is the rounding discipline applied to a numeric argument.
type RoundingMode string

// RoundingToMultiple is the only currently supported RoundingMode.
const RoundingToMultiple RoundingMode = "to_multiple"

// RoundingPolicy requires a value to be a multiple of Multiple, within
// Epsilon tolerance, in the given Unit.
type RoundingPolicy struct {
	Unit     string       `json:"unit,omitempty"`
	Mode     RoundingMode `json:"mode"`
	Multiple float64      `json:"multiple"`
	Epsilon  float64      `json:"epsilon,omitempty"`
}

// ConditionalRounding is a RoundingPolicy that applies only When matches.
type ConditionalRounding struct {
	When     string       `json:"when"`
	Mode     RoundingMode `json:"mode"`
	Multiple float64      `json:"multiple"`
	Epsilon  float64      `json:"epsilon,omitempty"`
}

// ProfileConstraint ties an argument value to a profile field via a
// comparison operator.
type ProfileConstraint struct {
	Field string       `json:"field"`
	Op    ComparisonOp `json:"op"`
}

// Arg is a single argument schema: type, bounds, defaults, and the
// optional profile/rounding/enum-gate rules layered on top.
type Arg struct {
	Name                string                 `json:"name,omitempty"`
	Key                 string                 `json:"key,omitempty"`
	Type                string                 `json:"type"`
	Unit                string                 `json:"unit,omitempty"`
	Range               *[2]float64            `json:"range,omitempty"`
	MinLength           *int                   `json:"min_length,omitempty"`
	MaxLength           *int                   `json:"max_length,omitempty"`
	Optional            bool                   `json:"optional,omitempty"`
	Presence            ArgPresence            `json:"presence,omitempty"`
	Default             json.RawMessage        `json:"default,omitempty"`
	DefaultByDPI        map[string]json.RawMessage `json:"default_by_dpi,omitempty"`
	DefaultFrom         string                 `json:"default_from,omitempty"`
	DefaultFromStateKey string                 `json:"default_from_state_key,omitempty"`
	ProfileConstraint   *ProfileConstraint     `json:"profile_constraint,omitempty"`
	RangeWhen           []ConditionalRange     `json:"range_when,omitempty"`
	RoundingPolicy      *RoundingPolicy        `json:"rounding_policy,omitempty"`
	RoundingPolicyWhen  []ConditionalRounding  `json:"rounding_policy_when,omitempty"`
	Resource            ResourceKind           `json:"resource,omitempty"`
	Enum                []EnumValue            `json:"enum,omitempty"`
}

// ArgUnion is a tagged union of a single Arg or a list of alternative
// Args ("one_of"), selected per-value at validation time.
type ArgUnion struct {
	Single *Arg
	OneOf  []Arg
}

// UnmarshalJSON accepts either a bare Arg object or {"one_of": [...]}.
func (u *ArgUnion) UnmarshalJSON(data []byte) error {
	var wrapper struct {
		OneOf []Arg `json:"one_of"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.OneOf != nil {
		u.OneOf = wrapper.OneOf
		return nil
	}
	var a Arg
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	u.Single = &a
	return nil
}

// ConstraintKind is the kind of a command-level Constraint.
type ConstraintKind string

// Supported ConstraintKind values.
const (
	ConstraintOrder       ConstraintKind = "order"
	ConstraintRequires    ConstraintKind = "requires"
	ConstraintIncompatible ConstraintKind = "incompatible"
	ConstraintEmptyData   ConstraintKind = "empty_data"
	ConstraintRange       ConstraintKind = "range"
	ConstraintNote        ConstraintKind = "note"
	ConstraintCustom      ConstraintKind = "custom"
)

// AllConstraintKinds is the closed set of ConstraintKind values; the
// external authoring schema must enumerate the same set.
var AllConstraintKinds = []ConstraintKind{
	ConstraintOrder, ConstraintRequires, ConstraintIncompatible,
	ConstraintEmptyData, ConstraintRange, ConstraintNote, ConstraintCustom,
}

// ConstraintSeverity is the severity a Constraint reports at.
type ConstraintSeverity string

// Supported ConstraintSeverity values.
const (
	ConstraintSeverityError ConstraintSeverity = "error"
	ConstraintSeverityWarn  ConstraintSeverity = "warn"
	ConstraintSeverityInfo  ConstraintSeverity = "info"
)

// ToSeverity converts a ConstraintSeverity to the diagnostics Severity.
func (s ConstraintSeverity) ToSeverity() Severity {
	switch s {
	case ConstraintSeverityError:
		return SeverityError
	case ConstraintSeverityInfo:
		return SeverityInfo
	default:
		return SeverityWarn
	}
}

// ConstraintScope is the scope a Constraint's seen-codes set is drawn
// from: the whole label, or just the currently open field.
type ConstraintScope string

// Supported ConstraintScope values.
const (
	ConstraintScopeLabel ConstraintScope = "label"
	ConstraintScopeField ConstraintScope = "field"
)

// Constraint is a single command-level rule (ordering, co-occurrence,
// incompatibility, or a note) evaluated against the seen-codes sets built
// up while walking a label.
type Constraint struct {
	Kind     ConstraintKind     `json:"kind"`
	Expr     string             `json:"expr"`
	Message  string             `json:"message,omitempty"`
	Severity ConstraintSeverity `json:"severity,omitempty"`
	Scope    ConstraintScope    `json:"scope,omitempty"`
}

// Effects names the state keys a command's invocation sets.
type Effects struct {
	Sets []string `json:"sets,omitempty"`
}

// Placement restricts where a command may legally appear relative to
// ^XA...^XZ label bounds.
type Placement struct {
	AllowedInsideLabel  *bool `json:"allowed_inside_label,omitempty"`
	AllowedOutsideLabel *bool `json:"allowed_outside_label,omitempty"`
}

// FieldDataRules constrains the field data a barcode (or similar)
// command's field expects.
type FieldDataRules struct {
	CharacterSet           string              `json:"character_set,omitempty"`
	CharacterSetSeverity   *ConstraintSeverity `json:"character_set_severity,omitempty"`
	MinLength              *int                `json:"min_length,omitempty"`
	MaxLength              *int                `json:"max_length,omitempty"`
	ExactLength            *int                `json:"exact_length,omitempty"`
	AllowedLengths         []int               `json:"allowed_lengths,omitempty"`
	LengthParity           string              `json:"length_parity,omitempty"` // "even" | "odd"
	LengthSeverity         *ConstraintSeverity `json:"length_severity,omitempty"`
	Notes                  string              `json:"notes,omitempty"`
}

// HasRules reports whether any rule on r is populated.
func (r *FieldDataRules) HasRules() bool {
	if r == nil {
		return false
	}
	return r.CharacterSet != "" || r.ExactLength != nil || r.AllowedLengths != nil ||
		r.MinLength != nil || r.MaxLength != nil || r.LengthParity != ""
}

// Composite is a named template expanding to a canonical command
// invocation, exposing a subset of the template's arguments.
type Composite struct {
	Name        string   `json:"name"`
	Template    string   `json:"template"`
	ExposesArgs []string `json:"exposes_args,omitempty"`
	Doc         string   `json:"doc,omitempty"`
}

// Example is a documentation example attached to a command entry.
type Example struct {
	ZPL      string   `json:"zpl"`
	Title    string   `json:"title,omitempty"`
	PNGHash  string   `json:"png_hash,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Since    string   `json:"since,omitempty"`
	Profiles []string `json:"profiles,omitempty"`
}

// StructuralRule is a tagged-union dispatch tag the validator uses to run
// command-specific semantic checks without per-command virtual methods.
type StructuralRule struct {
	Kind               string             `json:"kind"`
	PositionBounds     *PositionBoundsRule `json:"position_bounds,omitempty"`
	FontReference      *FontReferenceRule  `json:"font_reference,omitempty"`
	MediaModes         *MediaModesRule     `json:"media_modes,omitempty"`
	GfDataLength       *GfDataLengthRule   `json:"gf_data_length,omitempty"`
	GfPreflightTracking bool               `json:"gf_preflight_tracking,omitempty"`
	DuplicateFieldNumberArgIndex *int      `json:"duplicate_field_number_arg_index,omitempty"`
}

// PositionBoundsAction selects which position-bounds behaviour a command
// triggers.
type PositionBoundsAction string

// Supported PositionBoundsAction values.
const (
	ActionTrackWidth          PositionBoundsAction = "track_width"
	ActionTrackHeight         PositionBoundsAction = "track_height"
	ActionTrackFieldOrigin    PositionBoundsAction = "track_field_origin"
	ActionValidateFieldOrigin PositionBoundsAction = "validate_field_origin"
)

// PositionBoundsRule parameterises the PositionBounds structural rule.
type PositionBoundsRule struct {
	Action PositionBoundsAction `json:"action"`
}

// FontReferenceAction selects register-vs-validate behaviour for the
// FontReference structural rule.
type FontReferenceAction string

// Supported FontReferenceAction values.
const (
	FontActionRegister FontReferenceAction = "register"
	FontActionValidate FontReferenceAction = "validate"
)

// FontReferenceRule parameterises the FontReference structural rule.
type FontReferenceRule struct {
	Action   FontReferenceAction `json:"action"`
	ArgIndex int                 `json:"arg_index"`
}

// MediaModesTarget selects which profile.media field a MediaModes rule
// checks against.
type MediaModesTarget string

// Supported MediaModesTarget values.
const (
	MediaTargetSupportedModes    MediaModesTarget = "supported_modes"
	MediaTargetSupportedTracking MediaModesTarget = "supported_tracking"
)

// MediaModesRule parameterises the MediaModes structural rule.
type MediaModesRule struct {
	Target   MediaModesTarget `json:"target"`
	ArgIndex int              `json:"arg_index"`
}

// GfDataLengthRule parameterises the ^GF-style data-length structural
// rule: which argument index carries the compression letter and which
// carries the declared byte count.
type GfDataLengthRule struct {
	CompressionArgIndex int `json:"compression_arg_index"`
	ByteCountArgIndex   int `json:"byte_count_arg_index"`
}

// CommandEntry is one command's full catalogue record.
type CommandEntry struct {
	Codes     []string `json:"codes"`
	Arity     uint32   `json:"arity"`

	RawPayload         bool `json:"raw_payload,omitempty"`
	FieldData          bool `json:"field_data,omitempty"`
	OpensField         bool `json:"opens_field,omitempty"`
	ClosesField        bool `json:"closes_field,omitempty"`
	HexEscapeModifier  bool `json:"hex_escape_modifier,omitempty"`
	FieldNumber        bool `json:"field_number,omitempty"`
	Serialization      bool `json:"serialization,omitempty"`
	RequiresField      bool `json:"requires_field,omitempty"`

	Signature   *Signature   `json:"signature,omitempty"`
	Args        []ArgUnion   `json:"args,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Effects     *Effects     `json:"effects,omitempty"`
	Plane       Plane        `json:"plane,omitempty"`
	Scope       CommandScope `json:"scope,omitempty"`
	Placement   *Placement   `json:"placement,omitempty"`

	Name            string          `json:"name,omitempty"`
	Category        CommandCategory `json:"category,omitempty"`
	Since           string          `json:"since,omitempty"`
	Deprecated      bool            `json:"deprecated,omitempty"`
	DeprecatedSince string          `json:"deprecated_since,omitempty"`
	Stability       Stability       `json:"stability,omitempty"`

	Composites        []Composite          `json:"composites,omitempty"`
	Defaults          json.RawMessage      `json:"defaults,omitempty"`
	Units             string               `json:"units,omitempty"`
	PrinterGates      []string             `json:"printer_gates,omitempty"`
	SignatureOverrides map[string]Signature `json:"signature_overrides,omitempty"`
	FieldDataRules    *FieldDataRules      `json:"field_data_rules,omitempty"`
	Examples          []Example            `json:"examples,omitempty"`
	StructuralRules   []StructuralRule     `json:"structural_rules,omitempty"`
}

// EffectiveSignature resolves the signature that applies for code,
// honoring any per-opcode override.
func (c *CommandEntry) EffectiveSignature(code string) Signature {
	if c.SignatureOverrides != nil {
		if sig, ok := c.SignatureOverrides[code]; ok {
			return sig
		}
	}
	if c.Signature != nil {
		return *c.Signature
	}
	return DefaultSignature(nil)
}

// IsFieldRelated reports whether the command participates in field
// structural tracking at all.
func (c *CommandEntry) IsFieldRelated() bool {
	return c.OpensField || c.ClosesField || c.FieldData || c.RequiresField ||
		c.HexEscapeModifier || c.FieldNumber || c.Serialization
}

// opcodeTrieNode is one node of the opcode recognition trie.
type opcodeTrieNode struct {
	Children map[string]*opcodeTrieNode `json:"children,omitempty"`
	Terminal bool                       `json:"terminal,omitempty"`
}

// UnmarshalJSON rejects multi-character or empty string keys in the
// trie's children map — the JSON wire format is string-keyed but the
// in-memory structure is meant to hold exactly one ASCII character per
// key.
func (n *opcodeTrieNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		Children map[string]*opcodeTrieNode `json:"children,omitempty"`
		Terminal bool                       `json:"terminal,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw.Children {
		if len(k) != 1 {
			return fmt.Errorf("%w: opcode trie key %q is not a single character", ErrInvalidTables, k)
		}
	}
	n.Children = raw.Children
	n.Terminal = raw.Terminal
	return nil
}

// ParserTables is the command catalogue: per-command signatures, argument
// schemas, constraints, and an opcode trie for longest-match recognition.
// Constructed once and shared read-only for the life of the process; its
// lazily-built lookup caches are single-initialization cells guarded by
// sync.Once so concurrent readers never race.
type ParserTables struct {
	SchemaVersion string          `json:"schemaVersion"`
	FormatVersion string          `json:"formatVersion"`
	Commands      []CommandEntry  `json:"commands"`
	OpcodeTrie    *opcodeTrieNode `json:"opcodeTrie,omitempty"`

	codeMapOnce sync.Once
	codeMap     map[string]*CommandEntry

	codeSetOnce sync.Once
	codeSet     map[string]struct{}
}

// LoadParserTables decodes a parser tables JSON document.
func LoadParserTables(data []byte) (*ParserTables, error) {
	var t ParserTables
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTables, err)
	}
	if t.FormatVersion == "" {
		t.FormatVersion = TableFormatVersion
	}
	return &t, nil
}

func (t *ParserTables) buildCodeMap() {
	m := make(map[string]*CommandEntry)
	for i := range t.Commands {
		cmd := &t.Commands[i]
		for _, code := range cmd.Codes {
			m[code] = cmd
		}
	}
	t.codeMap = m
}

func (t *ParserTables) cmdMap() map[string]*CommandEntry {
	t.codeMapOnce.Do(t.buildCodeMap)
	return t.codeMap
}

// CmdByCode returns the CommandEntry for a canonical opcode (e.g. "^FO"),
// or nil if unknown.
func (t *ParserTables) CmdByCode(code string) *CommandEntry {
	return t.cmdMap()[code]
}

// CodeSet returns the set of all known canonical opcodes.
func (t *ParserTables) CodeSet() map[string]struct{} {
	t.codeSetOnce.Do(func() {
		s := make(map[string]struct{}, len(t.codeMap))
		for code := range t.cmdMap() {
			s[code] = struct{}{}
		}
		t.codeSet = s
	})
	return t.codeSet
}
