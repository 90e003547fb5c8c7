// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"errors"
	"fmt"

	"golang.org/x/mod/semver"
)

// ErrIncompatibleTableVersion is returned when a loaded parser tables
// document's formatVersion is not compatible with this build.
var ErrIncompatibleTableVersion = errors.New("zpl: incompatible parser tables version")

// toSemver prefixes a bare "major.minor.patch" string with "v", the form
// golang.org/x/mod/semver requires.
func toSemver(v string) string {
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}

// CheckTableVersion verifies that a loaded tables document's
// formatVersion is semver-compatible with the version this build
// understands (same major version, same-or-lower minor/patch).
func CheckTableVersion(tables *ParserTables) error {
	if tables == nil {
		return nil
	}
	got := toSemver(tables.FormatVersion)
	want := toSemver(TableFormatVersion)
	if !semver.IsValid(got) {
		return fmt.Errorf("%w: %q is not a valid version", ErrIncompatibleTableVersion, tables.FormatVersion)
	}
	if semver.Major(got) != semver.Major(want) {
		return fmt.Errorf("%w: tables are %s, this build understands %s",
			ErrIncompatibleTableVersion, tables.FormatVersion, TableFormatVersion)
	}
	if semver.Compare(got, want) > 0 {
		return fmt.Errorf("%w: tables are %s, newer than this build's %s",
			ErrIncompatibleTableVersion, tables.FormatVersion, TableFormatVersion)
	}
	return nil
}

// CheckProfileSchemaVersion verifies that a profile's schema_version is
// a valid version with the same major version as supported. Unlike
// CheckTableVersion it accepts newer minor and patch versions.
func CheckProfileSchemaVersion(p *Profile, supported string) error {
	if p == nil {
		return nil
	}
	got := toSemver(p.SchemaVersion)
	want := toSemver(supported)
	if !semver.IsValid(got) {
		return fmt.Errorf("%w: profile schema_version %q is not a valid version", ErrIncompatibleTableVersion, p.SchemaVersion)
	}
	if semver.Major(got) != semver.Major(want) {
		return fmt.Errorf("%w: profile schema is %s, this build understands %s",
			ErrIncompatibleTableVersion, p.SchemaVersion, supported)
	}
	return nil
}
