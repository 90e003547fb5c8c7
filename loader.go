// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"bytes"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/text/encoding/unicode"
)

// SourceFile memory-maps a ZPL source, parser-tables, or profile
// document from disk instead of reading it fully into a []byte, so
// large batch jobs over a directory of label templates don't each pay a
// full read/copy.
type SourceFile struct {
	f    *os.File
	data mmap.MMap
}

// OpenSourceFile memory-maps name read-only.
func OpenSourceFile(name string) (*SourceFile, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &SourceFile{f: f, data: data}, nil
}

// Close unmaps and closes the underlying file.
func (s *SourceFile) Close() error {
	if err := s.data.Unmap(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// Bytes returns the file's raw mapped bytes.
func (s *SourceFile) Bytes() []byte { return s.data }

// Text decodes the file's bytes as ZPL source text, transcoding from
// UTF-16 (with BOM detection) to UTF-8 first if a BOM is present. Plain
// ASCII/UTF-8 label files, the overwhelmingly common case, pass through
// unchanged.
func (s *SourceFile) Text() (string, error) {
	return DecodeSourceText(s.data)
}

// DecodeSourceText decodes raw bytes as ZPL source text. ZPL files
// authored on Windows label-design tools are occasionally saved as
// UTF-16 with a byte-order-mark; this transcodes them to UTF-8 the same
// way the reference implementation's PE string tables are decoded,
// generalized from a length-prefixed field to a whole-file BOM probe.
func DecodeSourceText(data []byte) (string, error) {
	if hasUTF16BOM(data) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := decoder.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("zpl: decoding UTF-16 source: %w", err)
		}
		return string(out), nil
	}
	return string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})), nil
}

func hasUTF16BOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)
}

// LoadParserTablesFile memory-maps and decodes a parser tables document
// from disk.
func LoadParserTablesFile(name string) (*ParserTables, error) {
	sf, err := OpenSourceFile(name)
	if err != nil {
		return nil, err
	}
	defer sf.Close()
	return LoadParserTables(sf.Bytes())
}

// LoadProfileFile memory-maps and decodes a printer profile document
// from disk.
func LoadProfileFile(name string) (*Profile, error) {
	sf, err := OpenSourceFile(name)
	if err != nil {
		return nil, err
	}
	defer sf.Close()
	return LoadProfileFromBytes(sf.Bytes())
}
