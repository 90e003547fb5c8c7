// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import "strings"

// EmitOptions controls the formatter's optional rewrites. The zero value
// reproduces the tree's original text as closely as the tree's own node
// content allows (round-trip mode); setting Indent, CompactFieldBlocks or
// one of the Remap* fields enables a rewrite pass layered on top of that
// baseline.
type EmitOptions struct {
	// Indent inserts one newline and FieldIndent spaces of leading
	// whitespace before every command.
	Indent      bool
	FieldIndent int

	// CompactFieldBlocks collapses a run of printable field blocks
	// (^FO...^FS) onto single lines and inlines ^FS onto the preceding
	// data line, matching how most hand-authored ZPL is laid out.
	CompactFieldBlocks bool

	// RemapFormatLeader/RemapControlLeader/RemapDelimiter, if non-zero,
	// rewrite every emitted command to use a different active character
	// regardless of what the source tree's prefix-reconfiguration
	// commands originally set.
	RemapFormatLeader  byte
	RemapControlLeader byte
	RemapDelimiter     byte

	// Tables, when set, lets the emitter re-glue split-rule arguments
	// (e.g. ^A0N's packed font+orientation slot) back into one raw
	// comma-slot instead of emitting them as separate arguments.
	Tables *ParserTables
}

// Emit renders tree back to ZPL text using default options (a faithful
// round-trip rendering with no rewrites).
func Emit(tree Tree) string {
	return EmitWithOptions(tree, EmitOptions{})
}

// EmitWithOptions renders tree back to ZPL text, applying opts.
func EmitWithOptions(tree Tree, opts EmitOptions) string {
	var b strings.Builder
	formatLeader := byte('^')
	controlLeader := byte('~')
	delimiter := byte(',')

	for li, label := range tree.Labels {
		if li > 0 {
			b.WriteByte('\n')
		}
		for _, node := range label.Nodes {
			switch node.Kind {
			case NodeCommand:
				if opts.RemapFormatLeader != 0 {
					formatLeader = opts.RemapFormatLeader
				}
				if opts.RemapControlLeader != 0 {
					controlLeader = opts.RemapControlLeader
				}
				if opts.RemapDelimiter != 0 {
					delimiter = opts.RemapDelimiter
				}
				leader := formatLeader
				if strings.HasPrefix(node.Code, "~") {
					leader = controlLeader
				}
				if opts.Indent {
					b.WriteByte('\n')
					b.WriteString(strings.Repeat(" ", opts.FieldIndent))
				}
				emitCommand(&b, node, leader, delimiter, opts.Tables)
				switch node.Code {
				case "^CC":
					if v := firstArgValue(node.Args); v != "" {
						formatLeader = v[0]
					}
				case "^CT", "~CT":
					if v := firstArgValue(node.Args); v != "" {
						controlLeader = v[0]
					}
				case "^CD", "~CD":
					if v := firstArgValue(node.Args); v != "" {
						delimiter = v[0]
					}
				}
			case NodeFieldData:
				b.WriteString(node.Content)
			case NodeRawData:
				b.WriteString(node.Raw)
			case NodeTrivia:
				b.WriteString(node.Text)
			}
		}
	}
	out := b.String()
	if opts.CompactFieldBlocks {
		out = compactFieldBlocks(out)
	}
	return out
}

func firstArgValue(args []ArgSlot) string {
	if len(args) == 0 || args[0].Value == nil {
		return ""
	}
	return *args[0].Value
}

// emitCommand renders one Command node: leader, code tail, then its
// arguments joined by delimiter, re-gluing any split-rule parts and
// trimming wholly-empty trailing arguments the way the firmware itself
// tolerates on input.
func emitCommand(b *strings.Builder, node Node, leader, delimiter byte, tables *ParserTables) {
	b.WriteByte(leader)
	tail := node.Code
	if len(tail) > 0 && (tail[0] == '^' || tail[0] == '~') {
		tail = tail[1:]
	}
	b.WriteString(tail)

	if len(node.Args) == 0 {
		return
	}
	parts := make([]string, len(node.Args))
	for i, a := range node.Args {
		switch a.Presence {
		case PresenceSlotValue:
			parts[i] = a.ValueOr("")
		default:
			parts[i] = ""
		}
	}

	if tables != nil {
		if entry := tables.CmdByCode(node.Code); entry != nil {
			sig := entry.EffectiveSignature(node.Code)
			if sig.SplitRule != nil {
				parts = mergeSplitArgs(parts, *sig.SplitRule)
			}
		}
	}

	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return
	}
	b.WriteString(strings.Join(parts, string(delimiter)))
}

// mergeSplitArgs is the emitter-side inverse of the parser's split-rule
// argument splitting: it re-glues the sub-arguments produced from one
// raw comma-slot back into that slot's single joined string.
func mergeSplitArgs(parts []string, rule SplitRule) []string {
	if rule.ParamIndex > len(parts) {
		return parts
	}
	n := len(rule.CharCounts)
	if rule.ParamIndex+n > len(parts) {
		return parts
	}
	glued := strings.Join(parts[rule.ParamIndex:rule.ParamIndex+n], "")
	out := make([]string, 0, len(parts)-n+1)
	out = append(out, parts[:rule.ParamIndex]...)
	out = append(out, glued)
	out = append(out, parts[rule.ParamIndex+n:]...)
	return out
}

// compactFieldBlocks post-processes already-rendered text line by line:
// a run of lines belonging to one ^FO...^FS field is collapsed onto a
// single line, and a lone ^FS line is inlined onto the preceding data
// line. This operates on rendered text, not the AST, matching how the
// reference formatter's "pretty" mode is layered on top of a structural
// emit pass.
func compactFieldBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	var block []string
	inField := false

	flush := func() {
		if len(block) > 0 {
			out = append(out, strings.Join(block, ""))
			block = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "^FO") || strings.HasPrefix(trimmed, "^FT"):
			flush()
			inField = true
			block = append(block, line)
		case inField && strings.HasPrefix(trimmed, "^FS"):
			block = append(block, trimmed)
			flush()
			inField = false
		case inField:
			block = append(block, trimmed)
		default:
			flush()
			out = append(out, line)
		}
	}
	flush()
	return strings.Join(out, "\n")
}
