// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import "strings"

// parserMode is the parser's three-state mode machine.
type parserMode int

const (
	modeNormal parserMode = iota
	modeFieldData
	modeRawData
)

// prefixArgCodes are the canonical opcodes whose single ASCII argument
// reconfigures a lexer character and forces re-tokenisation of the
// remaining input.
var prefixArgCodes = map[string]bool{
	"^CC": true, "^CT": true, "^CD": true,
}

// Parser drives the command-leader grammar's mode machine over a token
// stream, consulting ParserTables (if supplied) for opcode recognition,
// signatures, and structural flags.
type Parser struct {
	input  string
	tables *ParserTables

	formatLeader  byte
	controlLeader byte
	delimiter     byte

	tokens []Token
	pos    int

	mode            parserMode
	fieldHexEscaped bool
	fieldDataStart  int
	rawOpeningCode  string
	rawStart        int

	issues []Diagnostic
	labels []Label
	cur    *Label
}

// NewParser builds a Parser over input. tables may be nil, in which case
// opcode recognition falls back to the heuristic rules in §4.2(c).
func NewParser(input string, tables *ParserTables) *Parser {
	p := &Parser{
		input:         input,
		tables:        tables,
		formatLeader:  '^',
		controlLeader: '~',
		delimiter:     ',',
	}
	p.tokens = NewLexer(input, p.formatLeader, p.controlLeader, p.delimiter).Tokenize()
	return p
}

// Parse runs the parser to completion, returning the resulting tree and
// accumulated diagnostics.
func (p *Parser) Parse() (Tree, []Diagnostic) {
	for p.pos < len(p.tokens) {
		switch p.mode {
		case modeNormal:
			p.parseNormal()
		case modeFieldData:
			p.parseFieldData()
		case modeRawData:
			p.parseRawData()
		}
	}
	p.finishAtEOF()
	if len(p.labels) == 0 {
		p.issues = append(p.issues, InfoDiag(CodeParserNoLabels, "input contained no labels", nil))
	}
	return Tree{Labels: p.labels}, p.issues
}

func (p *Parser) finishAtEOF() {
	end := len(p.input)
	switch p.mode {
	case modeFieldData:
		p.appendFieldData(end)
		p.issues = append(p.issues, ErrorDiag(CodeParserMissingFieldSeparator,
			"field-data mode was not closed with ^FS before end of input", spanPtr(EmptySpan(end))))
	case modeRawData:
		p.issues = append(p.issues, ErrorDiag(CodeParserMissingTerminator,
			"raw-data mode was not closed before end of input", spanPtr(EmptySpan(end))))
	}
	if p.cur != nil {
		p.issues = append(p.issues, ErrorDiag(CodeParserMissingTerminator,
			"label opened with ^XA was never closed with ^XZ", spanPtr(EmptySpan(end))).
			WithContext(ctx("suggested_edit.kind", "insert", "suggested_edit.text", "^XZ", "suggested_edit.position", "range.end")))
		p.flushLabel()
	}
}

func spanPtr(s Span) *Span { return &s }

func (p *Parser) peek() *Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) flushLabel() {
	if p.cur != nil {
		p.labels = append(p.labels, *p.cur)
		p.cur = nil
	}
}

func (p *Parser) ensureLabel() {
	if p.cur == nil {
		p.cur = &Label{}
	}
}

func (p *Parser) appendNode(n Node) {
	p.ensureLabel()
	p.cur.Nodes = append(p.cur.Nodes, n)
}

// parseNormal consumes one leader-initiated command, or coalesces stray
// non-leader content into a Trivia node and recovers to the next leader.
// Stray content outside any open label is skipped without a node.
func (p *Parser) parseNormal() {
	tok := p.peek()
	if tok == nil {
		return
	}
	if tok.Kind != TokLeader {
		start := tok.Span.Start
		end := tok.Span.End
		p.pos++
		for {
			t := p.peek()
			if t == nil || t.Kind == TokLeader {
				break
			}
			end = t.Span.End
			p.pos++
		}
		text := strings.TrimSpace(p.input[start:end])
		if text != "" && p.cur != nil {
			p.appendNode(TriviaNode(text, Span{start, end}))
		}
		return
	}
	p.parseCommand()
}

// parseCommand implements the command-parsing algorithm of §4.2.
func (p *Parser) parseCommand() {
	leaderTok := *p.peek()
	p.pos++
	leaderStart := leaderTok.Span.Start

	valTok := p.peek()
	if valTok == nil || valTok.Kind != TokValue {
		p.issues = append(p.issues, ErrorDiag(CodeParserInvalidCommand,
			"leader not followed by a recognisable opcode", spanPtr(Span{leaderStart, leaderStart + 1})))
		p.recoverToNextLeader()
		return
	}

	valueText := p.input[valTok.Span.Start:valTok.Span.End]
	canonicalLeader := p.canonicalLeaderChar(p.input[leaderTok.Span.Start])
	opcodeTail, consumedLen := p.recognizeOpcode(valueText)
	code := canonicalLeader + opcodeTail

	if prefixArgCodes[code] {
		p.parsePrefixReconfig(code, leaderStart, valTok.Span.Start+consumedLen)
		return
	}

	// Consume the rest of the opcode Value token, plus following
	// Value/Whitespace/Comma tokens, stopping at the next Leader/Newline.
	rawStart := valTok.Span.Start + consumedLen
	p.pos++ // consume the opcode's Value token
	rawEnd := valTok.Span.End
	for {
		t := p.peek()
		if t == nil || t.Kind == TokLeader || t.Kind == TokNewline {
			break
		}
		rawEnd = t.Span.End
		p.pos++
	}
	rawArgs := p.input[rawStart:rawEnd]

	entry := p.lookupEntry(code)
	sig := DefaultSignature(nil)
	if entry != nil {
		sig = entry.EffectiveSignature(code)
	}

	hasLeadingSpace := len(rawArgs) > 0 && (rawArgs[0] == ' ' || rawArgs[0] == '\t')
	switch sig.Spacing {
	case SpacingForbid:
		if hasLeadingSpace {
			p.issues = append(p.issues, ErrorDiag(CodeParserInvalidCommand,
				code+" forbids whitespace before its arguments", spanPtr(Span{rawStart, rawEnd})))
		}
	case SpacingRequire:
		if !hasLeadingSpace && rawArgs != "" {
			p.issues = append(p.issues, ErrorDiag(CodeParserInvalidCommand,
				code+" requires whitespace before its arguments", spanPtr(Span{rawStart, rawEnd})))
		}
	}

	span := Span{leaderStart, rawEnd}

	if entry == nil {
		if p.tables != nil {
			p.issues = append(p.issues, WarnDiag(CodeParserUnknownCommand,
				code+" is not present in the loaded parser tables", spanPtr(span)))
		}
		args := splitOnComma(strings.TrimSpace(rawArgs), byte(p.delimiter))
		p.appendNode(CommandNode(code, args, span))
		p.applyStructuralEffects(code, nil, args)
		return
	}

	args := parseArgs(rawArgs, sig, p.delimiter)
	p.appendNode(CommandNode(code, args, span))
	p.applyStructuralEffects(code, entry, args)
}

// parsePrefixReconfig handles ^CC/^CT/^CD: the next byte is consumed as
// the single argument, the affected character updated, and the remaining
// input re-lexed from the current position.
func (p *Parser) parsePrefixReconfig(code string, leaderStart, argStart int) {
	if argStart >= len(p.input) {
		p.issues = append(p.issues, ErrorDiag(CodeParserInvalidCommand,
			code+" missing its required character argument", spanPtr(EmptySpan(argStart))))
		p.recoverToNextLeader()
		return
	}
	argByte := p.input[argStart]
	span := Span{leaderStart, argStart + 1}
	if argByte >= 0x80 {
		p.issues = append(p.issues, ErrorDiag(CodeParserNonASCIIArg,
			code+" received a non-ASCII argument", spanPtr(span)))
	} else {
		value := string(argByte)
		p.appendNode(CommandNode(code, []ArgSlot{{Presence: PresenceSlotValue, Value: &value}}, span))
		switch code {
		case "^CC":
			p.formatLeader = argByte
		case "^CT":
			p.controlLeader = argByte
		case "^CD":
			p.delimiter = argByte
		}
	}
	// Re-lex the tail from the byte after the consumed argument.
	p.tokens = NewLexer(p.input, p.formatLeader, p.controlLeader, p.delimiter).TokenizeFrom(argStart + 1)
	p.pos = 0
}

// canonicalLeaderChar maps the active leader character to its canonical
// form so spec-table lookups succeed regardless of active prefix.
func (p *Parser) canonicalLeaderChar(actual byte) string {
	if actual == p.controlLeader && p.controlLeader != '~' {
		return "~"
	}
	if actual == p.formatLeader && p.formatLeader != '^' {
		return "^"
	}
	switch actual {
	case p.formatLeader:
		return "^"
	case p.controlLeader:
		return "~"
	default:
		return string(actual)
	}
}

// recognizeOpcode implements the three-strategy longest-match algorithm
// of §4.2(3): trie walk, then known code-set longest match, then a
// length-based heuristic fallback. Returns the opcode tail (without
// leader) and the number of bytes of valueText it consumed.
func (p *Parser) recognizeOpcode(valueText string) (tail string, consumed int) {
	if p.tables != nil && p.tables.OpcodeTrie != nil {
		if t, n := walkTrie(p.tables.OpcodeTrie, valueText); n > 0 {
			return t, n
		}
	}
	if p.tables != nil {
		codes := p.tables.CodeSet()
		best := ""
		for n := 3; n >= 1; n-- {
			if n > len(valueText) {
				continue
			}
			cand := valueText[:n]
			if _, ok := codes["^"+cand]; ok {
				best = cand
				break
			}
			if _, ok := codes["~"+cand]; ok {
				best = cand
				break
			}
		}
		if best != "" {
			return best, len(best)
		}
	}
	// Heuristic fallback: prefer three alphabetic, else two (alpha then
	// alnum/@), else one.
	if len(valueText) >= 3 && isAlpha(valueText[0]) && isAlpha(valueText[1]) && isAlpha(valueText[2]) {
		return valueText[:3], 3
	}
	if len(valueText) >= 2 && isAlpha(valueText[0]) && (isAlnum(valueText[1]) || valueText[1] == '@') {
		return valueText[:2], 2
	}
	if len(valueText) >= 1 {
		return valueText[:1], 1
	}
	return "", 0
}

func walkTrie(root *opcodeTrieNode, s string) (string, int) {
	node := root
	matched := ""
	best := ""
	for i := 0; i < len(s) && i < 3; i++ {
		c := string(s[i])
		if node.Children == nil {
			break
		}
		child, ok := node.Children[c]
		if !ok {
			break
		}
		matched += c
		node = child
		if node.Terminal {
			best = matched
		}
	}
	return best, len(best)
}

func isAlpha(b byte) bool { return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') }
func isAlnum(b byte) bool { return isAlpha(b) || (b >= '0' && b <= '9') }

func (p *Parser) lookupEntry(code string) *CommandEntry {
	if p.tables == nil {
		return nil
	}
	return p.tables.CmdByCode(code)
}

// applyStructuralEffects transitions the mode machine based on a just
// emitted command's structural flags and handles label open/close.
func (p *Parser) applyStructuralEffects(code string, entry *CommandEntry, args []ArgSlot) {
	switch code {
	case "^XA":
		// Starting a new label while one is open flushes the previous
		// one implicitly; the just-appended ^XA belongs to the new label.
		if p.cur != nil && len(p.cur.Nodes) > 1 {
			last := p.cur.Nodes[len(p.cur.Nodes)-1]
			p.cur.Nodes = p.cur.Nodes[:len(p.cur.Nodes)-1]
			p.flushLabel()
			p.appendNode(last)
		}
		return
	case "^XZ":
		p.flushLabel()
		return
	}
	if entry == nil {
		return
	}
	if entry.RawPayload {
		p.mode = modeRawData
		p.rawOpeningCode = code
		p.rawStart = p.currentOffset()
		return
	}
	if entry.FieldData {
		p.mode = modeFieldData
		p.fieldDataStart = p.currentOffset()
		p.fieldHexEscaped = false
		return
	}
}

func (p *Parser) currentOffset() int {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos].Span.Start
	}
	return len(p.input)
}

// parseFieldData scans to the next leader that forms a closes_field
// opcode, accumulating everything in between into one FieldData node. A
// bare leader that does not introduce a recognisable, field-interrupting
// command is treated as ordinary field content and the scan continues.
func (p *Parser) parseFieldData() {
	for {
		t := p.peek()
		if t == nil {
			p.appendFieldData(len(p.input))
			return
		}
		if t.Kind != TokLeader {
			p.pos++
			continue
		}
		// Peek ahead: does this leader introduce ^FS (closes_field) or
		// some other recognised command that should interrupt the field?
		save := p.pos
		leaderTok := *t
		p.pos++
		valTok := p.peek()
		if valTok == nil || valTok.Kind != TokValue {
			p.pos = save + 1
			continue
		}
		valueText := p.input[valTok.Span.Start:valTok.Span.End]
		canonicalLeader := p.canonicalLeaderChar(p.input[leaderTok.Span.Start])
		opcodeTail, _ := p.recognizeOpcode(valueText)
		code := canonicalLeader + opcodeTail
		entry := p.lookupEntry(code)

		if entry != nil && entry.ClosesField {
			contentEnd := leaderTok.Span.Start
			p.pos = save
			p.appendFieldData(contentEnd)
			p.mode = modeNormal
			p.parseCommand()
			return
		}
		if entry != nil && (entry.HexEscapeModifier) {
			p.fieldHexEscaped = true
			p.pos = save + 1
			continue
		}
		if entry != nil {
			// A genuine other recognised command interrupts the field.
			contentEnd := leaderTok.Span.Start
			p.pos = save
			p.appendFieldData(contentEnd)
			p.issues = append(p.issues, WarnDiag(CodeParserFieldDataInterrupted,
				code+" interrupted an open field before ^FS", spanPtr(Span{leaderTok.Span.Start, leaderTok.Span.Start})))
			p.mode = modeNormal
			p.parseCommand()
			return
		}
		// Unrecognised leader inside field data: keep scanning.
		p.pos = save + 1
	}
}

func (p *Parser) appendFieldData(end int) {
	content := p.input[p.fieldDataStart:end]
	if content != "" {
		p.appendNode(FieldDataNode(content, p.fieldHexEscaped, Span{p.fieldDataStart, end}))
	}
	p.mode = modeNormal
}

// parseRawData scans to the next leader; content in between, if
// non-empty, becomes a RawData node.
func (p *Parser) parseRawData() {
	for {
		t := p.peek()
		if t == nil {
			p.appendRawData(len(p.input))
			return
		}
		if t.Kind == TokLeader {
			p.appendRawData(t.Span.Start)
			return
		}
		p.pos++
	}
}

func (p *Parser) appendRawData(end int) {
	content := p.input[p.rawStart:end]
	if content != "" {
		p.appendNode(RawDataNode(p.rawOpeningCode, content, Span{p.rawStart, end}))
	}
	p.mode = modeNormal
}

func (p *Parser) recoverToNextLeader() {
	for {
		t := p.peek()
		if t == nil {
			return
		}
		if t.Kind == TokLeader {
			return
		}
		p.pos++
	}
}

// splitOnComma does a bare comma-split fallback used when no signature
// is known for a command (unknown opcode, no tables).
func splitOnComma(s string, delim byte) []ArgSlot {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, string(delim))
	out := make([]ArgSlot, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			out = append(out, ArgSlot{Presence: PresenceSlotEmpty})
			continue
		}
		v := trimmed
		out = append(out, ArgSlot{Presence: PresenceSlotValue, Value: &v})
	}
	return out
}

// parseArgs implements §4.2.1: split on the active joiner, apply any
// split rule, and pad to the signature's parameter count when
// AllowEmptyTrailing is set.
func parseArgs(raw string, sig Signature, activeDelim byte) []ArgSlot {
	raw = strings.TrimLeft(raw, " \t")
	if sig.Joiner == "" {
		// Free-form text: the entire remainder is one verbatim argument.
		v := raw
		return []ArgSlot{{Presence: presenceFor(v), Value: &v}}
	}
	joiner := sig.Joiner
	if joiner == "," {
		joiner = string(activeDelim)
	}
	var rawParts []string
	if raw == "" {
		rawParts = []string{}
	} else {
		rawParts = strings.Split(raw, joiner)
	}

	slots := make([]ArgSlot, 0, len(rawParts))
	for _, part := range rawParts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			slots = append(slots, ArgSlot{Presence: PresenceSlotEmpty})
			continue
		}
		v := trimmed
		slots = append(slots, ArgSlot{Presence: PresenceSlotValue, Value: &v})
	}

	if sig.SplitRule != nil {
		slots = applySplitRule(slots, *sig.SplitRule, sig.Params)
	}

	if sig.AllowEmptyTrailing {
		for len(slots) < len(sig.Params) {
			slots = append(slots, ArgSlot{Presence: PresenceSlotUnset})
		}
	}
	for i := range slots {
		if i < len(sig.Params) {
			slots[i].Key = sig.Params[i]
		}
	}
	return slots
}

func presenceFor(v string) Presence {
	if v == "" {
		return PresenceSlotEmpty
	}
	return PresenceSlotValue
}

// applySplitRule consumes the raw part at ParamIndex character-by-
// character into len(CharCounts) sub-arguments of the declared counts;
// any unused tail is appended to the last split part.
func applySplitRule(slots []ArgSlot, rule SplitRule, params []string) []ArgSlot {
	if rule.ParamIndex >= len(slots) {
		return slots
	}
	target := slots[rule.ParamIndex]
	if target.Value == nil {
		return slots
	}
	raw := *target.Value
	parts := make([]string, len(rule.CharCounts))
	pos := 0
	for i, n := range rule.CharCounts {
		end := pos + n
		if end > len(raw) {
			end = len(raw)
		}
		parts[i] = raw[pos:end]
		pos = end
	}
	if pos < len(raw) {
		parts[len(parts)-1] += raw[pos:]
	}

	newSlots := make([]ArgSlot, 0, len(slots)+len(parts)-1)
	newSlots = append(newSlots, slots[:rule.ParamIndex]...)
	for _, part := range parts {
		p := part
		newSlots = append(newSlots, ArgSlot{Presence: presenceFor(p), Value: &p})
	}
	newSlots = append(newSlots, slots[rule.ParamIndex+1:]...)
	return newSlots
}

// Parse parses input with heuristic opcode recognition and no tables.
func Parse(input string) (Tree, []Diagnostic) {
	return NewParser(input, nil).Parse()
}

// ParseWithTables parses input using the signatures, structural flags,
// and opcode trie declared in tables.
func ParseWithTables(input string, tables *ParserTables) (Tree, []Diagnostic) {
	return NewParser(input, tables).Parse()
}
