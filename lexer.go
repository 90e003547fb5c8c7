// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

// TokenKind discriminates lexer token kinds.
type TokenKind int

// Supported TokenKind values.
const (
	TokLeader TokenKind = iota
	TokValue
	TokComma
	TokWhitespace
	TokNewline
)

// Token is one lexer token: a kind and a half-open byte span into the
// original input.
type Token struct {
	Kind TokenKind
	Span Span
}

// Lexer is a single-pass, byte-oriented tokeniser parameterised by the
// three currently active characters (format leader, control leader,
// argument delimiter). Tokens are non-overlapping, contiguous, and cover
// the entire input.
type Lexer struct {
	input        string
	formatLeader byte
	controlLeader byte
	delimiter    byte
}

// NewLexer builds a Lexer over input with the given active characters.
func NewLexer(input string, formatLeader, controlLeader, delimiter byte) *Lexer {
	return &Lexer{input: input, formatLeader: formatLeader, controlLeader: controlLeader, delimiter: delimiter}
}

// Tokenize lexes the lexer's entire input from offset 0.
func (l *Lexer) Tokenize() []Token {
	return l.TokenizeFrom(0)
}

// TokenizeFrom re-lexes the tail of the input starting at byte offset
// start, used after a prefix/delimiter reconfiguration mid-parse.
func (l *Lexer) TokenizeFrom(start int) []Token {
	var tokens []Token
	i := start
	n := len(l.input)
	for i < n {
		c := l.input[i]
		switch {
		case c == l.formatLeader || c == l.controlLeader:
			tokens = append(tokens, Token{Kind: TokLeader, Span: Span{i, i + 1}})
			i++
		case c == l.delimiter:
			tokens = append(tokens, Token{Kind: TokComma, Span: Span{i, i + 1}})
			i++
		case c == '\r':
			end := i + 1
			if end < n && l.input[end] == '\n' {
				end++
			}
			tokens = append(tokens, Token{Kind: TokNewline, Span: Span{i, end}})
			i = end
		case c == '\n':
			tokens = append(tokens, Token{Kind: TokNewline, Span: Span{i, i + 1}})
			i++
		case c == ' ' || c == '\t':
			j := i + 1
			for j < n && (l.input[j] == ' ' || l.input[j] == '\t') {
				j++
			}
			tokens = append(tokens, Token{Kind: TokWhitespace, Span: Span{i, j}})
			i = j
		default:
			j := i + 1
			for j < n {
				cc := l.input[j]
				if cc == l.formatLeader || cc == l.controlLeader || cc == l.delimiter ||
					cc == ' ' || cc == '\t' || cc == '\n' || cc == '\r' {
					break
				}
				j++
			}
			tokens = append(tokens, Token{Kind: TokValue, Span: Span{i, j}})
			i = j
		}
	}
	return tokens
}

// SetFormatLeader updates the active format-leader character.
func (l *Lexer) SetFormatLeader(c byte) { l.formatLeader = c }

// SetControlLeader updates the active control-leader character.
func (l *Lexer) SetControlLeader(c byte) { l.controlLeader = c }

// SetDelimiter updates the active argument-delimiter character.
func (l *Lexer) SetDelimiter(c byte) { l.delimiter = c }
