// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

// Presence classifies how an argument slot was supplied.
type Presence int

// Supported Presence values.
const (
	// PresenceSlotValue means an explicit, non-empty token was present.
	PresenceSlotValue Presence = iota
	// PresenceSlotEmpty means the slot was skipped between delimiters.
	PresenceSlotEmpty
	// PresenceSlotUnset means the slot was never provided and was not
	// materialised by empty-trailing padding.
	PresenceSlotUnset
)

// ArgSlot is one parsed (or synthesised) argument of a Command node.
type ArgSlot struct {
	Key      string
	Presence Presence
	Value    *string
}

// ValueOr returns the slot's value, or fallback if the slot has no value.
func (a ArgSlot) ValueOr(fallback string) string {
	if a.Value == nil {
		return fallback
	}
	return *a.Value
}

// NodeKind discriminates the four Node variants.
type NodeKind int

// Supported NodeKind values.
const (
	NodeCommand NodeKind = iota
	NodeFieldData
	NodeRawData
	NodeTrivia
)

// Node is one element of a Label's node sequence. Exactly one of the
// kind-specific fields is meaningful, selected by Kind.
type Node struct {
	Kind NodeKind
	Span Span

	// Command fields.
	Code string
	Args []ArgSlot

	// FieldData fields.
	Content     string
	HexEscaped  bool

	// RawData fields.
	OpeningCode string
	Raw         string

	// Trivia fields.
	Text string
}

// CommandNode builds a Command node.
func CommandNode(code string, args []ArgSlot, span Span) Node {
	return Node{Kind: NodeCommand, Code: code, Args: args, Span: span}
}

// FieldDataNode builds a FieldData node.
func FieldDataNode(content string, hexEscaped bool, span Span) Node {
	return Node{Kind: NodeFieldData, Content: content, HexEscaped: hexEscaped, Span: span}
}

// RawDataNode builds a RawData node.
func RawDataNode(openingCode, raw string, span Span) Node {
	return Node{Kind: NodeRawData, OpeningCode: openingCode, Raw: raw, Span: span}
}

// TriviaNode builds a Trivia node.
func TriviaNode(text string, span Span) Node {
	return Node{Kind: NodeTrivia, Text: text, Span: span}
}

// Label is a printable unit bounded by ^XA...^XZ, as an ordered node
// sequence.
type Label struct {
	Nodes []Node
}

// Tree is the top-level parse result: a sequence of labels.
type Tree struct {
	Labels []Label
}

// StripSpans returns a copy of t with every span rewritten to the zero
// sentinel span, for use in round-trip equality comparisons that must
// ignore spans. The label and node slices are new; each node's Args
// slice is shared with t.
func StripSpans(t Tree) Tree {
	out := Tree{Labels: make([]Label, len(t.Labels))}
	sentinel := Span{}
	for li, label := range t.Labels {
		nodes := make([]Node, len(label.Nodes))
		for ni, n := range label.Nodes {
			n.Span = sentinel
			nodes[ni] = n
		}
		out.Labels[li] = Label{Nodes: nodes}
	}
	return out
}
