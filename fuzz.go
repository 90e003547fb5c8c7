// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

// Fuzz is a go-fuzz harness target: it parses data as ZPL and exercises
// the round-trip property (emit(parse(x)) reproduces the same tree
// shape), returning 1 for inputs worth keeping in the corpus and 0 for
// inputs that produced a parser panic recovery or failed to round-trip.
func Fuzz(data []byte) (result int) {
	defer func() {
		if recover() != nil {
			result = 0
		}
	}()

	text := string(data)
	tree, _ := Parse(text)
	if len(tree.Labels) == 0 {
		return 0
	}
	again, _ := Parse(Emit(tree))
	if !treesEqual(StripSpans(tree), StripSpans(again)) {
		return 0
	}
	return 1
}
