// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"encoding/json"
	"io"

	"github.com/stephens2424/writerset"
)

// DiagnosticBroadcaster fans a validation run's diagnostics out to every
// currently-registered io.Writer (a terminal, a log file, an attached
// editor's language-server stream) as newline-delimited JSON, so a long
// batch validate can be watched live instead of only reported at the
// end. Writers may be added and removed while a run is in progress.
type DiagnosticBroadcaster struct {
	set *writerset.WriterSet
}

// NewDiagnosticBroadcaster returns an empty DiagnosticBroadcaster.
func NewDiagnosticBroadcaster() *DiagnosticBroadcaster {
	return &DiagnosticBroadcaster{set: &writerset.WriterSet{}}
}

// Attach registers w to receive every subsequent Publish call's output
// until Detach is called with the same writer.
func (b *DiagnosticBroadcaster) Attach(w io.Writer) {
	b.set.Add(w)
}

// Detach stops sending output to w.
func (b *DiagnosticBroadcaster) Detach(w io.Writer) {
	b.set.Remove(w)
}

// Publish writes one diagnostic, annotated with the source file it came
// from, to every attached writer as a single JSON line.
func (b *DiagnosticBroadcaster) Publish(source string, d Diagnostic) error {
	line, err := json.Marshal(struct {
		Source string `json:"source"`
		Diagnostic
	}{Source: source, Diagnostic: d})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = b.set.Write(line)
	return err
}

// PublishAll publishes every diagnostic in issues in order.
func (b *DiagnosticBroadcaster) PublishAll(source string, issues []Diagnostic) error {
	for _, d := range issues {
		if err := b.Publish(source, d); err != nil {
			return err
		}
	}
	return nil
}
