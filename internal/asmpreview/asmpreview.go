// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asmpreview prints a short Go-syntax disassembly of a changed
// function's old and new bytes for --debug output. It adapts the teacher's
// asm package (itself built on golang.org/x/arch/x86/x86asm) purely as a
// debug-log convenience: the differencing engine never disassembles to make
// an inclusion or classification decision.
package asmpreview

import (
	"fmt"
	"strings"

	"github.com/go-kpatch/objdiff/arch"
	"github.com/go-kpatch/objdiff/asm"
)

// Lines returns up to maxInsns lines of Go-syntax disassembly for text,
// starting at program counter pc, followed by one "... (N more
// instructions)" line when text holds more than maxInsns. A should-be-rare decode failure for a
// given instruction renders as "?" rather than aborting the preview.
func Lines(a *arch.Arch, text []byte, pc uint64, maxInsns int) ([]string, error) {
	seq, err := asm.Disasm(a, text, pc)
	if err != nil {
		return nil, err
	}
	n := seq.Len()
	if n > maxInsns {
		n = maxInsns
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		inst := seq.Get(i)
		lines = append(lines, fmt.Sprintf("%#x: %s", inst.PC(), inst.GoSyntax(nil)))
	}
	if seq.Len() > maxInsns {
		lines = append(lines, fmt.Sprintf("... (%d more instructions)", seq.Len()-maxInsns))
	}
	return lines, nil
}

// Diff renders a "before"/"after" preview block for a changed function,
// suitable for a single debug log call.
func Diff(a *arch.Arch, name string, before, after []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", name)
	if beforeLines, err := Lines(a, before, 0, 8); err == nil {
		b.WriteString("  before:\n")
		for _, l := range beforeLines {
			fmt.Fprintf(&b, "    %s\n", l)
		}
	}
	if afterLines, err := Lines(a, after, 0, 8); err == nil {
		b.WriteString("  after:\n")
		for _, l := range afterLines {
			fmt.Fprintf(&b, "    %s\n", l)
		}
	}
	return b.String()
}
