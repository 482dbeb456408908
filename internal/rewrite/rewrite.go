// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rewrite canonicalizes relocations that reference a section symbol
// when a direct function/object symbol defining that section exists,
// mirroring kpatch_replace_sections_syms from the reference implementation.
package rewrite

import (
	stdelf "debug/elf"

	"github.com/go-kpatch/objdiff/internal/kelf"
)

// Rewrite substitutes, for every relocation entry that targets a SECTION
// symbol, the function/object symbol that defines that section, when one
// exists. The compiler sometimes emits relocations against the section
// symbol rather than the symbol that actually defines the section; doing
// this substitution lets the output link against the original kernel's
// function/object symbol instead of manufacturing section symbols for it.
func Rewrite(patched *kelf.ObjectModel) {
	for _, sec := range patched.Sections {
		if sec.RelaOf == nil {
			continue
		}
		for _, rela := range sec.RelaOf.Relas {
			sym := rela.Sym
			if sym.Type != stdelf.STT_SECTION || sym.Sec == nil || sym.Sec.Info == nil {
				continue
			}
			if def := sym.Sec.Info.Sym; def != nil {
				rela.Sym = def
			}
		}
	}
}
