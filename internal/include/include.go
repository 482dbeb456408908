// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package include computes the transitive closure of sections and symbols
// that must appear in the output, mirroring kpatch_include_symbol and
// kpatch_include_changed_functions from the reference implementation.
package include

import (
	stdelf "debug/elf"

	"github.com/go-kpatch/objdiff/internal/diag"
	"github.com/go-kpatch/objdiff/internal/kelf"
)

// Compute marks Include on every section and symbol reachable from a
// CHANGED function symbol, plus every FILE symbol and the three
// housekeeping sections (.shstrtab, .strtab, .symtab), which are always
// carried regardless of status.
func Compute(patched *kelf.ObjectModel, log *diag.Logger) {
	for _, sym := range patched.Symbols {
		if sym.Index == 0 {
			continue
		}
		if sym.Type == stdelf.STT_FILE {
			sym.Include = true
		}
	}
	for _, sym := range patched.Symbols {
		if sym.Index == 0 {
			continue
		}
		if sym.Type == stdelf.STT_FUNC && sym.Status == kelf.StatusChanged && !sym.Include {
			log.Debugf("function %s has changed", sym.Name)
			walk(sym)
		}
	}
	for _, idx := range [3]kelf.SectionID{patched.ShstrtabIndex, patched.StrtabIndex, patched.SymtabIndex} {
		patched.Section(idx).Include = true
	}
}

// walk performs the recursive reachability walk for symbol sym: a locally
// defined, CHANGED entity pulls in its section, that section's defining
// symbols, and (transitively) everything its relocations reference.  A
// symbol whose own status is SAME only needs its reference preserved, not
// the body it names, so the walk stops there without recursing into the
// section — unless sym is itself a SECTION symbol, in which case there is
// no separate "body" to distinguish from the reference.
func walk(sym *kelf.Symbol) {
	if sym.Include {
		return
	}
	sym.Include = true
	if sym.Sec == nil {
		return
	}
	if sym.Type != stdelf.STT_SECTION && sym.Status == kelf.StatusSame {
		return
	}
	sec := sym.Sec
	sec.Include = true
	if sec.Info == nil {
		return
	}
	if secsym := sec.Info.SecSym; secsym != nil && secsym != sym {
		secsym.Include = true
	}
	if rela := sec.Info.Rela; rela != nil {
		rela.Include = true
		for _, r := range rela.RelaOf.Relas {
			if !r.Sym.Include {
				walk(r.Sym)
			}
		}
	}
}
