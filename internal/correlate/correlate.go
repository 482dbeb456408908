// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package correlate pairs sections, symbols, and relocation entries between
// a base and a patched ObjectModel by name (sections, symbols) or structural
// equivalence (relocations), mirroring kpatch_correlate_sections,
// kpatch_correlate_symbols, kpatch_correlate_relas, and rela_equal from the
// reference implementation.
package correlate

import (
	"bytes"

	"github.com/go-kpatch/objdiff/internal/diag"
	"github.com/go-kpatch/objdiff/internal/kelf"
)

// Correlate pairs every section, symbol, and relocation entry between base
// and patched, setting Twin links. It does not assign Status; that is the
// Classifier's job.
func Correlate(base, patched *kelf.ObjectModel, log *diag.Logger) {
	correlateSections(base, patched, log)
	correlateSymbols(base, patched, log)
	correlateRelas(base, patched, log)
}

// nameIndex is the hash-index this package uses for O(1) name lookups
// during pairing, adapted from the teacher's symtab.Table name map.
type nameIndex[T any] map[string]T

func correlateSections(base, patched *kelf.ObjectModel, log *diag.Logger) {
	idx := make(nameIndex[*kelf.Section], len(base.Sections))
	for _, s := range base.Sections {
		idx[s.Name] = s
	}
	for _, p := range patched.Sections {
		b, ok := idx[p.Name]
		if !ok {
			log.Debugf("section %s is new", p.Name)
			continue
		}
		b.Twin, p.Twin = p, b
	}
}

func correlateSymbols(base, patched *kelf.ObjectModel, log *diag.Logger) {
	idx := make(nameIndex[*kelf.Symbol], len(base.Symbols))
	for _, s := range base.Symbols {
		if s.Index == 0 {
			continue
		}
		idx[s.Name] = s
	}
	for _, p := range patched.Symbols {
		if p.Index == 0 {
			continue
		}
		b, ok := idx[p.Name]
		if !ok {
			log.Debugf("symbol %s is new", p.Name)
			continue
		}
		b.Twin, p.Twin = p, b
	}
}

func correlateRelas(base, patched *kelf.ObjectModel, log *diag.Logger) {
	for _, psec := range patched.Sections {
		if psec.RelaOf == nil || psec.Twin == nil {
			continue
		}
		bsec := psec.Twin
		used := make([]bool, len(psec.RelaOf.Relas))
		for _, brela := range bsec.RelaOf.Relas {
			for i, prela := range psec.RelaOf.Relas {
				if used[i] || !relaEqual(brela, prela) {
					continue
				}
				brela.Twin, prela.Twin = prela, brela
				used[i] = true
				break
			}
		}
	}
}

// relaEqual is the structural equivalence predicate rela_equal: the same
// relocation type and offset, plus either matching interned string content
// (for relocations into a STRINGS-flagged section, which tolerates the
// string pool being reordered between builds) or matching symbol name and
// addend (which tolerates mere symbol-index renumbering).
func relaEqual(a, b *kelf.Rela) bool {
	if a.RawTyp != b.RawTyp || a.Offset != b.Offset {
		return false
	}
	if a.String != nil {
		return b.String != nil && bytes.Equal(a.String, b.String)
	}
	if b.String != nil {
		return false
	}
	return a.Sym.Name == b.Sym.Name && a.Addend == b.Addend
}
