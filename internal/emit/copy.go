// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package emit

import (
	stdelf "debug/elf"

	"github.com/go-kpatch/objdiff/internal/kelf"
)

// copySections copies every included section from patched into out,
// assigning contiguous 1-based indices in iteration order and wiring
// mutual Twino links.
func copySections(patched, out *kelf.ObjectModel) {
	for _, sec := range patched.Sections {
		if !sec.Include {
			continue
		}
		cp := &kelf.Section{
			Index:   kelf.SectionID(len(out.Sections) + 1),
			Name:    sec.Name,
			Type:    sec.Type,
			Flags:   sec.Flags,
			Addr:    sec.Addr,
			Align:   sec.Align,
			EntSize: sec.EntSize,
			Size:    sec.Size,
			Data:    append([]byte(nil), sec.Data...),
		}
		if sec.RelaOf != nil {
			cp.RelaOf = &kelf.RelaInfo{}
		} else {
			cp.Info = &kelf.Info{}
		}
		sec.Twino, cp.Twino = cp, sec
		out.Sections = append(out.Sections, cp)

		switch sec.Name {
		case ".symtab":
			out.SymtabIndex = cp.Index
		case ".strtab":
			out.StrtabIndex = cp.Index
		case ".shstrtab":
			out.ShstrtabIndex = cp.Index
		}
	}
	for _, sec := range patched.Sections {
		if !sec.Include || sec.RelaOf == nil {
			continue
		}
		sec.Twino.RelaOf.Base = sec.RelaOf.Base.Twino
	}
}

// copySymbols copies every included symbol from patched into out, in the
// four-pass order the output symbol table's sh_info ("one past the last
// LOCAL symbol") convention requires: FILE symbols, LOCAL FUNC symbols, the
// remaining LOCAL symbols, then everything else (GLOBAL/WEAK). Each pass
// unmarks Include on the symbols it copies so later passes don't re-copy
// them.
func copySymbols(patched, out *kelf.ObjectModel) {
	out.Symbols = append(out.Symbols, &kelf.Symbol{Index: 0})

	passes := []func(*kelf.Symbol) bool{
		func(s *kelf.Symbol) bool { return s.Type == stdelf.STT_FILE },
		func(s *kelf.Symbol) bool { return s.Bind == stdelf.STB_LOCAL && s.Type == stdelf.STT_FUNC },
		func(s *kelf.Symbol) bool { return s.Bind == stdelf.STB_LOCAL },
		func(s *kelf.Symbol) bool { return true },
	}
	for _, match := range passes {
		for _, sym := range patched.Symbols {
			if sym.Index == 0 || !sym.Include || !match(sym) {
				continue
			}
			appendSymbol(out, sym)
			sym.Include = false
		}
	}
}

func appendSymbol(out *kelf.ObjectModel, sym *kelf.Symbol) {
	cp := &kelf.Symbol{
		Index: kelf.SymID(len(out.Symbols)),
		Name:  sym.Name,
		Bind:  sym.Bind,
		Type:  sym.Type,
		Other: sym.Other,
		Value: sym.Value,
		Size:  sym.Size,
		Shndx: sym.Shndx,
	}
	if sym.Sec != nil && sym.Sec.Include {
		cp.Shndx = stdelf.SectionIndex(sym.Sec.Twino.Index)
		cp.Sec = sym.Sec.Twino
	}
	out.Symbols = append(out.Symbols, cp)
	sym.Twino = cp
}
