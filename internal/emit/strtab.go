// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package emit

import (
	stdelf "debug/elf"

	"github.com/go-kpatch/objdiff/internal/kelf"
)

// buildStringTables synthesizes the section-name and symbol-name string
// tables and the symbol table's on-disk bytes, mirroring
// kpatch_create_shstrtab, kpatch_create_strtab, and kpatch_create_symtab.
func buildStringTables(out *kelf.ObjectModel) {
	buildShstrtab(out)
	buildSymStrtab(out)
	buildSymtabData(out)
}

func buildShstrtab(out *kelf.ObjectModel) {
	buf := []byte{0}
	for _, sec := range out.Sections {
		sec.NameOff = uint32(len(buf))
		buf = append(buf, []byte(sec.Name)...)
		buf = append(buf, 0)
	}
	sh := out.Section(out.ShstrtabIndex)
	sh.Data = buf
	sh.Size = uint64(len(buf))
}

func buildSymStrtab(out *kelf.ObjectModel) {
	buf := []byte{0}
	for _, sym := range out.Symbols {
		if sym.Index == 0 || sym.Type == stdelf.STT_SECTION || sym.Name == "" {
			sym.NameOff = 0
			continue
		}
		sym.NameOff = uint32(len(buf))
		buf = append(buf, []byte(sym.Name)...)
		buf = append(buf, 0)
	}
	st := out.Section(out.StrtabIndex)
	st.Data = buf
	st.Size = uint64(len(buf))
}

func buildSymtabData(out *kelf.ObjectModel) {
	w := kelf.NewWriter(out.Layout)
	for _, sym := range out.Symbols {
		info := byte(sym.Bind)<<4 | byte(sym.Type)&0xf
		if out.Class == stdelf.ELFCLASS64 {
			w.PutUint32(sym.NameOff)
			w.PutUint8(info)
			w.PutUint8(sym.Other)
			w.PutUint16(uint16(sym.Shndx))
			w.PutUint64(sym.Value)
			w.PutUint64(sym.Size)
		} else {
			w.PutUint32(sym.NameOff)
			w.PutUint32(uint32(sym.Value))
			w.PutUint32(uint32(sym.Size))
			w.PutUint8(info)
			w.PutUint8(sym.Other)
			w.PutUint16(uint16(sym.Shndx))
		}
	}

	// sh_info is conventionally one past the index of the last LOCAL
	// symbol. The reference implementation instead sets this field to
	// the shstrtab's section index (see SPEC_FULL.md open question #2);
	// this implementation emits the conventional value since nothing
	// here requires bit-exact parity with that incidental behavior.
	last := 0
	for i, sym := range out.Symbols {
		if sym.Bind == stdelf.STB_LOCAL {
			last = i
		}
	}

	entSize := 24
	if out.Class == stdelf.ELFCLASS32 {
		entSize = 16
	}
	symtab := out.Section(out.SymtabIndex)
	symtab.Data = w.Bytes()
	symtab.Size = uint64(len(symtab.Data))
	symtab.Link = uint32(out.StrtabIndex)
	symtab.Linfo = uint32(last + 1)
	symtab.EntSize = uint64(entSize)
}
