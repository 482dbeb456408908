// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package emit

import (
	stdelf "debug/elf"

	"github.com/go-kpatch/objdiff/internal/kelf"
)

// rewriteRelocations re-serializes every included relocation section's data
// with symbol indices translated through Twino, mirroring
// kpatch_create_rela_section(s) from the reference implementation.
func rewriteRelocations(patched, out *kelf.ObjectModel) {
	for _, sec := range patched.Sections {
		if !sec.Include || sec.RelaOf == nil {
			continue
		}
		cp := sec.Twino
		w := kelf.NewWriter(out.Layout)
		for _, rela := range sec.RelaOf.Relas {
			// rela.Sym.Twino is nil only for the reserved null symbol
			// (index 0), which every output symbol table carries at
			// index 0 too; anything else reachable through an included
			// relocation section was walked and copied by Include/copySymbols.
			symIdx := uint32(0)
			if rela.Sym.Twino != nil {
				symIdx = uint32(rela.Sym.Twino.Index)
			}
			if out.Class == stdelf.ELFCLASS64 {
				w.PutUint64(rela.Offset)
				w.PutUint64(uint64(symIdx)<<32 | uint64(rela.RawTyp))
				w.PutInt64(rela.Addend)
			} else {
				w.PutUint32(uint32(rela.Offset))
				w.PutUint32(symIdx<<8 | (rela.RawTyp & 0xff))
				w.PutUint32(uint32(rela.Addend))
			}
		}
		cp.Data = w.Bytes()
		cp.Size = uint64(len(cp.Data))
		cp.Link = uint32(out.SymtabIndex)
		cp.Linfo = uint32(cp.RelaOf.Base.Index)
	}
}
