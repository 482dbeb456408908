// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rewrite_test

import (
	stdelf "debug/elf"
	"testing"

	"github.com/go-kpatch/objdiff/internal/kelf"
	"github.com/go-kpatch/objdiff/internal/rewrite"
)

func TestRewriteSubstitutesSectionSymbolWithDefiningSymbol(t *testing.T) {
	dataSec := &kelf.Section{Index: 1, Name: ".data.x", Type: stdelf.SHT_PROGBITS, Info: &kelf.Info{}}
	secSym := &kelf.Symbol{Name: ".data.x", Type: stdelf.STT_SECTION, Sec: dataSec}
	objSym := &kelf.Symbol{Name: "x", Type: stdelf.STT_OBJECT, Sec: dataSec}
	dataSec.Info.SecSym = secSym
	dataSec.Info.Sym = objSym

	rela := &kelf.Rela{RawTyp: 1, Offset: 0, Sym: secSym}
	relaSec := &kelf.Section{Index: 2, Name: ".rela.text.f", Type: stdelf.SHT_RELA, RelaOf: &kelf.RelaInfo{Base: dataSec, Relas: []*kelf.Rela{rela}}}

	patched := &kelf.ObjectModel{Sections: []*kelf.Section{dataSec, relaSec}}
	rewrite.Rewrite(patched)

	if rela.Sym != objSym {
		t.Fatalf("rela.Sym = %v, want the defining object symbol %v", rela.Sym, objSym)
	}
}

func TestRewriteLeavesNonSectionSymbolsAlone(t *testing.T) {
	fn := &kelf.Symbol{Name: "f", Type: stdelf.STT_FUNC}
	relaSec := &kelf.Section{Index: 1, Name: ".rela.text.g", Type: stdelf.SHT_RELA, RelaOf: &kelf.RelaInfo{Relas: []*kelf.Rela{
		{RawTyp: 1, Offset: 0, Sym: fn},
	}}}
	patched := &kelf.ObjectModel{Sections: []*kelf.Section{relaSec}}
	rewrite.Rewrite(patched)

	if relaSec.RelaOf.Relas[0].Sym != fn {
		t.Fatalf("non-section-symbol relocation should be left untouched")
	}
}
