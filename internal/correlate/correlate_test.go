// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package correlate_test

import (
	stdelf "debug/elf"
	"testing"

	"github.com/go-kpatch/objdiff/internal/correlate"
	"github.com/go-kpatch/objdiff/internal/diag"
	"github.com/go-kpatch/objdiff/internal/kelf"
)

func strSection(index kelf.SectionID, name string, data []byte) *kelf.Section {
	return &kelf.Section{
		Index: index,
		Name:  name,
		Type:  stdelf.SHT_PROGBITS,
		Flags: stdelf.SHF_ALLOC | stdelf.SHF_MERGE | stdelf.SHF_STRINGS,
		Data:  data,
		Info:  &kelf.Info{},
	}
}

func TestCorrelateSymbolsByName(t *testing.T) {
	fooBase := &kelf.Symbol{Index: 1, Name: "foo"}
	fooPatched := &kelf.Symbol{Index: 1, Name: "foo"}
	barBase := &kelf.Symbol{Index: 2, Name: "bar"}
	bazPatched := &kelf.Symbol{Index: 2, Name: "baz"} // renamed: no twin

	base := &kelf.ObjectModel{Symbols: []*kelf.Symbol{{Index: 0}, fooBase, barBase}}
	patched := &kelf.ObjectModel{Symbols: []*kelf.Symbol{{Index: 0}, fooPatched, bazPatched}}

	correlate.Correlate(base, patched, diag.NewLogger(diag.Normal))

	if fooBase.Twin != fooPatched || fooPatched.Twin != fooBase {
		t.Fatalf("foo: expected mutual twin link")
	}
	if barBase.Twin != nil {
		t.Fatalf("bar: expected no twin")
	}
	if bazPatched.Twin != nil {
		t.Fatalf("baz: expected no twin (renamed symbol)")
	}
}

func TestCorrelateRelasByStringContentDespiteReorder(t *testing.T) {
	baseStrs := strSection(1, ".rodata.str", []byte("hello\x00"))
	patchedStrs := strSection(1, ".rodata.str", []byte("pad\x00hello\x00"))

	baseSym := &kelf.Symbol{Index: 1, Name: ".rodata.str", Type: stdelf.STT_SECTION, Sec: baseStrs}
	patchedSym := &kelf.Symbol{Index: 1, Name: ".rodata.str", Type: stdelf.STT_SECTION, Sec: patchedStrs}

	baseRela := &kelf.Rela{RawTyp: 1, Offset: 0, Addend: 0, Sym: baseSym, String: []byte("hello")}
	patchedRela := &kelf.Rela{RawTyp: 1, Offset: 0, Addend: 4, Sym: patchedSym, String: []byte("hello")}

	baseRelaSec := &kelf.Section{Index: 2, Name: ".rela.text.f", Type: stdelf.SHT_RELA, RelaOf: &kelf.RelaInfo{Relas: []*kelf.Rela{baseRela}}}
	patchedRelaSec := &kelf.Section{Index: 2, Name: ".rela.text.f", Type: stdelf.SHT_RELA, RelaOf: &kelf.RelaInfo{Relas: []*kelf.Rela{patchedRela}}}

	base := &kelf.ObjectModel{Sections: []*kelf.Section{baseStrs, baseRelaSec}, Symbols: []*kelf.Symbol{{Index: 0}, baseSym}}
	patched := &kelf.ObjectModel{Sections: []*kelf.Section{patchedStrs, patchedRelaSec}, Symbols: []*kelf.Symbol{{Index: 0}, patchedSym}}

	correlate.Correlate(base, patched, diag.NewLogger(diag.Normal))

	if baseRela.Twin != patchedRela || patchedRela.Twin != baseRela {
		t.Fatalf("expected relocation entries to correlate via string content despite differing addend/offset-in-pool")
	}
}
