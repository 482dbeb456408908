// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classify assigns a Status (NEW/CHANGED/SAME) to every correlated
// section, symbol, and relocation entry in a patched ObjectModel, mirroring
// kpatch_compare_correlated_nonrela_section(s), kpatch_compare_correlated_
// symbol(s), and kpatch_set_rela_section_status from the reference
// implementation.
package classify

import (
	stdelf "debug/elf"

	"bytes"

	"github.com/go-kpatch/objdiff/internal/diag"
	"github.com/go-kpatch/objdiff/internal/kelf"
)

// Classify must run after Correlate has set Twin links on patched (and it
// reaches into twins on base only through those links). base is needed
// only to resolve sh_link targets when comparing section headers.
func Classify(base, patched *kelf.ObjectModel, log *diag.Logger) error {
	for _, sec := range patched.Sections {
		if sec.RelaOf != nil {
			continue // relocation sections get their status from their base, below
		}
		if err := classifySection(base, patched, sec, log); err != nil {
			return err
		}
	}
	for _, sym := range patched.Symbols {
		if sym.Index == 0 {
			continue
		}
		if err := classifySymbol(sym); err != nil {
			return err
		}
	}
	for _, sec := range patched.Sections {
		if sec.RelaOf == nil {
			continue
		}
		classifyRelaSection(sec, log)
	}
	return nil
}

func classifySection(base, patched *kelf.ObjectModel, sec *kelf.Section, log *diag.Logger) error {
	if sec.Twin == nil {
		sec.Status = kelf.StatusNew
		propagate(sec)
		log.Debugf("section %s is new", sec.Name)
		return nil
	}
	b := sec.Twin
	// sh_link is a raw section index, and inserting or removing a section
	// (the normal case when functions change) shifts every index after it.
	// Comparing sh_link by value would reject a perfectly good diff just
	// because .symtab's link to .strtab moved from index 5 to index 6, say.
	// What has to hold is that the two links still point at sections that
	// are themselves twins of each other (see SPEC_FULL.md open question #1:
	// the reference implementation dodged this by comparing sh_link against
	// itself, a no-op bug; a real comparison needs this twin resolution).
	if b.Type != sec.Type || b.Flags != sec.Flags || b.Addr != sec.Addr ||
		b.Align != sec.Align || b.EntSize != sec.EntSize || !linkedSectionsCorrelate(base, patched, b, sec) {
		return diag.New(diag.KindUnreconcilable, "section %s: incompatible section header between base and patched", sec.Name)
	}

	changed := sec.Size != b.Size
	if !changed && sec.Type != stdelf.SHT_NOBITS {
		changed = !bytes.Equal(sec.Data, b.Data)
	}
	if changed {
		sec.Status = kelf.StatusChanged
	} else {
		sec.Status = kelf.StatusSame
	}
	propagate(sec)
	return nil
}

// linkedSectionsCorrelate reports whether b's sh_link (in base) and sec's
// sh_link (in patched) resolve to sections that are twins of each other.
// sh_link == 0 means "no link" on both sides.
func linkedSectionsCorrelate(base, patched *kelf.ObjectModel, b, sec *kelf.Section) bool {
	if b.Link == 0 && sec.Link == 0 {
		return true
	}
	baseTarget := base.Section(kelf.SectionID(b.Link))
	patchedTarget := patched.Section(kelf.SectionID(sec.Link))
	if baseTarget == nil || patchedTarget == nil {
		return false
	}
	return patchedTarget.Twin == baseTarget
}

// propagate pushes a non-relocation section's status onto its defining
// symbol, its section symbol, and its relocation section.
func propagate(sec *kelf.Section) {
	if sec.Info == nil {
		return
	}
	if sec.Info.Sym != nil {
		sec.Info.Sym.Status = sec.Status
	}
	if sec.Info.SecSym != nil {
		sec.Info.SecSym.Status = sec.Status
	}
	if sec.Info.Rela != nil {
		sec.Info.Rela.Status = sec.Status
	}
}

func classifySymbol(sym *kelf.Symbol) error {
	if sym.Twin == nil {
		sym.Status = kelf.StatusNew
		return nil
	}
	b := sym.Twin
	if sym.Bind != b.Bind || sym.Type != b.Type || sym.Other != b.Other {
		return diag.New(diag.KindUnreconcilable, "symbol %s: incompatible binding/type/other between base and patched", sym.Name)
	}
	if (sym.Sec == nil) != (b.Sec == nil) {
		return diag.New(diag.KindUnreconcilable, "symbol %s: defined/undefined mismatch between base and patched", sym.Name)
	}
	if sym.Sec != nil && sym.Sec.Twin != b.Sec {
		return diag.New(diag.KindUnreconcilable, "symbol %s: defining section twin mismatch", sym.Name)
	}
	if sym.Type == stdelf.STT_OBJECT && sym.Size != b.Size {
		return diag.New(diag.KindUnreconcilable, "symbol %s: size changed from %d to %d", sym.Name, b.Size, sym.Size)
	}
	if sym.Shndx == stdelf.SHN_UNDEF || sym.Shndx == stdelf.SHN_ABS {
		sym.Status = kelf.StatusSame
	}
	// Otherwise leave the status the defining section's propagation
	// already assigned.
	return nil
}

// classifyRelaSection applies the two-phase rule: a byte difference in a
// relocation section's raw data is not, by itself, evidence of change
// (symbol-index renumbering alone produces exactly this). Only a
// relocation entry with no structural twin (rela.Twin == nil) counts,
// and when one is found it promotes the relocation section AND its base
// text section (and the base's defining/section symbols) to CHANGED.
func classifyRelaSection(sec *kelf.Section, log *diag.Logger) {
	anyNew := false
	for _, rela := range sec.RelaOf.Relas {
		if rela.Twin == nil {
			rela.Status = kelf.StatusNew
			anyNew = true
		} else {
			rela.Status = kelf.StatusSame
		}
	}
	if !anyNew || sec.Status != kelf.StatusSame {
		return
	}
	sec.Status = kelf.StatusChanged
	log.Debugf("relocation section %s has an unmatched entry; promoting to CHANGED", sec.Name)
	base := sec.RelaOf.Base
	base.Status = kelf.StatusChanged
	if base.Info.Sym != nil {
		base.Info.Sym.Status = kelf.StatusChanged
	}
	if base.Info.SecSym != nil {
		base.Info.SecSym.Status = kelf.StatusChanged
	}
}
