// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kelf

import (
	stdelf "debug/elf"
	"io"
	"strings"

	"github.com/go-kpatch/objdiff/arch"
	"github.com/go-kpatch/objdiff/internal/diag"
)

const relaPrefix = ".rela"

// Load parses r as a relocatable ELF object and builds its ObjectModel.
// name is used only for diagnostics (typically the input path).
//
// Load mirrors kpatch_elf_open/kpatch_create_section_table/
// kpatch_create_symbol_table/kpatch_create_rela_table from the reference
// implementation, reading through the standard library's debug/elf the same
// way the teacher's own ELF reader does.
func Load(name string, r io.ReaderAt) (*ObjectModel, error) {
	f, err := stdelf.NewFile(r)
	if err != nil {
		return nil, diag.Wrap(diag.KindInternal, err, "opening %s as ELF", name)
	}
	if len(f.Progs) > 0 {
		return nil, diag.New(diag.KindUnsupportedShape, "%s: has program headers; only relocatable objects are supported", name)
	}
	if f.Type != stdelf.ET_REL {
		return nil, diag.New(diag.KindUnsupportedShape, "%s: not a relocatable (ET_REL) object", name)
	}

	m := &ObjectModel{
		Name:    name,
		Class:   f.Class,
		Data:    f.Data,
		Machine: f.Machine,
		Type:    f.Type,
	}
	switch f.Machine {
	case stdelf.EM_X86_64:
		m.Arch, m.Layout = arch.AMD64, arch.AMD64.Layout
	case stdelf.EM_386:
		m.Arch, m.Layout = arch.I386, arch.I386.Layout
	default:
		return nil, diag.New(diag.KindUnsupportedShape, "%s: unsupported machine %s", name, f.Machine)
	}

	byName := make(map[string]*Section, len(f.Sections))
	for i, s := range f.Sections {
		if i == 0 {
			continue // the reserved null section
		}
		sec := &Section{
			Index:   SectionID(i),
			Name:    s.Name,
			Type:    s.Type,
			Flags:   s.Flags,
			Addr:    s.Addr,
			Align:   s.Addralign,
			EntSize: s.Entsize,
			Link:    s.Link,
			Linfo:   s.Info,
			Size:    s.Size,
		}
		if s.Type != stdelf.SHT_NOBITS {
			data, err := s.Data()
			if err != nil {
				return nil, diag.Wrap(diag.KindInternal, err, "%s: reading data for section %s", name, s.Name)
			}
			sec.Data = data
		}
		if sec.Type == stdelf.SHT_RELA {
			sec.RelaOf = &RelaInfo{}
		} else {
			sec.Info = &Info{}
		}
		m.Sections = append(m.Sections, sec)
		byName[sec.Name] = sec

		switch sec.Name {
		case ".symtab":
			m.SymtabIndex = sec.Index
		case ".strtab":
			m.StrtabIndex = sec.Index
		case ".shstrtab":
			m.ShstrtabIndex = sec.Index
		}
	}
	if m.SymtabIndex == NoSection {
		return nil, diag.New(diag.KindInternal, "%s: missing .symtab", name)
	}
	if m.StrtabIndex == NoSection {
		return nil, diag.New(diag.KindInternal, "%s: missing .strtab", name)
	}
	if m.ShstrtabIndex == NoSection {
		return nil, diag.New(diag.KindInternal, "%s: missing .shstrtab", name)
	}

	if err := m.loadSymbols(name); err != nil {
		return nil, err
	}
	if err := m.loadRelas(name, byName); err != nil {
		return nil, err
	}
	return m, nil
}

func cstring(b []byte, off uint32) string {
	if int(off) >= len(b) {
		return ""
	}
	b = b[off:]
	n := strings.IndexByte(string(b), 0)
	if n < 0 {
		return string(b)
	}
	return string(b[:n])
}

func (m *ObjectModel) loadSymbols(name string) error {
	symtab := m.Section(m.SymtabIndex)
	strtab := m.Section(m.StrtabIndex)

	entSize := 24
	if m.Class == stdelf.ELFCLASS32 {
		entSize = 16
	}
	if entSize == 0 || len(symtab.Data)%entSize != 0 {
		return diag.New(diag.KindInternal, "%s: .symtab size %d not a multiple of entry size %d", name, len(symtab.Data), entSize)
	}
	n := len(symtab.Data) / entSize
	m.Symbols = make([]*Symbol, n)

	r := NewReader(symtab.Data, m.Layout)
	for i := 0; i < n; i++ {
		sym := &Symbol{Index: SymID(i)}
		if m.Class == stdelf.ELFCLASS64 {
			nameOff := r.Uint32()
			info := r.Uint8()
			other := r.Uint8()
			shndx := r.Uint16()
			value := r.Uint64()
			size := r.Uint64()
			sym.Name = cstring(strtab.Data, nameOff)
			sym.Bind = stdelf.SymBind(info >> 4)
			sym.Type = stdelf.SymType(info & 0xf)
			sym.Other = other
			sym.Shndx = stdelf.SectionIndex(shndx)
			sym.Value = value
			sym.Size = size
		} else {
			nameOff := r.Uint32()
			value := r.Uint32()
			size := r.Uint32()
			info := r.Uint8()
			other := r.Uint8()
			shndx := r.Uint16()
			sym.Name = cstring(strtab.Data, nameOff)
			sym.Bind = stdelf.SymBind(info >> 4)
			sym.Type = stdelf.SymType(info & 0xf)
			sym.Other = other
			sym.Shndx = stdelf.SectionIndex(shndx)
			sym.Value = uint64(value)
			sym.Size = uint64(size)
		}
		m.Symbols[i] = sym

		if i == 0 {
			continue
		}
		if sym.Shndx > 0 && sym.Shndx < stdelf.SHN_LORESERVE {
			sec := m.Section(SectionID(sym.Shndx))
			if sec == nil {
				return diag.New(diag.KindInternal, "%s: symbol %d (%s) refers to unknown section %d", name, i, sym.Name, sym.Shndx)
			}
			sym.Sec = sec
			switch sym.Type {
			case stdelf.STT_SECTION:
				sym.Name = sec.Name
				sec.Info.SecSym = sym
			case stdelf.STT_FUNC, stdelf.STT_OBJECT:
				if sec.Name != "__ksymtab_strings" {
					if sym.Value != 0 {
						return diag.New(diag.KindUnsupportedShape, "%s: symbol %s defined at non-zero offset %d within its own section", name, sym.Name, sym.Value)
					}
					sec.Info.Sym = sym
				}
			}
		}
	}
	return nil
}

func (m *ObjectModel) loadRelas(name string, byName map[string]*Section) error {
	entSize := 24
	if m.Class == stdelf.ELFCLASS32 {
		entSize = 12
	}
	for _, sec := range m.Sections {
		if sec.RelaOf == nil {
			continue
		}
		baseName := strings.TrimPrefix(sec.Name, relaPrefix)
		base, ok := byName[baseName]
		if !ok {
			return diag.New(diag.KindInternal, "%s: relocation section %s has no matching base section %s", name, sec.Name, baseName)
		}
		sec.RelaOf.Base = base
		base.Info.Rela = sec

		if len(sec.Data)%entSize != 0 {
			return diag.New(diag.KindInternal, "%s: %s size not a multiple of entry size", name, sec.Name)
		}
		n := len(sec.Data) / entSize
		relas := make([]*Rela, n)
		r := NewReader(sec.Data, m.Layout)
		for i := 0; i < n; i++ {
			var offset uint64
			var info uint64
			var addend int64
			if m.Class == stdelf.ELFCLASS64 {
				offset = r.Uint64()
				info = r.Uint64()
				addend = r.Int64()
			} else {
				offset = uint64(r.Uint32())
				info = uint64(r.Uint32())
				addend = int64(int32(r.Uint32()))
			}
			symIdx := uint32(info >> 32)
			typ := uint32(info)
			if m.Class == stdelf.ELFCLASS32 {
				symIdx = info >> 8
				typ = info & 0xff
			}
			if int(symIdx) >= len(m.Symbols) {
				return diag.New(diag.KindInternal, "%s: %s entry %d refers to unknown symbol %d", name, sec.Name, i, symIdx)
			}
			rela := &Rela{
				RawTyp: typ,
				Offset: offset,
				Addend: addend,
				Sym:    m.Symbols[symIdx],
			}
			if m.Machine == stdelf.EM_X86_64 {
				rela.Type = stdelf.R_X86_64(typ)
			}
			if rela.Sym.Sec != nil && rela.Sym.Sec.Flags&stdelf.SHF_STRINGS != 0 {
				data := rela.Sym.Sec.Data
				off := rela.Sym.Value
				if addend >= 0 {
					off += uint64(addend)
				}
				if off <= uint64(len(data)) {
					rela.String = []byte(cstring(data, uint32(off)))
				}
			}
			relas[i] = rela
		}
		sec.RelaOf.Relas = relas
	}
	return nil
}

// CheckCompatible verifies that two loaded objects are compatible enough to
// correlate: same ELF class, data encoding, machine, and type. This is the
// "basic compatibility check" the Loader contract requires be performed
// once, up front, before any per-entity correlation begins — it mirrors
// kpatch_compare_elf_headers in the reference implementation.
func CheckCompatible(base, patched *ObjectModel) error {
	if base.Class != patched.Class {
		return diag.New(diag.KindUnreconcilable, "ELF class mismatch: %s has %v, %s has %v", base.Name, base.Class, patched.Name, patched.Class)
	}
	if base.Data != patched.Data {
		return diag.New(diag.KindUnreconcilable, "ELF data encoding mismatch: %s has %v, %s has %v", base.Name, base.Data, patched.Name, patched.Data)
	}
	if base.Machine != patched.Machine {
		return diag.New(diag.KindUnreconcilable, "ELF machine mismatch: %s has %v, %s has %v", base.Name, base.Machine, patched.Name, patched.Machine)
	}
	if base.Type != patched.Type {
		return diag.New(diag.KindUnreconcilable, "ELF type mismatch: %s has %v, %s has %v", base.Name, base.Type, patched.Name, patched.Type)
	}
	return nil
}
