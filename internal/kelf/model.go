// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kelf models a minimal, section-granular relocatable ELF object:
// sections, symbols, and RELA relocation entries, linked together with the
// twin pointers the differencing pipeline needs to correlate two objects and
// to map the patched object onto a freshly emitted one.
package kelf

import (
	"debug/elf"
	"fmt"
	"strconv"

	"github.com/go-kpatch/objdiff/arch"
)

// SectionID identifies a Section within an ObjectModel. Section indices are
// 1-based, matching the on-disk ELF section numbering (index 0 is the
// reserved null section and is never represented as a Section).
type SectionID int32

// NoSection is the sentinel for "no section".
const NoSection SectionID = 0

func (id SectionID) String() string {
	if id == NoSection {
		return "<none>"
	}
	return strconv.Itoa(int(id))
}

// SymID identifies a Symbol within an ObjectModel. Index 0 is the reserved
// null symbol present in every ELF symbol table.
type SymID int32

func (id SymID) String() string {
	return strconv.Itoa(int(id))
}

// Status classifies an entity's relationship between the base and patched
// objects.
type Status uint8

const (
	// StatusSame means the entity is present, unchanged, in both objects.
	StatusSame Status = iota
	// StatusNew means the entity has no counterpart in the base object.
	StatusNew
	// StatusChanged means the entity is present in both objects but
	// differs.
	StatusChanged
)

func (s Status) String() string {
	switch s {
	case StatusSame:
		return "SAME"
	case StatusNew:
		return "NEW"
	case StatusChanged:
		return "CHANGED"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// RelaInfo holds the fields that apply only to a relocation (SHT_RELA)
// section. A Section with RelaInfo set is itself a relocation section; a
// Section without it is an ordinary section and may carry Info instead.
// Keeping these mutually exclusive as separate pointer fields, rather than
// emulating the reference implementation's C union, means accessing the
// wrong half is a nil-pointer fault caught immediately rather than silent
// misinterpretation of overlapping storage.
type RelaInfo struct {
	// Base is the section this relocation section applies to.
	Base *Section
	// Relas are this section's relocation entries, in file order.
	Relas []*Rela
}

// Info holds the fields that apply only to a non-relocation section.
type Info struct {
	// Rela is this section's own relocation section, if any.
	Rela *Section
	// SecSym is the SECTION-type symbol defining this section, if any.
	SecSym *Symbol
	// Sym is the single FUNC/OBJECT symbol defined in this section, if
	// any. Per-function/per-data sectioning guarantees at most one.
	Sym *Symbol
}

// Section is a section of a relocatable object.
type Section struct {
	Index   SectionID
	Name    string
	Type    elf.SectionType
	Flags   elf.SectionFlag
	Addr    uint64
	Align   uint64
	EntSize uint64
	Link    uint32
	Linfo   uint32 // sh_info
	Size    uint64
	NameOff uint32
	Data    []byte

	Status  Status
	Include bool
	Twin    *Section // correlated counterpart in the other ObjectModel
	Twino   *Section // corresponding section in the output ObjectModel

	RelaOf *RelaInfo // set iff Type == elf.SHT_RELA
	Info   *Info     // set iff Type != elf.SHT_RELA
}

func (s *Section) String() string {
	if s == nil {
		return "<nil section>"
	}
	return s.Name
}

// IsRela reports whether s is itself a relocation section.
func (s *Section) IsRela() bool { return s.RelaOf != nil }

// Symbol is an entry in a relocatable object's symbol table.
type Symbol struct {
	Index   SymID
	Name    string
	NameOff uint32 // st_name offset in the owning object's string table; set by the Emitter
	Bind    elf.SymBind
	Type    elf.SymType
	Shndx   elf.SectionIndex
	Value   uint64
	Size    uint64
	Other   byte

	Status  Status
	Include bool
	Twin    *Symbol
	Twino   *Symbol

	// Sec is the section this symbol is defined in, or nil for
	// UNDEF/ABS/COMMON symbols.
	Sec *Section
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil symbol>"
	}
	return s.Name
}

// Rela is a single RELA relocation entry.
type Rela struct {
	Type   elf.R_X86_64 // reinterpreted per-machine by the caller when needed
	RawTyp uint32
	Offset uint64
	Addend int64
	Sym    *Symbol

	// String holds the interned, NUL-terminated text this relocation
	// references, when Sym's section has the STRINGS flag set. It is nil
	// otherwise.
	String []byte

	Status Status
	Twin   *Rela
}

// ObjectModel is a fully parsed relocatable object: its sections, symbols,
// and (nested within relocation sections) relocation entries, plus the
// cross-references the Loader establishes between them.
type ObjectModel struct {
	Name string // diagnostic name, typically the input file path

	Class   elf.Class
	Data    elf.Data
	Machine elf.Machine
	Type    elf.Type
	Layout  arch.Layout
	Arch    *arch.Arch

	// Sections holds every section, indexed by Section.Index-1.
	Sections []*Section

	// Symbols holds every symbol, including the reserved null symbol at
	// index 0.
	Symbols []*Symbol

	// SymtabIndex is the section index of .symtab.
	SymtabIndex SectionID
	// StrtabIndex is the section index of .strtab.
	StrtabIndex SectionID
	// ShstrtabIndex is the section index of .shstrtab.
	ShstrtabIndex SectionID
}

// Section returns the section with the given 1-based index.
func (m *ObjectModel) Section(i SectionID) *Section {
	if i == NoSection {
		return nil
	}
	return m.Sections[i-1]
}

// Symbol returns the symbol with the given index.
func (m *ObjectModel) Symbol(i SymID) *Symbol {
	return m.Symbols[i]
}

// NumSections returns the number of sections (not counting the implicit
// null section).
func (m *ObjectModel) NumSections() int { return len(m.Sections) }

// NumSymbols returns the number of symbols, including the reserved null
// symbol at index 0.
func (m *ObjectModel) NumSymbols() int { return len(m.Symbols) }
