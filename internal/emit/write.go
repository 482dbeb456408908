// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package emit

import (
	"bytes"
	stdelf "debug/elf"
	"encoding/binary"
	"io"

	"github.com/go-kpatch/objdiff/internal/kelf"
)

// Write serializes out as a well-formed relocatable ELF object: a header
// with no program headers, the included sections' data, and a freshly laid
// out section header table, mirroring kpatch_write_output_elf.
func Write(w io.Writer, out *kelf.ObjectModel) error {
	bo := out.Layout.Order()

	ehsize, shentsize := 64, 64
	if out.Class == stdelf.ELFCLASS32 {
		ehsize, shentsize = 52, 40
	}

	offsets := make([]uint64, len(out.Sections))
	offset := uint64(ehsize)
	for i, sec := range out.Sections {
		if sec.Type == stdelf.SHT_NOBITS || len(sec.Data) == 0 {
			offsets[i] = offset
			continue
		}
		offset = alignUp(offset, sectionAlign(sec.Align))
		offsets[i] = offset
		offset += uint64(len(sec.Data))
	}
	shoff := alignUp(offset, 8)

	var buf bytes.Buffer
	if err := writeHeader(&buf, bo, out, shoff, ehsize, shentsize); err != nil {
		return err
	}
	for i, sec := range out.Sections {
		if sec.Type == stdelf.SHT_NOBITS || len(sec.Data) == 0 {
			continue
		}
		padTo(&buf, offsets[i])
		buf.Write(sec.Data)
	}
	padTo(&buf, shoff)

	if err := writeNullSectionHeader(&buf, bo, out.Class); err != nil {
		return err
	}
	for i, sec := range out.Sections {
		if err := writeSectionHeader(&buf, bo, out.Class, sec, offsets[i]); err != nil {
			return err
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func sectionAlign(a uint64) uint64 {
	if a == 0 {
		return 1
	}
	return a
}

func alignUp(x, align uint64) uint64 {
	if align <= 1 {
		return x
	}
	return (x + align - 1) &^ (align - 1)
}

func padTo(buf *bytes.Buffer, offset uint64) {
	for uint64(buf.Len()) < offset {
		buf.WriteByte(0)
	}
}

func writeHeader(buf *bytes.Buffer, bo binary.ByteOrder, out *kelf.ObjectModel, shoff uint64, ehsize, shentsize int) error {
	if out.Class == stdelf.ELFCLASS64 {
		var h stdelf.Header64
		h.Ident[0], h.Ident[1], h.Ident[2], h.Ident[3] = '\x7f', 'E', 'L', 'F'
		h.Ident[stdelf.EI_CLASS] = byte(stdelf.ELFCLASS64)
		h.Ident[stdelf.EI_DATA] = byte(out.Data)
		h.Ident[stdelf.EI_VERSION] = byte(stdelf.EV_CURRENT)
		h.Type = uint16(out.Type)
		h.Machine = uint16(out.Machine)
		h.Version = uint32(stdelf.EV_CURRENT)
		h.Shoff = shoff
		h.Ehsize = uint16(ehsize)
		h.Shentsize = uint16(shentsize)
		h.Shnum = uint16(len(out.Sections) + 1)
		h.Shstrndx = uint16(out.ShstrtabIndex)
		return binary.Write(buf, bo, &h)
	}
	var h stdelf.Header32
	h.Ident[0], h.Ident[1], h.Ident[2], h.Ident[3] = '\x7f', 'E', 'L', 'F'
	h.Ident[stdelf.EI_CLASS] = byte(stdelf.ELFCLASS32)
	h.Ident[stdelf.EI_DATA] = byte(out.Data)
	h.Ident[stdelf.EI_VERSION] = byte(stdelf.EV_CURRENT)
	h.Type = uint16(out.Type)
	h.Machine = uint16(out.Machine)
	h.Version = uint32(stdelf.EV_CURRENT)
	h.Shoff = uint32(shoff)
	h.Ehsize = uint16(ehsize)
	h.Shentsize = uint16(shentsize)
	h.Shnum = uint16(len(out.Sections) + 1)
	h.Shstrndx = uint16(out.ShstrtabIndex)
	return binary.Write(buf, bo, &h)
}

func writeNullSectionHeader(buf *bytes.Buffer, bo binary.ByteOrder, class stdelf.Class) error {
	if class == stdelf.ELFCLASS64 {
		return binary.Write(buf, bo, &stdelf.Section64{})
	}
	return binary.Write(buf, bo, &stdelf.Section32{})
}

func writeSectionHeader(buf *bytes.Buffer, bo binary.ByteOrder, class stdelf.Class, sec *kelf.Section, off uint64) error {
	if class == stdelf.ELFCLASS64 {
		s := stdelf.Section64{
			Name:      sec.NameOff,
			Type:      uint32(sec.Type),
			Flags:     uint64(sec.Flags),
			Addr:      sec.Addr,
			Off:       off,
			Size:      sec.Size,
			Link:      sec.Link,
			Info:      sec.Linfo,
			Addralign: sec.Align,
			Entsize:   sec.EntSize,
		}
		if sec.Type == stdelf.SHT_NOBITS {
			s.Off = off
		}
		return binary.Write(buf, bo, &s)
	}
	s := stdelf.Section32{
		Name:      sec.NameOff,
		Type:      uint32(sec.Type),
		Flags:     uint32(sec.Flags),
		Addr:      uint32(sec.Addr),
		Off:       uint32(off),
		Size:      uint32(sec.Size),
		Link:      sec.Link,
		Info:      sec.Linfo,
		Addralign: uint32(sec.Align),
		Entsize:   uint32(sec.EntSize),
	}
	return binary.Write(buf, bo, &s)
}
