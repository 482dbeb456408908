// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kelf

import (
	"github.com/go-kpatch/objdiff/arch"
)

// Reader decodes fixed-width fields out of a byte slice according to a
// Layout's byte order and word size. It mirrors the read side of the
// teacher's obj.Data/obj.Reader pair, trimmed to what the Loader needs:
// there's no address-relative addressing here because relocatable objects
// have no loaded address space to address relative to.
type Reader struct {
	b      []byte
	p      int
	layout arch.Layout
}

// NewReader returns a Reader over b using the given layout.
func NewReader(b []byte, layout arch.Layout) *Reader {
	return &Reader{b, 0, layout}
}

// Avail returns the number of bytes remaining.
func (r *Reader) Avail() int { return len(r.b) - r.p }

// Offset returns the reader's current offset into its underlying slice.
func (r *Reader) Offset() int { return r.p }

func (r *Reader) Uint8() uint8 {
	o := r.p
	r.p++
	return r.b[o]
}

func (r *Reader) Uint16() uint16 {
	o := r.p
	r.p += 2
	return r.layout.Uint16(r.b[o : o+2])
}

func (r *Reader) Uint32() uint32 {
	o := r.p
	r.p += 4
	return r.layout.Uint32(r.b[o : o+4])
}

func (r *Reader) Uint64() uint64 {
	o := r.p
	r.p += 8
	return r.layout.Uint64(r.b[o : o+8])
}

func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

// Word reads a word using the layout's word size (4 bytes for ELFCLASS32,
// 8 bytes for ELFCLASS64).
func (r *Reader) Word() uint64 {
	o := r.p
	r.p += r.layout.WordSize()
	return r.layout.Word(r.b[o:])
}

// Writer is the symmetric counterpart of Reader: it encodes fixed-width
// fields into a growable byte buffer, used by the Emitter to serialize
// freshly built section, symbol, and relocation tables.
type Writer struct {
	b      []byte
	layout arch.Layout
}

// NewWriter returns an empty Writer using the given layout.
func NewWriter(layout arch.Layout) *Writer {
	return &Writer{layout: layout}
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte { return w.b }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.b) }

func (w *Writer) PutUint8(v uint8) { w.b = append(w.b, v) }

func (w *Writer) PutUint16(v uint16) {
	var buf [2]byte
	putLayout(w.layout, buf[:], uint64(v), 2)
	w.b = append(w.b, buf[:]...)
}

func (w *Writer) PutUint32(v uint32) {
	var buf [4]byte
	putLayout(w.layout, buf[:], uint64(v), 4)
	w.b = append(w.b, buf[:]...)
}

func (w *Writer) PutUint64(v uint64) {
	var buf [8]byte
	putLayout(w.layout, buf[:], v, 8)
	w.b = append(w.b, buf[:]...)
}

func (w *Writer) PutInt64(v int64) { w.PutUint64(uint64(v)) }

// PutWord writes v using the layout's word size.
func (w *Writer) PutWord(v uint64) {
	if w.layout.WordSize() == 8 {
		w.PutUint64(v)
	} else {
		w.PutUint32(uint32(v))
	}
}

// PutBytes appends raw bytes verbatim (e.g. a NUL-terminated name).
func (w *Writer) PutBytes(b []byte) { w.b = append(w.b, b...) }

// putLayout writes the low n bytes of v into buf in the layout's byte
// order. n must equal len(buf).
func putLayout(l arch.Layout, buf []byte, v uint64, n int) {
	if l.Order().String() == "LittleEndian" {
		for i := 0; i < n; i++ {
			buf[i] = byte(v >> (8 * i))
		}
	} else {
		for i := 0; i < n; i++ {
			buf[n-1-i] = byte(v >> (8 * i))
		}
	}
}
