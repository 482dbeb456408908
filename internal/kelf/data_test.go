// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kelf

import (
	"testing"

	"github.com/go-kpatch/objdiff/arch"
)

func TestWriterReaderRoundTrip64(t *testing.T) {
	w := NewWriter(arch.AMD64.Layout)
	w.PutUint8(0x12)
	w.PutUint16(0x3456)
	w.PutUint32(0x789abcde)
	w.PutUint64(0x0102030405060708)
	w.PutInt64(-1)

	r := NewReader(w.Bytes(), arch.AMD64.Layout)
	if got := r.Uint8(); got != 0x12 {
		t.Fatalf("Uint8 = %#x, want 0x12", got)
	}
	if got := r.Uint16(); got != 0x3456 {
		t.Fatalf("Uint16 = %#x, want 0x3456", got)
	}
	if got := r.Uint32(); got != 0x789abcde {
		t.Fatalf("Uint32 = %#x, want 0x789abcde", got)
	}
	if got := r.Uint64(); got != 0x0102030405060708 {
		t.Fatalf("Uint64 = %#x, want 0x0102030405060708", got)
	}
	if got := r.Int64(); got != -1 {
		t.Fatalf("Int64 = %d, want -1", got)
	}
	if r.Avail() != 0 {
		t.Fatalf("Avail() = %d, want 0", r.Avail())
	}
}

func TestWriterReaderRoundTrip32Word(t *testing.T) {
	w := NewWriter(arch.I386.Layout)
	w.PutWord(0xdeadbeef)

	r := NewReader(w.Bytes(), arch.I386.Layout)
	if got := r.Word(); got != 0xdeadbeef {
		t.Fatalf("Word() = %#x, want 0xdeadbeef", got)
	}
}
