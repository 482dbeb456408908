// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package emit constructs the output ObjectModel from an included, patched
// ObjectModel and serializes it as a new relocatable ELF object, mirroring
// kpatch_generate_output from the reference implementation.
package emit

import (
	"io"

	"github.com/go-kpatch/objdiff/internal/diag"
	"github.com/go-kpatch/objdiff/internal/kelf"
)

// Build produces the output ObjectModel: defined FUNC/OBJECT symbols whose
// defining section didn't make the inclusion cut are promoted to GLOBAL
// external references, included sections and symbols are copied with fresh
// contiguous indices, relocations are reindexed, and the three housekeeping
// tables are synthesized fresh.
func Build(patched *kelf.ObjectModel, log *diag.Logger) *kelf.ObjectModel {
	promoteNonLocal(patched)

	out := &kelf.ObjectModel{
		Name:    "output",
		Class:   patched.Class,
		Data:    patched.Data,
		Machine: patched.Machine,
		Type:    patched.Type,
		Layout:  patched.Layout,
		Arch:    patched.Arch,
	}
	copySections(patched, out)
	copySymbols(patched, out)
	rewriteRelocations(patched, out)
	buildStringTables(out)

	log.Debugf("output has %d sections and %d symbols", out.NumSections(), out.NumSymbols())
	return out
}

// WriteTo serializes out to w.
func WriteTo(w io.Writer, out *kelf.ObjectModel) error {
	return Write(w, out)
}
