// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline_test

import (
	"bytes"
	stdelf "debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-kpatch/objdiff/arch"
	"github.com/go-kpatch/objdiff/internal/diag"
	"github.com/go-kpatch/objdiff/internal/emit"
	"github.com/go-kpatch/objdiff/internal/kelf"
	"github.com/go-kpatch/objdiff/internal/pipeline"
)

// buildFixture assembles a tiny, self-contained, already-fully-included
// ObjectModel (one FILE symbol, one GLOBAL FUNC named "foo" defined in
// ".text.foo" with the given body) and serializes it to path via the same
// Build/Write path the pipeline itself uses to produce output objects. It
// gives the pipeline integration test real on-disk ELF fixtures without
// depending on an external compiler.
func buildFixture(t *testing.T, path string, body []byte) {
	t.Helper()

	text := &kelf.Section{
		Index: 1, Name: ".text.foo", Type: stdelf.SHT_PROGBITS,
		Flags: stdelf.SHF_ALLOC | stdelf.SHF_EXECINSTR,
		Data:  body, Size: uint64(len(body)), Align: 16,
		Info: &kelf.Info{}, Include: true,
	}
	shstrtab := &kelf.Section{Index: 2, Name: ".shstrtab", Type: stdelf.SHT_STRTAB, Include: true}
	strtab := &kelf.Section{Index: 3, Name: ".strtab", Type: stdelf.SHT_STRTAB, Include: true}
	symtab := &kelf.Section{Index: 4, Name: ".symtab", Type: stdelf.SHT_SYMTAB, Include: true}

	fileSym := &kelf.Symbol{Index: 1, Name: "foo.c", Type: stdelf.STT_FILE, Bind: stdelf.STB_LOCAL, Shndx: stdelf.SHN_ABS, Include: true}
	fooSym := &kelf.Symbol{Index: 2, Name: "foo", Type: stdelf.STT_FUNC, Bind: stdelf.STB_GLOBAL, Sec: text, Shndx: stdelf.SectionIndex(text.Index), Include: true}
	text.Info.Sym = fooSym

	m := &kelf.ObjectModel{
		Name: path, Class: stdelf.ELFCLASS64, Data: stdelf.ELFDATA2LSB,
		Machine: stdelf.EM_X86_64, Type: stdelf.ET_REL,
		Layout: arch.AMD64.Layout, Arch: arch.AMD64,
		Sections:      []*kelf.Section{text, shstrtab, strtab, symtab},
		Symbols:       []*kelf.Symbol{{Index: 0}, fileSym, fooSym},
		SymtabIndex:   symtab.Index,
		StrtabIndex:   strtab.Index,
		ShstrtabIndex: shstrtab.Index,
	}

	out := emit.Build(m, diag.NewLogger(diag.Normal))
	var buf bytes.Buffer
	require.NoError(t, emit.WriteTo(&buf, out))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestRunProducesMinimizedOutputForChangedFunction(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.o")
	patchedPath := filepath.Join(dir, "patched.o")
	outPath := filepath.Join(dir, "out.o")

	buildFixture(t, basePath, []byte{0xc3, 0xc3, 0xc3, 0xc3})
	buildFixture(t, patchedPath, []byte{0xc3, 0xc3, 0xc3, 0x90}) // one byte differs

	// diag.Debug exercises the asmpreview disassembly path in
	// reportChanges, which only runs at debug verbosity.
	err := pipeline.Run(pipeline.Options{
		OriginalPath: basePath,
		PatchedPath:  patchedPath,
		OutputPath:   outPath,
		Inventory:    true,
	}, diag.NewLogger(diag.Debug))
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	out, err := kelf.Load(outPath, f)
	require.NoError(t, err)

	var foundFoo bool
	for _, sym := range out.Symbols {
		if sym.Name == "foo" {
			foundFoo = true
			assert.Equal(t, stdelf.STT_FUNC, sym.Type)
			require.NotNil(t, sym.Sec)
			assert.Equal(t, []byte{0xc3, 0xc3, 0xc3, 0x90}, sym.Sec.Data)
		}
	}
	assert.True(t, foundFoo, "changed function foo should be present in the minimized output")

	inv, err := os.ReadFile(outPath + ".inventory")
	require.NoError(t, err)
	assert.Contains(t, string(inv), "symbol foo")
}

func TestRunReportsNoChangesForIdenticalInputs(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.o")
	patchedPath := filepath.Join(dir, "patched.o")
	outPath := filepath.Join(dir, "out.o")

	buildFixture(t, basePath, []byte{0xc3, 0xc3, 0xc3, 0xc3})
	buildFixture(t, patchedPath, []byte{0xc3, 0xc3, 0xc3, 0xc3})

	err := pipeline.Run(pipeline.Options{
		OriginalPath: basePath,
		PatchedPath:  patchedPath,
		OutputPath:   outPath,
	}, diag.NewLogger(diag.Normal))
	require.NoError(t, err)

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	out, err := kelf.Load(outPath, f)
	require.NoError(t, err)

	for _, sym := range out.Symbols {
		if sym.Type == stdelf.STT_FUNC {
			t.Fatalf("no function should have been included when nothing changed, found %s", sym.Name)
		}
	}
}
