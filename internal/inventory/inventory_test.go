// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inventory_test

import (
	"bytes"
	stdelf "debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-kpatch/objdiff/internal/inventory"
	"github.com/go-kpatch/objdiff/internal/kelf"
)

func TestWriteFormatsSectionsAndSymbols(t *testing.T) {
	out := &kelf.ObjectModel{
		Sections: []*kelf.Section{
			{Index: 1, Name: ".text.f"},
			{Index: 2, Name: ".symtab"},
		},
		Symbols: []*kelf.Symbol{
			{Index: 0},
			{Index: 1, Name: "f", Type: stdelf.STT_FUNC, Bind: stdelf.STB_GLOBAL},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, inventory.Write(&buf, out))

	want := "section .text.f\n" +
		"section .symtab\n" +
		"symbol f 2 1\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSkipsNullSymbol(t *testing.T) {
	out := &kelf.ObjectModel{
		Symbols: []*kelf.Symbol{{Index: 0}},
	}
	var buf bytes.Buffer
	require.NoError(t, inventory.Write(&buf, out))
	assert.Empty(t, buf.String())
}
