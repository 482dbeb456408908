// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inventory writes the plain-text companion listing requested by
// the CLI's --inventory flag, mirroring kpatch_write_inventory_file from
// the reference implementation.
package inventory

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-kpatch/objdiff/internal/kelf"
)

// Write emits one "section <name>" line per output section and one
// "symbol <name> <type> <bind>" line per output symbol, in output order.
func Write(w io.Writer, out *kelf.ObjectModel) error {
	bw := bufio.NewWriter(w)
	for _, sec := range out.Sections {
		if _, err := fmt.Fprintf(bw, "section %s\n", sec.Name); err != nil {
			return err
		}
	}
	for _, sym := range out.Symbols {
		if sym.Index == 0 {
			continue
		}
		if _, err := fmt.Fprintf(bw, "symbol %s %d %d\n", sym.Name, sym.Type, sym.Bind); err != nil {
			return err
		}
	}
	return bw.Flush()
}
