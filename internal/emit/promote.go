// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package emit

import (
	stdelf "debug/elf"

	"github.com/go-kpatch/objdiff/internal/kelf"
)

// promoteNonLocal turns a defined FUNC or OBJECT symbol whose defining
// section didn't make the cut into an external reference: NOTYPE, GLOBAL,
// UNDEF, size 0. This is how a reference into the unchanged base image
// becomes something the downstream linker resolves against the original
// kernel object instead of a body this tool emits.
func promoteNonLocal(patched *kelf.ObjectModel) {
	for _, sym := range patched.Symbols {
		if !sym.Include || sym.Sec == nil || sym.Sec.Include {
			continue
		}
		if sym.Type != stdelf.STT_FUNC && sym.Type != stdelf.STT_OBJECT {
			continue
		}
		sym.Type = stdelf.STT_NOTYPE
		sym.Bind = stdelf.STB_GLOBAL
		sym.Shndx = stdelf.SHN_UNDEF
		sym.Size = 0
		sym.Sec = nil
	}
}
