// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline wires the six differencing stages together: Loader,
// Correlator, Classifier, Rewriter, Includer, Emitter.
package pipeline

import (
	stdelf "debug/elf"
	"fmt"
	"os"

	"github.com/go-kpatch/objdiff/internal/asmpreview"
	"github.com/go-kpatch/objdiff/internal/classify"
	"github.com/go-kpatch/objdiff/internal/correlate"
	"github.com/go-kpatch/objdiff/internal/diag"
	"github.com/go-kpatch/objdiff/internal/emit"
	"github.com/go-kpatch/objdiff/internal/include"
	"github.com/go-kpatch/objdiff/internal/inventory"
	"github.com/go-kpatch/objdiff/internal/kelf"
	"github.com/go-kpatch/objdiff/internal/rewrite"
)

// Options configures a single run of the pipeline.
type Options struct {
	OriginalPath string
	PatchedPath  string
	OutputPath   string
	Inventory    bool
}

// Run executes the full pipeline against the two named input objects and
// writes the minimized output object (and, if requested, its inventory) to
// OutputPath.
func Run(opts Options, log *diag.Logger) error {
	base, err := loadFile(opts.OriginalPath)
	if err != nil {
		return err
	}
	patched, err := loadFile(opts.PatchedPath)
	if err != nil {
		return err
	}
	if err := kelf.CheckCompatible(base, patched); err != nil {
		return err
	}

	correlate.Correlate(base, patched, log)
	if err := classify.Classify(base, patched, log); err != nil {
		return err
	}
	rewrite.Rewrite(patched)

	changed := reportChanges(patched, log)
	if !changed {
		fmt.Println("no changes found")
	}

	include.Compute(patched, log)
	out := emit.Build(patched, log)

	outf, err := os.Create(opts.OutputPath)
	if err != nil {
		return diag.Wrap(diag.KindResource, err, "creating %s", opts.OutputPath)
	}
	defer outf.Close()
	if err := emit.WriteTo(outf, out); err != nil {
		return diag.Wrap(diag.KindResource, err, "writing %s", opts.OutputPath)
	}

	if opts.Inventory {
		invf, err := os.Create(opts.OutputPath + ".inventory")
		if err != nil {
			return diag.Wrap(diag.KindResource, err, "creating inventory file")
		}
		defer invf.Close()
		if err := inventory.Write(invf, out); err != nil {
			return diag.Wrap(diag.KindResource, err, "writing inventory file")
		}
	}
	return nil
}

func loadFile(path string) (*kelf.ObjectModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.Wrap(diag.KindResource, err, "opening %s", path)
	}
	defer f.Close()
	return kelf.Load(path, f)
}

// reportChanges announces every changed function on stdout, and, at
// --debug verbosity, a before/after disassembly preview of its body, and
// reports whether any function changed at all.
func reportChanges(patched *kelf.ObjectModel, log *diag.Logger) bool {
	any := false
	for _, sym := range patched.Symbols {
		if sym.Index == 0 {
			continue
		}
		if sym.Type != stdelf.STT_FUNC || sym.Status != kelf.StatusChanged {
			continue
		}
		any = true
		log.Changedf("function %s has changed", sym.Name)
		if log.Level == diag.Debug && sym.Sec != nil && sym.Twin != nil && sym.Twin.Sec != nil {
			log.Debugf("%s", asmpreview.Diff(patched.Arch, sym.Name, sym.Twin.Sec.Data, sym.Sec.Data))
		}
	}
	return any
}
