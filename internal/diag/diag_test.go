// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diag_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-kpatch/objdiff/internal/diag"
)

func TestKindExitCode(t *testing.T) {
	assert.Equal(t, 2, diag.KindUnreconcilable.ExitCode())
	assert.Equal(t, 1, diag.KindInternal.ExitCode())
	assert.Equal(t, 1, diag.KindUnsupportedShape.ExitCode())
	assert.Equal(t, 1, diag.KindResource.ExitCode())
}

func TestNewCapturesCallSite(t *testing.T) {
	err := diag.New(diag.KindInternal, "section %s missing", ".symtab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "section .symtab missing")
	assert.Contains(t, err.Error(), "TestNewCapturesCallSite")
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	cause := errors.New("boom")
	err := diag.Wrap(diag.KindResource, cause, "opening %s", "out.o")

	assert.Contains(t, err.Error(), "opening out.o")
	assert.ErrorIs(t, err, cause)

	var de *diag.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, diag.KindResource, de.Kind)
}

func TestLoggerNilReceiverIsSafe(t *testing.T) {
	var log *diag.Logger
	assert.NotPanics(t, func() {
		log.Debugf("x")
		log.Changedf("x")
		log.Warnf("x")
		log.Errorf("x")
	})
}

func TestLoggerDebugfAtNormalLevelDoesNotPanic(t *testing.T) {
	// Normal-level loggers should not panic or require any setup to call
	// Debugf; this only verifies the gate doesn't blow up, since the
	// actual suppression is only observable on stdout.
	log := diag.NewLogger(diag.Normal)
	assert.NotPanics(t, func() { log.Debugf("hello %s", "world") })
}
