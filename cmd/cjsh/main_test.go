// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"cjsh": mainRun,
	}))
}

// TestScripts drives the end-to-end scenarios as testscript .txtar files,
// launching the built cjsh binary the same way shfmt's own main_test.go
// drives shfmt: through testscript.RunMain rather than a real fork/exec of
// a separately compiled binary.
func TestScripts(t *testing.T) {
	t.Parallel()
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
	})
}
