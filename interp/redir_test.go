// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cjsh-project/cjsh/syntax"
)

// literalCtx is a minimal ctxWithLoneWord: every redirect target in these
// tests is a plain literal, so expansion just needs to read the Lit back.
type literalCtx struct{}

func (literalCtx) literal(w *syntax.Word) string {
	if len(w.Parts) != 1 {
		return ""
	}
	lit, _ := w.Parts[0].(*syntax.Lit)
	if lit == nil {
		return ""
	}
	return lit.Value
}

func plainWord(s string) syntax.Word {
	return syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: s}}}
}

func fdRedirect(n int, op syntax.RedirOperator, target string) *syntax.Redirect {
	rd := &syntax.Redirect{Op: op, Word: plainWord(target)}
	if n >= 0 {
		rd.N = &syntax.Lit{Value: itoa(n)}
	}
	return rd
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestPlanRedirectionsOpensOutputFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	var r Runner
	redirs := []*syntax.Redirect{fdRedirect(-1, syntax.RdrOut, path)}
	plan, err := r.PlanRedirections(literalCtx{}, redirs, nil, nil, nil)
	if err != nil {
		t.Fatalf("PlanRedirections: %v", err)
	}
	defer plan.Close()

	if plan.Stdout == nil {
		t.Fatal("expected Stdout to be assigned")
	}
	if plan.Stdin != nil || plan.Stderr != nil {
		t.Fatal("expected Stdin/Stderr to stay at their given bases (nil)")
	}
	plan.Stdout.WriteString("hello\n")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello\n" {
		t.Fatalf("file content = %q, want %q", data, "hello\n")
	}
}

func TestPlanRedirectionsAppend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var r Runner
	redirs := []*syntax.Redirect{fdRedirect(-1, syntax.AppOut, path)}
	plan, err := r.PlanRedirections(literalCtx{}, redirs, nil, nil, nil)
	if err != nil {
		t.Fatalf("PlanRedirections: %v", err)
	}
	defer plan.Close()
	plan.Stdout.WriteString("second\n")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first\nsecond\n" {
		t.Fatalf("file content = %q", data)
	}
}

func TestPlanRedirectionsDupAndClose(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	var r Runner
	redirs := []*syntax.Redirect{
		fdRedirect(1, syntax.RdrOut, path),
		fdRedirect(2, syntax.DplOut, "1"), // 2>&1
	}
	plan, err := r.PlanRedirections(literalCtx{}, redirs, nil, nil, os.Stderr)
	if err != nil {
		t.Fatalf("PlanRedirections: %v", err)
	}
	defer plan.Close()

	if plan.Stderr != plan.Stdout {
		t.Fatal("expected fd 2 to be duplicated onto the same file as fd 1")
	}

	redirs = []*syntax.Redirect{fdRedirect(0, syntax.DplIn, "-")}
	plan2, err := r.PlanRedirections(literalCtx{}, redirs, os.Stdin, nil, nil)
	if err != nil {
		t.Fatalf("PlanRedirections: %v", err)
	}
	defer plan2.Close()
	if plan2.Stdin != nil {
		t.Fatal("expected 0<&- to close stdin (nil)")
	}
}

func TestPlanRedirectionsHeredoc(t *testing.T) {
	t.Parallel()
	var r Runner
	rd := &syntax.Redirect{
		Op:   syntax.Hdoc,
		Hdoc: plainWord("hello\n"),
	}
	plan, err := r.PlanRedirections(literalCtx{}, []*syntax.Redirect{rd}, nil, nil, nil)
	if err != nil {
		t.Fatalf("PlanRedirections: %v", err)
	}
	defer plan.Close()

	if plan.Stdin == nil {
		t.Fatal("expected Stdin to be the heredoc pipe's read end")
	}
	got, err := io.ReadAll(plan.Stdin)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello\n" {
		t.Fatalf("heredoc body = %q, want %q", got, "hello\n")
	}
}

func TestPlanRedirectionsOpenErrorClosesPriorFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.txt")

	var r Runner
	redirs := []*syntax.Redirect{
		fdRedirect(-1, syntax.RdrOut, ok),
		fdRedirect(-1, syntax.RdrIn, filepath.Join(dir, "nosuch")),
	}
	_, err := r.PlanRedirections(literalCtx{}, redirs, nil, nil, nil)
	if err == nil {
		t.Fatal("expected an error opening a nonexistent input file")
	}
}
