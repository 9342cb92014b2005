// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"os"

	"github.com/cjsh-project/cjsh/syntax"
)

// bashTest evaluates a test expression, either the `[[ ]]` parsed form
// (classic==false, building TestExpr nodes directly from the AST) or a
// classicTest-built tree from a `test`/`[` argument list (classic==true,
// where word comparisons use glob-free string equality per POSIX rather
// than bash's [[ ]] pattern matching). It returns the non-empty string
// "true" for a true result, mirroring bash's internal boolean-as-string
// convention so callers can use `!= ""` as the truth test.
func (r *Runner) bashTest(ctx context.Context, expr syntax.TestExpr, classic bool) string {
	switch x := expr.(type) {
	case *syntax.Word:
		return r.literal(x)
	case *syntax.ParenTest:
		return r.bashTest(ctx, x.X, classic)
	case *syntax.BinaryTest:
		switch x.Op {
		case syntax.AndTest:
			if r.bashTest(ctx, x.X, classic) == "" {
				return ""
			}
			return r.bashTest(ctx, x.Y, classic)
		case syntax.OrTest:
			if r.bashTest(ctx, x.X, classic) != "" {
				return "true"
			}
			return r.bashTest(ctx, x.Y, classic)
		}
		lhs := r.literal(wordOf(x.X))
		rhs := r.literal(wordOf(x.Y))
		return boolStr(binTest(x.Op, lhs, rhs, classic))
	case *syntax.UnaryTest:
		if x.Op == syntax.TsNot {
			return boolStr(r.bashTest(ctx, x.X, classic) == "")
		}
		return boolStr(r.unTest(ctx, x.Op, wordOf(x.X)))
	default:
		return ""
	}
}

func wordOf(e syntax.TestExpr) *syntax.Word {
	if w, ok := e.(*syntax.Word); ok {
		return w
	}
	return &syntax.Word{}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return ""
}

func binTest(op syntax.BinTestOperator, lhs, rhs string, classic bool) bool {
	switch op {
	case syntax.TsMatch:
		if classic {
			return lhs == rhs
		}
		return match(rhs, lhs)
	case syntax.TsNoMatch:
		if classic {
			return lhs != rhs
		}
		return !match(rhs, lhs)
	case syntax.TsNewer:
		li, lerr := os.Stat(lhs)
		ri, rerr := os.Stat(rhs)
		return lerr == nil && rerr == nil && li.ModTime().After(ri.ModTime())
	case syntax.TsOlder:
		li, lerr := os.Stat(lhs)
		ri, rerr := os.Stat(rhs)
		return lerr == nil && rerr == nil && li.ModTime().Before(ri.ModTime())
	default:
		return false
	}
}

func (r *Runner) unTest(ctx context.Context, op syntax.UnTestOperator, w *syntax.Word) bool {
	s := r.literal(w)
	switch op {
	case syntax.TsEmpStr:
		return s == ""
	case syntax.TsNempStr:
		return s != ""
	case syntax.TsExists:
		_, err := os.Stat(s)
		return err == nil
	case syntax.TsRegFile:
		info, err := os.Stat(s)
		return err == nil && info.Mode().IsRegular()
	case syntax.TsDirect:
		info, err := os.Stat(s)
		return err == nil && info.IsDir()
	case syntax.TsReadable:
		f, err := os.Open(s)
		if err == nil {
			f.Close()
		}
		return err == nil
	case syntax.TsNoEmpty:
		info, err := os.Stat(s)
		return err == nil && info.Size() > 0
	case syntax.TsUsrOwn, syntax.TsGrpOwn:
		return r.unTestOwnOrGrp(ctx, op, s)
	default:
		return false
	}
}

// testParser builds a TestExpr tree from a flat argument list, the shape
// the `test`/`[` builtin receives (plain strings, no quoting metadata left
// by the time they reach here).
type testParser struct {
	rem []string
	tok string
	err func(error)
}

func (p *testParser) next() {
	if len(p.rem) == 0 {
		p.tok = ""
		return
	}
	p.tok = p.rem[0]
	p.rem = p.rem[1:]
}

func litWord(s string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: s}}}
}

// classicTest parses a POSIX `test`/`[` expression. closing is "]" when
// invoked as `[ ... ]`, empty for bare `test ...`.
func (p *testParser) classicTest(closing string, through bool) syntax.TestExpr {
	if p.tok == "" || p.tok == closing {
		return litWord("")
	}
	left := p.testOperand(closing)
	for p.tok == "-a" || p.tok == "-o" || p.tok == "&&" || p.tok == "||" {
		op := syntax.AndTest
		if p.tok == "-o" || p.tok == "||" {
			op = syntax.OrTest
		}
		p.next()
		right := p.testOperand(closing)
		left = &syntax.BinaryTest{Op: op, X: left, Y: right}
	}
	return left
}

func (p *testParser) testOperand(closing string) syntax.TestExpr {
	switch p.tok {
	case "!":
		p.next()
		inner := p.testOperand(closing)
		return &syntax.UnaryTest{Op: syntax.TsNot, X: inner}
	case "-z", "-n", "-e", "-f", "-d", "-r", "-w", "-x", "-s", "-O", "-G":
		op := unaryOpFor(p.tok)
		p.next()
		arg := p.tok
		p.next()
		return &syntax.UnaryTest{Op: op, X: litWord(arg)}
	}
	lhs := p.tok
	p.next()
	switch p.tok {
	case "=", "==", "!=", "-eq", "-ne", "-lt", "-le", "-gt", "-ge", "-nt", "-ot":
		op := p.tok
		p.next()
		rhs := p.tok
		p.next()
		return &syntax.BinaryTest{Op: binaryOpFor(op), X: litWord(lhs), Y: litWord(rhs)}
	default:
		return litWord(lhs)
	}
}

func unaryOpFor(s string) syntax.UnTestOperator {
	switch s {
	case "-z":
		return syntax.TsEmpStr
	case "-n":
		return syntax.TsNempStr
	case "-f":
		return syntax.TsRegFile
	case "-d":
		return syntax.TsDirect
	case "-r", "-w", "-x", "-s":
		return syntax.TsNoEmpty
	case "-O":
		return syntax.TsUsrOwn
	case "-G":
		return syntax.TsGrpOwn
	default:
		return syntax.TsExists
	}
}

func binaryOpFor(s string) syntax.BinTestOperator {
	switch s {
	case "!=":
		return syntax.TsNoMatch
	case "-nt":
		return syntax.TsNewer
	case "-ot":
		return syntax.TsOlder
	default:
		return syntax.TsMatch
	}
}
