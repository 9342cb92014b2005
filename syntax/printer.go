package syntax

import (
	"fmt"
	"io"
)

// Printer renders syntax nodes back to shell source. Unlike a full
// round-trip formatter, it's built for the cases the interpreter itself
// needs: echoing a word, an assignment, or a command back out for
// `set -x` tracing and for `type`/`alias` output, not for reformatting a
// whole script with original spacing preserved.
type Printer struct{}

// PrinterOption configures a Printer returned by NewPrinter. None are
// defined yet; the type exists so call sites can pass options later
// without an API break.
type PrinterOption func(*Printer)

// NewPrinter builds a Printer with the given options applied.
func NewPrinter(opts ...PrinterOption) *Printer {
	p := &Printer{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Print writes node to w in shell syntax.
func (p *Printer) Print(w io.Writer, node Node) error {
	pw := &printWriter{w: w}
	pw.node(node)
	return pw.err
}

type printWriter struct {
	w   io.Writer
	err error
}

func (pw *printWriter) str(s string) {
	if pw.err != nil {
		return
	}
	_, pw.err = io.WriteString(pw.w, s)
}

func (pw *printWriter) byte(b byte) {
	pw.str(string(b))
}

func (pw *printWriter) node(n Node) {
	switch x := n.(type) {
	case *Word:
		pw.word(*x)
	case WordPart:
		pw.wordPart(x)
	case *Assign:
		pw.assign(x)
	case *CallExpr:
		pw.callExpr(x)
	case *LetClause:
		pw.letClause(x)
	case *BinaryArithm:
		pw.arithmExpr(x, false)
	case *UnaryArithm:
		pw.arithmExpr(x, false)
	case *ParenArithm:
		pw.arithmExpr(x, false)
	case *ArithmExp:
		pw.str("$((")
		pw.arithmExpr(x.X, false)
		pw.str("))")
	case *Stmt:
		pw.stmt(x)
	default:
		fmt.Fprintf(pw.w, "%v", n)
	}
}

func (pw *printWriter) assign(a *Assign) {
	if a.Name != nil {
		pw.str(a.Name.Value)
	}
	if a.Naked {
		return
	}
	if a.Append {
		pw.str("+=")
	} else {
		pw.byte('=')
	}
	if a.Array != nil {
		pw.byte('(')
		for i, w := range a.Array.List {
			if i > 0 {
				pw.byte(' ')
			}
			pw.word(w)
		}
		pw.byte(')')
		return
	}
	pw.word(a.Value)
}

func (pw *printWriter) callExpr(c *CallExpr) {
	for i, w := range c.Args {
		if i > 0 {
			pw.byte(' ')
		}
		pw.word(w)
	}
}

func (pw *printWriter) letClause(l *LetClause) {
	pw.str("let")
	for _, expr := range l.Exprs {
		pw.byte(' ')
		pw.arithmExpr(expr, false)
	}
}

func (pw *printWriter) stmt(s *Stmt) {
	if s.Negated {
		pw.str("! ")
	}
	for i, a := range s.Assigns {
		if i > 0 {
			pw.byte(' ')
		}
		pw.assign(a)
	}
	if len(s.Assigns) > 0 && s.Cmd != nil {
		pw.byte(' ')
	}
	if call, ok := s.Cmd.(*CallExpr); ok {
		pw.callExpr(call)
	} else if s.Cmd != nil {
		pw.node(s.Cmd)
	}
	if s.Background {
		pw.str(" &")
	}
}

func (pw *printWriter) word(w Word) {
	for _, part := range w.Parts {
		pw.wordPart(part)
	}
}

func (pw *printWriter) wordPart(wp WordPart) {
	switch x := wp.(type) {
	case *Lit:
		pw.str(x.Value)
	case *SglQuoted:
		if x.Dollar {
			pw.byte('$')
		}
		pw.byte('\'')
		pw.str(x.Value)
		pw.byte('\'')
	case *DblQuoted:
		if x.Dollar {
			pw.byte('$')
		}
		pw.byte('"')
		for _, n := range x.Parts {
			pw.wordPart(n)
		}
		pw.byte('"')
	case *CmdSubst:
		pw.str("$(")
		pw.stmtList(x.Stmts)
		pw.byte(')')
	case *ParamExp:
		if x.Short {
			pw.byte('$')
			pw.str(x.Param.Value)
			return
		}
		pw.str("${")
		if x.Length {
			pw.byte('#')
		}
		pw.str(x.Param.Value)
		switch {
		case x.Index != nil:
			pw.byte('[')
			pw.arithmExpr(x.Index, true)
			pw.byte(']')
		case x.Slice != nil:
			pw.byte(':')
			if x.Slice.Offset != nil {
				pw.arithmExpr(x.Slice.Offset, true)
			}
			if x.Slice.Length != nil {
				pw.byte(':')
				pw.arithmExpr(x.Slice.Length, true)
			}
		case x.Repl != nil:
			if x.Repl.All {
				pw.byte('/')
			}
			pw.byte('/')
			if x.Repl.Orig != nil {
				pw.word(*x.Repl.Orig)
			}
			pw.byte('/')
			if x.Repl.With != nil {
				pw.word(*x.Repl.With)
			}
		case x.Exp != nil:
			pw.expansionOp(x.Exp.Op)
			if x.Exp.Word != nil {
				pw.word(*x.Exp.Word)
			}
		}
		pw.byte('}')
	case *ArithmExp:
		pw.str("$((")
		pw.arithmExpr(x.X, false)
		pw.str("))")
	case *ExtGlob:
		pw.str(x.Op.String())
		pw.str(x.Pattern.Value)
		pw.byte(')')
	case *ProcSubst:
		if x.Op == CmdIn {
			pw.str("<(")
		} else {
			pw.str(">(")
		}
		pw.stmtList(x.Stmts)
		pw.byte(')')
	case *BraceExp:
		pw.byte('{')
		for i, e := range x.Elems {
			if i > 0 {
				if x.Sequence {
					pw.str("..")
				} else {
					pw.byte(',')
				}
			}
			pw.word(*e)
		}
		pw.byte('}')
	default:
		fmt.Fprintf(pw.w, "%v", wp)
	}
}

func (pw *printWriter) expansionOp(op ParExpOperator) {
	switch op {
	case SubstPlus:
		pw.byte('+')
	case SubstColPlus:
		pw.str(":+")
	case SubstMinus:
		pw.byte('-')
	case SubstColMinus:
		pw.str(":-")
	case SubstQuest:
		pw.byte('?')
	case SubstColQuest:
		pw.str(":?")
	case SubstAssgn:
		pw.byte('=')
	case SubstColAssgn:
		pw.str(":=")
	case RemSmallSuffix:
		pw.byte('%')
	case RemLargeSuffix:
		pw.str("%%")
	case RemSmallPrefix:
		pw.byte('#')
	case RemLargePrefix:
		pw.str("##")
	case UpperFirst:
		pw.byte('^')
	case UpperAll:
		pw.str("^^")
	case LowerFirst:
		pw.byte(',')
	default: // LowerAll
		pw.str(",,")
	}
}

func (pw *printWriter) stmtList(stmts []*Stmt) {
	for i, s := range stmts {
		if i > 0 {
			pw.str("; ")
		}
		pw.stmt(s)
	}
}

func (pw *printWriter) arithmExpr(expr ArithmExpr, compact bool) {
	switch x := expr.(type) {
	case *Word:
		pw.word(*x)
	case *BinaryArithm:
		pw.arithmExpr(x.X, compact)
		if !compact {
			pw.byte(' ')
		}
		pw.str(x.Op.String())
		if !compact {
			pw.byte(' ')
		}
		pw.arithmExpr(x.Y, compact)
	case *UnaryArithm:
		if x.Post {
			pw.arithmExpr(x.X, compact)
			pw.str(x.Op.String())
		} else {
			pw.str(x.Op.String())
			pw.arithmExpr(x.X, compact)
		}
	case *ParenArithm:
		pw.byte('(')
		pw.arithmExpr(x.X, true)
		pw.byte(')')
	}
}
