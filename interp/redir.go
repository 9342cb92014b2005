package interp

import (
	"fmt"
	"os"

	"github.com/cjsh-project/cjsh/syntax"
)

// RedirPlan is the resolved, immutable result of planning a command's
// redirections: which open file (or in-memory pipe) ends up on which fd.
// Unlike the teacher's Runner.redir, which mutates the Runner's live
// stdin/stdout/stderr fields in place as it walks a statement's
// redirections, a RedirPlan is computed once, ahead of time, and then
// simply handed to exec.Cmd — the shape a real fork/exec pipeline needs, since by the time
// a child is forked there's no "current runner state" left to mutate.
type RedirPlan struct {
	Stdin, Stdout, Stderr *os.File
	Extra                 map[int]*os.File // fd >= 3, from custom {n}> style redirects

	opened []*os.File // files this plan opened and owns; Close()d after use
	hdocs  []*hdocPipe
}

type hdocPipe struct {
	r *os.File
	w *os.File
}

// Close releases every file this plan opened on the parent's behalf.
// Call it once the child has started (or failed to) so the parent doesn't
// leak the fds it only needed to hand off.
func (p *RedirPlan) Close() {
	for _, f := range p.opened {
		f.Close()
	}
	for _, h := range p.hdocs {
		h.r.Close()
	}
}

// flagsFor returns the os.OpenFile flags matching a redirection operator.
func flagsFor(op syntax.RedirOperator) int {
	switch op {
	case syntax.RdrOut, syntax.ClbOut:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case syntax.AppOut:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case syntax.RdrIn:
		return os.O_RDONLY
	case syntax.RdrInOut:
		return os.O_RDWR | os.O_CREATE
	default:
		return os.O_RDONLY
	}
}

// PlanRedirections resolves every *syntax.Redirect on a statement into a
// concrete RedirPlan. ctx.literal expands each target Word down to a
// single string (no splitting); stdin, stdout and stderr are the files each
// fd starts from, kept for any fd that no redirect touches. A redirect
// without an explicit fd applies to fd 0 for the input operators (<, <>,
// <&, here-documents) and to fd 1 for the others.
func (r *Runner) PlanRedirections(ctx ctxWithLoneWord, redirs []*syntax.Redirect, stdin, stdout, stderr *os.File) (*RedirPlan, error) {
	plan := &RedirPlan{Stdin: stdin, Stdout: stdout, Stderr: stderr}

	for _, rd := range redirs {
		defFD := 1
		switch rd.Op {
		case syntax.RdrIn, syntax.RdrInOut, syntax.DplIn, syntax.Hdoc, syntax.DashHdoc:
			defFD = 0
		}
		switch rd.Op {
		case syntax.RdrOut, syntax.AppOut, syntax.ClbOut, syntax.RdrIn, syntax.RdrInOut:
			name := ctx.literal(&rd.Word)
			f, err := os.OpenFile(name, flagsFor(rd.Op), 0o644)
			if err != nil {
				plan.Close()
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			plan.opened = append(plan.opened, f)
			assignFD(plan, rd.N, defFD, f)

		case syntax.DplOut, syntax.DplIn:
			// N>&M / N<&M: duplicate an existing fd onto N. "-" closes it.
			target := ctx.literal(&rd.Word)
			if target == "-" {
				assignFD(plan, rd.N, defFD, nil)
				continue
			}
			src := resolveStdFD(plan, target)
			if src == nil {
				plan.Close()
				return nil, fmt.Errorf("%s: bad file descriptor", target)
			}
			assignFD(plan, rd.N, defFD, src)

		case syntax.RdrAll, syntax.AppAll:
			name := ctx.literal(&rd.Word)
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if rd.Op == syntax.AppAll {
				flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			}
			f, err := os.OpenFile(name, flags, 0o644)
			if err != nil {
				plan.Close()
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			plan.opened = append(plan.opened, f)
			plan.Stdout, plan.Stderr = f, f

		case syntax.Hdoc, syntax.DashHdoc:
			body := r.hdocBody(rd)
			pr, pw, err := os.Pipe()
			if err != nil {
				plan.Close()
				return nil, err
			}
			hp := &hdocPipe{r: pr, w: pw}
			plan.hdocs = append(plan.hdocs, hp)
			go writeHeredoc(pw, body)
			assignFD(plan, rd.N, defFD, pr)

		default:
			// Any other operator, such as bash's <<<, is left out of the
			// plan; supportedPipelineRedirOps keeps statements that use
			// one off the pipeline path that calls this planner.
		}
	}
	return plan, nil
}

// hdocBody expands a here-document's body per its quoting: unquoted bodies
// get parameter/command-substitution expansion, quoted ones (<<'EOF') are
// taken verbatim. <<- additionally strips leading tabs from each line.
func (r *Runner) hdocBody(rd *syntax.Redirect) string {
	s := r.document(&rd.Hdoc)
	if rd.Op == syntax.DashHdoc {
		s = stripLeadingTabs(s)
	}
	return s
}

func stripLeadingTabs(s string) string {
	out := make([]byte, 0, len(s))
	atLineStart := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if atLineStart && c == '\t' {
			continue
		}
		atLineStart = c == '\n'
		out = append(out, c)
	}
	return string(out)
}

func writeHeredoc(w *os.File, body string) {
	defer w.Close()
	w.WriteString(body)
}

func assignFD(plan *RedirPlan, n *syntax.Lit, defFD int, f *os.File) {
	fd := defFD
	if n != nil {
		fd = litFD(n)
	}
	switch fd {
	case 0:
		plan.Stdin = f
	case 1:
		plan.Stdout = f
	case 2:
		plan.Stderr = f
	default:
		if plan.Extra == nil {
			plan.Extra = make(map[int]*os.File)
		}
		plan.Extra[fd] = f
	}
}

func litFD(lit *syntax.Lit) int {
	n := 0
	for _, c := range lit.Value {
		if c < '0' || c > '9' {
			return 1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func resolveStdFD(plan *RedirPlan, s string) *os.File {
	switch s {
	case "0":
		return plan.Stdin
	case "1":
		return plan.Stdout
	case "2":
		return plan.Stderr
	default:
		n := litFDString(s)
		if plan.Extra != nil {
			if f, ok := plan.Extra[n]; ok {
				return f
			}
		}
		return nil
	}
}

func litFDString(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// ctxWithLoneWord is the narrow slice of Runner that redirection planning
// needs: expanding a single Word to a string. Kept as an interface so
// redir_test.go can exercise PlanRedirections without a full Runner.
type ctxWithLoneWord interface {
	literal(w *syntax.Word) string
}
