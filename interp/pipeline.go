// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/cjsh-project/cjsh/job"
	"github.com/cjsh-project/cjsh/syntax"
)

// externalPipeline is a left-to-right chain of pipeline stages that are
// known, from their static syntax shape alone, to each be a plain external
// command: no builtin, no declared function, no alias, no variable
// assignment. Only such a chain can be run as a single real Unix process
// group; see [Runner.planExternalPipeline] for why the check stops there.
type externalPipeline struct {
	calls  []*syntax.CallExpr
	redirs [][]*syntax.Redirect // per-stage redirections, parallel to calls
	// mergeStderr is true for a "|&" chain, where every stage's stderr
	// joins the next stage's stdin alongside stdout.
	mergeStderr bool
}

// supportedPipelineRedirOps are the redirection operators PlanRedirections
// can resolve entirely before fork: plain file opens, fd duplication, and
// here-documents (whose writer goroutine runs in the parent and only ever
// touches the pipe it created, so it's unaffected by the child forking).
// Custom {n}> redirections onto fd >= 3 are deliberately excluded: Go's
// exec.Cmd.ExtraFiles only supports a contiguous run starting at fd 3, and
// no spec.md scenario needs that generality.
func supportedPipelineRedirOps(redirs []*syntax.Redirect) bool {
	for _, rd := range redirs {
		switch rd.Op {
		case syntax.RdrOut, syntax.AppOut, syntax.ClbOut, syntax.RdrIn, syntax.RdrInOut,
			syntax.RdrAll, syntax.AppAll, syntax.DplOut, syntax.DplIn,
			syntax.Hdoc, syntax.DashHdoc:
			if rd.N != nil && litFD(rd.N) >= 3 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// planExternalPipeline inspects a *syntax.BinaryCmd chain of syntax.Pipe or
// syntax.PipeAll nodes and reports whether the real process-group executor
// in [Runner.runExternalPipeline] can run it directly, without going
// through the in-process goroutine-pipe fallback in [Runner.cmd].
//
// The Go runtime cannot fork() without an immediate exec: any meaningful
// work between the two (running a builtin, calling back into a Go function,
// touching the garbage collector) risks corrupting the child before it
// execs, because only one of the parent's many OS threads survives the
// fork. That's why [os/exec] itself keeps its forkAndExec path in assembly.
// A shell builtin or function occupying a pipeline stage therefore has no
// safe "fork, then run the builtin in the child" option in Go, and must
// keep running in-process via a goroutine and an os.Pipe, exactly as this
// package's teacher did for every pipeline. The real executor below only
// takes over for the common case where every stage is already an external
// program that os/exec would fork/exec regardless.
//
// The check is deliberately static (syntax.Word.Lit, no field expansion) so
// that planning never runs side-effecting expansions like command
// substitutions; those only run once, for real, inside the chosen path.
func (r *Runner) planExternalPipeline(top *syntax.BinaryCmd) (*externalPipeline, bool) {
	op := top.Op
	var stmts []*syntax.Stmt
	var cur syntax.Command = top
	for {
		bc, ok := cur.(*syntax.BinaryCmd)
		if !ok || bc.Op != op {
			// Only reachable on the first pass if top itself weren't a
			// pipe, which planExternalPipeline's caller already excludes.
			return nil, false
		}
		if bc.X.Negated || bc.X.Background || bc.X.Coprocess || !supportedPipelineRedirOps(bc.X.Redirs) {
			return nil, false
		}
		stmts = append(stmts, bc.X)

		next, chains := bc.Y.Cmd.(*syntax.BinaryCmd)
		// bc.Y is the wrapper statement the parser builds around the rest
		// of a right-recursive pipe chain; its own Redirs/Negated/etc. are
		// only ever populated when bc.Y.Cmd is NOT a further pipe segment
		// (a trailing redirect binds to the last stage, not to some
		// intermediate wrapper), so those fields only need checking once
		// we know this is the final stage.
		if chains && next.Op == op {
			cur = next
			continue
		}
		if bc.Y.Negated || bc.Y.Background || bc.Y.Coprocess || !supportedPipelineRedirOps(bc.Y.Redirs) {
			return nil, false
		}
		stmts = append(stmts, bc.Y)
		break
	}

	plan := &externalPipeline{mergeStderr: op == syntax.PipeAll}
	for _, st := range stmts {
		call, ok := st.Cmd.(*syntax.CallExpr)
		if !ok || len(call.Assigns) > 0 || len(call.Args) == 0 {
			return nil, false
		}
		name := call.Args[0].Lit()
		if name == "" {
			// Dynamic or expanded command name (e.g. "$cmd", "a"*"b"):
			// we can't classify it without expanding, and expanding here
			// would run command substitutions twice. Fall back.
			return nil, false
		}
		if r.Funcs[name] != nil || IsBuiltin(name) {
			return nil, false
		}
		if _, ok := r.alias[name]; ok && r.opts[optExpandAliases] {
			return nil, false
		}
		plan.calls = append(plan.calls, call)
		plan.redirs = append(plan.redirs, st.Redirs)
	}
	return plan, len(plan.calls) > 1
}

// runExternalPipeline forks and execs every stage of plan as a single Unix
// process group, connected by os.Pipe stdin/stdout handoffs exactly like a
// real shell, and tracks the group in r.jobs if job control is wired up.
// When the runner is in the foreground (not itself a backgrounded "cmd &"),
// it hands the controlling terminal to the new process group for the
// duration of the pipeline via r.ttyBackend, and takes it back afterwards.
func (r *Runner) runExternalPipeline(ctx context.Context, plan *externalPipeline) {
	n := len(plan.calls)
	cmds := make([]*exec.Cmd, n)
	closers := make([]*os.File, 0, 2*(n-1))
	var redirPlans []*RedirPlan

	defer func() {
		for _, f := range closers {
			f.Close()
		}
		for _, rp := range redirPlans {
			rp.Close()
		}
	}()

	// relay gives a backgrounded pipeline's last stage a pty to write to
	// instead of the real terminal, so a write after the shell moves on to
	// the next prompt gets SIGTTOU'd against the pty's own process group
	// rather than blocking forever against the controlling terminal.
	var relay *job.OutputRelay
	if r.inBackgroundJob && r.ttyBackend != nil {
		if rel, err := job.NewOutputRelay(); err == nil {
			relay = rel
		}
	}

	var prevRead *os.File
	for i, call := range plan.calls {
		args := r.fields(wordPtrs(call.Args)...)
		if len(args) == 0 {
			r.exit.code = 1
			return
		}
		path, err := LookPathDir(r.Dir, r.writeEnv, args[0])
		if err != nil {
			r.errf("%v\n", err)
			r.exit.code = 127
			return
		}
		cmd := &exec.Cmd{
			Path: path,
			Args: args,
			Env:  execEnv(r.writeEnv),
			Dir:  r.Dir,
		}
		if i == 0 {
			cmd.Stdin = r.stdin
		} else {
			cmd.Stdin = prevRead
		}
		if i == n-1 {
			if relay != nil {
				cmd.Stdout = relay.Slave
				cmd.Stderr = relay.Slave
			} else {
				cmd.Stdout = r.stdout
				cmd.Stderr = r.stderr
			}
		} else {
			pr, pw, err := os.Pipe()
			if err != nil {
				r.exit.fatal(err)
				return
			}
			closers = append(closers, pr, pw)
			cmd.Stdout = pw
			if plan.mergeStderr {
				cmd.Stderr = pw
			} else {
				cmd.Stderr = r.stderr
			}
			prevRead = pr
		}

		// Per-stage file redirections (">out", "2>&1", here-docs, ...)
		// resolved ahead of the fork by PlanRedirections; a stage's own
		// redirect always wins over whatever the pipe chain above it
		// assigned.
		if len(plan.redirs[i]) > 0 {
			rp, err := r.PlanRedirections(r, plan.redirs[i], asFile(cmd.Stdin), asFile(cmd.Stdout), asFile(cmd.Stderr))
			if err != nil {
				r.errf("%v\n", err)
				r.exit.code = 1
				return
			}
			redirPlans = append(redirPlans, rp)
			if rp.Stdin != nil {
				cmd.Stdin = rp.Stdin
			}
			if rp.Stdout != nil {
				cmd.Stdout = rp.Stdout
			}
			if rp.Stderr != nil {
				cmd.Stderr = rp.Stderr
			}
		}

		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmds[i] = cmd
	}

	var pgid int
	for i, cmd := range cmds {
		if i > 0 {
			cmd.SysProcAttr.Pgid = pgid
		}
		if err := cmd.Start(); err != nil {
			r.errf("%v: %v\n", plan.calls[i].Args[0].Lit(), err)
			r.exit.code = 126
			// Stages already started are still running; let the wait loop
			// below reap them instead of leaking zombies.
			cmds = cmds[:i]
			break
		}
		if i == 0 {
			pgid = cmd.Process.Pid
		}
		// Close the parent's copy of any pipe end the child now owns, once
		// both sides of that particular pipe have been started.
		if i > 0 {
			if f, ok := cmd.Stdin.(*os.File); ok && f != r.stdin {
				f.Close()
			}
		}
	}
	if len(cmds) == 0 {
		if relay != nil {
			relay.Close()
		}
		return
	}
	if relay != nil {
		if len(cmds) == n {
			relay.Slave.Close()
			relay.Start(r.stdout)
		} else {
			// The last stage never started; nothing will ever write to
			// relay.Slave, so there's nothing to drain.
			relay.Close()
			relay = nil
		}
	}

	pids := make([]int, len(cmds))
	for i, cmd := range cmds {
		pids[i] = cmd.Process.Pid
	}

	foreground := !r.inBackgroundJob && r.ttyBackend != nil
	if foreground {
		if err := r.ttyBackend.SetForeground(pgid); err != nil {
			foreground = false
		}
	}

	var jobID int
	if r.jobs != nil {
		jobID = r.jobs.AddJob(pgid, pids, pipelineCommandText(plan), r.inBackgroundJob, n == 1)
	}

	stopped := false
	exitCode := uint8(0)
	pipefail := r.opts[optPipeFail]
	for i, pid := range pids {
		var ws unix.WaitStatus
		_, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		if err != nil {
			continue
		}
		if r.jobs != nil {
			r.jobs.MarkPIDCompleted(pid, ws)
		}
		if ws.Stopped() {
			stopped = true
			continue
		}
		code := uint8(0)
		switch {
		case ws.Exited():
			code = uint8(ws.ExitStatus())
		case ws.Signaled():
			code = uint8(128 + int(ws.Signal()))
		}
		switch {
		case pipefail && code != 0:
			// The rightmost failing stage sets the status.
			exitCode = code
		case !pipefail && i == len(pids)-1:
			exitCode = code
		}
	}

	if foreground {
		r.ttyBackend.SetForeground(r.shellPGID)
	}

	if stopped {
		// The relay's master stays open: the stopped job may still be
		// resumed and write more output before it actually exits, and
		// nothing reads from it again from this call once we return, since
		// fg/bg don't yet carry a reference to which relay (if any) backs a
		// given job. The drain goroutine simply keeps running until the pty
		// finally sees EOF.
		r.errf("\n[%d]+  Stopped\t%s\n", jobID, pipelineCommandText(plan))
		r.exit.code = 148 // 128 + SIGTSTP
		return
	}
	if relay != nil {
		relay.Wait()
		relay.Close()
	}
	if r.jobs != nil && jobID != 0 {
		r.jobs.RemoveJob(jobID)
	}
	r.exit.code = exitCode
}

// asFile returns w's underlying *os.File, or nil if w isn't backed by one
// (e.g. a command-substitution buffer). PlanRedirections only needs a real
// base file when no redirect in the stage touches that fd; nil is a safe
// "leave cmd's existing assignment alone" signal to the caller in that case.
func asFile(w any) *os.File {
	f, _ := w.(*os.File)
	return f
}

// pipelineCommandText reconstructs a human-readable "a | b | c" label for
// job-control notifications, without going through the full printer (which
// would also re-quote redirections we already know aren't present here).
func pipelineCommandText(plan *externalPipeline) string {
	sep := " | "
	if plan.mergeStderr {
		sep = " |& "
	}
	parts := make([]string, len(plan.calls))
	for i, call := range plan.calls {
		words := make([]string, len(call.Args))
		for j, w := range call.Args {
			if lit := w.Lit(); lit != "" {
				words[j] = lit
			} else {
				words[j] = "..."
			}
		}
		parts[i] = strings.Join(words, " ")
	}
	return strings.Join(parts, sep)
}
