// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"context"
	"os"

	"golang.org/x/sys/unix"

	"github.com/cjsh-project/cjsh/signal"
)

// Sentinel exit codes used to propagate break, continue, and return through
// the ordinary exit-status plumbing instead of dedicated Go-level control
// flow fields. An exit code alone can't tell "this statement list must stop
// early" apart from "the last command simply failed", so these three values
// are reserved to carry that extra bit end-to-end: every statement runner
// checks for them via [Runner.stop] and [Runner.loopStmtsBroken], the same
// way it already checks exiting/fatalExit.
//
// None of the three ever reaches the operating system or $?: return's real
// status is stashed in pendingReturn and restored at the function or sourced-
// script boundary, and break/continue carry their loop-level count in the
// shell-only breakEnclosing/contnEnclosing counters rather than in a
// user-visible variable.
const (
	exitSentinelReturn   uint8 = 253
	exitSentinelContinue uint8 = 254
	exitSentinelBreak    uint8 = 255
)

// triggerReturn starts a return unwind: code is the function's real exit
// status, stashed until [Runner.consumeReturn] is called at the nearest
// function or sourced-script boundary.
func (r *Runner) triggerReturn(code uint8) {
	r.pendingReturn = code
	r.exit.code = exitSentinelReturn
}

// consumeReturn turns a pending return sentinel back into a normal exit
// status. It's a no-op if no return is in flight, so callers can call it
// unconditionally at every function-call and source boundary.
func (r *Runner) consumeReturn() {
	if r.exit.code == exitSentinelReturn {
		r.exit.code = r.pendingReturn
	}
}

// triggerBreak and triggerContinue start a break-N/continue-N unwind: n
// enclosing loops should be unwound before normal execution resumes.
// [Runner.loopStmtsBroken] decrements the counter by one per loop level as
// the sentinel propagates outward, clearing it once it reaches the target
// loop.
func (r *Runner) triggerBreak(n int) {
	if n < 1 {
		n = 1
	}
	r.breakEnclosing = n
	r.exit.code = exitSentinelBreak
}

func (r *Runner) triggerContinue(n int) {
	if n < 1 {
		n = 1
	}
	r.contnEnclosing = n
	r.exit.code = exitSentinelContinue
}

// controlFlowPending reports whether the runner is currently unwinding due
// to a break, continue, or return sentinel.
func (r *Runner) controlFlowPending() bool {
	switch r.exit.code {
	case exitSentinelReturn, exitSentinelContinue, exitSentinelBreak:
		return true
	}
	return false
}

// runTrappedSignals drains whatever OS signals arrived since the last safe
// point and dispatches each one: a signal with a "trap CMD SIG" in effect
// runs CMD like any other trap callback, while one left at its default
// disposition falls through to defaultSignalAction.
func (r *Runner) runTrappedSignals(ctx context.Context) {
	if r.sigRouter == nil || r.handlingTrap {
		return
	}
	for _, p := range r.sigRouter.DrainPending() {
		if p.Cmd != "" {
			r.trapCallback(ctx, p.Cmd, "SIG"+signalName(p.Signal))
			continue
		}
		r.defaultSignalAction(p.Signal)
	}
}

func signalName(sig os.Signal) string {
	for _, si := range signal.Table {
		if si.Signal == sig {
			return si.Name
		}
	}
	return sig.String()
}

// defaultSignalAction applies what the shell does for a signal nobody
// trapped or ignored: job-control and child-reaping signals are handled by
// their own machinery (the pipeline wait loop, the terminal driver) and are
// simply dropped here, while every other signal terminates the shell with
// the conventional 128+signum status.
func (r *Runner) defaultSignalAction(sig os.Signal) {
	switch sig {
	case unix.SIGCHLD, unix.SIGCONT, unix.SIGWINCH, unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU:
		return
	}
	if s, ok := sig.(unix.Signal); ok {
		r.exit.code = uint8(128 + int(s))
	}
	r.exit.exiting = true
}
