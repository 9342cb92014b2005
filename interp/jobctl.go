// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/cjsh-project/cjsh/job"
	"github.com/cjsh-project/cjsh/signal"
)

// resolveJobSpec resolves a job spec as accepted by jobs/fg/bg/kill: "%N",
// "%+"/"%%" for the current job, "%-" for the previous one, "%prefix" for a
// job whose command starts with prefix, or a bare PID. It returns nil if
// job control isn't wired up or the spec doesn't resolve to a known job.
func (r *Runner) resolveJobSpec(spec string) *job.Job {
	if r.jobs == nil {
		return nil
	}
	if !strings.HasPrefix(spec, "%") {
		if pid, err := strconv.Atoi(spec); err == nil {
			return r.jobs.GetByPID(pid)
		}
		return nil
	}
	rest := spec[1:]
	switch rest {
	case "", "%", "+":
		return r.jobs.Get(r.jobs.Current())
	case "-":
		return r.jobs.Get(r.jobs.Previous())
	}
	if n, err := strconv.Atoi(rest); err == nil {
		return r.jobs.Get(n)
	}
	for _, j := range r.jobs.All() {
		if strings.HasPrefix(j.DisplayCommand(), rest) {
			return j
		}
	}
	return nil
}

func jobMarker(m *job.Manager, id int) byte {
	switch id {
	case m.Current():
		return '+'
	case m.Previous():
		return '-'
	default:
		return ' '
	}
}

func (r *Runner) builtinJobs(args []string) exitStatus {
	if r.jobs == nil {
		return exitStatus{}
	}
	listPIDsOnly := false
	longForm := false
	runningOnly := false
	stoppedOnly := false
	for _, a := range args {
		switch a {
		case "-p":
			listPIDsOnly = true
		case "-l":
			longForm = true
		case "-r":
			runningOnly = true
		case "-s":
			stoppedOnly = true
		default:
			r.errf("jobs: invalid option: %s\n", a)
			return exitStatus{code: 2}
		}
	}
	r.jobs.UpdateStatus()
	for _, j := range r.jobs.All() {
		if runningOnly && j.State != job.Running {
			continue
		}
		if stoppedOnly && j.State != job.Stopped {
			continue
		}
		if listPIDsOnly {
			r.outf("%d\n", j.PGID)
			continue
		}
		marker := jobMarker(r.jobs, j.ID)
		if longForm {
			r.outf("[%d]%c  %d %s\t%s\n", j.ID, marker, j.PGID, j.State, j.DisplayCommand())
		} else {
			r.outf("[%d]%c  %s\t%s\n", j.ID, marker, j.State, j.DisplayCommand())
		}
	}
	return exitStatus{}
}

func (r *Runner) builtinFg(args []string) exitStatus {
	if r.jobs == nil || r.ttyBackend == nil {
		r.errf("fg: no job control\n")
		return exitStatus{code: 1}
	}
	spec := "%+"
	if len(args) > 0 {
		spec = args[0]
	}
	j := r.resolveJobSpec(spec)
	if j == nil {
		r.errf("fg: %s: no such job\n", spec)
		return exitStatus{code: 1}
	}
	r.outf("%s\n", j.DisplayCommand())
	j.Background = false
	r.jobs.SetCurrent(j.ID)

	if err := r.ttyBackend.SetForeground(j.PGID); err != nil {
		r.errf("fg: %v\n", err)
		return exitStatus{code: 1}
	}
	unix.Kill(-j.PGID, unix.SIGCONT)

	var lastStatus uint8
	stopped := false
	for _, pid := range j.PIDs {
		var ws unix.WaitStatus
		if _, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil); err != nil {
			continue
		}
		r.jobs.MarkPIDCompleted(pid, ws)
		switch {
		case ws.Stopped():
			stopped = true
		case ws.Exited():
			lastStatus = uint8(ws.ExitStatus())
		case ws.Signaled():
			lastStatus = uint8(128 + int(ws.Signal()))
		}
	}

	r.ttyBackend.SetForeground(r.shellPGID)
	if stopped {
		r.errf("\n[%d]+  Stopped\t%s\n", j.ID, j.DisplayCommand())
		return exitStatus{code: 148}
	}
	r.jobs.RemoveJob(j.ID)
	return exitStatus{code: lastStatus}
}

func (r *Runner) builtinBg(args []string) exitStatus {
	if r.jobs == nil {
		r.errf("bg: no job control\n")
		return exitStatus{code: 1}
	}
	spec := "%+"
	if len(args) > 0 {
		spec = args[0]
	}
	j := r.resolveJobSpec(spec)
	if j == nil {
		r.errf("bg: %s: no such job\n", spec)
		return exitStatus{code: 1}
	}
	if err := unix.Kill(-j.PGID, unix.SIGCONT); err != nil {
		r.errf("bg: %v\n", err)
		return exitStatus{code: 1}
	}
	j.State = job.Running
	j.Background = true
	r.jobs.SetCurrent(j.ID)
	r.outf("[%d]+ %s &\n", j.ID, j.DisplayCommand())
	return exitStatus{}
}

// signalByName resolves a signal name with an optional "SIG" prefix,
// case-insensitively, via the signal package's canonical table.
func signalByName(name string) (syscall.Signal, bool) {
	name = strings.ToUpper(strings.TrimPrefix(name, "SIG"))
	s, ok := signal.NameToSignal(name).(syscall.Signal)
	return s, ok
}

// builtinKill implements the kill builtin's -l (list signal names), -s/-n
// (explicit signal selection) and bare "-SIGNAME"/"-N" forms, grounded on
// the original shell's kill_command semantics: send SIGTERM by default to
// each PID or %jobspec target, or to a job's whole process group.
func (r *Runner) builtinKill(args []string) exitStatus {
	sig := syscall.SIGTERM
	listSignals := false
	var targets []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-l" || arg == "-L":
			listSignals = true
		case arg == "-s" || arg == "-n":
			i++
			if i >= len(args) {
				r.errf("kill: option requires an argument -- %s\n", arg)
				return exitStatus{code: 2}
			}
			if n, err := strconv.Atoi(args[i]); err == nil {
				sig = syscall.Signal(n)
				continue
			}
			s, ok := signalByName(args[i])
			if !ok {
				r.errf("kill: %s: invalid signal specification\n", args[i])
				return exitStatus{code: 1}
			}
			sig = s
		case arg == "--":
			targets = append(targets, args[i+1:]...)
			i = len(args)
		case strings.HasPrefix(arg, "-") && arg != "-":
			spec := arg[1:]
			if n, err := strconv.Atoi(spec); err == nil {
				sig = syscall.Signal(n)
				continue
			}
			s, ok := signalByName(spec)
			if !ok {
				r.errf("kill: %s: invalid signal specification\n", spec)
				return exitStatus{code: 1}
			}
			sig = s
		default:
			targets = append(targets, arg)
		}
	}

	if listSignals {
		for _, info := range signal.Table {
			r.outf("%s\n", info.Name)
		}
		return exitStatus{}
	}
	if len(targets) == 0 {
		r.errf("kill: usage: kill [-s sigspec | -n signum | -sigspec] pid | %%jobspec ...\n")
		return exitStatus{code: 2}
	}

	status := uint8(0)
	for _, target := range targets {
		if strings.HasPrefix(target, "%") {
			j := r.resolveJobSpec(target)
			if j == nil {
				r.errf("kill: %s: no such job\n", target)
				status = 1
				continue
			}
			if err := unix.Kill(-j.PGID, sig); err != nil {
				r.errf("kill: (%s) - %v\n", target, err)
				status = 1
			}
			continue
		}
		pid, err := strconv.Atoi(target)
		if err != nil {
			r.errf("kill: %s: arguments must be process or job IDs\n", target)
			status = 1
			continue
		}
		if err := unix.Kill(pid, sig); err != nil {
			r.errf("kill: (%d) - %v\n", pid, err)
			status = 1
		}
	}
	return exitStatus{code: status}
}
