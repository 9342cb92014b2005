// Package signal routes POSIX signals for the shell: it tracks which
// signals are trapped, ignored, or left at their default disposition, and
// hands control back to the interpreter at safe points (the prompt,
// between pipeline statements, after a wait) rather than running trap
// bodies on a signal-handling goroutine directly.
package signal

import (
	"os"
	osignal "os/signal"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Disposition is how the shell currently treats a given signal.
type Disposition uint8

const (
	Default Disposition = iota
	Ignore
	Trapped
)

// Info describes one signal the shell knows how to name and trap.
type Info struct {
	Signal      os.Signal
	Name        string
	Description string
	CanTrap     bool
	CanIgnore   bool
}

// Table lists every signal the `trap`/`kill` builtins can refer to by
// name, mirroring the original shell's signal_table().
var Table = []Info{
	{unix.SIGHUP, "HUP", "hangup", true, true},
	{unix.SIGINT, "INT", "interrupt", true, true},
	{unix.SIGQUIT, "QUIT", "quit", true, true},
	{unix.SIGILL, "ILL", "illegal instruction", true, true},
	{unix.SIGABRT, "ABRT", "aborted", true, true},
	{unix.SIGFPE, "FPE", "floating point exception", true, true},
	{unix.SIGKILL, "KILL", "killed", false, false},
	{unix.SIGUSR1, "USR1", "user defined signal 1", true, true},
	{unix.SIGSEGV, "SEGV", "segmentation fault", true, true},
	{unix.SIGUSR2, "USR2", "user defined signal 2", true, true},
	{unix.SIGPIPE, "PIPE", "broken pipe", true, true},
	{unix.SIGALRM, "ALRM", "alarm clock", true, true},
	{unix.SIGTERM, "TERM", "terminated", true, true},
	{unix.SIGCHLD, "CHLD", "child exited", true, true},
	{unix.SIGCONT, "CONT", "continued", true, false},
	{unix.SIGSTOP, "STOP", "stopped (signal)", false, false},
	{unix.SIGTSTP, "TSTP", "stopped", true, true},
	{unix.SIGTTIN, "TTIN", "stopped (tty input)", true, true},
	{unix.SIGTTOU, "TTOU", "stopped (tty output)", true, true},
	{unix.SIGWINCH, "WINCH", "window changed", true, true},
}

// NameToSignal resolves a bare or "SIG"-prefixed name (case-insensitively)
// to its os.Signal, or nil if unknown.
func NameToSignal(name string) os.Signal {
	up := upper(trimSigPrefix(name))
	for _, si := range Table {
		if si.Name == up {
			return si.Signal
		}
	}
	return nil
}

func trimSigPrefix(s string) string {
	if len(s) > 3 && upper(s[:3]) == "SIG" {
		return s[3:]
	}
	return s
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func infoFor(sig os.Signal) *Info {
	for i := range Table {
		if Table[i].Signal == sig {
			return &Table[i]
		}
	}
	return nil
}

func CanTrap(sig os.Signal) bool {
	if i := infoFor(sig); i != nil {
		return i.CanTrap
	}
	return true
}

func CanIgnore(sig os.Signal) bool {
	if i := infoFor(sig); i != nil {
		return i.CanIgnore
	}
	return true
}

// Router receives OS signals on a channel and turns them into pending
// flags the interpreter drains synchronously, the Go analogue of the
// original's volatile sig_atomic_t counters plus a sigaction handler: Go
// offers no raw signal-handler hook, so a dedicated goroutine reading from
// signal.Notify stands in for it, touching only atomics.
type Router struct {
	mu           sync.Mutex
	dispositions map[os.Signal]Disposition
	trapCommands map[os.Signal]string

	pending map[os.Signal]*int32

	ch   chan os.Signal
	stop chan struct{}
}

// NewRouter builds a Router with every signal at its default disposition.
func NewRouter() *Router {
	r := &Router{
		dispositions: make(map[os.Signal]Disposition),
		trapCommands: make(map[os.Signal]string),
		pending:      make(map[os.Signal]*int32),
		ch:           make(chan os.Signal, 64),
		stop:         make(chan struct{}),
	}
	for _, si := range Table {
		r.pending[si.Signal] = new(int32)
	}
	return r
}

// Start begins listening for every signal in Table and routing them into
// pending counters. It returns immediately; call Stop to tear it down.
func (r *Router) Start() {
	sigs := make([]os.Signal, 0, len(Table))
	for _, si := range Table {
		sigs = append(sigs, si.Signal)
	}
	osignal.Notify(r.ch, sigs...)
	go r.loop()
}

func (r *Router) loop() {
	for {
		select {
		case sig := <-r.ch:
			r.mu.Lock()
			disp := r.dispositions[sig]
			r.mu.Unlock()
			if disp == Ignore {
				continue
			}
			if counter, ok := r.pending[sig]; ok {
				atomic.AddInt32(counter, 1)
			}
		case <-r.stop:
			return
		}
	}
}

// Stop ends signal delivery to this router.
func (r *Router) Stop() {
	osignal.Stop(r.ch)
	close(r.stop)
}

// SetDisposition records how sig should be handled going forward. cmd is
// the trap command body when disp is Trapped; it's ignored otherwise.
func (r *Router) SetDisposition(sig os.Signal, disp Disposition, cmd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispositions[sig] = disp
	if disp == Trapped {
		r.trapCommands[sig] = cmd
	} else {
		delete(r.trapCommands, sig)
	}
}

func (r *Router) Disposition(sig os.Signal) Disposition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispositions[sig]
}

// Pending is one signal that arrived and is waiting to be acted on.
type Pending struct {
	Signal os.Signal
	Cmd    string // non-empty when this signal is trapped
}

// DrainPending resets every pending counter to zero and returns, for each
// signal that had a nonzero count, one Pending entry. Call this at a safe
// point: the top of the prompt loop, between pipeline statements, or right
// after a foreground wait returns.
func (r *Router) DrainPending() []Pending {
	var out []Pending
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, si := range Table {
		counter := r.pending[si.Signal]
		if atomic.SwapInt32(counter, 0) == 0 {
			continue
		}
		p := Pending{Signal: si.Signal}
		if r.dispositions[si.Signal] == Trapped {
			p.Cmd = r.trapCommands[si.Signal]
		}
		out = append(out, p)
	}
	return out
}

// HasPending reports whether any signal is currently waiting to be drained,
// without consuming it.
func (r *Router) HasPending() bool {
	for _, counter := range r.pending {
		if atomic.LoadInt32(counter) != 0 {
			return true
		}
	}
	return false
}
