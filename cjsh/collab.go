// Package cjsh wires together the execution engine (syntax, expand,
// interp, job, signal) into a runnable shell, and defines the narrow
// interfaces through which out-of-scope subsystems — the interactive line
// editor, the prompt/theme renderer, filesystem introspection for
// completion, and the platform signal backend — plug in. Real
// implementations of these (isocline-style line editing, a themed prompt
// engine, a plugin host) are not part of this engine; only minimal
// defaults live here.
package cjsh

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// LineReader reads one line of interactive input. A real implementation
// would offer history search, multi-line continuation, and key bindings;
// the default here is a plain buffered reader.
type LineReader interface {
	// ReadLine blocks until a full line is available, returning io.EOF at
	// end of input.
	ReadLine(prompt string) (string, error)
}

// PromptRenderer builds the string shown before each command. A themed
// implementation would consult git status, exit codes, and a color
// scheme; the default renders a static prompt.
type PromptRenderer interface {
	Render(cwd string, lastExit int) string
}

// FilesystemHelper answers the filesystem questions a completion or
// smart-cd engine needs, kept narrow so a test can fake it without
// touching the real filesystem.
type FilesystemHelper interface {
	ListDir(path string) ([]os.DirEntry, error)
	Stat(path string) (os.FileInfo, error)
}

// SignalBackend is the platform hook for pty/terminal control, isolated
// behind an interface so the core interpreter doesn't import unix directly
// outside of interp/job/signal.
type SignalBackend interface {
	SetForeground(pgid int) error
	Getpgrp() (int, error)
}

// defaultLineReader wraps bufio.Scanner over an io.Reader.
type defaultLineReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewDefaultLineReader returns a LineReader that writes the prompt to out
// and reads lines from in, with no history or editing.
func NewDefaultLineReader(in io.Reader, out io.Writer) LineReader {
	return &defaultLineReader{scanner: bufio.NewScanner(in), out: out}
}

func (d *defaultLineReader) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(d.out, prompt)
	}
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return d.scanner.Text(), nil
}

// staticPromptRenderer always renders the same fixed prompt string.
type staticPromptRenderer struct{ Prompt string }

// NewStaticPromptRenderer returns a PromptRenderer ignoring cwd/exit
// status, for non-interactive or minimal-mode use.
func NewStaticPromptRenderer(prompt string) PromptRenderer {
	if prompt == "" {
		prompt = "$ "
	}
	return staticPromptRenderer{Prompt: prompt}
}

func (s staticPromptRenderer) Render(string, int) string { return s.Prompt }

// osFilesystemHelper answers filesystem queries directly against the OS.
type osFilesystemHelper struct{}

// NewOSFilesystemHelper returns a FilesystemHelper backed by the real
// filesystem.
func NewOSFilesystemHelper() FilesystemHelper { return osFilesystemHelper{} }

func (osFilesystemHelper) ListDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (osFilesystemHelper) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// ttySignalBackend implements SignalBackend against the controlling
// terminal via tcsetpgrp/getpgrp, the real mechanism used to hand the
// foreground process group to a job and take it back.
type ttySignalBackend struct{ fd int }

// NewTTYSignalBackend returns a SignalBackend that controls the
// foreground process group of the terminal open on fd (typically
// os.Stdin.Fd()).
func NewTTYSignalBackend(fd int) SignalBackend { return ttySignalBackend{fd: fd} }

func (t ttySignalBackend) SetForeground(pgid int) error {
	return unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
}

func (t ttySignalBackend) Getpgrp() (int, error) {
	return unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
}
