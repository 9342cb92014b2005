package job

import (
	"io"
	"os"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"
)

// OutputRelay gives a background job that gets auto-stopped (it tried to
// write to the controlling terminal and got SIGTTOU) somewhere to keep
// writing: a pseudo-terminal whose master side is drained into the real
// terminal. Without this, a job silently backgrounded mid-write would just
// block forever on its next write syscall.
type OutputRelay struct {
	Master *os.File
	Slave  *os.File

	once sync.Once
	g    *errgroup.Group
}

// NewOutputRelay allocates a pty pair. The caller hands Slave's fd to the
// child as its stdout/stderr before forking, then calls Start to begin
// copying Master's output to dst.
func NewOutputRelay() (*OutputRelay, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}
	return &OutputRelay{Master: master, Slave: slave}, nil
}

// Start copies everything written to the pty master into dst until the
// slave side is closed (the job exits) or Close is called. It returns
// immediately; copying happens on a background goroutine joined by Wait.
func (r *OutputRelay) Start(dst io.Writer) {
	r.g = new(errgroup.Group)
	r.g.Go(func() error {
		_, err := io.Copy(dst, r.Master)
		return err
	})
}

// Wait blocks until the relay goroutine has observed EOF from the pty.
func (r *OutputRelay) Wait() error {
	if r.g == nil {
		return nil
	}
	return r.g.Wait()
}

// Close releases both ends of the pty. Safe to call more than once.
func (r *OutputRelay) Close() {
	r.once.Do(func() {
		r.Slave.Close()
		r.Master.Close()
	})
}
