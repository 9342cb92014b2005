package job

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
)

// Manager owns every job a shell currently knows about. All methods are
// safe for concurrent use; the executor calls into it from the main loop
// and from the SIGCHLD-driven status-update path.
type Manager struct {
	mu sync.Mutex

	jobs       map[int]*Job
	nextID     int
	current    int
	previous   int
	lastBgPID  int
	notifyDest io.Writer
}

// NewManager returns an empty Manager. notifyDest receives the
// "[1]+ Done\tsleep 5" style lines cleanup emits; pass os.Stderr for a
// real shell.
func NewManager(notifyDest io.Writer) *Manager {
	return &Manager{
		jobs:       make(map[int]*Job),
		nextID:     1,
		current:    -1,
		previous:   -1,
		lastBgPID:  -1,
		notifyDest: notifyDest,
	}
}

// AddJob registers a newly launched process group and returns its job ID.
func (m *Manager) AddJob(pgid int, pids []int, command string, background, readsStdin bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.jobs[id] = &Job{
		ID:         id,
		PGID:       pgid,
		PIDs:       append([]int(nil), pids...),
		Command:    command,
		Background: background,
		ReadsStdin: readsStdin,
	}
	m.updateCurrentPrevious(id)
	return id
}

func (m *Manager) updateCurrentPrevious(newCurrent int) {
	if m.current != newCurrent {
		m.previous = m.current
		m.current = newCurrent
	}
}

// RemoveJob forgets a job, fixing up current/previous tracking.
func (m *Manager) RemoveJob(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeJobLocked(id)
}

func (m *Manager) removeJobLocked(id int) {
	if _, ok := m.jobs[id]; !ok {
		return
	}
	if m.current == id {
		m.current = m.previous
		m.previous = -1
	} else if m.previous == id {
		m.previous = -1
	}
	delete(m.jobs, id)
}

// Get returns the job with the given ID, or nil.
func (m *Manager) Get(id int) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

// GetByPGID finds a job by its process group ID.
func (m *Manager) GetByPGID(pgid int) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.PGID == pgid {
			return j
		}
	}
	return nil
}

// GetByPID finds the job containing the given pid, as a group member.
func (m *Manager) GetByPID(pid int) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		for _, p := range j.PIDs {
			if p == pid {
				return j
			}
		}
	}
	return nil
}

// All returns every known job, ordered by job ID ascending.
func (m *Manager) All() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// UpdateStatus polls every tracked pid with a non-blocking waitpid and
// updates job state accordingly. It never blocks: WNOHANG means jobs that
// are still running are simply left alone.
func (m *Manager) UpdateStatus() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		for _, pid := range j.PIDs {
			var ws unix.WaitStatus
			got, err := unix.Wait4(pid, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
			if err != nil || got <= 0 {
				continue
			}
			switch {
			case ws.Exited():
				j.State = Done
				j.ExitStatus = ws.ExitStatus()
			case ws.Signaled():
				j.State = Terminated
				j.ExitStatus = 128 + int(ws.Signal())
			case ws.Stopped():
				j.State = Stopped
			case ws.Continued():
				j.State = Running
			}
		}
	}
}

// MarkPIDCompleted records a status a caller already reaped (typically via
// a blocking wait in the foreground path) without re-calling waitpid.
func (m *Manager) MarkPIDCompleted(pid int, ws unix.WaitStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		for _, p := range j.PIDs {
			if p != pid {
				continue
			}
			switch {
			case ws.Exited():
				j.State = Done
				j.ExitStatus = ws.ExitStatus()
			case ws.Signaled():
				j.State = Terminated
				j.ExitStatus = 128 + int(ws.Signal())
			case ws.Stopped():
				j.State = Stopped
			}
			return
		}
	}
}

// SetCurrent marks id as the %+ job, demoting the previous current job to
// %-.
func (m *Manager) SetCurrent(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCurrentPrevious(id)
}

func (m *Manager) Current() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) Previous() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previous
}

// SetLastBackgroundPID records $! for the most recently started background
// pipeline's last process.
func (m *Manager) SetLastBackgroundPID(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBgPID = pid
}

func (m *Manager) LastBackgroundPID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBgPID
}

// CleanupFinished prints "[n] Done\t<cmd>" (or Terminated) once per job
// that has reached a terminal state and removes it. Jobs are visited in
// ascending ID order so notifications are deterministic.
func (m *Manager) CleanupFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var toRemove []int
	for _, id := range ids {
		j := m.jobs[id]
		if j.State != Done && j.State != Terminated {
			continue
		}
		if !j.Notified {
			label := "Done"
			if j.State == Terminated {
				label = "Terminated"
			}
			if m.notifyDest != nil {
				fmt.Fprintf(m.notifyDest, "\n[%d]  %s\t%s\n", j.ID, label, j.DisplayCommand())
			}
			j.Notified = true
		}
		toRemove = append(toRemove, id)
	}
	for _, id := range toRemove {
		m.removeJobLocked(id)
	}
}

// ClearAll discards every tracked job without notification, used when
// tearing the shell down.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = make(map[int]*Job)
	m.current, m.previous = -1, -1
}

// ForegroundReadsStdin reports whether the current foreground job is one
// that was marked as a stdin consumer (used to decide whether typeahead
// delivered to the terminal should be buffered for it).
func (m *Manager) ForegroundReadsStdin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == -1 {
		return false
	}
	j, ok := m.jobs[m.current]
	return ok && j.ReadsStdin
}
