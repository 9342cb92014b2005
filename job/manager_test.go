package job

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/sys/unix"
)

func TestManagerCurrentPrevious(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	m := NewManager(nil)
	id1 := m.AddJob(100, []int{100}, "sleep 1", true, false)
	c.Assert(m.Current(), qt.Equals, id1)
	c.Assert(m.Previous(), qt.Equals, -1)

	id2 := m.AddJob(200, []int{200}, "sleep 2", true, false)
	c.Assert(m.Current(), qt.Equals, id2)
	c.Assert(m.Previous(), qt.Equals, id1)

	m.RemoveJob(id2)
	c.Assert(m.Current(), qt.Equals, id1)
	c.Assert(m.Previous(), qt.Equals, -1)
}

func TestManagerGetLookups(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	m := NewManager(nil)
	id := m.AddJob(300, []int{300, 301}, "a | b", true, false)

	c.Assert(m.Get(id).PGID, qt.Equals, 300)
	c.Assert(m.GetByPGID(300).ID, qt.Equals, id)
	c.Assert(m.GetByPID(301).ID, qt.Equals, id)
	c.Assert(m.GetByPID(9999), qt.IsNil)
}

func TestManagerMarkPIDCompletedTransitions(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	m := NewManager(nil)
	id := m.AddJob(400, []int{400}, "sleep 5", true, false)

	// unix.WaitStatus is encoded from raw wait(2) status words; construct
	// one that ws.Stopped() reports true for (WIFSTOPPED pattern: low byte
	// 0x7f, stop signal in the next byte).
	stopped := unix.WaitStatus(0x7f | (int(unix.SIGTSTP) << 8))
	c.Assert(stopped.Stopped(), qt.IsTrue)
	m.MarkPIDCompleted(400, stopped)
	c.Assert(m.Get(id).State, qt.Equals, Stopped)

	exited := unix.WaitStatus(0) // WIFEXITED with status 0
	c.Assert(exited.Exited(), qt.IsTrue)
	m.MarkPIDCompleted(400, exited)
	c.Assert(m.Get(id).State, qt.Equals, Done)
	c.Assert(m.Get(id).ExitStatus, qt.Equals, 0)
}

func TestManagerCleanupFinishedNotifiesOnce(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	var buf bytes.Buffer
	m := NewManager(&buf)
	id := m.AddJob(500, []int{500}, "sleep 5", true, false)
	m.MarkPIDCompleted(500, unix.WaitStatus(0))

	m.CleanupFinished()
	c.Assert(buf.String(), qt.Contains, "Done")
	c.Assert(m.Get(id), qt.IsNil)

	// A second pass must not re-notify: the job is already gone.
	before := buf.String()
	m.CleanupFinished()
	c.Assert(buf.String(), qt.Equals, before)
}

func TestJobDisplayCommand(t *testing.T) {
	t.Parallel()
	c := qt.New(t)

	j := &Job{Command: "sleep 5"}
	c.Assert(j.DisplayCommand(), qt.Equals, "sleep 5")
	c.Assert(j.HasCustomName(), qt.IsFalse)

	j.SetCustomName("mybg")
	c.Assert(j.DisplayCommand(), qt.Equals, "mybg")
	c.Assert(j.HasCustomName(), qt.IsTrue)

	j.ClearCustomName()
	c.Assert(j.DisplayCommand(), qt.Equals, "sleep 5")
}
