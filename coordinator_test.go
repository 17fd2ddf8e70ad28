//go:build unix

package namedsem

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrCreateRoundTrip(t *testing.T) {
	c, _ := newTestCoordinator(t)
	for _, name := range []string{"/a", "b", "/job-queue_1"} {
		h, err := c.GetOrCreate(name, 1, true)
		if err != nil {
			t.Fatalf("GetOrCreate(%q) failed: %v", name, err)
		}
		if err := c.Close(h); err != nil {
			t.Fatalf("Close(%q) failed: %v", name, err)
		}
		h, err = c.GetOrCreate(name, 1, false)
		if err != nil {
			t.Fatalf("GetOrCreate(%q) after close failed: %v", name, err)
		}
		c.Close(h)
		if n := c.Registry().Count(h.Name()); n != 0 {
			t.Errorf("registry still counts %d for %q", n, name)
		}
	}
}

func TestGetOrCreateExclusive(t *testing.T) {
	c, _ := newTestCoordinator(t)
	h := mustOpen(t, c, "/excl", 1)
	defer h.Close()

	if _, err := c.GetOrCreate("/excl", 1, true); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("exclusive create of existing name = %v, want ErrAlreadyExists", err)
	}
	if n := c.Registry().Count(h.Name()); n != 1 {
		t.Errorf("failed create left registry count %d, want 1", n)
	}
}

func TestGetOrCreateRejectsBadInput(t *testing.T) {
	c, drv := newTestCoordinator(t)

	if _, err := c.GetOrCreate("bad name", 1, false); !errors.Is(err, ErrInvalidName) {
		t.Errorf("bad name = %v, want ErrInvalidName", err)
	}
	if _, err := c.GetOrCreate("/neg", -1, false); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("negative value = %v, want ErrInvalidValue", err)
	}
	if _, err := c.GetOrCreate("/big", MaxValue+1, false); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("value above MaxValue = %v, want ErrInvalidValue", err)
	}
	if drv.exists("/neg") || drv.exists("/big") {
		t.Error("rejected create reached the kernel")
	}
	if names := c.Registry().Names(); len(names) != 0 {
		t.Errorf("rejected creates left registrations: %v", names)
	}
}

func TestOpenExisting(t *testing.T) {
	c, _ := newTestCoordinator(t)

	if _, err := c.OpenExisting("/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("OpenExisting of missing name = %v, want ErrNotFound", err)
	}
	creator := mustOpen(t, c, "/present", 2)
	defer creator.Close()

	h, err := c.OpenExisting("present")
	if err != nil {
		t.Fatalf("OpenExisting failed: %v", err)
	}
	defer h.Close()
	if h.Created() {
		t.Error("OpenExisting reports Created")
	}
	if v, _ := h.Value(); v != 2 {
		t.Errorf("opened handle sees value %d, want 2", v)
	}
}

func TestOpenMustExist(t *testing.T) {
	c, _ := newTestCoordinator(t)

	// the initial value is not range-checked when nothing is created
	if _, err := c.Open("/absent", MustExist, -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open(MustExist) of missing name = %v, want ErrNotFound", err)
	}
	creator := mustOpen(t, c, "/there", 1)
	defer creator.Close()

	h, err := c.Open("/there", MustExist, 0)
	if err != nil {
		t.Fatalf("Open(MustExist) failed: %v", err)
	}
	defer h.Close()
	if h.Created() {
		t.Error("Open(MustExist) reports Created")
	}
}

func TestExistenceString(t *testing.T) {
	tests := map[Existence]string{
		CreateExclusive: "create-exclusive",
		OpenOrCreate:    "open-or-create",
		MustExist:       "must-exist",
		Recreate:        "recreate",
		Existence(9):    "existence(9)",
	}
	for e, want := range tests {
		if got := e.String(); got != want {
			t.Errorf("Existence(%d).String() = %q, want %q", int(e), got, want)
		}
	}
}

func TestOpenRecreate(t *testing.T) {
	c, drv := newTestCoordinator(t)
	old := mustOpen(t, c, "/re", 5)
	defer old.Close()

	h, err := c.Open("/re", Recreate, 1)
	if err != nil {
		t.Fatalf("Recreate failed: %v", err)
	}
	defer h.Close()
	if !h.Created() {
		t.Error("Recreate did not create")
	}
	if v, _ := h.Value(); v != 1 {
		t.Errorf("recreated value = %d, want 1", v)
	}
	if v, _ := old.Value(); v != 5 {
		t.Errorf("old descriptor sees %d, want its own object's 5", v)
	}
	if drv.unlinks.Load() != 1 {
		t.Errorf("Recreate unlinked %d times, want 1", drv.unlinks.Load())
	}

	fresh, err := c.Open("/re-fresh", Recreate, 0)
	if err != nil {
		t.Fatalf("Recreate of a new name failed: %v", err)
	}
	fresh.Close()

	if _, err := c.Open("/x", Existence(42), 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("unknown policy = %v, want ErrInvalidValue", err)
	}
}

func TestUnlink(t *testing.T) {
	c, drv := newTestCoordinator(t)

	if err := c.Unlink("/nothing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Unlink of missing name = %v, want ErrNotFound", err)
	}

	h := mustOpen(t, c, "/gone", 1)
	if err := c.Unlink("/gone"); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}
	if drv.exists("/gone") {
		t.Fatal("name still present after Unlink")
	}
	// the open descriptor keeps working
	if err := h.TryAcquire(); err != nil {
		t.Errorf("descriptor unusable after unlink: %v", err)
	}
	h.Close()

	h, err := c.GetOrCreate("/gone", 1, true)
	if err != nil {
		t.Fatalf("exclusive create after unlink failed: %v", err)
	}
	h.Close()
}

func TestCleanupHandle(t *testing.T) {
	c, drv := newTestCoordinator(t)
	a := mustOpen(t, c, "/shared", 1)
	b := mustOpen(t, c, "/shared", 1)

	unlinked, err := c.CleanupHandle(a)
	if err != nil || unlinked {
		t.Fatalf("CleanupHandle with another local holder = %v, %v; want false, nil", unlinked, err)
	}
	if !drv.exists("/shared") {
		t.Fatal("name unlinked while a local handle was open")
	}

	unlinked, err = c.CleanupHandle(b)
	if err != nil || !unlinked {
		t.Fatalf("CleanupHandle of last holder = %v, %v; want true, nil", unlinked, err)
	}
	if drv.exists("/shared") {
		t.Error("name survived cleanup of the last holder")
	}

	if _, err := c.CleanupHandle(b); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("second CleanupHandle = %v, want ErrAlreadyClosed", err)
	}
}

func TestCleanupHandleToleratesMissingName(t *testing.T) {
	c, _ := newTestCoordinator(t)
	h := mustOpen(t, c, "/early", 1)
	if err := c.Unlink("/early"); err != nil {
		t.Fatal(err)
	}
	unlinked, err := c.CleanupHandle(h)
	if err != nil || unlinked {
		t.Errorf("CleanupHandle after external unlink = %v, %v; want false, nil", unlinked, err)
	}
}

func TestCleanupOnExit(t *testing.T) {
	c, drv := newTestCoordinator(t)
	handles := []*Handle{
		mustOpen(t, c, "/exit", 2),
		mustOpen(t, c, "/exit", 2),
		mustOpen(t, c, "/exit", 2),
	}
	handles[1].Close()

	unlinked, err := c.CleanupOnExit("exit")
	if err != nil || !unlinked {
		t.Fatalf("CleanupOnExit = %v, %v; want true, nil", unlinked, err)
	}
	for i, h := range handles {
		if !h.Closed() {
			t.Errorf("handle %d left open", i)
		}
	}
	if drv.exists("/exit") {
		t.Error("name survived CleanupOnExit")
	}

	unlinked, err = c.CleanupOnExit("/exit")
	if err != nil || unlinked {
		t.Errorf("CleanupOnExit of an absent name = %v, %v; want false, nil", unlinked, err)
	}
	if _, err := c.CleanupOnExit("no/pe"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("CleanupOnExit of invalid name = %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	c, _ := newTestCoordinator(t)
	if err := c.Close(nil); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Close(nil) = %v", err)
	}
	if _, err := c.CleanupHandle(nil); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("CleanupHandle(nil) = %v", err)
	}
}

// TestMutualExclusion runs wait/release pairs from many goroutines against an
// initial value of 1 and checks at most one is ever inside.
func TestMutualExclusion(t *testing.T) {
	c, _ := newTestCoordinator(t)
	owner := mustOpen(t, c, "/mutex", 1)
	defer owner.Close()

	var (
		inside  atomic.Int32
		entered atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := c.OpenExisting("/mutex")
			if err != nil {
				t.Errorf("OpenExisting failed: %v", err)
				return
			}
			defer h.Close()
			for j := 0; j < 100; j++ {
				if err := h.Acquire(); err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				if n := inside.Add(1); n != 1 {
					t.Errorf("%d goroutines inside the critical section", n)
				}
				entered.Add(1)
				inside.Add(-1)
				if err := h.Release(); err != nil {
					t.Errorf("Release failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := entered.Load(); n != 800 {
		t.Errorf("critical section entered %d times, want 800", n)
	}
}

// TestJobQueue creates a semaphore with three slots: three waiters pass at
// once, further waiters block, and each release admits exactly one.
func TestJobQueue(t *testing.T) {
	c, drv := newTestCoordinator(t)
	h, err := c.GetOrCreate("/jobqueue", 3, true)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.AcquireTimeout(time.Second); err != nil {
				t.Errorf("one of the first three waiters blocked: %v", err)
			}
		}()
	}
	wg.Wait()

	var passed atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.Acquire(); err != nil {
				t.Errorf("Acquire failed: %v", err)
			}
			passed.Add(1)
		}()
	}
	time.Sleep(30 * time.Millisecond)
	if n := passed.Load(); n != 0 {
		t.Fatalf("%d waiters passed a zero count", n)
	}

	h.Release()
	if !waitFor(t, time.Second, func() bool { return passed.Load() == 1 }) {
		t.Fatalf("one release admitted %d waiters, want 1", passed.Load())
	}
	time.Sleep(30 * time.Millisecond)
	if n := passed.Load(); n != 1 {
		t.Fatalf("one release admitted %d waiters, want 1", n)
	}

	h.Release()
	wg.Wait()
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Unlink("/jobqueue"); err != nil {
		t.Fatalf("final Unlink failed: %v", err)
	}
	if drv.exists("/jobqueue") {
		t.Error("jobqueue survived Unlink")
	}
}

func TestUnlinkCreated(t *testing.T) {
	c, drv := newTestCoordinator(t)
	mustOpen(t, c, "/mine-1", 0).Close()
	mustOpen(t, c, "/mine-2", 0).Close()

	// created elsewhere, merely opened here
	if _, _, err := drv.create("/theirs", 0600, 0, true); err != nil {
		t.Fatal(err)
	}
	h, err := c.OpenExisting("/theirs")
	if err != nil {
		t.Fatal(err)
	}
	h.Close()

	c.Unlink("/mine-2")
	if err := c.UnlinkCreated(); err != nil {
		t.Fatalf("UnlinkCreated failed: %v", err)
	}
	if drv.exists("/mine-1") {
		t.Error("created name survived UnlinkCreated")
	}
	if !drv.exists("/theirs") {
		t.Error("UnlinkCreated removed a name this coordinator did not create")
	}
}

func TestSnapshot(t *testing.T) {
	c, _ := newTestCoordinator(t)
	a := mustOpen(t, c, "/snap-a", 4)
	defer a.Close()
	b := mustOpen(t, c, "/snap-a", 4)
	defer b.Close()
	z := mustOpen(t, c, "/snap-z", 0)
	defer z.Close()

	snap, err := c.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want := []SnapshotEntry{
		{Name: "/snap-a", LocalRefs: 2, Created: true, Value: 4},
		{Name: "/snap-z", LocalRefs: 1, Created: true, Value: 0},
	}
	if len(snap.Entries) != len(want) {
		t.Fatalf("snapshot has %d entries, want %d", len(snap.Entries), len(want))
	}
	for i := range want {
		if snap.Entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, snap.Entries[i], want[i])
		}
	}

	var buf bytes.Buffer
	if err := snap.Encode(&buf, MsgpackSerializer{}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := DecodeSnapshot(&buf, MsgpackSerializer{})
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}
	if got.PID != snap.PID || len(got.Entries) != 2 || got.Entries[0] != want[0] {
		t.Errorf("decoded snapshot %+v differs from %+v", got, snap)
	}

	named, err := c.Snapshot("/absent")
	if err != nil {
		t.Fatal(err)
	}
	if e := named.Entries[0]; e.LocalRefs != 0 || e.Value != -1 {
		t.Errorf("entry for an unheld name = %+v", e)
	}
	if _, err := c.Snapshot("bad name"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Snapshot of invalid name = %v", err)
	}
}

func TestSnapshotCodecErrors(t *testing.T) {
	if _, err := DecodeSnapshot(bytes.NewReader(nil), MsgpackSerializer{}); !errors.Is(err, ErrResourceLimit) {
		t.Errorf("DecodeSnapshot of empty stream = %v, want ErrResourceLimit", err)
	}

	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte{0xc1}); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeSnapshot(&buf, MsgpackSerializer{}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("DecodeSnapshot of garbage = %v, want ErrInvalidValue", err)
	}

	if err := (Snapshot{}).Encode(failingWriter{}, MsgpackSerializer{}); !errors.Is(err, ErrResourceLimit) {
		t.Errorf("Encode to a failing writer = %v, want ErrResourceLimit", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestDecodeSnapshotRejectsHugeFrame(t *testing.T) {
	buf := bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := DecodeSnapshot(buf, MsgpackSerializer{}); !errors.Is(err, ErrResourceLimit) {
		t.Errorf("DecodeSnapshot of oversized frame = %v", err)
	}
}
