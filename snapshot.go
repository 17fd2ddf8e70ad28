package namedsem

import (
	"errors"
	"io"
	"os"
	"time"
)

// Snapshot is a point-in-time view of the semaphores a process holds, meant
// for diagnostics and for peers that cannot query this process's registry.
type Snapshot struct {
	PID     int             `msgpack:"pid" json:"pid"`
	Taken   time.Time       `msgpack:"taken" json:"taken"`
	Entries []SnapshotEntry `msgpack:"entries" json:"entries"`
}

// SnapshotEntry describes one name.
type SnapshotEntry struct {
	// Name is the canonical semaphore name.
	Name string `msgpack:"name" json:"name"`

	// LocalRefs is the number of handles this process has open on Name.
	LocalRefs int `msgpack:"local_refs" json:"local_refs"`

	// Created is true when the coordinator created Name and has not
	// unlinked it since.
	Created bool `msgpack:"created" json:"created"`

	// Value is the current count, or -1 when no local handle is open or the
	// platform cannot report it.
	Value int `msgpack:"value" json:"value"`
}

// Snapshot describes the given names, or every name with a local holder when
// none are given.
func (c *Coordinator) Snapshot(raw ...string) (Snapshot, error) {
	var names []Name
	if len(raw) == 0 {
		names = c.reg.Names()
	} else {
		names = make([]Name, 0, len(raw))
		for _, r := range raw {
			n, err := NormalizeName(r)
			if err != nil {
				return Snapshot{}, err
			}
			names = append(names, n)
		}
	}

	snap := Snapshot{
		PID:     os.Getpid(),
		Taken:   time.Now(),
		Entries: make([]SnapshotEntry, 0, len(names)),
	}
	for _, n := range names {
		entry := SnapshotEntry{
			Name:      n.value,
			LocalRefs: c.reg.Count(n),
			Created:   c.created.Contains(n.value),
			Value:     -1,
		}
		for _, holder := range c.reg.Holders(n) {
			h, ok := holder.(*Handle)
			if !ok {
				continue
			}
			if v, err := h.Value(); err == nil {
				entry.Value = v
				break
			}
		}
		snap.Entries = append(snap.Entries, entry)
	}
	return snap, nil
}

// Encode writes s to w as one length-prefixed frame encoded by ser. Encoding
// failures are reported as ErrInvalidValue and write failures as
// ErrResourceLimit, with the cause in Detail.
func (s Snapshot) Encode(w io.Writer, ser Serializer) error {
	data, err := ser.Marshal(s)
	if err != nil {
		return newError("encode", "", KindInvalidValue, "%v", err)
	}
	return frameError("encode", writeFrame(w, data))
}

// DecodeSnapshot reads one frame written by Snapshot.Encode. A short or
// failed read, including io.EOF, is ErrResourceLimit; a frame that does not
// decode is ErrInvalidValue.
func DecodeSnapshot(r io.Reader, ser Serializer) (Snapshot, error) {
	data, err := readFrame(r)
	if err != nil {
		return Snapshot{}, frameError("decode", err)
	}
	var s Snapshot
	if err := ser.Unmarshal(data, &s); err != nil {
		return Snapshot{}, newError("decode", "", KindInvalidValue, "%v", err)
	}
	return s, nil
}

// frameError passes *Error through and reports any other I/O failure as a
// resource limit.
func frameError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(op, "", KindResourceLimit, "%v", err)
}
