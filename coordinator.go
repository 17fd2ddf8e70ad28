package namedsem

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Existence selects how Open treats a name that may or may not exist.
type Existence int

const (
	// CreateExclusive creates a new semaphore and fails with
	// ErrAlreadyExists if the name is taken.
	CreateExclusive Existence = iota

	// OpenOrCreate opens the semaphore if it exists, ignoring the initial
	// value, and creates it otherwise.
	OpenOrCreate

	// MustExist opens the semaphore and fails with ErrNotFound if the
	// name does not exist.
	MustExist

	// Recreate unlinks any existing semaphore of that name and creates a
	// fresh one. Processes still holding the old object keep using it.
	Recreate
)

func (e Existence) String() string {
	switch e {
	case CreateExclusive:
		return "create-exclusive"
	case OpenOrCreate:
		return "open-or-create"
	case MustExist:
		return "must-exist"
	case Recreate:
		return "recreate"
	}
	return "existence(" + strconv.Itoa(int(e)) + ")"
}

// Coordinator is the entry point for named semaphores. It validates names,
// talks to the OS, and keeps the process-local reference counts that decide
// whether CleanupOnExit may unlink a name.
//
// Reference counts are process-local. A Coordinator cannot know whether other
// processes still use a name, so CleanupOnExit is a courtesy and not a
// guarantee that the kernel object goes away, nor that it is safe to remove.
//
// Coordinator is safe for concurrent use.
type Coordinator struct {
	drv          driver
	reg          *Registry
	logger       *log.Logger
	perm         os.FileMode
	pollInterval time.Duration

	// created holds names this coordinator created and has not unlinked.
	created mapset.Set[string]
}

// NewCoordinator returns a coordinator backed by the OS semaphore calls and
// the process-wide registry.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		drv:          defaultDriver,
		reg:          processRegistry,
		logger:       log.Default(),
		perm:         DefaultPermissions,
		pollInterval: DefaultPollInterval,
		created:      mapset.NewSet[string](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the coordinator counts handles in.
func (c *Coordinator) Registry() *Registry {
	return c.reg
}

// GetOrCreate opens raw, creating it with initial as its count if it does not
// exist. With exclusive set, an existing name fails with ErrAlreadyExists.
// On failure nothing is registered.
func (c *Coordinator) GetOrCreate(raw string, initial int, exclusive bool) (*Handle, error) {
	existence := OpenOrCreate
	if exclusive {
		existence = CreateExclusive
	}
	return c.Open(raw, existence, initial)
}

// OpenExisting opens raw, failing with ErrNotFound if it does not exist.
func (c *Coordinator) OpenExisting(raw string) (*Handle, error) {
	return c.Open(raw, MustExist, 0)
}

// Open validates raw, obtains a descriptor according to existence, and
// registers the new handle. initial is ignored for MustExist and when an
// existing object is opened.
func (c *Coordinator) Open(raw string, existence Existence, initial int) (*Handle, error) {
	name, err := NormalizeName(raw)
	if err != nil {
		return nil, err
	}
	if existence != MustExist && (initial < 0 || initial > MaxValue) {
		return nil, newError("create", name.value, KindInvalidValue,
			"initial value %d outside [0, %d]", initial, MaxValue)
	}

	var (
		sem     sysSemaphore
		created bool
		op      = "create"
	)
	switch existence {
	case CreateExclusive, OpenOrCreate:
		sem, created, err = c.drv.create(name.value, c.perm, uint32(initial), existence == CreateExclusive)
	case MustExist:
		op = "open"
		sem, err = c.drv.open(name.value)
	case Recreate:
		if uerr := mapErrno("unlink", name.value, c.drv.unlink(name.value)); uerr != nil && !errors.Is(uerr, ErrNotFound) {
			return nil, uerr
		}
		sem, created, err = c.drv.create(name.value, c.perm, uint32(initial), true)
	default:
		return nil, newError("open", name.value, KindInvalidValue, "unknown existence policy %v", existence)
	}
	if err != nil {
		return nil, mapErrno(op, name.value, err)
	}

	h := &Handle{
		name:         name,
		sem:          sem,
		created:      created,
		registry:     c.reg,
		logger:       c.logger,
		pollInterval: c.pollInterval,
	}
	if created {
		h.initial = initial
		c.created.Add(name.value)
	}
	h.slot = c.reg.Acquire(name, h)
	return h, nil
}

// Close closes h and releases its registry slot. It never unlinks.
func (c *Coordinator) Close(h *Handle) error {
	if h == nil {
		return newError("close", "", KindInvalidValue, "nil handle")
	}
	return h.Close()
}

// Unlink removes raw from the system namespace. Handles already open, here or
// in other processes, keep working until closed. Unlinking a name that does
// not exist fails with ErrNotFound.
func (c *Coordinator) Unlink(raw string) error {
	name, err := NormalizeName(raw)
	if err != nil {
		return err
	}
	if err := mapErrno("unlink", name.value, c.drv.unlink(name.value)); err != nil {
		return err
	}
	c.created.Remove(name.value)
	return nil
}

// CleanupHandle closes h and unlinks its name if no other handle in this
// process still has it open. It reports whether the name was unlinked. A
// name already unlinked by someone else is not an error.
func (c *Coordinator) CleanupHandle(h *Handle) (bool, error) {
	if h == nil {
		return false, newError("cleanup", "", KindInvalidValue, "nil handle")
	}
	remaining, err := h.close()
	if err != nil {
		return false, err
	}
	if remaining > 0 {
		return false, nil
	}
	return c.unlinkIfPresent(h.name)
}

// CleanupOnExit closes every handle this process has open on raw and then
// unlinks raw if the local count reached zero. It reports whether the name was
// unlinked. Handles in other processes are not considered; see Coordinator.
func (c *Coordinator) CleanupOnExit(raw string) (bool, error) {
	name, err := NormalizeName(raw)
	if err != nil {
		return false, err
	}

	var firstErr error
	for _, holder := range c.reg.Holders(name) {
		err := holder.Close()
		if err == nil || errors.Is(err, ErrAlreadyClosed) {
			continue
		}
		if firstErr == nil {
			firstErr = err
		} else {
			c.logger.Printf("namedsem: cleanup of %s: %v", name, err)
		}
	}
	if firstErr != nil {
		return false, firstErr
	}
	if c.reg.Count(name) > 0 {
		return false, nil
	}
	return c.unlinkIfPresent(name)
}

func (c *Coordinator) unlinkIfPresent(name Name) (bool, error) {
	err := c.Unlink(name.value)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		c.created.Remove(name.value)
		return false, nil
	default:
		return false, err
	}
}

var defaultCoordinator = NewCoordinator()

// Default returns the coordinator used by the package-level functions.
func Default() *Coordinator {
	return defaultCoordinator
}

// GetOrCreate calls GetOrCreate on the default coordinator.
func GetOrCreate(raw string, initial int, exclusive bool) (*Handle, error) {
	return defaultCoordinator.GetOrCreate(raw, initial, exclusive)
}

// OpenExisting calls OpenExisting on the default coordinator.
func OpenExisting(raw string) (*Handle, error) {
	return defaultCoordinator.OpenExisting(raw)
}

// Unlink calls Unlink on the default coordinator.
func Unlink(raw string) error {
	return defaultCoordinator.Unlink(raw)
}

// CleanupOnExit calls CleanupOnExit on the default coordinator.
func CleanupOnExit(raw string) (bool, error) {
	return defaultCoordinator.CleanupOnExit(raw)
}
