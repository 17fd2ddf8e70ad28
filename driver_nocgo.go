//go:build !cgo || !(linux || darwin || freebsd || netbsd || openbsd)

package namedsem

import (
	"errors"
	"math"
	"os"
)

// ErrSemaphoresNotAvailable is the cause reported when named semaphores are
// used in a build without CGO or on a platform without POSIX semaphores.
var ErrSemaphoresNotAvailable = errors.New("named semaphores require CGO on this platform; rebuild with CGO_ENABLED=1")

// MaxValue is the largest count a semaphore may hold.
var MaxValue = math.MaxInt32

const driverSupported = false

var defaultDriver driver = unavailableDriver{}

// unavailableDriver fails every call with ErrSemaphoresNotAvailable.
type unavailableDriver struct{}

func (unavailableDriver) create(name string, perm os.FileMode, value uint32, exclusive bool) (sysSemaphore, bool, error) {
	return nil, false, ErrSemaphoresNotAvailable
}

func (unavailableDriver) open(name string) (sysSemaphore, error) {
	return nil, ErrSemaphoresNotAvailable
}

func (unavailableDriver) unlink(name string) error {
	return ErrSemaphoresNotAvailable
}
