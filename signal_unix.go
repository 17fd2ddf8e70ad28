//go:build unix

package namedsem

import (
	"os"
	"os/signal"
	"syscall"
)

// setSignalsForChannel configures the channel to receive SIGINT, SIGTERM and
// SIGHUP.
func setSignalsForChannel(c chan os.Signal) {
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
}
