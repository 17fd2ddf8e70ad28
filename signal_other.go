//go:build !unix

package namedsem

import (
	"os"
	"os/signal"
)

// setSignalsForChannel configures the channel to receive os.Interrupt, the
// only portable termination signal.
func setSignalsForChannel(c chan os.Signal) {
	signal.Notify(c, os.Interrupt)
}
