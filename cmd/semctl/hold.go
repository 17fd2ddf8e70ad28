package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/richinsley/namedsem"
)

var (
	holdTimeout time.Duration
	holdCreate  bool
	holdValue   int
	holdCleanup bool

	holdCmd = &cobra.Command{
		Use:   "hold NAME -- COMMAND [ARG...]",
		Short: "Run a command while holding one count of a semaphore",
		Long: `Run a command while holding one count of a semaphore.

The count is released when the command exits, when --timeout passes (the
command is killed), or when semctl is interrupted. With --create the semaphore
is created if needed and unlinked again if semctl receives SIGINT, SIGTERM or
SIGHUP. A signal kills the command and releases the count before semctl exits
with status 128+signal.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runHold,
	}
)

func init() {
	holdCmd.Flags().DurationVarP(&holdTimeout, "timeout", "t", 0, "kill the command and release after this long")
	holdCmd.Flags().BoolVar(&holdCreate, "create", false, "create the semaphore if it does not exist")
	holdCmd.Flags().IntVarP(&holdValue, "value", "v", namedsem.DefaultInitialValue, "initial count used with --create")
	holdCmd.Flags().BoolVar(&holdCleanup, "cleanup", false, "unlink the semaphore afterwards if no other local handle is open")

	rootCmd.AddCommand(holdCmd)
}

// holdOptions are the flags of the hold command.
type holdOptions struct {
	timeout time.Duration
	create  bool
	value   int
	cleanup bool
}

func runHold(cmd *cobra.Command, args []string) error {
	opts := holdOptions{
		timeout: holdTimeout,
		create:  holdCreate,
		value:   holdValue,
		cleanup: holdCleanup,
	}
	return hold(cmd.Context(), coordinator, args[0], args[1:], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// hold runs command under one count of name. A handled signal cancels the
// command instead of exiting, so the count is released and the deferred
// close or cleanup runs before hold returns an exitError of 128+signal.
func hold(ctx context.Context, c *namedsem.Coordinator, name string, command []string, opts holdOptions, stdout, stderr io.Writer) error {
	var (
		h   *namedsem.Handle
		err error
	)
	if opts.create {
		h, err = c.GetOrCreate(name, opts.value, false)
	} else {
		h, err = c.OpenExisting(name)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	caught := make(chan os.Signal, 1)
	stop := c.HandleSignals(func(sig os.Signal) {
		caught <- sig
		cancel()
	})
	defer stop()

	defer func() {
		if opts.cleanup {
			if _, err := c.CleanupOnExit(name); err != nil {
				logger.Printf("cleanup %s: %v", name, err)
			}
			return
		}
		h.Close()
	}()

	runCtx := ctx
	if opts.timeout > 0 {
		var cancelRun context.CancelFunc
		runCtx, cancelRun = context.WithTimeout(ctx, opts.timeout)
		defer cancelRun()
	}

	err = h.Do(runCtx, func(ctx context.Context) error {
		logger.Printf("holding %s, running %s", h.Name(), command[0])
		child := exec.CommandContext(ctx, command[0], command[1:]...)
		child.Stdin = os.Stdin
		child.Stdout = stdout
		child.Stderr = stderr

		err := child.Run()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			return &exitError{code: exitErr.ExitCode(), err: err}
		}
		return err
	})

	select {
	case sig := <-caught:
		return &exitError{code: signalExitCode(sig), err: fmt.Errorf("%s released after %v", h.Name(), sig)}
	default:
	}
	return err
}

func signalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
