package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/richinsley/namedsem"
)

var (
	// coordinator is built from flags and environment before any command runs.
	coordinator *namedsem.Coordinator
	logger      = log.New(os.Stderr, "semctl: ", 0)

	errorColour = color.New(color.FgRed, color.Bold).SprintFunc()

	rootCmd = &cobra.Command{
		Use:   "semctl",
		Short: "Manage POSIX named semaphores",
		Long: `semctl manages POSIX named semaphores.

Names may be given with or without the leading "/". Every flag can also be set
through an environment variable prefixed with SEMCTL_, e.g. SEMCTL_MODE=0660.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command and exits with a status derived from the
// error kind: 2 for timeouts and would-block, 3 for missing names, 1 otherwise.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorColour("error:"), err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var exit *exitError
	switch {
	case errors.As(err, &exit):
		return exit.code
	case errors.Is(err, namedsem.ErrTimeout), errors.Is(err, namedsem.ErrWouldBlock):
		return 2
	case errors.Is(err, namedsem.ErrNotFound):
		return 3
	}
	return 1
}

// exitError carries a specific exit status, such as a held command's.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentPreRunE = rootPersistentPreRunE

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "0600", "octal permission bits for created semaphores")
	flags.Bool("quiet", false, "suppress log output")
	flags.Bool("no-colour", false, "disable colour output")
	for _, name := range []string{"mode", "quiet", "no-colour"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads settings from SEMCTL_* environment variables.
func initConfig() {
	viper.SetEnvPrefix("semctl")
	viper.SetEnvKeyReplacer(newEnvReplacer())
	viper.AutomaticEnv()
}

func rootPersistentPreRunE(cmd *cobra.Command, args []string) error {
	mode, err := strconv.ParseUint(viper.GetString("mode"), 8, 32)
	if err != nil {
		return fmt.Errorf("invalid mode %q: %w", viper.GetString("mode"), err)
	}
	if viper.GetBool("quiet") {
		logger.SetOutput(io.Discard)
	}
	if viper.GetBool("no-colour") {
		color.NoColor = true
	}

	coordinator = namedsem.NewCoordinator(
		namedsem.WithPermissions(os.FileMode(mode)),
		namedsem.WithLogger(logger),
	)
	return nil
}
