package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	waitTimeout time.Duration
	postCount   int

	waitCmd = &cobra.Command{
		Use:   "wait NAME",
		Short: "Decrement a semaphore, blocking while its count is zero",
		Long: `Decrement a semaphore, blocking while its count is zero.

With --timeout the wait gives up after the duration; --timeout 0 never blocks.
Exits with status 2 when the count could not be taken in time.`,
		Args: cobra.ExactArgs(1),
		RunE: runWait,
	}

	postCmd = &cobra.Command{
		Use:   "post NAME",
		Short: "Increment a semaphore",
		Args:  cobra.ExactArgs(1),
		RunE:  runPost,
	}
)

func init() {
	waitCmd.Flags().DurationVarP(&waitTimeout, "timeout", "t", 0, "give up after this long (0 means try once)")
	postCmd.Flags().IntVarP(&postCount, "count", "n", 1, "number of counts to release")

	rootCmd.AddCommand(waitCmd, postCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	h, err := coordinator.OpenExisting(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	if cmd.Flags().Changed("timeout") {
		err = h.AcquireTimeout(waitTimeout)
	} else {
		err = h.AcquireContext(cmd.Context())
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("acquired"), h.Name())
	return nil
}

func runPost(cmd *cobra.Command, args []string) error {
	h, err := coordinator.OpenExisting(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.ReleaseN(postCount); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s x%d\n", color.GreenString("posted"), h.Name(), postCount)
	return nil
}
