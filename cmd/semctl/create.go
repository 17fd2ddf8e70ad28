package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/richinsley/namedsem"
)

var (
	createValue     int
	createExclusive bool
	createRecreate  bool

	createCmd = &cobra.Command{
		Use:   "create NAME",
		Short: "Create a semaphore, or open it if it already exists",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate,
	}

	unlinkCmd = &cobra.Command{
		Use:   "unlink NAME...",
		Short: "Remove semaphore names",
		Long: `Remove semaphore names. Processes that already have a name open keep
using it until they close it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUnlink,
	}
)

func init() {
	createCmd.Flags().IntVarP(&createValue, "value", "v", namedsem.DefaultInitialValue, "initial count when the semaphore is created")
	createCmd.Flags().BoolVarP(&createExclusive, "exclusive", "x", false, "fail if the name already exists")
	createCmd.Flags().BoolVar(&createRecreate, "recreate", false, "unlink any existing semaphore first")
	createCmd.MarkFlagsMutuallyExclusive("exclusive", "recreate")

	rootCmd.AddCommand(createCmd, unlinkCmd)
}

func createPolicy() namedsem.Existence {
	switch {
	case createExclusive:
		return namedsem.CreateExclusive
	case createRecreate:
		return namedsem.Recreate
	}
	return namedsem.OpenOrCreate
}

func runCreate(cmd *cobra.Command, args []string) error {
	h, err := coordinator.Open(args[0], createPolicy(), createValue)
	if err != nil {
		return err
	}
	defer h.Close()

	if h.Created() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s with value %d\n", color.GreenString("created"), h.Name(), h.InitialValue())
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.YellowString("opened existing"), h.Name())
	return nil
}

func runUnlink(cmd *cobra.Command, args []string) error {
	var firstErr error
	for _, name := range args {
		if err := coordinator.Unlink(name); err != nil {
			logger.Printf("unlink %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("unlinked"), name)
	}
	return firstErr
}
