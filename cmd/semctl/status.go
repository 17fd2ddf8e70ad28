package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/richinsley/namedsem"
)

var (
	statusFormat string

	statusCmd = &cobra.Command{
		Use:   "status NAME...",
		Short: "Show the current count of existing semaphores",
		Long: `Show the current count of existing semaphores.

--format msgpack writes a length-prefixed MessagePack snapshot to stdout for
other programs to decode with namedsem.DecodeSnapshot.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "text", "output format: text or msgpack")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusFormat != "text" && statusFormat != "msgpack" {
		return fmt.Errorf("unknown format %q", statusFormat)
	}

	var (
		present []string
		missing []string
	)
	for _, name := range args {
		h, err := coordinator.OpenExisting(name)
		if err != nil {
			if namedsem.KindOf(err) != namedsem.KindNotFound {
				return err
			}
			missing = append(missing, name)
			continue
		}
		defer h.Close()
		present = append(present, h.Name().String())
	}

	snap, err := coordinator.Snapshot(present...)
	if err != nil {
		return err
	}
	if statusFormat == "msgpack" {
		return snap.Encode(cmd.OutOrStdout(), namedsem.MsgpackSerializer{})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVALUE")
	for _, e := range snap.Entries {
		value := fmt.Sprint(e.Value)
		if e.Value < 0 {
			value = "unknown"
		}
		fmt.Fprintf(w, "%s\t%s\n", e.Name, value)
	}
	for _, name := range missing {
		fmt.Fprintf(w, "%s\t%s\n", name, color.RedString("missing"))
	}
	return w.Flush()
}
