package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/isyarat/internal/gesture"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Print the label table used by the classifier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, err := gesture.LoadLabels(cfg.LabelsPath)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tLABEL")
		for i, name := range labels.Names() {
			fmt.Fprintf(w, "%d\t%s\n", i, name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)
}
