package main

import (
	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
)

func newRemoveMountsCommand(run runFunc) *cobra.Command {
	var names []string

	cmd := &cobra.Command{
		Use:     "removemounts",
		Short:   "Remove cifs shares from the cifstab",
		Example: "  cifscloak removemounts -n films music",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app.RemoveMounts{Names: append(names, args...)})
		},
	}

	cmd.Flags().StringSliceVarP(&names, "names", "n", nil, "names to remove")
	_ = cmd.MarkFlagRequired("names")
	return cmd
}
