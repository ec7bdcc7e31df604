package main

import (
	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
)

func newStatusCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the cifstab lives and whether its key matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app.Status{})
		},
	}
}
