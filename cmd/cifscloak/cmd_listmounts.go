package main

import (
	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
)

func newListMountsCommand(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "listmounts",
		Short: "List cifstab entries as JSON (passwords are never shown)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app.ListMounts{})
		},
	}
}
