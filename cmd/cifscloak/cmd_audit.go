package main

import (
	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
)

func newAuditCommand(run runFunc) *cobra.Command {
	var a app.Audit

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent cifstab access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, a)
		},
	}
	cmd.Flags().IntVarP(&a.Limit, "limit", "l", 20, "number of entries to show")
	return cmd
}
