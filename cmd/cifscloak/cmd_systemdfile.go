package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
)

func newSystemdFileCommand(run runFunc) *cobra.Command {
	var s app.SystemdFile

	cmd := &cobra.Command{
		Use:   "systemdfile",
		Short: "Print a systemd unit that mounts shares at boot",
		Example: `  cifscloak systemdfile -n films music > /etc/systemd/system/cifs_films_music.service
  cifscloak systemdfile -a > /etc/systemd/system/cifscloak.service`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return errors.Wrap(err, "locate cifscloak executable")
			}
			s.Executable = exe
			s.Names = append(s.Names, args...)
			return run(cmd, s)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&s.Names, "names", "n", nil, "names of shares the unit mounts")
	f.BoolVarP(&s.All, "all", "a", false, "mount every share in the cifstab")
	cmd.MarkFlagsMutuallyExclusive("names", "all")
	cmd.MarkFlagsOneRequired("names", "all")
	return cmd
}
