package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
)

func newMountCommand(run runFunc) *cobra.Command {
	var m app.Mount

	cmd := &cobra.Command{
		Use:   "mount",
		Short: "Mount or unmount cifs shares from the cifstab",
		Long: `Mount (or with -u unmount) the named shares, or every share with -a.

Transient failures are retried: "error(2)" while the network comes up at
boot, and "target is busy." on unmount. Unmounting a share that is not
mounted counts as success. On any failure a JSON status report is printed
and the exit code is 1.`,
		Example: `  cifscloak mount -n films music
  cifscloak mount -a -r 6
  cifscloak mount -u -n films`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m.Names = append(m.Names, args...)
			return run(cmd, m)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&m.Names, "names", "n", nil, "names of shares to mount")
	f.BoolVarP(&m.All, "all", "a", false, "mount every share in the cifstab")
	f.BoolVarP(&m.Unmount, "umount", "u", false, "unmount instead of mount")
	f.IntP("retries", "r", 3, "maximum attempts per share")
	f.IntP("waitsecs", "w", 5, "seconds to wait between attempts")
	f.Duration("prompt-timeout", 3*time.Second, "how long to wait for the mount password prompt")
	cmd.MarkFlagsMutuallyExclusive("names", "all")
	cmd.MarkFlagsOneRequired("names", "all")
	return cmd
}
