package main

import (
	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
	"github.com/lovincyrus/cifscloak/internal/vault"
)

func newAddMountCommand(run runFunc, prompt promptFunc) *cobra.Command {
	var c vault.Credential

	cmd := &cobra.Command{
		Use:   "addmount",
		Short: "Add a cifs share to the cifstab",
		Example: `  cifscloak addmount -n films -s films -i 192.168.1.10 -m /mnt/films -u alice -o domain=home,ro
  cifscloak addmount -n music -s music -i nas.local -m /mnt/music -u bob -p "s3cret"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("password") {
				pw, err := prompt("Password: ")
				if err != nil {
					return err
				}
				c.Password = pw
			}
			return run(cmd, app.AddMount{Credential: c})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&c.Name, "name", "n", "", "unique name for this share")
	f.StringVarP(&c.Share, "sharename", "s", "", "share name on the server")
	f.StringVarP(&c.Address, "ipaddress", "i", "", "server address or hostname")
	f.StringVarP(&c.MountPoint, "mountpoint", "m", "", "absolute local mountpoint")
	f.StringVarP(&c.User, "user", "u", "", "cifs user name")
	f.StringVarP(&c.Password, "password", "p", "", "cifs password (prompted for when omitted)")
	f.StringVarP(&c.Options, "options", "o", "", "extra mount.cifs options, comma separated")
	for _, name := range []string{"name", "sharename", "ipaddress", "mountpoint", "user"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
