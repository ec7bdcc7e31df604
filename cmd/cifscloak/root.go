package main

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lovincyrus/cifscloak/internal/app"
	"github.com/lovincyrus/cifscloak/internal/config"
	"github.com/lovincyrus/cifscloak/internal/invoke"
	"github.com/lovincyrus/cifscloak/internal/logging"
	"github.com/lovincyrus/cifscloak/internal/mount"
	"github.com/lovincyrus/cifscloak/internal/vault"
)

// runFunc hands a parsed command to the application.
type runFunc func(cmd *cobra.Command, c app.Command) error

// cli owns process-level state: output streams and the exit code.
type cli struct {
	stdout   io.Writer
	stderr   io.Writer
	exitCode int
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr}
}

func (c *cli) execute(ctx context.Context, args []string) int {
	root := newRootCommand(c.run, promptPassword)
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(c.stderr, err)
		return 1
	}
	return c.exitCode
}

func newRootCommand(run runFunc, prompt promptFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "cifscloak",
		Short: "Mount cifs shares with credentials kept in an encrypted cifstab",
		Long: `cifscloak keeps cifs share credentials encrypted in a local database and
answers the mount password prompt itself, so passwords never appear on a
command line or in a plaintext credentials file.

The cifstab lives in $CIFSCLOAK_HOME/.cifstab (default ~/.cifstab) and is
readable by its owner only; run as root when mounting system-wide.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("home", "", "directory containing .cifstab (env CIFSCLOAK_HOME)")
	pf.String("config", "", "config file (default <home>/.cifstab/config.yaml)")
	pf.Bool("debug", false, "log to stderr as well as syslog")

	root.AddCommand(
		newAddMountCommand(run, prompt),
		newRemoveMountsCommand(run),
		newListMountsCommand(run),
		newMountCommand(run),
		newSystemdFileCommand(run),
		newStatusCommand(run),
		newAuditCommand(run),
	)
	return root
}

// run builds the collaborators from configuration and executes one command.
func (c *cli) run(cmd *cobra.Command, command app.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	log, closeLog := logging.New(logging.Options{Tag: cfg.SyslogTag, Debug: cfg.Debug, Stderr: c.stderr})
	defer closeLog()

	v, err := vault.Open(cfg.VaultDir(), log)
	if err != nil {
		return err
	}
	defer v.Close()

	orch := mount.New(v, invoke.NewPTY(nil),
		mount.WithPolicies(cfg.Policies()),
		mount.WithCommandLine(cfg.CommandLine()),
		mount.WithPromptTimeout(cfg.PromptTimeout),
		mount.WithLogger(log))

	if m, ok := command.(app.Mount); ok {
		m.Retries = cfg.Retries
		m.Wait = cfg.Wait()
		command = m
	}

	report, err := app.New(v, orch, c.stdout, log).Execute(cmd.Context(), command)
	if err != nil {
		return err
	}
	if report != nil {
		if err := report.WriteIfFailed(c.stdout); err != nil {
			return errors.Wrap(err, "write status report")
		}
		if report.HasFailed() {
			color.New(color.FgRed).Fprintf(c.stderr, "%d of %d share(s) failed: %v\n",
				report.FailedCount, report.FailedCount+report.SuccessCount, report.Failed)
		}
		c.exitCode = report.ExitCode()
	}
	return nil
}
