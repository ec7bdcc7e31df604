// Package app dispatches CLI commands to the vault and the mount
// orchestrator and renders their results.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lovincyrus/cifscloak/internal/mount"
	"github.com/lovincyrus/cifscloak/internal/store"
	"github.com/lovincyrus/cifscloak/internal/systemd"
	"github.com/lovincyrus/cifscloak/internal/vault"
)

// Vault is the subset of *vault.Vault the commands use.
type Vault interface {
	Add(c vault.Credential) error
	Remove(names ...string) error
	Get(name string) (*vault.Credential, error)
	List(verbose bool) ([]vault.MountInfo, error)
	Names() ([]string, error)
	Status() (*vault.Status, error)
	AuditLog(limit int) ([]store.AuditEntry, error)
}

// Runner performs a batch of mount or umount operations.
type Runner interface {
	Run(ctx context.Context, names []string, op mount.Operation, retries int, wait time.Duration) *mount.Report
}

// App wires commands to their collaborators.
type App struct {
	vault  Vault
	runner Runner
	out    io.Writer
	log    *zap.Logger
}

// New returns an App writing command output to out.
func New(v Vault, runner Runner, out io.Writer, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{vault: v, runner: runner, out: out, log: log}
}

// Execute runs cmd. The report is non-nil only for Mount; its exit code
// is the process exit code.
func (a *App) Execute(ctx context.Context, cmd Command) (*mount.Report, error) {
	switch c := cmd.(type) {
	case AddMount:
		return nil, a.addMount(c)
	case RemoveMounts:
		return nil, a.removeMounts(c)
	case ListMounts:
		return nil, a.listMounts()
	case Mount:
		return a.mount(ctx, c)
	case SystemdFile:
		return nil, a.systemdFile(c)
	case Status:
		return nil, a.status()
	case Audit:
		return nil, a.audit(c)
	}
	return nil, errors.AssertionFailedf("unhandled command %T", cmd)
}

func (a *App) addMount(c AddMount) error {
	err := a.vault.Add(c.Credential)
	if errors.Is(err, vault.ErrDuplicateName) {
		fmt.Fprintln(a.out, "Cifs mount name must be unique\nExisting names:")
		if lerr := a.listMounts(); lerr != nil {
			a.log.Warn("cannot list existing names", zap.Error(lerr))
		}
	}
	if err != nil {
		return err
	}
	a.log.Info("added cifs mount", zap.String("name", c.Credential.Name))
	return nil
}

func (a *App) removeMounts(c RemoveMounts) error {
	if len(c.Names) == 0 {
		return errors.New("removemounts: at least one name is required")
	}
	if err := a.vault.Remove(mount.Dedupe(c.Names)...); err != nil {
		return err
	}
	a.log.Info("removed cifs mounts", zap.Strings("names", c.Names))
	return nil
}

// listMounts prints a JSON object keyed by name, in the shape the tool has
// always printed.
func (a *App) listMounts() error {
	infos, err := a.vault.List(true)
	if err != nil {
		return err
	}
	return writeJSON(a.out, mountsByName(infos))
}

// mountsByName marshals as a JSON object keyed by name that keeps the
// stored order; a Go map would sort the keys.
type mountsByName []vault.MountInfo

func (m mountsByName) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, info := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(info.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(info)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *App) mount(ctx context.Context, c Mount) (*mount.Report, error) {
	op := mount.OpMount
	if c.Unmount {
		op = mount.OpUmount
	}

	names := c.Names
	if c.All {
		var err error
		if names, err = a.vault.Names(); err != nil {
			return nil, err
		}
	}
	if len(names) == 0 && !c.All {
		return nil, errors.New("mount: give share names or --all")
	}

	report := a.runner.Run(ctx, names, op, c.Retries, c.Wait)
	a.log.Info(string(op)+" batch finished",
		zap.Int("success", report.SuccessCount),
		zap.Int("failed", report.FailedCount))
	return report, nil
}

func (a *App) systemdFile(c SystemdFile) error {
	p := systemd.UnitParams{Executable: c.Executable, All: c.All, Names: c.Names}
	if !c.All {
		known, err := a.vault.Names()
		if err != nil {
			return err
		}
		p.Missing = systemd.Missing(c.Names, known)
	}
	unit, err := systemd.Render(p)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.out, unit)
	return err
}

func (a *App) status() error {
	s, err := a.vault.Status()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Home:        %s\n", s.Home)
	fmt.Fprintf(a.out, "Database:    %s\n", s.Database)
	fmt.Fprintf(a.out, "Key file:    %s\n", s.KeyFile)
	fmt.Fprintf(a.out, "Records:     %d\n", s.Records)
	fmt.Fprintf(a.out, "Key:         %s\n", s.KeyFingerprint)
	if !s.KeyMatches {
		fmt.Fprintln(a.out, "Warning:     key file does not match the stored records; they will fail to decrypt")
	}
	return nil
}

func (a *App) audit(c Audit) error {
	limit := c.Limit
	if limit <= 0 {
		limit = 20
	}
	entries, err := a.vault.AuditLog(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No audit entries.")
		return nil
	}
	for _, e := range entries {
		detail := ""
		if e.Detail != "" {
			detail = fmt.Sprintf(" (%s)", e.Detail)
		}
		fmt.Fprintf(a.out, "%-20s %-12s %s%s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Action, e.Name, detail)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
