package mount

import (
	"strings"

	"github.com/lovincyrus/cifscloak/internal/vault"
)

// CommandLine builds argv for the external tools. The password is never
// part of it.
type CommandLine struct {
	MountBinary  string
	UmountBinary string
	FSType       string
}

// DefaultCommandLine uses mount/umount from PATH with -t cifs.
func DefaultCommandLine() CommandLine {
	return CommandLine{MountBinary: "mount", UmountBinary: "umount", FSType: "cifs"}
}

// Build returns argv for op on cred.
func (c CommandLine) Build(op Operation, cred *vault.Credential) []string {
	if op == OpUmount {
		return []string{c.UmountBinary, cred.MountPoint}
	}

	opts := "username=" + cred.User
	if extra := strings.Trim(strings.TrimSpace(cred.Options), ","); extra != "" {
		opts += "," + extra
	}
	return []string{
		c.MountBinary,
		"-t", c.FSType,
		"-o", opts,
		"//" + cred.Address + "/" + cred.Share,
		cred.MountPoint,
	}
}

// Dedupe drops repeated names, keeping first-seen order.
func Dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
