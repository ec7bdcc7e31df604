package app

import (
	"time"

	"github.com/lovincyrus/cifscloak/internal/vault"
)

// Command is one of the variants below; the set is closed.
type Command interface {
	isCommand()
}

// AddMount stores a new share record.
type AddMount struct {
	Credential vault.Credential
}

// RemoveMounts deletes records by name. Unknown names are ignored.
type RemoveMounts struct {
	Names []string
}

// ListMounts prints every record without user or password.
type ListMounts struct{}

// Mount mounts, or with Unmount set unmounts, the named shares or all of
// them.
type Mount struct {
	Names   []string
	All     bool
	Unmount bool
	Retries int
	Wait    time.Duration
}

// SystemdFile prints a unit file for boot-time mounting.
type SystemdFile struct {
	Names      []string
	All        bool
	Executable string
}

// Status prints where the vault lives and whether its key matches.
type Status struct{}

// Audit prints recent vault access, newest first.
type Audit struct {
	Limit int
}

func (AddMount) isCommand()     {}
func (RemoveMounts) isCommand() {}
func (ListMounts) isCommand()   {}
func (Mount) isCommand()        {}
func (SystemdFile) isCommand()  {}
func (Status) isCommand()       {}
func (Audit) isCommand()        {}
