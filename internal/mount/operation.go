package mount

import "github.com/cockroachdb/errors"

// Operation is the kind of action taken on a share.
type Operation string

const (
	OpMount  Operation = "mount"
	OpUmount Operation = "umount"
)

// ParseOperation accepts "mount" or "umount".
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpMount, OpUmount:
		return Operation(s), nil
	}
	return "", errors.Newf("unknown operation %q", s)
}

// expectsPrompt reports whether the external tool asks for a password.
func (op Operation) expectsPrompt() bool {
	return op == OpMount
}
