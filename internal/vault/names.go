package vault

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

// validName matches alphanumerics plus underscore, hyphen and dot.
var validName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

const maxNameLen = 64

// ValidateName checks that a mount name is safe to use as a lookup key and
// as an argument in a generated unit file.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("mount name must not be empty")
	}
	if len(name) > maxNameLen {
		return errors.Newf("mount name %q is longer than %d characters", name, maxNameLen)
	}
	if !validName.MatchString(name) {
		return errors.Newf("invalid mount name %q: only alphanumeric, underscore, hyphen, dot allowed", name)
	}
	return nil
}
