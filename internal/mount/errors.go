package mount

import "fmt"

// NameNotFoundError means a requested name has no vault record.
type NameNotFoundError struct {
	Name string
}

func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("cifs name %s not found in cifstab", e.Name)
}

// OperationError is the terminal failure of one share.
type OperationError struct {
	Name     string
	Op       Operation
	Token    string
	Attempts int
	Decision Decision
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s failed (%s after %d attempt(s)): %s",
		e.Op, e.Name, e.Decision, e.Attempts, e.Token)
}
