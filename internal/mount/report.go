package mount

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// Report is the outcome of one batch. Only the orchestrator mutates it.
type Report struct {
	Error        int            `json:"error"`
	SuccessCount int            `json:"successcount"`
	FailedCount  int            `json:"failedcount"`
	Success      []string       `json:"success"`
	Failed       []string       `json:"failed"`
	Attempts     map[string]int `json:"attempts"`
	Messages     []string       `json:"messages"`

	errs *multierror.Error
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{
		Success:  []string{},
		Failed:   []string{},
		Attempts: map[string]int{},
		Messages: []string{},
	}
}

func (r *Report) succeed(name string) {
	r.Success = append(r.Success, name)
	r.SuccessCount++
}

func (r *Report) fail(name string, err error) {
	r.Failed = append(r.Failed, name)
	r.FailedCount++
	r.Fail(err)
}

// Fail marks the batch as failed without naming a share.
func (r *Report) Fail(err error) {
	r.Error = 1
	if err != nil {
		r.errs = multierror.Append(r.errs, err)
	}
}

// Message appends a human-readable line.
func (r *Report) Message(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// HasFailed reports whether any share failed.
func (r *Report) HasFailed() bool {
	return r.Error != 0
}

// ExitCode is 0 when everything succeeded or was accepted, 1 otherwise.
func (r *Report) ExitCode() int {
	return r.Error
}

// Err returns every per-share failure, or nil.
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}

// JSON renders the report the way it is shown to the operator.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "    ")
}

// WriteIfFailed prints the report only when something failed, so that
// unattended runs at boot stay silent.
func (r *Report) WriteIfFailed(w io.Writer) error {
	if !r.HasFailed() {
		return nil
	}
	b, err := r.JSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
