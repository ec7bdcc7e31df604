// Package invoke runs one external mount or umount command on a
// pseudo-terminal so the password can be answered at the tool's own prompt
// instead of appearing on the command line or in the process list.
//
// It does not log, retry or persist anything.
package invoke

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creack/pty"
)

// ErrPromptNotDetected is returned when the child is still running but never
// printed a password prompt within the timeout. The child is killed and the
// password is not sent blindly. A child that exits without prompting is not
// an error; its status and output are returned as usual.
var ErrPromptNotDetected = errors.New("password prompt not detected")

// DefaultPrompt matches the prompt printed by mount.cifs.
var DefaultPrompt = regexp.MustCompile(`Password.*`)

const readChunk = 4096

// Request describes one invocation.
type Request struct {
	Args          []string
	Password      string
	ExpectPrompt  bool
	PromptTimeout time.Duration
}

// Result is the exit status and the cleaned combined output of the child.
type Result struct {
	ExitStatus int
	Output     string
}

// Invoker runs a single command to completion.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}

// PTY is the Invoker backed by a real pseudo-terminal.
type PTY struct {
	Prompt *regexp.Regexp
}

// NewPTY returns a PTY invoker matching prompt, or DefaultPrompt if nil.
func NewPTY(prompt *regexp.Regexp) *PTY {
	if prompt == nil {
		prompt = DefaultPrompt
	}
	return &PTY{Prompt: prompt}
}

// Invoke starts req.Args on a new pty. When ExpectPrompt is set it waits up
// to PromptTimeout for the prompt, writes the password and a newline exactly
// once, then collects everything until the child closes the terminal.
func (p *PTY) Invoke(ctx context.Context, req Request) (Result, error) {
	if len(req.Args) == 0 {
		return Result{}, errors.New("invoke: empty command")
	}

	cmd := exec.CommandContext(ctx, req.Args[0], req.Args[1:]...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return Result{}, errors.Wrapf(err, "start %s", req.Args[0])
	}
	defer ptmx.Close()

	done := make(chan struct{})
	defer close(done)
	chunks := make(chan []byte, 16)
	go pump(ptmx, chunks, done)

	var captured bytes.Buffer
	if req.ExpectPrompt {
		rest, seen, exited, err := p.awaitPrompt(chunks, req.PromptTimeout)
		if exited {
			// The tool gave up before asking, so its own diagnostic is the result.
			waitErr := cmd.Wait()
			if cmd.ProcessState == nil {
				return Result{}, errors.Wrapf(waitErr, "wait %s", req.Args[0])
			}
			return Result{ExitStatus: exitStatus(cmd), Output: CleanOutput(string(seen), false)}, nil
		}
		if err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return Result{ExitStatus: exitStatus(cmd), Output: CleanOutput(string(seen), false)}, err
		}
		captured.Write(rest)
		if _, err := io.WriteString(ptmx, req.Password+"\n"); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return Result{ExitStatus: exitStatus(cmd)}, errors.Wrap(err, "write password")
		}
	}

	for c := range chunks {
		captured.Write(c)
	}

	waitErr := cmd.Wait()
	if cmd.ProcessState == nil {
		return Result{}, errors.Wrapf(waitErr, "wait %s", req.Args[0])
	}
	return Result{
		ExitStatus: exitStatus(cmd),
		Output:     CleanOutput(captured.String(), req.ExpectPrompt),
	}, nil
}

// awaitPrompt returns whatever followed the prompt in the stream. If the
// child closes the terminal first, exited is set and seen holds its output.
// On timeout it returns ErrPromptNotDetected and everything seen so far.
func (p *PTY) awaitPrompt(chunks <-chan []byte, timeout time.Duration) (rest, seen []byte, exited bool, err error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				return nil, seen, true, nil
			}
			seen = append(seen, c...)
			if loc := p.Prompt.FindIndex(seen); loc != nil {
				return seen[loc[1]:], nil, false, nil
			}
		case <-timer.C:
			return nil, seen, false, errors.Wrapf(ErrPromptNotDetected, "no prompt within %s", timeout)
		}
	}
}

// pump copies the pty into out until the child side closes, which Linux
// reports as EIO rather than EOF.
func pump(r io.Reader, out chan<- []byte, done <-chan struct{}) {
	defer close(out)
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case out <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func exitStatus(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}
