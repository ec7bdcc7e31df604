package mount

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lovincyrus/cifscloak/internal/invoke"
	"github.com/lovincyrus/cifscloak/internal/vault"
)

type fakeCreds map[string]*vault.Credential

func (f fakeCreds) Get(name string) (*vault.Credential, error) {
	if c, ok := f[name]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, errors.Wrapf(vault.ErrNotFound, "get %q", name)
}

type step struct {
	exit   int
	output string
	err    error
}

// scriptedInvoker replays steps per mountpoint and records every request.
type scriptedInvoker struct {
	steps    map[string][]step
	requests []invoke.Request
}

func (s *scriptedInvoker) Invoke(_ context.Context, req invoke.Request) (invoke.Result, error) {
	s.requests = append(s.requests, req)
	target := req.Args[len(req.Args)-1]
	queue := s.steps[target]
	if len(queue) == 0 {
		return invoke.Result{}, nil
	}
	st := queue[0]
	if len(queue) > 1 {
		s.steps[target] = queue[1:]
	}
	return invoke.Result{ExitStatus: st.exit, Output: st.output}, st.err
}

func credsFor(names ...string) fakeCreds {
	f := fakeCreds{}
	for _, n := range names {
		f[n] = &vault.Credential{
			Name: n, Address: "nas", Share: n, MountPoint: "/mnt/" + n,
			User: "alice", Password: "pw-" + n,
		}
	}
	return f
}

type harness struct {
	inv    *scriptedInvoker
	sleeps []time.Duration
	dirs   []string
	orch   *Orchestrator
}

func newHarness(t *testing.T, creds CredentialSource, steps map[string][]step) *harness {
	h := &harness{inv: &scriptedInvoker{steps: steps}}
	h.orch = New(creds, h.inv,
		WithLogger(zaptest.NewLogger(t)),
		WithSleep(func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}),
		WithMkdirAll(func(path string, _ os.FileMode) error {
			h.dirs = append(h.dirs, path)
			return nil
		}),
	)
	return h
}

func TestRun_FilmsRetriedUntilMounted(t *testing.T) {
	h := newHarness(t, credsFor("films"), map[string][]step{
		"/mnt/films": {
			{exit: 2, output: "error(2): no such device"},
			{exit: 2, output: "error(2): no such device"},
			{exit: 0},
		},
	})

	r := h.orch.Run(context.Background(), []string{"films"}, OpMount, 3, 5*time.Second)

	assert.Equal(t, []string{"films"}, r.Success)
	assert.Equal(t, []string{}, r.Failed)
	assert.Equal(t, map[string]int{"films": 3}, r.Attempts)
	assert.Equal(t, 0, r.ExitCode())
	assert.NoError(t, r.Err())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, h.sleeps)
	assert.Equal(t, []string{"/mnt/films"}, h.dirs)
	assert.Len(t, r.Messages, 2)
}

func TestRun_PasswordOnlyOnInteractiveChannel(t *testing.T) {
	h := newHarness(t, credsFor("films"), map[string][]step{})

	h.orch.Run(context.Background(), []string{"films"}, OpMount, 3, 0)

	require.Len(t, h.inv.requests, 1)
	req := h.inv.requests[0]
	assert.True(t, req.ExpectPrompt)
	assert.Equal(t, "pw-films", req.Password)
	assert.Equal(t, DefaultPromptTimeout, req.PromptTimeout)
	assert.NotContains(t, req.Args, "pw-films")
}

func TestRun_RetryBudgetExhausted(t *testing.T) {
	h := newHarness(t, credsFor("films"), map[string][]step{
		"/mnt/films": {{exit: 32, output: "mount error(2): No such file or directory"}},
	})

	r := h.orch.Run(context.Background(), []string{"films"}, OpMount, 4, time.Second)

	assert.Len(t, h.inv.requests, 4)
	assert.Equal(t, []string{"films"}, r.Failed)
	assert.Equal(t, 4, r.Attempts["films"])
	assert.Equal(t, 1, r.ExitCode())

	var opErr *OperationError
	require.True(t, errors.As(r.Err(), &opErr))
	assert.Equal(t, Exhausted, opErr.Decision)
	assert.Equal(t, "2", opErr.Token)
}

func TestRun_NonRetryableFailsFast(t *testing.T) {
	h := newHarness(t, credsFor("films"), map[string][]step{
		"/mnt/films": {{exit: 32, output: "mount error(13): Permission denied"}},
	})

	r := h.orch.Run(context.Background(), []string{"films"}, OpMount, 5, time.Second)

	assert.Len(t, h.inv.requests, 1)
	assert.Empty(t, h.sleeps)
	assert.Equal(t, 1, r.Attempts["films"])
	assert.Equal(t, []string{"films"}, r.Failed)
	assert.Contains(t, r.Messages, "mounterr 13 not in retry policy, no retry attempt will be made")
}

func TestRun_UmountNotMountedIsAccepted(t *testing.T) {
	h := newHarness(t, credsFor("films"), map[string][]step{
		"/mnt/films": {{exit: 32, output: "umount: /mnt/films: not mounted."}},
	})

	r := h.orch.Run(context.Background(), []string{"films"}, OpUmount, 3, time.Second)

	assert.Equal(t, []string{"films"}, r.Success)
	assert.Equal(t, 1, r.Attempts["films"])
	assert.Equal(t, 0, r.ExitCode())
	assert.Empty(t, h.dirs, "umount must not create directories")
	assert.False(t, h.inv.requests[0].ExpectPrompt)
	assert.Equal(t, []string{"umount", "/mnt/films"}, h.inv.requests[0].Args)
}

func TestRun_UmountBusyRetried(t *testing.T) {
	h := newHarness(t, credsFor("films"), map[string][]step{
		"/mnt/films": {
			{exit: 32, output: "umount: /mnt/films: target is busy."},
			{exit: 0},
		},
	})

	r := h.orch.Run(context.Background(), []string{"films"}, OpUmount, 3, time.Second)

	assert.Equal(t, []string{"films"}, r.Success)
	assert.Equal(t, 2, r.Attempts["films"])
}

func TestRun_BatchIsolation(t *testing.T) {
	h := newHarness(t, credsFor("films", "music"), map[string][]step{
		"/mnt/films": {{exit: 32, output: "mount error(13): Permission denied"}},
	})

	r := h.orch.Run(context.Background(), []string{"films", "ghost", "music"}, OpMount, 3, time.Second)

	assert.Equal(t, []string{"music"}, r.Success)
	assert.Equal(t, []string{"films", "ghost"}, r.Failed)
	assert.Equal(t, 1, r.SuccessCount)
	assert.Equal(t, 2, r.FailedCount)
	assert.Contains(t, r.Messages, "cifs name ghost not found in cifstab")
	assert.Equal(t, 1, r.ExitCode())

	var nf *NameNotFoundError
	assert.True(t, errors.As(r.Err(), &nf))
}

func TestRun_DuplicateNamesProcessedOnce(t *testing.T) {
	h := newHarness(t, credsFor("films"), map[string][]step{})

	r := h.orch.Run(context.Background(), []string{"films", "films"}, OpMount, 3, time.Second)

	assert.Len(t, h.inv.requests, 1)
	assert.Equal(t, []string{"films"}, r.Success)
	assert.Equal(t, 1, r.SuccessCount)
}

func TestRun_PromptNotDetectedRetried(t *testing.T) {
	notDetected := errors.Wrap(invoke.ErrPromptNotDetected, "no prompt within 3s")
	h := newHarness(t, credsFor("films"), map[string][]step{
		"/mnt/films": {{exit: -1, err: notDetected}, {exit: 0}},
	})

	r := h.orch.Run(context.Background(), []string{"films"}, OpMount, 3, time.Second)

	assert.Equal(t, []string{"films"}, r.Success)
	assert.Equal(t, 2, r.Attempts["films"])
	assert.Contains(t, r.Messages, "films: "+TokenPromptNotDetected)
}

func TestRun_MkdirFailure(t *testing.T) {
	h := newHarness(t, credsFor("films"), map[string][]step{})
	h.orch.mkdirAll = func(string, os.FileMode) error { return os.ErrPermission }

	r := h.orch.Run(context.Background(), []string{"films"}, OpMount, 3, time.Second)

	assert.Empty(t, h.inv.requests)
	assert.Equal(t, []string{"films"}, r.Failed)
}

func TestRun_CreatesMountpoint(t *testing.T) {
	mp := filepath.Join(t.TempDir(), "mnt", "films")
	creds := fakeCreds{"films": {Name: "films", Address: "nas", Share: "films", MountPoint: mp, User: "alice"}}
	inv := &scriptedInvoker{steps: map[string][]step{}}

	r := New(creds, inv, WithLogger(zaptest.NewLogger(t))).
		Run(context.Background(), []string{"films"}, OpMount, 1, 0)

	assert.Equal(t, []string{"films"}, r.Success)
	info, err := os.Stat(mp)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRun_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := &scriptedInvoker{steps: map[string][]step{
		"/mnt/films": {{exit: 32, output: "mount error(2): No such file or directory"}},
	}}
	o := New(credsFor("films"), inv, WithMkdirAll(func(string, os.FileMode) error { return nil }))

	r := o.Run(ctx, []string{"films"}, OpMount, 3, time.Hour)

	assert.Len(t, inv.requests, 1)
	assert.Equal(t, []string{"films"}, r.Failed)
}

func TestReport_JSONShape(t *testing.T) {
	r := NewReport()
	b, err := r.JSON()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{"error", "successcount", "failedcount", "success", "failed", "attempts", "messages"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, []any{}, m["success"])
}

func TestReport_WriteIfFailed(t *testing.T) {
	var buf bytes.Buffer
	r := NewReport()
	require.NoError(t, r.WriteIfFailed(&buf))
	assert.Empty(t, buf.String())

	r.Fail(nil)
	require.NoError(t, r.WriteIfFailed(&buf))
	assert.Contains(t, buf.String(), `"error": 1`)
}

// fakeMountTool writes an executable standing in for mount(8).
func fakeMountTool(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mount")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestRun_ToolExitsBeforePromptFailsFast(t *testing.T) {
	tool := fakeMountTool(t, `echo "mount.cifs: mount.cifs: permission denied"; exit 1`)
	var sleeps int
	o := New(credsFor("films"), invoke.NewPTY(nil),
		WithLogger(zaptest.NewLogger(t)),
		WithCommandLine(CommandLine{MountBinary: tool, UmountBinary: "umount", FSType: "cifs"}),
		WithMkdirAll(func(string, os.FileMode) error { return nil }),
		WithSleep(func(context.Context, time.Duration) error { sleeps++; return nil }))

	r := o.Run(context.Background(), []string{"films"}, OpMount, 6, 5*time.Second)

	assert.Equal(t, []string{"films"}, r.Failed)
	assert.Equal(t, 1, r.Attempts["films"])
	assert.Zero(t, sleeps)
	assert.Contains(t, r.Messages, "films: mount.cifs: mount.cifs: permission denied")

	var opErr *OperationError
	require.True(t, errors.As(r.Err(), &opErr))
	assert.Equal(t, NonRetryable, opErr.Decision)
	assert.Equal(t, "permission denied", opErr.Token)
}

func TestRun_ToolSilentUntilTimeoutIsRetried(t *testing.T) {
	tool := fakeMountTool(t, `exec sleep 10`)
	o := New(credsFor("films"), invoke.NewPTY(nil),
		WithLogger(zaptest.NewLogger(t)),
		WithCommandLine(CommandLine{MountBinary: tool, UmountBinary: "umount", FSType: "cifs"}),
		WithPromptTimeout(200*time.Millisecond),
		WithMkdirAll(func(string, os.FileMode) error { return nil }),
		WithSleep(func(context.Context, time.Duration) error { return nil }))

	r := o.Run(context.Background(), []string{"films"}, OpMount, 2, time.Second)

	assert.Equal(t, []string{"films"}, r.Failed)
	assert.Equal(t, 2, r.Attempts["films"])

	var opErr *OperationError
	require.True(t, errors.As(r.Err(), &opErr))
	assert.Equal(t, Exhausted, opErr.Decision)
	assert.Equal(t, TokenPromptNotDetected, opErr.Token)
}

// undecryptable fails Get for one name the way a record sealed under
// another key does.
type undecryptable struct {
	fakeCreds
	bad string
}

func (u undecryptable) Get(name string) (*vault.Credential, error) {
	if name == u.bad {
		return nil, &vault.DecryptionError{Name: name, Column: "password", Err: errors.New("message authentication failed")}
	}
	return u.fakeCreds.Get(name)
}

func TestRun_DecryptionFailureIsolated(t *testing.T) {
	creds := undecryptable{fakeCreds: credsFor("good"), bad: "bad"}
	h := newHarness(t, creds, map[string][]step{})

	r := h.orch.Run(context.Background(), []string{"bad", "good"}, OpMount, 3, time.Second)

	assert.Equal(t, []string{"bad"}, r.Failed)
	assert.Equal(t, []string{"good"}, r.Success)
	assert.Equal(t, 1, r.ExitCode())
	assert.Len(t, h.inv.requests, 1)

	var de *vault.DecryptionError
	require.True(t, errors.As(r.Err(), &de))
	assert.Equal(t, "bad", de.Name)
}
