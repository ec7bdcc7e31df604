// Package mount drives mount and umount of vault shares: it builds the
// command, runs it through an invoke.Invoker, classifies failures and
// retries by policy, and aggregates everything into a Report.
package mount

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lovincyrus/cifscloak/internal/invoke"
	"github.com/lovincyrus/cifscloak/internal/vault"
)

// DefaultPromptTimeout bounds the wait for the mount password prompt.
const DefaultPromptTimeout = 3 * time.Second

// CredentialSource resolves a share name to its decrypted record.
// *vault.Vault satisfies it.
type CredentialSource interface {
	Get(name string) (*vault.Credential, error)
}

// Orchestrator processes names one at a time; a name is fully resolved,
// retries included, before the next one starts.
type Orchestrator struct {
	creds         CredentialSource
	invoker       invoke.Invoker
	classifier    *Classifier
	policies      Policies
	commands      CommandLine
	promptTimeout time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
	mkdirAll      func(path string, perm os.FileMode) error
	log           *zap.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithClassifier(c *Classifier) Option { return func(o *Orchestrator) { o.classifier = c } }
func WithPolicies(p Policies) Option      { return func(o *Orchestrator) { o.policies = p } }
func WithCommandLine(c CommandLine) Option {
	return func(o *Orchestrator) { o.commands = c }
}
func WithPromptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.promptTimeout = d }
}
func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithSleep replaces the inter-attempt delay, mostly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithMkdirAll replaces directory creation for mountpoints.
func WithMkdirAll(fn func(path string, perm os.FileMode) error) Option {
	return func(o *Orchestrator) { o.mkdirAll = fn }
}

// New returns an orchestrator with the default classifier, policies and
// command line.
func New(creds CredentialSource, invoker invoke.Invoker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		creds:         creds,
		invoker:       invoker,
		classifier:    DefaultClassifier(),
		policies:      DefaultPolicies(),
		commands:      DefaultCommandLine(),
		promptTimeout: DefaultPromptTimeout,
		sleep:         sleepContext,
		mkdirAll:      os.MkdirAll,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs op on every name and returns the batch report. retries is
// the maximum number of attempts per name and wait the delay between them.
// A failing name never stops the batch.
func (o *Orchestrator) Run(ctx context.Context, names []string, op Operation, retries int, wait time.Duration) *Report {
	report := NewReport()
	policy := o.policies.withBudget(op, retries, wait)

	for _, name := range Dedupe(names) {
		log := o.log.With(zap.String("name", name), zap.String("operation", string(op)))

		cred, err := o.creds.Get(name)
		if err != nil {
			o.rejectName(report, log, name, err)
			continue
		}

		if op == OpMount {
			if err := o.mkdirAll(cred.MountPoint, 0755); err != nil {
				report.Message("%s: cannot create mountpoint %s: %v", name, cred.MountPoint, err)
				report.fail(name, errors.Wrapf(err, "mkdir %s", cred.MountPoint))
				log.Error("cannot create mountpoint", zap.String("mountpoint", cred.MountPoint), zap.Error(err))
				continue
			}
		}

		log.Info("attempting " + string(op))
		o.drive(ctx, report, log, cred, op, policy)
	}
	return report
}

func (o *Orchestrator) rejectName(report *Report, log *zap.Logger, name string, err error) {
	if errors.Is(err, vault.ErrNotFound) {
		nf := &NameNotFoundError{Name: name}
		report.Message("%s", nf.Error())
		report.fail(name, nf)
		log.Warn("name not found in cifstab")
		return
	}
	report.Message("%s: %v", name, err)
	report.fail(name, err)
	log.Error("cannot load credentials", zap.Error(err))
}

// drive runs the attempt loop for one share until a terminal decision.
func (o *Orchestrator) drive(ctx context.Context, report *Report, log *zap.Logger, cred *vault.Credential, op Operation, policy Policy) {
	req := invoke.Request{
		Args:          o.commands.Build(op, cred),
		Password:      cred.Password,
		ExpectPrompt:  op.expectsPrompt(),
		PromptTimeout: o.promptTimeout,
	}

	for attempt := 1; ; attempt++ {
		report.Attempts[cred.Name] = attempt

		exitStatus, output, token := o.attempt(ctx, req)
		decision := policy.Decide(attempt, exitStatus, token)

		log.Info("attempt finished",
			zap.Int("attempt", attempt),
			zap.Int("exit_status", exitStatus),
			zap.String("token", token),
			zap.Stringer("decision", decision))

		switch decision {
		case Succeeded, Accepted:
			report.succeed(cred.Name)
			return

		case Retry:
			report.Message("%s: %s", cred.Name, output)
			if err := o.sleep(ctx, policy.Delay); err != nil {
				report.Message("%s: %s interrupted: %v", cred.Name, op, err)
				report.fail(cred.Name, errors.Wrapf(err, "%s %s", op, cred.Name))
				return
			}

		default:
			report.Message("%s: %s", cred.Name, output)
			if decision == NonRetryable {
				report.Message("mounterr %s not in retry policy, no retry attempt will be made", token)
			}
			report.fail(cred.Name, &OperationError{
				Name: cred.Name, Op: op, Token: token, Attempts: attempt, Decision: decision,
			})
			log.Error(string(op)+" failed", zap.Int("attempts", attempt), zap.String("token", token))
			return
		}
	}
}

// attempt runs the command once. Invocation errors are folded into a
// non-zero status and a token so the policy sees them like tool failures.
func (o *Orchestrator) attempt(ctx context.Context, req invoke.Request) (exitStatus int, output, token string) {
	res, err := o.invoker.Invoke(ctx, req)
	switch {
	case errors.Is(err, invoke.ErrPromptNotDetected):
		output = TokenPromptNotDetected
		if res.Output != "" {
			output += ": " + res.Output
		}
		return nonZero(res.ExitStatus), output, TokenPromptNotDetected
	case err != nil:
		return nonZero(res.ExitStatus), err.Error(), err.Error()
	}
	if res.ExitStatus == 0 {
		return 0, res.Output, ""
	}
	return res.ExitStatus, res.Output, o.classifier.Classify(res.Output)
}

func nonZero(status int) int {
	if status == 0 {
		return -1
	}
	return status
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
