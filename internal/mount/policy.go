package mount

import (
	"slices"
	"time"
)

// Tokens produced by the orchestrator itself rather than by the tool.
const (
	TokenPromptNotDetected = "password prompt not detected"
)

// Policy decides what follows a failed attempt of one operation.
type Policy struct {
	Retryable   []string
	Acceptable  []string
	MaxAttempts int
	Delay       time.Duration
}

// Decision is the terminal or intermediate state after an attempt.
type Decision int

const (
	Succeeded Decision = iota
	Accepted
	Retry
	Exhausted
	NonRetryable
)

func (d Decision) String() string {
	switch d {
	case Succeeded:
		return "success"
	case Accepted:
		return "accepted"
	case Retry:
		return "retry"
	case Exhausted:
		return "exhausted"
	case NonRetryable:
		return "non-retryable"
	}
	return "unknown"
}

// Terminal reports whether no further attempt follows.
func (d Decision) Terminal() bool {
	return d != Retry
}

// Decide applies the policy to attempt number attempt (1-based). Acceptable
// tokens win over everything, retryable tokens consume the budget, and any
// other token fails at once.
func (p Policy) Decide(attempt, exitStatus int, token string) Decision {
	switch {
	case exitStatus == 0:
		return Succeeded
	case slices.Contains(p.Acceptable, token):
		return Accepted
	case slices.Contains(p.Retryable, token) && attempt < p.maxAttempts():
		return Retry
	case attempt >= p.maxAttempts():
		return Exhausted
	default:
		return NonRetryable
	}
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Policies holds one policy per operation.
type Policies map[Operation]Policy

// DefaultPolicies returns the tables the tool has always shipped with:
// a share that is not reachable yet (error 2) or a busy target is worth
// waiting for, and unmounting something not mounted is fine.
func DefaultPolicies() Policies {
	return Policies{
		OpMount: {
			Retryable:   []string{"2", TokenPromptNotDetected},
			MaxAttempts: 3,
			Delay:       5 * time.Second,
		},
		OpUmount: {
			Retryable:   []string{"target is busy."},
			Acceptable:  []string{"not mounted."},
			MaxAttempts: 3,
			Delay:       5 * time.Second,
		},
	}
}

// withBudget returns a copy of the op's policy using the given budget.
func (ps Policies) withBudget(op Operation, maxAttempts int, delay time.Duration) Policy {
	p := ps[op]
	p.MaxAttempts = maxAttempts
	p.Delay = delay
	return p
}
