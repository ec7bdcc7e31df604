package mount

import (
	"regexp"
	"strings"
)

// TokenNoOutput stands in for a failure that printed nothing, so the token
// is never empty.
const TokenNoOutput = "no diagnostic output"

// Matcher extracts an error token from tool output, if it recognizes it.
type Matcher func(output string) (token string, ok bool)

// SubmatchMatcher returns the first capture group of re.
func SubmatchMatcher(re *regexp.Regexp) Matcher {
	return func(output string) (string, bool) {
		m := re.FindStringSubmatch(output)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}
}

var (
	// mount error(2): No such file or directory
	errorCodeRule = SubmatchMatcher(regexp.MustCompile(`error\((\d+)\)`))
	// umount: /mnt/films: target is busy.
	trailingClauseRule = SubmatchMatcher(regexp.MustCompile(`.+:.+:\s(.+)`))
)

// Classifier maps tool output to an error token. Rules are tried in order
// and the first match wins; output no rule recognizes is its own token.
//
// This is heuristic: mount and umount messages are not a stable interface
// and vary with tool version and locale.
type Classifier struct {
	rules []Matcher
}

// NewClassifier builds a classifier from rules in priority order.
func NewClassifier(rules ...Matcher) *Classifier {
	return &Classifier{rules: rules}
}

// DefaultClassifier recognizes "error(N)" codes first, then the last clause
// of a "<tool>: <object>: <message>" line.
func DefaultClassifier() *Classifier {
	return NewClassifier(errorCodeRule, trailingClauseRule)
}

// Classify is pure: the same output always yields the same token.
func (c *Classifier) Classify(output string) string {
	for _, rule := range c.rules {
		if token, ok := rule(output); ok {
			return token
		}
	}
	if strings.TrimSpace(output) == "" {
		return TokenNoOutput
	}
	return output
}
