// Package validate decides whether a candidate command line may be offered
// to the user. It blocks known-catastrophic patterns and commands whose
// executable cannot be resolved; it does not prove a command harmless.
package validate

import (
	"log/slog"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/Paranoid-AF/commandy/vocab"
)

// MaxCommandLength is the longest accepted candidate, in bytes.
const MaxCommandLength = 500

// Validator applies the safety and existence rules to candidates.
type Validator struct {
	vocab       *vocab.Vocabulary
	denylist    []string
	pseudo      []string
	resolver    Resolver
	syntaxCheck bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithSyntaxCheck rejects candidates that do not parse as bash.
func WithSyntaxCheck(on bool) Option {
	return func(v *Validator) { v.syntaxCheck = on }
}

// New creates a validator from the vocabulary lists. A nil l uses the
// defaults and a nil r uses PathResolver.
func New(l *vocab.Lists, r Resolver, opts ...Option) *Validator {
	if l == nil {
		l = vocab.Default()
	}
	if r == nil {
		r = PathResolver{}
	}
	v := &Validator{
		vocab:    vocab.New(l),
		denylist: l.Denylist,
		pseudo:   l.PseudoCommands,
		resolver: r,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate reports whether candidate is admitted. Rules are applied in
// order and the first decisive rule wins.
func (v *Validator) Validate(candidate string) bool {
	for _, pattern := range v.denylist {
		if strings.Contains(candidate, pattern) {
			slog.Warn("rejected dangerous command", "command", candidate, "pattern", pattern)
			return false
		}
	}

	if candidate == "" || len(candidate) > MaxCommandLength {
		return false
	}

	first := firstToken(candidate)
	if first == "" || strings.HasPrefix(first, "#") {
		return false
	}

	if v.syntaxCheck && !parsesAsShell(candidate) {
		slog.Debug("rejected unparsable command", "command", candidate)
		return false
	}

	if _, err := v.resolver.LookPath(first); err == nil {
		return true
	}
	if strings.Contains(first, "/") || v.vocab.IsShellBuiltin(first) {
		return true
	}

	lower := strings.ToLower(candidate)
	for _, pattern := range v.pseudo {
		if strings.Contains(lower, pattern) {
			slog.Debug("rejected pseudo-command", "command", candidate, "pattern", pattern)
			return false
		}
	}

	slog.Debug("command not found in PATH", "executable", first)
	return false
}

// firstToken returns the first whitespace-delimited token of s.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func parsesAsShell(cmd string) bool {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	_, err := parser.Parse(strings.NewReader(cmd), "")
	return err == nil
}
