// Package parse extracts command suggestions from raw model output.
//
// Output is first read line by line. Only when that yields nothing is the
// text scanned word by word for commands embedded in prose.
package parse

import (
	"log/slog"
	"strings"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/vocab"
)

// Confidence assigned to suggestions by each strategy.
const (
	PrimaryConfidence  = 0.8
	FallbackConfidence = 0.6
)

const (
	maxLineLen = 300 // longer lines are prose, not commands
	maxWordLen = 100
)

// Validator decides whether a candidate command may be suggested.
type Validator interface {
	Validate(candidate string) bool
}

// Parser turns raw model output into suggestions.
type Parser struct {
	vocab     *vocab.Vocabulary
	validator Validator
}

// New creates a parser. A nil vocabulary uses the defaults.
func New(v *vocab.Vocabulary, val Validator) *Parser {
	if v == nil {
		v = vocab.New(nil)
	}
	return &Parser{vocab: v, validator: val}
}

// Parse returns at most max suggestions from raw. Results come from a single
// strategy, in the order they were found.
func (p *Parser) Parse(raw string, max int) []commandy.Suggestion {
	if max <= 0 {
		return nil
	}
	suggestions := p.lines(raw, max)
	if len(suggestions) > 0 {
		return suggestions
	}
	suggestions = p.words(raw, max)
	if len(suggestions) > 0 {
		slog.Debug("suggestions recovered from prose", "count", len(suggestions))
	}
	return suggestions
}

// LooksLikeCommand reports whether line resembles a shell command: it starts
// with a known command, or carries something flag-like.
func (p *Parser) LooksLikeCommand(line string) bool {
	fields := strings.Fields(line)
	if len(fields) > 0 && p.vocab.IsCommandStarter(fields[0]) {
		return true
	}
	return strings.Contains(line, "--") ||
		(strings.Contains(line, "-") && len(fields) > 1)
}

func (p *Parser) lines(raw string, max int) []commandy.Suggestion {
	var out []commandy.Suggestion
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || len(line) > maxLineLen {
			continue
		}
		if !p.LooksLikeCommand(line) || !p.validator.Validate(line) {
			continue
		}
		out = append(out, commandy.Suggestion{Command: line, Confidence: PrimaryConfidence})
		if len(out) >= max {
			break
		}
	}
	return out
}

func (p *Parser) words(raw string, max int) []commandy.Suggestion {
	var (
		out     []commandy.Suggestion
		current []string
	)

	// emit validates cmd and records it, reporting whether max was reached.
	emit := func(cmd string) bool {
		if cmd == "" || !p.validator.Validate(cmd) {
			return false
		}
		out = append(out, commandy.Suggestion{Command: cmd, Confidence: FallbackConfidence})
		return len(out) >= max
	}

	for _, word := range strings.Fields(raw) {
		if len(word) > maxWordLen {
			continue
		}

		if p.vocab.IsCommandStarter(word) {
			if len(current) > 0 && emit(strings.Join(current, " ")) {
				return out
			}
			current = []string{word}
			continue
		}
		if len(current) == 0 {
			continue
		}

		current = append(current, word)
		if strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?") {
			cmd := strings.TrimRight(strings.Join(current, " "), ".!?")
			current = nil
			if emit(cmd) {
				return out
			}
		}
	}

	if len(current) > 0 {
		emit(strings.Join(current, " "))
	}
	return out
}
