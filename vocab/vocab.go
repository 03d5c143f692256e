// Package vocab provides the static command vocabulary used as a coarse
// first-pass filter by the response parser and the command validator.
package vocab

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	defaults "github.com/Paranoid-AF/commandy/default"
)

// Lists is the on-disk shape of the vocabulary file.
// A section left out of a user file keeps its default contents.
type Lists struct {
	CommandStarters []string `yaml:"command_starters"`
	ShellBuiltins   []string `yaml:"shell_builtins"`
	Denylist        []string `yaml:"denylist"`
	PseudoCommands  []string `yaml:"pseudo_commands"`
}

// Default returns the lists from the embedded vocabulary.yaml.
func Default() *Lists {
	var l Lists
	if err := yaml.Unmarshal(defaults.VocabularyYAML, &l); err != nil {
		panic("vocab: invalid embedded vocabulary.yaml: " + err.Error())
	}
	return &l
}

// Load reads a vocabulary file and layers it over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	var user Lists
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}

	l := Default()
	if user.CommandStarters != nil {
		l.CommandStarters = user.CommandStarters
	}
	if user.ShellBuiltins != nil {
		l.ShellBuiltins = user.ShellBuiltins
	}
	if user.Denylist != nil {
		l.Denylist = user.Denylist
	}
	if user.PseudoCommands != nil {
		l.PseudoCommands = user.PseudoCommands
	}
	return l, nil
}

// Vocabulary answers membership questions about command tokens.
type Vocabulary struct {
	starters map[string]bool
	builtins map[string]bool
}

// New builds a Vocabulary from l. A nil l uses the defaults.
func New(l *Lists) *Vocabulary {
	if l == nil {
		l = Default()
	}
	v := &Vocabulary{
		starters: make(map[string]bool, len(l.CommandStarters)),
		builtins: make(map[string]bool, len(l.ShellBuiltins)),
	}
	for _, s := range l.CommandStarters {
		v.starters[s] = true
	}
	for _, b := range l.ShellBuiltins {
		v.builtins[b] = true
	}
	return v
}

// IsCommandStarter reports whether token, with leading ASCII punctuation
// removed, names a common executable.
func (v *Vocabulary) IsCommandStarter(token string) bool {
	return v.starters[strings.TrimLeftFunc(token, isASCIIPunct)]
}

// IsShellBuiltin reports whether token is a recognized shell builtin.
func (v *Vocabulary) IsShellBuiltin(token string) bool {
	return v.builtins[token]
}

func isASCIIPunct(r rune) bool {
	switch {
	case r >= '!' && r <= '/',
		r >= ':' && r <= '@',
		r >= '[' && r <= '`',
		r >= '{' && r <= '~':
		return true
	}
	return false
}
