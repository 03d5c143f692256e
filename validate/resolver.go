package validate

import (
	"fmt"
	"os/exec"
	"strings"

	commandy "github.com/Paranoid-AF/commandy"
)

// Resolver looks up an executable by name, with the same contract as
// exec.LookPath: a nil error means the executable exists.
type Resolver interface {
	LookPath(file string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(file string) (string, error)

// LookPath calls f(file).
func (f ResolverFunc) LookPath(file string) (string, error) { return f(file) }

// PathResolver resolves executables in-process via exec.LookPath.
type PathResolver struct{}

// LookPath implements Resolver.
func (PathResolver) LookPath(file string) (string, error) { return exec.LookPath(file) }

// WhichResolver resolves executables by running which(1). Each lookup
// spawns one short-lived process that is reaped before returning.
type WhichResolver struct{}

// LookPath implements Resolver.
func (WhichResolver) LookPath(file string) (string, error) {
	out, err := exec.Command("which", file).Output()
	if err != nil {
		return "", err
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", fmt.Errorf("which %s: empty output", file)
	}
	return path, nil
}

// NewResolver returns the resolver named by a config value.
// Unknown names fall back to PathResolver.
func NewResolver(name string) Resolver {
	if name == commandy.ResolverWhich {
		return WhichResolver{}
	}
	return PathResolver{}
}
