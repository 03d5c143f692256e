package snapshot

import (
	"os"
	"path/filepath"
)

// DetectShell names the user's shell: the base name of $SHELL, else zsh or
// bash when their version variables are set, else "sh".
func DetectShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	if os.Getenv("ZSH_VERSION") != "" {
		return "zsh"
	}
	if os.Getenv("BASH_VERSION") != "" {
		return "bash"
	}
	return "sh"
}
