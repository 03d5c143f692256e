package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
)

// binaryNames are looked up on PATH, in order.
var binaryNames = []string{"llama-cpp", "llama-cli"}

// systemPaths are checked last.
var systemPaths = []string{
	"/usr/local/bin/llama-cpp",
	"/usr/bin/llama-cpp",
	"/opt/llama-cpp/bin/llama-cpp",
}

// Locator finds the engine binary on the host.
type Locator struct {
	// Home is the user's home directory. Empty means look it up.
	Home string
	// LookPath resolves names on PATH. Nil means exec.LookPath.
	LookPath func(string) (string, error)
	// SystemPaths overrides the fixed fallback locations.
	SystemPaths []string
}

// Locate finds the engine binary with the default Locator.
func Locate(explicit string) (string, error) {
	return (&Locator{}).Locate(explicit)
}

// Locate returns the engine binary path. An explicit path (with ~ expanded)
// wins; otherwise ~/.commandy/bin, PATH and the system locations are tried.
func (l *Locator) Locate(explicit string) (string, error) {
	if explicit != "" {
		path, err := homedir.Expand(explicit)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if err := checkExecutable(path); err != nil {
			return "", err
		}
		return path, nil
	}

	home := l.Home
	if home == "" {
		home, _ = homedir.Dir()
	}
	if home != "" {
		local := filepath.Join(home, ".commandy", "bin", "llama-cpp")
		if exists(local) {
			return local, nil
		}
		if runtime.GOOS == "windows" && exists(local+".exe") {
			return local + ".exe", nil
		}
	}

	lookPath := l.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, name := range binaryNames {
		if path, err := lookPath(name); err == nil && path != "" {
			return path, nil
		}
	}

	paths := l.SystemPaths
	if paths == nil {
		paths = systemPaths
	}
	for _, path := range paths {
		if exists(path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: llama.cpp binary not found; install it or set engine.binary in config", ErrUnavailable)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
