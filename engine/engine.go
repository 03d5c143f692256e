// Package engine runs the local llama.cpp binary as a subprocess.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	commandy "github.com/Paranoid-AF/commandy"
)

// ErrUnavailable is returned when the engine binary is missing, not
// executable, or cannot be started.
var ErrUnavailable = errors.New("inference engine not available")

// ExecutionError reports a non-zero exit of the engine.
type ExecutionError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("llama.cpp execution failed (exit %d): %s", e.ExitCode, e.Stderr)
}

// waitDelay bounds how long output is drained after the process is killed.
const waitDelay = 2 * time.Second

// Engine invokes a llama.cpp binary.
type Engine struct {
	binary  string
	timeout time.Duration
}

// New creates an engine for the binary at path. A positive timeout bounds
// each run; zero waits for the process to exit.
func New(path string, timeout time.Duration) *Engine {
	return &Engine{binary: path, timeout: timeout}
}

// Binary returns the path of the engine binary.
func (e *Engine) Binary() string { return e.binary }

// Args returns the argument vector for a generation run.
func Args(prompt string, params commandy.ModelParameters) []string {
	return []string{
		"-hf", params.Model,
		"-c", "0", // use the model's full context window
		"-fa", // flash attention
		"-p", prompt,
		"-n", strconv.Itoa(params.MaxTokens),
		"--temp", strconv.FormatFloat(params.Temperature, 'f', -1, 64),
		"--no-display-prompt",
	}
}

// Run generates text for prompt and returns the trimmed standard output.
func (e *Engine) Run(ctx context.Context, prompt string, params commandy.ModelParameters) (string, error) {
	slog.Debug("executing llama.cpp", "binary", e.binary, "prompt_len", len(prompt))

	stdout, err := e.exec(ctx, Args(prompt, params)...)
	if err != nil {
		return "", err
	}

	response := strings.TrimSpace(stdout)
	slog.Debug("generated response", "len", len(response))
	return response, nil
}

// Verify runs the binary with --version and returns the first line of its output.
func (e *Engine) Verify(ctx context.Context) (string, error) {
	stdout, err := e.exec(ctx, "--version")
	if err != nil {
		return "", err
	}
	version := "unknown version"
	if line, _, _ := strings.Cut(strings.TrimSpace(stdout), "\n"); line != "" {
		version = strings.TrimSpace(line)
	}
	slog.Info("llama.cpp binary verified", "binary", e.binary, "version", version)
	return version, nil
}

// exec runs the binary with stdin closed and both output streams captured.
func (e *Engine) exec(ctx context.Context, args ...string) (string, error) {
	if err := checkExecutable(e.binary); err != nil {
		return "", err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = nil // reads from the null device
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return decode(stdout.Bytes()), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && e.timeout > 0 {
			return "", fmt.Errorf("llama.cpp timed out after %s: %w", e.timeout, ctxErr)
		}
		return "", fmt.Errorf("llama.cpp interrupted: %w", ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &ExecutionError{
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(decode(stderr.Bytes())),
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// checkExecutable verifies that path names an executable regular file.
func checkExecutable(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no binary configured", ErrUnavailable)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if info.IsDir() || !isExecutable(info) {
		return fmt.Errorf("%w: %s is not executable", ErrUnavailable, path)
	}
	return nil
}

// decode converts engine output to valid UTF-8, replacing invalid sequences.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
