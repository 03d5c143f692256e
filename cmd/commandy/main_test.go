package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/parse"
	"github.com/Paranoid-AF/commandy/suggest"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// isolate points all commandy paths at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COMMANDY_CONFIG_DIR", dir)
	t.Setenv("COMMANDY_MODEL", "")
	t.Setenv("COMMANDY_BINARY", "")
	t.Setenv("HISTFILE", "")
	return dir
}

// fakeEngine writes a script that prints output regardless of its arguments.
func fakeEngine(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "llama-cpp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "commandy dev\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestConfigDefaults(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "config", "--defaults")
	if err != nil {
		t.Fatal(err)
	}
	var cfg commandy.Config
	if _, err := toml.Decode(out, &cfg); err != nil {
		t.Fatalf("config output is not valid TOML: %v\n%s", err, out)
	}
	if diff := cmp.Diff(commandy.DefaultConfig(), &cfg); diff != "" {
		t.Errorf("round-tripped defaults differ (-want +got):\n%s", diff)
	}
}

func TestConfigReadsUserFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[suggestions]\nmax = 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, _, err := execute(t, "config")
	if err != nil {
		t.Fatal(err)
	}
	var cfg commandy.Config
	if _, err := toml.Decode(out, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Suggestions.Max != 7 {
		t.Errorf("expected max 7 from user file, got %d", cfg.Suggestions.Max)
	}
}

func TestConfigPath(t *testing.T) {
	dir := isolate(t)
	out, _, err := execute(t, "config", "--path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != filepath.Join(dir, "config.toml") {
		t.Errorf("unexpected path %q", out)
	}
}

func TestCompletion(t *testing.T) {
	isolate(t)
	for _, shell := range []string{"bash", "zsh", "fish"} {
		out, _, err := execute(t, "completion", shell)
		if err != nil {
			t.Fatalf("completion %s: %v", shell, err)
		}
		if !strings.Contains(out, "commandy") {
			t.Errorf("completion %s does not mention commandy", shell)
		}
	}
}

func TestNoRequestShowsHelp(t *testing.T) {
	isolate(t)
	out, _, err := execute(t)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help output, got %q", out)
	}
}

func TestSuggestJSON(t *testing.T) {
	isolate(t)
	t.Setenv("COMMANDY_BINARY", fakeEngine(t, `printf '/bin/echo -n hi\n# note\n/bin/ls -la\n'`))

	out, _, err := execute(t, "--json", "-n", "1", "say", "hi")
	if err != nil {
		t.Fatal(err)
	}
	var got []commandy.Suggestion
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	want := []commandy.Suggestion{{Command: "/bin/echo -n hi", Confidence: parse.PrimaryConfidence}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggestPlainOutput(t *testing.T) {
	isolate(t)
	t.Setenv("COMMANDY_BINARY", fakeEngine(t, `printf '/bin/echo -n hi\n/bin/ls -la\n'`))

	out, _, err := execute(t, "say", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if out != "/bin/echo -n hi\n/bin/ls -la\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSuggestNoResults(t *testing.T) {
	isolate(t)
	t.Setenv("COMMANDY_BINARY", fakeEngine(t, `echo "I am not sure."`))

	out, errOut, err := execute(t, "do", "something")
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("expected empty stdout, got %q", out)
	}
	if !strings.Contains(errOut, "No suggestions") {
		t.Errorf("expected notice on stderr, got %q", errOut)
	}
}

func TestSuggestModelFlag(t *testing.T) {
	isolate(t)
	// Echo the model argument back as a command.
	t.Setenv("COMMANDY_BINARY", fakeEngine(t, `printf '/bin/echo %s --flag\n' "$2"`))

	out, _, err := execute(t, "--model", "org/custom-GGUF", "anything")
	if err != nil {
		t.Fatal(err)
	}
	if out != "/bin/echo org/custom-GGUF --flag\n" {
		t.Errorf("expected model flag to reach the engine, got %q", out)
	}
}

func TestSuggestModelFlagBeatsEnv(t *testing.T) {
	isolate(t)
	t.Setenv("COMMANDY_MODEL", "org/env-GGUF")
	t.Setenv("COMMANDY_BINARY", fakeEngine(t, `printf '/bin/echo %s --flag\n' "$2"`))

	out, _, err := execute(t, "--model", "org/flag-GGUF", "anything")
	if err != nil {
		t.Fatal(err)
	}
	if out != "/bin/echo org/flag-GGUF --flag\n" {
		t.Errorf("expected flag model to win over env, got %q", out)
	}
	if got := os.Getenv("COMMANDY_MODEL"); got != "org/env-GGUF" {
		t.Errorf("expected environment untouched, got COMMANDY_MODEL=%q", got)
	}
}

func TestSuggestEngineFailure(t *testing.T) {
	isolate(t)
	t.Setenv("COMMANDY_BINARY", fakeEngine(t, "echo 'failed to load model' >&2\nexit 1"))

	_, errOut, err := execute(t, "list", "files")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(errOut, "failed to load model") {
		t.Errorf("expected engine stderr in output, got %q", errOut)
	}
}

func TestSuggestEngineMissing(t *testing.T) {
	isolate(t)
	t.Setenv("COMMANDY_BINARY", filepath.Join(t.TempDir(), "missing"))
	if _, _, err := execute(t, "list", "files"); err == nil {
		t.Fatal("expected an error for a missing engine")
	}
}

func TestEnvFile(t *testing.T) {
	dir := isolate(t)
	bin := fakeEngine(t, `printf '/bin/echo from-env-file -x\n'`)
	if err := os.WriteFile(filepath.Join(dir, "commandy.env"), []byte("COMMANDY_BINARY="+bin+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set.
	os.Unsetenv("COMMANDY_BINARY")

	out, _, err := execute(t, "anything")
	if err != nil {
		t.Fatal(err)
	}
	if out != "/bin/echo from-env-file -x\n" {
		t.Errorf("expected engine from env file, got %q", out)
	}
}

func TestDoctor(t *testing.T) {
	isolate(t)
	t.Setenv("COMMANDY_BINARY", fakeEngine(t, `echo "version: 1234 (deadbeef)"`))

	out, _, err := execute(t, "doctor")
	if err != nil {
		t.Fatalf("doctor failed: %v\n%s", err, out)
	}
	for _, want := range []string{"engine:", "version: version: 1234 (deadbeef)", "ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTrace(t *testing.T) {
	var buf bytes.Buffer
	snap := &commandy.ContextSnapshot{Environment: map[string]string{commandy.EnvOS: "linux"}}
	res := &suggest.Result{
		Prompt:      "Commands for: list\n\nCommands:",
		Raw:         "ls -la",
		Suggestions: []commandy.Suggestion{{Command: "ls -la", Confidence: 0.8}},
	}
	if err := writeTrace(&buf, "list", snap, res); err != nil {
		t.Fatal(err)
	}

	var got traceEntry
	if _, err := toml.Decode(buf.String(), &got); err != nil {
		t.Fatalf("trace is not valid TOML: %v\n%s", err, buf.String())
	}
	if got.Request.Text != "list" || got.Inference.Output != "ls -la" {
		t.Errorf("unexpected trace %+v", got)
	}
}
