package suggest

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/engine"
	"github.com/Paranoid-AF/commandy/parse"
	"github.com/Paranoid-AF/commandy/prompt"
	"github.com/Paranoid-AF/commandy/validate"
)

// fakeInvoker returns canned output and records what it was asked.
type fakeInvoker struct {
	output string
	err    error

	calls  int
	prompt string
	params commandy.ModelParameters
}

func (f *fakeInvoker) Run(_ context.Context, prompt string, params commandy.ModelParameters) (string, error) {
	f.calls++
	f.prompt = prompt
	f.params = params
	return f.output, f.err
}

func newTestPipeline(inv Invoker, opts ...Option) *Pipeline {
	known := map[string]bool{"ls": true, "docker": true, "git": true, "grep": true}
	resolver := validate.ResolverFunc(func(file string) (string, error) {
		if known[file] {
			return "/usr/bin/" + file, nil
		}
		return "", exec.ErrNotFound
	})
	return New(prompt.NewBuilder(""), inv, parse.New(nil, validate.New(nil, resolver)), opts...)
}

var testParams = commandy.ModelParameters{Model: "test-model", MaxTokens: 64, Temperature: 0.1}

var testSnapshot = commandy.ContextSnapshot{
	Environment: map[string]string{
		commandy.EnvOS:             "linux",
		commandy.EnvShell:          "bash",
		commandy.EnvAvailableTools: "ls,grep,docker",
	},
	RecentCommands: []string{"docker ps -a"},
}

func TestSuggest(t *testing.T) {
	inv := &fakeInvoker{output: "docker ps\n# running only\ndocker ps -a\nls -la"}
	p := newTestPipeline(inv)

	got, err := p.Suggest(context.Background(), "list running containers", testSnapshot, testParams, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []commandy.Suggestion{
		{Command: "docker ps", Confidence: parse.PrimaryConfidence},
		{Command: "docker ps -a", Confidence: parse.PrimaryConfidence},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Suggest mismatch (-want +got):\n%s", diff)
	}

	if inv.calls != 1 {
		t.Errorf("expected one engine call, got %d", inv.calls)
	}
	if inv.params != testParams {
		t.Errorf("expected params %+v, got %+v", testParams, inv.params)
	}
	for _, s := range []string{"OS: linux", "Shell: bash", "Available executables: ls, grep, docker", "Recent commands: docker"} {
		if !strings.Contains(inv.prompt, s) {
			t.Errorf("prompt missing %q:\n%s", s, inv.prompt)
		}
	}
	if n := strings.Count(inv.prompt, "list running containers"); n != 2 {
		t.Errorf("expected request twice in prompt, found %d", n)
	}
}

func TestSuggestDefaultMax(t *testing.T) {
	inv := &fakeInvoker{output: "ls\nls -l\nls -la\nls -lah\ngit status"}

	got, err := newTestPipeline(inv).Suggest(context.Background(), "x", testSnapshot, testParams, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != DefaultMaxSuggestions {
		t.Errorf("expected %d suggestions, got %d", DefaultMaxSuggestions, len(got))
	}

	got, err = newTestPipeline(inv, WithDefaultMax(4)).Suggest(context.Background(), "x", testSnapshot, testParams, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("expected configured default of 4, got %d", len(got))
	}
}

func TestSuggestEmptyIsNotAnError(t *testing.T) {
	inv := &fakeInvoker{output: "Sorry, I am not sure how to do that."}
	got, err := newTestPipeline(inv).Suggest(context.Background(), "x", testSnapshot, testParams, 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

func TestSuggestEngineErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unavailable", fmt.Errorf("%w: missing", engine.ErrUnavailable), func(err error) bool {
			return errors.Is(err, engine.ErrUnavailable)
		}},
		{"execution", &engine.ExecutionError{ExitCode: 1, Stderr: "boom"}, func(err error) bool {
			var e *engine.ExecutionError
			return errors.As(err, &e) && e.Stderr == "boom"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{output: "ls -la", err: tt.err}
			got, err := newTestPipeline(inv).Suggest(context.Background(), "x", testSnapshot, testParams, 3)
			if !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
			if got != nil {
				t.Errorf("expected no suggestions on error, got %v", got)
			}
			if inv.calls != 1 {
				t.Errorf("expected exactly one attempt, got %d", inv.calls)
			}
		})
	}
}

func TestSuggestVerbose(t *testing.T) {
	inv := &fakeInvoker{output: "You could run git status to check."}
	res, err := newTestPipeline(inv).SuggestVerbose(context.Background(), "what changed", testSnapshot, testParams, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Prompt != inv.prompt {
		t.Error("expected the built prompt to be returned")
	}
	if res.Raw != inv.output {
		t.Errorf("expected raw output %q, got %q", inv.output, res.Raw)
	}
	want := []commandy.Suggestion{{Command: "git status to check", Confidence: parse.FallbackConfidence}}
	if diff := cmp.Diff(want, res.Suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestNewFromConfigNotConfigured(t *testing.T) {
	t.Setenv("COMMANDY_MODEL", "")
	cfg := commandy.DefaultConfig()
	cfg.Model.Model = ""
	if _, err := NewFromConfig(cfg, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewFromConfigMissingBinary(t *testing.T) {
	t.Setenv("COMMANDY_BINARY", "")
	cfg := commandy.DefaultConfig()
	cfg.Engine.Binary = t.TempDir() + "/no-such-llama"
	if _, err := NewFromConfig(cfg, nil); !errors.Is(err, engine.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
