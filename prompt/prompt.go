// Package prompt renders the enhanced prompt handed to the inference engine.
package prompt

import (
	"log/slog"
	"os"
	"strings"
	"text/template"

	commandy "github.com/Paranoid-AF/commandy"
	defaults "github.com/Paranoid-AF/commandy/default"
)

// Context truncation limits. They keep the snapshot from dominating the prompt.
const (
	MaxAvailableTools  = 20
	MaxRecentCommands  = 3
	MaxLearnedPatterns = 5
)

// Data holds the values passed to the prompt template.
type Data struct {
	Request         string
	OS              string
	Shell           string
	AvailableTools  []string
	RecentCommands  []string
	LearnedPatterns []string
}

var funcs = template.FuncMap{
	"join": func(items []string, sep string) string {
		return strings.Join(items, sep)
	},
	"lines": func(items []string) string {
		return strings.Join(items, "\n")
	},
}

var defaultTemplate = template.Must(template.New("prompt").Funcs(funcs).Parse(defaults.DefaultPrompt))

// Builder renders prompts from a template.
type Builder struct {
	custom string // custom template source (empty = use default)
}

// NewBuilder creates a builder. An empty custom uses the built-in template.
func NewBuilder(custom string) *Builder {
	return &Builder{custom: custom}
}

// LoadCustom loads a custom prompt template.
// Returns empty string if no custom prompt exists.
func LoadCustom(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	slog.Info("loaded custom prompt", "path", path)
	return string(data)
}

// Build renders the enhanced prompt for userPrompt. It is deterministic and
// never fails: a broken custom template falls back to the default one.
func (b *Builder) Build(userPrompt string, snap commandy.ContextSnapshot) string {
	data := NewData(userPrompt, snap)

	t := defaultTemplate
	if b.custom != "" {
		custom, err := template.New("prompt").Funcs(funcs).Parse(b.custom)
		if err != nil {
			slog.Warn("failed to parse prompt template, falling back to default", "error", err)
		} else {
			t = custom
		}
	}

	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		slog.Warn("failed to execute prompt template, falling back to default", "error", err)
		buf.Reset()
		// The embedded template renders any Data.
		if err := defaultTemplate.Execute(&buf, data); err != nil {
			panic("prompt: embedded default template failed: " + err.Error())
		}
	}

	return strings.TrimRight(buf.String(), " \t\n")
}

// NewData extracts and truncates the template values from a snapshot.
func NewData(userPrompt string, snap commandy.ContextSnapshot) Data {
	return Data{
		Request:         userPrompt,
		OS:              envOr(snap.Environment, commandy.EnvOS, "unknown"),
		Shell:           envOr(snap.Environment, commandy.EnvShell, "unknown"),
		AvailableTools:  availableTools(snap.Environment),
		RecentCommands:  recentExecutables(snap.RecentCommands),
		LearnedPatterns: learnedPatterns(snap.LearnedPatterns),
	}
}

func envOr(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}

// availableTools splits the comma-separated tool list and keeps the first
// MaxAvailableTools entries.
func availableTools(env map[string]string) []string {
	v, ok := env[commandy.EnvAvailableTools]
	if !ok {
		return []string{"basic"}
	}
	tools := strings.Split(v, ",")
	if len(tools) > MaxAvailableTools {
		tools = tools[:MaxAvailableTools]
	}
	return tools
}

// recentExecutables returns the first word of each of the first
// MaxRecentCommands commands.
func recentExecutables(cmds []string) []string {
	if len(cmds) > MaxRecentCommands {
		cmds = cmds[:MaxRecentCommands]
	}
	out := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		if fields := strings.Fields(cmd); len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

// learnedPatterns returns up to MaxLearnedPatterns lines that carry a
// directional (→) or success (✓) marker.
func learnedPatterns(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.Contains(line, "→") && !strings.Contains(line, "✓") {
			continue
		}
		out = append(out, line)
		if len(out) == MaxLearnedPatterns {
			break
		}
	}
	return out
}
