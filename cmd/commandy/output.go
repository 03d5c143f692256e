package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/suggest"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeSuggestions prints suggestions as JSON, as a numbered list on a
// terminal, or one command per line when piped.
func writeSuggestions(out, errOut io.Writer, suggestions []commandy.Suggestion, asJSON bool) error {
	if asJSON {
		if suggestions == nil {
			suggestions = []commandy.Suggestion{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(suggestions)
	}

	if len(suggestions) == 0 {
		fmt.Fprintln(errOut, "No suggestions. Try rephrasing the request.")
		return nil
	}

	if !isTerminal(out) {
		for _, s := range suggestions {
			fmt.Fprintln(out, s.Command)
		}
		return nil
	}
	for i, s := range suggestions {
		fmt.Fprintf(out, "%d. %s\n", i+1, s.Command)
	}
	return nil
}

// traceEntry is the TOML record written with --verbose.
type traceEntry struct {
	Request struct {
		Timestamp time.Time `toml:"timestamp"`
		Text      string    `toml:"text"`
	} `toml:"request"`
	Context   *commandy.ContextSnapshot `toml:"context,omitempty"`
	Inference struct {
		Prompt string `toml:"prompt"`
		Output string `toml:"output"`
	} `toml:"inference"`
	Suggestions []commandy.Suggestion `toml:"suggestions"`
}

// writeTrace writes the request, context, prompt and raw output as TOML.
func writeTrace(w io.Writer, request string, snap *commandy.ContextSnapshot, res *suggest.Result) error {
	var e traceEntry
	e.Request.Timestamp = time.Now().UTC().Truncate(time.Second)
	e.Request.Text = request
	e.Context = snap
	e.Inference.Prompt = res.Prompt
	e.Inference.Output = res.Raw
	e.Suggestions = res.Suggestions
	return toml.NewEncoder(w).Encode(e)
}
