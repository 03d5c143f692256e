package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/snapshot"
	"github.com/Paranoid-AF/commandy/suggest"
	"github.com/Paranoid-AF/commandy/vocab"
)

type rootOptions struct {
	suggestions int
	model       string
	json        bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "commandy [request...]",
		Short: "Suggest shell commands for a natural-language request",
		Long: `commandy asks a local llama.cpp model for shell commands matching a request.

Suggestions are checked against a denylist of destructive patterns and must
name an executable found on PATH, a path, or a shell builtin.`,
		Example: `  commandy list running containers
  commandy -n 5 find files larger than 100MB
  commandy --json show disk usage | jq -r '.[0].command'`,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd, opts.verbose)
			return loadEnvFile()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			request := strings.TrimSpace(strings.Join(args, " "))
			if request == "" {
				return cmd.Help()
			}
			return runSuggest(cmd, opts, request)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.suggestions, "suggestions", "n", 0, "maximum number of suggestions (default from config)")
	flags.StringVar(&opts.model, "model", "", "model identifier passed to llama.cpp (overrides config)")
	flags.BoolVar(&opts.json, "json", false, "print suggestions as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output and print the prompt and raw model output")

	cmd.AddCommand(newDoctorCmd(), newConfigCmd(), newVersionCmd())
	return cmd
}

// setupLogging installs a text handler on the command's stderr.
func setupLogging(cmd *cobra.Command, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}

// loadEnvFile loads commandy.env into the process environment. Variables
// already set take precedence.
func loadEnvFile() error {
	path := commandy.EnvPath()
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	slog.Debug("loaded env file", "path", path)
	return nil
}

func runSuggest(cmd *cobra.Command, opts *rootOptions, request string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := commandy.LoadConfig()
	if err != nil {
		return err
	}
	if opts.model != "" {
		cfg.Model.Model = opts.model
	}

	lists, err := vocab.Load(commandy.VocabularyPath())
	if err != nil {
		return err
	}

	pipeline, err := suggest.NewFromConfig(cfg, lists)
	if err != nil {
		return err
	}

	collector := snapshot.NewFromConfig(cfg, lists)
	defer collector.Close()

	snap, err := collector.Collect(ctx)
	if err != nil {
		return err
	}

	params := commandy.ResolveModelParameters(cfg)
	// The flag beats $COMMANDY_MODEL.
	if opts.model != "" {
		params.Model = opts.model
	}

	res, err := pipeline.SuggestVerbose(ctx, request, *snap, params, opts.suggestions)
	if err != nil {
		return err
	}

	if opts.verbose {
		if err := writeTrace(cmd.ErrOrStderr(), request, snap, res); err != nil {
			slog.Debug("failed to write trace", "error", err)
		}
	}
	return writeSuggestions(cmd.OutOrStdout(), cmd.ErrOrStderr(), res.Suggestions, opts.json)
}

// commandContext returns cmd's context, or a background one outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
