// Command commandyd is the commandy daemon.
// It listens on a Unix domain socket for suggestion requests from shell
// clients and answers them with the local llama.cpp model.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	commandy "github.com/Paranoid-AF/commandy"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		socketPath string
		watch      bool
	)
	cmd := &cobra.Command{
		Use:          "commandyd",
		Short:        "Serve commandy suggestions over a Unix socket",
		Version:      Version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			if err := godotenv.Load(commandy.EnvPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("failed to load env file", "error", err)
			}
			if socketPath == "" {
				socketPath = resolveSocketPath()
			}
			return run(cmd, socketPath, watch)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every request and response")
	cmd.Flags().StringVar(&socketPath, "socket", "", "socket path (default $COMMANDY_SOCKET, $XDG_RUNTIME_DIR/commandy.sock)")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload when files in the config directory change")
	return cmd
}

func run(cmd *cobra.Command, socketPath string, watch bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting", "socket", socketPath, "version", Version)

	srv, err := NewServer(socketPath)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Close()

	if watch {
		if err := srv.WatchConfig(ctx, commandy.ConfigDir()); err != nil {
			slog.Warn("config watching disabled", "error", err)
		}
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		srv.Close()
	}()

	slog.Info("ready")
	if err := srv.Serve(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func resolveSocketPath() string {
	if path := os.Getenv("COMMANDY_SOCKET"); path != "" {
		return path
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "commandy.sock")
	}
	return fmt.Sprintf("/tmp/commandy-%d.sock", os.Getuid())
}
