// Package snapshot gathers the session context that accompanies a
// suggestion request: host facts, recent history and learned patterns.
package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/sync/errgroup"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/vocab"
)

const (
	toolsCacheTTL   = 5 * time.Minute
	maxLearnedBytes = 64 * 1024
)

// Options configures a Collector.
type Options struct {
	// Starters are the executables probed for "available_tools", in order.
	Starters []string
	// LookPath resolves executables. Nil means exec.LookPath.
	LookPath func(string) (string, error)
	// History enables reading recent commands from the shell history.
	History bool
	// HistoryPath overrides history file discovery.
	HistoryPath string
	// RecentCommands caps the number of history entries collected.
	RecentCommands int
	// LearnedPath is the learned-patterns file. Empty disables it.
	LearnedPath string
}

// Collector builds ContextSnapshots from the local host.
type Collector struct {
	opts  Options
	tools *ttlcache.Cache[string, string] // PATH -> available tools
}

// New creates a Collector and starts its cache expiration loop.
func New(opts Options) *Collector {
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](toolsCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &Collector{opts: opts, tools: c}
}

// NewFromConfig creates a Collector for the user's configuration.
func NewFromConfig(cfg *commandy.Config, l *vocab.Lists) *Collector {
	if l == nil {
		l = vocab.Default()
	}
	return New(Options{
		Starters:       l.CommandStarters,
		History:        cfg.Context.History,
		RecentCommands: cfg.Context.RecentCommands,
		LearnedPath:    commandy.LearnedPath(),
	})
}

// Close stops the cache expiration loop.
func (c *Collector) Close() {
	c.tools.Stop()
}

// Collect gathers a snapshot. Missing history or learned files are not
// errors; only cancellation of ctx is.
func (c *Collector) Collect(ctx context.Context) (*commandy.ContextSnapshot, error) {
	var (
		tools   string
		recent  []string
		learned string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tools, err = c.availableTools(ctx)
		return err
	})
	g.Go(func() error {
		recent = c.recentCommands()
		return nil
	})
	g.Go(func() error {
		learned = c.learnedPatterns()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	env := map[string]string{
		commandy.EnvOS:    runtime.GOOS,
		commandy.EnvShell: DetectShell(),
	}
	// Without the key the prompt falls back to "basic".
	if tools != "" {
		env[commandy.EnvAvailableTools] = tools
	}
	return &commandy.ContextSnapshot{
		Environment:     env,
		RecentCommands:  recent,
		LearnedPatterns: learned,
	}, nil
}

// availableTools returns the comma-joined starters that resolve on PATH.
// Results are cached per PATH value.
func (c *Collector) availableTools(ctx context.Context) (string, error) {
	key := os.Getenv("PATH")
	if item := c.tools.Get(key); item != nil {
		return item.Value(), nil
	}

	found := make([]string, 0, len(c.opts.Starters))
	for _, name := range c.opts.Starters {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := c.opts.LookPath(name); err == nil {
			found = append(found, name)
		}
	}
	tools := strings.Join(found, ",")
	c.tools.Set(key, tools, ttlcache.DefaultTTL)
	slog.Debug("resolved available tools", "count", len(found))
	return tools, nil
}

func (c *Collector) recentCommands() []string {
	if !c.opts.History {
		return nil
	}
	path := c.opts.HistoryPath
	if path == "" {
		home, _ := homedir.Dir()
		path = resolveHistoryPath(home)
	}
	cmds, err := recentCommands(path, c.opts.RecentCommands)
	if err != nil {
		slog.Debug("history unavailable", "path", path, "error", err)
		return nil
	}
	return cmds
}

func (c *Collector) learnedPatterns() string {
	if c.opts.LearnedPath == "" {
		return ""
	}
	f, err := os.Open(c.opts.LearnedPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read learned patterns", "path", c.opts.LearnedPath, "error", err)
		}
		return ""
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxLearnedBytes))
	if err != nil {
		slog.Warn("failed to read learned patterns", "path", c.opts.LearnedPath, "error", err)
		return ""
	}
	return string(data)
}
