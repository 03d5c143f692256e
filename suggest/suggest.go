// Package suggest composes prompt construction, inference and parsing into
// the suggestion pipeline.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/engine"
	"github.com/Paranoid-AF/commandy/parse"
	"github.com/Paranoid-AF/commandy/prompt"
	"github.com/Paranoid-AF/commandy/validate"
	"github.com/Paranoid-AF/commandy/vocab"
)

// DefaultMaxSuggestions is used when neither the caller nor the config sets a limit.
const DefaultMaxSuggestions = 3

// ErrNotConfigured is returned when no model is configured.
var ErrNotConfigured = errors.New("no model configured; set model.name in config or COMMANDY_MODEL")

// Invoker generates raw text for a prompt.
type Invoker interface {
	Run(ctx context.Context, prompt string, params commandy.ModelParameters) (string, error)
}

// Result is the outcome of one request, including intermediate values.
type Result struct {
	Prompt      string
	Raw         string
	Suggestions []commandy.Suggestion
}

// Pipeline turns a request into validated suggestions. It holds no
// per-request state.
type Pipeline struct {
	builder    *prompt.Builder
	invoker    Invoker
	parser     *parse.Parser
	defaultMax int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDefaultMax sets the limit used when a request asks for a non-positive count.
func WithDefaultMax(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.defaultMax = n
		}
	}
}

// New creates a pipeline from its parts.
func New(b *prompt.Builder, inv Invoker, p *parse.Parser, opts ...Option) *Pipeline {
	pl := &Pipeline{
		builder:    b,
		invoker:    inv,
		parser:     p,
		defaultMax: DefaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// NewFromConfig wires a pipeline for cfg: it locates the engine binary and
// loads the user's prompt template. A nil lists uses the default vocabulary.
func NewFromConfig(cfg *commandy.Config, lists *vocab.Lists) (*Pipeline, error) {
	if commandy.ResolveModel(cfg) == "" {
		return nil, ErrNotConfigured
	}
	bin, err := engine.Locate(commandy.ResolveBinary(cfg))
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = vocab.Default()
	}

	validator := validate.New(lists,
		validate.NewResolver(cfg.Validation.Resolver),
		validate.WithSyntaxCheck(cfg.Validation.SyntaxCheck),
	)
	return New(
		prompt.NewBuilder(prompt.LoadCustom(commandy.PromptPath())),
		engine.New(bin, cfg.Engine.Timeout),
		parse.New(vocab.New(lists), validator),
		WithDefaultMax(cfg.Suggestions.Max),
	), nil
}

// Suggest returns at most max suggestions for userPrompt. An empty list is
// a valid outcome; engine failures are returned unretried.
func (p *Pipeline) Suggest(ctx context.Context, userPrompt string, snap commandy.ContextSnapshot, params commandy.ModelParameters, max int) ([]commandy.Suggestion, error) {
	res, err := p.SuggestVerbose(ctx, userPrompt, snap, params, max)
	if err != nil {
		return nil, err
	}
	return res.Suggestions, nil
}

// SuggestVerbose is Suggest, also returning the built prompt and raw model output.
func (p *Pipeline) SuggestVerbose(ctx context.Context, userPrompt string, snap commandy.ContextSnapshot, params commandy.ModelParameters, max int) (*Result, error) {
	if max <= 0 {
		max = p.defaultMax
	}
	log := slog.With("request", uuid.NewString())
	start := time.Now()

	enhanced := p.builder.Build(userPrompt, snap)
	log.Debug("prompt built", "len", len(enhanced), "max", max)

	raw, err := p.invoker.Run(ctx, enhanced, params)
	if err != nil {
		log.Error("inference failed", "error", err)
		return nil, fmt.Errorf("generate suggestions: %w", err)
	}

	suggestions := p.parser.Parse(raw, max)
	log.Info("suggestions produced", "count", len(suggestions), "elapsed", time.Since(start))
	return &Result{Prompt: enhanced, Raw: raw, Suggestions: suggestions}, nil
}
