package suggest

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	commandy "github.com/Paranoid-AF/commandy"
	"github.com/Paranoid-AF/commandy/engine"
	"github.com/Paranoid-AF/commandy/snapshot"
	"github.com/Paranoid-AF/commandy/vocab"
)

// Collector builds the context snapshot for requests that carry none.
type Collector interface {
	Collect(ctx context.Context) (*commandy.ContextSnapshot, error)
}

// Service answers daemon requests.
type Service struct {
	pipeline  *Pipeline
	collector Collector
	params    commandy.ModelParameters
	initErr   error
}

// NewService builds a service from cfg. A pipeline that cannot be wired
// is not fatal: every request reports why instead.
func NewService(cfg *commandy.Config) *Service {
	lists, err := vocab.Load(commandy.VocabularyPath())
	if err != nil {
		slog.Warn("failed to load vocabulary, using defaults", "error", err)
		lists = vocab.Default()
	}

	s := &Service{
		collector: snapshot.NewFromConfig(cfg, lists),
		params:    commandy.ResolveModelParameters(cfg),
	}
	s.pipeline, s.initErr = NewFromConfig(cfg, lists)
	if s.initErr != nil {
		slog.Warn("suggestion pipeline unavailable", "error", s.initErr)
	}
	return s
}

// NewServiceWith creates a service from an existing pipeline and collector.
func NewServiceWith(p *Pipeline, c Collector, params commandy.ModelParameters) *Service {
	return &Service{pipeline: p, collector: c, params: params}
}

// Close releases resources held by the collector.
func (s *Service) Close() {
	if c, ok := s.collector.(interface{ Close() }); ok {
		c.Close()
	}
}

// Handle processes a suggestion request.
func (s *Service) Handle(ctx context.Context, req *commandy.Request) *commandy.Response {
	resp := &commandy.Response{RequestID: req.RequestID, Suggestions: []commandy.Suggestion{}}

	if s.initErr != nil {
		resp.Error = toError(s.initErr)
		return resp
	}

	userPrompt := strings.TrimSpace(req.Prompt)
	if userPrompt == "" {
		resp.Error = &commandy.Error{Code: commandy.CodeInvalidRequest, Message: "prompt is required"}
		return resp
	}

	snap := req.Context
	if snap == nil {
		var err error
		if snap, err = s.collector.Collect(ctx); err != nil {
			slog.Debug("context collection stopped", "error", err)
			return resp
		}
	}

	suggestions, err := s.pipeline.Suggest(ctx, userPrompt, *snap, s.params, req.MaxSuggestions)
	if err != nil {
		if ctx.Err() == nil {
			resp.Error = toError(err)
		}
		return resp
	}
	if len(suggestions) > 0 {
		resp.Suggestions = suggestions
	}
	return resp
}

// toError maps pipeline errors to IPC error codes.
func toError(err error) *commandy.Error {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return &commandy.Error{Code: commandy.CodeNotConfigured, Message: err.Error()}
	case errors.Is(err, engine.ErrUnavailable):
		return &commandy.Error{Code: commandy.CodeEngineUnavailable, Message: err.Error()}
	default:
		return &commandy.Error{Code: commandy.CodeEngineFailed, Message: err.Error()}
	}
}
