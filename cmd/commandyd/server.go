package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"sync"

	commandy "github.com/Paranoid-AF/commandy"
	defaults "github.com/Paranoid-AF/commandy/default"
	"github.com/Paranoid-AF/commandy/suggest"
)

// Handler processes a suggestion request and returns a response.
type Handler interface {
	Handle(ctx context.Context, req *commandy.Request) *commandy.Response
	Close()
}

// HandlerFactory builds a Handler from the current configuration.
type HandlerFactory func() Handler

// sessionEntry tracks a cancellable in-flight request for a session.
type sessionEntry struct {
	requestID int
	cancel    context.CancelFunc
}

// Server listens on a Unix domain socket for suggestion requests.
type Server struct {
	listener net.Listener
	sockPath string
	factory  HandlerFactory

	mu       sync.Mutex
	handler  Handler
	sessions map[string]sessionEntry
	closed   bool
}

// NewServer creates a server bound to sockPath that serves the user's configuration.
func NewServer(sockPath string) (*Server, error) {
	return NewServerWithFactory(sockPath, newService)
}

// newService builds the suggestion service from the config on disk.
func newService() Handler {
	cfg, err := commandy.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = commandy.DefaultConfig()
	}
	return suggest.NewService(cfg)
}

// NewServerWithFactory creates a server whose handler is built, and rebuilt
// on reload, by factory.
func NewServerWithFactory(sockPath string, factory HandlerFactory) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener: listener,
		sockPath: sockPath,
		factory:  factory,
		handler:  factory(),
		sessions: make(map[string]sessionEntry),
	}, nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the listener and handler and removes the socket file.
func (s *Server) Close() {
	s.listener.Close()
	os.Remove(s.sockPath)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for sid, entry := range s.sessions {
		entry.cancel()
		delete(s.sessions, sid)
	}
	if s.handler != nil {
		s.handler.Close()
		s.handler = nil
	}
}

// Reload rebuilds the handler from the current configuration.
// It does nothing once the server is closed.
func (s *Server) Reload() {
	if s.isClosed() {
		return
	}
	next := s.factory()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		next.Close()
		return
	}
	prev := s.handler
	s.handler = next
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	slog.Info("configuration reloaded")
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) currentHandler() Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return
	}

	raw := scanner.Bytes()
	slog.Debug("request", "data", string(raw))

	// Config requests carry an "action" field.
	var cfgReq commandy.ConfigRequest
	if err := json.Unmarshal(raw, &cfgReq); err == nil && cfgReq.Action != "" {
		writeJSON(conn, s.handleConfigRequest(&cfgReq))
		return
	}

	var req commandy.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("invalid request", "error", err)
		writeJSON(conn, &commandy.Response{
			Suggestions: []commandy.Suggestion{},
			Error:       &commandy.Error{Code: commandy.CodeInvalidRequest, Message: err.Error()},
		})
		return
	}

	// Cancel any in-flight request for this session and create a new context.
	ctx, cancel := context.WithCancel(context.Background())
	sid := req.SessionID
	reqID := req.RequestID
	if sid != "" {
		s.mu.Lock()
		if prev, ok := s.sessions[sid]; ok {
			prev.cancel()
		}
		s.sessions[sid] = sessionEntry{requestID: reqID, cancel: cancel}
		s.mu.Unlock()
	}
	defer func() {
		cancel()
		if sid != "" {
			s.mu.Lock()
			if cur, ok := s.sessions[sid]; ok && cur.requestID == reqID {
				delete(s.sessions, sid)
			}
			s.mu.Unlock()
		}
	}()

	h := s.currentHandler()
	if h == nil {
		return
	}
	resp := h.Handle(ctx, &req)

	// The client has moved on to a newer request.
	if ctx.Err() != nil {
		return
	}

	resp.RequestID = req.RequestID
	if resp.Suggestions == nil {
		resp.Suggestions = []commandy.Suggestion{}
	}
	writeJSON(conn, resp)
}

func (s *Server) handleConfigRequest(req *commandy.ConfigRequest) *commandy.ConfigResponse {
	var resp commandy.ConfigResponse

	switch req.Action {
	case "get":
		cfg, err := commandy.LoadConfig()
		if err != nil {
			resp.Error = &commandy.Error{Code: commandy.CodeConfigError, Message: err.Error()}
		} else {
			resp.Config = cfg
		}

	case "reload":
		cfg, err := commandy.LoadConfig()
		if err != nil {
			resp.Error = &commandy.Error{Code: commandy.CodeConfigError, Message: err.Error()}
			break
		}
		s.Reload()
		resp.Config = cfg

	case "defaults":
		resp.Config = commandy.DefaultConfig()

	case "default_prompt":
		resp.Prompt = defaults.DefaultPrompt

	case "validate":
		cfg, err := commandy.LoadConfig()
		if err != nil {
			resp.Error = &commandy.Error{Code: commandy.CodeConfigError, Message: err.Error()}
		} else {
			resp.Warnings = commandy.ValidateConfig(cfg)
		}

	default:
		resp.Error = &commandy.Error{
			Code:    commandy.CodeUnknownAction,
			Message: "unknown config action: " + req.Action,
		}
	}
	return &resp
}

func writeJSON(conn net.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		return
	}
	slog.Debug("response", "data", string(data))
	conn.Write(append(data, '\n'))
}
