package main

import (
	"fmt"
	"os"
	"testing"
)

func TestResolveSocketPath(t *testing.T) {
	tests := []struct {
		name     string
		socket   string
		runtime  string
		expected string
	}{
		{"COMMANDY_SOCKET", "/custom/commandy.sock", "/run/user/1000", "/custom/commandy.sock"},
		{"XDG_RUNTIME_DIR", "", "/run/user/1000", "/run/user/1000/commandy.sock"},
		{"fallback", "", "", fmt.Sprintf("/tmp/commandy-%d.sock", os.Getuid())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COMMANDY_SOCKET", tt.socket)
			t.Setenv("XDG_RUNTIME_DIR", tt.runtime)
			if got := resolveSocketPath(); got != tt.expected {
				t.Errorf("resolveSocketPath() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestNewServerRemovesStaleSocket(t *testing.T) {
	sockPath := fmt.Sprintf("/tmp/commandy-stale-%d.sock", os.Getpid())
	if err := os.WriteFile(sockPath, nil, 0600); err != nil {
		t.Fatal(err)
	}
	srv, err := NewServerWithFactory(sockPath, stubFactory(&stubHandler{}))
	if err != nil {
		t.Fatalf("expected stale socket to be replaced: %v", err)
	}
	srv.Close()
	if _, err := os.Stat(sockPath); !os.IsNotExist(err) {
		t.Errorf("expected socket file to be removed on close, got %v", err)
	}
}
