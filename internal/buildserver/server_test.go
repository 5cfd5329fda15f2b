// SPDX-License-Identifier: MPL-2.0

package buildserver

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func noopBuild(ctx context.Context, req BuildRequest, out io.Writer) error {
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(noopBuild, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func TestNewRejectsNilBuildFunc(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, DefaultConfig()); err == nil {
		t.Error("New(nil, ...) should fail")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Port = 70000
	_, err := New(noopBuild, cfg)
	if err == nil {
		t.Fatal("expected config validation error")
	}
	if !errors.Is(err, ErrInvalidServerConfig) {
		t.Errorf("error = %v, want ErrInvalidServerConfig", err)
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	token, err := srv.GenerateToken("orchestrator-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if token.Value == "" {
		t.Error("Token value should not be empty")
	}
	if token.ClientID != "orchestrator-1" {
		t.Errorf("ClientID = %q, want %q", token.ClientID, "orchestrator-1")
	}
	if token.ExpiresAt.Before(time.Now()) {
		t.Error("Token should not be expired immediately")
	}
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	token, err := srv.GenerateToken("orchestrator-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	// Valid token
	validated, ok := srv.ValidateToken(token.Value)
	if !ok {
		t.Error("Token should be valid")
	}
	if validated.ClientID != "orchestrator-1" {
		t.Errorf("ClientID = %q, want %q", validated.ClientID, "orchestrator-1")
	}

	// Invalid token
	_, ok = srv.ValidateToken("invalid-token")
	if ok {
		t.Error("Invalid token should not be valid")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.TokenTTL = -time.Minute
	srv, err := New(noopBuild, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	token, err := srv.GenerateToken("orchestrator-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, ok := srv.ValidateToken(token.Value); ok {
		t.Error("Expired token should not validate")
	}
}

func TestRevokeToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	token, err := srv.GenerateToken("orchestrator-1")
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	if _, ok := srv.ValidateToken(token.Value); !ok {
		t.Error("Token should be valid before revocation")
	}

	srv.RevokeToken(token.Value)

	if _, ok := srv.ValidateToken(token.Value); ok {
		t.Error("Token should be invalid after revocation")
	}
}

func TestRevokeTokensForClient(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	token1, _ := srv.GenerateToken("client-1")
	token2, _ := srv.GenerateToken("client-1")
	token3, _ := srv.GenerateToken("client-2")

	srv.RevokeTokensForClient("client-1")

	if _, ok := srv.ValidateToken(token1.Value); ok {
		t.Error("token1 should be invalid after revocation")
	}
	if _, ok := srv.ValidateToken(token2.Value); ok {
		t.Error("token2 should be invalid after revocation")
	}
	if _, ok := srv.ValidateToken(token3.Value); !ok {
		t.Error("token3 should still be valid")
	}
}

func TestServerLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	if srv.State() != StateCreated {
		t.Errorf("State() = %s, want created", srv.State())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.State() != StateRunning {
		t.Errorf("State() = %s, want running", srv.State())
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	addr := srv.Address()
	if addr == "" {
		t.Error("Address() should be non-empty while running")
	}
	if !strings.HasPrefix(addr, "127.0.0.1:") {
		t.Errorf("Address() = %q, want 127.0.0.1 binding", addr)
	}
	if srv.Port() == 0 {
		t.Error("Port() should be resolved after auto-select")
	}

	info, err := srv.GetConnectionInfo("orchestrator-1")
	if err != nil {
		t.Fatalf("GetConnectionInfo() error = %v", err)
	}
	if info.Host != srv.Host() || info.Port != srv.Port() {
		t.Errorf("ConnectionInfo = %+v, want host %s port %d", info, srv.Host(), srv.Port())
	}
	if valid, _ := info.Token.IsValid(); !valid {
		t.Error("minted token should be non-empty")
	}

	if err := srv.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if srv.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", srv.State())
	}

	// Stop is idempotent.
	if err := srv.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestStartWithCancelledContext(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := srv.Start(ctx); err == nil {
		t.Fatal("Start() with cancelled context should fail")
	}
	if srv.State() != StateFailed {
		t.Errorf("State() = %s, want failed", srv.State())
	}
}

func TestStartTwice(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = srv.Stop() }()

	if err := srv.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestStopNeverStarted(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	if err := srv.Stop(); err != nil {
		t.Errorf("Stop() on created server error = %v", err)
	}
	if srv.State() != StateStopped {
		t.Errorf("State() = %s, want stopped", srv.State())
	}
}

func TestGetConnectionInfoNotRunning(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	if _, err := srv.GetConnectionInfo("orchestrator-1"); err == nil {
		t.Error("GetConnectionInfo() should fail before Start")
	}
}

func TestServerStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state ServerState
		want  string
	}{
		{StateCreated, "created"},
		{StateStarting, "starting"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{StateStopped, "stopped"},
		{StateFailed, "failed"},
		{ServerState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ServerState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestParseBuildCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    BuildRequest
		wantErr bool
	}{
		{
			name: "context only",
			args: []string{"build", "/srv/app"},
			want: BuildRequest{ContextDir: "/srv/app"},
		},
		{
			name: "context and tag",
			args: []string{"build", "/srv/app", "registry.example.com/app:v1"},
			want: BuildRequest{ContextDir: "/srv/app", Tag: "registry.example.com/app:v1"},
		},
		{
			name: "no-cache flag",
			args: []string{"build", "--no-cache", "/srv/app"},
			want: BuildRequest{ContextDir: "/srv/app", NoCache: true},
		},
		{
			name: "flag after context",
			args: []string{"build", "/srv/app", "--no-cache"},
			want: BuildRequest{ContextDir: "/srv/app", NoCache: true},
		},
		{name: "empty", args: nil, wantErr: true},
		{name: "wrong verb", args: []string{"run", "/srv/app"}, wantErr: true},
		{name: "missing context", args: []string{"build"}, wantErr: true},
		{name: "too many arguments", args: []string{"build", "a", "b", "c"}, wantErr: true},
		{name: "unknown flag", args: []string{"build", "--squash", "/srv/app"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseBuildCommand(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBuildCommand() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("ParseBuildCommand() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
