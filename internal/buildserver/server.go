// SPDX-License-Identifier: MPL-2.0

package buildserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
)

const (
	// StateCreated indicates the server has been created but not started.
	StateCreated ServerState = iota
	// StateStarting indicates the server is in the process of starting.
	StateStarting
	// StateRunning indicates the server is running and accepting connections.
	StateRunning
	// StateStopping indicates the server is shutting down.
	StateStopping
	// StateStopped indicates the server has stopped (terminal state).
	StateStopped
	// StateFailed indicates the server failed to start or encountered a fatal error (terminal state).
	StateFailed
)

type (
	// ServerState represents the lifecycle state of the server.
	ServerState int32

	// Token represents an authentication token for a build client.
	Token struct {
		Value     TokenValue
		CreatedAt time.Time
		ExpiresAt time.Time
		ClientID  string
	}

	// BuildRequest is a build trigger parsed from a session command.
	BuildRequest struct {
		// ContextDir is the source tree to build, resolved on the server host.
		ContextDir string
		// Tag overrides the computed image tag when non-empty.
		Tag string
		// NoCache forces a rebuild even when a cached image exists.
		NoCache bool
	}

	// BuildFunc executes a build, streaming engine output to out.
	BuildFunc func(ctx context.Context, req BuildRequest, out io.Writer) error

	// Server is the SSH endpoint for remote build triggers.
	// A Server instance is single-use: once stopped or failed, create a new instance.
	Server struct {
		// Immutable configuration (set at creation, never modified)
		cfg   Config
		build BuildFunc

		// State management (atomic for lock-free reads)
		state atomic.Int32

		// Initialized during Start() - protected by stateMu for writes
		stateMu  sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		addr     string // Actual bound address (including resolved port)

		// Lifecycle management
		ctx       context.Context
		cancel    context.CancelFunc
		wg        sync.WaitGroup
		startedCh chan struct{} // Closed when server is ready to accept connections
		errCh     chan error    // Receives fatal errors from background goroutines
		lastErr   error         // Stores the last error for State() == StateFailed

		// One build at a time.
		buildMu sync.Mutex

		// Token management
		tokens  map[TokenValue]*Token
		tokenMu sync.RWMutex

		// Logger
		logger *log.Logger
	}

	// Config holds immutable configuration for the build server.
	Config struct {
		// Host is the address to bind to (default: 127.0.0.1)
		Host HostAddress
		// Port is the port to listen on (0 = auto-select)
		Port ListenPort
		// TokenTTL is how long tokens are valid (default: 1 hour)
		TokenTTL time.Duration
		// ShutdownTimeout is the timeout for graceful shutdown (default: 10s)
		ShutdownTimeout time.Duration
		// StartupTimeout is the max time to wait for server to be ready (default: 5s)
		StartupTimeout time.Duration
	}

	// ConnectionInfo contains what a build client needs to connect.
	ConnectionInfo struct {
		Host     HostAddress
		Port     int
		Token    TokenValue
		ExpireAt time.Time
	}
)

// String returns a human-readable representation of the server state.
func (s ServerState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            0,
		TokenTTL:        time.Hour,
		ShutdownTimeout: 10 * time.Second,
		StartupTimeout:  5 * time.Second,
	}
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Host.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Port.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidServerConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// New creates a new build server instance around a build function.
// The server is not started; call Start() to begin accepting connections.
func New(build BuildFunc, cfg Config) (*Server, error) {
	if build == nil {
		return nil, errors.New("build function must not be nil")
	}

	// Apply defaults
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = 5 * time.Second
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, errs[0]
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "build-server",
	})

	s := &Server{
		cfg:       cfg,
		build:     build,
		tokens:    make(map[TokenValue]*Token),
		startedCh: make(chan struct{}),
		errCh:     make(chan error, 1), // Buffered so goroutines don't block
		logger:    logger,
	}
	s.state.Store(int32(StateCreated))

	return s, nil
}

// Start starts the build server and blocks until either:
//   - The server is ready to accept connections (returns nil)
//   - The server fails to start (returns error)
//   - The context is cancelled (returns context error)
//   - The startup timeout is exceeded (returns error)
//
// After Start() returns nil, use Err() to monitor for runtime errors.
func (s *Server) Start(ctx context.Context) error {
	// Check for already-cancelled context BEFORE any setup.
	// This prevents a race condition where the serve goroutine could transition
	// to StateRunning before the cancelled context is detected in the select.
	select {
	case <-ctx.Done():
		s.transitionToFailed(fmt.Errorf("context cancelled before start: %w", ctx.Err()))
		return s.lastErr
	default:
	}

	// Transition: Created -> Starting
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		currentState := ServerState(s.state.Load())
		return fmt.Errorf("cannot start server in state %s", currentState)
	}

	// Create internal context for lifecycle management
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// Setup timeout for startup
	startupCtx, startupCancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer startupCancel()

	// Initialize listener
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", addr)
	if err != nil {
		s.transitionToFailed(fmt.Errorf("failed to listen on %s: %w", addr, err))
		return s.lastErr
	}

	s.stateMu.Lock()
	s.listener = listener
	s.addr = listener.Addr().String()
	s.stateMu.Unlock()

	srv, err := wish.NewServer(
		wish.WithAddress(addr),
		wish.WithPublicKeyAuth(s.publicKeyHandler),
		wish.WithPasswordAuth(s.passwordHandler),
		wish.WithMiddleware(
			s.buildMiddleware(),
		),
	)
	if err != nil {
		_ = listener.Close() // Best-effort cleanup on error
		s.transitionToFailed(fmt.Errorf("failed to create SSH server: %w", err))
		return s.lastErr
	}

	s.stateMu.Lock()
	s.srv = srv
	s.stateMu.Unlock()

	// Start the serve goroutine
	s.wg.Add(1)
	go s.serve()

	// Start token cleanup goroutine
	s.wg.Add(1)
	go s.cleanupExpiredTokens()

	// Wait for server to be ready or fail
	select {
	case <-s.startedCh:
		s.logger.Info("build server started", "address", s.addr)
		return nil

	case err := <-s.errCh:
		// Server failed during startup
		s.transitionToFailed(err)
		return err

	case <-startupCtx.Done():
		// Startup timeout or caller cancelled
		s.cancel() // Stop any background work
		s.transitionToFailed(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		return s.lastErr
	}
}

// Stop gracefully stops the build server.
// It blocks until all connections are closed or the shutdown timeout is reached.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *Server) Stop() error {
	// Only proceed if we're in a stoppable state
	for {
		currentState := ServerState(s.state.Load())
		switch currentState {
		case StateStopped, StateFailed:
			return nil // Already stopped
		case StateCreated:
			if s.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return nil // Never started
			}
			continue // State changed, retry
		case StateStopping:
			// Wait for ongoing stop to complete
			s.wg.Wait()
			return nil
		case StateStarting, StateRunning:
			// Transition to Stopping
			if !s.state.CompareAndSwap(int32(currentState), int32(StateStopping)) {
				continue // State changed, retry
			}
			return s.doStop()
		default:
			return fmt.Errorf("unknown server state: %d", currentState)
		}
	}
}

// Err returns a channel that receives fatal server errors.
// Use this to monitor for unexpected failures after Start() returns.
// The channel is closed when the server stops.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// State returns the current server state.
func (s *Server) State() ServerState {
	return ServerState(s.state.Load())
}

// IsRunning returns whether the server is currently running and accepting connections.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Address returns the server's bound address (host:port).
// Blocks until the server has started or failed.
// Returns empty string if server never started or failed.
func (s *Server) Address() string {
	select {
	case <-s.startedCh:
		s.stateMu.Lock()
		defer s.stateMu.Unlock()
		return s.addr
	case <-s.ctx.Done():
		return ""
	}
}

// Port returns the server's listening port.
// Blocks until the server has started or failed.
// Returns 0 if server never started or failed.
func (s *Server) Port() int {
	addr := s.Address()
	if addr == "" {
		return 0
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 0 // Invalid port string
	}
	return port
}

// Host returns the server's configured host address.
func (s *Server) Host() HostAddress {
	return s.cfg.Host
}

// Wait blocks until the server stops (either gracefully or due to error).
// Returns the error if the server failed, nil otherwise.
func (s *Server) Wait() error {
	s.wg.Wait()

	if s.State() == StateFailed {
		return s.lastErr
	}
	return nil
}

// GenerateToken creates a new authentication token for a build client.
func (s *Server) GenerateToken(clientID string) (*Token, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	tokenValue := TokenValue(hex.EncodeToString(tokenBytes))
	now := time.Now()

	token := &Token{
		Value:     tokenValue,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TokenTTL),
		ClientID:  clientID,
	}

	s.tokenMu.Lock()
	s.tokens[tokenValue] = token
	s.tokenMu.Unlock()

	s.logger.Debug("generated token", "clientID", clientID)

	return token, nil
}

// ValidateToken checks if a token is valid.
func (s *Server) ValidateToken(tokenValue TokenValue) (*Token, bool) {
	s.tokenMu.RLock()
	token, exists := s.tokens[tokenValue]
	s.tokenMu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Now().After(token.ExpiresAt) {
		s.RevokeToken(tokenValue)
		return nil, false
	}

	return token, true
}

// RevokeToken invalidates a token.
func (s *Server) RevokeToken(tokenValue TokenValue) {
	s.tokenMu.Lock()
	delete(s.tokens, tokenValue)
	s.tokenMu.Unlock()
}

// RevokeTokensForClient revokes all tokens for a specific client.
func (s *Server) RevokeTokensForClient(clientID string) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	for tokenValue, token := range s.tokens {
		if token.ClientID == clientID {
			delete(s.tokens, tokenValue)
		}
	}
}

// GetConnectionInfo mints a token and returns connection information for
// a build client. Returns an error if the server is not running.
func (s *Server) GetConnectionInfo(clientID string) (*ConnectionInfo, error) {
	if !s.IsRunning() {
		return nil, fmt.Errorf("build server is not running (state: %s)", s.State())
	}

	token, err := s.GenerateToken(clientID)
	if err != nil {
		return nil, err
	}

	return &ConnectionInfo{
		Host:     s.cfg.Host,
		Port:     s.Port(),
		Token:    token.Value,
		ExpireAt: token.ExpiresAt,
	}, nil
}

// serve runs the SSH server and handles errors.
func (s *Server) serve() {
	defer s.wg.Done()

	// Transition: Starting -> Running (signals readiness)
	if s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(s.startedCh)
	}

	s.stateMu.Lock()
	srv := s.srv
	listener := s.listener
	s.stateMu.Unlock()

	if srv == nil || listener == nil {
		return
	}

	err := srv.Serve(listener)
	if err != nil {
		// Ignore expected shutdown errors
		if errors.Is(err, ssh.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			return
		}

		// Report unexpected errors
		select {
		case s.errCh <- fmt.Errorf("serve error: %w", err):
		default:
			// Error channel full, log instead
			s.logger.Error("build server error (channel full)", "error", err)
		}
	}
}

// doStop performs the actual shutdown logic.
func (s *Server) doStop() error {
	// Signal all goroutines to stop
	if s.cancel != nil {
		s.cancel()
	}

	// Shutdown SSH server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	s.stateMu.Lock()
	if s.srv != nil {
		shutdownErr = s.srv.Shutdown(shutdownCtx)
		if shutdownErr != nil && !isClosedConnError(shutdownErr) {
			s.logger.Error("shutdown error", "error", shutdownErr)
		} else {
			shutdownErr = nil
		}
	}
	if s.listener != nil {
		_ = s.listener.Close() // Best-effort cleanup during shutdown
	}
	s.stateMu.Unlock()

	// Wait for all goroutines to exit
	s.wg.Wait()

	// Transition to Stopped
	s.state.Store(int32(StateStopped))
	s.logger.Info("build server stopped")

	// Close error channel to signal consumers
	close(s.errCh)

	return shutdownErr
}

// transitionToFailed sets the server state to Failed and stores the error.
func (s *Server) transitionToFailed(err error) {
	s.lastErr = err
	s.state.Store(int32(StateFailed))
	if s.cancel != nil {
		s.cancel()
	}
	// Send error to channel for Err() consumers (non-blocking)
	select {
	case s.errCh <- err:
	default:
	}
}

// cleanupExpiredTokens periodically removes expired tokens.
func (s *Server) cleanupExpiredTokens() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tokenMu.Lock()
			now := time.Now()
			for tokenValue, token := range s.tokens {
				if now.After(token.ExpiresAt) {
					delete(s.tokens, tokenValue)
				}
			}
			s.tokenMu.Unlock()
		}
	}
}

// passwordHandler handles password authentication using tokens.
func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	token, valid := s.ValidateToken(TokenValue(password))
	if !valid {
		s.logger.Warn("invalid token authentication attempt", "user", ctx.User())
		return false
	}

	ctx.SetValue("clientID", token.ClientID)

	s.logger.Debug("token authentication successful", "clientID", token.ClientID)
	return true
}

// publicKeyHandler rejects all public key authentication.
// Only token-based password auth is accepted.
func (s *Server) publicKeyHandler(ctx ssh.Context, key ssh.PublicKey) bool {
	return false
}

// buildMiddleware executes build triggers from session commands.
func (s *Server) buildMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			req, err := ParseBuildCommand(sess.Command())
			if err != nil {
				_, _ = fmt.Fprintf(sess.Stderr(), "Error: %v\n", err)
				_ = sess.Exit(2) //nolint:errcheck // Terminal operation; error non-critical
				return
			}

			if !s.buildMu.TryLock() {
				_, _ = fmt.Fprintln(sess.Stderr(), "Error: a build is already in progress")
				_ = sess.Exit(1) //nolint:errcheck // Terminal operation; error non-critical
				return
			}
			defer s.buildMu.Unlock()

			s.logger.Info("build triggered", "context", req.ContextDir, "tag", req.Tag)

			if err := s.build(sess.Context(), *req, sess); err != nil {
				_, _ = fmt.Fprintf(sess.Stderr(), "Error: %v\n", err)
				_ = sess.Exit(1) //nolint:errcheck // Terminal operation; error non-critical
				return
			}
			_ = sess.Exit(0) //nolint:errcheck // Terminal operation; error non-critical
		}
	}
}

// ParseBuildCommand parses a session command of the form
//
//	build [--no-cache] <context-dir> [tag]
//
// into a BuildRequest.
func ParseBuildCommand(args []string) (*BuildRequest, error) {
	if len(args) == 0 || args[0] != "build" {
		return nil, errors.New(`expected a command of the form "build [--no-cache] <context-dir> [tag]"`)
	}

	req := &BuildRequest{}
	positional := make([]string, 0, 2)
	for _, arg := range args[1:] {
		switch {
		case arg == "--no-cache":
			req.NoCache = true
		case len(arg) > 1 && arg[0] == '-':
			return nil, fmt.Errorf("unknown build flag %q", arg)
		default:
			positional = append(positional, arg)
		}
	}

	switch len(positional) {
	case 1:
		req.ContextDir = positional[0]
	case 2:
		req.ContextDir = positional[0]
		req.Tag = positional[1]
	default:
		return nil, fmt.Errorf("expected a context directory and optional tag, got %d arguments", len(positional))
	}

	return req, nil
}

// isClosedConnError checks if the error is a "use of closed network connection" error.
func isClosedConnError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Err.Error() == "use of closed network connection"
	}
	return false
}
