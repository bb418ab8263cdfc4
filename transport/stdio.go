package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"

	"github.com/hupe1980/athenabridge/config"
	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/logging"
)

// defaultServerModule is the Python module the interpreter runs to serve the
// memory catalog over stdio.
const defaultServerModule = "athena.mcp_server"

// StdioOptions holds overrides passed to NewStdioSession.
type StdioOptions struct {
	// Logger for connection lifecycle events. Defaults to NoOpLogger.
	Logger logging.Logger
	// CallTimeout bounds the handshake and each remote invocation.
	CallTimeout time.Duration
	// ServerModule is the Python module spawned as the memory server.
	ServerModule string
}

// StdioSession reaches the memory server by spawning it as a subprocess and
// speaking MCP over its stdin/stdout pipes. The interpreter's module search
// path is injected via PYTHONPATH, derived from the configured project
// directory; `-m` resolution does not depend on the working directory.
//
// The subprocess is spawned fresh per Connect and reaped on every Disconnect
// path, including handshake failures; a session never holds a half-dead
// process handle.
type StdioSession struct {
	pythonPath   string
	modulePath   string
	serverModule string
	callTimeout  time.Duration
	logger       logging.Logger

	mu        sync.Mutex
	client    *client.Client
	connected bool
}

// NewStdioSession builds a disconnected stdio session from the bridge
// configuration.
func NewStdioSession(cfg config.Config, optFns ...func(o *StdioOptions)) *StdioSession {
	opts := StdioOptions{
		Logger:       logging.NoOpLogger{},
		CallTimeout:  30 * time.Second,
		ServerModule: defaultServerModule,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &StdioSession{
		pythonPath:   cfg.PythonPath,
		modulePath:   cfg.ModulePath(),
		serverModule: opts.ServerModule,
		callTimeout:  opts.CallTimeout,
		logger:       opts.Logger,
	}
}

// Connect spawns the server subprocess and performs the handshake. Already
// connected sessions return immediately.
func (s *StdioSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}

	c, err := client.NewStdioMCPClient(
		s.pythonPath,
		[]string{"PYTHONPATH=" + s.modulePath},
		"-m", s.serverModule,
	)
	if err != nil {
		return &core.ConnectionError{Transport: core.TransportStdio, Cause: err}
	}

	// The handshake gets the same deadline as any other call: a spawned
	// server that stays silent must not stall the caller's turn, and the
	// failure path must reap rather than leave the process behind.
	hctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if _, err := c.Initialize(hctx, initializeRequest()); err != nil {
		_ = c.Close()
		return &core.ConnectionError{Transport: core.TransportStdio, Cause: err}
	}

	s.client = c
	s.connected = true
	s.logger.Debug("memory server subprocess connected", "python", s.pythonPath, "module_path", s.modulePath)
	return nil
}

// Disconnect reaps the subprocess and clears handshake state. Safe to call in
// any state, any number of times.
func (s *StdioSession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		_ = s.client.Close()
		s.logger.Debug("memory server subprocess reaped")
	}
	s.client = nil
	s.connected = false
}

// IsConnected reports the current status.
func (s *StdioSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Invoke forwards a tool call over the pipes. The result is re-serialized to
// the wire envelope so callers stay decoupled from mcp-go's types.
func (s *StdioSession) Invoke(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, &core.NotConnectedError{Transport: core.TransportStdio}
	}

	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	res, err := s.client.CallTool(ctx, callRequest(tool, args))
	if err != nil {
		return nil, &core.RemoteInvocationError{Tool: tool, Cause: err}
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, &core.RemoteInvocationError{Tool: tool, Cause: err}
	}
	return raw, nil
}

var _ core.Session = (*StdioSession)(nil)
