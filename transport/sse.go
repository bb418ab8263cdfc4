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

// SSEOptions holds overrides passed to NewSSESession.
type SSEOptions struct {
	// Logger for connection lifecycle events. Defaults to NoOpLogger.
	Logger logging.Logger
	// CallTimeout bounds the handshake and each remote invocation.
	CallTimeout time.Duration
}

// SSESession reaches an already running memory server over HTTP: an SSE
// stream carries server messages, tool calls are POSTed to the endpoint the
// stream announces. mcp-go's client owns the stream; this type adapts it to
// the core.Session contract and error taxonomy.
type SSESession struct {
	url         string
	callTimeout time.Duration
	logger      logging.Logger

	mu        sync.Mutex
	client    *client.Client
	connected bool
}

// NewSSESession builds a disconnected sse session from the bridge
// configuration.
func NewSSESession(cfg config.Config, optFns ...func(o *SSEOptions)) *SSESession {
	opts := SSEOptions{
		Logger:      logging.NoOpLogger{},
		CallTimeout: 30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SSESession{
		url:         cfg.SSEURL,
		callTimeout: opts.CallTimeout,
		logger:      opts.Logger,
	}
}

// Connect opens the event stream and performs the handshake. Already
// connected sessions return immediately.
func (s *SSESession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}

	c, err := client.NewSSEMCPClient(s.url)
	if err != nil {
		return &core.ConnectionError{Transport: core.TransportSSE, Cause: err}
	}

	// Start gets the caller's context: the stream it opens must outlive this
	// call, and mcp-go bounds the endpoint wait internally. The handshake
	// round-trip gets the per-call deadline.
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return &core.ConnectionError{Transport: core.TransportSSE, Cause: err}
	}
	hctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if _, err := c.Initialize(hctx, initializeRequest()); err != nil {
		_ = c.Close()
		return &core.ConnectionError{Transport: core.TransportSSE, Cause: err}
	}

	s.client = c
	s.connected = true
	s.logger.Debug("memory server endpoint connected", "url", s.url)
	return nil
}

// Disconnect drops the stream and handshake state. Safe to call in any
// state, any number of times.
func (s *SSESession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		_ = s.client.Close()
	}
	s.client = nil
	s.connected = false
}

// IsConnected reports the current status.
func (s *SSESession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Invoke forwards a tool call to the endpoint. The result is re-serialized
// to the wire envelope so callers stay decoupled from mcp-go's types.
func (s *SSESession) Invoke(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, &core.NotConnectedError{Transport: core.TransportSSE}
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

var _ core.Session = (*SSESession)(nil)
