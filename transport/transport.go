// Package transport contains the concrete Session implementations: a
// subprocess-pipe channel (stdio) and a streaming HTTP channel (sse). Both
// delegate the MCP wire protocol (framing, initialize handshake, tool calls)
// to mcp-go's client and adapt it to the core.Session contract and error
// taxonomy. The gateway and bridge stay transport-oblivious; all
// process-spawning and networking lives here.
package transport

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/athenabridge/config"
	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/logging"
)

// Identity presented to the memory server during initialize.
const (
	protocolVersion = "2024-11-05"
	clientName      = "athena-bridge"
	clientVersion   = "0.1.0"
)

// New selects the Session implementation for the configured transport. The
// returned session is disconnected; config validation has already rejected
// unknown transport values.
func New(cfg config.Config, logger logging.Logger) core.Session {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if cfg.Transport == core.TransportSSE {
		return NewSSESession(cfg, func(o *SSEOptions) { o.Logger = logger })
	}
	return NewStdioSession(cfg, func(o *StdioOptions) { o.Logger = logger })
}

func initializeRequest() mcp.InitializeRequest {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = protocolVersion
	req.Params.Capabilities = mcp.ClientCapabilities{}
	req.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: clientVersion}
	return req
}

func callRequest(tool string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args
	return req
}
