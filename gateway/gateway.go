// Package gateway provides the typed facade over a transport session. It maps
// bridge-level intents (search, save, recall, list, health) onto the memory
// server's fixed tool catalog and normalizes every reply into a uniform
// result-or-error envelope.
//
// Errors are data here: transport and peer faults never escape CallTool as a
// returned error, they become a ToolResult with the error flag set and a
// single diagnostic block. Callers treat every tool call uniformly without
// error handling at each call site.
package gateway

import (
	"context"
	"encoding/json"

	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/logging"
)

// Remote tool catalog exposed by the memory server.
const (
	ToolSmartSearch     = "smart_search"
	ToolQuicksave       = "quicksave"
	ToolRecallSession   = "recall_session"
	ToolListMemoryPaths = "list_memory_paths"
	ToolHealthCheck     = "health_check"
)

// Options holds overrides passed to New.
type Options struct {
	// Logger records invocation failures at debug level; the caller decides
	// how loudly to surface them. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Gateway wraps a core.Session with the catalog mapping and reply
// normalization. It is stateless beyond its wiring and adds no locking; the
// session's own discipline applies.
type Gateway struct {
	session core.Session
	logger  logging.Logger
}

// New creates a Gateway over the given session.
func New(session core.Session, optFns ...func(o *Options)) *Gateway {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{session: session, logger: opts.Logger}
}

// toolReply mirrors the peer's call-result envelope: ordered content blocks
// plus an error flag.
type toolReply struct {
	Content []json.RawMessage `json:"content"`
	IsError bool              `json:"isError"`
}

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallTool invokes a remote tool and always returns a ToolResult. Non-text
// blocks in the reply are serialized to their textual representation rather
// than dropped, so no information is lost across the boundary.
func (g *Gateway) CallTool(ctx context.Context, name string, args map[string]any) core.ToolResult {
	raw, err := g.session.Invoke(ctx, name, args)
	if err != nil {
		g.logger.Debug("tool invocation failed", "tool", name, "error", err)
		return core.ErrorResult(err.Error())
	}
	return normalize(raw)
}

// normalize converts a raw peer payload into a ToolResult. Payloads that do
// not match the expected envelope are preserved verbatim as a single text
// block; the peer is opaque and must be tolerated, not trusted.
func normalize(raw json.RawMessage) core.ToolResult {
	var reply toolReply
	if err := json.Unmarshal(raw, &reply); err != nil || reply.Content == nil {
		return core.TextResult(string(raw))
	}

	blocks := make([]core.TextBlock, 0, len(reply.Content))
	for _, rawBlock := range reply.Content {
		var tb textBlock
		if err := json.Unmarshal(rawBlock, &tb); err == nil && tb.Type == "text" {
			blocks = append(blocks, core.TextBlock{Text: tb.Text})
			continue
		}
		blocks = append(blocks, core.TextBlock{Text: string(rawBlock)})
	}
	return core.ToolResult{Content: blocks, IsError: reply.IsError}
}

// Search queries the memory server for records relevant to query.
func (g *Gateway) Search(ctx context.Context, query string, limit int, strict, rerank bool) core.ToolResult {
	return g.CallTool(ctx, ToolSmartSearch, map[string]any{
		"query":  query,
		"limit":  limit,
		"strict": strict,
		"rerank": rerank,
	})
}

// Save persists a turn digest. A nil bullets slice is forwarded as an
// explicit null, which the peer treats as "summary only".
func (g *Gateway) Save(ctx context.Context, summary string, bullets []string) core.ToolResult {
	args := map[string]any{"summary": summary}
	if bullets == nil {
		args["bullets"] = nil
	} else {
		args["bullets"] = bullets
	}
	return g.CallTool(ctx, ToolQuicksave, args)
}

// Recall fetches the tail of the peer's session log.
func (g *Gateway) Recall(ctx context.Context, lines int) core.ToolResult {
	return g.CallTool(ctx, ToolRecallSession, map[string]any{"lines": lines})
}

// ListPaths lists the peer's memory storage locations.
func (g *Gateway) ListPaths(ctx context.Context) core.ToolResult {
	return g.CallTool(ctx, ToolListMemoryPaths, map[string]any{})
}

// Health runs the peer's self check.
func (g *Gateway) Health(ctx context.Context) core.ToolResult {
	return g.CallTool(ctx, ToolHealthCheck, map[string]any{})
}
