// Package bridge implements the auto-recall / auto-capture lifecycle
// controller. It subscribes to the host's two lifecycle events: on turn-start
// it queries the memory server and hands the host context to prepend, on
// turn-end it distills the conversation into a digest and persists it. All
// memory-subsystem faults degrade to "no memory effect this turn"; the
// primary agent turn is never failed or altered by this package.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/athenabridge/analyzer"
	"github.com/hupe1980/athenabridge/config"
	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/gateway"
	"github.com/hupe1980/athenabridge/logging"
	"github.com/hupe1980/athenabridge/transport"
)

// minPromptLength is the cost/noise guard: prompts at or below this length,
// counted in runes, never trigger a recall.
const minPromptLength = 10

// recallHeader opens the context block injected ahead of a turn.
const recallHeader = "Relevant memories from previous sessions:"

// TurnStartEvent is the host's pre-turn notification.
type TurnStartEvent struct {
	// Prompt is the user text that starts the turn.
	Prompt string
}

// TurnEndEvent is the host's post-turn notification.
type TurnEndEvent struct {
	// Success reports whether the turn itself completed.
	Success bool
	// Messages is the turn's full conversation history. The bridge reads it
	// during this callback and never retains it.
	Messages []core.Message
}

// Directive instructs the host to prepend context to the upcoming turn. A nil
// directive means the turn proceeds unaugmented.
type Directive struct {
	Context string
}

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// Session overrides the transport session, the natural seam for test
	// doubles. Defaults to the session selected by the configuration.
	Session core.Session
}

// Bridge wires the transport session, tool gateway and analyzer into the two
// lifecycle handlers. The session is turn-scoped: connected lazily on first
// use within a turn and disconnected unconditionally at turn-end, trading
// reconnect latency for guaranteed subprocess cleanup.
//
// The host dispatches turn-start and turn-end sequentially per agent session,
// so the bridge adds no locking of its own beyond what the session provides.
type Bridge struct {
	cfg     config.Config
	logger  logging.Logger
	session core.Session
	gateway *gateway.Gateway
}

// New constructs a Bridge from a validated configuration.
func New(cfg config.Config, optFns ...func(o *Options)) *Bridge {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	session := opts.Session
	if session == nil && cfg.Enabled {
		session = transport.New(cfg, opts.Logger)
	}

	b := &Bridge{cfg: cfg, logger: opts.Logger, session: session}
	if session != nil {
		b.gateway = gateway.New(session, func(o *gateway.Options) { o.Logger = opts.Logger })
	}
	return b
}

// Config returns the resolved configuration the bridge runs with.
func (b *Bridge) Config() config.Config { return b.cfg }

// Start logs process-wide initialization. It holds no state; the session
// lifecycle is owned entirely by the turn handlers.
func (b *Bridge) Start() {
	b.logger.Info("athena bridge started",
		"enabled", b.cfg.Enabled,
		"transport", string(b.cfg.Transport),
		"tool_prefix", b.cfg.ToolPrefix,
	)
}

// Stop logs process-wide teardown.
func (b *Bridge) Stop() {
	b.logger.Info("athena bridge stopped")
}

// TurnStart implements auto-recall. It returns a prepend-context directive
// when at least one sufficiently relevant memory is found and nil in every
// other case: short prompt, connection failure, remote fault, malformed
// payload or an empty candidate set. Recall failure is never fatal to the
// turn.
func (b *Bridge) TurnStart(ctx context.Context, ev TurnStartEvent) *Directive {
	if !b.cfg.Enabled {
		return nil
	}
	prompt := strings.TrimSpace(ev.Prompt)
	if promptLen := utf8.RuneCountInString(prompt); promptLen <= minPromptLength {
		b.logger.Debug("recall skipped, prompt below threshold", "length", promptLen)
		return nil
	}

	start := time.Now()
	if err := b.session.Connect(ctx); err != nil {
		b.logger.Warn("recall skipped, connect failed", "error", err.Error())
		return nil
	}

	res := b.gateway.Search(ctx, prompt, b.cfg.SearchLimit, false, false)
	if res.IsError {
		b.logger.Warn("recall search failed", "detail", res.Text())
		return nil
	}

	candidates := parseSearchResults(res.Text())
	relevant := candidates[:0]
	for _, c := range candidates {
		if c.Score > b.cfg.MinRelevance {
			relevant = append(relevant, c)
		}
	}
	if len(relevant) == 0 {
		b.logger.Debug("recall produced no relevant memories",
			"candidates", len(candidates),
			"duration", time.Since(start).String(),
		)
		return nil
	}

	b.logger.Info("recall injecting context",
		"memories", len(relevant),
		"duration", time.Since(start).String(),
	)
	return &Directive{Context: formatRecall(relevant)}
}

// TurnEnd implements auto-capture. Unsuccessful or empty turns and turns
// below the exchange threshold are not persisted. Whatever happens, the
// session ends this call disconnected.
func (b *Bridge) TurnEnd(ctx context.Context, ev TurnEndEvent) {
	if !b.cfg.Enabled {
		return
	}
	defer b.session.Disconnect()

	if !ev.Success || len(ev.Messages) == 0 {
		return
	}
	if !analyzer.HasEnoughExchanges(ev.Messages, b.cfg.MinExchanges) {
		b.logger.Debug("capture skipped, not enough exchanges")
		return
	}

	digest := analyzer.Analyze(ev.Messages)
	if err := b.session.Connect(ctx); err != nil {
		b.logger.Warn("capture skipped, connect failed", "error", err.Error())
		return
	}

	res := b.gateway.Save(ctx, digest.Summary, digest.KeyFacts)
	if res.IsError {
		b.logger.Warn("capture save failed", "detail", res.Text())
		return
	}
	b.logger.Info("capture saved", "facts", len(digest.KeyFacts))
}

// parseSearchResults pulls scored candidates out of the search reply's
// JSON-encoded text payload. The peer is not trusted: invalid JSON or an
// unexpected shape yields an empty set, never an error.
func parseSearchResults(payload string) []core.SearchResult {
	if !gjson.Valid(payload) {
		return nil
	}
	items := gjson.Get(payload, "results.results")
	if !items.IsArray() {
		return nil
	}
	var results []core.SearchResult
	items.ForEach(func(_, item gjson.Result) bool {
		results = append(results, core.SearchResult{
			ID:      item.Get("id").String(),
			Content: item.Get("content").String(),
			Score:   item.Get("rrf_score").Float(),
		})
		return true
	})
	return results
}

// formatRecall renders relevant memories as scored lines under a fixed
// header, ready to prepend to the turn.
func formatRecall(results []core.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(recallHeader)
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("\n- [%.1f%%] %s", r.Score*100, strings.TrimSpace(r.Content)))
	}
	return sb.String()
}
