package bridge

import (
	"context"

	"github.com/go-viper/mapstructure/v2"

	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/gateway"
)

// ActionResult is the host-facing reply of an invocable action: the ordered
// content blocks, the error flag and the flattened text.
type ActionResult struct {
	Content []core.TextBlock `json:"content"`
	IsError bool             `json:"isError"`
	Text    string           `json:"text"`
}

// ActionFunc executes one named action with the host's argument object.
type ActionFunc func(ctx context.Context, args map[string]any) ActionResult

// Action is one invocable entry of the host-facing surface, named after its
// remote tool with the configured prefix applied.
type Action struct {
	Name        string
	Description string
	Run         ActionFunc
}

// SearchArgs are the arguments of the search action.
type SearchArgs struct {
	Query  string `mapstructure:"query"`
	Limit  int    `mapstructure:"limit"`
	Strict bool   `mapstructure:"strict"`
	Rerank bool   `mapstructure:"rerank"`
}

// SaveArgs are the arguments of the quicksave action.
type SaveArgs struct {
	Summary string   `mapstructure:"summary"`
	Bullets []string `mapstructure:"bullets"`
}

// RecallArgs are the arguments of the recall action.
type RecallArgs struct {
	Lines int `mapstructure:"lines"`
}

// Actions returns the invocable surface exposed to the host: one action per
// remote catalog tool. Each action lazily connects the session; the
// connection joins the normal turn-scoped lifecycle and is released at the
// next turn-end.
func (b *Bridge) Actions() []Action {
	return []Action{
		{
			Name:        b.cfg.ToolPrefix + gateway.ToolSmartSearch,
			Description: "Search long-term memory for records relevant to a query",
			Run: func(ctx context.Context, args map[string]any) ActionResult {
				var a SearchArgs
				if err := decodeArgs(args, &a); err != nil {
					return errorActionResult(err)
				}
				if a.Limit <= 0 {
					a.Limit = b.cfg.SearchLimit
				}
				return b.run(ctx, func(ctx context.Context) core.ToolResult {
					return b.gateway.Search(ctx, a.Query, a.Limit, a.Strict, a.Rerank)
				})
			},
		},
		{
			Name:        b.cfg.ToolPrefix + gateway.ToolQuicksave,
			Description: "Persist a summary with optional bullet facts to long-term memory",
			Run: func(ctx context.Context, args map[string]any) ActionResult {
				var a SaveArgs
				if err := decodeArgs(args, &a); err != nil {
					return errorActionResult(err)
				}
				return b.run(ctx, func(ctx context.Context) core.ToolResult {
					return b.gateway.Save(ctx, a.Summary, a.Bullets)
				})
			},
		},
		{
			Name:        b.cfg.ToolPrefix + gateway.ToolRecallSession,
			Description: "Fetch the tail of the memory server's session log",
			Run: func(ctx context.Context, args map[string]any) ActionResult {
				var a RecallArgs
				if err := decodeArgs(args, &a); err != nil {
					return errorActionResult(err)
				}
				return b.run(ctx, func(ctx context.Context) core.ToolResult {
					return b.gateway.Recall(ctx, a.Lines)
				})
			},
		},
		{
			Name:        b.cfg.ToolPrefix + gateway.ToolListMemoryPaths,
			Description: "List the memory server's storage locations",
			Run: func(ctx context.Context, args map[string]any) ActionResult {
				return b.run(ctx, b.gateway.ListPaths)
			},
		},
		{
			Name:        b.cfg.ToolPrefix + gateway.ToolHealthCheck,
			Description: "Run the memory server's self check",
			Run: func(ctx context.Context, args map[string]any) ActionResult {
				return b.run(ctx, b.gateway.Health)
			},
		},
	}
}

// run connects lazily and converts a gateway call into an ActionResult.
func (b *Bridge) run(ctx context.Context, call func(ctx context.Context) core.ToolResult) ActionResult {
	if !b.cfg.Enabled {
		return actionResult(core.ErrorResult("memory bridge is disabled"))
	}
	if err := b.session.Connect(ctx); err != nil {
		return errorActionResult(err)
	}
	return actionResult(call(ctx))
}

// decodeArgs maps the host's untyped argument object onto a typed struct.
// Weak typing absorbs JSON's float64 numbers; unknown argument keys are
// tolerated here, unlike configuration keys, because hosts commonly pass
// extra routing metadata alongside tool arguments.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

func actionResult(res core.ToolResult) ActionResult {
	return ActionResult{Content: res.Content, IsError: res.IsError, Text: res.Text()}
}

func errorActionResult(err error) ActionResult {
	return actionResult(core.ErrorResult(err.Error()))
}
