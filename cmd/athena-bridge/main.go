// Command athena-bridge adapts a host agent runtime to the memory bridge over
// newline-delimited JSON on stdin/stdout. The installation layer launches it
// with a settings file and environment; the host then feeds it lifecycle
// events ("turn_start", "turn_end") and action invocations ("invoke"), and
// reads one JSON reply line per event. Logs go to stderr so stdout stays a
// clean protocol channel.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hupe1980/athenabridge/bridge"
	"github.com/hupe1980/athenabridge/config"
	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/logging"
)

// hostEvent is one line received from the host.
type hostEvent struct {
	Event    string         `json:"event"`
	Prompt   string         `json:"prompt,omitempty"`
	Success  bool           `json:"success,omitempty"`
	Messages []core.Message `json:"messages,omitempty"`
	Tool     string         `json:"tool,omitempty"`
	Args     map[string]any `json:"args,omitempty"`
}

// hostReply is one line written back to the host.
type hostReply struct {
	Context string               `json:"context,omitempty"`
	Result  *bridge.ActionResult `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func main() {
	settingsPath := flag.String("settings", "", "path to the host settings JSON file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "log format: json or text")
	flag.Parse()

	// Opportunistic: a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := loadConfig(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "athena-bridge: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewSlogLogger(parseLevel(*logLevel), *logFormat, false).
		WithTransport(string(cfg.Transport))

	b := bridge.New(cfg, func(o *bridge.Options) { o.Logger = logger })
	b.Start()
	defer b.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, b, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("event loop terminated", "error", err.Error())
		os.Exit(1)
	}
}

func loadConfig(settingsPath string) (config.Config, error) {
	settings := map[string]any{}
	if settingsPath != "" {
		data, err := os.ReadFile(settingsPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("read settings: %w", err)
		}
		if err := json.Unmarshal(data, &settings); err != nil {
			return config.Config{}, fmt.Errorf("parse settings: %w", err)
		}
	}
	return config.FromSettings(settings)
}

func parseLevel(s string) logging.LogLevel {
	switch s {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}

// serve runs the event loop until stdin closes or the context is cancelled.
// Every host line gets exactly one reply line, even on unknown events, so the
// host's request/reply pairing never drifts.
func serve(ctx context.Context, b *bridge.Bridge, in *os.File, out *os.File, logger logging.Logger) error {
	actions := make(map[string]bridge.ActionFunc)
	for _, a := range b.Actions() {
		actions[a.Name] = a.Run
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		var ev hostEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			_ = enc.Encode(hostReply{Error: fmt.Sprintf("malformed event: %v", err)})
			continue
		}

		switch ev.Event {
		case "turn_start":
			var reply hostReply
			if d := b.TurnStart(ctx, bridge.TurnStartEvent{Prompt: ev.Prompt}); d != nil {
				reply.Context = d.Context
			}
			_ = enc.Encode(reply)
		case "turn_end":
			b.TurnEnd(ctx, bridge.TurnEndEvent{Success: ev.Success, Messages: ev.Messages})
			_ = enc.Encode(hostReply{})
		case "invoke":
			run, ok := actions[ev.Tool]
			if !ok {
				_ = enc.Encode(hostReply{Error: fmt.Sprintf("unknown action %q", ev.Tool)})
				continue
			}
			res := run(ctx, ev.Args)
			_ = enc.Encode(hostReply{Result: &res})
		default:
			logger.Warn("unknown host event", "event", ev.Event)
			_ = enc.Encode(hostReply{Error: fmt.Sprintf("unknown event %q", ev.Event)})
		}
	}
	return scanner.Err()
}
