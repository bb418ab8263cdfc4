// Package athenabridge provides a high-level façade over the memory bridge:
// configuration resolution, transport selection and the lifecycle controller
// wired together in one call. Most hosts interact with this package by:
//  1. Creating a Bridge via New() from their settings object
//  2. Registering the turn-start / turn-end handlers with their event dispatch
//  3. Exposing the returned actions as invocable tools
//
// The façade delegates all behavior to the bridge package while keeping setup
// ergonomics concise. Defaults are safe for local development; production
// deployments typically supply a structured logger.
package athenabridge

import (
	"github.com/hupe1980/athenabridge/bridge"
	"github.com/hupe1980/athenabridge/config"
	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/logging"
)

// Options configures the bridge instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Session overrides the transport session selected by the configuration.
	// Mainly a seam for tests and embedders with custom channels.
	Session core.Session
}

// New resolves the host settings object into a validated configuration and
// returns a ready Bridge. Configuration faults (unknown keys, unset ${VAR}
// references, invalid values) are fatal here, before any event subscription.
func New(settings map[string]any, optFns ...func(o *Options)) (*bridge.Bridge, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg, err := config.FromSettings(settings)
	if err != nil {
		return nil, err
	}

	return bridge.New(cfg, func(o *bridge.Options) {
		o.Logger = opts.Logger
		o.Session = opts.Session
	}), nil
}
