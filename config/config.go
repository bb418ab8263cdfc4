// Package config resolves the bridge configuration from the host's untyped
// settings object. Resolution happens once at registration: decode with
// unknown-key rejection, interpolate ${ENV_VAR} references, validate. The
// resulting Config is an immutable value; transformation steps return new
// values instead of mutating shared state.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-viper/mapstructure/v2"

	"github.com/hupe1980/athenabridge/core"
)

// Config carries every knob the bridge reads. Fields map 1:1 to the host
// settings surface; unrecognized settings keys are a fatal validation error,
// not a silent ignore.
type Config struct {
	// Enabled toggles the whole bridge. When false the lifecycle hooks are
	// no-ops and no transport is ever constructed.
	Enabled bool `mapstructure:"enabled"`

	// Transport selects the channel to the memory server: "stdio" or "sse".
	Transport core.Transport `mapstructure:"transport"`

	// PythonPath is the interpreter used to spawn the memory server on the
	// stdio transport.
	PythonPath string `mapstructure:"pythonPath"`

	// ProjectDir is the memory server checkout; the interpreter's module
	// search path is derived from it (see ModulePath).
	ProjectDir string `mapstructure:"athenaProjectDir"`

	// SSEURL is the remote endpoint for the sse transport.
	SSEURL string `mapstructure:"sseUrl"`

	// ToolPrefix is prepended to every remote tool name exposed to the host.
	ToolPrefix string `mapstructure:"toolPrefix"`

	// MinRelevance filters recall candidates by score. The default comes
	// from the original deployment and is not tuned for all corpora.
	MinRelevance float64 `mapstructure:"minRelevance"`

	// MinExchanges is the number of user messages a turn needs before it is
	// worth capturing.
	MinExchanges int `mapstructure:"minExchanges"`

	// SearchLimit caps the number of recall candidates requested per turn.
	SearchLimit int `mapstructure:"searchLimit"`
}

// moduleSubpath is the fixed relative subpath appended to ProjectDir to form
// the interpreter's module search path.
const moduleSubpath = "src"

// Default returns the baseline configuration used when the host supplies no
// overrides.
func Default() Config {
	return Config{
		Enabled:      true,
		Transport:    core.TransportStdio,
		PythonPath:   "python3",
		ProjectDir:   defaultProjectDir(),
		SSEURL:       "http://localhost:8765",
		ToolPrefix:   "athena_",
		MinRelevance: 0.01,
		MinExchanges: 2,
		SearchLimit:  3,
	}
}

func defaultProjectDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Athena-Public"
	}
	return filepath.Join(home, "Projects", "Athena-Public")
}

// FromSettings resolves a Config from the host's settings object. Unknown
// keys, failed ${ENV_VAR} lookups and invalid field values all fail with a
// *core.ConfigError.
func FromSettings(settings map[string]any) (Config, error) {
	cfg := Default()
	if len(settings) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &cfg,
			ErrorUnused: true,
		})
		if err != nil {
			return Config{}, &core.ConfigError{Reason: err.Error()}
		}
		if err := dec.Decode(settings); err != nil {
			return Config{}, &core.ConfigError{Reason: err.Error()}
		}
	}
	cfg, err := cfg.interpolated()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references. A reference to an unset variable is
// fatal rather than silently expanding to the empty string.
func expandEnv(field, value string) (string, error) {
	var missing string
	out := envRefPattern.ReplaceAllStringFunc(value, func(ref string) string {
		name := envRefPattern.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok {
			if missing == "" {
				missing = name
			}
			return ref
		}
		return v
	})
	if missing != "" {
		return "", &core.ConfigError{Field: field, Reason: fmt.Sprintf("references unset environment variable %q", missing)}
	}
	return out, nil
}

// interpolated returns a copy with every string field env-expanded.
func (c Config) interpolated() (Config, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{"pythonPath", &c.PythonPath},
		{"athenaProjectDir", &c.ProjectDir},
		{"sseUrl", &c.SSEURL},
		{"toolPrefix", &c.ToolPrefix},
	}
	for _, f := range fields {
		v, err := expandEnv(f.name, *f.value)
		if err != nil {
			return Config{}, err
		}
		*f.value = v
	}
	return c, nil
}

// Validate checks field values. It does not touch the filesystem or network;
// unreachable paths and endpoints surface later as connection errors.
func (c Config) Validate() error {
	switch c.Transport {
	case core.TransportStdio, core.TransportSSE:
	default:
		return &core.ConfigError{Field: "transport", Reason: fmt.Sprintf("must be %q or %q, got %q", core.TransportStdio, core.TransportSSE, c.Transport)}
	}
	if c.PythonPath == "" {
		return &core.ConfigError{Field: "pythonPath", Reason: "must not be empty"}
	}
	if c.ProjectDir == "" {
		return &core.ConfigError{Field: "athenaProjectDir", Reason: "must not be empty"}
	}
	if c.Transport == core.TransportSSE {
		u, err := url.Parse(c.SSEURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &core.ConfigError{Field: "sseUrl", Reason: fmt.Sprintf("not an absolute URL: %q", c.SSEURL)}
		}
	}
	if c.MinRelevance < 0 || c.MinRelevance >= 1 {
		return &core.ConfigError{Field: "minRelevance", Reason: "must be in [0, 1)"}
	}
	if c.MinExchanges < 1 {
		return &core.ConfigError{Field: "minExchanges", Reason: "must be at least 1"}
	}
	if c.SearchLimit < 1 {
		return &core.ConfigError{Field: "searchLimit", Reason: "must be at least 1"}
	}
	return nil
}

// ModulePath derives the module search path exposed to the spawned
// interpreter on the stdio transport.
func (c Config) ModulePath() string {
	return filepath.Join(c.ProjectDir, moduleSubpath)
}
