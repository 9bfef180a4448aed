// Package teleop wires the attach, rendezvous, and capability packages
// into a single embeddable server: a target process calls Serve to
// become attachable, and a separate tool process calls
// NewClientSession to obtain a capability session against it.
package teleop

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"

	"github.com/arnodb/teleop/attach"
)

// Config is the complete configuration for one Server, decodable from
// YAML the way the teacher's Config is: a top-level mapping whose
// fields carry `mapstructure` tags so it can be filled from either a
// parsed YAML document or a plain map.
type Config struct {
	// Attacher selects how a dormant Server wakes up: "dummy"
	// (always-already-attached, for tests and demos), "unix-signal"
	// (SIGQUIT + witness file, not available on Windows), or "watch"
	// (filesystem-watch + witness file). An empty name selects "watch"
	// everywhere except Windows, where it selects "dummy".
	Attacher string `mapstructure:"attacher"`

	// RendezvousDir names a directory for the rendezvous socket/named
	// pipe. Validate checks that it exists; the rendezvous package does
	// not read it and always uses os.TempDir().
	RendezvousDir string `mapstructure:"rendezvous_dir"`

	// WitnessDir names a directory for the witness file. Validate
	// checks that it exists; the attach package does not read it and
	// always uses the target process's resolved working directory.
	WitnessDir string `mapstructure:"witness_dir"`

	// AllowDebugHandshake permits a client to send a "teleop-debug:"
	// line on the rendezvous connection immediately after connecting,
	// before the capability session starts. Accepted lines are logged
	// at debug level and otherwise ignored; this is a diagnostic hook,
	// not part of the capability protocol itself.
	AllowDebugHandshake bool `mapstructure:"allow_debug_handshake"`
}

// LoadConfig reads a YAML document from r and decodes it into a
// Config, the same two-step way the teacher's Config.Validate loads
// PiiSettings/FilterSettings: unmarshal YAML into a generic map first,
// then mapstructure.Decode that map into the typed struct, so the
// `mapstructure` tags on Config's fields actually drive decoding
// rather than sitting unused.
func LoadConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	raw := make(map[interface{}]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := DefaultConfig()
	if err := mapstructure.Decode(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration a Server uses when none is
// supplied: the platform's default attacher, system temp dir, and no
// debug handshake.
func DefaultConfig() *Config {
	return &Config{}
}

// Validate checks cfg for internal consistency and resolves Attacher
// into a concrete attach.Attacher, failing fast the way the teacher's
// Config.Validate does for its pipe/socket fields.
func (cfg *Config) Validate() (attach.Attacher, error) {
	attacher, err := attach.FromName(cfg.Attacher)
	if err != nil {
		return nil, fmt.Errorf("attacher: %w", err)
	}

	if cfg.RendezvousDir != "" {
		if info, err := os.Stat(cfg.RendezvousDir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("rendezvous_dir %q is not a directory", cfg.RendezvousDir)
		}
	}
	if cfg.WitnessDir != "" {
		if info, err := os.Stat(cfg.WitnessDir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("witness_dir %q is not a directory", cfg.WitnessDir)
		}
	}

	return attacher, nil
}
