// Copyright 2026 The Loom Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local use against a relay on the same machine.
	Development Environment = "development"
	// Production is for shared installations.
	Production Environment = "production"
)

// Config is the master configuration for Loom.
type Config struct {
	Environment Environment `yaml:"environment" toml:"environment"`

	Paths     PathsConfig     `yaml:"paths" toml:"paths"`
	Endpoints EndpointsConfig `yaml:"endpoints" toml:"endpoints"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Layout    LayoutConfig    `yaml:"layout" toml:"layout"`
	View      ViewConfig      `yaml:"view" toml:"view"`
	Relay     RelayConfig     `yaml:"relay" toml:"relay"`

	// Clusters is the anchor table for the cluster force. Replacing it
	// in a config file replaces the whole table.
	Clusters []ClusterAnchor `yaml:"clusters" toml:"clusters"`

	Development *Overrides `yaml:"development,omitempty" toml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty" toml:"production,omitempty"`
}

// Overrides contains the fields that may differ per environment.
type Overrides struct {
	Paths     *PathsConfig     `yaml:"paths,omitempty" toml:"paths,omitempty"`
	Endpoints *EndpointsConfig `yaml:"endpoints,omitempty" toml:"endpoints,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty" toml:"log,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for Loom data.
	Root string `yaml:"root" toml:"root"`

	// State holds the key store and its sealing identity.
	// Default: ${LOOM_ROOT}/state
	State string `yaml:"state" toml:"state"`
}

// EndpointsConfig names the remote endpoints the dashboard consumes.
type EndpointsConfig struct {
	// Chat accepts {apiKey, messages, loopContext} and streams
	// data: records back.
	Chat string `yaml:"chat" toml:"chat"`

	// Validate accepts {apiKey} and returns {valid, error}.
	Validate string `yaml:"validate" toml:"validate"`

	// Timeout bounds validation requests. Chat streams are bounded
	// only by cancellation.
	// Default: 15s
	Timeout string `yaml:"timeout" toml:"timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`

	// Output is an optional file receiving JSON log records in
	// addition to the normal destination.
	Output string `yaml:"output" toml:"output"`
}

// LayoutConfig tunes the force simulation.
type LayoutConfig struct {
	ChargeStrength    float64 `yaml:"charge_strength" toml:"charge_strength"`
	ChargeDistanceMax float64 `yaml:"charge_distance_max" toml:"charge_distance_max"`
	LinkDistance      float64 `yaml:"link_distance" toml:"link_distance"`
	CollideRadius     float64 `yaml:"collide_radius" toml:"collide_radius"`
	CenterStrength    float64 `yaml:"center_strength" toml:"center_strength"`
	ClusterGain       float64 `yaml:"cluster_gain" toml:"cluster_gain"`
	AlphaDecay        float64 `yaml:"alpha_decay" toml:"alpha_decay"`
	VelocityDecay     float64 `yaml:"velocity_decay" toml:"velocity_decay"`
	WarmupTicks       int     `yaml:"warmup_ticks" toml:"warmup_ticks"`
	CooldownTicks     int     `yaml:"cooldown_ticks" toml:"cooldown_ticks"`
}

// ViewConfig tunes the graph view's camera and labels.
type ViewConfig struct {
	MinZoom float64 `yaml:"min_zoom" toml:"min_zoom"`
	MaxZoom float64 `yaml:"max_zoom" toml:"max_zoom"`

	// LabelZoom is the zoom level above which every node is labeled.
	LabelZoom float64 `yaml:"label_zoom" toml:"label_zoom"`

	CenterDuration string `yaml:"center_duration" toml:"center_duration"`
	ZoomDuration   string `yaml:"zoom_duration" toml:"zoom_duration"`

	DragEnabled bool `yaml:"drag_enabled" toml:"drag_enabled"`
}

// RelayConfig configures loom-relay.
type RelayConfig struct {
	Listen      string `yaml:"listen" toml:"listen"`
	UpstreamURL string `yaml:"upstream_url" toml:"upstream_url"`
	Model       string `yaml:"model" toml:"model"`
	MaxTokens   int    `yaml:"max_tokens" toml:"max_tokens"`
}

// ClusterAnchor places one group's cluster center.
type ClusterAnchor struct {
	Group string  `yaml:"group" toml:"group"`
	Label string  `yaml:"label" toml:"label"`
	X     float64 `yaml:"x" toml:"x"`
	Y     float64 `yaml:"y" toml:"y"`
}

// DefaultClusters is the anchor table used when the config file does
// not define one.
func DefaultClusters() []ClusterAnchor {
	return []ClusterAnchor{
		{Group: "deepmind", Label: "Google (DeepMind)", X: -600, Y: -300},
		{Group: "openai", Label: "OpenAI", X: 400, Y: -450},
		{Group: "meta", Label: "Meta", X: -450, Y: 450},
		{Group: "microsoft", Label: "Microsoft", X: 600, Y: 300},
		{Group: "nvidia", Label: "Nvidia", X: 0, Y: -550},
		{Group: "anthropic", Label: "Anthropic", X: 0, Y: 550},
		{Group: "xai", Label: "xAI", X: -700, Y: 100},
		{Group: "amazon", Label: "Amazon", X: 700, Y: -100},
	}
}

// Default returns a complete configuration for local development.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "loom")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:  defaultRoot,
			State: filepath.Join(defaultRoot, "state"),
		},
		Endpoints: EndpointsConfig{
			Chat:     "http://127.0.0.1:5151/api/claude/chat",
			Validate: "http://127.0.0.1:5151/api/claude/validate",
			Timeout:  "15s",
		},
		Log: LogConfig{
			Level: "info",
		},
		Layout: LayoutConfig{
			ChargeStrength:    -30,
			ChargeDistanceMax: 300,
			LinkDistance:      20,
			CollideRadius:     3,
			CenterStrength:    0.02,
			ClusterGain:       1,
			AlphaDecay:        0.05,
			VelocityDecay:     0.7,
			WarmupTicks:       50,
			CooldownTicks:     50,
		},
		View: ViewConfig{
			MinZoom:        0.5,
			MaxZoom:        2.4,
			LabelZoom:      2.0,
			CenterDuration: "1s",
			ZoomDuration:   "2s",
		},
		Relay: RelayConfig{
			Listen:      "127.0.0.1:5151",
			UpstreamURL: "https://api.anthropic.com",
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   1024,
		},
		Clusters: DefaultClusters(),
	}
}

// Load loads configuration from the file named by LOOM_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("LOOM_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("LOOM_CONFIG environment variable not set; " +
			"set it to the path of your loom.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path on top of [Default].
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	if len(cfg.Clusters) == 0 {
		cfg.Clusters = DefaultClusters()
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// A file that names its own cluster table replaces the default
	// one entirely rather than merging element by element.
	c.Clusters = nil

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, c)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{Log: &LogConfig{Level: "warn"}}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
	}
	if overrides.Endpoints != nil {
		if overrides.Endpoints.Chat != "" {
			c.Endpoints.Chat = overrides.Endpoints.Chat
		}
		if overrides.Endpoints.Validate != "" {
			c.Endpoints.Validate = overrides.Endpoints.Validate
		}
		if overrides.Endpoints.Timeout != "" {
			c.Endpoints.Timeout = overrides.Endpoints.Timeout
		}
	}
	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Output != "" {
			c.Log.Output = overrides.Log.Output
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"LOOM_ROOT": c.Paths.Root,
		"HOME":      os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["LOOM_ROOT"] = c.Paths.Root

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Log.Output = expandVars(c.Log.Output, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Provided vars win
// over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.Paths.State == "" {
		errs = append(errs, errors.New("paths.state is required"))
	}

	for name, raw := range map[string]string{"endpoints.chat": c.Endpoints.Chat, "endpoints.validate": c.Endpoints.Validate} {
		if err := c.validateEndpoint(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if _, err := c.EndpointTimeout(); err != nil {
		errs = append(errs, err)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	if c.Layout.WarmupTicks < 0 {
		errs = append(errs, fmt.Errorf("layout.warmup_ticks must not be negative, got %d", c.Layout.WarmupTicks))
	}
	if c.Layout.CooldownTicks <= 0 {
		errs = append(errs, fmt.Errorf("layout.cooldown_ticks must be positive, got %d", c.Layout.CooldownTicks))
	}
	if c.Layout.AlphaDecay <= 0 || c.Layout.AlphaDecay >= 1 {
		errs = append(errs, fmt.Errorf("layout.alpha_decay must be in (0, 1), got %g", c.Layout.AlphaDecay))
	}
	if c.Layout.VelocityDecay < 0 || c.Layout.VelocityDecay > 1 {
		errs = append(errs, fmt.Errorf("layout.velocity_decay must be in [0, 1], got %g", c.Layout.VelocityDecay))
	}

	if c.View.MinZoom <= 0 {
		errs = append(errs, fmt.Errorf("view.min_zoom must be positive, got %g", c.View.MinZoom))
	}
	if c.View.MaxZoom < c.View.MinZoom {
		errs = append(errs, fmt.Errorf("view.max_zoom (%g) is below view.min_zoom (%g)", c.View.MaxZoom, c.View.MinZoom))
	}
	if _, _, err := c.ViewDurations(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Clusters))
	for index, anchor := range c.Clusters {
		if anchor.Group == "" {
			errs = append(errs, fmt.Errorf("clusters[%d]: group is required", index))
			continue
		}
		if seen[anchor.Group] {
			errs = append(errs, fmt.Errorf("clusters[%d]: duplicate group %q", index, anchor.Group))
		}
		seen[anchor.Group] = true
	}

	return errors.Join(errs...)
}

func (c *Config) validateEndpoint(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if c.Environment == Production && parsed.Scheme != "https" && !isLoopback(parsed.Hostname()) {
		return fmt.Errorf("production endpoints must use https unless they are loopback, got %s", raw)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	address := net.ParseIP(host)
	return address != nil && address.IsLoopback()
}

// EndpointTimeout parses Endpoints.Timeout.
func (c *Config) EndpointTimeout() (time.Duration, error) {
	return parseDuration("endpoints.timeout", c.Endpoints.Timeout)
}

// ViewDurations parses the center and zoom animation durations.
func (c *Config) ViewDurations() (center, zoom time.Duration, err error) {
	center, err = parseDuration("view.center_duration", c.View.CenterDuration)
	if err != nil {
		return 0, 0, err
	}
	zoom, err = parseDuration("view.zoom_duration", c.View.ZoomDuration)
	if err != nil {
		return 0, 0, err
	}
	return center, zoom, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", field, value)
	}
	return duration, nil
}
