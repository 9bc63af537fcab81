// Package config provides YAML configuration parsing for pwmreceiver.
//
// It lets the pwmreceiver binary run a receiver from a configuration file
// as an alternative to wiring channels in code.
//
// Example configuration:
//
//	capacity: 16
//	poll_interval: 20ms
//
//	channels:
//	  - channel: 2
//	    name: throttle
//	    filter: between:900:2100
//	    transform: map:988:2012:0:1000
//	    simulate:
//	      period: 20ms
//	      widths: [1000us, 1500us, 2000us]
//	  - channel: 3
//	    name: ${AUX_NAME:-aux}
//	    filter: below:1000000
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// maxCapacity matches the width of the receiver's dirty bitset.
	maxCapacity = 64

	defaultCapacity     = 16
	defaultPollInterval = 20 * time.Millisecond

	// minPollInterval keeps a misconfigured loop from spinning.
	minPollInterval = time.Millisecond
)

// Config is the root configuration structure for pwmreceiver.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Capacity is the number of channel slots. Defaults to 16, max 64.
	Capacity int `yaml:"capacity"`

	// PollInterval is the time between polls of the receiver.
	// Defaults to 20ms.
	PollInterval Duration `yaml:"poll_interval"`

	// Channels lists the attached channels.
	Channels []ChannelConfig `yaml:"channels"`
}

// ChannelConfig defines one attached channel.
type ChannelConfig struct {
	// Channel is the channel index, in [0, capacity).
	Channel int `yaml:"channel"`

	// Name is a display name used in logs and the readings API.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Name string `yaml:"name"`

	// Filter decides which readings reach the callback.
	// Can be shorthand ("between:900:2100") or structured. Defaults to accept-all.
	Filter FilterConfig `yaml:"filter"`

	// Transform maps accepted readings before delivery.
	// Can be shorthand ("div:1000") or structured. Defaults to identity.
	Transform TransformConfig `yaml:"transform"`

	// Simulate describes a pulse train for the simulate command.
	// Channels without it stay idle in simulation.
	Simulate *SimulateConfig `yaml:"simulate"`
}

// SimulateConfig is a repeating pulse train.
type SimulateConfig struct {
	// Period is the time between rising edges.
	Period Duration `yaml:"period"`

	// Widths are the high times, played in a loop.
	Widths []Duration `yaml:"widths"`
}

// FilterConfig specifies which readings are accepted.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	filter: any
//	filter: none
//	filter: below:1000000
//	filter: above:900
//	filter: between:900:2100
//
// Structured object:
//
//	filter:
//	  type: between
//	  min: 900
//	  max: 2100
type FilterConfig struct {
	// Type is the filter type: "any", "none", "below", "above", "between".
	Type string

	// Min is the lower bound; exclusive for above, inclusive for between.
	Min uint64

	// Max is the upper bound; exclusive for below, inclusive for between.
	Max uint64
}

// TransformConfig specifies how accepted readings are mapped.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	transform: identity
//	transform: div:1000
//	transform: offset:-1000
//	transform: clamp:1000:2000
//	transform: map:988:2012:0:1000
//
// Structured object:
//
//	transform:
//	  type: map
//	  from: [988, 2012]
//	  to: [0, 1000]
type TransformConfig struct {
	// Type is the transform type: "identity", "div", "offset", "clamp", "map".
	Type string

	// By is the divisor (div).
	By uint64

	// Delta is added to the value (offset).
	Delta int64

	// Min and Max bound the value (clamp).
	Min uint64
	Max uint64

	// From and To are the source and target ranges (map).
	From [2]uint64
	To   [2]uint64
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for FilterConfig.
func (f *FilterConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return f.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type string `yaml:"type"`
			Min  uint64 `yaml:"min"`
			Max  uint64 `yaml:"max"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		f.Type = raw.Type
		f.Min = raw.Min
		f.Max = raw.Max
		return nil
	}

	return fmt.Errorf("filter must be a string or object, got %v", node.Kind)
}

// parseShorthand parses filter shorthand syntax.
//
// Supported formats:
//   - "any" / "none" → accept or reject everything
//   - "below:N" → value < N
//   - "above:N" → value > N
//   - "between:A:B" → A <= value <= B
func (f *FilterConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ":")
	f.Type = parts[0]
	args, err := parseUints(parts[1:])
	if err != nil {
		return fmt.Errorf("filter %q: %w", s, err)
	}

	switch f.Type {
	case "any", "none":
		err = wantArgs(args, 0)
	case "below":
		if err = wantArgs(args, 1); err == nil {
			f.Max = args[0]
		}
	case "above":
		if err = wantArgs(args, 1); err == nil {
			f.Min = args[0]
		}
	case "between":
		if err = wantArgs(args, 2); err == nil {
			f.Min, f.Max = args[0], args[1]
		}
	default:
		return fmt.Errorf("unknown filter %q (expected 'any', 'none', 'below:N', 'above:N', or 'between:A:B')", s)
	}
	if err != nil {
		return fmt.Errorf("filter %q: %w", s, err)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for TransformConfig.
func (t *TransformConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return t.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		var raw struct {
			Type  string    `yaml:"type"`
			By    uint64    `yaml:"by"`
			Delta int64     `yaml:"delta"`
			Min   uint64    `yaml:"min"`
			Max   uint64    `yaml:"max"`
			From  [2]uint64 `yaml:"from"`
			To    [2]uint64 `yaml:"to"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*t = TransformConfig(raw)
		return nil
	}

	return fmt.Errorf("transform must be a string or object, got %v", node.Kind)
}

// parseShorthand parses transform shorthand syntax.
//
// Supported formats:
//   - "identity" → value unchanged
//   - "div:N" → value / N
//   - "offset:D" → value + D, D may be negative
//   - "clamp:A:B" → value limited to [A, B]
//   - "map:A:B:C:D" → [A, B] mapped linearly onto [C, D]
func (t *TransformConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ":")
	t.Type = parts[0]

	if t.Type == "offset" {
		if len(parts) != 2 {
			return fmt.Errorf("transform %q: expected 1 argument, got %d", s, len(parts)-1)
		}
		d, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("transform %q: invalid offset %q", s, parts[1])
		}
		t.Delta = d
		return nil
	}

	args, err := parseUints(parts[1:])
	if err != nil {
		return fmt.Errorf("transform %q: %w", s, err)
	}

	switch t.Type {
	case "identity":
		err = wantArgs(args, 0)
	case "div":
		if err = wantArgs(args, 1); err == nil {
			t.By = args[0]
		}
	case "clamp":
		if err = wantArgs(args, 2); err == nil {
			t.Min, t.Max = args[0], args[1]
		}
	case "map":
		if err = wantArgs(args, 4); err == nil {
			t.From = [2]uint64{args[0], args[1]}
			t.To = [2]uint64{args[2], args[3]}
		}
	default:
		return fmt.Errorf("unknown transform %q (expected 'identity', 'div:N', 'offset:D', 'clamp:A:B', or 'map:A:B:C:D')", s)
	}
	if err != nil {
		return fmt.Errorf("transform %q: %w", s, err)
	}
	return nil
}

func parseUints(parts []string) ([]uint64, error) {
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func wantArgs(args []uint64, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in channel names.
// Defaults are applied for Capacity (16) and PollInterval (20ms).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Capacity == 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Capacity < 1 || c.Capacity > maxCapacity {
		return fmt.Errorf("capacity must be between 1 and %d, got %d", maxCapacity, c.Capacity)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if len(c.Channels) == 0 {
		return errors.New("at least one channel must be defined")
	}

	seen := make(map[int]struct{}, len(c.Channels))
	for i := range c.Channels {
		ch := &c.Channels[i]

		if ch.Channel < 0 || ch.Channel >= c.Capacity {
			return fmt.Errorf("channels[%d]: channel must be in [0, %d), got %d", i, c.Capacity, ch.Channel)
		}
		if _, dup := seen[ch.Channel]; dup {
			return fmt.Errorf("channels[%d]: channel %d is defined more than once", i, ch.Channel)
		}
		seen[ch.Channel] = struct{}{}

		name, err := expandEnvVars(ch.Name)
		if err != nil {
			return fmt.Errorf("channels[%d]: name: %w", i, err)
		}
		ch.Name = name

		context := fmt.Sprintf("channels[%d] (%s)", i, ch.label())
		if err := validateFilter(ch.Filter, context); err != nil {
			return err
		}
		if err := validateTransform(ch.Transform, context); err != nil {
			return err
		}
		if ch.Simulate != nil {
			if err := validateSimulate(ch.Simulate, context); err != nil {
				return err
			}
		}
	}

	return nil
}

// label returns the display name, falling back to the channel index.
func (c ChannelConfig) label() string {
	if c.Name != "" {
		return c.Name
	}
	return "ch" + strconv.Itoa(c.Channel)
}

// validateFilter validates a filter configuration.
func validateFilter(f FilterConfig, context string) error {
	switch f.Type {
	case "", "any", "none", "below", "above":
	case "between":
		if f.Min > f.Max {
			return fmt.Errorf("%s: filter 'between' min %d exceeds max %d", context, f.Min, f.Max)
		}
	default:
		return fmt.Errorf("%s: unknown filter type %q", context, f.Type)
	}
	return nil
}

// validateTransform validates a transform configuration.
func validateTransform(t TransformConfig, context string) error {
	switch t.Type {
	case "", "identity", "offset":
	case "div":
		if t.By == 0 {
			return fmt.Errorf("%s: transform 'div' requires a non-zero divisor", context)
		}
	case "clamp":
		if t.Min > t.Max {
			return fmt.Errorf("%s: transform 'clamp' min %d exceeds max %d", context, t.Min, t.Max)
		}
	case "map":
		if t.From[0] >= t.From[1] {
			return fmt.Errorf("%s: transform 'map' source range [%d, %d] is empty", context, t.From[0], t.From[1])
		}
	default:
		return fmt.Errorf("%s: unknown transform type %q", context, t.Type)
	}
	return nil
}

// validateSimulate validates a pulse train.
func validateSimulate(s *SimulateConfig, context string) error {
	period := s.Period.Duration()
	if period <= 0 {
		return fmt.Errorf("%s: simulate period must be positive, got %s", context, period)
	}
	if len(s.Widths) == 0 {
		return fmt.Errorf("%s: simulate requires at least one width", context)
	}
	for j, w := range s.Widths {
		if w.Duration() <= 0 || w.Duration() >= period {
			return fmt.Errorf("%s: simulate widths[%d] must be in (0, %s), got %s", context, j, period, w.Duration())
		}
	}
	return nil
}
