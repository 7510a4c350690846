// Package config holds the tunables of a gmailurl run.
//
// Values are layered: built-in defaults, then GMAILURL_* environment
// variables, then an optional YAML file, then command-line flags (applied by
// the caller).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/teemow/gmailurl/internal/correct"
	"github.com/teemow/gmailurl/internal/pattern"
	"github.com/teemow/gmailurl/internal/timestamp"
)

// Environment variables read by DefaultConfig.
const (
	EnvMode              = "GMAILURL_MODE"
	EnvTimebase          = "GMAILURL_TIMEBASE"
	EnvLeadingDigit      = "GMAILURL_LEGACY_LEADING_DIGIT"
	EnvMinNewTokenLength = "GMAILURL_MIN_NEW_TOKEN_LENGTH"
	EnvWorkers           = "GMAILURL_WORKERS"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the decoding tunables.
type Config struct {
	// Mode selects the grammar: "legacy", "new" or "both".
	Mode string `yaml:"mode"`

	// Timebase is the counter tick rate used to derive timestamps.
	Timebase uint64 `yaml:"timebase"`

	// LegacyLeadingDigit is the expected first character of a 16-digit
	// legacy token.
	LegacyLeadingDigit string `yaml:"legacy_leading_digit"`

	// MinNewTokenLength bounds new-format token trimming.
	MinNewTokenLength int `yaml:"min_new_token_length"`

	// Workers is the number of concurrent record builders.
	Workers int `yaml:"workers"`

	// Compact selects single-line JSON output.
	Compact bool `yaml:"compact"`

	// MetricsFile receives Prometheus metrics when the run ends.
	MetricsFile string `yaml:"metrics_file"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Mode:               string(pattern.ModeBoth),
		Timebase:           timestamp.DefaultTimebase,
		LegacyLeadingDigit: string(rune(correct.DefaultLeadingDigit)),
		MinNewTokenLength:  correct.DefaultMinNewTokenLength,
		Workers:            1,
	}
}

// DefaultConfig returns Defaults overlaid with the GMAILURL_* environment
// variables. Unparseable values are reported by the returned error.
func DefaultConfig() (Config, error) {
	cfg := Defaults()
	var errs []error

	if v := os.Getenv(EnvMode); v != "" {
		cfg.Mode = strings.ToLower(v)
	}
	if v := os.Getenv(EnvTimebase); v != "" {
		n, err := cast.ToUint64E(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvTimebase, err))
		} else {
			cfg.Timebase = n
		}
	}
	if v := os.Getenv(EnvLeadingDigit); v != "" {
		cfg.LegacyLeadingDigit = v
	}
	if v := os.Getenv(EnvMinNewTokenLength); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMinNewTokenLength, err))
		} else {
			cfg.MinNewTokenLength = n
		}
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvWorkers, err))
		} else {
			cfg.Workers = n
		}
	}

	return cfg, errors.Join(errs...)
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current value; unknown keys are rejected.
func LoadFile(cfg Config, path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	out := cfg
	if err := dec.Decode(&out); err != nil {
		// An empty document leaves cfg unchanged.
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return out, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := pattern.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Timebase == 0 {
		return fmt.Errorf("%w: timebase must be positive", ErrInvalid)
	}
	if len(c.LegacyLeadingDigit) != 1 || !isHexDigit(c.LegacyLeadingDigit[0]) {
		return fmt.Errorf("%w: legacy leading digit must be one hex digit, got %q", ErrInvalid, c.LegacyLeadingDigit)
	}
	if c.MinNewTokenLength < correct.DefaultMinNewTokenLength {
		return fmt.Errorf("%w: min new token length must be at least %d, got %d",
			ErrInvalid, correct.DefaultMinNewTokenLength, c.MinNewTokenLength)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	return nil
}

// ParsedMode returns Mode as a pattern.Mode. Call Validate first.
func (c Config) ParsedMode() pattern.Mode {
	m, _ := pattern.ParseMode(c.Mode)
	return m
}

// CorrectOptions maps the correction tunables onto correct.Options.
func (c Config) CorrectOptions() correct.Options {
	var digit byte
	if len(c.LegacyLeadingDigit) == 1 {
		digit = c.LegacyLeadingDigit[0]
	}
	return correct.Options{
		LeadingDigit:      digit,
		MinNewTokenLength: c.MinNewTokenLength,
	}
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
