// Package config holds the run configuration shared by all commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/idelchi/rotor/internal/pipeline"
)

// Config holds the settings of a run, bound from flags and ROTOR_* environment variables.
type Config struct {
	// Key is the integer cipher key, in base 10
	Key string `mapstructure:"key" yaml:"key" validate:"required_without=KeyFile" label:"--key"`

	// KeyFile is a file holding the integer key
	KeyFile string `mapstructure:"key-file" yaml:"key-file" validate:"excluded_with=Key" label:"--key-file"`

	// Workers is both the chunk count and the worker count; 0 selects automatically.
	// The upper bound is chunk.MaxCount.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=4096" label:"--workers"`

	// Suffixes appended to output files
	EncryptSuffix string `mapstructure:"encrypt-ext" yaml:"encrypt-ext" validate:"required" label:"--encrypt-ext"`
	DecryptSuffix string `mapstructure:"decrypt-ext" yaml:"decrypt-ext" validate:"required" label:"--decrypt-ext"`

	// Run behavior
	Quiet    bool          `mapstructure:"quiet" yaml:"quiet"`
	Stats    bool          `mapstructure:"stats" yaml:"stats"`
	Delete   bool          `mapstructure:"delete" yaml:"delete"`
	Dry      bool          `mapstructure:"dry" yaml:"dry"`
	FailFast bool          `mapstructure:"fail-fast" yaml:"fail-fast"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0" label:"--timeout"`
	Manifest bool          `mapstructure:"manifest" yaml:"manifest"`

	// Show prints the resolved configuration and exits
	Show bool `mapstructure:"show" yaml:"-"`

	// Logging
	LogFile  string `mapstructure:"log-file" yaml:"log-file"`
	LogLevel string `mapstructure:"log-level" yaml:"log-level" validate:"oneof=debug info warn error" label:"--log-level"`

	// Command-specific
	Decrypt bool `mapstructure:"-" yaml:"decrypt"`

	// Positional arguments
	Files []string `mapstructure:"-" yaml:"files" validate:"min=1,dive,required" label:"files"`
}

// Validate validates the configuration against the struct tags.
// Every failure wraps pipeline.ErrConfig.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", pipeline.ErrConfig, describe(verrs))
		}

		return fmt.Errorf("%w: %w", pipeline.ErrConfig, err)
	}

	if c.Key != "" {
		if _, err := parseKey(c.Key); err != nil {
			return err
		}
	}

	return nil
}

// ResolveKey returns the integer key from --key or --key-file.
func (c *Config) ResolveKey() (int64, error) {
	if c.Key != "" {
		return parseKey(c.Key)
	}

	data, err := os.ReadFile(filepath.Clean(c.KeyFile))
	if err != nil {
		return 0, fmt.Errorf("%w: reading key file: %w", pipeline.ErrConfig, err)
	}

	return parseKey(string(data))
}

// Action returns the name of the configured action.
func (c *Config) Action() string {
	if c.Decrypt {
		return "decrypt"
	}

	return "encrypt"
}

// OutputPath appends the configured suffix for the action to filename.
func (c *Config) OutputPath(filename string) string {
	if c.Decrypt {
		return filename + c.DecryptSuffix
	}

	return filename + c.EncryptSuffix
}

// Render returns the configuration as YAML, with the key redacted.
func (c Config) Render() (string, error) {
	if c.Key != "" {
		c.Key = "<redacted>"
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("rendering configuration: %w", err)
	}

	return string(data), nil
}

// parseKey parses a base-10 int64, tolerating surrounding whitespace.
func parseKey(s string) (int64, error) {
	key, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key must be an integer: %w", pipeline.ErrConfig, err)
	}

	return key, nil
}

// describe renders validation errors using field labels.
func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))

	for _, fe := range verrs {
		switch fe.Tag() {
		case "required_without":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "excluded_with":
			msgs = append(msgs, fmt.Sprintf("%s is mutually exclusive", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("at least %s %s required", fe.Param(), fe.Field()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
		}
	}

	return strings.Join(msgs, "; ")
}
