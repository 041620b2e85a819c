package jnivm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	jlog "github.com/Dadoum/libjnivm/log"
)

// validate is shared; validators cache struct metadata.
var validate = validator.New()

// Config is the file form of a runtime's settings.
type Config struct {
	// Strict disables on-demand class declaration.
	Strict bool `yaml:"strict" json:"strict,omitempty"`
	// Log configures the runtime logger.
	Log LogConfig `yaml:"log" json:"log,omitempty"`
	// Classes are registered before any library is attached.
	Classes []ClassConfig `yaml:"classes" json:"classes,omitempty" validate:"dive"`
	// Libraries are attached in order.
	Libraries []string `yaml:"libraries" json:"libraries,omitempty" validate:"dive,required"`
}

// LogConfig selects the logger built by Options.
type LogConfig struct {
	Level  string `yaml:"level" json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// ClassConfig declares a class and its superclass.
type ClassConfig struct {
	Name  string `yaml:"name" json:"name" validate:"required"`
	Super string `yaml:"super" json:"super,omitempty"`
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate checks the configuration's constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Logger builds the logger the configuration selects.
func (c *Config) Logger(opts ...jlog.HandlerOption) (*slog.Logger, error) {
	level, err := jlog.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	format := jlog.FormatText
	if c.Log.Format != "" {
		format = jlog.Format(c.Log.Format)
	}
	return jlog.New(append([]jlog.HandlerOption{jlog.WithLevel(level), jlog.WithFormat(format)}, opts...)...), nil
}

// Options converts the configuration into runtime options.
func (c *Config) Options() ([]Option, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithStrictClasses(c.Strict),
		WithLogger(logger),
	}, nil
}

// NewFromConfig creates a runtime from cfg, registers its classes and
// attaches its libraries. opts are applied after the configuration's own.
// Libraries that fail to attach are logged and skipped.
func NewFromConfig(ctx context.Context, cfg *Config, opts ...Option) (*VM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	vm := New(append(base, opts...)...)
	for _, cc := range cfg.Classes {
		var super *Class
		if cc.Super != "" {
			super = vm.DefineClass(cc.Super, nil)
		}
		vm.DefineClass(cc.Name, super)
	}
	for _, path := range cfg.Libraries {
		if err := vm.AttachLibrary(ctx, path); err != nil {
			vm.logger.WarnContext(ctx, "jnivm: skipping library", "path", path, "error", err)
		}
	}
	return vm, nil
}

// ConfigSchema returns the JSON Schema of Config.
func ConfigSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	data, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
