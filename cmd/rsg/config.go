package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/rsg/pkg/templating"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v2"
)

// Config holds every setting of the command. Flags given on the command line
// override the values read from a config file.
type Config struct {
	// MinWords and MaxWords are nil when unset so the generator can apply its
	// own defaults.
	MinWords *int `json:"min_words,omitempty" yaml:"min_words,omitempty"`
	MaxWords *int `json:"max_words,omitempty" yaml:"max_words,omitempty"`

	Sources       []string `json:"sources" yaml:"sources"`
	LoadPath      string   `json:"load_path" yaml:"load_path"`
	SavePath      string   `json:"save_path" yaml:"save_path"`
	DatabasePath  string   `json:"database_path" yaml:"database_path"`
	ModelName     string   `json:"model_name" yaml:"model_name"`
	Replace       bool     `json:"replace" yaml:"replace"`
	TemplatePath  string   `json:"template_path" yaml:"template_path"`
	Quiet         bool     `json:"quiet" yaml:"quiet"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	MaxLineLength int      `json:"max_line_length" yaml:"max_line_length"`

	Templates *templating.TemplateConfig `json:"template_config" yaml:"template_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Sources:       []string{},
		ModelName:     "default",
		LogLevel:      "info",
		MaxLineLength: 1 << 20,
		Templates:     templating.DefaultConfig(),
	}
}

// ErrConfigNotWritten is returned with a usable default configuration when a
// missing config file could not be created.
var ErrConfigNotWritten = errors.New("default config file not written")

type configFormat int

const (
	formatJSON configFormat = iota
	formatYAML
)

func formatFor(path string) (configFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// LoadConfig reads the configuration from a JSON or YAML file at the given
// path. If the file doesn't exist, it creates one with default values. When
// that write fails, the defaults are returned together with an error wrapping
// ErrConfigNotWritten.
func LoadConfig(path string) (*Config, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var data []byte
		if format == formatYAML {
			data, err = yaml.Marshal(config)
		} else {
			data, err = json.MarshalIndent(config, "", "  ")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
			return config, fmt.Errorf("%w: %w", ErrConfigNotWritten, err)
		}
		return config, nil
	}

	if format == formatYAML {
		err = yaml.Unmarshal(file, config)
	} else {
		err = json.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Templates == nil {
		config.Templates = templating.DefaultConfig()
	}
	return config, nil
}
