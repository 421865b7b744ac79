package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config holds all configuration options for mcuscope.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" yaml:"analysis" json:"analysis"`

	// Interface pattern overrides
	Interfaces InterfacesConfig `koanf:"interfaces" toml:"interfaces" yaml:"interfaces" json:"interfaces"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude" yaml:"exclude" json:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache" yaml:"cache" json:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" yaml:"output" json:"output"`

	// LLM summary settings
	LLM LLMConfig `koanf:"llm" toml:"llm" yaml:"llm" json:"llm"`
}

// AnalysisConfig controls extraction and the call graph.
type AnalysisConfig struct {
	EntryPoint  string   `koanf:"entry_point" toml:"entry_point" yaml:"entry_point" json:"entry_point"`
	CallDepth   int      `koanf:"call_depth" toml:"call_depth" yaml:"call_depth" json:"call_depth"`
	Backend     string   `koanf:"backend" toml:"backend" yaml:"backend" json:"backend"` // regex, treesitter
	Extensions  []string `koanf:"extensions" toml:"extensions" yaml:"extensions" json:"extensions"`
	Include     []string `koanf:"include" toml:"include,omitempty" yaml:"include,omitempty" json:"include,omitempty"`
	MaxFileSize int64    `koanf:"max_file_size" toml:"max_file_size" yaml:"max_file_size" json:"max_file_size"` // bytes
	Workers     int      `koanf:"workers" toml:"workers" yaml:"workers" json:"workers"`
	Timeout     int      `koanf:"timeout" toml:"timeout" yaml:"timeout" json:"timeout"` // seconds
}

// InterfacesConfig overrides the built-in interface tables.
type InterfacesConfig struct {
	Patterns map[string][]string `koanf:"patterns" toml:"patterns,omitempty" yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Hints    map[string]string   `koanf:"hints" toml:"hints,omitempty" yaml:"hints,omitempty" json:"hints,omitempty"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns,omitempty" yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Dirs      []string `koanf:"dirs" toml:"dirs" yaml:"dirs" json:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore" yaml:"gitignore" json:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" yaml:"enabled" json:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" yaml:"dir" json:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" yaml:"ttl" json:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format" yaml:"format" json:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color" yaml:"color" json:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose" yaml:"verbose" json:"verbose"`
}

// LLMConfig configures the optional natural-language summary.
type LLMConfig struct {
	Provider    string  `koanf:"provider" toml:"provider" yaml:"provider" json:"provider"` // gemini, none
	Model       string  `koanf:"model" toml:"model" yaml:"model" json:"model"`
	Temperature float64 `koanf:"temperature" toml:"temperature" yaml:"temperature" json:"temperature"`
	MaxTokens   int     `koanf:"max_tokens" toml:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	Timeout     int     `koanf:"timeout" toml:"timeout" yaml:"timeout" json:"timeout"` // seconds
	APIKeyEnv   string  `koanf:"api_key_env" toml:"api_key_env" yaml:"api_key_env" json:"api_key_env"`
}

// Known values for enumerated settings.
var (
	Backends  = []string{"regex", "treesitter"}
	Formats   = []string{"text", "json", "markdown", "toon"}
	Providers = []string{"gemini", "none"}
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			EntryPoint:  "main",
			CallDepth:   5,
			Backend:     "regex",
			Extensions:  []string{".c", ".h", ".cpp", ".hpp", ".cc", ".cxx", ".hxx"},
			MaxFileSize: 10 * 1024 * 1024,
			Timeout:     300,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				"build",
				"debug",
				"release",
				".git",
				".mcuscope",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".mcuscope/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		LLM: LLMConfig{
			Provider:    "none",
			Model:       "gemini-2.5-flash",
			Temperature: 0.1,
			MaxTokens:   2048,
			Timeout:     30,
			APIKeyEnv:   "GEMINI_API_KEY",
		},
	}
}

// parserFor picks the koanf parser from a file extension, defaulting to TOML.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return kjson.Parser()
	default:
		return toml.Parser()
	}
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Names searched by LoadOrDefault, in order.
var configNames = []string{
	"mcuscope.toml",
	"mcuscope.yaml",
	"mcuscope.yml",
	"mcuscope.json",
}

// Find returns the first config file in the standard locations, or "".
func Find() string {
	for _, dir := range []string{".", ".mcuscope"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := Find(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// Check verifies semantic rules the schema cannot express.
func (c *Config) Check() error {
	var errs []error
	if c.Analysis.CallDepth <= 0 {
		errs = append(errs, fmt.Errorf("analysis.call_depth must be positive, got %d", c.Analysis.CallDepth))
	}
	if strings.TrimSpace(c.Analysis.EntryPoint) == "" {
		errs = append(errs, errors.New("analysis.entry_point must not be empty"))
	}
	if !slices.Contains(Backends, strings.ToLower(c.Analysis.Backend)) {
		errs = append(errs, fmt.Errorf("analysis.backend %q is not one of %v", c.Analysis.Backend, Backends))
	}
	if !slices.Contains(Formats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format %q is not one of %v", c.Output.Format, Formats))
	}
	if c.LLM.Provider != "" && !slices.Contains(Providers, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of %v", c.LLM.Provider, Providers))
	}
	for name, patterns := range c.Interfaces.Patterns {
		for _, p := range patterns {
			if strings.TrimSpace(p) == "" {
				errs = append(errs, fmt.Errorf("interfaces.patterns.%s contains an empty pattern", name))
				break
			}
		}
	}
	return errors.Join(errs...)
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	path = filepath.ToSlash(path)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, "/"+dir+"/") || strings.HasPrefix(path, dir+"/") {
			return true
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if len(c.Analysis.Extensions) > 0 && !slices.ContainsFunc(c.Analysis.Extensions, func(e string) bool {
		return strings.ToLower(e) == ext
	}) {
		return true
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// Write encodes the config in the given format: toml, yaml or json.
func (c *Config) Write(w io.Writer, format string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "", "toml":
		data, err = gotoml.Marshal(*c)
	case "yaml", "yml":
		data, err = yamlv3.Marshal(c)
	case "json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
