package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/ritzau/storygraph/pkg/layout"
	"github.com/ritzau/storygraph/pkg/mapper"
	"github.com/ritzau/storygraph/pkg/model"
	"github.com/spf13/pflag"
)

const (
	// DefaultConfigFile is read from the working directory when present
	DefaultConfigFile = "storygraph.toml"
	// DefaultEnvFile is loaded into the environment when present
	DefaultEnvFile = ".env"
	// EnvPrefix prefixes every environment variable (e.g., STORYGRAPH_PORT=9090)
	EnvPrefix = "STORYGRAPH_"
)

// Config holds all configuration for the application
type Config struct {
	Story      string  `koanf:"story"`
	Library    string  `koanf:"library" validate:"required_without=API"`
	API        string  `koanf:"api" validate:"omitempty,url"`
	Token      string  `koanf:"token"`
	RPS        float64 `koanf:"rps" validate:"min=0"`
	Port       int     `koanf:"port" validate:"min=1,max=65535"`
	Watch      bool    `koanf:"watch"`
	Direction  string  `koanf:"direction" validate:"required"`
	Verbosity  string  `koanf:"verbosity"`
	VerboseCnt int     `koanf:"verbose"`
	JSON       bool    `koanf:"json"`

	Layout LayoutSettings `koanf:"layout"`
	Gap    GapSettings    `koanf:"gap"`
}

// LayoutSettings are the spacing constants of the auto-layout
type LayoutSettings struct {
	NodeWidth  float64 `koanf:"nodewidth" validate:"gt=0"`
	NodeHeight float64 `koanf:"nodeheight" validate:"gt=0"`
	NodeSep    float64 `koanf:"nodesep" validate:"min=0"`
	RankSep    float64 `koanf:"ranksep" validate:"min=0"`
	EdgeSep    float64 `koanf:"edgesep" validate:"min=0"`
	Iterations int     `koanf:"iterations" validate:"min=0"`
}

// GapSettings are the spacing of the initial depth-based placement
type GapSettings struct {
	Horizontal float64 `koanf:"horizontal" validate:"gt=0"`
	Vertical   float64 `koanf:"vertical" validate:"gt=0"`
}

// flagKeys maps flag names to configuration keys where they differ
var flagKeys = map[string]string{
	"node-width":  "layout.nodewidth",
	"node-height": "layout.nodeheight",
	"node-sep":    "layout.nodesep",
	"rank-sep":    "layout.ranksep",
	"edge-sep":    "layout.edgesep",
	"iterations":  "layout.iterations",
	"h-gap":       "gap.horizontal",
	"v-gap":       "gap.vertical",
}

// Files names the optional files Load reads
type Files struct {
	Config string // TOML config file
	Env    string // dotenv file
}

// Load loads configuration from defaults, config file, .env, environment
// variables, and flags.
// Priority: Flags > Env > .env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFiles(f, Files{Config: DefaultConfigFile, Env: DefaultEnvFile})
}

// LoadFiles is Load with explicit file locations
func LoadFiles(f *pflag.FlagSet, files Files) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	if files.Config != "" {
		if err := k.Load(file.Provider(files.Config), toml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", files.Config, err)
		}
	}

	// 3. .env (optional); never overrides variables already set
	if files.Env != "" {
		if err := godotenv.Load(files.Env); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", files.Env, err)
		}
	}

	// 4. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags
	if f != nil {
		provider := posflag.ProviderWithFlag(f, ".", k, func(flag *pflag.Flag) (string, interface{}) {
			key := flag.Name
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(f, flag)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() map[string]interface{} {
	lc := layout.DefaultConfig()
	return map[string]interface{}{
		"story":     "",
		"library":   "",
		"api":       "",
		"token":     "",
		"rps":       5.0,
		"port":      8080,
		"watch":     false,
		"direction": string(model.DirectionTopToBottom),
		"verbosity": "",
		"verbose":   0,
		"json":      false,
		"layout": map[string]interface{}{
			"nodewidth":  lc.NodeWidth,
			"nodeheight": lc.NodeHeight,
			"nodesep":    lc.NodeSep,
			"ranksep":    lc.RankSep,
			"edgesep":    lc.EdgeSep,
			"iterations": lc.OrderIterations,
		},
		"gap": map[string]interface{}{
			"horizontal": float64(mapper.DefaultHorizontalGap),
			"vertical":   float64(mapper.DefaultVerticalGap),
		},
	}
}

var validate = validator.New()

// Validate checks field ranges and that the direction parses
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := model.ParseDirection(c.Direction); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ParsedDirection returns the configured layout direction
func (c *Config) ParsedDirection() model.Direction {
	d, err := model.ParseDirection(c.Direction)
	if err != nil {
		return model.DirectionTopToBottom
	}
	return d
}

// LayoutConfig returns the layout configuration for the configured direction
func (c *Config) LayoutConfig() layout.Config {
	return layout.Config{
		Direction:       c.ParsedDirection(),
		NodeWidth:       c.Layout.NodeWidth,
		NodeHeight:      c.Layout.NodeHeight,
		NodeSep:         c.Layout.NodeSep,
		RankSep:         c.Layout.RankSep,
		EdgeSep:         c.Layout.EdgeSep,
		OrderIterations: c.Layout.Iterations,
	}
}

// MapperOptions returns the initial placement options
func (c *Config) MapperOptions() mapper.Options {
	return mapper.Options{
		HorizontalGap: c.Gap.Horizontal,
		VerticalGap:   c.Gap.Vertical,
	}
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
