package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Summary and value-count defaults
	HeadRows         int     `mapstructure:"head_rows" yaml:"head_rows"`
	TailRows         int     `mapstructure:"tail_rows" yaml:"tail_rows"`
	TopValues        int     `mapstructure:"top_values" yaml:"top_values"`
	OutlierThreshold float64 `mapstructure:"outlier_threshold" yaml:"outlier_threshold"`

	// Chart output
	ChartFormat string `mapstructure:"chart_format" yaml:"chart_format"`
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`

	// Parsing
	Delimiter  string   `mapstructure:"delimiter" yaml:"delimiter"`
	Decimal    string   `mapstructure:"decimal" yaml:"decimal"`
	Thousands  string   `mapstructure:"thousands" yaml:"thousands"`
	NAValues   []string `mapstructure:"na_values" yaml:"na_values"`
	SheetName  string   `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex int      `mapstructure:"sheet_index" yaml:"sheet_index"`
}

// Dir returns ~/.datalens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datalens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datalens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATALENS")
	v.AutomaticEnv()

	v.SetDefault("head_rows", 5)
	v.SetDefault("tail_rows", 5)
	v.SetDefault("top_values", 5)
	v.SetDefault("outlier_threshold", 3.5)
	v.SetDefault("chart_format", "svg")
	v.SetDefault("chart_width", 800)
	v.SetDefault("chart_height", 500)
	v.SetDefault("output_dir", "charts")
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal", "")
	v.SetDefault("thousands", "")
	v.SetDefault("na_values", []string{})
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 1)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Rune returns the single character configured in s, or 0 when unset.
// Separators may also be given by name: tab, comma, dot, semicolon, space.
func Rune(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	case "comma":
		return ',', nil
	case "dot":
		return '.', nil
	case "semicolon":
		return ';', nil
	case "space":
		return ' ', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("expected a single character, got %q", s)
	}
	return r[0], nil
}
