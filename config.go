package fundsheet

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed defaults.yaml
var defaultConfigYAML []byte

// TranslationTable maps a normalized tag name to its target row.
type TranslationTable map[string]int

// Config is the injectable layout of the target template: which row each
// tag goes to, how values are scaled and which records each run accepts.
type Config struct {
	MaxRows        int                         `yaml:"max_rows"`
	DefaultDivisor float64                     `yaml:"default_divisor"`
	PointInTime    []string                    `yaml:"point_in_time"`
	Divisors       map[string]float64          `yaml:"divisors"`
	Statements     map[string]TranslationTable `yaml:"statements"`
}

// DefaultConfig returns the built-in template layout.
func DefaultConfig() *Config {
	cfg, err := ParseConfig(defaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("fundsheet: invalid embedded defaults: %v", err))
	}
	return cfg
}

// ParseConfig decodes a YAML config. Tag and statement names are lowercased.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig. A statement
// table in the file replaces the default table for that statement; divisors
// are merged per tag.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	over, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	cfg := DefaultConfig().Merge(over)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Merge returns a copy of c with the set fields of over applied on top.
func (c *Config) Merge(over *Config) *Config {
	out := &Config{
		MaxRows:        c.MaxRows,
		DefaultDivisor: c.DefaultDivisor,
		PointInTime:    append([]string(nil), c.PointInTime...),
		Divisors:       make(map[string]float64, len(c.Divisors)),
		Statements:     make(map[string]TranslationTable, len(c.Statements)),
	}
	for k, v := range c.Divisors {
		out.Divisors[k] = v
	}
	for k, v := range c.Statements {
		out.Statements[k] = v
	}

	if over.MaxRows != 0 {
		out.MaxRows = over.MaxRows
	}
	if over.DefaultDivisor != 0 {
		out.DefaultDivisor = over.DefaultDivisor
	}
	if over.PointInTime != nil {
		out.PointInTime = append([]string(nil), over.PointInTime...)
	}
	for k, v := range over.Divisors {
		out.Divisors[k] = v
	}
	for k, v := range over.Statements {
		out.Statements[k] = v
	}
	return out
}

// Validate checks the config for values the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.MaxRows < 1 {
		return fmt.Errorf("max_rows must be positive, got %d", c.MaxRows)
	}
	if c.DefaultDivisor == 0 {
		return fmt.Errorf("default_divisor must not be zero")
	}
	for tag, d := range c.Divisors {
		if d == 0 {
			return fmt.Errorf("divisor for %q must not be zero", tag)
		}
	}
	for stmt, table := range c.Statements {
		for tag, row := range table {
			if row < 1 {
				return fmt.Errorf("statement %q: tag %q maps to invalid row %d", stmt, tag, row)
			}
		}
	}
	return nil
}

// validateConfig checks cfg as the pipeline will use it, with maxRows in
// place of the configured row limit.
func validateConfig(cfg *Config, maxRows int) error {
	eff := *cfg
	eff.MaxRows = maxRows
	if err := eff.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Table returns the translation table of a statement.
func (c *Config) Table(statement string) (TranslationTable, error) {
	table, ok := c.Statements[strings.ToLower(statement)]
	if !ok {
		return nil, fmt.Errorf("no translation table for statement %q", statement)
	}
	return table, nil
}

// Divisor returns the scale factor for a normalized tag.
func (c *Config) Divisor(tag string) float64 {
	if d, ok := c.Divisors[tag]; ok {
		return d
	}
	return c.DefaultDivisor
}

// IsPointInTime reports whether annual records of statement are accepted in
// sub-annual runs.
func (c *Config) IsPointInTime(statement string) bool {
	statement = strings.ToLower(statement)
	for _, s := range c.PointInTime {
		if s == statement {
			return true
		}
	}
	return false
}

func (c *Config) normalize() {
	for i, s := range c.PointInTime {
		c.PointInTime[i] = strings.ToLower(s)
	}
	if c.Divisors != nil {
		divisors := make(map[string]float64, len(c.Divisors))
		for k, v := range c.Divisors {
			divisors[strings.ToLower(k)] = v
		}
		c.Divisors = divisors
	}
	if c.Statements != nil {
		statements := make(map[string]TranslationTable, len(c.Statements))
		for stmt, table := range c.Statements {
			t := make(TranslationTable, len(table))
			for tag, row := range table {
				t[strings.ToLower(tag)] = row
			}
			statements[strings.ToLower(stmt)] = t
		}
		c.Statements = statements
	}
}
