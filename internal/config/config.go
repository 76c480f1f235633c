package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/chq/internal/softdelete"
	"github.com/roach88/chq/internal/store"
)

//go:embed schema.cue
var schemaSource string

// Environment variables that override file settings.
const (
	EnvLogLevel  = "CHQ_LOG_LEVEL"
	EnvLogFormat = "CHQ_LOG_FMT"
	EnvDSN       = "CHQ_DSN"
)

// Config is the chq configuration file.
type Config struct {
	Connection Connection `yaml:"connection" json:"connection"`
	Query      Query      `yaml:"query" json:"query"`
	SoftDelete SoftDelete `yaml:"soft_delete" json:"soft_delete"`
	Log        Log        `yaml:"log" json:"log"`
}

// Connection selects the store and how statements are rendered for it.
type Connection struct {
	Driver   string `yaml:"driver" json:"driver"`
	DSN      string `yaml:"dsn" json:"dsn"`
	Database string `yaml:"database" json:"database"`
	// Cluster is used for ON CLUSTER in mutations. Empty disables it.
	Cluster      string `yaml:"cluster" json:"cluster"`
	Dialect      string `yaml:"dialect" json:"dialect"`
	MaxOpenConns int    `yaml:"max_open_conns" json:"max_open_conns"`
}

// Query holds defaults for the execution strategies.
type Query struct {
	PerPage   int `yaml:"per_page" json:"per_page"`
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
}

// SoftDelete names the soft-delete columns shared by every table.
type SoftDelete struct {
	KeyColumn       string `yaml:"key_column" json:"key_column"`
	FlagColumn      string `yaml:"flag_column" json:"flag_column"`
	DeletedAtColumn string `yaml:"deleted_at_column" json:"deleted_at_column"`
	VersionColumn   string `yaml:"version_column" json:"version_column"`
	Final           bool   `yaml:"final" json:"final"`
}

// Log configures the default slog handler.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Error is a configuration error with the CUE position that caused it.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() && e.Pos.Filename() != "" {
		return fmt.Sprintf("%s:%d:%d: config: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return "config: " + e.Message
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return Parse(nil)
}

// Load reads the file at path, applies defaults and environment overrides.
// An empty path loads the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data, unifies it with the schema and applies
// environment overrides.
func Parse(data []byte) (*Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if doc == nil {
		doc = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(doc))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &Config{}
	if err := value.Decode(cfg); err != nil {
		return nil, formatCUEError(err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvDSN); ok && v != "" {
		c.Connection.DSN = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		if _, err := ParseLevel(v); err != nil {
			return &Error{Field: EnvLogLevel, Message: err.Error()}
		}
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok && v != "" {
		if _, err := ParseFormat(v); err != nil {
			return &Error{Field: EnvLogFormat, Message: err.Error()}
		}
		c.Log.Format = v
	}
	return nil
}

// StoreOptions returns the options for store.Open.
func (c Connection) StoreOptions() (store.Options, error) {
	dialect := store.Dialect("")
	if c.Dialect != "" {
		d, err := store.ParseDialect(c.Dialect)
		if err != nil {
			return store.Options{}, err
		}
		dialect = d
	}
	return store.Options{Dialect: dialect, MaxOpenConns: c.MaxOpenConns}, nil
}

// TableName qualifies table with the configured database. Tables that
// already name a database, and the "default" database, are left as is.
func (c Connection) TableName(table string) string {
	if c.Database == "" || c.Database == "default" || strings.Contains(table, ".") {
		return table
	}
	return c.Database + "." + table
}

// Table returns the soft-delete configuration of table.
func (s SoftDelete) Table(table string) softdelete.Config {
	return softdelete.Config{
		Table:           table,
		KeyColumn:       s.KeyColumn,
		FlagColumn:      s.FlagColumn,
		DeletedAtColumn: s.DeletedAtColumn,
		VersionColumn:   s.VersionColumn,
		Final:           s.Final,
	}
}

// formatCUEError returns the first CUE error with its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	cfgErr := &Error{Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		cfgErr.Field = strings.Join(path, ".")
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
