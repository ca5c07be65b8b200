// Package cfg resolves the command line configuration from the process environment and an
// optional .env file.
package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultEnvFile      = ".env"
	DefaultMigrationDir = "."
	DefaultTableName    = "goose_db_version"

	// EnvFileNone disables .env loading.
	EnvFileNone = "none"
)

const (
	envDriver       = "GOOSE_DRIVER"
	envDBString     = "GOOSE_DBSTRING"
	envMigrationDir = "GOOSE_MIGRATION_DIR"
	envTable        = "GOOSE_TABLE"
	// https://no-color.org/
	envNoColor = "NO_COLOR"
)

// Config holds the effective configuration values.
type Config struct {
	Driver       string
	DBString     string
	MigrationDir string
	TableName    string
	NoColor      bool

	// Vars holds every variable read from the .env file. It is used as the ENVSUB lookup
	// together with the process environment.
	Vars map[string]string
}

// Load reads the configuration. Values from envFile are applied first and the process environment
// overrides them. A missing default .env file is not an error; a missing file that was asked for
// explicitly is.
func Load(envFile string) (*Config, error) {
	vars := make(map[string]string)
	if envFile != EnvFileNone {
		name := envFile
		if name == "" {
			name = DefaultEnvFile
		}
		m, err := godotenv.Read(name)
		switch {
		case err == nil:
			vars = m
		case errors.Is(err, fs.ErrNotExist) && envFile == "":
		default:
			return nil, fmt.Errorf("failed to read env file %q: %w", name, err)
		}
	}
	lookup := func(key, def string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		if v, ok := vars[key]; ok && v != "" {
			return v
		}
		return def
	}
	noColor, _ := strconv.ParseBool(lookup(envNoColor, "false"))
	return &Config{
		Driver:       lookup(envDriver, ""),
		DBString:     lookup(envDBString, ""),
		MigrationDir: lookup(envMigrationDir, DefaultMigrationDir),
		TableName:    lookup(envTable, DefaultTableName),
		NoColor:      noColor,
		Vars:         vars,
	}, nil
}

// An EnvVar is an environment variable Name=Value.
type EnvVar struct {
	Name  string
	Value string
}

// List returns the effective values in a stable order.
func (c *Config) List() []EnvVar {
	return []EnvVar{
		{Name: envDriver, Value: c.Driver},
		{Name: envDBString, Value: c.DBString},
		{Name: envMigrationDir, Value: c.MigrationDir},
		{Name: envTable, Value: c.TableName},
		{Name: envNoColor, Value: strconv.FormatBool(c.NoColor)},
	}
}

// Environ returns the .env variables followed by the process environment in KEY=VALUE form, so
// later process values win when the slice is turned into a lookup.
func (c *Config) Environ() []string {
	env := make([]string, 0, len(c.Vars))
	for k, v := range c.Vars {
		env = append(env, k+"="+v)
	}
	return append(env, os.Environ()...)
}
