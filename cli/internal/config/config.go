// Package config resolves CLI settings from .loom.yaml, LOOM_* variables and
// the DATABASE_* variables, optionally declared in .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/satishbabariya/loom/internal/adapters/database"
	"github.com/satishbabariya/loom/telemetry"
)

var AppFs = afero.NewOsFs()

// ErrNoDatabase is returned when no connection settings are present.
var ErrNoDatabase = errors.New("no database configured: set DATABASE_URL or DATABASE_HOST, DATABASE_USER and DATABASE_PASSWORD")

const (
	DefaultDriver     = "mysql"
	DefaultPort       = 3306
	DefaultModelsPath = "models.yaml"
)

// Config holds the application configuration
type Config struct {
	ModelsPath string
	Debug      bool
	Telemetry  telemetry.Config

	// Env holds the merged DATABASE_* settings.
	Env map[string]string
}

var databaseKeys = []string{
	"DATABASE_URL",
	"DATABASE_DRIVER",
	"DATABASE_HOST",
	"DATABASE_PORT",
	"DATABASE_USER",
	"DATABASE_PASSWORD",
	"DATABASE_NAME",
	"DATABASE_ATTACH",
}

// Load reads configuration from dir, the home directory and the
// environment. Values from .env never override the process environment;
// values from .env.local do.
func Load(dir string) (*Config, error) {
	return LoadFs(AppFs, dir, os.LookupEnv)
}

// LoadFs is Load over an explicit filesystem and environment lookup.
func LoadFs(fs afero.Fs, dir string, lookup func(string) (string, bool)) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName(".loom")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "loom"))
	}

	v.SetEnvPrefix("LOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("models_path", DefaultModelsPath)
	v.SetDefault("debug", false)
	v.SetDefault("telemetry.type", string(telemetry.TypeMemory))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	env, err := readEnvFile(fs, filepath.Join(dir, ".env"))
	if err != nil {
		return nil, err
	}
	for _, key := range databaseKeys {
		if val, ok := lookup(key); ok {
			env[key] = val
		}
	}
	local, err := readEnvFile(fs, filepath.Join(dir, ".env.local"))
	if err != nil {
		return nil, err
	}
	for k, val := range local {
		env[k] = val
	}

	tel, err := telemetryConfig(v)
	if err != nil {
		return nil, err
	}

	modelsPath := v.GetString("models_path")
	if !filepath.IsAbs(modelsPath) {
		modelsPath = filepath.Join(dir, modelsPath)
	}

	return &Config{
		ModelsPath: modelsPath,
		Debug:      v.GetBool("debug"),
		Telemetry:  tel,
		Env:        env,
	}, nil
}

// telemetryConfig reads telemetry.type and telemetry.buckets. Buckets given
// through the environment are comma separated.
func telemetryConfig(v *viper.Viper) (telemetry.Config, error) {
	cfg := telemetry.Config{Type: v.GetString("telemetry.type")}

	raw := v.Get("telemetry.buckets")
	if s, ok := raw.(string); ok {
		raw = strings.Split(s, ",")
	}
	if raw != nil {
		buckets, err := cast.ToFloat64SliceE(raw)
		if err != nil {
			return telemetry.Config{}, fmt.Errorf("invalid telemetry.buckets: %w", err)
		}
		cfg.Buckets = buckets
	}
	return cfg, nil
}

func readEnvFile(fs afero.Fs, path string) (map[string]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	env, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return env, nil
}

// Configured reports whether enough settings exist to connect.
func (c *Config) Configured() bool {
	if c.Env["DATABASE_URL"] != "" {
		return true
	}
	return c.Env["DATABASE_HOST"] != "" && c.Env["DATABASE_USER"] != "" && c.Env["DATABASE_PASSWORD"] != ""
}

// Database maps the DATABASE_* settings to adapter settings.
func (c *Config) Database() (database.Config, error) {
	if !c.Configured() {
		return database.Config{}, ErrNoDatabase
	}

	driver := c.Env["DATABASE_DRIVER"]
	if driver == "" {
		driver = DefaultDriver
	}

	port := DefaultPort
	if raw := c.Env["DATABASE_PORT"]; raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return database.Config{}, fmt.Errorf("invalid DATABASE_PORT %q: %w", raw, err)
		}
		port = p
	}

	attach, err := parseAttach(c.Env["DATABASE_ATTACH"])
	if err != nil {
		return database.Config{}, err
	}

	return database.Config{
		Driver:   driver,
		URL:      c.Env["DATABASE_URL"],
		Host:     c.Env["DATABASE_HOST"],
		Port:     port,
		User:     c.Env["DATABASE_USER"],
		Password: c.Env["DATABASE_PASSWORD"],
		Name:     c.Env["DATABASE_NAME"],
		Attach:   attach,
	}, nil
}

// parseAttach reads "Schema=file,Other=:memory:".
func parseAttach(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	attach := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		name, file, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || name == "" || file == "" {
			return nil, fmt.Errorf("invalid DATABASE_ATTACH entry %q", entry)
		}
		attach[name] = file
	}
	return attach, nil
}

// WriteEnv writes values to path in .env format.
func WriteEnv(fs afero.Fs, path string, values map[string]string) error {
	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode env: %w", err)
	}
	return afero.WriteFile(fs, path, []byte(content+"\n"), 0600)
}
