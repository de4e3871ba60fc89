package main

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/BurntSushi/toml"

	"github.com/osbuild/preseed-composer/internal/preseed"
)

type PreseedComposerConfigFile struct {
	API    APIConfig       `toml:"api"`
	Store  StoreConfig     `toml:"store"`
	Render preseed.Options `toml:"render"`
	Log    LogConfig       `toml:"log"`
	Sentry SentryConfig    `toml:"sentry"`
}

type APIConfig struct {
	Listen        string `toml:"listen"`
	MetricsListen string `toml:"metrics_listen"`
	BasePath      string `toml:"base_path"`
	BodyLimit     string `toml:"body_limit"`
}

// Do not write this config to logs or stdout, it contains secrets!
type StoreConfig struct {
	Backend     string `toml:"backend"`
	Directory   string `toml:"directory"`
	MaxAttempts int    `toml:"max_attempts"`
	PGHost      string `toml:"pg_host" env:"PGHOST"`
	PGPort      string `toml:"pg_port" env:"PGPORT"`
	PGDatabase  string `toml:"pg_database" env:"PGDATABASE"`
	PGUser      string `toml:"pg_user" env:"PGUSER"`
	PGPassword  string `toml:"pg_password" env:"PGPASSWORD"`
	PGSSLMode   string `toml:"pg_ssl_mode" env:"PGSSLMODE"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type SentryConfig struct {
	DSN         string `toml:"dsn"`
	Environment string `toml:"environment"`
}

const (
	StoreBackendFS = "fs"
	StoreBackendDB = "db"
)

func GetDefaultConfig() *PreseedComposerConfigFile {
	return &PreseedComposerConfigFile{
		API: APIConfig{
			Listen:    "localhost:8080",
			BasePath:  "/api/preseed-composer/v1",
			BodyLimit: "1M",
		},
		Store: StoreConfig{
			Backend:     StoreBackendFS,
			Directory:   "/var/lib/preseed-composer/preseeds",
			MaxAttempts: 10,
			PGHost:      "localhost",
			PGPort:      "5432",
			PGSSLMode:   "prefer",
		},
		Render: preseed.DefaultOptions(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func LoadConfig(name string) (*PreseedComposerConfigFile, error) {
	c := GetDefaultConfig()
	_, err := toml.DecodeFile(name, c)
	if err != nil {
		return nil, err
	}

	err = loadConfigFromEnv(&c.Store)
	if err != nil {
		return nil, err
	}

	switch c.Store.Backend {
	case StoreBackendFS, StoreBackendDB:
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	return c, nil
}

// loadConfigFromEnv overrides string fields carrying an env tag with the
// value of that environment variable, when set.
func loadConfigFromEnv(intf interface{}) error {
	t := reflect.TypeOf(intf).Elem()
	v := reflect.ValueOf(intf).Elem()

	for i := 0; i < v.NumField(); i++ {
		fieldT := t.Field(i)
		fieldV := v.Field(i)
		key, ok := fieldT.Tag.Lookup("env")
		if !ok {
			continue
		}

		confV, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if fieldV.Kind() != reflect.String {
			return fmt.Errorf("unsupported type for %s", key)
		}
		fieldV.SetString(confV)
	}
	return nil
}

func (c *StoreConfig) dbURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PGUser,
		c.PGPassword,
		c.PGHost,
		c.PGPort,
		c.PGDatabase,
		c.PGSSLMode,
	)
}

func DumpConfig(c *PreseedComposerConfigFile, w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
