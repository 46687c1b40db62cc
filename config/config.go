// Package config implements component O: process configuration for
// cmd/bufrcodec and cmd/bufrsrv, loaded from an optional .env file plus
// environment variable overrides, grounded on
// ClusterCockpit-cc-backend's config bootstrap (an env-first,
// .env-overlay style; see DESIGN.md).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dsnet/bufr/internal/applog"
	"github.com/dsnet/bufr/tables"
)

// Config holds every process-wide knob the CLI and server share.
type Config struct {
	// TablePaths lists directories searched, in order, for the
	// default *.csv table dumps loaded into a tables.MemStore.
	TablePaths []string

	// SQLiteDSN, if non-empty, selects a tables.SQLStore instead of
	// the default MemStore.
	SQLiteDSN string

	// Addr is the HTTP bind address for cmd/bufrsrv.
	Addr string

	// MetricsAddr is the bind address for a separate Prometheus
	// /metrics listener; when empty, /metrics is served on Addr.
	MetricsAddr string

	Debug bool
}

// defaults mirror the values cc-backend's ProgramConfig hard-codes
// before applying overrides.
func defaults() *Config {
	return &Config{
		TablePaths: []string{"./tables"},
		Addr:       "localhost:8080",
	}
}

// Load reads envFile (if it exists; a missing file is not an error,
// matching godotenv.Load's own "best effort" convention) and then
// overlays BUFR_-prefixed environment variables onto the defaults.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, err
			}
		}
	}

	cfg := defaults()
	if v := os.Getenv("BUFR_TABLE_PATHS"); v != "" {
		cfg.TablePaths = strings.Split(v, string(os.PathListSeparator))
	}
	if v := os.Getenv("BUFR_SQLITE_DSN"); v != "" {
		cfg.SQLiteDSN = v
	}
	if v := os.Getenv("BUFR_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("BUFR_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("BUFR_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		cfg.Debug = b
	}

	applog.SetDebug(cfg.Debug)
	applog.Debugf("configuration loaded: addr=%s sqlite=%q tables=%v", cfg.Addr, cfg.SQLiteDSN, cfg.TablePaths)
	return cfg, nil
}

// OpenStore builds the tables.Store named by cfg: a SQLStore if
// SQLiteDSN is set, otherwise a MemStore populated from TablePaths.
func (cfg *Config) OpenStore() (tables.Store, error) {
	if cfg.SQLiteDSN != "" {
		return tables.OpenSQLStore(cfg.SQLiteDSN)
	}
	return tables.LoadMemStoreDir(cfg.TablePaths)
}
