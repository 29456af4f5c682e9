package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable of the bridge, loaded from a TOML file with
// defaults filled in for anything the file omits. LOG_LEVEL in the
// environment supersedes the file's log_level once loaded.
type Config struct {
	LogLevel       string `toml:"log_level"`
	ListenAddress  string `toml:"listen_address"`
	ListenPort     uint16 `toml:"listen_port"`
	BroadcastPort  uint16 `toml:"broadcast_port"`
	AdminAddress   string `toml:"admin_address"`
	KeyfilePollMS  int64  `toml:"keyfile_poll_interval_ms"`
	KeyfilePath    string `toml:"keyfile_path"`
	AuditDBPath    string `toml:"audit_db_path"`
	CertValidityH  int64  `toml:"cert_validity_hours"`
}

// DefaultConfig returns the configuration used when no file is present, or
// to fill in fields a partial file leaves unset.
func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		ListenAddress: "0.0.0.0",
		ListenPort:    9022,
		BroadcastPort: 9020,
		AdminAddress:  "127.0.0.1:9023",
		KeyfilePollMS: 5000,
		KeyfilePath:   "",
		AuditDBPath:   "bridge.db",
		CertValidityH: 24 * 365,
	}
}

// LoadConfig reads path as TOML, applying DefaultConfig for any field the
// file does not set, then applies the LOG_LEVEL environment override.
// A missing file is not an error: defaults are returned as-is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, nil
}
