package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. DOCMEM_BROKER_PASSWORD.
const EnvPrefix = "DOCMEM"

// InitViper creates a *viper.Viper that resolves overrides for every key in
// ValidConfigKeys.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (DOCMEM_BROKER_PASSWORD, DOCMEM_INGEST_WORKERS, etc.)
//  3. config file values
//  4. Defaults from NewDefaultConfig()
//
// Only layers 1 and 2 live in viper; the file and defaults are handled by
// ParseConfigTOML so the legacy flat layout can be folded in first.
func InitViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides writes every key that is explicitly set in v (by environment
// or a changed flag) into cfg.
func ApplyOverrides(v *viper.Viper, cfg *Config) error {
	for _, key := range ValidConfigKeys() {
		if !v.IsSet(key) {
			continue
		}
		if err := configKeys[key].set(cfg, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// ValidConfigKeys returns the sorted list of all overridable configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

// GetConfigValue returns the string representation of key in cfg.
func GetConfigValue(cfg *Config, key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}
	return info.get(cfg), nil
}

// SetConfigValue parses value and writes it to key in cfg.
func SetConfigValue(cfg *Config, key, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	return info.set(cfg, value)
}
