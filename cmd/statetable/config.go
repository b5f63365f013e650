package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pjfl/statetable/statetable"
)

// Environment variables prefixed with STATETABLE override file values, e.g.
// STATETABLE_DATA_URL for data-url.
const envPrefix = "STATETABLE"

const cfgKeyRoles = "roles"

var errNoConfig = errors.New("no table configuration given, use --config")

// loadTableConfig reads a table configuration file with viper and validates it.
func loadTableConfig(path string) (statetable.Config, error) {
	if path == "" {
		return statetable.Config{}, errNoConfig
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return statetable.Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg statetable.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return statetable.Config{}, errors.Join(statetable.ErrInvalidConfig, err)
	}

	// AutomaticEnv only reaches keys read through Get.
	cfg.DataURL = v.GetString("data-url")

	// Unmarshal drops roles configured as empty maps; Get keeps them.
	if roles := v.Get(cfgKeyRoles); roles != nil {
		cfg.Roles = nil
		if err := mapstructure.Decode(roles, &cfg.Roles); err != nil {
			return statetable.Config{}, errors.Join(statetable.ErrInvalidConfig, err)
		}
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return statetable.Config{}, err
	}

	return cfg, nil
}
