// Copyright 2025 Princess Beef Heavy Industries, LLC / Dave Shanley
// SPDX-License-Identifier: MIT

// Package config loads client and broker settings from flags,
// environment variables and an optional config file, in that order of
// precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds everything the CLI and the dev broker need to run.
type Config struct {
	// Host and Port locate the broker.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Login and Passcode are the CONNECT credentials; empty for
	// anonymous brokers.
	Login    string `mapstructure:"login"`
	Passcode string `mapstructure:"passcode"`

	// UseWebSocket selects the websocket transport; Endpoint is the
	// upgrade path when it is on.
	UseWebSocket bool   `mapstructure:"websocket"`
	Endpoint     string `mapstructure:"endpoint"`

	// ConnectTimeout bounds dialing.
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`

	// DestinationPrefixes restricts SENDs accepted by the dev broker.
	DestinationPrefixes []string `mapstructure:"destination-prefixes"`
}

// Defaults mirror a local dev broker on the conventional STOMP port.
func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 61613)
	v.SetDefault("login", "")
	v.SetDefault("passcode", "")
	v.SetDefault("websocket", false)
	v.SetDefault("endpoint", "/fabric")
	v.SetDefault("connect-timeout", 5*time.Second)
	v.SetDefault("destination-prefixes", []string{})
}

// RegisterFlags declares every config knob on the given flag set, so
// Load can bind them.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("host", "localhost", "broker host")
	flags.Int("port", 61613, "broker port")
	flags.String("login", "", "CONNECT login")
	flags.String("passcode", "", "CONNECT passcode")
	flags.Bool("websocket", false, "use the websocket transport")
	flags.String("endpoint", "/fabric", "websocket upgrade path")
	flags.Duration("connect-timeout", 5*time.Second, "dial timeout")
	flags.StringSlice("destination-prefixes", nil, "destination prefixes the dev broker accepts SENDs for")
}

// Load resolves the configuration: flag values override LASSO_*
// environment variables, which override the optional config file, which
// overrides the defaults. configFile may be empty.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("lasso")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %s", configFile)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Wrap(err, "unable to bind flags")
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal configuration")
	}
	return config, nil
}
