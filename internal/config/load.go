// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Load reads config.<env>.yaml (env from NODE_ENV, defaulting to
// "development"), layered with UNDERWRITER_* environment variables and any
// CLI flags registered on fs, and validates the result.
func Load(fs *pflag.FlagSet, configDir string) (*Root, error) {
	env := os.Getenv("NODE_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigName("config." + env)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("UNDERWRITER")
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config.%s.yaml: %w", env, err)
	}

	var root Root
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if root.Global.Port == 0 {
		if p := os.Getenv("UNDERWRITER_PORT"); p != "" {
			fmt.Sscanf(p, "%d", &root.Global.Port)
		}
	}
	for i := range root.Chains {
		if root.Chains[i].PrivateKey == "" {
			if pk := os.Getenv("PRIVATE_KEY"); pk != "" {
				root.Chains[i].PrivateKey = pk
			}
		}
	}

	if err := root.Validate(); err != nil {
		return nil, err
	}
	return &root, nil
}

// Flags registers the CLI overrides this daemon accepts, bound into fs for
// use with Load.
func Flags(fs *pflag.FlagSet) {
	fs.Int("global.port", 0, "HTTP status port (overrides config and UNDERWRITER_PORT)")
	fs.String("global.logLevel", "", "log level override")
}
