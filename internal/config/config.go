// Package config loads qx settings from qx.toml and QX_* environment variables.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stnguyen90/appwrite-explorer/queryexpr"
)

// Config is the qx configuration.
type Config struct {
	UnknownMethods string        `mapstructure:"unknown_methods"` // skip or fail
	Namespace      string        `mapstructure:"namespace"`
	Methods        MethodsConfig `mapstructure:"methods"`
	Log            LogConfig     `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// MethodsConfig restricts the method catalog. Allow is applied before Deny;
// an empty Allow keeps every built-in method.
type MethodsConfig struct {
	Allow []string `mapstructure:"allow"`
	Deny  []string `mapstructure:"deny"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// SetDefaults registers the default for every key so environment overrides
// are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("unknown_methods", "skip")
	v.SetDefault("namespace", "Query")
	v.SetDefault("methods.allow", []string{})
	v.SetDefault("methods.deny", []string{})
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "warn")
}

// Load reads configuration. With an explicit path the file must exist;
// otherwise qx.toml in the working directory is used when present.
// QX_* environment variables override both (QX_LOG_LEVEL for log.level).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	} else {
		v.SetConfigName("qx")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read qx.toml")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// Catalog derives the method catalog from Methods.
func (c *Config) Catalog() (*queryexpr.Catalog, error) {
	catalog := queryexpr.DefaultCatalog()
	if len(c.Methods.Allow) > 0 {
		restricted, err := catalog.Restrict(c.Methods.Allow...)
		if err != nil {
			return nil, errors.Wrap(err, "methods.allow")
		}
		catalog = restricted
	}
	if len(c.Methods.Deny) > 0 {
		catalog = catalog.Without(c.Methods.Deny...)
	}
	return catalog, nil
}

// Engine builds a query engine from the configuration.
func (c *Config) Engine(log *zap.SugaredLogger) (*queryexpr.Engine, error) {
	catalog, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	policy, err := queryexpr.ParseUnknownPolicy(c.UnknownMethods)
	if err != nil {
		return nil, errors.Wrap(err, "unknown_methods")
	}
	opts := []queryexpr.Option{
		queryexpr.WithCatalog(catalog),
		queryexpr.WithUnknownPolicy(policy),
		queryexpr.WithLogger(log),
	}
	if c.Namespace != "" {
		opts = append(opts, queryexpr.WithNamespace(c.Namespace))
	}
	return queryexpr.NewEngine(opts...), nil
}
