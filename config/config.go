package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/staticasset"
	assethttp "github.com/sagarc03/staticasset/http"
	"github.com/sagarc03/staticasset/registry"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for staticasset.
type Config struct {
	Server ServerConfig         `mapstructure:"server"`
	Assets AssetsConfig         `mapstructure:"assets"`
	Cache  CacheConfig          `mapstructure:"cache"`
	CORS   assethttp.CORSConfig `mapstructure:"cors"`
	Log    LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Mode            string `mapstructure:"mode" validate:"required,oneof=store static spa"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"min=1"`
}

// AssetsConfig holds the asset directory and registry configuration.
type AssetsConfig struct {
	Path   string `mapstructure:"path" validate:"required"`
	Prefix string `mapstructure:"prefix"`
	// Include is a regular expression paths must match to be served.
	Include    string `mapstructure:"include" validate:"omitempty,regexp"`
	Hidden     bool   `mapstructure:"hidden"`
	Warmup     string `mapstructure:"warmup" validate:"required,oneof=hot warm cold"`
	Watch      bool   `mapstructure:"watch"`
	DebounceMS int    `mapstructure:"debounce_ms" validate:"min=0"`
}

// CacheConfig holds Cache-Control and cache busting configuration.
type CacheConfig struct {
	Control   string `mapstructure:"control" validate:"required"`
	Busting   string `mapstructure:"busting" validate:"required,oneof=none query suffix"`
	QueryKey  string `mapstructure:"query_key" validate:"required"`
	Separator string `mapstructure:"separator" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// Matcher builds the path matcher for the registry and the watcher. Hidden
// files are excluded unless Hidden is set.
func (c AssetsConfig) Matcher() (registry.Matcher, error) {
	var matchers []registry.Matcher
	if !c.Hidden {
		matchers = append(matchers, registry.NotHidden())
	}
	if c.Include != "" {
		m, err := registry.MatchRegexp(c.Include)
		if err != nil {
			return nil, fmt.Errorf("assets include: %w", err)
		}
		matchers = append(matchers, m)
	}
	return registry.MatchAllOf(matchers...), nil
}

// Debounce returns the watch debounce interval. Zero selects the watcher default.
func (c AssetsConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Buster returns the configured cache buster.
func (c CacheConfig) Buster() (staticasset.CacheBuster, error) {
	mode, err := staticasset.ParseBustMode(c.Busting)
	if err != nil {
		return staticasset.CacheBuster{}, err
	}
	return staticasset.CacheBuster{Mode: mode, QueryKey: c.QueryKey, Separator: c.Separator}, nil
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":      "server.port",
	"mode":      "server.mode",
	"path":      "assets.path",
	"prefix":    "assets.prefix",
	"include":   "assets.include",
	"hidden":    "assets.hidden",
	"warmup":    "assets.warmup",
	"watch":     "assets.watch",
	"busting":   "cache.busting",
	"log-level": "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5708)
	v.SetDefault("server.mode", "static")
	v.SetDefault("server.shutdown_timeout", 30) // seconds

	v.SetDefault("assets.path", "./public")
	v.SetDefault("assets.prefix", "")
	v.SetDefault("assets.include", "")
	v.SetDefault("assets.hidden", false)
	v.SetDefault("assets.warmup", "hot")
	v.SetDefault("assets.watch", false)
	v.SetDefault("assets.debounce_ms", 50)

	v.SetDefault("cache.control", staticasset.DefaultCacheControl)
	v.SetDefault("cache.busting", "none")
	v.SetDefault("cache.query_key", staticasset.DefaultQueryKey)
	v.SetDefault("cache.separator", staticasset.DefaultSeparator)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func newValidator() (*validator.Validate, error) {
	validate := validator.New()
	err := validate.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("register regexp validation: %w", err)
	}
	return validate, nil
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("STATICASSET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate, err := newValidator()
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
