package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "TIERLOG"
	configName = "tierlog"
)

// Config holds all tierlog configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Scheme SchemeConfig `mapstructure:"scheme"`
	Output OutputConfig `mapstructure:"output"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `mapstructure:"level"` // "debug", "info", "warn", "error"
	JSON  bool   `mapstructure:"json"`
}

// SchemeConfig locates the session event declaration.
type SchemeConfig struct {
	Manifest     string `mapstructure:"manifest"`
	Group        string `mapstructure:"group"`
	GroupVersion int    `mapstructure:"group_version"`
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format     string `mapstructure:"format"` // "stdout", "file", "both" or "webhook"
	Path       string `mapstructure:"path"`   // file path for "file" and "both"
	URL        string `mapstructure:"url"`    // collector endpoint for "webhook"
	Token      string `mapstructure:"token"`  // optional Bearer token for "webhook"
	Pretty     bool   `mapstructure:"pretty"`
	Verbosity  string `mapstructure:"verbosity"` // "minimal", "standard", "full"
	MaxSize    int64  `mapstructure:"max_size"`  // file rotation threshold in bytes, 0 disables
	Async      bool   `mapstructure:"async"`     // drain events on a background goroutine
	BufferSize int    `mapstructure:"buffer_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Scheme: SchemeConfig{Group: "tierlog", GroupVersion: 1},
		Output: OutputConfig{Format: "stdout", Verbosity: "standard", BufferSize: 1024},
	}
}

// SetDefaults registers the defaults on v so env vars and config files can
// override every key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("scheme.manifest", d.Scheme.Manifest)
	v.SetDefault("scheme.group", d.Scheme.Group)
	v.SetDefault("scheme.group_version", d.Scheme.GroupVersion)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.url", d.Output.URL)
	v.SetDefault("output.token", d.Output.Token)
	v.SetDefault("output.pretty", d.Output.Pretty)
	v.SetDefault("output.verbosity", d.Output.Verbosity)
	v.SetDefault("output.max_size", d.Output.MaxSize)
	v.SetDefault("output.async", d.Output.Async)
	v.SetDefault("output.buffer_size", d.Output.BufferSize)
}

// Load reads configuration from defaults, an optional config file and
// TIERLOG_* environment variables, in increasing precedence. When file is
// empty, tierlog.{yaml,toml} in the working directory is used if present.
// A nil v uses a fresh viper instance.
func Load(v *viper.Viper, file string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "config: read")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	return cfg, nil
}

// Validate checks the config for invalid values. It reports every problem
// found, not only the first.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, errors.Newf("log level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	if c.Scheme.Group == "" {
		errs = append(errs, errors.New("scheme group must not be empty"))
	}
	if c.Scheme.GroupVersion < 1 {
		errs = append(errs, errors.Newf("scheme group_version must be positive, got %d", c.Scheme.GroupVersion))
	}

	switch c.Output.Format {
	case "stdout":
	case "file", "both":
		if c.Output.Path == "" {
			errs = append(errs, errors.Newf("output path is required for output format %q (set TIERLOG_OUTPUT_PATH)", c.Output.Format))
		}
	case "webhook":
		if c.Output.URL == "" {
			errs = append(errs, errors.New("output url is required for output format \"webhook\" (set TIERLOG_OUTPUT_URL)"))
		}
	default:
		errs = append(errs, errors.Newf("output format %q is not one of stdout, file, both, webhook", c.Output.Format))
	}

	switch strings.ToLower(c.Output.Verbosity) {
	case "minimal", "standard", "full":
	default:
		errs = append(errs, errors.Newf("output verbosity %q is not one of minimal, standard, full", c.Output.Verbosity))
	}
	if c.Output.Async && c.Output.BufferSize < 1 {
		errs = append(errs, errors.Newf("output buffer_size must be positive with async output, got %d", c.Output.BufferSize))
	}
	if c.Output.MaxSize < 0 {
		errs = append(errs, errors.Newf("output max_size must not be negative, got %d", c.Output.MaxSize))
	}

	return errors.Join(errs...)
}
