// Package config provides configuration management for mailwright using
// Viper for loading from files, environment variables, and command-line
// flags.
//
// Configuration is resolved once at startup. Load validates every value,
// including the required structure type, so a misconfigured run fails before
// any pipeline stage touches the file system.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable run configuration.
type Config struct {
	Build  BuildConfig  `mapstructure:"build" yaml:"build"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
	MJML   MJMLConfig   `mapstructure:"mjml" yaml:"mjml"`
	Images ImagesConfig `mapstructure:"images" yaml:"images"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

type BuildConfig struct {
	StructureType      StructureType `mapstructure:"structure_type" yaml:"structure_type"`
	Env                Env           `mapstructure:"env" yaml:"env"`
	Folder             string        `mapstructure:"folder" yaml:"folder"`
	Root               string        `mapstructure:"root" yaml:"root"`
	TemplateExtensions []string      `mapstructure:"template_extensions" yaml:"template_extensions"`
	ImageExtensions    []string      `mapstructure:"image_extensions" yaml:"image_extensions"`
	PreviewColumns     int           `mapstructure:"preview_columns" yaml:"preview_columns"`
	Concurrency        int           `mapstructure:"concurrency" yaml:"concurrency"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	ReloadPath string `mapstructure:"reload_path" yaml:"reload_path"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type MJMLConfig struct {
	Command string        `mapstructure:"command" yaml:"command"`
	Args    []string      `mapstructure:"args" yaml:"args"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type ImagesConfig struct {
	JPEGQuality    int    `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	PNGCompression string `mapstructure:"png_compression" yaml:"png_compression"`
}

type NotifyConfig struct {
	Transport string        `mapstructure:"transport" yaml:"transport"`
	From      string        `mapstructure:"from" yaml:"from"`
	To        string        `mapstructure:"to" yaml:"to"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	OutboxDir string        `mapstructure:"outbox_dir" yaml:"outbox_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers every key with v so environment overrides are seen
// by Unmarshal even when no config file mentions them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("build.structure_type", "")
	v.SetDefault("build.env", string(EnvDev))
	v.SetDefault("build.folder", "")
	v.SetDefault("build.root", ".")
	v.SetDefault("build.template_extensions", []string{".tmpl"})
	v.SetDefault("build.image_extensions", []string{".jpg", ".jpeg", ".png", ".gif", ".svg"})
	v.SetDefault("build.preview_columns", 3)
	v.SetDefault("build.concurrency", 0)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 9000)
	v.SetDefault("server.reload_path", "/__livereload")

	v.SetDefault("watch.debounce", 300*time.Millisecond)

	v.SetDefault("mjml.command", "mjml")
	v.SetDefault("mjml.args", []string{"-i", "-s", "--config.beautify", "true", "--config.minify", "false"})
	v.SetDefault("mjml.timeout", time.Minute)

	v.SetDefault("images.jpeg_quality", 80)
	v.SetDefault("images.png_compression", "best")

	v.SetDefault("notify.transport", TransportSMTP)
	v.SetDefault("notify.from", `"Mailwright Preview" <from@example.com>`)
	v.SetDefault("notify.to", "userTest@example.com")
	v.SetDefault("notify.timeout", 10*time.Second)
	v.SetDefault("notify.outbox_dir", ".mailwright/outbox")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals, backfills and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Slices set through env vars or flags arrive as a single string.
	if v.IsSet("build.template_extensions") {
		config.Build.TemplateExtensions = v.GetStringSlice("build.template_extensions")
	}
	if v.IsSet("build.image_extensions") {
		config.Build.ImageExtensions = v.GetStringSlice("build.image_extensions")
	}

	if config.Build.Concurrency <= 0 {
		config.Build.Concurrency = runtime.NumCPU()
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Addr returns the preview server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
