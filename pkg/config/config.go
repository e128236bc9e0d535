// Package config loads ktv settings from defaults, an optional YAML file
// and KTV_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kraitsura/ktree_viewer/pkg/camera"
	"github.com/kraitsura/ktree_viewer/pkg/journal"
	"github.com/kraitsura/ktree_viewer/pkg/layout"
	"github.com/kraitsura/ktree_viewer/pkg/scene"
	"github.com/kraitsura/ktree_viewer/pkg/server"
	"github.com/kraitsura/ktree_viewer/pkg/session"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

// EnvPrefix prefixes every environment override, e.g. KTV_SERVER_PORT.
const EnvPrefix = "KTV"

// Config is the full ktv configuration.
type Config struct {
	Order         string `mapstructure:"order" yaml:"order"`
	AllowPrevious bool   `mapstructure:"allow_previous" yaml:"allow_previous"`

	Layout  layout.Config `mapstructure:"layout" yaml:"layout"`
	Scene   scene.Config  `mapstructure:"scene" yaml:"scene"`
	Camera  CameraConfig  `mapstructure:"camera" yaml:"camera"`
	Server  server.Config `mapstructure:"server" yaml:"server"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// CameraConfig configures the 3D fly-to animation.
type CameraConfig struct {
	StandOff   float64 `mapstructure:"stand_off" yaml:"stand_off"`
	DurationMS int     `mapstructure:"duration_ms" yaml:"duration_ms"`
	// AlwaysAnimate flies on every focus, including clicks in the 3D view.
	AlwaysAnimate bool `mapstructure:"always_animate" yaml:"always_animate"`
}

// JournalConfig configures the presentation journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	Driver  string `mapstructure:"driver" yaml:"driver"`
}

// WatchConfig configures tree file reloading.
type WatchConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	DebounceMS int  `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	Poll       bool `mapstructure:"poll" yaml:"poll"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Order:  string(traversal.BFS),
		Layout: layout.DefaultConfig(),
		Scene:  scene.DefaultConfig(),
		Camera: CameraConfig{
			StandOff:   camera.DefaultStandOff,
			DurationMS: int(camera.DefaultDuration / time.Millisecond),
		},
		Server: server.DefaultConfig(),
		Journal: JournalConfig{
			Path:   defaultJournalPath(),
			Driver: journal.DriverPure,
		},
		Watch: WatchConfig{Enabled: true, DebounceMS: 250},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

func defaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ktv", "journal.db")
	}
	return filepath.Join(home, ".local", "share", "ktv", "journal.db")
}

// DefaultPath is the config file looked up when none is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ktv", "config.yaml")
}

// Load builds the configuration. An explicit path must exist; when path is
// empty the default location is read if present.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("yaml")
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply to keys
// that no file sets.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("order", cfg.Order)
	v.SetDefault("allow_previous", cfg.AllowPrevious)

	v.SetDefault("layout.orientation", string(cfg.Layout.Orientation))
	v.SetDefault("layout.min_width", cfg.Layout.MinWidth)
	v.SetDefault("layout.leaf_spacing", cfg.Layout.LeafSpacing)
	v.SetDefault("layout.layer_gap", cfg.Layout.LayerGap)
	v.SetDefault("layout.margin", cfg.Layout.Margin)
	v.SetDefault("layout.min_radius", cfg.Layout.MinRadius)
	v.SetDefault("layout.max_radius", cfg.Layout.MaxRadius)
	v.SetDefault("layout.min_stroke", cfg.Layout.MinStroke)
	v.SetDefault("layout.max_stroke", cfg.Layout.MaxStroke)
	v.SetDefault("layout.collision_distance", cfg.Layout.CollisionDistance)

	v.SetDefault("scene.strategy", string(cfg.Scene.Strategy))
	v.SetDefault("scene.layer_distance", cfg.Scene.LayerDistance)
	v.SetDefault("scene.ring_radius", cfg.Scene.RingRadius)
	v.SetDefault("scene.min_node_distance", cfg.Scene.MinNodeDistance)
	v.SetDefault("scene.max_attempts", cfg.Scene.MaxAttempts)
	v.SetDefault("scene.min_scale", cfg.Scene.MinScale)
	v.SetDefault("scene.max_scale", cfg.Scene.MaxScale)
	v.SetDefault("scene.widget_radius", cfg.Scene.WidgetRadius)

	v.SetDefault("camera.stand_off", cfg.Camera.StandOff)
	v.SetDefault("camera.duration_ms", cfg.Camera.DurationMS)
	v.SetDefault("camera.always_animate", cfg.Camera.AlwaysAnimate)

	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.open_browser", cfg.Server.OpenBrowser)

	v.SetDefault("journal.enabled", cfg.Journal.Enabled)
	v.SetDefault("journal.path", cfg.Journal.Path)
	v.SetDefault("journal.driver", cfg.Journal.Driver)

	v.SetDefault("watch.enabled", cfg.Watch.Enabled)
	v.SetDefault("watch.debounce_ms", cfg.Watch.DebounceMS)
	v.SetDefault("watch.poll", cfg.Watch.Poll)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if _, err := traversal.ParseOrder(c.Order); err != nil {
		return err
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if err := c.Scene.Validate(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	if c.Camera.StandOff <= 0 {
		return fmt.Errorf("camera: stand_off must be positive")
	}
	if c.Camera.DurationMS <= 0 {
		return fmt.Errorf("camera: duration_ms must be positive")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d out of range", c.Server.Port)
	}
	switch c.Journal.Driver {
	case journal.DriverPure, journal.DriverCGO:
	default:
		return fmt.Errorf("journal: unknown driver %q", c.Journal.Driver)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal: path is required when enabled")
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch: debounce_ms cannot be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch c.Log.Format {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// SessionOptions maps the configuration onto session options.
func (c Config) SessionOptions() session.Options {
	order, _ := traversal.ParseOrder(c.Order)
	return session.Options{
		Order:         order,
		Layout:        c.Layout,
		Scene:         c.Scene,
		AllowPrevious: c.AllowPrevious,
		AlwaysAnimate: c.Camera.AlwaysAnimate,
		Camera: camera.Options{
			StandOff: c.Camera.StandOff,
			Duration: time.Duration(c.Camera.DurationMS) * time.Millisecond,
		},
	}
}

// WatchDebounce returns the debounce window as a duration.
func (c Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// NewLogger builds the logger described by the log section.
func (c LogConfig) NewLogger(w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := log.Options{Level: level, Prefix: "ktv", ReportTimestamp: true}
	switch c.Format {
	case "json":
		opts.Formatter = log.JSONFormatter
	case "logfmt":
		opts.Formatter = log.LogfmtFormatter
	default:
		opts.Formatter = log.TextFormatter
	}
	return log.NewWithOptions(w, opts), nil
}

// WriteYAML writes the configuration as YAML.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
