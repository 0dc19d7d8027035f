// Package config loads bridge settings and per-axis calibration constants
// from flags, environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soar/dianach/internal/calibration"
	"github.com/soar/dianach/internal/link"
	"github.com/soar/dianach/internal/yoke"
)

const (
	EnvPrefix  = "DIANACH"
	configName = "dianach"

	// unmapped marks an index that keeps the device default.
	unmapped = -1
)

// AxisConfig holds the calibration constants of one axis.
type AxisConfig struct {
	Index    int      `mapstructure:"index"`
	Min      float64  `mapstructure:"min"`
	Centre   *float64 `mapstructure:"centre"`
	Max      float64  `mapstructure:"max"`
	DeadZone float64  `mapstructure:"dead_zone"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type MonitorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config holds all application configuration values.
type Config struct {
	Server    string                `mapstructure:"server"`
	Port      int                   `mapstructure:"port"`
	Ship      int                   `mapstructure:"ship"`
	Transport string                `mapstructure:"transport"`
	MQTT      MQTTConfig            `mapstructure:"mqtt"`
	PollHz    int                   `mapstructure:"poll_hz"`
	Epsilon   float64               `mapstructure:"epsilon"`
	Monitor   MonitorConfig         `mapstructure:"monitor"`
	Tray      bool                  `mapstructure:"tray"`
	LogLevel  string                `mapstructure:"log_level"`
	Axes      map[string]AxisConfig `mapstructure:"axes"`
	Buttons   map[string]int        `mapstructure:"buttons"`
}

// defaultCentres are the CH yoke rest positions. They apply only to an axis
// whose min, max and centre are all left at their defaults; otherwise an
// unset centre is the midpoint of min and max.
var defaultCentres = map[string]float64{
	"yaw":   512,
	"pitch": -1024,
}

// SetDefaults registers the built-in defaults. The axis constants are
// tuned for a CH Products Flight Sim Yoke.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server", "localhost")
	v.SetDefault("port", 2010)
	v.SetDefault("ship", 0)
	v.SetDefault("transport", link.TransportWebSocket)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.topic_prefix", "dianach")
	v.SetDefault("poll_hz", 15)
	v.SetDefault("epsilon", 0.01)
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.addr", "localhost:8080")
	v.SetDefault("tray", false)
	v.SetDefault("log_level", "info")

	v.SetDefault("axes.yaw.index", unmapped)
	v.SetDefault("axes.yaw.min", -32768)
	v.SetDefault("axes.yaw.max", 32767)
	v.SetDefault("axes.yaw.dead_zone", 0.05)

	v.SetDefault("axes.pitch.index", unmapped)
	v.SetDefault("axes.pitch.min", -32768)
	v.SetDefault("axes.pitch.max", 32767)
	v.SetDefault("axes.pitch.dead_zone", 0.05)

	// The throttle lever reads negative when pushed forward.
	v.SetDefault("axes.throttle.index", unmapped)
	v.SetDefault("axes.throttle.min", 32767)
	v.SetDefault("axes.throttle.max", -32768)
	v.SetDefault("axes.throttle.dead_zone", 0)

	v.SetDefault("buttons.red_alert", unmapped)
	v.SetDefault("buttons.shields", unmapped)
	v.SetDefault("buttons.reverse", unmapped)
}

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"poll-hz":      "poll_hz",
	"transport":    "transport",
	"mqtt-broker":  "mqtt.broker",
	"monitor":      "monitor.enabled",
	"monitor-addr": "monitor.addr",
	"tray":         "tray",
}

// BindFlags binds every known flag present in the given sets to its config
// key. Flags missing from all sets are skipped.
func BindFlags(v *viper.Viper, sets ...*pflag.FlagSet) error {
	for name, key := range flagKeys {
		for _, fs := range sets {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return pkgerrors.Wrapf(err, "failed to bind flag %s", name)
			}
			break
		}
	}
	return nil
}

// Load reads the config file (path, or dianach.{yaml,toml,json} in the
// working directory and $HOME/.config/dianach when path is empty), the
// DIANACH_* environment and whatever flags are bound to v.
func Load(v *viper.Viper, path string) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, a := range yoke.Axes {
		// centre has no default, so its variable must be bound explicitly.
		if err := v.BindEnv(axisKey(a, "centre")); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to bind %s centre", a)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/dianach")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, pkgerrors.Wrapf(err, "failed to read config")
		}
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Debug("config file loaded")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}
	applyDefaultCentres(v, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func axisKey(a yoke.Axis, field string) string {
	return "axes." + string(a) + "." + field
}

// userSet reports whether key was given in the config file or environment.
func userSet(v *viper.Viper, key string) bool {
	if v.InConfig(key) {
		return true
	}
	env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	_, ok := os.LookupEnv(env)
	return ok
}

func applyDefaultCentres(v *viper.Viper, cfg *Config) {
	for _, a := range yoke.Axes {
		centre, ok := defaultCentres[string(a)]
		if !ok {
			continue
		}
		ac, ok := cfg.Axes[string(a)]
		if !ok || ac.Centre != nil {
			continue
		}
		if userSet(v, axisKey(a, "min")) || userSet(v, axisKey(a, "max")) {
			continue
		}
		ac.Centre = &centre
		cfg.Axes[string(a)] = ac
	}
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Ship < 0 {
		return fmt.Errorf("invalid ship index %d", c.Ship)
	}
	switch c.Transport {
	case link.TransportWebSocket:
	case link.TransportMQTT:
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt transport requires mqtt.broker")
		}
	default:
		return pkgerrors.Wrapf(link.ErrUnknownTransport, "%q", c.Transport)
	}
	if c.PollHz <= 0 {
		return fmt.Errorf("invalid poll_hz %d", c.PollHz)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("invalid epsilon %v", c.Epsilon)
	}
	return nil
}

// Calibrations builds one calibration per control axis. A degenerate or
// missing axis is an error.
func (c *Config) Calibrations() (map[yoke.Axis]*calibration.Axis, error) {
	out := make(map[yoke.Axis]*calibration.Axis, len(yoke.Axes))
	for _, a := range yoke.Axes {
		ac, ok := c.Axes[string(a)]
		if !ok {
			return nil, fmt.Errorf("missing calibration for %s axis", a)
		}

		opts := []calibration.Option{calibration.WithDeadZone(ac.DeadZone)}
		if ac.Centre != nil {
			opts = append(opts, calibration.WithCentre(*ac.Centre))
		}
		x, err := calibration.New(ac.Min, ac.Max, opts...)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "%s axis", a)
		}
		out[a] = x
	}
	return out, nil
}

// Overrides returns the configured device index overrides.
func (c *Config) Overrides() yoke.Overrides {
	o := yoke.Overrides{
		Axes:    make(map[yoke.Axis]int32),
		Buttons: make(map[yoke.Button]int32),
	}
	for _, a := range yoke.Axes {
		if ac, ok := c.Axes[string(a)]; ok && ac.Index > unmapped {
			o.Axes[a] = int32(ac.Index)
		}
	}
	for _, b := range yoke.Buttons {
		if idx, ok := c.Buttons[string(b)]; ok && idx > unmapped {
			o.Buttons[b] = int32(idx)
		}
	}
	return o
}

// LinkOptions returns the transport settings.
func (c *Config) LinkOptions() link.Options {
	return link.Options{
		Transport: c.Transport,
		Server:    c.Server,
		Port:      c.Port,
		Ship:      c.Ship,
		MQTT: link.MQTTOptions{
			Broker:      c.MQTT.Broker,
			ClientID:    c.MQTT.ClientID,
			TopicPrefix: c.MQTT.TopicPrefix,
		},
	}
}

// LogrusFields summarises the config for logging.
func (c *Config) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"server":    c.Server,
		"port":      c.Port,
		"ship":      c.Ship,
		"transport": c.Transport,
		"pollHz":    c.PollHz,
		"monitor":   c.Monitor.Enabled,
	}
}
