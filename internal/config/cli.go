package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// SetupLogger configures the standard logrus logger.
func SetupLogger(logLevel string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.TimeOnly,
	})
	return nil
}

// LoadAndSetupLogger loads the config and reapplies its log level, which
// may come from the file or the environment rather than the flag.
func LoadAndSetupLogger(v *viper.Viper, path string) (*Config, error) {
	cfg, err := Load(v, path)
	if err != nil {
		return nil, err
	}
	if err := SetupLogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyArgs maps the positional [server] [port] [ship] arguments onto v.
func ApplyArgs(v *viper.Viper, args []string) error {
	if len(args) > 0 {
		v.Set("server", args[0])
	}
	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid port %q", args[1])
		}
		v.Set("port", port)
	}
	if len(args) > 2 {
		ship, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid ship %q", args[2])
		}
		v.Set("ship", ship)
	}
	return nil
}
