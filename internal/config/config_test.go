package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/soar/dianach/internal/calibration"
	"github.com/soar/dianach/internal/link"
	"github.com/soar/dianach/internal/yoke"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func load(t *testing.T, path string) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return Load(v, path)
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := load(t, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 2010 || cfg.Ship != 0 || cfg.Transport != link.TransportWebSocket || cfg.PollHz != 15 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	cal, err := cfg.Calibrations()
	if err != nil {
		t.Fatalf("default calibrations rejected: %v", err)
	}
	if len(cal) != len(yoke.Axes) {
		t.Fatalf("expected %d calibrations, got %d", len(yoke.Axes), len(cal))
	}
	if got := cal[yoke.AxisYaw].Raw(512); math.Abs(got) > 1e-9 {
		t.Errorf("yaw centre maps to %v, want 0", got)
	}
	if got := cal[yoke.AxisThrottle].Evaluate(-32768); math.Abs(got-1) > 1e-9 {
		t.Errorf("throttle forward maps to %v, want 1", got)
	}
	if cfg.Axes["throttle"].Centre != nil {
		t.Errorf("throttle centre should default to the midpoint")
	}

	o := cfg.Overrides()
	if len(o.Axes) != 0 || len(o.Buttons) != 0 {
		t.Errorf("expected no overrides by default, got %+v", o)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, "dianach.yaml", `
server: 192.168.1.20
port: 2011
ship: 3
transport: mqtt
mqtt:
  broker: tcp://broker:1883
axes:
  yaw:
    index: 5
    min: -30000
    centre: 200
    max: 30000
    dead_zone: 0.1
buttons:
  shields: 6
`)
	cfg, err := load(t, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server != "192.168.1.20" || cfg.Port != 2011 || cfg.Ship != 3 {
		t.Fatalf("unexpected values: %+v", cfg)
	}

	// Unset keys of a partially configured axis keep their defaults.
	if cfg.Axes["pitch"].Min != -32768 {
		t.Fatalf("pitch default lost: %+v", cfg.Axes["pitch"])
	}

	cal, err := cfg.Calibrations()
	if err != nil {
		t.Fatal(err)
	}
	yaw := cal[yoke.AxisYaw]
	if yaw.DeadZone() != 0.1 || yaw.Points().Centre != 200 {
		t.Fatalf("unexpected yaw calibration: %+v", yaw.Points())
	}

	o := cfg.Overrides()
	if o.Axes[yoke.AxisYaw] != 5 || o.Buttons[yoke.ButtonShields] != 6 || len(o.Buttons) != 1 {
		t.Fatalf("unexpected overrides: %+v", o)
	}

	lo := cfg.LinkOptions()
	if lo.Transport != link.TransportMQTT || lo.MQTT.Broker != "tcp://broker:1883" || lo.Ship != 3 {
		t.Fatalf("unexpected link options: %+v", lo)
	}
}

func TestDegenerateAxisFailsFast(t *testing.T) {
	path := writeConfig(t, "dianach.yaml", `
axes:
  pitch:
    min: 100
    centre: 100
    max: 2000
`)
	cfg, err := load(t, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := cfg.Calibrations(); !errors.Is(err, calibration.ErrDegenerate) {
		t.Fatalf("expected ErrDegenerate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad port", content: "port: 70000\n"},
		{name: "negative ship", content: "ship: -1\n"},
		{name: "unknown transport", content: "transport: serial\n"},
		{name: "mqtt without broker", content: "transport: mqtt\nmqtt:\n  broker: \"\"\n"},
		{name: "zero poll rate", content: "poll_hz: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := load(t, writeConfig(t, "dianach.yaml", tt.content)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	if _, err := load(t, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DIANACH_SHIP", "4")
	t.Setenv("DIANACH_AXES_YAW_DEAD_ZONE", "0.2")
	cfg, err := load(t, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ship != 4 {
		t.Fatalf("ship = %d, want 4", cfg.Ship)
	}
	if cfg.Axes["yaw"].DeadZone != 0.2 {
		t.Fatalf("yaw dead zone = %v, want 0.2", cfg.Axes["yaw"].DeadZone)
	}
	if c := cfg.Axes["yaw"].Centre; c == nil || *c != 512 {
		t.Fatalf("yaw centre = %v, want the built-in 512", c)
	}
}

func TestBindFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("transport", "ws", "")
	fs.Int("poll-hz", 15, "")
	fs.Bool("unrelated", false, "")
	if err := fs.Parse([]string{"--transport=mqtt", "--poll-hz=30"}); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	SetDefaults(v)
	if err := BindFlags(v, fs); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(v, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Transport != link.TransportMQTT || cfg.PollHz != 30 {
		t.Fatalf("flags not applied: transport=%q pollHz=%d", cfg.Transport, cfg.PollHz)
	}
}

func TestCentreDefaultsToMidpoint(t *testing.T) {
	path := writeConfig(t, "dianach.yaml", `
axes:
  yaw:
    min: 0
    max: 255
`)
	cfg, err := load(t, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cal, err := cfg.Calibrations()
	if err != nil {
		t.Fatal(err)
	}

	yaw := cal[yoke.AxisYaw]
	if got := yaw.Points().Centre; got != 127.5 {
		t.Fatalf("yaw centre = %v, want midpoint 127.5", got)
	}
	if got := yaw.Raw(127.5); math.Abs(got) > 1e-9 {
		t.Fatalf("yaw Raw(127.5) = %v, want 0", got)
	}
	if a, _, _ := yaw.Coefficients(); a != 0 {
		t.Fatalf("yaw fit should be linear, a = %v", a)
	}

	// Untouched axes keep the built-in rest position.
	if got := cal[yoke.AxisPitch].Points().Centre; got != -1024 {
		t.Fatalf("pitch centre = %v, want -1024", got)
	}
}

func TestCentreFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DIANACH_AXES_PITCH_MIN", "-1000")
	t.Setenv("DIANACH_AXES_PITCH_MAX", "1000")
	t.Setenv("DIANACH_AXES_YAW_CENTRE", "300")
	cfg, err := load(t, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cal, err := cfg.Calibrations()
	if err != nil {
		t.Fatal(err)
	}
	if got := cal[yoke.AxisPitch].Points().Centre; got != 0 {
		t.Fatalf("pitch centre = %v, want midpoint 0", got)
	}
	if got := cal[yoke.AxisYaw].Points().Centre; got != 300 {
		t.Fatalf("yaw centre = %v, want 300", got)
	}
}
