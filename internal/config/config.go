// Package config loads the keypad panel configuration from YAML.
//
// Defaults, file values and command-line overrides are applied in that
// order, then Validate checks the result so the rest of the program can
// assume a well-formed config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/keypad-panel/internal/adc"
	"github.com/sweeney/keypad-panel/internal/app"
	"github.com/sweeney/keypad-panel/internal/buttons"
	"github.com/sweeney/keypad-panel/internal/lcd"
	"github.com/sweeney/keypad-panel/internal/machine"
)

// Config is the top-level YAML configuration.
type Config struct {
	ADC         ADCConfig     `yaml:"adc"`
	Buttons     ButtonsConfig `yaml:"buttons"`
	Timers      TimersConfig  `yaml:"timers"`
	LCD         LCDConfig     `yaml:"lcd"`
	App         AppConfig     `yaml:"app"`
	MQTT        MQTTConfig    `yaml:"mqtt"`
	HTTP        HTTPConfig    `yaml:"http"`
	HeartbeatMs int           `yaml:"heartbeat_ms"` // 0 disables
	LoopMs      int           `yaml:"loop_ms"`
	Logging     LoggingConfig `yaml:"logging"`
}

// ADCConfig describes the serial link to the sampling microcontroller.
type ADCConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	StaleMs       int    `yaml:"stale_ms"` // 0 disables the staleness check
}

// ButtonsConfig holds debounce timing and the ladder calibration.
type ButtonsConfig struct {
	SamplingIntervalMs int `yaml:"sampling_interval_ms"`
	ConfirmSamples     int `yaml:"confirm_samples"`
	HoldSamples        int `yaml:"hold_samples"`
	ReleaseSamples     int `yaml:"release_samples"`

	// Calibration selects a built-in threshold table: "default" or "legacy".
	// Ignored when Thresholds is set.
	Calibration string            `yaml:"calibration"`
	Thresholds  []ThresholdConfig `yaml:"thresholds,omitempty"`
}

// ThresholdConfig is one row of a custom threshold table.
type ThresholdConfig struct {
	Below  int    `yaml:"below"`
	Button string `yaml:"button"`
}

type TimersConfig struct {
	Capacity int `yaml:"capacity"`
}

// LCDConfig selects the display driver. "gpio" drives an HD44780 over the
// GPIO character device; "log" writes screen changes to the log.
type LCDConfig struct {
	Driver string     `yaml:"driver"`
	Chip   string     `yaml:"chip"`
	Pins   PinsConfig `yaml:"pins"`
}

type PinsConfig struct {
	RS        int `yaml:"rs"`
	E         int `yaml:"e"`
	D4        int `yaml:"d4"`
	D5        int `yaml:"d5"`
	D6        int `yaml:"d6"`
	D7        int `yaml:"d7"`
	Backlight int `yaml:"backlight"` // -1 when not wired
}

type AppConfig struct {
	SplashMs      int `yaml:"splash_ms"`
	IdleTimeoutMs int `yaml:"idle_timeout_ms"` // 0 disables
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LCD driver names.
const (
	DriverGPIO = "gpio"
	DriverLog  = "log"
)

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	pins := lcd.DefaultPins
	bc := buttons.DefaultConfig()
	ac := app.DefaultConfig()
	return Config{
		ADC: ADCConfig{
			Device:  "/dev/ttyACM0",
			Baud:    115200,
			StaleMs: 500,
		},
		Buttons: ButtonsConfig{
			SamplingIntervalMs: int(bc.IntervalMs),
			ConfirmSamples:     int(bc.ConfirmSamples),
			HoldSamples:        int(bc.HoldSamples),
			ReleaseSamples:     int(bc.ReleaseSamples),
			Calibration:        "default",
		},
		Timers: TimersConfig{
			Capacity: machine.DefaultCapacity,
		},
		LCD: LCDConfig{
			Driver: DriverGPIO,
			Chip:   "gpiochip0",
			Pins: PinsConfig{
				RS:        pins.RS,
				E:         pins.E,
				D4:        pins.D4,
				D5:        pins.D5,
				D6:        pins.D6,
				D7:        pins.D7,
				Backlight: pins.Backlight,
			},
		},
		App: AppConfig{
			SplashMs:      int(ac.SplashMs),
			IdleTimeoutMs: int(ac.IdleTimeoutMs),
		},
		MQTT: MQTTConfig{
			Enabled:  true,
			Broker:   "tcp://192.168.1.200:1883",
			ClientID: "keypad-panel",
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		HeartbeatMs: 15 * 60 * 1000,
		LoopMs:      5,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile reads a YAML config file on top of the defaults. Unknown fields
// are rejected so typos surface at startup.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML document on top of the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// empty file
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds command-line values that replace file values. A nil
// pointer means the flag was not given.
type FlagOverrides struct {
	ADCDevice   *string
	Calibration *string
	LCDDriver   *string
	Broker      *string
	MQTTEnabled *bool
	HTTPAddr    *string
	HeartbeatMs *int
	LoopMs      *int
	LogLevel    *string
}

// Apply merges the overrides into cfg. Non-nil pointers are applied even
// when they hold a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.ADCDevice != nil {
		cfg.ADC.Device = *o.ADCDevice
	}
	if o.Calibration != nil {
		cfg.Buttons.Calibration = *o.Calibration
		cfg.Buttons.Thresholds = nil
	}
	if o.LCDDriver != nil {
		cfg.LCD.Driver = *o.LCDDriver
	}
	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.MQTTEnabled != nil {
		cfg.MQTT.Enabled = *o.MQTTEnabled
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.HeartbeatMs != nil {
		cfg.HeartbeatMs = *o.HeartbeatMs
	}
	if o.LoopMs != nil {
		cfg.LoopMs = *o.LoopMs
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	// ADC
	if c.ADC.Device == "" {
		return errors.New("adc.device must not be empty")
	}
	if c.ADC.Baud <= 0 {
		return errors.New("adc.baud must be > 0")
	}
	if c.ADC.ReadTimeoutMs < 0 {
		return errors.New("adc.read_timeout_ms must be >= 0")
	}
	if c.ADC.StaleMs < 0 {
		return errors.New("adc.stale_ms must be >= 0")
	}

	// Buttons
	if c.Buttons.SamplingIntervalMs < 1 || c.Buttons.SamplingIntervalMs > 1000 {
		return errors.New("buttons.sampling_interval_ms must be between 1 and 1000")
	}
	if c.Buttons.ConfirmSamples < 2 || c.Buttons.ConfirmSamples > 255 {
		return errors.New("buttons.confirm_samples must be between 2 and 255")
	}
	if c.Buttons.HoldSamples < 1 || c.Buttons.HoldSamples > 255 {
		return errors.New("buttons.hold_samples must be between 1 and 255")
	}
	if c.Buttons.ReleaseSamples < 1 || c.Buttons.ReleaseSamples > 255 {
		return errors.New("buttons.release_samples must be between 1 and 255")
	}
	if _, err := c.ThresholdTable(); err != nil {
		return err
	}

	// Timers: the application uses the repeat and countdown slots.
	if c.Timers.Capacity < int(machine.SlotCountdown) || c.Timers.Capacity > 16 {
		return fmt.Errorf("timers.capacity must be between %d and 16", machine.SlotCountdown)
	}

	// LCD
	switch c.LCD.Driver {
	case DriverGPIO:
		if c.LCD.Chip == "" {
			return errors.New("lcd.chip must not be empty for the gpio driver")
		}
		p := c.LCD.Pins
		for name, v := range map[string]int{"rs": p.RS, "e": p.E, "d4": p.D4, "d5": p.D5, "d6": p.D6, "d7": p.D7} {
			if v < 0 {
				return fmt.Errorf("lcd.pins.%s must be >= 0", name)
			}
		}
		if p.Backlight < -1 {
			return errors.New("lcd.pins.backlight must be >= 0, or -1 when not wired")
		}
	case DriverLog:
	default:
		return fmt.Errorf("lcd.driver must be %q or %q", DriverGPIO, DriverLog)
	}

	// App
	if c.App.SplashMs < 0 {
		return errors.New("app.splash_ms must be >= 0")
	}
	if c.App.IdleTimeoutMs < 0 {
		return errors.New("app.idle_timeout_ms must be >= 0")
	}

	// MQTT
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return errors.New("mqtt.enabled is true but mqtt.broker is empty")
		}
		if c.MQTT.ClientID == "" {
			return errors.New("mqtt.enabled is true but mqtt.client_id is empty")
		}
	}

	// Loop
	if c.HeartbeatMs < 0 {
		return errors.New("heartbeat_ms must be >= 0")
	}
	if c.LoopMs < 1 || c.LoopMs > c.Buttons.SamplingIntervalMs {
		return errors.New("loop_ms must be between 1 and buttons.sampling_interval_ms")
	}

	// Logging
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// ThresholdTable returns the classifier thresholds: the custom table when
// one is configured, otherwise the named calibration.
func (c *Config) ThresholdTable() ([]buttons.Threshold, error) {
	if len(c.Buttons.Thresholds) == 0 {
		switch c.Buttons.Calibration {
		case "", "default":
			return buttons.DefaultThresholds, nil
		case "legacy":
			return buttons.LegacyThresholds, nil
		default:
			return nil, fmt.Errorf("buttons.calibration must be \"default\" or \"legacy\", got %q", c.Buttons.Calibration)
		}
	}

	table := make([]buttons.Threshold, len(c.Buttons.Thresholds))
	for i, t := range c.Buttons.Thresholds {
		b, err := buttons.ParseButton(t.Button)
		if err != nil {
			return nil, fmt.Errorf("buttons.thresholds[%d]: %w", i, err)
		}
		table[i] = buttons.Threshold{Below: t.Below, Button: b}
	}
	if _, err := buttons.NewClassifier(table); err != nil {
		return nil, fmt.Errorf("buttons.thresholds: %w", err)
	}
	return table, nil
}

// DebounceConfig converts the buttons section for the debouncer.
func (c *Config) DebounceConfig() buttons.Config {
	return buttons.Config{
		IntervalMs:     uint32(c.Buttons.SamplingIntervalMs),
		ConfirmSamples: uint8(c.Buttons.ConfirmSamples),
		HoldSamples:    uint8(c.Buttons.HoldSamples),
		ReleaseSamples: uint8(c.Buttons.ReleaseSamples),
	}
}

// SerialConfig converts the adc section for adc.OpenSerial.
func (c *Config) SerialConfig() adc.SerialConfig {
	return adc.SerialConfig{
		Device:        c.ADC.Device,
		Baud:          c.ADC.Baud,
		ReadTimeoutMs: c.ADC.ReadTimeoutMs,
		StaleAfter:    time.Duration(c.ADC.StaleMs) * time.Millisecond,
	}
}

// LCDPins converts the lcd pin assignment.
func (c *Config) LCDPins() lcd.Pins {
	p := c.LCD.Pins
	return lcd.Pins{RS: p.RS, E: p.E, D4: p.D4, D5: p.D5, D6: p.D6, D7: p.D7, Backlight: p.Backlight}
}

// AppConfig converts the app section for the stopwatch.
func (c *Config) AppConfig() app.Config {
	return app.Config{
		SplashMs:      uint32(c.App.SplashMs),
		IdleTimeoutMs: uint32(c.App.IdleTimeoutMs),
	}
}

// Heartbeat returns the heartbeat interval, 0 when disabled.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// Loop returns the run loop tick interval.
func (c *Config) Loop() time.Duration {
	return time.Duration(c.LoopMs) * time.Millisecond
}
