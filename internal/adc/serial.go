package adc

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tarm/serial"
)

// SerialConfig holds serial port configuration.
type SerialConfig struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate of the sampling sketch
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeoutMs int

	// Samples older than this are reported as ErrStale (0 = never)
	StaleAfter time.Duration
}

// DefaultSerialConfig returns the settings used by the sampling sketch.
func DefaultSerialConfig(device string) SerialConfig {
	return SerialConfig{
		Device:     device,
		Baud:       115200,
		StaleAfter: 500 * time.Millisecond,
	}
}

// OpenSerial opens a serial port streaming one analogRead value per line.
func OpenSerial(cfg SerialConfig, logger *slog.Logger) (*StreamSampler, error) {
	timeout := time.Duration(cfg.ReadTimeoutMs) * time.Millisecond
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return newStreamSampler(port, cfg.StaleAfter, timeout, time.Now, logger), nil
}
