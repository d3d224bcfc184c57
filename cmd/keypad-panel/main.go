// Command keypad-panel debounces an analog 5-button keypad, runs a stopwatch
// on a 16x2 LCD and publishes button events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/keypad-panel/internal/adc"
	"github.com/sweeney/keypad-panel/internal/buttons"
	"github.com/sweeney/keypad-panel/internal/config"
	"github.com/sweeney/keypad-panel/internal/lcd"
	"github.com/sweeney/keypad-panel/internal/mqtt"
	"github.com/sweeney/keypad-panel/internal/status"
	"github.com/sweeney/keypad-panel/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults when empty)")
	adcDevice := flag.String("adc", "", "Serial device streaming analog samples")
	calibration := flag.String("calibration", "", `Button threshold table: "default" or "legacy"`)
	lcdDriver := flag.String("lcd", "", `Display driver: "gpio" or "log"`)
	broker := flag.String("broker", "", "MQTT broker address")
	noMQTT := flag.Bool("no-mqtt", false, "Disable MQTT publishing")
	httpAddr := flag.String("http", "", "HTTP status address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 0, "Heartbeat interval (0 to disable)")
	loop := flag.Duration("loop", 0, "Run loop interval")
	logLevel := flag.String("log-level", "", "Log level: error, warn, info, debug")
	printSample := flag.Bool("print-sample", false, "Print one classified sample and exit")

	flag.Parse()

	// Only flags given on the command line override the file.
	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "adc":
			o.ADCDevice = adcDevice
		case "calibration":
			o.Calibration = calibration
		case "lcd":
			o.LCDDriver = lcdDriver
		case "broker":
			o.Broker = broker
		case "no-mqtt":
			enabled := !*noMQTT
			o.MQTTEnabled = &enabled
		case "http":
			o.HTTPAddr = httpAddr
		case "heartbeat":
			ms := int(heartbeat.Milliseconds())
			o.HeartbeatMs = &ms
		case "loop":
			ms := int(loop.Milliseconds())
			o.LoopMs = &ms
		case "log-level":
			o.LogLevel = logLevel
		}
	})

	cfg, err := loadConfig(*configPath, o)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger, err := cfg.NewLogger(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, *printSample, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig applies defaults, the optional file and the overrides, in that
// order, and validates the result.
func loadConfig(path string, o config.FlagOverrides) (config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	}
	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(cfg config.Config, printSample bool, logger *slog.Logger) error {
	// Initialize the analog sampler
	sampler, err := adc.OpenSerial(cfg.SerialConfig(), logger)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer sampler.Close()

	// Print sample mode
	if printSample {
		table, err := cfg.ThresholdTable()
		if err != nil {
			return err
		}
		classifier, err := buttons.NewClassifier(table)
		if err != nil {
			return err
		}
		raw, err := waitSample(sampler, 2*time.Second)
		if err != nil {
			return fmt.Errorf("read adc: %w", err)
		}
		fmt.Printf("sample: %d, button: %s\n", raw, classifier.Classify(raw))
		return nil
	}

	display, err := openDisplay(cfg, logger)
	if err != nil {
		return err
	}
	defer display.Close()

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Enabled {
		opts := mqtt.DefaultOptions(cfg.MQTT.Broker)
		opts.ClientID = cfg.MQTT.ClientID
		p, err := mqtt.NewRealPublisher(opts, logger)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
	} else {
		logger.Info("mqtt disabled")
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	startTime := time.Now()
	statusCfg := status.Config{
		LoopMs:         int64(cfg.LoopMs),
		SampleMs:       int64(cfg.Buttons.SamplingIntervalMs),
		ConfirmSamples: cfg.Buttons.ConfirmSamples,
		HoldSamples:    cfg.Buttons.HoldSamples,
		ReleaseSamples: cfg.Buttons.ReleaseSamples,
		HeartbeatMs:    int64(cfg.HeartbeatMs),
		HTTPAddr:       cfg.HTTP.Addr,
		ADCDevice:      cfg.ADC.Device,
		LCDDriver:      cfg.LCD.Driver,
	}
	if cfg.MQTT.Enabled {
		statusCfg.Broker = cfg.MQTT.Broker
	}
	tracker := status.NewTracker(startTime, statusCfg)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Start HTTP status server and the live event hub
	var hub *web.Hub
	if cfg.HTTP.Addr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub = web.NewHub(logger, web.HubConfig{})
		go hub.Run(ctx)

		srv := web.New(cfg.HTTP.Addr, tracker, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	p, err := newPanel(&cfg, panelDeps{
		Sampler:    sampler,
		Display:    display,
		Publisher:  publisher,
		MQTTStatus: mqttStatus,
		Tracker:    tracker,
		Hub:        hub,
		Logger:     logger,
		Now:        time.Now,
	})
	if err != nil {
		return err
	}

	logger.Info("started",
		"adc", cfg.ADC.Device,
		"lcd", cfg.LCD.Driver,
		"loop", cfg.Loop(),
		"sample_interval_ms", cfg.Buttons.SamplingIntervalMs,
		"mqtt", cfg.MQTT.Enabled,
		"heartbeat", cfg.Heartbeat(),
	)

	ticker := time.NewTicker(cfg.Loop())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(p, ticker.C, sigCh)
}

// openDisplay opens the configured LCD driver and uploads the icons.
func openDisplay(cfg config.Config, logger *slog.Logger) (lcd.Display, error) {
	var display lcd.Display
	switch cfg.LCD.Driver {
	case config.DriverLog:
		display = lcd.NewLogDisplay(logger)
	default:
		d, err := lcd.NewGPIODisplay(cfg.LCD.Chip, cfg.LCDPins())
		if err != nil {
			return nil, fmt.Errorf("init lcd: %w", err)
		}
		display = d
	}
	if err := lcd.InitIcons(display); err != nil {
		display.Close()
		return nil, fmt.Errorf("init lcd: %w", err)
	}
	return display, nil
}

// waitSample polls s until the first sample arrives or timeout elapses.
func waitSample(s adc.Sampler, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		raw, err := s.Read()
		if !errors.Is(err, adc.ErrNoSample) || time.Now().After(deadline) {
			return raw, err
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
