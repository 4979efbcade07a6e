// Command gizmo-sim runs a simulated Gizmo peripheral.
//
// The peripheral serves its characteristic table over TCP and advertises
// itself with DNS-SD so that gizmo-config can discover it.
//
// Usage:
//
//	gizmo-sim [flags]
//
// Flags:
//
//	-config string        YAML configuration file
//	-type string          Peripheral type: nixie, sensor (default "nixie")
//	-name string          Advertised display name
//	-port int             Listen port (default 7890)
//	-mac string           Hardware address, used to derive the instance id
//	-advertise            Advertise with DNS-SD (default true)
//	-simulate             Publish changing sensor readings
//	-interval duration    Reading interval in simulation mode (default 5s)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  File path for protocol event logging (CBOR format)
//
// Examples:
//
//	# Nixie clock on the default port
//	gizmo-sim -name "Hall Clock"
//
//	# Environment sensor with live readings
//	gizmo-sim -type sensor -port 7891 -simulate -interval 2s
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gizmo-config/gizmo-go/internal/cli"
	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/discovery"
	"github.com/gizmo-config/gizmo-go/pkg/examples"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// DeviceType selects the simulated peripheral.
type DeviceType string

const (
	DeviceTypeNixie  DeviceType = "nixie"
	DeviceTypeSensor DeviceType = "sensor"
)

// String implements flag.Value.
func (t *DeviceType) String() string { return string(*t) }

// Set implements flag.Value.
func (t *DeviceType) Set(s string) error {
	switch DeviceType(s) {
	case DeviceTypeNixie, DeviceTypeSensor:
		*t = DeviceType(s)
		return nil
	}
	return fmt.Errorf("unknown type %q (use: nixie, sensor)", s)
}

// Config holds the simulator configuration.
type Config struct {
	Type        DeviceType    `yaml:"type"`
	Name        string        `yaml:"name"`
	Port        int           `yaml:"port"`
	MAC         string        `yaml:"mac"`
	Advertise   bool          `yaml:"advertise"`
	Simulate    bool          `yaml:"simulate"`
	Interval    time.Duration `yaml:"interval"`
	LogLevel    string        `yaml:"log_level"`
	ProtocolLog string        `yaml:"protocol_log"`

	// Nixie clock settings
	Nixie struct {
		SSID       string `yaml:"ssid"`
		TimeZone   int    `yaml:"time_zone"`
		DST        bool   `yaml:"dst"`
		Brightness int    `yaml:"brightness"`
	} `yaml:"nixie"`

	// Sensor settings
	Sensor struct {
		Label          string `yaml:"label"`
		ReportInterval int    `yaml:"report_interval"`
	} `yaml:"sensor"`
}

// DefaultConfig returns the simulator defaults.
func DefaultConfig() Config {
	cfg := Config{
		Type:      DeviceTypeNixie,
		Port:      transport.DefaultPort,
		MAC:       "02:00:00:00:00:01",
		Advertise: true,
		Interval:  5 * time.Second,
		LogLevel:  "info",
	}
	nixie := examples.DefaultNixieClockConfig()
	cfg.Nixie.Brightness = nixie.Brightness
	sensor := examples.DefaultEnvSensorConfig()
	cfg.Sensor.Label = sensor.Label
	cfg.Sensor.ReportInterval = sensor.ReportInterval
	return cfg
}

func bindFlags(fs *flag.FlagSet, c *Config) {
	fs.Var(&c.Type, "type", "Peripheral type: nixie, sensor")
	fs.StringVar(&c.Name, "name", c.Name, "Advertised display name")
	fs.IntVar(&c.Port, "port", c.Port, "Listen port")
	fs.StringVar(&c.MAC, "mac", c.MAC, "Hardware address, used to derive the instance id")
	fs.BoolVar(&c.Advertise, "advertise", c.Advertise, "Advertise with DNS-SD")
	fs.BoolVar(&c.Simulate, "simulate", c.Simulate, "Publish changing sensor readings")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "Reading interval in simulation mode")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.ProtocolLog, "protocol-log", c.ProtocolLog, "File path for protocol event logging (CBOR format)")
}

// simDevice is a simulated peripheral.
type simDevice interface {
	Schema() *model.Device
	Peripheral() *transport.Peripheral
}

func main() {
	cfg, err := cli.Parse("gizmo-sim", os.Args[1:], DefaultConfig(), bindFlags)
	if errors.Is(err, cli.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	logger, err := cli.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("simulator failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *Config, logger *slog.Logger) error {
	protoLog, err := cli.OpenProtocolLog(cfg.ProtocolLog, logger)
	if err != nil {
		return err
	}
	defer protoLog.Close()

	pcfg := transport.PeripheralConfig{
		Address:        fmt.Sprintf(":%d", cfg.Port),
		Logger:         logger,
		ProtocolLogger: protoLog,
	}
	dev, err := buildDevice(cfg, pcfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := dev.Peripheral()
	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start peripheral: %w", err)
	}
	defer p.Stop()

	schema := dev.Schema()
	instanceID := discovery.InstanceIDFromHardware(cfg.MAC)
	logger.Info("peripheral started",
		"schema", schema.Name,
		"instance", instanceID,
		"address", p.Addr().String(),
		"capabilities", schema.CapabilityIDs)

	if cfg.Advertise {
		adv := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
		info := &discovery.PeripheralInfo{
			InstanceID:    instanceID,
			Name:          cfg.Name,
			Port:          uint16(cfg.Port),
			CapabilityIDs: schema.CapabilityIDs,
		}
		if err := adv.Advertise(ctx, info); err != nil {
			return fmt.Errorf("advertise: %w", err)
		}
		defer adv.Stop()
		logger.Info("advertising", "service", discovery.ServiceType, "instance", discovery.InstanceName(instanceID))
	}

	if sensor, ok := dev.(*examples.EnvSensor); ok && cfg.Simulate {
		go runSimulation(ctx, sensor, cfg.Interval, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
	return nil
}

// buildDevice creates the simulated peripheral selected by cfg.
func buildDevice(cfg *Config, pcfg transport.PeripheralConfig, logger *slog.Logger) (simDevice, error) {
	switch cfg.Type {
	case DeviceTypeSensor:
		scfg := examples.DefaultEnvSensorConfig()
		scfg.Label = cfg.Sensor.Label
		scfg.ReportInterval = cfg.Sensor.ReportInterval
		scfg.Peripheral = pcfg
		sensor, err := examples.NewEnvSensor(scfg)
		if err != nil {
			return nil, err
		}
		return sensor, nil

	case DeviceTypeNixie, "":
		ncfg := examples.DefaultNixieClockConfig()
		ncfg.MAC = cfg.MAC
		ncfg.SSID = cfg.Nixie.SSID
		ncfg.TimeZone = cfg.Nixie.TimeZone
		ncfg.DST = cfg.Nixie.DST
		ncfg.Brightness = cfg.Nixie.Brightness
		ncfg.Peripheral = pcfg
		clock, err := examples.NewNixieClock(ncfg)
		if err != nil {
			return nil, err
		}
		clock.OnWrite(func(wireID string, v codec.Value) {
			name := wireID
			if d, ok := clock.Schema().DatumByWireID(wireID); ok {
				name = d.Name
			}
			logger.Info("setting changed", "parameter", name, "wire_id", wireID, "value", v.String())
		})
		return clock, nil

	default:
		return nil, fmt.Errorf("unknown device type %q", cfg.Type)
	}
}
