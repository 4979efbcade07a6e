// Command gizmo-config is the Gizmo configurator.
//
// It keeps a directory of device schemas, discovers peripherals that
// advertise a known capability set, and lets the user read, edit and push
// their configuration.
//
// Usage:
//
//	gizmo-config [flags]
//
// Flags:
//
//	-config string        YAML configuration file
//	-state-dir string     Directory for persistent state (schemas and peers)
//	-schemas list         Comma-separated schema files to import at start-up
//	-builtin              Register the built-in schemas when the directory is empty (default true)
//	-browse               Discover peripherals with DNS-SD (default true)
//	-interface string     Network interface for DNS-SD
//	-require-ack          Commit pushed values only after the peripheral acknowledged them
//	-metrics string       Address of the Prometheus metrics endpoint, e.g. ":9100"
//	-interactive          Enable interactive command mode
//	-reset                Clear all persisted state before starting
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  File path for protocol event logging (CBOR format)
//
// Examples:
//
//	# Interactive configurator with the built-in schemas
//	gizmo-config -interactive
//
//	# Remember schemas and peers across restarts
//	gizmo-config -interactive -state-dir ~/.gizmo
//
//	# Import a schema and serve metrics
//	gizmo-config -schemas nixie.yaml -metrics :9100
//
// Interactive Commands:
//
//	schemas     - List registered schemas
//	import <file> - Import a schema file
//	devices     - List recognized accessories
//	connect <id> - Connect and read the configuration
//	show <id>   - Show the configuration of an accessory
//	set <id> <path> <value> - Edit a parameter
//	push <id>   - Write the edited parameters
//	quit        - Exit the configurator
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gizmo-config/gizmo-go/cmd/gizmo-config/interactive"
	"github.com/gizmo-config/gizmo-go/internal/cli"
	"github.com/gizmo-config/gizmo-go/pkg/discovery"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// SchemaFiles is a comma-separated list of schema files. Setting it
// replaces the list.
type SchemaFiles []string

// String implements flag.Value.
func (s *SchemaFiles) String() string { return strings.Join(*s, ",") }

// Set implements flag.Value.
func (s *SchemaFiles) Set(v string) error {
	*s = nil
	for _, f := range strings.Split(v, ",") {
		if f = strings.TrimSpace(f); f != "" {
			*s = append(*s, f)
		}
	}
	return nil
}

// PeerConfig is a peripheral reachable without discovery.
type PeerConfig struct {
	InstanceID   string   `yaml:"instance_id"`
	Name         string   `yaml:"name"`
	Address      string   `yaml:"address"`
	Capabilities []string `yaml:"capabilities"`
}

// Config holds the configurator configuration.
type Config struct {
	StateDir        string       `yaml:"state_dir"`
	Schemas         SchemaFiles  `yaml:"schemas"`
	Builtin         bool         `yaml:"builtin"`
	Browse          bool         `yaml:"browse"`
	Interface       string       `yaml:"interface"`
	RequireWriteAck bool         `yaml:"require_write_ack"`
	MetricsAddr     string       `yaml:"metrics"`
	Interactive     bool         `yaml:"interactive"`
	Reset           bool         `yaml:"reset"`
	LogLevel        string       `yaml:"log_level"`
	ProtocolLog     string       `yaml:"protocol_log"`
	Peers           []PeerConfig `yaml:"peers"`
}

// DefaultConfig returns the configurator defaults.
func DefaultConfig() Config {
	return Config{
		Builtin:  true,
		Browse:   true,
		LogLevel: "info",
	}
}

func bindFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.StateDir, "state-dir", c.StateDir, "Directory for persistent state (schemas and peers)")
	fs.Var(&c.Schemas, "schemas", "Comma-separated schema files to import at start-up")
	fs.BoolVar(&c.Builtin, "builtin", c.Builtin, "Register the built-in schemas when the directory is empty")
	fs.BoolVar(&c.Browse, "browse", c.Browse, "Discover peripherals with DNS-SD")
	fs.StringVar(&c.Interface, "interface", c.Interface, "Network interface for DNS-SD")
	fs.BoolVar(&c.RequireWriteAck, "require-ack", c.RequireWriteAck, "Commit pushed values only after the peripheral acknowledged them")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Address of the Prometheus metrics endpoint")
	fs.BoolVar(&c.Interactive, "interactive", c.Interactive, "Enable interactive command mode")
	fs.BoolVar(&c.Reset, "reset", c.Reset, "Clear all persisted state before starting")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.ProtocolLog, "protocol-log", c.ProtocolLog, "File path for protocol event logging (CBOR format)")
}

func main() {
	cfg, err := cli.Parse("gizmo-config", os.Args[1:], DefaultConfig(), bindFlags)
	if errors.Is(err, cli.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	var (
		ictl   *interactive.Controller
		logOut io.Writer = os.Stderr
	)
	if cfg.Interactive {
		ictl, err = interactive.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		logOut = ictl.Stderr()
	}

	logger, err := cli.NewLogger(logOut, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, logger, ictl); err != nil {
		logger.Error("configurator failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *Config, logger *slog.Logger, ictl *interactive.Controller) error {
	ccfg := transport.DefaultCentralConfig()
	if cfg.Browse {
		bcfg := discovery.DefaultBrowserConfig()
		bcfg.Interface = cfg.Interface
		browser := discovery.NewMDNSBrowser(bcfg, logger)
		defer browser.Stop()
		ccfg.Source = browser
	}

	a, err := newApp(cfg, logger, ccfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           a.metricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "address", cfg.MetricsAddr)
	}

	if err := a.Start(); err != nil {
		return err
	}
	logger.Info("configurator started",
		"schemas", a.directory.Len(),
		"capabilities", a.directory.CapabilityIDs())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if ictl != nil {
		ictl.Attach(a.env())
		go ictl.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	return nil
}
