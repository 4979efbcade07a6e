package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gizmo-config/gizmo-go/cmd/gizmo-config/interactive"
	"github.com/gizmo-config/gizmo-go/internal/cli"
	"github.com/gizmo-config/gizmo-go/pkg/accessory"
	"github.com/gizmo-config/gizmo-go/pkg/directory"
	"github.com/gizmo-config/gizmo-go/pkg/examples"
	"github.com/gizmo-config/gizmo-go/pkg/metrics"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/gizmo-config/gizmo-go/pkg/persistence"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// State file names inside the state directory.
const (
	schemasFile = "schemas.json"
	peersFile   = "peers.json"
)

// app wires the configurator: schema directory, transport central and
// accessory registry.
type app struct {
	logger    *slog.Logger
	protoLog  *cli.ProtocolLog
	metrics   *metrics.Collector
	directory *directory.Directory
	peers     *persistence.PeerStore
	central   *transport.Central
	registry  *accessory.Registry
}

// newApp builds the configurator from cfg. ccfg supplies the dialer and
// the peer source; its loggers are replaced.
func newApp(cfg *Config, logger *slog.Logger, ccfg transport.CentralConfig) (*app, error) {
	protoLog, err := cli.OpenProtocolLog(cfg.ProtocolLog, logger)
	if err != nil {
		return nil, err
	}
	a := &app{
		logger:   logger,
		protoLog: protoLog,
		metrics:  metrics.New(),
	}

	dcfg := directory.DefaultConfig()
	dcfg.Logger = logger
	if cfg.StateDir != "" {
		if err := a.openState(cfg, &dcfg); err != nil {
			protoLog.Close()
			return nil, err
		}
	}

	a.directory = directory.New(dcfg)
	if err := a.directory.Load(); err != nil {
		protoLog.Close()
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	for _, path := range cfg.Schemas {
		if err := a.importSchema(path); err != nil {
			protoLog.Close()
			return nil, err
		}
	}
	if cfg.Builtin && a.directory.Len() == 0 {
		for _, dev := range []*model.Device{examples.NixieClockSchema(), examples.EnvSensorSchema()} {
			if _, err := a.directory.Register(dev); err != nil {
				protoLog.Close()
				return nil, fmt.Errorf("register built-in schema %s: %w", dev.Name, err)
			}
		}
		logger.Info("registered built-in schemas", "count", a.directory.Len())
	}

	ccfg.Logger = logger
	ccfg.ProtocolLogger = protoLog
	a.central = transport.NewCentral(ccfg)

	acfg := accessory.DefaultConfig()
	acfg.RequireWriteAck = cfg.RequireWriteAck
	acfg.Logger = logger
	acfg.ProtocolLogger = protoLog
	acfg.Metrics = a.metrics
	a.registry = accessory.NewRegistry(a.directory, a.central, acfg)
	a.central.SetEventSink(a.registry)
	a.registry.OnEvent(a.handleEvent)

	for _, p := range cfg.Peers {
		a.central.AddPeer(transport.Peer{
			InstanceID:    p.InstanceID,
			Name:          p.Name,
			Address:       p.Address,
			CapabilityIDs: p.Capabilities,
		})
	}
	if err := a.restorePeers(); err != nil {
		logger.Warn("failed to restore peers", "error", err)
	}
	return a, nil
}

func (a *app) openState(cfg *Config, dcfg *directory.Config) error {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	schemas := persistence.NewSchemaStore(filepath.Join(cfg.StateDir, schemasFile))
	a.peers = persistence.NewPeerStore(filepath.Join(cfg.StateDir, peersFile))

	if cfg.Reset {
		a.logger.Info("resetting persisted state", "dir", cfg.StateDir)
		if err := errors.Join(schemas.Clear(), a.peers.Clear()); err != nil {
			return fmt.Errorf("reset state: %w", err)
		}
	}
	dcfg.Store = schemas
	a.logger.Info("using state directory", "dir", cfg.StateDir)
	return nil
}

func (a *app) importSchema(path string) error {
	dev, err := model.LoadDevice(path)
	if err != nil {
		return err
	}
	stored, err := a.directory.Register(dev)
	if err != nil {
		return fmt.Errorf("register %s: %w", path, err)
	}
	a.logger.Info("imported schema", "file", path, "name", stored.Name, "capabilities", stored.CapabilityIDs)
	return nil
}

// restorePeers re-adds the peers remembered from earlier runs.
func (a *app) restorePeers() error {
	if a.peers == nil {
		return nil
	}
	state, err := a.peers.Load()
	if err != nil || state == nil {
		return err
	}
	for _, rec := range state.Peers {
		a.central.AddPeer(transport.Peer{
			InstanceID:    rec.InstanceID,
			Name:          rec.Name,
			Address:       rec.Address,
			CapabilityIDs: rec.CapabilityIDs,
		})
	}
	a.logger.Debug("restored peers", "count", len(state.Peers))
	return nil
}

// Start starts discovery for the registered capability ids.
func (a *app) Start() error {
	return a.registry.Start()
}

// Close stops the central and closes the protocol log.
func (a *app) Close() error {
	return errors.Join(a.central.Close(), a.protoLog.Close())
}

func (a *app) env() interactive.Env {
	return interactive.Env{
		Directory: a.directory,
		Registry:  a.registry,
		Central:   a.central,
		Peers:     a.peers,
	}
}

func (a *app) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}

func (a *app) handleEvent(e accessory.Event) {
	switch e.Type {
	case accessory.EventDiscovered:
		name := ""
		if acc := a.registry.Accessory(e.InstanceID); acc != nil {
			name = acc.Name()
		}
		a.logger.Info("accessory discovered", "instance", e.InstanceID, "name", name)

	case accessory.EventStateChanged:
		a.logger.Info("accessory state changed", "instance", e.InstanceID, "state", e.State)
		if e.State == accessory.StatePopulated {
			a.rememberPeer(e.InstanceID)
		}

	case accessory.EventWriteResult:
		if e.Error != nil {
			a.logger.Warn("write rejected", "instance", e.InstanceID, "wire_id", e.WireID, "error", e.Error)
		}

	case accessory.EventRemoved:
		a.logger.Info("accessory removed", "instance", e.InstanceID)
	}
}

// rememberPeer stores the address of a peer that completed population so
// that it is known before discovery on the next start.
func (a *app) rememberPeer(instanceID string) {
	if a.peers == nil {
		return
	}
	for _, p := range a.central.Peers() {
		if p.InstanceID != instanceID {
			continue
		}
		rec := persistence.PeerRecord{
			InstanceID:    p.InstanceID,
			Name:          p.Name,
			Address:       p.Address,
			CapabilityIDs: p.CapabilityIDs,
			LastSeenAt:    time.Now(),
		}
		if err := a.peers.Upsert(rec); err != nil {
			a.logger.Warn("failed to save peer", "instance", instanceID, "error", err)
		}
		return
	}
}
