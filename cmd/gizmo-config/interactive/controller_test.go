package interactive

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gizmo-config/gizmo-go/pkg/accessory"
	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/directory"
	"github.com/gizmo-config/gizmo-go/pkg/examples"
	"github.com/gizmo-config/gizmo-go/pkg/persistence"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type session struct {
	ctl   *Controller
	buf   bytes.Buffer
	env   Env
	clock *examples.NixieClock
}

func (s *session) exec(line string) string {
	s.buf.Reset()
	s.ctl.Execute(line)
	return s.buf.String()
}

// newSession wires a controller to a simulated clock reachable over an
// in-memory link as "clock-1".
func newSession(t *testing.T) *session {
	t.Helper()
	clock, err := examples.NewNixieClock(examples.DefaultNixieClockConfig())
	require.NoError(t, err)

	dir := directory.New(directory.DefaultConfig())
	_, err = dir.Register(examples.NixieClockSchema())
	require.NoError(t, err)

	ccfg := transport.DefaultCentralConfig()
	ccfg.DialAttempts = 1
	ccfg.Dial = func(ctx context.Context, address string) (net.Conn, error) {
		client, server := net.Pipe()
		go clock.Peripheral().Serve(server)
		return client, nil
	}
	central := transport.NewCentral(ccfg)
	t.Cleanup(func() { central.Close() })

	reg := accessory.NewRegistry(dir, central, accessory.DefaultConfig())
	central.SetEventSink(reg)
	require.NoError(t, reg.Start())
	central.AddPeer(transport.Peer{
		InstanceID:    "clock-1",
		Name:          "Hall Clock",
		Address:       "pipe",
		CapabilityIDs: clock.Schema().CapabilityIDs,
	})

	s := &session{
		env: Env{
			Directory: dir,
			Registry:  reg,
			Central:   central,
			Peers:     persistence.NewPeerStore(filepath.Join(t.TempDir(), "peers.json")),
		},
		clock: clock,
	}
	s.ctl = NewWithWriter(s.env, &s.buf)
	return s
}

func (s *session) populate(t *testing.T) *accessory.Accessory {
	t.Helper()
	assert.Contains(t, s.exec("connect clock"), "Connecting to clock-1")
	a := s.env.Registry.Accessory("clock-1")
	require.NotNil(t, a)
	require.Eventually(t, func() bool { return a.State() == accessory.StatePopulated }, waitFor, 5*time.Millisecond)
	return a
}

func TestSchemaCommands(t *testing.T) {
	s := newSession(t)

	out := s.exec("schemas")
	assert.Contains(t, out, "Schemas (1)")
	assert.Contains(t, out, "Nixie Clock")
	assert.Contains(t, out, "185C, 185D, 185E, 185F")
	assert.Contains(t, out, "Fingerprint: "+examples.NixieClockSchema().Fingerprint()[:16])

	out = s.exec("schema nixie clock")
	assert.Contains(t, out, "Time Zone")
	assert.Contains(t, out, "Factory Reset")

	assert.Contains(t, s.exec("schema toaster"), "no match")
	assert.Contains(t, s.exec("schema"), "Usage: schema")
}

func TestSchemaImportExport(t *testing.T) {
	s := newSession(t)
	file := filepath.Join(t.TempDir(), "nixie.yaml")

	assert.Contains(t, s.exec("export Nixie Clock "+file), "Exported Nixie Clock")
	_, err := os.Stat(file)
	require.NoError(t, err)

	assert.Contains(t, s.exec("unregister Nixie Clock"), "Removed Nixie Clock")
	assert.Contains(t, s.exec("schemas"), "No schemas registered")
	assert.Nil(t, s.env.Registry.Accessory("clock-1"), "accessories are dropped with their schema")

	assert.Contains(t, s.exec("import "+file), "Registered Nixie Clock")
	assert.Equal(t, 1, s.env.Directory.Len())
	assert.Contains(t, s.exec("import "+filepath.Join(t.TempDir(), "missing.json")), "Import failed")
}

func TestConfigureAccessory(t *testing.T) {
	s := newSession(t)

	out := s.exec("devices")
	assert.Contains(t, out, "clock-1  Hall Clock")
	assert.Contains(t, out, "DISCONNECTED")

	a := s.populate(t)

	assert.Equal(t, "Time Zone = 0\n", s.exec("get clock time/timezone"))
	assert.Contains(t, s.exec("get clock 2AF7"), "write-only")

	assert.Contains(t, s.exec("set clock time/timezone 2"), "Time Zone edited")
	assert.Contains(t, s.exec("set clock 2AF6 \"Home Network\""), "SSID edited")
	assert.True(t, a.IsModified())

	out = s.exec("show clock time/")
	assert.Contains(t, out, "[modified]")
	assert.Contains(t, out, "Time Zone")
	assert.NotContains(t, out, "Brightness")
	assert.Contains(t, s.exec("show clock nowhere/"), "group not found")

	out = s.exec("push clock")
	assert.Contains(t, out, "wrote SSID [2AF6]")
	assert.Contains(t, out, "wrote Time Zone [2AF9] 0e")
	assert.Contains(t, out, "Pushed 2 parameter(s)")
	assert.False(t, a.IsModified())

	require.Eventually(t, func() bool {
		v, ok := s.clock.Value(examples.NixieTimeZone)
		return ok && v.Equal(codec.Int(2))
	}, waitFor, 5*time.Millisecond)
	v, ok := s.clock.Value(examples.NixieWifiSSID)
	require.True(t, ok)
	assert.Equal(t, "Home Network", v.String())

	assert.Contains(t, s.exec("push clock"), "Nothing to push")
}

func TestEditRejections(t *testing.T) {
	s := newSession(t)

	assert.Contains(t, s.exec("set clock 2AFA 40"), "not populated")

	a := s.populate(t)
	assert.Contains(t, s.exec("set clock 2AF5 aa:bb"), "read-only")
	assert.Contains(t, s.exec("set clock display/brightness bright"), "Set failed")
	assert.Contains(t, s.exec("set clock display/nothing 1"), "parameter not found")
	assert.False(t, a.IsModified())

	assert.Contains(t, s.exec("set clock display/brightness 80"), "edited")
	assert.Contains(t, s.exec("reset clock"), "Edits discarded")
	assert.False(t, a.IsModified())
}

func TestPeerCommands(t *testing.T) {
	s := newSession(t)

	assert.Contains(t, s.exec("peer"), "Usage: peer")
	assert.Contains(t, s.exec("peer lamp-1 10.0.0.5:7890 1815 Desk Lamp"), "no matching schema")

	out := s.exec("peers")
	assert.Contains(t, out, "Peripherals (2)")
	assert.Contains(t, out, "lamp-1  Desk Lamp")
	assert.Contains(t, out, "10.0.0.5:7890")

	state, err := s.env.Peers.Load()
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Len(t, state.Peers, 1)
	assert.Equal(t, "lamp-1", state.Peers[0].InstanceID)
	assert.Equal(t, []string{"1815"}, state.Peers[0].CapabilityIDs)
}

func TestAccessoryLookup(t *testing.T) {
	s := newSession(t)
	s.env.Central.AddPeer(transport.Peer{
		InstanceID:    "clock-2",
		Name:          "Bedroom Clock",
		CapabilityIDs: s.clock.Schema().CapabilityIDs,
	})

	assert.Contains(t, s.exec("disconnect clock"), "ambiguous")
	assert.Contains(t, s.exec("disconnect clock-2"), "Disconnected clock-2")
	assert.Contains(t, s.exec("disconnect clock-9"), "no match")
	assert.Contains(t, s.exec("connect"), "Usage: connect <id>")
}

func TestGeneralCommands(t *testing.T) {
	s := newSession(t)

	assert.Contains(t, s.exec("help"), "Gizmo Configurator Commands")
	assert.Contains(t, s.exec("frobnicate"), "Unknown command: frobnicate")
	assert.Empty(t, s.exec("   "))

	out := s.exec("status")
	assert.Contains(t, out, "Schemas:        1")
	assert.Contains(t, out, "Browsing for:   185C, 185D, 185E, 185F")
	assert.Contains(t, out, "DISCONNECTED:   1")

	assert.True(t, s.ctl.Execute("status"))
	assert.False(t, s.ctl.Execute("quit"))
}
