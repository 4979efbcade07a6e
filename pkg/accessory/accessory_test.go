package accessory

import (
	"errors"
	"testing"

	"github.com/gizmo-config/gizmo-go/pkg/accessory/mocks"
	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/directory"
	"github.com/gizmo-config/gizmo-go/pkg/log"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testSchema has one parameter of each access mode:
// A uint8 read/write offset -12, B string read-only, C string write-only,
// D int16 big endian read/write.
func testSchema() *model.Device {
	d := model.NewDevice("Test Clock", "185D")
	g := model.NewDatumGroup("Main", 0)

	a := model.NewDatum(model.EncodingUint8, "A", "Alpha")
	a.Offset = -12
	b := model.NewDatum(model.EncodingString, "B", "Beta")
	b.Access = model.AccessReadOnly
	c := model.NewDatum(model.EncodingString, "C", "Secret")
	c.Access = model.AccessWriteOnly
	dd := model.NewDatum(model.EncodingInt16, "D", "Delta")
	dd.Endian = model.EndianBig

	g.AddDatum(a)
	g.AddDatum(b)
	g.AddDatum(c)
	g.AddDatum(dd)
	d.AddGroup(g)
	return d
}

type recorder struct {
	events []log.Event
}

func (r *recorder) Log(e log.Event) { r.events = append(r.events, e) }

func newTestAccessory(t *testing.T, cfg Config) (*Accessory, *mocks.MockTransport) {
	t.Helper()
	dir := directory.New(directory.DefaultConfig())
	dev, err := dir.Register(testSchema())
	require.NoError(t, err)

	transport := mocks.NewMockTransport(t)
	return New("1", "", dev.ID, dir, transport, cfg), transport
}

func connect(t *testing.T, a *Accessory, transport *mocks.MockTransport) {
	t.Helper()
	transport.EXPECT().Connect("1").Return(nil).Once()
	require.NoError(t, a.Connect())
	assert.Equal(t, StateConnecting, a.State())
	a.HandleConnected()
	assert.Equal(t, StateConnected, a.State())
}

func populate(t *testing.T, a *Accessory, transport *mocks.MockTransport) {
	t.Helper()
	connect(t, a, transport)
	require.NoError(t, a.HandleValue("A", []byte{0x18}))
	require.NoError(t, a.HandleValue("B", []byte("ok")))
	require.NoError(t, a.HandleValue("D", []byte{0x00, 0x10}))
	require.Equal(t, StatePopulated, a.State())
}

func TestNewAccessoryDefaults(t *testing.T) {
	a, _ := newTestAccessory(t, DefaultConfig())
	assert.Equal(t, NoName, a.Name())
	assert.Equal(t, StateDisconnected, a.State())
	assert.Empty(t, a.SessionID())
	assert.False(t, a.IsModified())
}

func TestCompletenessIgnoresOrderAndDuplicates(t *testing.T) {
	orders := [][]string{
		{"A", "B", "D"},
		{"D", "B", "A"},
		{"B", "B", "D", "D", "A"},
	}
	values := map[string][]byte{"A": {0x18}, "B": []byte("hi"), "D": {0x00, 0x01}}

	for _, order := range orders {
		a, transport := newTestAccessory(t, DefaultConfig())
		connect(t, a, transport)

		for i, wireID := range order {
			require.NoError(t, a.HandleValue(wireID, values[wireID]))
			if i < len(order)-1 {
				assert.Equal(t, StateConnected, a.State(), "order %v", order)
			}
		}
		assert.Equal(t, StatePopulated, a.State(), "order %v", order)
	}
}

func TestWriteOnlyNotRequiredForPopulation(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())
	connect(t, a, transport)

	require.NoError(t, a.HandleValue("A", []byte{1}))
	require.NoError(t, a.HandleValue("C", []byte("leaked")))
	require.NoError(t, a.HandleValue("D", []byte{0, 1}))
	assert.Equal(t, StateConnected, a.State(), "B still missing")
	_, seen := a.Baseline()["C"]
	assert.False(t, seen, "write-only values are not stored")

	require.NoError(t, a.HandleValue("B", nil))
	assert.Equal(t, StatePopulated, a.State(), "empty buffer counts as observed")
}

func TestHandleValueRejections(t *testing.T) {
	rec := &recorder{}
	a, transport := newTestAccessory(t, Config{ProtocolLogger: rec})

	assert.ErrorIs(t, a.HandleValue("A", []byte{1}), ErrNotConnected)

	connect(t, a, transport)
	assert.ErrorIs(t, a.HandleValue("Z", []byte{1}), ErrUnknownWireID)
	assert.ErrorIs(t, a.HandleValue("D", []byte{1}), codec.ErrShortBuffer)
	assert.Empty(t, a.Baseline(), "rejected values leave no trace")

	var errorEvents int
	for _, e := range rec.events {
		if e.Category == log.CategoryError {
			errorEvents++
		}
	}
	assert.Equal(t, 2, errorEvents)
}

func TestEditableIsDeepCopy(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())
	populate(t, a, transport)

	assert.Equal(t, a.Baseline(), a.Editable())

	editable := a.Editable()
	editable["A"][0] = 0xFF
	assert.Equal(t, byte(0x18), a.Editable()["A"][0], "returned maps are copies")

	require.NoError(t, a.SetRaw("A", []byte{0x20}))
	assert.Equal(t, byte(0x18), a.Baseline()["A"][0], "editing must not alias the baseline")
}

func TestDirtyDetection(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())
	populate(t, a, transport)
	assert.False(t, a.IsModified())

	require.NoError(t, a.SetValue("A", codec.Int(20)))
	assert.True(t, a.IsModified())
	assert.Equal(t, []string{"A"}, a.Modified())

	v, err := a.Value("A")
	require.NoError(t, err)
	assert.True(t, v.Equal(codec.Int(20)))
	base, err := a.BaselineValue("A")
	require.NoError(t, err)
	assert.True(t, base.Equal(codec.Int(12)))

	a.Reset()
	assert.False(t, a.IsModified())
	assert.Empty(t, a.Modified())
}

func TestSetValueRejections(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())

	assert.ErrorIs(t, a.SetValue("A", codec.Int(1)), ErrNotPopulated)

	populate(t, a, transport)
	before := a.Editable()

	assert.ErrorIs(t, a.SetValue("B", codec.String("x")), ErrReadOnly)
	assert.ErrorIs(t, a.SetValue("A", codec.String("x")), ErrUnencodable)
	assert.ErrorIs(t, a.SetValue("A", codec.Int(-13)), ErrUnencodable, "raw would be negative")
	assert.ErrorIs(t, a.SetValue("Z", codec.Int(1)), ErrUnknownWireID)
	assert.Equal(t, before, a.Editable())

	// An empty string is a legitimate value.
	require.NoError(t, a.SetValue("C", codec.String("")))
	assert.Equal(t, []byte{}, a.Editable()["C"])
}

func TestPushMinimality(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())
	populate(t, a, transport)

	require.NoError(t, a.SetValue("D", codec.Int(-2)))
	require.NoError(t, a.SetValue("C", codec.String("hunter2")))
	require.NoError(t, a.SetRaw("B", []byte("tampered")))
	// Setting A to its current value is not a change.
	require.NoError(t, a.SetValue("A", codec.Int(12)))

	transport.EXPECT().Write("1", "C", []byte("hunter2")).Return(nil).Once()
	transport.EXPECT().Write("1", "D", []byte{0xFF, 0xFE}).Return(nil).Once()

	writes, err := a.Push()
	require.NoError(t, err)
	require.Len(t, writes, 2)
	assert.Equal(t, "C", writes[0].WireID)
	assert.Equal(t, "D", writes[1].WireID)

	assert.False(t, a.IsModified())
	assert.Equal(t, []byte("ok"), a.Baseline()["B"], "read-only edit discarded")
	assert.Equal(t, []byte("ok"), a.Editable()["B"])

	// Nothing left to push.
	writes, err = a.Push()
	require.NoError(t, err)
	assert.Empty(t, writes)
}

func TestPushRequiresPopulated(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())
	_, err := a.Push()
	assert.ErrorIs(t, err, ErrNotPopulated)

	connect(t, a, transport)
	_, err = a.Push()
	assert.ErrorIs(t, err, ErrNotPopulated)
}

func TestPushTransportFailureStaysModified(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())
	populate(t, a, transport)

	require.NoError(t, a.SetValue("A", codec.Int(0)))
	require.NoError(t, a.SetValue("D", codec.Int(7)))

	transport.EXPECT().Write("1", "A", mock.Anything).Return(errors.New("link down")).Once()
	transport.EXPECT().Write("1", "D", []byte{0x00, 0x07}).Return(nil).Once()

	writes, err := a.Push()
	assert.Error(t, err)
	assert.Len(t, writes, 2)
	assert.Equal(t, []string{"A"}, a.Modified())
	assert.Equal(t, []byte{0x00, 0x07}, a.Baseline()["D"])
}

func TestRequireWriteAck(t *testing.T) {
	a, transport := newTestAccessory(t, Config{RequireWriteAck: true})
	populate(t, a, transport)

	require.NoError(t, a.SetValue("A", codec.Int(5)))
	require.NoError(t, a.SetValue("D", codec.Int(3)))

	transport.EXPECT().Write("1", "A", []byte{0x11}).Return(nil).Once()
	transport.EXPECT().Write("1", "D", []byte{0x00, 0x03}).Return(nil).Once()

	_, err := a.Push()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "D"}, a.Pending())
	assert.True(t, a.IsModified(), "not committed before acknowledgment")

	// Pushing again does not resend in-flight writes.
	writes, err := a.Push()
	require.NoError(t, err)
	assert.Empty(t, writes)

	a.HandleWriteResult("A", nil)
	a.HandleWriteResult("D", errors.New("rejected"))

	assert.Equal(t, []byte{0x11}, a.Baseline()["A"])
	assert.Equal(t, []byte{0x00, 0x10}, a.Baseline()["D"])
	assert.Empty(t, a.Pending())
	assert.Equal(t, []string{"D"}, a.Modified())
}

func TestSynchronousWriteAck(t *testing.T) {
	a, transport := newTestAccessory(t, Config{RequireWriteAck: true})
	populate(t, a, transport)
	require.NoError(t, a.SetValue("A", codec.Int(5)))

	transport.EXPECT().Write("1", "A", []byte{0x11}).RunAndReturn(func(_, wireID string, _ []byte) error {
		a.HandleWriteResult(wireID, nil)
		return nil
	}).Once()

	_, err := a.Push()
	require.NoError(t, err)
	assert.False(t, a.IsModified())
}

func TestValueUpdateAfterPopulation(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())
	populate(t, a, transport)

	require.NoError(t, a.SetValue("A", codec.Int(0)))

	// A fresh reading of an unedited parameter follows into the editable copy.
	require.NoError(t, a.HandleValue("D", []byte{0x00, 0x20}))
	assert.Equal(t, []byte{0x00, 0x20}, a.Editable()["D"])

	// A fresh reading of an edited parameter keeps the edit.
	require.NoError(t, a.HandleValue("A", []byte{0x19}))
	assert.Equal(t, []byte{0x0C}, a.Editable()["A"])
	assert.Equal(t, []string{"A"}, a.Modified())
}

func TestDisconnectDiscardsProgress(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())
	populate(t, a, transport)
	require.NoError(t, a.SetValue("A", codec.Int(0)))
	session := a.SessionID()
	assert.NotEmpty(t, session)

	transport.EXPECT().Disconnect("1").Return(nil).Once()
	require.NoError(t, a.Disconnect())
	assert.Equal(t, StateDisconnected, a.State())
	assert.Empty(t, a.Baseline())
	assert.Empty(t, a.Editable())
	assert.False(t, a.IsModified())

	_, err := a.Value("A")
	assert.ErrorIs(t, err, ErrNotObserved)

	// Reconnect starts population from empty.
	connect(t, a, transport)
	assert.NotEqual(t, session, a.SessionID())
	require.NoError(t, a.HandleValue("A", []byte{1}))
	assert.Equal(t, StateConnected, a.State())

	// A transport-initiated disconnect needs no transport call.
	a.HandleDisconnected()
	assert.Equal(t, StateDisconnected, a.State())
	require.NoError(t, a.Disconnect())
}

func TestConnectFailures(t *testing.T) {
	a, transport := newTestAccessory(t, DefaultConfig())

	transport.EXPECT().Connect("1").Return(errors.New("unreachable")).Once()
	assert.Error(t, a.Connect())
	assert.Equal(t, StateDisconnected, a.State())

	connect(t, a, transport)
	assert.ErrorIs(t, a.Connect(), ErrInvalidState)
}

func TestStateChangeCallbackAndLog(t *testing.T) {
	rec := &recorder{}
	a, transport := newTestAccessory(t, Config{ProtocolLogger: rec})

	var transitions []State
	a.OnStateChange(func(_, newState State) {
		transitions = append(transitions, newState)
		// Callbacks may call back into the accessory.
		_ = a.State()
	})

	populate(t, a, transport)
	assert.Equal(t, []State{StateConnecting, StateConnected, StatePopulated}, transitions)

	var values, states int
	for _, e := range rec.events {
		switch {
		case e.Value != nil:
			values++
		case e.StateChange != nil:
			states++
		}
	}
	assert.Equal(t, 3, values)
	assert.Equal(t, 3, states)
}

func TestSchemaWithoutReadableParameters(t *testing.T) {
	dir := directory.New(directory.DefaultConfig())
	d := model.NewDevice("Button", "FFF0")
	g := model.NewDatumGroup("Main", 0)
	cmd := model.NewDatum(model.EncodingBool, "X", "Trigger")
	cmd.Access = model.AccessWriteOnly
	g.AddDatum(cmd)
	d.AddGroup(g)
	dev, err := dir.Register(d)
	require.NoError(t, err)

	transport := mocks.NewMockTransport(t)
	a := New("1", "btn", dev.ID, dir, transport, DefaultConfig())
	transport.EXPECT().Connect("1").Return(nil).Once()
	require.NoError(t, a.Connect())
	a.HandleConnected()
	assert.Equal(t, StatePopulated, a.State())
}

func TestEndToEndScenario(t *testing.T) {
	dir := directory.New(directory.DefaultConfig())
	d := model.NewDevice("Scenario", "185D")
	g := model.NewDatumGroup("Main", 0)
	datum := model.NewDatum(model.EncodingUint8, "A", "Value")
	datum.Offset = -12
	g.AddDatum(datum)
	d.AddGroup(g)
	_, err := dir.Register(d)
	require.NoError(t, err)

	transport := mocks.NewMockTransport(t)
	transport.EXPECT().SetDiscoveryFilter([]string{"185D"}).Return(nil).Once()

	reg := NewRegistry(dir, transport, DefaultConfig())
	require.NoError(t, reg.Start())

	reg.HandleDiscovered("1", "", []string{"185D"})
	a := reg.Accessory("1")
	require.NotNil(t, a)

	transport.EXPECT().Connect("1").Return(nil).Once()
	require.NoError(t, a.Connect())
	reg.HandleConnected("1")
	reg.HandleValueRead("1", "A", []byte{0x18})

	require.Equal(t, StatePopulated, a.State())
	v, err := a.Value("A")
	require.NoError(t, err)
	assert.True(t, v.Equal(codec.Int(12)))
	assert.Equal(t, []byte{0x18}, a.Editable()["A"])

	require.NoError(t, a.SetValue("A", codec.Int(5)))
	assert.Equal(t, []byte{0x11}, a.Editable()["A"])

	transport.EXPECT().Write("1", "A", []byte{0x11}).Return(nil).Once()
	writes, err := a.Push()
	require.NoError(t, err)
	assert.Equal(t, []Write{{WireID: "A", Data: []byte{0x11}}}, writes)
	assert.Equal(t, []byte{0x11}, a.Baseline()["A"])
	assert.False(t, a.IsModified())
}
