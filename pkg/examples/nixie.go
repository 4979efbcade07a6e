package examples

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// Nixie clock service ids. A clock advertises all four.
const (
	NixieWifiService    = "185C"
	NixieTimeService    = "185D"
	NixieDisplayService = "185E"
	NixieGeneralService = "185F"
)

// Nixie clock characteristic ids.
const (
	NixieWifiMAC      = "2AF5"
	NixieWifiSSID     = "2AF6"
	NixieWifiPassword = "2AF7"
	NixieTimeZone     = "2AF9"
	NixieTimeDST      = "2AE2"
	NixieBrightness   = "2AFA"
	NixieFlash        = "2AE3"
	NixieMode         = "2AFB"
	NixieReset        = "2AE4"
)

// NixieDisplayMode is the clock's display mode.
type NixieDisplayMode uint8

const (
	NixieModeTime NixieDisplayMode = iota
	NixieModeDate
	NixieModeCalendar
)

// String returns the mode name.
func (m NixieDisplayMode) String() string {
	switch m {
	case NixieModeTime:
		return "TIME"
	case NixieModeDate:
		return "DATE"
	case NixieModeCalendar:
		return "CALENDAR"
	default:
		return fmt.Sprintf("MODE(%d)", uint8(m))
	}
}

// Time zone limits in whole hours.
const (
	NixieMinTimeZone = -12
	NixieMaxTimeZone = 14
)

// NixieMaxBrightness is the brightness ceiling in percent.
const NixieMaxBrightness = 100

// ErrInvalidSetting is returned by the simulator for out-of-range writes.
var ErrInvalidSetting = errors.New("invalid setting")

// NixieClockSchema returns the built-in schema of the Nixie clock.
//
// The time zone is stored on the wire as an unsigned byte shifted by 12
// hours, so the schema applies an offset of -12.
func NixieClockSchema() *model.Device {
	dev := model.NewDevice("Nixie Clock",
		NixieWifiService, NixieTimeService, NixieDisplayService, NixieGeneralService)

	wifi := model.NewDatumGroup("Wi-Fi", 0)
	mac := model.NewDatum(model.EncodingString, NixieWifiMAC, "MAC Address")
	mac.Access = model.AccessReadOnly
	mac.Description = "Hardware address of the Wi-Fi interface"
	ssid := model.NewDatum(model.EncodingString, NixieWifiSSID, "SSID")
	ssid.Position = 1
	ssid.Description = "Network the clock joins for time sync"
	pw := model.NewDatum(model.EncodingString, NixieWifiPassword, "Password")
	pw.Position = 2
	pw.Access = model.AccessWriteOnly
	pw.Description = "Network password, never read back"
	wifi.AddDatum(mac)
	wifi.AddDatum(ssid)
	wifi.AddDatum(pw)

	tm := model.NewDatumGroup("Time", 1)
	tz := model.NewDatum(model.EncodingUint8, NixieTimeZone, "Time Zone")
	tz.Offset = -12
	tz.Description = "UTC offset in hours"
	dst := model.NewDatum(model.EncodingBool, NixieTimeDST, "Daylight Saving")
	dst.Position = 1
	tm.AddDatum(tz)
	tm.AddDatum(dst)

	disp := model.NewDatumGroup("Display", 2)
	bright := model.NewDatum(model.EncodingUint8, NixieBrightness, "Brightness")
	bright.Description = "Tube brightness in percent"
	flash := model.NewDatum(model.EncodingBool, NixieFlash, "Flash Separator")
	flash.Position = 1
	disp.AddDatum(bright)
	disp.AddDatum(flash)

	gen := model.NewDatumGroup("General", 3)
	mode := model.NewDatum(model.EncodingUint8, NixieMode, "Mode")
	mode.Description = "0 = time, 1 = date, 2 = calendar"
	reset := model.NewDatum(model.EncodingBool, NixieReset, "Factory Reset")
	reset.Position = 1
	reset.Access = model.AccessWriteOnly
	gen.AddDatum(mode)
	gen.AddDatum(reset)

	dev.AddGroup(wifi)
	dev.AddGroup(tm)
	dev.AddGroup(disp)
	dev.AddGroup(gen)
	return dev
}

// NixieClockConfig contains the initial settings of a simulated clock.
type NixieClockConfig struct {
	MAC        string
	SSID       string
	Password   string
	TimeZone   int
	DST        bool
	Brightness int
	Flashing   bool
	Mode       NixieDisplayMode

	// Peripheral configures the hosting peripheral.
	Peripheral transport.PeripheralConfig
}

// DefaultNixieClockConfig returns the factory settings.
func DefaultNixieClockConfig() NixieClockConfig {
	return NixieClockConfig{
		MAC:        "00:00:00:00:00:00",
		Brightness: 50,
		Flashing:   true,
		Mode:       NixieModeTime,
	}
}

// NixieClock simulates a Nixie clock peripheral.
type NixieClock struct {
	mu sync.Mutex

	schema     *model.Device
	factory    NixieClockConfig
	peripheral *transport.Peripheral
	resets     int
	onWrite    func(wireID string, v codec.Value)
}

// NewNixieClock creates a simulated clock with the given settings.
func NewNixieClock(cfg NixieClockConfig) (*NixieClock, error) {
	c := &NixieClock{
		schema:  NixieClockSchema(),
		factory: cfg,
	}
	if err := c.validateConfig(cfg); err != nil {
		return nil, err
	}

	chars, err := Characteristics(c.schema, c.values(cfg))
	if err != nil {
		return nil, err
	}

	pcfg := cfg.Peripheral
	pcfg.Validate = c.validate
	pcfg.OnWrite = c.written
	c.peripheral = transport.NewPeripheral(chars, pcfg)
	return c, nil
}

// Schema returns a copy of the clock's schema.
func (c *NixieClock) Schema() *model.Device {
	return c.schema.Clone()
}

// Peripheral returns the hosting peripheral.
func (c *NixieClock) Peripheral() *transport.Peripheral {
	return c.peripheral
}

// Value decodes the current value of a characteristic.
func (c *NixieClock) Value(wireID string) (codec.Value, bool) {
	d, ok := c.schema.DatumByWireID(wireID)
	if !ok {
		return codec.Value{}, false
	}
	data, ok := c.peripheral.Value(wireID)
	if !ok {
		return codec.Value{}, false
	}
	return DecodeRaw(d, data), true
}

// Resets returns how many factory resets were performed.
func (c *NixieClock) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// OnWrite sets a callback for accepted writes.
func (c *NixieClock) OnWrite(fn func(wireID string, v codec.Value)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWrite = fn
}

// FactoryReset restores the initial settings and notifies connected
// centrals. The MAC address is kept.
func (c *NixieClock) FactoryReset() error {
	c.mu.Lock()
	c.resets++
	c.mu.Unlock()

	values := c.values(c.factory)
	for _, d := range c.schema.Parameters() {
		if !d.Access.CanRead() || d.WireID == NixieWifiMAC {
			continue
		}
		if err := c.peripheral.SetValue(d.WireID, EncodeRaw(d, values[d.WireID])); err != nil {
			return err
		}
	}
	return nil
}

func (c *NixieClock) values(cfg NixieClockConfig) map[string]codec.Value {
	return map[string]codec.Value{
		NixieWifiMAC:    codec.String(cfg.MAC),
		NixieWifiSSID:   codec.String(cfg.SSID),
		NixieTimeZone:   codec.Int(int64(cfg.TimeZone)),
		NixieTimeDST:    codec.Bool(cfg.DST),
		NixieBrightness: codec.Int(int64(cfg.Brightness)),
		NixieFlash:      codec.Bool(cfg.Flashing),
		NixieMode:       codec.Int(int64(cfg.Mode)),
	}
}

func (c *NixieClock) validateConfig(cfg NixieClockConfig) error {
	for wireID, v := range c.values(cfg) {
		d, _ := c.schema.DatumByWireID(wireID)
		if err := c.check(d, v); err != nil {
			return err
		}
	}
	return nil
}

// validate runs under the peripheral's table lock and must not call back
// into the peripheral.
func (c *NixieClock) validate(wireID string, data []byte) error {
	d, ok := c.schema.DatumByWireID(wireID)
	if !ok {
		return fmt.Errorf("%w: unknown characteristic %s", ErrInvalidSetting, wireID)
	}
	if err := codec.CheckWidth(d, data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}
	if len(data) == 0 && d.Encoding != model.EncodingString {
		return fmt.Errorf("%w: empty value for %s", ErrInvalidSetting, d.Name)
	}
	return c.check(d, DecodeRaw(d, data))
}

func (c *NixieClock) check(d *model.Datum, v codec.Value) error {
	n, _ := v.AsInt()
	switch d.WireID {
	case NixieTimeZone:
		if n < NixieMinTimeZone || n > NixieMaxTimeZone {
			return fmt.Errorf("%w: time zone %d outside [%d, %d]", ErrInvalidSetting, n, NixieMinTimeZone, NixieMaxTimeZone)
		}
	case NixieBrightness:
		if n < 0 || n > NixieMaxBrightness {
			return fmt.Errorf("%w: brightness %d outside [0, %d]", ErrInvalidSetting, n, NixieMaxBrightness)
		}
	case NixieMode:
		if n > int64(NixieModeCalendar) {
			return fmt.Errorf("%w: mode %d", ErrInvalidSetting, n)
		}
	}
	return nil
}

func (c *NixieClock) written(wireID string, data []byte) {
	d, _ := c.schema.DatumByWireID(wireID)
	v := DecodeRaw(d, data)

	c.mu.Lock()
	fn := c.onWrite
	c.mu.Unlock()
	if fn != nil {
		fn(wireID, v)
	}

	if wireID == NixieReset {
		if reset, _ := v.AsBool(); reset {
			_ = c.FactoryReset()
		}
	}
}
