package examples

import (
	"github.com/gizmo-config/gizmo-go/pkg/codec"
	"github.com/gizmo-config/gizmo-go/pkg/model"
	"github.com/gizmo-config/gizmo-go/pkg/transport"
)

// EnvSensorService is the environmental sensing service id.
const EnvSensorService = "181A"

// Environment sensor characteristic ids.
const (
	EnvTemperature    = "2A6E"
	EnvHumidity       = "2A6F"
	EnvUptime         = "2A99"
	EnvReportInterval = "2A9A"
	EnvAlarmThreshold = "2A9B"
	EnvCalibration    = "2A9C"
	EnvLabel          = "2A9D"
)

// EnvSensorSchema returns the schema of the environment sensor. Its
// multi-byte values are big endian and the report interval is sent in
// units of ten seconds.
func EnvSensorSchema() *model.Device {
	dev := model.NewDevice("Environment Sensor", EnvSensorService)

	readings := model.NewDatumGroup("Readings", 0)
	temp := model.NewDatum(model.EncodingInt16, EnvTemperature, "Temperature")
	temp.Endian = model.EndianBig
	temp.Access = model.AccessReadOnly
	temp.Description = "Centidegrees Celsius"
	hum := model.NewDatum(model.EncodingUint16, EnvHumidity, "Humidity")
	hum.Position = 1
	hum.Endian = model.EndianBig
	hum.Access = model.AccessReadOnly
	hum.Description = "Relative humidity in 0.01 %"
	up := model.NewDatum(model.EncodingUint32, EnvUptime, "Uptime")
	up.Position = 2
	up.Endian = model.EndianBig
	up.Access = model.AccessReadOnly
	up.Description = "Seconds since power on"
	readings.AddDatum(temp)
	readings.AddDatum(hum)
	readings.AddDatum(up)

	settings := model.NewDatumGroup("Settings", 1)
	interval := model.NewDatum(model.EncodingUint16, EnvReportInterval, "Report Interval")
	interval.Endian = model.EndianBig
	interval.Scalar = 10
	interval.Description = "Seconds between reports, multiple of 10"
	alarm := model.NewDatum(model.EncodingInt32, EnvAlarmThreshold, "Alarm Threshold")
	alarm.Position = 1
	alarm.Description = "Temperature alarm in centidegrees"
	cal := model.NewDatum(model.EncodingInt8, EnvCalibration, "Calibration")
	cal.Position = 2
	cal.Description = "Temperature trim in 0.1 degrees"
	label := model.NewDatum(model.EncodingString, EnvLabel, "Label")
	label.Position = 3
	settings.AddDatum(interval)
	settings.AddDatum(alarm)
	settings.AddDatum(cal)
	settings.AddDatum(label)

	dev.AddGroup(readings)
	dev.AddGroup(settings)
	return dev
}

// EnvSensorConfig contains the initial readings and settings.
type EnvSensorConfig struct {
	Temperature    int
	Humidity       int
	Uptime         int64
	ReportInterval int
	AlarmThreshold int
	Calibration    int
	Label          string

	// Peripheral configures the hosting peripheral.
	Peripheral transport.PeripheralConfig
}

// DefaultEnvSensorConfig returns a sensor at room temperature.
func DefaultEnvSensorConfig() EnvSensorConfig {
	return EnvSensorConfig{
		Temperature:    2150,
		Humidity:       4500,
		ReportInterval: 60,
		AlarmThreshold: 3000,
		Label:          "Living Room",
	}
}

// EnvSensor simulates an environment sensor peripheral.
type EnvSensor struct {
	schema     *model.Device
	peripheral *transport.Peripheral
}

// NewEnvSensor creates a simulated sensor.
func NewEnvSensor(cfg EnvSensorConfig) (*EnvSensor, error) {
	s := &EnvSensor{schema: EnvSensorSchema()}
	chars, err := Characteristics(s.schema, map[string]codec.Value{
		EnvTemperature:    codec.Int(int64(cfg.Temperature)),
		EnvHumidity:       codec.Int(int64(cfg.Humidity)),
		EnvUptime:         codec.Int(cfg.Uptime),
		EnvReportInterval: codec.Int(int64(cfg.ReportInterval)),
		EnvAlarmThreshold: codec.Int(int64(cfg.AlarmThreshold)),
		EnvCalibration:    codec.Int(int64(cfg.Calibration)),
		EnvLabel:          codec.String(cfg.Label),
	})
	if err != nil {
		return nil, err
	}
	s.peripheral = transport.NewPeripheral(chars, cfg.Peripheral)
	return s, nil
}

// Schema returns a copy of the sensor's schema.
func (s *EnvSensor) Schema() *model.Device {
	return s.schema.Clone()
}

// Peripheral returns the hosting peripheral.
func (s *EnvSensor) Peripheral() *transport.Peripheral {
	return s.peripheral
}

// Report publishes a new reading to connected centrals.
func (s *EnvSensor) Report(temperature, humidity int) error {
	temp, _ := s.schema.DatumByWireID(EnvTemperature)
	hum, _ := s.schema.DatumByWireID(EnvHumidity)
	if err := s.peripheral.SetValue(EnvTemperature, EncodeRaw(temp, codec.Int(int64(temperature)))); err != nil {
		return err
	}
	return s.peripheral.SetValue(EnvHumidity, EncodeRaw(hum, codec.Int(int64(humidity))))
}
