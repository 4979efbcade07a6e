// Package examples provides built-in device schemas and simulated
// peripherals for them.
//
// The examples show:
//   - Schema construction (Device > DatumGroup > Datum)
//   - Hosting a characteristic table that matches a schema
//   - Validating and reacting to writes on the peripheral side
//
// Available examples:
//   - NixieClock: the Wi-Fi connected Nixie tube clock
//   - EnvSensor: a big-endian environment sensor with scaled values
//
// The simulators back cmd/gizmo-sim and the integration tests.
package examples
