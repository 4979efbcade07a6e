// Package model implements the Gizmo device schema model.
//
// # Schema Hierarchy
//
// A schema describes the configuration surface of one peripheral family:
//
//	Device > DatumGroup > Datum
//
// A Device is a named template. It lists the capability ids (advertised
// service identifiers) that recognize an instance of the family, and an
// ordered list of DatumGroups. Groups are purely organizational. Each Datum
// describes one parameter exposed by the peripheral as an opaque byte buffer.
//
//	Device (Nixie Clock) [185C 185D 185E 185F]
//	├── Wi-Fi
//	│   ├── MAC Address  String              Read        2AF5
//	│   ├── SSID         String              Read/Write  2AF6
//	│   └── Password     String              Write       2AF7
//	└── Time
//	    ├── Time Zone    Unsigned Integer 8  Read/Write  2AF9 (offset -12)
//	    └── DST          Boolean             Read/Write  2AE2
//
// # Wire Description
//
// A Datum carries everything the codec needs to translate between raw
// bytes and a logical value:
//   - Encoding: one of the eight fixed kinds (1/2/4 byte integers, Boolean, String)
//   - Endian: byte order of multi-byte integers
//   - Access: Read, Write or Read/Write
//   - Offset and Scalar: affine transform logical = raw*scalar + offset
//
// The WireID correlates a Datum with a transport-level endpoint (for BLE,
// the characteristic UUID). WireIDs are unique within a Device.
//
// # Interchange
//
// Devices serialize to JSON (and YAML) with the field names used by
// previously exported files: name, service-ids, data; each group with
// name, position, data; each datum with type, endian, access, uuid, name,
// position, description, offset, scalar.
package model
