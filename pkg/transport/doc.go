// Package transport implements the LAN link between the configurator
// (Central) and a peripheral.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Messages
//
// A peripheral hosts a table of characteristics keyed by wire id. After
// connecting, the central sends LIST and receives the readable wire ids,
// then sends one READ per id. The peripheral answers each READ with a
// VALUE and may send unsolicited VALUE notifications at any time. A WRITE
// is answered by a WRITE_ACK carrying a status.
//
//	central                         peripheral
//	   │ ──────── LIST ───────────────▶ │
//	   │ ◀─────── LIST_RESPONSE ─────── │
//	   │ ──────── READ(id) ───────────▶ │
//	   │ ◀─────── VALUE(id, data) ───── │
//	   │ ──────── WRITE(id, data) ────▶ │
//	   │ ◀─────── WRITE_ACK(id, st) ─── │
//
// Central implements accessory.Transport and turns link activity into
// accessory.EventSink calls, so an accessory.Registry can drive sessions
// over the network.
package transport
