// Package discovery implements DNS-SD discovery of gizmo peripherals.
//
// Peripherals advertise a single service type:
//
// # Peripheral Discovery (_gizmo._tcp)
//
// Instance name format: Gizmo-<instance-id>, where the instance id is
// derived from the peripheral's hardware address (first 64 bits of
// BLAKE2b-256). TXT records:
//   - id: instance id (16 hex chars)
//   - caps: advertised capability ids, comma-separated, in advertised order
//   - name: display name (optional)
//
// A central scopes discovery to a set of capability ids: a peripheral is
// reported when it advertises at least one of them. Whether the full
// advertised set matches a known schema is decided by the directory, not
// here.
//
// MDNSBrowser satisfies transport.PeerSource, so a transport.Central can
// browse with it directly.
package discovery
