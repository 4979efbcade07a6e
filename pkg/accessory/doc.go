// Package accessory tracks the live configuration session of recognized
// peripherals.
//
// An Accessory moves through
//
//	DISCONNECTED -> CONNECTING -> CONNECTED -> POPULATED
//
// and back to DISCONNECTED from any state. While connected it stores the
// raw bytes reported for each parameter as the baseline. Once every
// readable parameter of its schema has been observed it becomes
// POPULATED and exposes an editable copy. Edits are diffed byte-wise
// against the baseline, and Push emits one write per changed writable
// parameter.
//
// Values are decoded lazily through pkg/codec when read; ingestion only
// checks the buffer width.
//
// The Registry owns accessories keyed by transport instance id, implements
// EventSink for the transport's callbacks, and classifies discovered
// peripherals through pkg/directory.
package accessory
