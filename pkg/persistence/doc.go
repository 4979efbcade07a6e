// Package persistence stores the configurator's state as JSON files.
//
// SchemaStore holds the device schema repository and satisfies
// directory.Store. PeerStore remembers peripherals that were added by
// address rather than discovered, so they survive restarts.
package persistence
