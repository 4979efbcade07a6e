// Package log captures protocol events of a configuration session.
//
// It is separate from operational logging (slog). A protocol log is a
// machine-readable trace of everything that crossed the link and every
// state change of an accessory: frames, decoded messages, parameter
// values, writes and errors.
//
// # Basic Usage
//
// Components accept a Logger in their config:
//
//	// Console output via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture for later inspection with gizmo-log
//	fl, _ := log.NewFileLogger("session.glog")
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Layers
//
//   - Transport: raw frames (FrameEvent) and decoded link messages (MessageEvent)
//   - Codec: parameter values as received (ValueEvent) and decode errors
//   - Session: accessory state changes (StateChangeEvent) and writes (WriteEvent)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .glog extension.
package log
