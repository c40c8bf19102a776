// Package logging provides structured logging for authrelay, built on the
// standard library's log/slog.
//
// All log entries carry a subsystem identifier so that log output from the
// relay flow, the downstream engine, and the tool gateway can be filtered
// independently:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Relay", "Consent shortcut for client %s", clientID)
//	logging.Error("Gateway", err, "Gmail send failed")
//
// Level filtering happens at the handler, so filtered-out messages cost no
// allocation. The package is safe for concurrent use.
package logging
