// Package log provides the structured logging facade used across the queue
// service.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Output goes through a Formatter
// (text or JSON) to one or more Outputs (console by default).
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	)
//	l = l.With(log.Component("queue"))
//	l.Info("server started", log.Str("addr", ":3000"))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config (level and
// format strings, typically sourced from flags or QD_LOG_* environment
// variables).
//
// # Interop
//
// RedirectStdLog routes the standard library's log package (used by Pebble)
// through a Logger so all process output shares one format.
package log
