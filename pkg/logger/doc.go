// Package logger provides a structured logging interface for the exporter.
//
// It wraps zerolog behind a small interface so that components can be handed
// a no-op or capturing logger in tests:
//   - Levels: debug, info, warn, error (or disabled)
//   - Structured fields via WithField/WithFields and the *WithFields methods
//   - Colored console output on stderr, optional append-only log file
//   - A global logger for the command layer
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.WithField("document_id", id).Info("Processing document")
//	logger.WithError(err).Error("Failed to export page")
//
// Components take a Logger in their constructor and fall back to
// GetLogger() when given nil.
package logger
