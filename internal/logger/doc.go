// Package logger wraps zap for the mailbox services:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - leveled helpers that take the logger from a context (InfoKV, Errorf, ...).
//
// Every event the engine handles carries its own scoped logger in the context,
// so sensor and topic fields appear on every line written for that event.
package logger
