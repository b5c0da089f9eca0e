// Package audit bridges MetaTasks lifecycle events to an audit trail
// backend. Each committed history entry — and each denied move — becomes
// a structured audit event recorded through an injected Recorder.
//
// The extension runs outside the move's transaction boundary: a recorder
// failure is logged and never unwinds a committed move.
package audit
