// Package observability provides an OpenTelemetry metrics extension for
// MetaTasks. The MetricsExtension implements lifecycle hooks to record
// counters for item creation, applied transitions, backward moves, and
// denied moves.
package observability
