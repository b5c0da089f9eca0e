// Package metatasks provides a configurable workflow state machine for
// tracked work items. It offers step/transition graphs, permission-gated
// forward and backward moves, append-only audit history, and per-workflow
// field configuration.
//
// MetaTasks is designed as a library, not a service. Import it, configure a
// store, and drive work items through admin-defined workflow graphs.
//
// # Quick Start
//
//	eng, err := metatasks.New(
//	    metatasks.WithStore(pgStore),
//	    metatasks.WithLogger(logger),
//	)
//
// # Architecture
//
// MetaTasks follows a composable store pattern where each subsystem
// (workflow, item) defines its own store interface. A single backend
// implements all of them. The executor package sits above the subsystem
// packages and applies moves: it consults the permission evaluator and the
// booking gate, mutates the work item, and commits exactly one immutable
// history entry per move.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package metatasks
