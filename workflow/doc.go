// Package workflow defines the admin-configured side of the state machine:
// workflows, steps, transitions, the graph store interface, and the bulk
// transition generator.
//
// A workflow is a directed graph whose nodes are steps and whose edges are
// transitions. Structural invariants — both endpoints in the same
// workflow, distinct endpoints, at most one transition per (from, to)
// pair — are enforced at creation time and hold for every stored graph.
//
// The bulk generator expands high-level patterns (sequential, hub-and-
// spoke, parallel branches, custom pairs) into concrete transitions.
// Re-applying a pattern is idempotent: existing pairs are skipped and
// reported, never duplicated.
package workflow
