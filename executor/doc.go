// Package executor moves work items through their workflow graphs. It is
// the only writer of work item state: every move validates the graph,
// permissions, and behavior flags, then commits the mutated item and its
// history entry atomically under an optimistic version check.
//
// Build an Executor from an Engine whose store implements the workflow
// and item store interfaces:
//
//	eng, err := metatasks.New(metatasks.WithStore(memory.New()))
//	exec, err := executor.Build(eng,
//	    executor.WithRoles(roles),
//	    executor.WithExtensions(audit.New(recorder)),
//	)
//
// Forward moves follow configured transitions; backward moves are
// constrained to steps the item's history has visited and are reserved
// for admins, staff, and the item's creator. Both paths run the same
// commit protocol: one silent re-validation on a version conflict, then
// a concurrent-modification failure.
package executor
