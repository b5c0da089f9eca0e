package redis

// Redis key naming conventions for MetaTasks data.
// All keys are prefixed with "metatasks:" to avoid collisions.

const keyPrefix = "metatasks:"

// ── Workflow keys ──

// workflowKey returns the key for a workflow entity: metatasks:workflow:{id}
func workflowKey(id string) string { return keyPrefix + "workflow:" + id }

// stepKey returns the key for a step entity: metatasks:step:{id}
func stepKey(id string) string { return keyPrefix + "step:" + id }

// workflowStepsKey is the Set tracking a workflow's step IDs.
func workflowStepsKey(workflowID string) string {
	return keyPrefix + "workflow_steps:" + workflowID
}

// ── Transition keys ──

// transitionKey returns the key for a transition entity: metatasks:transition:{id}
func transitionKey(id string) string { return keyPrefix + "transition:" + id }

// stepTransitionsKey is the Set tracking a step's outgoing transition IDs.
func stepTransitionsKey(stepID string) string {
	return keyPrefix + "step_transitions:" + stepID
}

// transitionPairsKey is the Hash mapping "{from}:{to}" pairs to transition
// IDs, for duplicate detection.
func transitionPairsKey(workflowID string) string {
	return keyPrefix + "transition_pairs:" + workflowID
}

// ── Item keys ──

// itemKey returns the key for a work item document: metatasks:item:{id}
func itemKey(id string) string { return keyPrefix + "item:" + id }

// itemVersionKey holds the item's version as a plain string, the guard
// the move-commit script compares against.
func itemVersionKey(id string) string { return keyPrefix + "item_version:" + id }

// historyKey returns the List key holding an item's history entries
// oldest first: metatasks:history:{id}
func historyKey(id string) string { return keyPrefix + "history:" + id }
