package audit

// Audit event actions. Each constant corresponds to one ext lifecycle
// hook and becomes the Action field of the audit event.
const (
	ActionItemCreated   = "item.created"
	ActionItemMoved     = "item.moved"
	ActionItemMovedBack = "item.moved_back"
	ActionMoveDenied    = "item.move_denied"
)

// Audit event categories group related actions.
const (
	CategoryItem = "metatasks.item"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceItem = "work_item"
)

// Severity constants.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionItemCreated,
		ActionItemMoved,
		ActionItemMovedBack,
		ActionMoveDenied,
	}
}
