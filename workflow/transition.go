package workflow

import (
	"fmt"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/condition"
	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// PermissionLevel is the access-control category attached to a transition.
type PermissionLevel string

const (
	// PermissionAny allows every actor.
	PermissionAny PermissionLevel = "any"
	// PermissionAssignee allows only the work item's current assignee.
	PermissionAssignee PermissionLevel = "assignee"
	// PermissionTeam allows members of the current step's assigned team.
	PermissionTeam PermissionLevel = "team"
	// PermissionAdmin allows organization admins and staff.
	PermissionAdmin PermissionLevel = "admin"
	// PermissionCreator allows only the work item's creator.
	PermissionCreator PermissionLevel = "creator"
	// PermissionCustom evaluates the transition's custom condition.
	PermissionCustom PermissionLevel = "custom"
)

// Color is the visual accent of a transition button.
type Color string

// Transition button colors.
const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
	ColorIndigo Color = "indigo"
	ColorGray   Color = "gray"
	ColorOrange Color = "orange"
)

// buttonClasses maps colors to UI button classes. Unknown colors fall back
// to blue.
var buttonClasses = map[Color]string{
	ColorBlue:   "bg-blue-600 hover:bg-blue-700 text-white",
	ColorGreen:  "bg-green-600 hover:bg-green-700 text-white",
	ColorRed:    "bg-red-600 hover:bg-red-700 text-white",
	ColorYellow: "bg-yellow-500 hover:bg-yellow-600 text-white",
	ColorPurple: "bg-purple-600 hover:bg-purple-700 text-white",
	ColorIndigo: "bg-indigo-600 hover:bg-indigo-700 text-white",
	ColorGray:   "bg-gray-600 hover:bg-gray-700 text-white",
	ColorOrange: "bg-orange-600 hover:bg-orange-700 text-white",
}

// Transition is a configured directed edge between two steps of the same
// workflow.
type Transition struct {
	metatasks.Entity

	ID         id.TransitionID `json:"id"`
	WorkflowID id.WorkflowID   `json:"workflow_id"`
	FromStepID id.StepID       `json:"from_step_id"`
	ToStepID   id.StepID       `json:"to_step_id"`

	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`

	// Visual attributes.
	Color Color  `json:"color"`
	Icon  string `json:"icon,omitempty"`

	// Behavior flags.
	RequiresConfirmation bool   `json:"requires_confirmation"`
	ConfirmationMessage  string `json:"confirmation_message,omitempty"`
	RequiresComment      bool   `json:"requires_comment"`
	CommentPrompt        string `json:"comment_prompt,omitempty"`
	AutoAssignToStepTeam bool   `json:"auto_assign_to_step_team"`

	PermissionLevel PermissionLevel `json:"permission_level"`

	// Condition is the structured predicate for PermissionCustom.
	// Nil means no condition (custom level then allows).
	Condition *condition.Expr `json:"condition,omitempty"`

	// Order positions the transition among its siblings for display.
	Order  int  `json:"order"`
	Active bool `json:"active"`
}

// NewTransition creates an active transition between two steps after
// validating the pair: both steps must belong to the same workflow and be
// distinct.
func NewTransition(from, to *Step) (*Transition, error) {
	if err := ValidateStepPair(from, to); err != nil {
		return nil, err
	}
	return &Transition{
		Entity:          metatasks.NewEntity(),
		ID:              id.NewTransitionID(),
		WorkflowID:      from.WorkflowID,
		FromStepID:      from.ID,
		ToStepID:        to.ID,
		Color:           ColorBlue,
		PermissionLevel: PermissionAny,
		Active:          true,
	}, nil
}

// ValidateStepPair reports whether two steps can be linked by a
// transition.
func ValidateStepPair(from, to *Step) error {
	if from == nil || to == nil {
		return fmt.Errorf("%w: missing step", metatasks.ErrInvalidStepPair)
	}
	if from.ID.String() == to.ID.String() {
		return fmt.Errorf("%w: %s links to itself", metatasks.ErrInvalidStepPair, from.ID)
	}
	if from.WorkflowID.String() != to.WorkflowID.String() {
		return fmt.Errorf("%w: %s and %s belong to different workflows",
			metatasks.ErrInvalidStepPair, from.ID, to.ID)
	}
	return nil
}

// DisplayLabel returns the transition's label, falling back to a default
// built from the destination step's name.
func (t *Transition) DisplayLabel(to *Step) string {
	if t.Label != "" {
		return t.Label
	}
	if to != nil {
		return "Move to " + to.Name
	}
	return "Move"
}

// ButtonClass returns the UI button classes for the transition's color.
func (t *Transition) ButtonClass() string {
	if c, ok := buttonClasses[t.Color]; ok {
		return c
	}
	return buttonClasses[ColorBlue]
}
