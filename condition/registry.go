package condition

import (
	"fmt"
	"reflect"
	"time"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
)

// LeafFunc evaluates one named leaf predicate against the environment.
// Returning an error denies the whole expression.
type LeafFunc func(env Env, args map[string]any) (bool, error)

// Registry holds the closed set of leaf predicates a deployment accepts.
// Conditions referencing anything outside the registry are denied.
type Registry struct {
	leaves map[string]LeafFunc
}

// Leaf names built into DefaultRegistry.
const (
	LeafMinPriority       = "min_priority"
	LeafBusinessHoursOnly = "business_hours_only"
	LeafActorIsAssignee   = "actor_is_assignee"
	LeafActorIsCreator    = "actor_is_creator"
	LeafCurrentStepIs     = "current_step_is"
	LeafDataEquals        = "data_equals"
)

// priorityRank orders work item priorities for min_priority comparisons.
var priorityRank = map[string]int{
	"low":      0,
	"normal":   1,
	"high":     2,
	"critical": 3,
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{leaves: make(map[string]LeafFunc)}
}

// DefaultRegistry returns a registry populated with the built-in leaves.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(LeafMinPriority, minPriority)
	r.Register(LeafBusinessHoursOnly, businessHoursOnly)
	r.Register(LeafActorIsAssignee, actorIsAssignee)
	r.Register(LeafActorIsCreator, actorIsCreator)
	r.Register(LeafCurrentStepIs, currentStepIs)
	r.Register(LeafDataEquals, dataEquals)
	return r
}

// Register adds a leaf predicate under the given name, replacing any
// previous registration.
func (r *Registry) Register(name string, fn LeafFunc) {
	r.leaves[name] = fn
}

func (r *Registry) lookup(name string) (LeafFunc, bool) {
	fn, ok := r.leaves[name]
	return fn, ok
}

// ──────────────────────────────────────────────────
// Built-in leaves
// ──────────────────────────────────────────────────

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", metatasks.ErrMalformedCondition, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", metatasks.ErrMalformedCondition, key)
	}
	return s, nil
}

// minPriority passes when the item's priority is at or above args["level"].
func minPriority(env Env, args map[string]any) (bool, error) {
	level, err := argString(args, "level")
	if err != nil {
		return false, err
	}
	want, ok := priorityRank[level]
	if !ok {
		return false, fmt.Errorf("%w: unknown priority level %q", metatasks.ErrMalformedCondition, level)
	}
	got, ok := priorityRank[env.Priority]
	if !ok {
		return false, nil
	}
	return got >= want, nil
}

// businessHoursOnly passes Monday through Friday, 09:00–17:00 local time.
func businessHoursOnly(env Env, _ map[string]any) (bool, error) {
	now := env.now()
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false, nil
	}
	return now.Hour() >= 9 && now.Hour() < 17, nil
}

func actorIsAssignee(env Env, _ map[string]any) (bool, error) {
	if env.AssigneeID.IsNil() {
		return false, nil
	}
	return env.ActorID.String() == env.AssigneeID.String(), nil
}

func actorIsCreator(env Env, _ map[string]any) (bool, error) {
	if env.CreatorID.IsNil() {
		return false, nil
	}
	return env.ActorID.String() == env.CreatorID.String(), nil
}

func currentStepIs(env Env, args map[string]any) (bool, error) {
	name, err := argString(args, "name")
	if err != nil {
		return false, err
	}
	return env.StepName == name, nil
}

// dataEquals passes when the item data contract holds args["value"] under
// args["key"].
func dataEquals(env Env, args map[string]any) (bool, error) {
	key, err := argString(args, "key")
	if err != nil {
		return false, err
	}
	want, ok := args["value"]
	if !ok {
		return false, fmt.Errorf("%w: missing argument %q", metatasks.ErrMalformedCondition, "value")
	}
	got, ok := env.Data[key]
	if !ok {
		return false, nil
	}
	return reflect.DeepEqual(got, want), nil
}
