package condition

import (
	"fmt"
	"time"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// Env is the evaluation environment for a predicate. It is plain data so
// the package stays free of entity imports; callers project the actor,
// work item, and current step into it.
type Env struct {
	ActorID    id.ActorID
	AssigneeID id.ActorID
	CreatorID  id.ActorID

	// StepName is the name of the work item's current step.
	StepName string

	// Priority is the work item's resolved priority value
	// (low, normal, high, critical). Empty when the field is disabled.
	Priority string

	// Data is the work item's data contract.
	Data map[string]any

	// Now is the evaluation time. The zero value means time.Now().
	Now time.Time
}

func (e Env) now() time.Time {
	if e.Now.IsZero() {
		return time.Now()
	}
	return e.Now
}

// Expr is one node of a predicate tree. Exactly one variant field must be
// set; anything else is malformed and evaluates to a denial.
type Expr struct {
	All  []*Expr        `json:"and,omitempty"`
	Any  []*Expr        `json:"or,omitempty"`
	Not  *Expr          `json:"not,omitempty"`
	Leaf string         `json:"leaf,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// And combines sub-expressions conjunctively.
func And(exprs ...*Expr) *Expr { return &Expr{All: exprs} }

// Or combines sub-expressions disjunctively.
func Or(exprs ...*Expr) *Expr { return &Expr{Any: exprs} }

// Not negates a sub-expression.
func Not(expr *Expr) *Expr { return &Expr{Not: expr} }

// NewLeaf references a named leaf predicate with optional arguments.
func NewLeaf(name string, args map[string]any) *Expr {
	return &Expr{Leaf: name, Args: args}
}

// variantCount reports how many variant fields are set on the node.
func (x *Expr) variantCount() int {
	n := 0
	if len(x.All) > 0 {
		n++
	}
	if len(x.Any) > 0 {
		n++
	}
	if x.Not != nil {
		n++
	}
	if x.Leaf != "" {
		n++
	}
	return n
}

// Validate walks the tree and reports the first structural problem.
// It does not check leaf names against a registry; Eval does that.
func (x *Expr) Validate() error {
	if x == nil {
		return fmt.Errorf("%w: nil node", metatasks.ErrMalformedCondition)
	}
	if x.variantCount() != 1 {
		return fmt.Errorf("%w: node must set exactly one of and/or/not/leaf", metatasks.ErrMalformedCondition)
	}

	for _, sub := range x.All {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	for _, sub := range x.Any {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	if x.Not != nil {
		return x.Not.Validate()
	}
	return nil
}

// Eval evaluates the tree against the environment using the registry's
// leaves. Any structural problem, unknown leaf, or leaf error yields
// (false, err); the caller must treat every non-nil error as a denial.
func (x *Expr) Eval(reg *Registry, env Env) (bool, error) {
	if err := x.Validate(); err != nil {
		return false, err
	}
	return x.eval(reg, env)
}

func (x *Expr) eval(reg *Registry, env Env) (bool, error) {
	switch {
	case len(x.All) > 0:
		for _, sub := range x.All {
			ok, err := sub.eval(reg, env)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case len(x.Any) > 0:
		for _, sub := range x.Any {
			ok, err := sub.eval(reg, env)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case x.Not != nil:
		ok, err := x.Not.eval(reg, env)
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		fn, ok := reg.lookup(x.Leaf)
		if !ok {
			return false, fmt.Errorf("%w: unknown leaf %q", metatasks.ErrMalformedCondition, x.Leaf)
		}
		return fn(env, x.Args)
	}
}
