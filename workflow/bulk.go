package workflow

import (
	"context"
	"errors"
	"fmt"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/id"
)

// PatternKind selects a bulk transition pattern.
type PatternKind string

const (
	// PatternSequential links each step to its immediate successor in
	// order.
	PatternSequential PatternKind = "sequential"
	// PatternHubSpoke links a designated hub step bidirectionally with
	// every other step.
	PatternHubSpoke PatternKind = "hub_spoke"
	// PatternParallel links one source step to each of several targets.
	PatternParallel PatternKind = "parallel"
	// PatternCustom links caller-supplied explicit pairs.
	PatternCustom PatternKind = "custom"
)

// StepPair is an explicit (from, to) step pair.
type StepPair struct {
	From id.StepID `json:"from"`
	To   id.StepID `json:"to"`
}

// Pattern describes a bulk transition request. Which fields matter depends
// on Kind.
type Pattern struct {
	Kind PatternKind

	// HubStepID designates the hub for PatternHubSpoke.
	HubStepID id.StepID

	// SourceStepID and TargetStepIDs feed PatternParallel.
	SourceStepID  id.StepID
	TargetStepIDs []id.StepID

	// Pairs feeds PatternCustom. The whole batch is validated before any
	// write; one invalid pair rejects everything.
	Pairs []StepPair
}

// edge is one planned transition.
type edge struct {
	from  *Step
	to    *Step
	label string
}

// BulkResult reports what a bulk application did. Pairs that already
// existed are skipped and listed, not treated as errors, so re-applying a
// pattern is idempotent.
type BulkResult struct {
	Created []*Transition
	Skipped []StepPair
}

// Generator expands bulk patterns into concrete transitions through a
// graph store.
type Generator struct {
	store Store
}

// NewGenerator creates a bulk transition generator backed by the given
// store.
func NewGenerator(store Store) *Generator {
	return &Generator{store: store}
}

// Apply expands the pattern against the workflow's current steps and
// creates the resulting transitions. Expansion is validated up front:
// custom batches are checked pair by pair before the first write, and the
// offending pair is named in the error. Creation then skips pairs that
// already exist.
func (g *Generator) Apply(ctx context.Context, workflowID id.WorkflowID, p Pattern) (*BulkResult, error) {
	steps, err := g.store.ListSteps(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow: list steps: %w", err)
	}

	edges, err := expand(steps, p)
	if err != nil {
		return nil, err
	}

	res := &BulkResult{}
	for _, e := range edges {
		t, err := NewTransition(e.from, e.to)
		if err != nil {
			return nil, err
		}
		t.Label = e.label

		err = g.store.CreateTransition(ctx, t)
		switch {
		case errors.Is(err, metatasks.ErrDuplicateTransition):
			res.Skipped = append(res.Skipped, StepPair{From: e.from.ID, To: e.to.ID})
		case err != nil:
			return nil, fmt.Errorf("workflow: create transition %s -> %s: %w", e.from.Name, e.to.Name, err)
		default:
			res.Created = append(res.Created, t)
		}
	}
	return res, nil
}

// expand turns a pattern plus an ordered step list into planned edges.
// It is pure: no store access, no writes.
func expand(steps []*Step, p Pattern) ([]edge, error) {
	byID := make(map[string]*Step, len(steps))
	for _, s := range steps {
		byID[s.ID.String()] = s
	}

	switch p.Kind {
	case PatternSequential:
		edges := make([]edge, 0, len(steps))
		for i := 0; i+1 < len(steps); i++ {
			edges = append(edges, edge{
				from:  steps[i],
				to:    steps[i+1],
				label: fmt.Sprintf("Next (%s)", steps[i+1].Name),
			})
		}
		return edges, nil

	case PatternHubSpoke:
		hub, ok := byID[p.HubStepID.String()]
		if !ok {
			return nil, fmt.Errorf("%w: hub step %s", metatasks.ErrStepNotFound, p.HubStepID)
		}
		var edges []edge
		for _, s := range steps {
			if s.ID.String() == hub.ID.String() {
				continue
			}
			edges = append(edges,
				edge{from: s, to: hub, label: "To " + hub.Name},
				edge{from: hub, to: s, label: "To " + s.Name},
			)
		}
		return edges, nil

	case PatternParallel:
		src, ok := byID[p.SourceStepID.String()]
		if !ok {
			return nil, fmt.Errorf("%w: source step %s", metatasks.ErrStepNotFound, p.SourceStepID)
		}
		if len(p.TargetStepIDs) == 0 {
			return nil, fmt.Errorf("%w: parallel pattern needs at least one target", metatasks.ErrInvalidStepPair)
		}
		var edges []edge
		for _, targetID := range p.TargetStepIDs {
			target, ok := byID[targetID.String()]
			if !ok {
				return nil, fmt.Errorf("%w: target step %s", metatasks.ErrStepNotFound, targetID)
			}
			if err := ValidateStepPair(src, target); err != nil {
				return nil, err
			}
			edges = append(edges, edge{from: src, to: target, label: "To " + target.Name})
		}
		return edges, nil

	case PatternCustom:
		if len(p.Pairs) == 0 {
			return nil, fmt.Errorf("%w: custom pattern needs at least one pair", metatasks.ErrInvalidStepPair)
		}
		// Validate the whole batch before planning a single edge.
		for _, pair := range p.Pairs {
			from, ok := byID[pair.From.String()]
			if !ok {
				return nil, fmt.Errorf("%w: pair (%s -> %s): from step", metatasks.ErrStepNotFound, pair.From, pair.To)
			}
			to, ok := byID[pair.To.String()]
			if !ok {
				return nil, fmt.Errorf("%w: pair (%s -> %s): to step", metatasks.ErrStepNotFound, pair.From, pair.To)
			}
			if err := ValidateStepPair(from, to); err != nil {
				return nil, fmt.Errorf("pair (%s -> %s): %w", pair.From, pair.To, err)
			}
		}
		var edges []edge
		seen := make(map[StepPair]bool, len(p.Pairs))
		for _, pair := range p.Pairs {
			if seen[pair] {
				continue
			}
			seen[pair] = true
			edges = append(edges, edge{from: byID[pair.From.String()], to: byID[pair.To.String()]})
		}
		return edges, nil

	default:
		return nil, fmt.Errorf("workflow: unknown bulk pattern %q", p.Kind)
	}
}
