package executor

import (
	"fmt"
	"log/slog"
	"time"

	metatasks "github.com/Liam-Lillieroth/MetaTasks"
	"github.com/Liam-Lillieroth/MetaTasks/actor"
	"github.com/Liam-Lillieroth/MetaTasks/condition"
	"github.com/Liam-Lillieroth/MetaTasks/ext"
	"github.com/Liam-Lillieroth/MetaTasks/item"
	"github.com/Liam-Lillieroth/MetaTasks/permission"
	"github.com/Liam-Lillieroth/MetaTasks/workflow"
)

// Executor validates and commits work item moves.
type Executor struct {
	cfg    metatasks.Config
	logger *slog.Logger

	workflows workflow.Store
	items     item.Store

	perms    *permission.Evaluator
	roles    actor.RoleDirectory
	registry *condition.Registry
	gate     BookingGate
	assign   AssignmentPolicy
	exts     *ext.Registry
	pending  []ext.Extension

	now func() time.Time
}

// Option configures an Executor during Build.
type Option func(*Executor)

// WithRoles sets the role directory used for team and admin permission
// checks and for backward-move authorization. Without it those checks
// fail closed.
func WithRoles(r actor.RoleDirectory) Option {
	return func(e *Executor) { e.roles = r }
}

// WithBookingGate sets the availability collaborator for booking-gated
// steps.
func WithBookingGate(g BookingGate) Option {
	return func(e *Executor) { e.gate = g }
}

// WithAssignmentPolicy sets the auto-assignment collaborator.
func WithAssignmentPolicy(p AssignmentPolicy) Option {
	return func(e *Executor) { e.assign = p }
}

// WithConditionRegistry overrides the condition leaf registry used for
// custom-level permission checks.
func WithConditionRegistry(r *condition.Registry) Option {
	return func(e *Executor) { e.registry = r }
}

// WithExtensions registers lifecycle extensions.
func WithExtensions(exts ...ext.Extension) Option {
	return func(e *Executor) {
		for _, x := range exts {
			e.pending = append(e.pending, x)
		}
	}
}

// Build wires an Executor from the engine's store and the given options.
// The engine's store must implement both workflow.Store and item.Store.
func Build(eng *metatasks.Engine, opts ...Option) (*Executor, error) {
	s := eng.Store()
	if s == nil {
		return nil, metatasks.ErrNoStore
	}
	ws, ok := s.(workflow.Store)
	if !ok {
		return nil, fmt.Errorf("executor: store %T does not implement workflow.Store", s)
	}
	is, ok := s.(item.Store)
	if !ok {
		return nil, fmt.Errorf("executor: store %T does not implement item.Store", s)
	}

	e := &Executor{
		cfg:       eng.Config(),
		logger:    eng.Logger(),
		workflows: ws,
		items:     is,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.perms = permission.NewEvaluator(e.roles, e.registry, e.logger)
	e.exts = ext.NewRegistry(e.logger)
	for _, x := range e.pending {
		e.exts.Register(x)
	}
	e.pending = nil
	return e, nil
}

// Extensions returns the executor's extension registry, for registering
// extensions after Build.
func (e *Executor) Extensions() *ext.Registry { return e.exts }
