// Package scope carries the acting identity through a context.
//
// The executor stamps the context with the actor and organisation before
// emitting extension hooks, so extensions (audit trails, event streams)
// can attribute events without threading actor values through every hook
// signature.
package scope

import (
	"context"

	"github.com/Liam-Lillieroth/MetaTasks/id"
)

type contextKey struct{}

// Scope identifies who is acting and on whose behalf.
type Scope struct {
	ActorID id.ActorID
	OrgID   id.OrgID
}

// With returns a context carrying the given acting identity. Any
// previous scope on the context is replaced.
func With(ctx context.Context, actorID id.ActorID, orgID id.OrgID) context.Context {
	return context.WithValue(ctx, contextKey{}, Scope{ActorID: actorID, OrgID: orgID})
}

// From extracts the acting identity from the context. The second return
// is false when no scope was stamped.
func From(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(contextKey{}).(Scope)
	return s, ok
}

// ActorID returns the acting actor from the context, or the nil ID when
// no scope was stamped.
func ActorID(ctx context.Context) id.ActorID {
	s, _ := From(ctx)
	return s.ActorID
}

// OrgID returns the acting organisation from the context, or the nil ID
// when no scope was stamped.
func OrgID(ctx context.Context) id.OrgID {
	s, _ := From(ctx)
	return s.OrgID
}
