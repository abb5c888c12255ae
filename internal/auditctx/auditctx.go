// Package auditctx carries the authenticated actor of a request down to the audit writer.
package auditctx

import "context"

// Actor identifies who issued a request.
type Actor struct {
	UserID    string
	Email     string
	IPAddress string
	UserAgent string
}

// Anonymous reports whether no authenticated user is attached.
func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

type actorKey struct{}

// WithActor returns a context carrying actor. A nil ctx is treated as context.Background.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
