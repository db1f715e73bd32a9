package audit

import "context"

// Actor is a snapshot of the identity performing an action. A nil *Actor
// means the action is anonymous or system-initiated.
type Actor struct {
	ID    uint
	Name  string
	Email string
	Role  string
}

// RequestInfo carries the ambient HTTP request metadata attached to audit
// entries. All fields are optional.
type RequestInfo struct {
	IP        string
	UserAgent string
	URL       string
	Method    string
}

type actorKey struct{}
type requestKey struct{}

// WithActor returns a context carrying the current actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the current actor from the context, or nil when the
// request is anonymous.
func ActorFrom(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorKey{}).(*Actor)
	return actor
}

// WithRequestInfo returns a context carrying the current request metadata.
func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, requestKey{}, info)
}

// RequestInfoFrom extracts the request metadata from the context, or nil
// when the call did not originate from an HTTP request.
func RequestInfoFrom(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(requestKey{}).(*RequestInfo)
	return info
}
