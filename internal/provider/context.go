package provider

import "context"

type dispatchIDKey struct{}

// WithDispatchID tags ctx with the dispatch it belongs to.
func WithDispatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, dispatchIDKey{}, id)
}

// DispatchID returns the dispatch tag of ctx, or "".
func DispatchID(ctx context.Context) string {
	id, _ := ctx.Value(dispatchIDKey{}).(string)
	return id
}
