package gateway

import (
	"context"

	"authrelay/internal/downstream"
)

type propsContextKey struct{}

// WithProps returns a context carrying the capability context of the
// authenticated principal.
func WithProps(ctx context.Context, props *downstream.Props) context.Context {
	return context.WithValue(ctx, propsContextKey{}, props)
}

// PropsFromContext extracts the capability context, or nil when the request
// was not authenticated.
func PropsFromContext(ctx context.Context) *downstream.Props {
	props, _ := ctx.Value(propsContextKey{}).(*downstream.Props)
	return props
}
