package domain

import "context"

// Caller is the verified identity of the request issuer.
type Caller struct {
	ID    string
	Roles []string
}

// HasAny reports whether the caller holds at least one of roles.
func (c *Caller) HasAny(roles ...string) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom extracts the caller attached by the access guard.
func CallerFrom(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(*Caller)
	return c, ok && c != nil
}
