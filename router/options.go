package router

type options struct {
	routeMatch func(pattern, msgType string) bool
}

type Option func(o *options)

// WithRouteMatcher replaces exact type matching. It is consulted only when no
// pattern equals the message type.
func WithRouteMatcher(matcher func(pattern, msgType string) bool) Option {
	return func(o *options) {
		if matcher != nil {
			o.routeMatch = matcher
		}
	}
}
