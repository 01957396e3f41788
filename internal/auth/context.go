// ABOUTME: Session context for requests that passed the Bearer secret check
// ABOUTME: Provides WithSession/FromContext for propagating session info via context

package auth

import (
	"context"
	"time"
)

// Session describes an authenticated admin API request.
type Session struct {
	RemoteAddr    string
	Authenticated time.Time
}

type sessionContextKey struct{}

// WithSession returns a new context with the Session attached.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext retrieves the Session from the context, returning nil if not present.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}
