package state

import "context"

// Identity exposes the current session owner without allowing mutation
type Identity interface {
	IsAuthenticated() bool
	CurrentUser() (string, bool)
}

// Recorder appends audit entries. Implementations must never fail the
// caller; problems are logged instead.
type Recorder interface {
	Record(ctx context.Context, typ ActivityType, message, user string)
}

// RecorderFunc adapts a function to Recorder
type RecorderFunc func(ctx context.Context, typ ActivityType, message, user string)

// Record calls f
func (f RecorderFunc) Record(ctx context.Context, typ ActivityType, message, user string) {
	f(ctx, typ, message, user)
}
