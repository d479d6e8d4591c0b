// Package context holds the timeout defaults shared by startup and shutdown
// code.
package context

import (
	"context"
	"time"
)

const (
	// DefaultPingTimeout bounds a single dependency ping.
	DefaultPingTimeout = 5 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown of background work.
	DefaultShutdownTimeout = 10 * time.Second
)

// WithPingTimeout derives a context bounded by DefaultPingTimeout.
func WithPingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultPingTimeout)
}

// WithShutdownTimeout derives a context bounded by DefaultShutdownTimeout.
// The parent's cancellation is not inherited, so shutdown work still runs
// after the parent ends.
func WithShutdownTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), DefaultShutdownTimeout)
}
