// Package testhelpers holds in-memory doubles of the task store and cache
// used by package tests.
package testhelpers

import (
	infralogger "github.com/jonesrussell/task-registry/infrastructure/logger"
)

// NewTestLogger returns a logger that discards output.
func NewTestLogger() infralogger.Logger {
	return infralogger.NewNop()
}
