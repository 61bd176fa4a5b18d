package model

import "sync"

// Global ladder instance and initialization guard.
var (
	globalLadder *Ladder
	globalOnce   sync.Once
)

// Global returns the singleton ladder instance.
// Creates the default ladder on first call if not already initialized.
func Global() *Ladder {
	globalOnce.Do(func() {
		globalLadder = NewDefaultLadder()
	})
	return globalLadder
}

// InitGlobal initializes the global ladder with a custom instance.
// Must be called before any call to Global() to take effect.
// Safe for concurrent use but only the first call has any effect.
func InitGlobal(l *Ladder) {
	globalOnce.Do(func() {
		globalLadder = l
	})
}

// ResetGlobal resets the global ladder for testing purposes.
// This is NOT thread-safe and should only be used in tests.
func ResetGlobal() {
	globalOnce = sync.Once{}
	globalLadder = nil
}
