package config

var debugManipulators bool

// DebugManipulators enables verbose tracing of bind, apply and undo.
func DebugManipulators() bool {
	return debugManipulators
}

func SetDebugManipulators(v bool) {
	debugManipulators = v
}

var defaultSpace = "transform"

// DefaultSpace is the coordinate space used when a gesture does not name one.
func DefaultSpace() string {
	return defaultSpace
}

func SetDefaultSpace(name string) {
	defaultSpace = name
}
