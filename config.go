package notify

// Config holds the static knobs of a Service. Everything operators can
// change at runtime lives in the settings service instead.
type Config struct {
	// Source is stamped into every envelope as the emitting system.
	Source string
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Source: "adminkit",
	}
}
