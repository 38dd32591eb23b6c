package rules

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTargets replaces the target id derivation.
func WithTargets(t Targets) Option {
	return func(e *Engine) {
		if t != nil {
			e.targets = t
		}
	}
}
