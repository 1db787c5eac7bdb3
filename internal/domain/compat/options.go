// Package compat computes rating-pattern compatibility between two users.
package compat

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets the per-dimension weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.Validate() == nil {
			e.weights = w
		}
	}
}

// WithSaturationCount sets the shared-fountain count at which the
// count-based confidence reaches 1.
func WithSaturationCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.saturation = n
		}
	}
}

// WithBlend sets how correlation and similarity mix into the overall score.
// Both parts must be non-negative and sum to 1.
func WithBlend(correlationWeight, similarityWeight float64) Option {
	return func(e *Engine) {
		if correlationWeight < 0 || similarityWeight < 0 {
			return
		}
		if !nearlyEqual(correlationWeight+similarityWeight, 1) {
			return
		}
		e.correlationBlend = correlationWeight
		e.similarityBlend = similarityWeight
	}
}
