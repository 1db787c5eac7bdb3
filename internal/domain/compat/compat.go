package compat

import (
	"fmt"
	"math"
	"slices"

	"github.com/okian/hydrater/internal/domain/model"
)

// Default scoring configuration constants.
const (
	DefaultSaturationCount  = 10
	DefaultCorrelationBlend = 0.6
	DefaultSimilarityBlend  = 0.4

	// maxWeightedDiff is the largest weighted per-fountain difference:
	// every dimension spans 1..5 and the weights sum to 1.
	maxWeightedDiff = model.MaxRatingValue - model.MinRatingValue
)

// Weights gives each rating dimension its share of the similarity score.
type Weights struct {
	Coldness   float64 `koanf:"coldness"`
	Pressure   float64 `koanf:"pressure"`
	Experience float64 `koanf:"experience"`
	YumFactor  float64 `koanf:"yum_factor"`
}

// DefaultWeights returns coldness 0.30, pressure 0.25, experience 0.25, yum_factor 0.20.
func DefaultWeights() Weights {
	return Weights{Coldness: 0.30, Pressure: 0.25, Experience: 0.25, YumFactor: 0.20}
}

func (w Weights) vector() [4]float64 {
	return [4]float64{w.Coldness, w.Pressure, w.Experience, w.YumFactor}
}

// Validate rejects negative weights and weights that do not sum to 1.
func (w Weights) Validate() error {
	var sum float64
	for i, v := range w.vector() {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidWeights, model.Dimensions[i])
		}
		sum += v
	}
	if !nearlyEqual(sum, 1) {
		return fmt.Errorf("%w: sum is %.4f, want 1", ErrInvalidWeights, sum)
	}
	return nil
}

// Scorer computes the compatibility of two rating sets.
type Scorer interface {
	Compute(a, b model.RatingSet) model.Score
}

// Engine implements Scorer. It holds only configuration and is safe for
// concurrent use.
type Engine struct {
	weights          Weights
	saturation       int
	correlationBlend float64
	similarityBlend  float64
}

// New creates an Engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		weights:          DefaultWeights(),
		saturation:       DefaultSaturationCount,
		correlationBlend: DefaultCorrelationBlend,
		similarityBlend:  DefaultSimilarityBlend,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Compute scores a and b with the default configuration.
func Compute(a, b model.RatingSet) model.Score {
	return defaultEngine.Compute(a, b)
}

// Compute returns the compatibility of a and b. Sets with no valid shared
// fountain yield the zero Score.
func (e *Engine) Compute(a, b model.RatingSet) model.Score {
	pairs := sharedPairs(a, b)
	if len(pairs) == 0 {
		return model.Score{}
	}

	corr := e.correlation(pairs)
	sim := e.similarity(pairs)

	return model.Score{
		Correlation:        corr,
		WeightedSimilarity: sim,
		Overall:            clamp(math.Abs(corr)*e.correlationBlend+sim*e.similarityBlend, 0, 1),
		SharedFountains:    len(pairs),
		Confidence:         e.confidence(len(pairs), corr),
	}
}

type pair struct {
	a, b model.Rating
}

// sharedPairs intersects a and b on fountain ID, skipping unrated entries.
// Pairs come back sorted by fountain ID so float sums are order-stable.
func sharedPairs(a, b model.RatingSet) []pair {
	small, large, swapped := a, b, false
	if len(b) < len(a) {
		small, large, swapped = b, a, true
	}

	ids := make([]string, 0, len(small))
	for id, ra := range small {
		rb, ok := large[id]
		if !ok || ra.Validate() != nil || rb.Validate() != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	pairs := make([]pair, len(ids))
	for i, id := range ids {
		if swapped {
			pairs[i] = pair{a: large[id], b: small[id]}
		} else {
			pairs[i] = pair{a: small[id], b: large[id]}
		}
	}
	return pairs
}

// correlation collapses each fountain to the user's mean rating and
// correlates the two mean sequences.
func (e *Engine) correlation(pairs []pair) float64 {
	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	for i, p := range pairs {
		xs[i] = RatingMean(p.a)
		ys[i] = RatingMean(p.b)
	}
	return Pearson(xs, ys)
}

func (e *Engine) similarity(pairs []pair) float64 {
	w := e.weights.vector()
	var total float64
	for _, p := range pairs {
		va, vb := p.a.Vector(), p.b.Vector()
		for d := range w {
			total += w[d] * math.Abs(va[d]-vb[d])
		}
	}
	avg := total / float64(len(pairs))
	return clamp(1-avg/maxWeightedDiff, 0, 1)
}

func (e *Engine) confidence(shared int, corr float64) float64 {
	count := math.Min(float64(shared)/float64(e.saturation), 1)
	return clamp(count*(0.5+0.5*math.Abs(corr)), 0, 1)
}
