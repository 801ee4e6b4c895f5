// Package rollout plays maze episodes with a pluggable action policy.
package rollout

import (
	"fmt"
	"math/rand"

	"github.com/brensch/maze3d/env"
)

// Policy selects the next action from an observation.
type Policy interface {
	SelectAction(obs []float32) (int, error)
}

// Predictor is the inference surface a greedy policy needs: q-values
// for one observation. Satisfied by inference.Client and inference.Pool.
type Predictor interface {
	Predict(obs []float32) ([]float32, error)
}

// GreedyPolicy picks the argmax action from model q-values. This is the
// inference-harness behavior: no exploration, ties go to the lower
// action index.
type GreedyPolicy struct {
	Client Predictor
}

func (p *GreedyPolicy) SelectAction(obs []float32) (int, error) {
	q, err := p.Client.Predict(obs)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if len(q) != env.NumActions {
		return 0, fmt.Errorf("model returned %d q-values, want %d", len(q), env.NumActions)
	}

	best := 0
	for i := 1; i < len(q); i++ {
		if q[i] > q[best] {
			best = i
		}
	}
	return best, nil
}

// RandomPolicy picks uniform random actions. Useful as a baseline and
// for exercising the environment without a model.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy seeds a policy-local RNG; random policies on
// different workers do not share state.
func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPolicy) SelectAction(_ []float32) (int, error) {
	return p.rng.Intn(env.NumActions), nil
}
