package testing

import (
	"sync"

	"github.com/aristath/deepfolio/internal/environment"
	"gonum.org/v1/gonum/mat"
)

// MockPolicy returns fixed weights and records every call. When Err is set
// it is returned from the step FailAfter onward.
type MockPolicy struct {
	mu        sync.Mutex
	Weights   []float64
	Err       error
	FailAfter int
	calls     int
	steps     []int
}

// NewMockPolicy returns a MockPolicy acting with weights.
func NewMockPolicy(weights []float64) *MockPolicy {
	return &MockPolicy{Weights: weights}
}

// NewFailingPolicy returns a MockPolicy that acts uniformly over n assets
// until step after, then fails with err.
func NewFailingPolicy(n, after int, err error) *MockPolicy {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	return &MockPolicy{Weights: weights, Err: err, FailAfter: after}
}

// Name implements rollout.Policy.
func (m *MockPolicy) Name() string { return "mock" }

// Act implements rollout.Policy.
func (m *MockPolicy) Act(_ *mat.Dense, info environment.Info) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.steps = append(m.steps, info.Step)
	if m.Err != nil && info.Step >= m.FailAfter {
		return nil, m.Err
	}
	return append([]float64(nil), m.Weights...), nil
}

// Calls returns the number of Act invocations.
func (m *MockPolicy) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Steps returns the environment step seen on each call, in call order.
func (m *MockPolicy) Steps() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.steps...)
}
