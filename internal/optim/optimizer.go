// Package optim implements the parameter update rules used by the layers.
//
// Layers own their parameters, gradient accumulators and previous-step
// deltas as flat []float64 buffers. An Optimizer mutates those buffers in
// place once per optimizer step and clears the accumulators.
package optim

// Optimizer updates layer-owned parameter buffers.
//
// Implementations must:
//   - Step: update a weight buffer from its accumulated gradient, keep the
//     applied delta in prev for the next momentum term, and zero grad.
//   - StepBias: update a bias buffer from its accumulated gradient and zero grad.
type Optimizer interface {
	Step(weights, grad, prev []float64)
	StepBias(biases, grad []float64)
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}

func checkLen(op string, a, b []float64) {
	if len(a) != len(b) {
		panic(op + ": buffer length mismatch")
	}
}
