package nn

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/serialization"
)

// Network is an ordered stack of layers trained against one loss.
//
// Layers are appended with AddLayer; the output size of each layer must
// equal the input size of the next. Hyperparameters are read live by
// WeightUpdate, so callbacks may change them mid-training.
//
// Example:
//
//	net := nn.NewNetwork(nn.MultiCrossEntropy{})
//	net.AddLayer(fc).AddLayer(softmax)
//	err := net.Train(ctx, train, test, nn.TrainConfig{Epochs: 10, BatchSize: 32, LearningRate: 0.01})
type Network struct {
	id     string
	layers []Layer
	loss   Loss
	opt    optim.SGD
	custom optim.Optimizer
	logger *slog.Logger
	par    *parallel.Config
}

// Option configures a Network.
type Option func(*Network)

// WithLogger sets the logger used for construction warnings and training
// progress. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithParallelism applies cfg to every layer added to the network.
func WithParallelism(cfg parallel.Config) Option {
	return func(n *Network) { n.par = &cfg }
}

// NewNetwork creates an empty network. A nil loss is MSE.
func NewNetwork(loss Loss, opts ...Option) *Network {
	if loss == nil {
		loss = MSE{}
	}
	n := &Network{
		id:     uuid.NewString(),
		loss:   loss,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ID identifies the network in logs.
func (n *Network) ID() string { return n.id }

// Loss returns the output loss.
func (n *Network) Loss() Loss { return n.loss }

// Len returns the number of layers.
func (n *Network) Len() int { return len(n.layers) }

// Layers returns the layers in order. The slice is a copy; the layers are
// shared.
func (n *Network) Layers() []Layer { return append([]Layer(nil), n.layers...) }

// Layer returns layer i.
func (n *Network) Layer(i int) Layer { return n.layers[i] }

// Hyperparameters returns the current SGD settings.
func (n *Network) Hyperparameters() optim.SGD { return n.opt }

// SetHyperparameters replaces the SGD settings and drops any optimizer set
// with SetOptimizer.
func (n *Network) SetHyperparameters(opt optim.SGD) {
	n.opt = opt
	n.custom = nil
}

// SetOptimizer makes WeightUpdate step every layer with o instead of the
// SGD hyperparameters. A nil o restores SGD.
func (n *Network) SetOptimizer(o optim.Optimizer) { n.custom = o }

// Optimizer returns the update rule WeightUpdate applies.
func (n *Network) Optimizer() optim.Optimizer {
	if n.custom != nil {
		return n.custom
	}
	return n.opt
}

// SetLearningRate replaces η only.
func (n *Network) SetLearningRate(eta float64) { n.opt.Eta = eta }

// AddLayer appends l. When l accepts the previous layer's output size the
// previous outputs are wired into it; otherwise the mismatch is logged and
// reported later by NetworkCheck and Forward.
func (n *Network) AddLayer(l Layer) *Network {
	if n.par != nil {
		l.SetParallelism(*n.par)
	}
	if k := len(n.layers); k > 0 {
		prev := n.layers[k-1]
		if l.CheckSize(prev.OutputSize()) {
			_ = l.SetInputs(prev.Outputs())
		} else {
			n.logger.Warn("layer size mismatch",
				"network", n.id,
				"previous", prev.Name(), "output", prev.OutputSize(),
				"layer", l.Name(), "input", l.InputSize())
		}
	}
	n.layers = append(n.layers, l)
	return n
}

// AddLayers appends every layer in order.
func (n *Network) AddLayers(layers ...Layer) *Network {
	for _, l := range layers {
		n.AddLayer(l)
	}
	return n
}

// NetworkCheck reports whether every adjacent pair of layers agrees on
// size, logging each mismatch.
func (n *Network) NetworkCheck() bool {
	ok := true
	for i := 1; i < len(n.layers); i++ {
		prev, cur := n.layers[i-1], n.layers[i]
		if cur.CheckSize(prev.OutputSize()) {
			continue
		}
		ok = false
		n.logger.Error("layer size mismatch",
			"between", prev.Name()+" and "+cur.Name(), "index", fmt.Sprintf("%d and %d", i-1, i),
			"output", prev.OutputSize(), "input", cur.InputSize())
	}
	return ok
}

// Structure describes the network one layer per line:
//
//	1, ConvolutionalLayer, ReLU, Inputs:28x28x1, ...
//	...
//	n+1, OutputLayer, MSE
func (n *Network) Structure() string {
	var sb strings.Builder
	for i, l := range n.layers {
		fmt.Fprintf(&sb, "%d, %s, %s, %s\n", i+1, l.Type(), l.Variant(), l.Summary())
	}
	fmt.Fprintf(&sb, "%d, OutputLayer, %s\n", len(n.layers)+1, n.loss.Type())
	return sb.String()
}

// Forward runs the training-time forward pass and returns the last
// layer's outputs.
func (n *Network) Forward(inputs []float64) ([]float64, error) {
	return n.forward(inputs, Layer.Outputs)
}

// Predict runs the inference-time forward pass. Dropout and DropConnect
// use their deterministic scaled outputs.
func (n *Network) Predict(inputs []float64) ([]float64, error) {
	return n.forward(inputs, Layer.PredictOutputs)
}

func (n *Network) forward(inputs []float64, outputs func(Layer) []float64) ([]float64, error) {
	if len(n.layers) == 0 {
		return nil, ErrEmptyNetwork
	}
	x := inputs
	for i, l := range n.layers {
		if err := l.SetInputs(x); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		l.ForwardPropagation()
		x = outputs(l)
	}
	return x, nil
}

// Backward propagates dE/dy from the last layer to the first,
// accumulating every layer's parameter gradients. It returns dE/dx for
// the network input.
func (n *Network) Backward(grad []float64) ([]float64, error) {
	if len(n.layers) == 0 {
		return nil, ErrEmptyNetwork
	}
	var err error
	for i := len(n.layers) - 1; i >= 0; i-- {
		grad, err = n.layers[i].BackPropagation(grad)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return grad, nil
}

// WeightUpdate applies and clears the accumulated gradients of every layer.
func (n *Network) WeightUpdate() {
	opt := n.Optimizer()
	for _, l := range n.layers {
		l.WeightUpdate(opt)
	}
}

// Error returns Σ loss(y_i, t_i).
func (n *Network) Error(outputs, targets []float64) (float64, error) {
	if len(outputs) != len(targets) {
		return 0, sizeError("", "targets", len(outputs), len(targets))
	}
	var e float64
	for i, y := range outputs {
		e += n.loss.F(y, targets[i])
	}
	return e, nil
}

func (n *Network) lossGradient(outputs, targets []float64) []float64 {
	g := make([]float64, len(outputs))
	for i, y := range outputs {
		g[i] = n.loss.DF(y, targets[i])
	}
	return g
}

// Test predicts one sample and returns the outputs and their loss.
func (n *Network) Test(inputs, targets []float64) ([]float64, float64, error) {
	y, err := n.Predict(inputs)
	if err != nil {
		return nil, 0, err
	}
	e, err := n.Error(y, targets)
	if err != nil {
		return nil, 0, err
	}
	return y, e, nil
}

// Evaluation summarizes a pass over a labelled set.
type Evaluation struct {
	Samples  int
	Loss     float64 // mean per-sample loss
	Correct  int
	Accuracy float64 // Correct / Samples
	// Confusion[p][a] counts samples of class a predicted as class p.
	Confusion [][]int
}

// Evaluate predicts every sample, scoring each by the arg-max of the
// outputs against the arg-max of the label.
func (n *Network) Evaluate(s Samples) (Evaluation, error) {
	if err := s.validate(); err != nil {
		return Evaluation{}, err
	}
	var ev Evaluation
	for i, x := range s.Inputs {
		y, e, err := n.Test(x, s.Labels[i])
		if err != nil {
			return Evaluation{}, fmt.Errorf("sample %d: %w", i, err)
		}
		if ev.Confusion == nil {
			ev.Confusion = make([][]int, len(y))
			for j := range ev.Confusion {
				ev.Confusion[j] = make([]int, len(y))
			}
		}
		p, a := floats.MaxIdx(y), floats.MaxIdx(s.Labels[i])
		ev.Confusion[p][a]++
		if p == a {
			ev.Correct++
		}
		ev.Loss += e
		ev.Samples++
	}
	ev.Loss /= float64(ev.Samples)
	ev.Accuracy = float64(ev.Correct) / float64(ev.Samples)
	return ev, nil
}

// Dump renders one block per layer. Layers that do not support kind are
// skipped.
func (n *Network) Dump(kind serialization.Kind) (string, error) {
	var sb strings.Builder
	for i, l := range n.layers {
		s, err := l.Dump(kind)
		if errors.Is(err, serialization.ErrUnsupportedKind) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("layer %d: %w", i, err)
		}
		sb.WriteString(s)
		if !strings.HasSuffix(s, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// ExportParameters writes the kind block of every layer that has
// parameters to the writer returned by open. open receives the layer's
// position in the network, which stays unique when names repeat.
func (n *Network) ExportParameters(kind serialization.Kind, open func(i int, l Layer) (io.WriteCloser, error)) error {
	for i, l := range n.layers {
		if len(l.Weights()) == 0 && len(l.Biases()) == 0 {
			continue
		}
		s, err := l.Dump(kind)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		w, err := open(i, l)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		if _, err := io.WriteString(w, s); err != nil {
			_ = w.Close()
			return fmt.Errorf("layer %d: %w", i, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// ImportParameters loads a "#Weights"/"#Kernels" or "#Biases" block into
// layer i.
func (n *Network) ImportParameters(i int, r io.Reader) error {
	if i < 0 || i >= len(n.layers) {
		return fmt.Errorf("layer %d out of range [0, %d)", i, len(n.layers))
	}
	kind, values, err := serialization.Parse(r)
	if err != nil {
		return fmt.Errorf("layer %d: %w", i, err)
	}
	l := n.layers[i]
	if kind == serialization.Biases {
		err = l.SetBiases(values)
	} else {
		err = l.SetWeights(values)
	}
	if err != nil {
		return fmt.Errorf("layer %d: %w", i, err)
	}
	return nil
}

// Dispose drops every layer.
func (n *Network) Dispose() {
	n.layers = nil
}
