package nn

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/convnet/internal/optim"
)

// Samples pairs input vectors with their target vectors.
type Samples struct {
	Inputs [][]float64
	Labels [][]float64
}

// Len returns the number of samples.
func (s Samples) Len() int { return len(s.Inputs) }

func (s Samples) validate() error {
	if len(s.Inputs) != len(s.Labels) {
		return fmt.Errorf("%d inputs, %d labels: %w", len(s.Inputs), len(s.Labels), ErrShapeMismatch)
	}
	if len(s.Inputs) == 0 {
		return ErrNoData
	}
	return nil
}

// Mode is the cadence of weight updates.
type Mode int

// Training modes.
const (
	Online    Mode = iota // update after every sample
	MiniBatch             // update after every batch
	FullBatch             // update once per epoch
)

func (m Mode) String() string {
	switch m {
	case Online:
		return "online"
	case MiniBatch:
		return "mini-batch"
	case FullBatch:
		return "full-batch"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ResolveMode maps a requested batch size onto a mode and the effective
// batch size for n samples. A size of 1 is online, otherwise a size ≤ 0 or
// ≥ n is full batch and anything else is mini-batch.
func ResolveMode(batchSize, n int) (Mode, int) {
	switch {
	case batchSize == 1:
		return Online, 1
	case batchSize <= 0 || batchSize >= n:
		return FullBatch, n
	default:
		return MiniBatch, batchSize
	}
}

// EpochStats is reported after every epoch.
type EpochStats struct {
	Epoch         int     // 1-based
	TrainingError float64 // mean per-sample loss over the epoch
	LearningRate  float64 // η in effect during the epoch, 0 with TrainConfig.Optimizer
	Elapsed       time.Duration

	HasTest      bool
	TestError    float64
	TestAccuracy float64
}

// TrainConfig holds the hyperparameters of one Train call.
type TrainConfig struct {
	BatchSize    int // 1 online, ≤0 or ≥ samples full batch
	Epochs       int
	LearningRate float64 // η before batch scaling
	Momentum     float64 // μ
	L2           float64 // λ
	// DecayRatio multiplies η after every epoch. 0 keeps η constant.
	DecayRatio float64
	// Shuffle visits the training samples in a new random order every
	// epoch.
	Shuffle bool
	// Optimizer replaces SGD for this run when set. It is used as given:
	// LearningRate, Momentum, L2 and DecayRatio do not apply to it.
	Optimizer optim.Optimizer

	// OnEpoch is called after every epoch. Returning true stops training.
	OnEpoch func(EpochStats) bool
	// OnBatch is called after every weight update with the mean
	// per-sample loss of the batch. Returning true stops training.
	OnBatch func(batchError float64) bool
}

// Train fits the network to train for cfg.Epochs epochs.
//
// The effective learning rate is cfg.LearningRate·sqrt(batch size) unless
// cfg.Optimizer is set. Each
// epoch walks the samples in order (or shuffled), runs forward and
// backward passes and updates the weights at the end of every batch; the
// last batch of an epoch takes whatever samples remain.
//
// test may be empty. When present it is evaluated with Predict after every
// epoch and reported in EpochStats.
//
// Train returns nil when the epochs run out or a callback asks to stop,
// ctx.Err() when ctx is cancelled between batches, and ErrDiverged when a
// batch loss is NaN or infinite.
func (n *Network) Train(ctx context.Context, train, test Samples, cfg TrainConfig) error {
	if len(n.layers) == 0 {
		return ErrEmptyNetwork
	}
	if err := train.validate(); err != nil {
		return fmt.Errorf("training set: %w", err)
	}
	hasTest := test.Len() > 0
	if hasTest {
		if err := test.validate(); err != nil {
			return fmt.Errorf("test set: %w", err)
		}
	}

	size := train.Len()
	mode, batch := ResolveMode(cfg.BatchSize, size)
	n.opt = optim.SGD{Eta: cfg.LearningRate, Mu: cfg.Momentum, Lambda: cfg.L2}.Scaled(batch)
	n.custom = cfg.Optimizer

	run := uuid.NewString()
	log := n.logger.With("network", n.id, "run", run)
	if n.custom != nil {
		log.Info("training started",
			"mode", mode.String(), "batch", batch, "samples", size, "epochs", cfg.Epochs,
			"optimizer", fmt.Sprintf("%T", n.custom))
	} else {
		log.Info("training started",
			"mode", mode.String(), "batch", batch, "samples", size, "epochs", cfg.Epochs,
			"eta", n.opt.Eta, "momentum", n.opt.Mu, "l2", n.opt.Lambda)
	}

	order := make([]int, size)
	for i := range order {
		order[i] = i
	}

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		start := time.Now()
		if cfg.Shuffle {
			rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		stats := EpochStats{Epoch: epoch}
		if n.custom == nil {
			stats.LearningRate = n.opt.Eta
		}
		var total float64
		for lo := 0; lo < size; lo += batch {
			if err := ctx.Err(); err != nil {
				log.Info("training cancelled", "epoch", epoch, "err", err)
				return err
			}
			hi := min(lo+batch, size)
			e, err := n.trainBatch(train, order[lo:hi])
			if err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
			if math.IsNaN(e) || math.IsInf(e, 0) {
				log.Error("training diverged", "epoch", epoch, "batch_error", e)
				return fmt.Errorf("epoch %d: loss %v: %w", epoch, e, ErrDiverged)
			}
			total += e
			if cfg.OnBatch != nil && cfg.OnBatch(e/float64(hi-lo)) {
				log.Info("training stopped by batch callback", "epoch", epoch)
				return nil
			}
		}
		stats.TrainingError = total / float64(size)

		if hasTest {
			ev, err := n.Evaluate(test)
			if err != nil {
				return fmt.Errorf("epoch %d: test set: %w", epoch, err)
			}
			stats.HasTest = true
			stats.TestError = ev.Loss
			stats.TestAccuracy = ev.Accuracy
		}
		stats.Elapsed = time.Since(start)

		log.Info("epoch finished",
			"epoch", epoch, "train_error", stats.TrainingError,
			"test_error", stats.TestError, "test_accuracy", stats.TestAccuracy,
			"eta", stats.LearningRate, "elapsed", stats.Elapsed)

		if cfg.OnEpoch != nil && cfg.OnEpoch(stats) {
			log.Info("training stopped by epoch callback", "epoch", epoch)
			return nil
		}
		if cfg.DecayRatio > 0 {
			n.opt.Eta *= cfg.DecayRatio
		}
	}
	log.Info("training finished", "epochs", cfg.Epochs)
	return nil
}

// TrainBatch runs forward and backward passes over every sample, then one
// weight update, and returns the summed loss.
func (n *Network) TrainBatch(s Samples) (float64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	return n.trainBatch(s, idx)
}

func (n *Network) trainBatch(s Samples, idx []int) (float64, error) {
	var total float64
	for _, i := range idx {
		y, err := n.Forward(s.Inputs[i])
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		e, err := n.Error(y, s.Labels[i])
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		if _, err := n.Backward(n.lossGradient(y, s.Labels[i])); err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		total += e
	}
	n.WeightUpdate()
	return total, nil
}
