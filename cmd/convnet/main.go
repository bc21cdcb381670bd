// Package main provides the convnet CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/born-ml/convnet/internal/config"
	"github.com/born-ml/convnet/internal/dataset"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/serialization"
)

const version = "v0.1.0-dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		logger.Error("convnet failed", "err", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "convnet %s\n", version)
		return nil
	case "structure":
		return structure(args[1:], stdout, logger)
	case "train":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return train(ctx, args[1:], stdout, logger)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stdout)
		return errors.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "convnet %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                                   Show version")
	fmt.Fprintln(w, "  structure -config net.yaml                Print the layer structure and check sizes")
	fmt.Fprintln(w, "  train -config net.yaml -data train.txt    Train and export parameters")
	fmt.Fprintln(w, "        [-test test.txt] [-out dir] [-normalize stats.txt]")
}

func structure(args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("structure", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Network configuration (YAML)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath == "" {
		return errors.New("structure: -config is required")
	}

	net, _, err := buildNetwork(*cfgPath, logger)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, net.Structure())
	if !net.NetworkCheck() {
		return errors.New("structure: layer sizes do not chain")
	}
	fmt.Fprintln(stdout, "network check passed")
	return nil
}

func train(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Network configuration (YAML)")
	dataPath := fs.String("data", "", "Training list")
	testPath := fs.String("test", "", "Test list (optional)")
	outDir := fs.String("out", ".", "Directory for exported weights and biases")
	stats := fs.String("normalize", "", "Mean/std file applied to inputs (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath == "" || *dataPath == "" {
		return errors.New("train: -config and -data are required")
	}

	net, cfg, err := buildNetwork(*cfgPath, logger)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, net.Structure())
	if !net.NetworkCheck() {
		return errors.New("train: layer sizes do not chain")
	}

	opts := dataset.Options{InputStats: *stats, Parallelism: cfg.ParallelismConfig()}
	trainSet, err := dataset.Load(*dataPath, opts)
	if err != nil {
		return err
	}
	var testSamples nn.Samples
	if *testPath != "" {
		testSet, err := dataset.Load(*testPath, opts)
		if err != nil {
			return err
		}
		testSamples = testSet.Samples()
	}

	tc := cfg.TrainConfig()
	tc.OnEpoch = func(s nn.EpochStats) bool {
		if s.HasTest {
			fmt.Fprintf(stdout, "epoch %d: train error %.6f, test error %.6f, accuracy %.2f%% (%s)\n",
				s.Epoch, s.TrainingError, s.TestError, 100*s.TestAccuracy, s.Elapsed)
		} else {
			fmt.Fprintf(stdout, "epoch %d: train error %.6f (%s)\n", s.Epoch, s.TrainingError, s.Elapsed)
		}
		return false
	}
	trainErr := net.Train(ctx, trainSet.Samples(), testSamples, tc)
	if trainErr != nil && !errors.Is(trainErr, context.Canceled) {
		return trainErr
	}

	// Parameters are exported after a cancelled run too.
	if err := export(net, *outDir); err != nil {
		return err
	}
	return trainErr
}

func buildNetwork(path string, logger *slog.Logger) (*nn.Network, *config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	net, err := config.Build(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return net, cfg, nil
}

// export writes NN_<name>_weight.txt and NN_<name>_bias.txt for every layer
// with parameters, NN being the 1-based layer position.
func export(net *nn.Network, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range []struct {
		kind   serialization.Kind
		suffix string
	}{
		{serialization.Weights, "_weight.txt"},
		{serialization.Biases, "_bias.txt"},
	} {
		err := net.ExportParameters(f.kind, func(i int, l nn.Layer) (io.WriteCloser, error) {
			return os.Create(filepath.Join(dir, fmt.Sprintf("%02d_%s%s", i+1, l.Name(), f.suffix)))
		})
		if err != nil {
			return errors.Wrapf(err, "export %s", f.kind)
		}
	}
	return nil
}
