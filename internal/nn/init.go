package nn

import (
	"log/slog"

	"gonum.org/v1/gonum/stat/distuv"
)

// uniformFill draws every element of dst from U(lower, upper).
func uniformFill(dst []float64, lower, upper float64) {
	if lower == upper {
		for i := range dst {
			dst[i] = lower
		}
		return
	}
	if lower > upper {
		lower, upper = upper, lower
	}
	u := distuv.Uniform{Min: lower, Max: upper}
	for i := range dst {
		dst[i] = u.Rand()
	}
}

// initParams returns a copy of given when it has the expected size.
// Otherwise it returns a fresh buffer filled by fill; a non-empty vector of
// the wrong size is reported and ignored.
func initParams(logger *slog.Logger, layer, what string, given []float64, size int, fill func([]float64)) []float64 {
	out := make([]float64, size)
	if len(given) == size {
		copy(out, given)
		return out
	}
	if len(given) != 0 {
		loggerOrDefault(logger).Warn("ignoring pre-trained parameters of wrong size",
			"layer", layer, "params", what, "size", len(given), "want", size)
	}
	if fill != nil {
		fill(out)
	}
	return out
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
