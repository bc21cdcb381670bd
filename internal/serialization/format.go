package serialization

import (
	"strconv"
	"strings"
)

// Kind is the tag of a dump block.
type Kind string

// Block tags.
const (
	Kernels        Kind = "#Kernels"
	Weights        Kind = "#Weights"
	Biases         Kind = "#Biases"
	Inputs         Kind = "#Inputs"
	PaddedInputs   Kind = "#Inputs with padding"
	Output         Kind = "#Output"
	LearningOutput Kind = "#Learning Output"
	PredictOutput  Kind = "#Predict Output"
)

// Loadable reports whether blocks of this kind can be read back by Parse.
func (k Kind) Loadable() bool {
	return k == Kernels || k == Weights || k == Biases
}

// Format renders values as a block tagged with kind.
// dims has 1, 2 or 3 entries and its product must equal len(values).
func Format(kind Kind, dims []int, values []float64) string {
	return FormatTag(string(kind), dims, values)
}

// FormatTag is Format with a free-form tag line, used for tags that carry
// a parameter such as "#Inputs with padding:2".
func FormatTag(tag string, dims []int, values []float64) string {
	var sb strings.Builder
	sb.Grow(len(tag) + 16 + len(values)*10)

	sb.WriteString(tag)
	sb.WriteByte('\n')
	for i, d := range dims {
		if i > 0 {
			sb.WriteByte('\t')
		}
		sb.WriteString(strconv.Itoa(d))
	}
	sb.WriteByte('\n')

	rowLen := len(values)
	sliceLen := len(values)
	switch len(dims) {
	case 2:
		rowLen = dims[1]
	case 3:
		rowLen = dims[2]
		sliceLen = dims[1] * dims[2]
	}

	for i, v := range values {
		sb.WriteString(FormatValue(v))
		sb.WriteByte('\t')
		if len(dims) < 2 {
			continue
		}
		if rowLen > 0 && (i+1)%rowLen == 0 {
			sb.WriteByte('\n')
		}
		if len(dims) == 3 && sliceLen > 0 && (i+1)%sliceLen == 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// FormatValue renders one number with the shortest exact representation.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
