// Package dataset reads training sets described by a list file.
//
// A list file is tab separated:
//
//	data	label          (or: data	data)
//	<samples>	<classes>  (or: <samples>	<output length>)
//	in/0001.txt	3
//	in/0002.txt	7
//	...
//
// Each input (and, in data mode, each output) is a vector file holding one
// line of tab-separated numbers. In label mode the second column is a class
// index turned into a one-hot vector of <classes> entries. Relative paths
// resolve against the directory of the list file.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/parallel"
)

// ErrFormat reports a malformed list, vector or statistics file.
var ErrFormat = errors.New("dataset: malformed file")

// Mode is the kind of target a list file declares.
type Mode string

// List modes.
const (
	LabelMode Mode = "label"
	DataMode  Mode = "data"
)

// Options controls Load.
type Options struct {
	// Shuffle permutes the samples after loading.
	Shuffle bool
	// InputStats and OutputStats name optional two-line files holding the
	// per-feature mean and standard deviation. Vectors are normalized as
	// (v - mean) / std, with a zero std treated as 1. OutputStats applies
	// in data mode only.
	InputStats  string
	OutputStats string
	// Parallelism for reading vector files. Zero value reads sequentially.
	Parallelism parallel.Config
}

// Set is a loaded training or test set.
type Set struct {
	Mode    Mode
	Inputs  [][]float64
	Outputs [][]float64
	// Classes is the one-hot width in label mode and the declared output
	// length in data mode.
	Classes int
}

// Len returns the number of samples.
func (s *Set) Len() int { return len(s.Inputs) }

// Samples adapts the set for nn.Network.Train.
func (s *Set) Samples() nn.Samples {
	return nn.Samples{Inputs: s.Inputs, Labels: s.Outputs}
}

// Shuffle permutes inputs and outputs together.
func (s *Set) Shuffle() {
	rand.Shuffle(len(s.Inputs), func(i, j int) {
		s.Inputs[i], s.Inputs[j] = s.Inputs[j], s.Inputs[i]
		s.Outputs[i], s.Outputs[j] = s.Outputs[j], s.Outputs[i]
	})
}

type entry struct {
	input, output string
}

type header struct {
	mode    Mode
	samples int
	width   int
}

// Load reads the list file at path and every vector file it names.
func Load(path string, opts Options) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, entries, err := parseList(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	set := &Set{
		Mode:    h.mode,
		Inputs:  make([][]float64, len(entries)),
		Outputs: make([][]float64, len(entries)),
		Classes: h.width,
	}
	type sample struct {
		in, out []float64
		err     error
	}
	// One file read per iteration.
	par := opts.Parallelism
	par.MinChunkSize = 1
	samples := parallel.Map(len(entries), func(i int) sample {
		e := entries[i]
		in, err := ReadVector(resolve(e.input))
		if err != nil {
			return sample{err: fmt.Errorf("sample %d: %w", i+1, err)}
		}
		var out []float64
		if h.mode == LabelMode {
			out, err = oneHot(e.output, h.width)
		} else {
			out, err = ReadVector(resolve(e.output))
		}
		if err != nil {
			return sample{err: fmt.Errorf("sample %d: %w", i+1, err)}
		}
		return sample{in: in, out: out}
	}, par)

	errs := make([]error, len(samples))
	for i, s := range samples {
		set.Inputs[i], set.Outputs[i], errs[i] = s.in, s.out, s.err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if opts.InputStats != "" {
		if err := normalizeFile(set.Inputs, opts.InputStats); err != nil {
			return nil, err
		}
	}
	if opts.OutputStats != "" && h.mode == DataMode {
		if err := normalizeFile(set.Outputs, opts.OutputStats); err != nil {
			return nil, err
		}
	}
	if opts.Shuffle {
		set.Shuffle()
	}
	return set, nil
}

func parseList(r io.Reader) (header, []entry, error) {
	var h header
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	next := func() (string, bool) {
		for sc.Scan() {
			line++
			text := strings.TrimRight(sc.Text(), "\r")
			if strings.TrimSpace(text) != "" {
				return text, true
			}
		}
		return "", false
	}

	text, ok := next()
	if !ok {
		return h, nil, fmt.Errorf("missing header: %w", ErrFormat)
	}
	kinds := strings.Split(strings.TrimSpace(text), "\t")
	if len(kinds) != 2 || kinds[0] != "data" || (kinds[1] != string(LabelMode) && kinds[1] != string(DataMode)) {
		return h, nil, fmt.Errorf("line %d: header %q, want \"data\\tlabel\" or \"data\\tdata\": %w", line, text, ErrFormat)
	}
	h.mode = Mode(kinds[1])

	text, ok = next()
	if !ok {
		return h, nil, fmt.Errorf("missing sample count: %w", ErrFormat)
	}
	counts, err := parseInts(text)
	if err != nil || len(counts) < 1 || counts[0] < 0 {
		return h, nil, fmt.Errorf("line %d: counts %q: %w", line, text, ErrFormat)
	}
	h.samples = counts[0]
	if len(counts) > 1 {
		h.width = counts[1]
	}
	if h.mode == LabelMode && h.width <= 0 {
		return h, nil, fmt.Errorf("line %d: label mode needs a class count: %w", line, ErrFormat)
	}

	entries := make([]entry, 0, h.samples)
	for {
		text, ok := next()
		if !ok {
			break
		}
		cols := strings.Split(strings.TrimSpace(text), "\t")
		if len(cols) < 2 {
			return h, nil, fmt.Errorf("line %d: want two columns: %w", line, ErrFormat)
		}
		entries = append(entries, entry{input: cols[0], output: cols[1]})
	}
	if err := sc.Err(); err != nil {
		return h, nil, err
	}
	if len(entries) != h.samples {
		return h, nil, fmt.Errorf("%d samples listed, header declares %d: %w", len(entries), h.samples, ErrFormat)
	}
	return h, entries, nil
}

func oneHot(label string, classes int) ([]float64, error) {
	c, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || c < 0 || c >= classes {
		return nil, fmt.Errorf("label %q not in [0, %d): %w", label, classes, ErrFormat)
	}
	v := make([]float64, classes)
	v[c] = 1
	return v, nil
}

// ReadVector reads the first line of a vector file.
func ReadVector(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines, err := readLines(f, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines[0], nil
}

// readLines parses the first n non-empty lines of r as tab-separated
// numbers.
func readLines(r io.Reader, n int) ([][]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	out := make([][]float64, 0, n)
	for len(out) < n && sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := parseFloats(text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) < n {
		return nil, fmt.Errorf("%d lines, want %d: %w", len(out), n, ErrFormat)
	}
	return out, nil
}

func parseFloats(text string) ([]float64, error) {
	var out []float64
	for _, tok := range strings.Split(text, "\t") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", tok, ErrFormat)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty vector: %w", ErrFormat)
	}
	return out, nil
}

func parseInts(text string) ([]int, error) {
	var out []int
	for _, tok := range strings.Split(strings.TrimSpace(text), "\t") {
		v, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Stats is a per-feature mean and standard deviation.
type Stats struct {
	Mean []float64
	Std  []float64
}

// ReadStats reads a two-line mean/std file.
func ReadStats(path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	lines, err := readLines(f, 2)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(lines[0]) != len(lines[1]) {
		return Stats{}, fmt.Errorf("%s: mean has %d values, std %d: %w", path, len(lines[0]), len(lines[1]), ErrFormat)
	}
	return Stats{Mean: lines[0], Std: lines[1]}, nil
}

// Normalize applies (v - mean) / std to every vector in place. A zero std
// divides by 1.
func (s Stats) Normalize(vectors [][]float64) error {
	std := make([]float64, len(s.Std))
	for i, v := range s.Std {
		std[i] = v
		if v == 0 {
			std[i] = 1
		}
	}
	for i, v := range vectors {
		if len(v) != len(s.Mean) {
			return fmt.Errorf("vector %d has %d values, statistics %d: %w", i, len(v), len(s.Mean), ErrFormat)
		}
		floats.Sub(v, s.Mean)
		floats.Div(v, std)
	}
	return nil
}

func normalizeFile(vectors [][]float64, path string) error {
	st, err := ReadStats(path)
	if err != nil {
		return err
	}
	if err := st.Normalize(vectors); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
