package serialization

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// maxValues caps the size announced by a dimension line.
const maxValues = 1 << 28

// Parse reads one #Kernels, #Weights or #Biases block and returns its
// values as a flat vector in file order.
//
// The total size is inferred from the dimension line (1, 2 or 3 counts).
// Tokens that are not numbers are skipped. A block holding fewer or more
// numbers than announced is rejected.
func Parse(r io.Reader) (Kind, []float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)

	line := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return strings.TrimRight(sc.Text(), "\r"), true
	}

	header, ok := next()
	if !ok {
		if err := sc.Err(); err != nil {
			return "", nil, fmt.Errorf("read header: %w", err)
		}
		return "", nil, &FormatError{Details: "empty input"}
	}
	kind := Kind(strings.TrimSpace(header))
	if !kind.Loadable() {
		return "", nil, &FormatError{Line: line, Details: fmt.Sprintf("unexpected tag %q", header)}
	}

	dimLine, ok := next()
	if !ok {
		return "", nil, &FormatError{Line: line + 1, Details: "missing dimension line"}
	}
	size, err := parseDims(dimLine)
	if err != nil {
		return "", nil, &FormatError{Line: line, Details: err.Error()}
	}

	values := make([]float64, 0, size)
	for {
		text, ok := next()
		if !ok {
			break
		}
		for _, tok := range strings.Split(text, "\t") {
			v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
			if err != nil {
				continue
			}
			if len(values) == size {
				return "", nil, &FormatError{Line: line, Details: fmt.Sprintf("more than %d values", size)}
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return "", nil, fmt.Errorf("read values: %w", err)
	}
	if len(values) != size {
		return "", nil, &FormatError{Details: fmt.Sprintf("expected %d values, got %d", size, len(values))}
	}
	return kind, values, nil
}

// LoadFile parses the parameter file at path.
func LoadFile(path string) (Kind, []float64, error) {
	//nolint:gosec // G304: parameter files are chosen by the caller.
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open parameter file: %w", err)
	}
	defer func() { _ = f.Close() }()

	kind, values, err := Parse(f)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return kind, values, nil
}

func parseDims(text string) (int, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == '\t' || r == ' ' })
	if len(fields) < 1 || len(fields) > 3 {
		return 0, fmt.Errorf("dimension line must hold 1 to 3 counts, got %d", len(fields))
	}
	size := 1
	for _, f := range fields {
		d, err := strconv.Atoi(f)
		if err != nil {
			return 0, fmt.Errorf("bad dimension %q", f)
		}
		if d <= 0 {
			return 0, fmt.Errorf("dimension %d must be > 0", d)
		}
		size *= d
		if size > maxValues {
			return 0, fmt.Errorf("block too large")
		}
	}
	return size, nil
}
