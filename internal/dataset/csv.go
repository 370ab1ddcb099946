package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrEmpty indicates a source held no samples.
var ErrEmpty = errors.New("dataset: no samples")

// Load reads the dataset at path, which may be a single CSV file or a
// directory of CSV parts. All parts must share the same feature width.
func Load(path string) (*Dataset, error) {
	parts, err := DiscoverParts(path)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, errors.Wrapf(ErrEmpty, "no csv parts under %s", path)
	}

	var rows [][]float64
	var labels []int
	for _, part := range parts {
		r, l, err := readFile(part)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(r) > 0 && len(r[0]) != len(rows[0]) {
			return nil, errors.Errorf("%s: %d features, earlier parts have %d", part, len(r[0]), len(rows[0]))
		}
		rows = append(rows, r...)
		labels = append(labels, l...)
	}
	return build(rows, labels)
}

// LoadCSV parses rows of the form f1,...,fD,label from r. Lines starting
// with '#' are skipped, as is a leading header row in which no field is a
// number. A leading row with some numeric fields is data and must parse.
func LoadCSV(r io.Reader) (*Dataset, error) {
	rows, labels, err := parse(r)
	if err != nil {
		return nil, err
	}
	return build(rows, labels)
}

func readFile(path string) ([][]float64, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open dataset")
	}
	defer f.Close()

	rows, labels, err := parse(bufio.NewReader(f))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", path)
	}
	return rows, labels, nil
}

func parse(r io.Reader) ([][]float64, []int, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var rows [][]float64
	var labels []int
	width := -1
	for first := true; ; first = false {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "parse csv")
		}
		lineNo, _ := cr.FieldPos(0)
		if len(record) < 2 {
			return nil, nil, errors.Errorf("line %d: need at least one feature and a label", lineNo)
		}
		if first && isHeader(record) {
			continue
		}
		features, label, err := parseRecord(record)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "line %d", lineNo)
		}
		if width < 0 {
			width = len(features)
		} else if len(features) != width {
			return nil, nil, errors.Errorf("line %d: %d features, expected %d", lineNo, len(features), width)
		}
		rows = append(rows, features)
		labels = append(labels, label)
	}
	return rows, labels, nil
}

// isHeader reports whether no field of record is numeric.
func isHeader(record []string) bool {
	for _, field := range record {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil {
			return false
		}
	}
	return true
}

func parseRecord(record []string) ([]float64, int, error) {
	last := len(record) - 1
	features := make([]float64, last)
	for i := 0; i < last; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "feature %d", i)
		}
		features[i] = v
	}
	label, err := strconv.Atoi(strings.TrimSpace(record[last]))
	if err != nil {
		return nil, 0, errors.Wrap(err, "label")
	}
	if label < 0 {
		return nil, 0, errors.Errorf("label %d is negative", label)
	}
	return features, label, nil
}

func build(rows [][]float64, labels []int) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	width := len(rows[0])
	data := make([]float64, 0, len(rows)*width)
	for _, row := range rows {
		data = append(data, row...)
	}
	return &Dataset{
		Features: mat.NewDense(len(rows), width, data),
		Labels:   labels,
	}, nil
}
