// Package layoutio reads weight sequences and writes computed layouts in the
// formats understood by the treemap command line tool.
package layoutio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/treemap/internal/treemap"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTSV  Format = "tsv"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported output formats.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatTSV)}
}

// ReadWeights parses weights from r. Input is either a flat JSON array of
// numbers or plain numbers separated by commas and/or whitespace. Input that
// is neither fails with treemap.ErrInvalidInput.
func ReadWeights(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var weights treemap.Float64s
		if err := json.Unmarshal(data, &weights); err != nil {
			if errors.Is(err, treemap.ErrInvalidInput) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", treemap.ErrInvalidInput, err)
		}
		if weights == nil {
			weights = treemap.Float64s{}
		}
		return weights, nil
	}

	fields := strings.FieldsFunc(string(data), func(c rune) bool {
		return c == ',' || unicode.IsSpace(c)
	})
	weights := make([]float64, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid number %q", treemap.ErrInvalidInput, field)
		}
		weights = append(weights, value)
	}
	return weights, nil
}

// Document is the serialised form of a layout.
type Document struct {
	Algorithm string           `json:"algorithm" yaml:"algorithm"`
	Bounds    treemap.Rect     `json:"bounds" yaml:"bounds"`
	Rects     []treemap.Rect   `json:"rects" yaml:"rects"`
	Stats     *treemap.Summary `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Write encodes doc to w in the requested format.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTSV:
		return writeTSV(w, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// writeTSV emits one line per rectangle: index, x, y, width, height.
func writeTSV(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "index\tx\ty\twidth\theight")
	for i, r := range doc.Rects {
		fmt.Fprintf(bw, "%d\t%s\t%s\t%s\t%s\n", i, formatFloat(r.X), formatFloat(r.Y), formatFloat(r.W), formatFloat(r.H))
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
