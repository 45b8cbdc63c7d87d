// Package export writes trajectories as CSV, JSON, Apache Arrow IPC streams
// or aligned text tables.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nvandessel/epidash/internal/trajectory"
)

// ErrUnknownFormat is returned by ParseFormat for unrecognised names.
var ErrUnknownFormat = errors.New("export: unknown format")

// Format selects an output encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatArrow Format = "arrow"
	FormatTable Format = "table"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatJSON, FormatArrow, FormatTable}

// ParseFormat maps a case-insensitive name to a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: csv, json, arrow, table)", ErrUnknownFormat, s)
}

// Binary reports whether the format is not human-readable.
func (f Format) Binary() bool {
	return f == FormatArrow
}

// Write encodes t in format f.
func Write(w io.Writer, f Format, t *trajectory.Trajectory) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteJSON(w, t)
	case FormatArrow:
		return WriteArrow(w, t)
	case FormatTable:
		return WriteTable(w, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// WriteCSV writes a header row of column names followed by one record per row.
func WriteCSV(w io.Writer, t *trajectory.Trajectory) error {
	cols, err := columns(t)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		for j, c := range cols {
			record[j] = strconv.FormatFloat(c[i], 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Document is the JSON shape of an exported trajectory.
type Document struct {
	Model   string      `json:"model"`
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// NewDocument converts t into its JSON document form.
func NewDocument(t *trajectory.Trajectory) (Document, error) {
	cols, err := columns(t)
	if err != nil {
		return Document{}, err
	}
	doc := Document{
		Model:   t.Model.String(),
		Columns: t.Columns(),
		Rows:    make([][]float64, t.Len()),
	}
	for i := range doc.Rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c[i]
		}
		doc.Rows[i] = row
	}
	return doc, nil
}

// WriteJSON writes t as a Document.
func WriteJSON(w io.Writer, t *trajectory.Trajectory) error {
	doc, err := NewDocument(t)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// WriteTable writes an aligned text table with 4-decimal values.
func WriteTable(w io.Writer, t *trajectory.Trajectory) error {
	cols, err := columns(t)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(t.Columns(), "\t")+"\t")
	for i := 0; i < t.Len(); i++ {
		for _, c := range cols {
			fmt.Fprintf(tw, "%.4f\t", c[i])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func columns(t *trajectory.Trajectory) ([][]float64, error) {
	if t == nil {
		return nil, errors.New("export: nil trajectory")
	}
	names := t.Columns()
	out := make([][]float64, len(names))
	for i, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
