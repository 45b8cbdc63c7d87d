package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/epidash/internal/models"
	"github.com/nvandessel/epidash/internal/trajectory"
)

// modelMetadataKey carries the model label in the Arrow schema metadata.
const modelMetadataKey = "model"

// Schema returns the Arrow schema for t: one non-nullable float64 field per column.
func Schema(t *trajectory.Trajectory) *arrow.Schema {
	names := t.Columns()
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64}
	}
	md := arrow.NewMetadata([]string{modelMetadataKey}, []string{t.Model.String()})
	return arrow.NewSchema(fields, &md)
}

// WriteArrow writes t as an Arrow IPC stream holding a single record batch.
func WriteArrow(w io.Writer, t *trajectory.Trajectory) error {
	cols, err := columns(t)
	if err != nil {
		return err
	}
	mem := memory.NewGoAllocator()
	schema := Schema(t)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i, c := range cols {
		b.Field(i).(*array.Float64Builder).AppendValues(c, nil)
	}
	rec := b.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("closing arrow stream: %w", err)
	}
	return nil
}

// ReadArrow reads a stream written by WriteArrow. Multiple record batches
// are concatenated in order.
func ReadArrow(r io.Reader) (*trajectory.Trajectory, error) {
	mem := memory.NewGoAllocator()
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("opening arrow stream: %w", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	md := schema.Metadata()
	idx := md.FindKey(modelMetadataKey)
	if idx < 0 {
		return nil, fmt.Errorf("arrow stream: missing %q schema metadata", modelMetadataKey)
	}
	model, err := models.ParseModelType(md.Values()[idx])
	if err != nil {
		return nil, fmt.Errorf("arrow stream: %w", err)
	}

	cols := make(map[string][]float64, len(schema.Fields()))
	for _, f := range schema.Fields() {
		if f.Type.ID() != arrow.FLOAT64 {
			return nil, fmt.Errorf("arrow stream: field %q is %s, want float64", f.Name, f.Type)
		}
		cols[f.Name] = nil
	}
	for rdr.Next() {
		rec := rdr.Record()
		for i, f := range schema.Fields() {
			values := rec.Column(i).(*array.Float64).Float64Values()
			cols[f.Name] = append(cols[f.Name], values...)
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("reading arrow stream: %w", err)
	}

	return trajectory.FromColumns(model, cols)
}
