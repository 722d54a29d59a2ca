package storage

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/partsync/relation"
)

// schemaName is the root name of every schema this package writes.
const schemaName = "partsync"

// persistedType is the relation type a column reads back as. Untyped
// columns are stored as strings.
func persistedType(t relation.Type) relation.Type {
	if t == relation.TypeAny {
		return relation.TypeString
	}
	return t
}

func nodeFor(t relation.Type) parquet.Node {
	switch t {
	case relation.TypeInt:
		return parquet.Int(64)
	case relation.TypeFloat:
		return parquet.Leaf(parquet.DoubleType)
	case relation.TypeBool:
		return parquet.Leaf(parquet.BooleanType)
	case relation.TypeTimestamp:
		return parquet.Timestamp(parquet.Microsecond)
	default:
		return parquet.String()
	}
}

// schemaFor builds an all-optional parquet schema for columns.
func schemaFor(columns []relation.Column) *parquet.Schema {
	group := make(parquet.Group, len(columns))
	for _, c := range columns {
		group[c.Name] = parquet.Optional(nodeFor(c.Type))
	}
	return parquet.NewSchema(schemaName, group)
}

// encoder turns relation rows into snappy-compressed parquet bytes.
type encoder struct {
	columns []relation.Column
	schema  *parquet.Schema
	// leaf[i] is the parquet column index of columns[i].
	leaf []int
}

func newEncoder(columns []relation.Column) (*encoder, error) {
	schema := schemaFor(columns)
	leaf := make([]int, len(columns))
	for i, c := range columns {
		lc, ok := schema.Lookup(c.Name)
		if !ok {
			return nil, fmt.Errorf("column %q missing from parquet schema", c.Name)
		}
		leaf[i] = lc.ColumnIndex
	}
	return &encoder{columns: columns, schema: schema, leaf: leaf}, nil
}

// encode writes rows, whose cells follow e.columns, as one parquet file.
func (e *encoder) encode(rows [][]interface{}) ([]byte, error) {
	prows := make([]parquet.Row, len(rows))
	for i, row := range rows {
		prow := make(parquet.Row, len(e.columns))
		for j, cell := range row {
			v, err := valueOf(cell, e.columns[j].Type)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, e.columns[j].Name, err)
			}
			col := e.leaf[j]
			if v.IsNull() {
				prow[col] = v.Level(0, 0, col)
			} else {
				prow[col] = v.Level(0, 1, col)
			}
		}
		prows[i] = prow
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, e.schema, parquet.Compression(&parquet.Snappy))
	if _, err := w.WriteRows(prows); err != nil {
		return nil, fmt.Errorf("failed to write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func valueOf(cell interface{}, t relation.Type) (parquet.Value, error) {
	if cell == nil {
		return parquet.NullValue(), nil
	}

	switch t {
	case relation.TypeInt:
		n, ok := cell.(int64)
		if !ok {
			return parquet.Value{}, fmt.Errorf("expected int64, got %T", cell)
		}
		return parquet.Int64Value(n), nil
	case relation.TypeFloat:
		switch n := cell.(type) {
		case float64:
			return parquet.DoubleValue(n), nil
		case int64:
			return parquet.DoubleValue(float64(n)), nil
		}
		return parquet.Value{}, fmt.Errorf("expected float64, got %T", cell)
	case relation.TypeBool:
		b, ok := cell.(bool)
		if !ok {
			return parquet.Value{}, fmt.Errorf("expected bool, got %T", cell)
		}
		return parquet.BooleanValue(b), nil
	case relation.TypeTimestamp:
		ts, ok := cell.(time.Time)
		if !ok {
			return parquet.Value{}, fmt.Errorf("expected time.Time, got %T", cell)
		}
		return parquet.Int64Value(ts.UnixMicro()), nil
	default:
		return parquet.ByteArrayValue([]byte(textOf(cell))), nil
	}
}

// textOf renders a cell for a string column.
func textOf(cell interface{}) string {
	switch v := cell.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
