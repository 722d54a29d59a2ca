package reader

import (
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/vegasq/partsync/relation"
)

// columnDecoder turns the values of one leaf column into a relation cell.
type columnDecoder struct {
	name     string
	typ      relation.Type
	repeated bool
	decode   func(parquet.Value) interface{}
}

func decodersFor(schema *parquet.Schema) []columnDecoder {
	paths := schema.Columns()
	decoders := make([]columnDecoder, len(paths))
	for i, path := range paths {
		leaf, _ := schema.Lookup(path...)
		d := leafDecoder(leaf.Node)
		d.name = strings.Join(path, ".")
		d.repeated = leaf.MaxRepetitionLevel > 0
		if d.repeated {
			d.typ = relation.TypeAny
		}
		decoders[i] = d
	}
	return decoders
}

func leafDecoder(node parquet.Node) columnDecoder {
	t := node.Type()
	lt := t.LogicalType()

	switch t.Kind() {
	case parquet.Boolean:
		return columnDecoder{typ: relation.TypeBool, decode: func(v parquet.Value) interface{} { return v.Boolean() }}
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return columnDecoder{typ: relation.TypeTimestamp, decode: func(v parquet.Value) interface{} {
				return time.Unix(int64(v.Int32())*86400, 0).UTC()
			}}
		}
		return columnDecoder{typ: relation.TypeInt, decode: func(v parquet.Value) interface{} { return int64(v.Int32()) }}
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			unit := lt.Timestamp.Unit
			return columnDecoder{typ: relation.TypeTimestamp, decode: func(v parquet.Value) interface{} {
				return timestampOf(v.Int64(), unit)
			}}
		}
		return columnDecoder{typ: relation.TypeInt, decode: func(v parquet.Value) interface{} { return v.Int64() }}
	case parquet.Float:
		return columnDecoder{typ: relation.TypeFloat, decode: func(v parquet.Value) interface{} { return float64(v.Float()) }}
	case parquet.Double:
		return columnDecoder{typ: relation.TypeFloat, decode: func(v parquet.Value) interface{} { return v.Double() }}
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return columnDecoder{typ: relation.TypeString, decode: func(v parquet.Value) interface{} { return string(v.ByteArray()) }}
	default:
		return columnDecoder{typ: relation.TypeString, decode: func(v parquet.Value) interface{} { return v.String() }}
	}
}

func timestampOf(n int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Millis != nil:
		return time.UnixMilli(n).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(n).UTC()
	default:
		return time.Unix(0, n).UTC()
	}
}

// decodeRow places each value in its leaf column's cell. Repeated columns
// collect their values into a list.
func decodeRow(decoders []columnDecoder, row parquet.Row) []interface{} {
	cells := make([]interface{}, len(decoders))
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(decoders) {
			continue
		}
		d := decoders[col]
		if v.IsNull() {
			continue
		}
		cell := d.decode(v)
		if !d.repeated {
			cells[col] = cell
			continue
		}
		list, _ := cells[col].([]interface{})
		cells[col] = append(list, cell)
	}
	return cells
}
