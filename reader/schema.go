package reader

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// SchemaInfo describes one leaf column of a parquet file.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
}

// ExtractSchemaInfo opens the file at path and describes its columns.
//
// Type is the relation type the column decodes to. For nested types, names
// use dot notation (e.g. "address.street").
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = r.Close() }()

	return DescribeSchema(r.Schema()), nil
}

// DescribeSchema lists the leaf columns of schema in column order.
func DescribeSchema(schema *parquet.Schema) []SchemaInfo {
	decoders := decodersFor(schema)
	infos := make([]SchemaInfo, 0, len(decoders))
	for i, path := range schema.Columns() {
		leaf, _ := schema.Lookup(path...)
		info := SchemaInfo{
			Name:         decoders[i].name,
			Type:         decoders[i].typ.String(),
			PhysicalType: physicalType(leaf.Node),
			Optional:     leaf.MaxDefinitionLevel > leaf.MaxRepetitionLevel,
			Repeated:     leaf.MaxRepetitionLevel > 0,
		}
		if lt := leaf.Node.Type().LogicalType(); lt != nil {
			info.LogicalType = lt.String()
		}
		infos = append(infos, info)
	}
	return infos
}

// physicalType returns the parquet physical type name of a leaf.
func physicalType(node parquet.Node) string {
	switch node.Type().Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}
