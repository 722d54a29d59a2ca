// Package reader reads Apache Parquet files into relations.
//
// # Basic Usage
//
// Reading a single parquet file:
//
//	r, err := reader.NewReader("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	rel, err := r.ReadAll()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rel.ColumnNames(), rel.Len())
//
// # Multi-file Operations
//
// Reading every partition file below a directory with a glob pattern:
//
//	rel, err := reader.ReadMultipleFiles("out/p_ano=2024/*/*/*.parquet")
//
// Each row then includes a "_file" column with the source file path.
//
// # In-memory Data
//
// Objects downloaded from a store can be read without touching disk:
//
//	r, err := reader.NewBytesReader(data)
//
// # Type Mapping
//
//   - BOOLEAN decodes to bool
//   - INT32 and INT64 decode to int64; DATE and TIMESTAMP logical types decode to time.Time in UTC
//   - FLOAT and DOUBLE decode to float64
//   - BYTE_ARRAY and FIXED_LEN_BYTE_ARRAY decode to string
//   - repeated fields decode to []interface{} in an untyped column
package reader
