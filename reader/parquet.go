package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/partsync/relation"
)

// FileColumn is the column ReadMultipleFiles adds to tag rows with their
// source file.
const FileColumn = "_file"

// readBatch is the number of rows decoded per ReadRows call.
const readBatch = 256

// Reader reads a parquet file into a Relation.
//
// It keeps the underlying file handle (when there is one) so Close can
// release it.
type Reader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewReader opens the parquet file at path.
//
// Returns an error if the file doesn't exist or is not a valid parquet file.
//
// Example:
//
//	r, err := reader.NewReader("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &Reader{file: file, pqFile: pqFile}, nil
}

// NewBytesReader reads a parquet file held in memory, such as an object
// downloaded from a store.
func NewBytesReader(data []byte) (*Reader, error) {
	pqFile, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet data: %w", err)
	}
	return &Reader{pqFile: pqFile}, nil
}

// ReadAll decodes every row of the file into a Relation.
//
// The entire file is loaded into memory. Nested fields become dotted column
// names; repeated fields become list cells in an untyped column.
func (r *Reader) ReadAll() (*relation.Relation, error) {
	decoders := decodersFor(r.pqFile.Schema())

	columns := make([]relation.Column, len(decoders))
	for i, d := range decoders {
		columns[i] = relation.Column{Name: d.name, Type: d.typ}
	}

	rows := make([][]interface{}, 0, r.pqFile.NumRows())
	pr := parquet.NewReader(r.pqFile)
	defer func() { _ = pr.Close() }()

	buf := make([]parquet.Row, readBatch)
	for {
		n, err := pr.ReadRows(buf)
		for _, row := range buf[:n] {
			rows = append(rows, decodeRow(decoders, row))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if n == 0 {
			break
		}
	}

	rel, err := relation.NewWithSchema(columns, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build relation: %w", err)
	}
	return rel, nil
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Columns returns the relation schema the file decodes to.
func (r *Reader) Columns() []relation.Column {
	decoders := decodersFor(r.pqFile.Schema())
	columns := make([]relation.Column, len(decoders))
	for i, d := range decoders {
		columns[i] = relation.Column{Name: d.name, Type: d.typ}
	}
	return columns
}

// NumRows returns the row count recorded in the file footer.
func (r *Reader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// Close releases the file handle. It is safe to call Close multiple times.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ReadMultipleFiles reads every parquet file matching a glob pattern into
// one Relation.
//
// The pattern can include wildcards:
//   - * matches any sequence of non-separator characters
//   - ? matches any single non-separator character
//   - [range] matches any character in range
//
// When the pattern is a glob, each row is tagged with a "_file" column
// holding its source path and columns missing from a file are null. A plain
// path reads that file unchanged.
func ReadMultipleFiles(pattern string) (*relation.Relation, error) {
	if !strings.ContainsAny(pattern, "*?[]") {
		r, err := NewReader(pattern)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return r.ReadAll()
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}

	// Limit number of files to prevent resource exhaustion
	const maxFiles = 1000
	if len(matches) > maxFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxFiles)
	}

	var (
		records []map[string]interface{}
		order   []string
		seen    = make(map[string]bool)
	)
	for _, filePath := range matches {
		r, err := NewReader(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
		}

		rel, readErr := r.ReadAll()
		closeErr := r.Close()

		// Preserve the first error encountered
		if readErr != nil {
			return nil, fmt.Errorf("failed to read rows from %s: %w", filePath, readErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("failed to close %s: %w", filePath, closeErr)
		}

		for _, name := range rel.ColumnNames() {
			if !seen[name] && name != FileColumn {
				seen[name] = true
				order = append(order, name)
			}
		}
		for _, rec := range rel.Records() {
			rec[FileColumn] = filePath
			records = append(records, rec)
		}
	}

	return relation.FromRecords(records, append(order, FileColumn)...)
}
