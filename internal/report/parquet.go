package report

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/querypilot/querypilot/internal/eval"
)

// EncodeParquet serializes the flat row form as a parquet file, suitable
// for loading evaluation history into an analytical store.
func EncodeParquet(result *eval.RunResult) ([]byte, error) {
	rows := Flatten(result)
	if len(rows) == 0 {
		return nil, fmt.Errorf("run has no records to encode")
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Row](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
