package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/querypilot/querypilot/internal/eval"
	"github.com/querypilot/querypilot/internal/storage"
)

var contentTypes = map[string]string{
	FileJSON:     "application/json",
	FileMarkdown: "text/markdown",
	FileCSV:      "text/csv",
	FileParquet:  "application/vnd.apache.parquet",
}

// Archiver uploads every serialization of a run to an object store under a
// date-partitioned run prefix.
type Archiver struct {
	Store  storage.ObjectStore
	Logger *slog.Logger
}

// Archive renders and uploads all artifacts of the run. It returns the
// object keys it wrote. A failed upload aborts the archive; partial runs
// are safe to retry because keys are deterministic per run.
func (a *Archiver) Archive(ctx context.Context, result *eval.RunResult) ([]string, error) {
	if a.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	artifacts, err := renderAll(result)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		key, err := storage.BuildReportPath(result.RunID, result.StartedAt, artifact.name)
		if err != nil {
			return nil, err
		}
		opts := storage.PutOptions{ContentType: contentTypes[artifact.name]}
		if _, err := a.Store.Put(ctx, key, bytes.NewReader(artifact.data), int64(len(artifact.data)), opts); err != nil {
			return nil, fmt.Errorf("archive %s: %w", artifact.name, err)
		}
		a.logger().Info("report_archived",
			slog.String("run_id", result.RunID),
			slog.String("key", key),
			slog.Int("bytes", len(artifact.data)))
		keys = append(keys, key)
	}
	return keys, nil
}

type artifact struct {
	name string
	data []byte
}

func renderAll(result *eval.RunResult) ([]artifact, error) {
	var jsonBuf, mdBuf, csvBuf bytes.Buffer
	if err := WriteJSON(&jsonBuf, result); err != nil {
		return nil, err
	}
	if err := WriteMarkdown(&mdBuf, result); err != nil {
		return nil, err
	}
	if err := WriteCSV(&csvBuf, result); err != nil {
		return nil, err
	}
	parquetData, err := EncodeParquet(result)
	if err != nil {
		return nil, err
	}
	return []artifact{
		{FileJSON, jsonBuf.Bytes()},
		{FileMarkdown, mdBuf.Bytes()},
		{FileCSV, csvBuf.Bytes()},
		{FileParquet, parquetData},
	}, nil
}

func (a *Archiver) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}
