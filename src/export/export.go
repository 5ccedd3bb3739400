package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kwang-arcfusion/askchat/src/transcript"
)

// ErrNoMessageID is returned when exporting a block whose turn has not been
// reconciled yet; without a backend message id there is nothing to fetch.
var ErrNoMessageID = errors.New("export: block has no backend message id yet")

// Fetcher is the slice of the chat service the exporter depends on.
type Fetcher interface {
	ExportMessage(ctx context.Context, messageID string) ([]byte, error)
}

// Exporter writes export payloads to disk through an injected filesystem.
type Exporter struct {
	fs     afero.Fs
	api    Fetcher
	logger *slog.Logger
}

func New(fs afero.Fs, api Fetcher, logger *slog.Logger) *Exporter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{fs: fs, api: api, logger: logger.With("component", "export")}
}

// ToFile fetches the export payload for a reconciled message and writes it
// to path.
func (e *Exporter) ToFile(ctx context.Context, messageID, path string) error {
	if messageID == "" {
		return ErrNoMessageID
	}

	data, err := e.api.ExportMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to fetch export for message %s: %w", messageID, err)
	}

	if err := e.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := afero.WriteFile(e.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	e.logger.Info("exported message", "message_id", messageID, "path", path, "bytes", len(data))
	return nil
}

// WriteDataframeCSV writes a local dataframe asset to path as CSV, without a
// server round trip.
func (e *Exporter) WriteDataframeCSV(df transcript.DataframeAsset, path string) error {
	if err := e.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := e.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(df.Columns); err != nil {
		return err
	}
	record := make([]string, len(df.Columns))
	for _, row := range df.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) && row[i] != nil {
				record[i] = fmt.Sprint(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
