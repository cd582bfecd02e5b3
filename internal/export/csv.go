// internal/export/csv.go
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"niche-finder/internal/common/errors"
	"niche-finder/internal/models"
)

// CSVHeader is the fixed column order of the export file.
var CSVHeader = []string{"name", "phone", "website", "address", "industry", "business_status"}

// RenderCSV writes records with a header row. Missing optional fields are
// written as N/A.
func RenderCSV(w io.Writer, records []models.BusinessRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Name,
			models.StringOrNA(r.Phone),
			models.StringOrNA(r.Website),
			models.StringOrNA(r.Address),
			r.Industry(),
			models.StringOrNA(r.BusinessStatus),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVSink overwrites a local file on every run.
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) Write(_ context.Context, _ string, records []models.BusinessRecord) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewSinkWriteFailedError(s.Name(), err)
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return errors.NewSinkWriteFailedError(s.Name(), err)
	}

	if err := RenderCSV(f, records); err != nil {
		f.Close()
		return errors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("write %s: %w", s.path, err))
	}
	if err := f.Close(); err != nil {
		return errors.NewSinkWriteFailedError(s.Name(), err)
	}
	return nil
}
