package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"networth-analyzer/models"
)

var reportHeader = []string{
	"source", "richest_name", "richest_net_worth_billions", "email_missing",
	"phone_missing", "rows_read", "rows_skipped", "unparseable", "generated_at",
}

// ReportWriter appends one CSV row per summary. It is safe for concurrent use.
type ReportWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewReportWriter opens (or creates) the report file at path for appending.
// The header row is written only when the file is new or empty.
// Intermediate directories are created automatically.
func NewReportWriter(path string) (*ReportWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("report: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("report: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(reportHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("report: write header: %w", err)
		}
		w.Flush()
	}

	return &ReportWriter{file: f, writer: w}, nil
}

// Write appends s to the report. The richest columns are left blank when no
// net worth could be parsed.
func (r *ReportWriter) Write(s *models.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, worth := "", ""
	if s.Found {
		name = s.RichestName
		worth = strconv.FormatFloat(s.RichestNetWorth, 'f', -1, 64)
	}

	row := []string{
		s.Source,
		name,
		worth,
		strconv.Itoa(s.EmailMissing),
		strconv.Itoa(s.PhoneMissing),
		strconv.Itoa(s.RowsRead),
		strconv.Itoa(s.RowsSkipped),
		strconv.Itoa(s.Unparseable),
		s.GeneratedAt.Format(time.RFC3339),
	}
	if err := r.writer.Write(row); err != nil {
		return fmt.Errorf("report: write row: %w", err)
	}

	r.writer.Flush()
	return r.writer.Error()
}

// Close flushes and closes the underlying file.
func (r *ReportWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	return r.file.Close()
}
