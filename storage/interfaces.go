package storage

import (
	"context"

	"networth-analyzer/models"
)

// SummaryWriter is the interface any summary sink must satisfy.
type SummaryWriter interface {
	Write(s *models.Summary) error
	Close() error
}

// RunRecorder persists summaries and reads them back.
type RunRecorder interface {
	Record(ctx context.Context, s *models.Summary) error
	Recent(ctx context.Context, limit int) ([]*models.Run, error)
	Close() error
}

var (
	_ SummaryWriter = (*ReportWriter)(nil)
	_ RunRecorder   = (*RunStore)(nil)
)
