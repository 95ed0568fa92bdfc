package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/aussiebroadwan/progressiq/internal/tracker/blob"
	"github.com/aussiebroadwan/progressiq/internal/tracker/domain"
	"github.com/aussiebroadwan/progressiq/pkg/slogx"
)

// BlobStore holds uploaded work files.
type BlobStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (blob.Object, error)
	Delete(ctx context.Context, fileURL string) error
}

// Upload is a work file received from a member.
type Upload struct {
	Name string
	Body io.Reader
}

// deleteTaskFiles removes the files attached to tasks. Failures are logged
// and skipped; the rows are already gone.
func deleteTaskFiles(ctx context.Context, blobs BlobStore, tasks []domain.Task) {
	if blobs == nil {
		return
	}
	log := slogx.FromContext(ctx)
	for _, t := range tasks {
		if t.FileURL == "" {
			continue
		}
		if err := blobs.Delete(ctx, t.FileURL); err != nil {
			log.Warn("failed to delete work file",
				slog.String("task_id", t.ID),
				slog.String("file_url", t.FileURL),
				slog.Any("error", err),
			)
		}
	}
}
