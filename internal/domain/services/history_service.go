package services

import (
	"context"
	"log/slog"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
	"github.com/KK-2k06/AI-Image-Transformation/internal/imageio"
)

// HistoryBackend is the slice of the backend client the history view needs.
type HistoryBackend interface {
	History(ctx context.Context, userID int64) ([]models.HistoryRecord, error)
	DeleteHistory(ctx context.Context, historyID int64) error
}

type HistoryService interface {
	Fetch(ctx context.Context, userID int64) []models.HistoryRecord
	Delete(ctx context.Context, historyID, userID int64) []models.HistoryRecord
}

type historyService struct {
	backend HistoryBackend
	logger  *slog.Logger
}

func NewHistoryService(client HistoryBackend, logger *slog.Logger) HistoryService {
	return &historyService{
		backend: client,
		logger:  logger,
	}
}

// Fetch lists the user's past transformations with both image fields
// coerced into displayable form. A failed fetch leaves the history empty;
// it is logged but never surfaced as a user-facing error.
func (s *historyService) Fetch(ctx context.Context, userID int64) []models.HistoryRecord {
	records, err := s.backend.History(ctx, userID)
	if err != nil {
		s.logger.Error("failed to fetch history", "error", err, "user_id", userID)
		return nil
	}

	for i := range records {
		records[i].OriginalImage = imageio.Normalize(records[i].OriginalImage)
		records[i].TransformedImage = imageio.Normalize(records[i].TransformedImage)
	}
	return records
}

// Delete removes one record and re-fetches the full list regardless of the
// outcome, so the view always reflects current server state. There is no
// optimistic local removal.
func (s *historyService) Delete(ctx context.Context, historyID, userID int64) []models.HistoryRecord {
	if err := s.backend.DeleteHistory(ctx, historyID); err != nil {
		s.logger.Error("failed to delete history record",
			"error", err,
			"history_id", historyID,
			"user_id", userID)
	}
	return s.Fetch(ctx, userID)
}
