// Package repository provides GORM-backed persistence for dashgate's
// append-only audit trail.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/jmylchreest/dashgate/internal/models"
)

// ActivityRepository records and queries the append-only stream activity
// log (activation, eviction, and pipeline-error events). It is never
// replayed on startup: no stream is auto-resumed from a past event.
type ActivityRepository interface {
	Create(ctx context.Context, event *models.ActivityEvent) error
	ListByStream(ctx context.Context, streamID string, limit int) ([]*models.ActivityEvent, error)
	// Record is the fire-and-forget form used by the gateway pipeline and
	// stream manager, which log and continue rather than fail an ingest
	// loop over an audit-trail write error.
	Record(ctx context.Context, streamID, kind, detail string)
}

// activityRepo implements ActivityRepository using GORM.
type activityRepo struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *gorm.DB, logger *slog.Logger) ActivityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &activityRepo{db: db, logger: logger}
}

// Create inserts a new activity event.
func (r *activityRepo) Create(ctx context.Context, event *models.ActivityEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("creating activity event: %w", err)
	}
	return nil
}

// ListByStream retrieves the most recent activity events for streamID,
// newest first, bounded by limit (0 means unbounded).
func (r *activityRepo) ListByStream(ctx context.Context, streamID string, limit int) ([]*models.ActivityEvent, error) {
	var events []*models.ActivityEvent
	query := r.db.WithContext(ctx).Where("stream_id = ?", streamID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("listing activity events: %w", err)
	}
	return events, nil
}

// Record creates an activity event, logging (rather than propagating) any
// write failure so a database hiccup never interrupts an active pipeline.
func (r *activityRepo) Record(ctx context.Context, streamID, kind, detail string) {
	event := &models.ActivityEvent{
		StreamID: streamID,
		Kind:     models.ActivityKind(kind),
		Detail:   detail,
	}
	if err := r.Create(ctx, event); err != nil {
		r.logger.Warn("failed to record activity event",
			slog.String("stream_id", streamID),
			slog.String("kind", kind),
			slog.Any("error", err),
		)
	}
}

// Ensure activityRepo implements ActivityRepository at compile time.
var _ ActivityRepository = (*activityRepo)(nil)
