package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/domain"
	"github.com/rideops/callcenter/internal/events"
	"github.com/rideops/callcenter/internal/repository"
	apperrors "github.com/rideops/callcenter/pkg/util/errorutil"
)

// workflow bundles the side-effect plumbing shared by the workflow services:
// event publication and activity logging. Both are best-effort; a failure is
// logged and never undoes the primary mutation.
type workflow struct {
	activity   repository.ActivityRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func newWorkflow(activity repository.ActivityRepository, dispatcher events.Dispatcher, logger *zap.Logger, clock func() time.Time) workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return workflow{activity: activity, dispatcher: dispatcher, logger: logger, now: clock}
}

func (w workflow) publishEvent(ctx context.Context, event events.Event) {
	if w.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = w.now()
	}
	_ = w.dispatcher.Publish(ctx, event)
}

func (w workflow) recordActivity(ctx context.Context, actorID string, activityType domain.ActivityType, details map[string]any) {
	if w.activity == nil {
		return
	}
	if details == nil {
		details = map[string]any{}
	}
	details["timestamp"] = w.now().UTC().Format(time.RFC3339)
	entry := &domain.ActivityLog{AgentID: actorID, ActivityType: activityType, Details: details}
	if err := w.activity.Create(ctx, entry); err != nil {
		w.logger.Warn("activity log write failed",
			zap.String("activity_type", string(activityType)),
			zap.String("agent_id", actorID),
			zap.Error(err))
	}
}

func lookupError(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

func ptr[T any](v T) *T {
	return &v
}
