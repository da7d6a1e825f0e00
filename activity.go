package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess   ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure   ActivityEventType = "auth.login.failure"
	ActivityEventLoginBlocked   ActivityEventType = "auth.login.blocked"
	ActivityEventSocialLogin    ActivityEventType = "auth.social.login"
	ActivityEventSocialFailure  ActivityEventType = "auth.social.failure"
	ActivityEventLogout         ActivityEventType = "auth.logout"
	ActivityEventRoleSelected   ActivityEventType = "auth.role.selected"
	ActivityEventUserRegistered ActivityEventType = "auth.user.registered"
	ActivityEventStatusChanged  ActivityEventType = "auth.user.status_changed"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// LoggerActivitySink writes events to a Logger.
func LoggerActivitySink(logger Logger) ActivitySink {
	logger = normalizeLogger(logger)
	return ActivitySinkFunc(func(_ context.Context, evt ActivityEvent) error {
		args := []any{"event", string(evt.EventType), "user_id", evt.UserID, "actor", evt.Actor.Type}
		for k, v := range evt.Metadata {
			args = append(args, k, v)
		}
		logger.Info("auth activity", args...)
		return nil
	})
}

// RecordActivity emits evt to sink, logging sink failures. Timestamps and
// metadata maps are filled in when missing.
func RecordActivity(ctx context.Context, sink ActivitySink, logger Logger, evt ActivityEvent) {
	if evt.Metadata == nil {
		evt.Metadata = map[string]any{}
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(sink).Record(ctx, evt); err != nil {
		normalizeLogger(logger).Warn("activity sink record error", "error", err)
	}
}
