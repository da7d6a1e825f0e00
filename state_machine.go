package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = newError(KindValidation, http.StatusBadRequest, "INVALID_USER_STATE_TRANSITION", "invalid user state transition")

// StatusUpdater persists account status changes.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error)
}

// TransitionHook runs before the status is persisted. An error aborts the
// transition.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// TransitionContext describes a pending status change.
type TransitionContext struct {
	Actor  ActorRef
	User   *User
	From   UserStatus
	To     UserStatus
	Reason string
}

// UserStateMachine moves accounts between active and blocked.
type UserStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, reason string) (*User, error)
	Block(ctx context.Context, actor ActorRef, user *User, reason string) (*User, error)
	Unblock(ctx context.Context, actor ActorRef, user *User, reason string) (*User, error)
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *userStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *userStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithBeforeTransitionHook adds a hook executed before the status update.
func WithBeforeTransitionHook(h TransitionHook) StateMachineOption {
	return func(sm *userStateMachine) {
		if h != nil {
			sm.beforeHooks = append(sm.beforeHooks, h)
		}
	}
}

// NewUserStateMachine returns the default implementation backed by users.
func NewUserStateMachine(users StatusUpdater, opts ...StateMachineOption) UserStateMachine {
	sm := &userStateMachine{
		users: users,
		transitions: map[UserStatus]map[UserStatus]struct{}{
			UserStatusActive:  {UserStatusBlocked: {}},
			UserStatusBlocked: {UserStatusActive: {}},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type userStateMachine struct {
	users        StatusUpdater
	transitions  map[UserStatus]map[UserStatus]struct{}
	beforeHooks  []TransitionHook
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

func (sm *userStateMachine) Block(ctx context.Context, actor ActorRef, user *User, reason string) (*User, error) {
	return sm.Transition(ctx, actor, user, UserStatusBlocked, reason)
}

func (sm *userStateMachine) Unblock(ctx context.Context, actor ActorRef, user *User, reason string) (*User, error) {
	return sm.Transition(ctx, actor, user, UserStatusActive, reason)
}

// Transition validates and persists the change. Moving to the current
// status is a no-op and emits nothing.
func (sm *userStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, reason string) (*User, error) {
	if user == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "user is nil",
		})
	}

	from := user.Status
	if from == "" {
		from = UserStatusActive
	}

	if from == target {
		return user, nil
	}

	if !sm.canTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	tc := TransitionContext{
		Actor:  actor,
		User:   user,
		From:   from,
		To:     target,
		Reason: reason,
	}

	for _, hook := range sm.beforeHooks {
		if err := hook(ctx, tc); err != nil {
			return nil, err
		}
	}

	updated, err := sm.users.UpdateStatus(ctx, user.ID, target)
	if err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, tc)

	return updated, nil
}

func (sm *userStateMachine) canTransition(from, to UserStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *userStateMachine) recordActivity(ctx context.Context, tc TransitionContext) {
	actor := tc.Actor
	if actor == (ActorRef{}) {
		actor = ActorRef{Type: "system"}
	}

	meta := map[string]any{
		"from": string(tc.From),
		"to":   string(tc.To),
	}
	if tc.Reason != "" {
		meta["reason"] = tc.Reason
	}

	RecordActivity(ctx, sm.activitySink, sm.logger, ActivityEvent{
		EventType:  ActivityEventStatusChanged,
		Actor:      actor,
		UserID:     tc.User.ID.String(),
		Metadata:   meta,
		OccurredAt: sm.now(),
	})
}
