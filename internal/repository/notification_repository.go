package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lease-notify/internal/models"
)

// ErrNotFound is returned when a notification id does not exist
var ErrNotFound = errors.New("notification not found")

// ErrInvalidTransition is returned when a guarded status update finds the
// notification in an unexpected state, e.g. a stale worker writing back a
// result for a row that was already retried and resolved.
type ErrInvalidTransition struct {
	ID   string
	From models.NotificationStatus
	To   models.NotificationStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("notification %s is %s, cannot transition to %s", e.ID, e.From, e.To)
}

// NotificationRepository defines the persistence contract for the
// notification engine. It is the sole mutator of notification rows, and all
// cross-cutting safety lives in its atomic primitives: CreateNotification is
// insert-if-absent, the status transitions are compare-and-set.
type NotificationRepository interface {
	// CreateNotification inserts a PENDING notification unless a row for the
	// same (lease_id, type, days_before_expiration) tuple already exists, in
	// which case it reports created=false without error.
	CreateNotification(ctx context.Context, n *models.Notification) (created bool, err error)

	GetNotificationByID(ctx context.Context, accountID, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, accountID string, filter models.NotificationFilter) ([]*models.Notification, int, error)
	ListPendingNotifications(ctx context.Context, accountID string) ([]*models.Notification, error)
	// ListFailedNotifications restricts to the given ids when non-empty;
	// unknown ids are simply absent from the result.
	ListFailedNotifications(ctx context.Context, accountID string, ids []string) ([]*models.Notification, error)

	// MarkSent transitions PENDING -> SENT, setting sent_at and clearing error.
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	// MarkFailed transitions PENDING -> FAILED, recording the error category.
	MarkFailed(ctx context.Context, id string, errMsg string) error
	// Requeue transitions FAILED -> PENDING and clears the error, so the
	// notification flows through dispatch again. Exactly one of two racing
	// callers wins; the loser gets ErrInvalidTransition.
	Requeue(ctx context.Context, accountID, id string) error

	// Leases are read-only to this engine; InsertLease exists for the
	// surrounding application and import tooling.
	ListLeases(ctx context.Context, accountID string) ([]*models.Lease, error)
	InsertLease(ctx context.Context, lease *models.Lease) error
	ListAccountIDs(ctx context.Context) ([]string, error)

	GetSettings(ctx context.Context, accountID string) (*models.NotificationSettings, error)
	UpdateSettings(ctx context.Context, accountID string, daysBeforeExpiration []int) (*models.NotificationSettings, error)

	Ping(ctx context.Context) error
	Close() error
}
