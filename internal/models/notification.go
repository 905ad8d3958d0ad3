package models

import "time"

// NotificationStatus represents the delivery state of a notification
type NotificationStatus string

const (
	StatusPending NotificationStatus = "PENDING"
	StatusSent    NotificationStatus = "SENT"
	StatusFailed  NotificationStatus = "FAILED"
)

// NotificationType categorizes why a notification was generated
type NotificationType string

const (
	TypeLeaseExpiring NotificationType = "LEASE_EXPIRING"
	TypeLeaseExpired  NotificationType = "LEASE_EXPIRED"
)

// Notification records one attempted contact about a lease reaching an
// expiration threshold. At most one row exists per
// (lease_id, type, days_before_expiration) tuple; rows are never deleted.
type Notification struct {
	ID                   string             `json:"id"`
	AccountID            string             `json:"accountId"`
	LeaseID              string             `json:"leaseId"`
	Type                 NotificationType   `json:"type"`
	DaysBeforeExpiration int                `json:"daysBeforeExpiration"`
	Status               NotificationStatus `json:"status"`
	SentAt               *time.Time         `json:"sentAt,omitempty"`
	Error                string             `json:"error,omitempty"`
	CreatedAt            time.Time          `json:"createdAt"`

	// Lease is the display read-join; populated on list/get, nil elsewhere.
	Lease *LeaseView `json:"lease,omitempty"`
}

// NotificationSettings holds the per-account expiration thresholds, in days.
type NotificationSettings struct {
	AccountID            string `json:"accountId"`
	DaysBeforeExpiration []int  `json:"daysBeforeExpiration"`
}

// GenerateRequest optionally overrides the account's configured thresholds
type GenerateRequest struct {
	DaysBeforeExpiration []int `json:"daysBeforeExpiration,omitempty"`
}

// GenerateResult reports how many new notifications a generate call produced
type GenerateResult struct {
	CreatedCount int `json:"createdCount"`
}

// ProcessResult summarizes one dispatch batch; Processed == Sent + Failed
type ProcessResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// RetryBulkRequest addresses failed notifications by id
type RetryBulkRequest struct {
	IDs []string `json:"ids"`
}

// RetryBulkResult partitions the requested ids exactly:
// Retried + StillFailed + NotFound == len(ids). Retried counts ids that were
// FAILED and got re-queued and re-sent (whatever the resend outcome, reported
// via Sent/FailedAgain); StillFailed counts ids that exist but were not in
// FAILED state; NotFound counts unknown ids.
type RetryBulkResult struct {
	Retried     int `json:"retried"`
	StillFailed int `json:"stillFailed"`
	NotFound    int `json:"notFound"`
	Sent        int `json:"sent"`
	FailedAgain int `json:"failedAgain"`
}

// NotificationFilter narrows a paginated listing
type NotificationFilter struct {
	Status    NotificationStatus
	Type      NotificationType
	LeaseID   string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// Pagination is the UI paging envelope
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NotificationPage is a page of notifications plus paging metadata
type NotificationPage struct {
	Data       []*Notification `json:"data"`
	Pagination Pagination      `json:"pagination"`
}
