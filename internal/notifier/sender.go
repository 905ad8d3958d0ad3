// Package notifier defines the outbound delivery capability used by the
// dispatch worker, and its concrete providers. A sender owns the timeout of
// each individual send; a timed-out send surfaces as an error and is recorded
// as a FAILED outcome, never left hanging.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"lease-notify/internal/models"
)

// Sender delivers a single notification through an external channel
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// Stable failure categories. These are what gets stored on the notification's
// error column, so operators can diagnose failures across runs without the
// raw provider error churning underneath them.
const (
	CategoryTimeout     = "provider timeout"
	CategoryUnreachable = "provider unreachable"
	CategoryRejected    = "rejected by provider"
	CategorySendFailure = "send failed"
)

// SendError wraps a provider failure with its stable category
type SendError struct {
	Category string
	Err      error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return e.Category
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Categorize maps an arbitrary send error to its stable category string
func Categorize(err error) string {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	return CategorySendFailure
}

// Subject builds the one-line summary for a notification. Rendering beyond
// this plain-text form is owned by the delivery channel.
func Subject(n *models.Notification) string {
	switch n.Type {
	case models.TypeLeaseExpired:
		return fmt.Sprintf("Lease %s has expired", n.LeaseID)
	default:
		return fmt.Sprintf("Lease %s expires in %d days", n.LeaseID, n.DaysBeforeExpiration)
	}
}

// Body builds the plain-text message body, including the display join when present
func Body(n *models.Notification) string {
	msg := Subject(n)
	if n.Lease == nil {
		return msg
	}
	if addr := n.Lease.Unit.Property.Address; addr != "" {
		msg += fmt.Sprintf("\nProperty: %s", addr)
	}
	if n.Lease.Unit.Label != "" {
		msg += fmt.Sprintf("\nUnit: %s", n.Lease.Unit.Label)
	}
	if n.Lease.Tenant.Name != "" {
		msg += fmt.Sprintf("\nTenant: %s", n.Lease.Tenant.Name)
	}
	return msg
}
