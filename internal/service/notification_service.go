package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lease-notify/internal/metrics"
	"lease-notify/internal/models"
	"lease-notify/internal/notifier"
	"lease-notify/internal/repository"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotInFailedState     = errors.New("only failed notifications can be retried")
	ErrInvalidThresholds    = errors.New("daysBeforeExpiration values must be non-negative")
)

const defaultDispatchConcurrency = 4

// NotificationService drives the lease expiration pipeline: candidate
// generation, dispatch and retry. All entry points are synchronous,
// re-entrant batch calls; the safety under concurrent invocation lives in the
// repository's atomic insert-if-absent and compare-and-set transitions, not
// in any locking here.
type NotificationService struct {
	repo        repository.NotificationRepository
	sender      notifier.Sender
	limiter     *DispatchLimiter
	metrics     *metrics.Metrics
	concurrency int
	logger      *slog.Logger
}

// NewNotificationService creates a notification service
func NewNotificationService(repo repository.NotificationRepository, sender notifier.Sender, limiter *DispatchLimiter, m *metrics.Metrics, concurrency int) *NotificationService {
	if concurrency < 1 {
		concurrency = defaultDispatchConcurrency
	}
	if limiter == nil {
		limiter = NewDispatchLimiter(0)
	}

	return &NotificationService{
		repo:        repo,
		sender:      sender,
		limiter:     limiter,
		metrics:     m,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "notification-service"),
	}
}

// normalizeThresholds sorts ascending, deduplicates and validates
func normalizeThresholds(thresholds []int) ([]int, error) {
	seen := make(map[int]bool, len(thresholds))
	out := make([]int, 0, len(thresholds))
	for _, t := range thresholds {
		if t < 0 {
			return nil, ErrInvalidThresholds
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out, nil
}

// firstThresholdAtOrAbove picks the most imminent crossed threshold: the
// smallest configured value >= days until expiration. Thresholds must be
// sorted ascending.
func firstThresholdAtOrAbove(thresholds []int, days int) (int, bool) {
	for _, t := range thresholds {
		if t >= days {
			return t, true
		}
	}
	return 0, false
}

// Generate scans the account's leases and materializes PENDING notifications
// for thresholds that have been crossed. Idempotent: re-running never
// duplicates a (lease, type, threshold) tuple, so it is safe to call from a
// manual trigger racing a scheduled run. When thresholds is empty the
// account's stored settings apply.
func (s *NotificationService) Generate(ctx context.Context, accountID string, thresholds []int, now time.Time) (*models.GenerateResult, error) {
	if len(thresholds) == 0 {
		settings, err := s.repo.GetSettings(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load notification settings: %w", err)
		}
		thresholds = settings.DaysBeforeExpiration
	}

	thresholds, err := normalizeThresholds(thresholds)
	if err != nil {
		return nil, err
	}

	leases, err := s.repo.ListLeases(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}

	created := 0
	for _, lease := range leases {
		switch models.CalculateLeaseStatus(lease, now) {
		case models.LeaseActive:
			days, hasEnd := lease.DaysUntilExpiration(now)
			if !hasEnd {
				// open-ended lease, nothing to announce
				continue
			}
			threshold, crossed := firstThresholdAtOrAbove(thresholds, days)
			if !crossed {
				continue
			}
			ok, err := s.tryCreate(ctx, lease, models.TypeLeaseExpiring, threshold, now)
			if err != nil {
				return nil, err
			}
			if ok {
				created++
			}

		case models.LeaseExpired:
			ok, err := s.tryCreate(ctx, lease, models.TypeLeaseExpired, 0, now)
			if err != nil {
				return nil, err
			}
			if ok {
				created++
			}
		}
	}

	if s.metrics != nil {
		s.metrics.GeneratedTotal.Add(float64(created))
	}
	s.logger.Info("notification generation completed",
		"account_id", accountID,
		"thresholds", thresholds,
		"created", created,
	)

	return &models.GenerateResult{CreatedCount: created}, nil
}

func (s *NotificationService) tryCreate(ctx context.Context, lease *models.Lease, notifType models.NotificationType, threshold int, now time.Time) (bool, error) {
	n := &models.Notification{
		ID:                   uuid.New().String(),
		AccountID:            lease.AccountID,
		LeaseID:              lease.ID,
		Type:                 notifType,
		DaysBeforeExpiration: threshold,
		Status:               models.StatusPending,
		CreatedAt:            now,
	}

	created, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}
	if created {
		s.logger.Info("notification created",
			"notification_id", n.ID,
			"lease_id", lease.ID,
			"type", notifType,
			"days_before_expiration", threshold,
		)
	}
	return created, nil
}

// ProcessAll dispatches every currently PENDING notification exactly once.
// The batch never aborts for a single send failure; failures are recorded on
// the row. Sends run on a bounded worker pool over a non-overlapping
// partition of the snapshot, so processed == sent + failed always holds.
func (s *NotificationService) ProcessAll(ctx context.Context, accountID string, now time.Time) (*models.ProcessResult, error) {
	pending, err := s.repo.ListPendingNotifications(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	workers := s.concurrency
	if workers > len(pending) {
		workers = len(pending)
	}

	var sent, failed atomic.Int64
	jobs := make(chan *models.Notification)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				if s.dispatch(ctx, n, now) {
					sent.Add(1)
				} else {
					failed.Add(1)
				}
			}
		}()
	}

	for _, n := range pending {
		jobs <- n
	}
	close(jobs)
	wg.Wait()

	result := &models.ProcessResult{
		Processed: len(pending),
		Sent:      int(sent.Load()),
		Failed:    int(failed.Load()),
	}

	s.logger.Info("dispatch batch completed",
		"account_id", accountID,
		"processed", result.Processed,
		"sent", result.Sent,
		"failed", result.Failed,
	)

	return result, nil
}

// dispatch sends one notification and writes back the outcome. Returns true
// on a successful send. Send failures are expected and recorded, never
// propagated.
func (s *NotificationService) dispatch(ctx context.Context, n *models.Notification, now time.Time) bool {
	if err := s.limiter.Wait(ctx, n.AccountID); err != nil {
		s.recordFailure(ctx, n, notifier.CategoryTimeout)
		return false
	}

	start := time.Now()
	err := s.sender.Send(ctx, n)
	if s.metrics != nil {
		s.metrics.SendDuration.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		s.recordFailure(ctx, n, notifier.Categorize(err))
		return false
	}

	if markErr := s.repo.MarkSent(ctx, n.ID, now); markErr != nil {
		s.logWriteBack(n.ID, markErr)
	}
	if s.metrics != nil {
		s.metrics.SentTotal.Inc()
	}
	s.logger.Info("notification sent", "notification_id", n.ID, "lease_id", n.LeaseID)
	return true
}

func (s *NotificationService) recordFailure(ctx context.Context, n *models.Notification, category string) {
	if markErr := s.repo.MarkFailed(ctx, n.ID, category); markErr != nil {
		s.logWriteBack(n.ID, markErr)
	}
	if s.metrics != nil {
		s.metrics.FailedTotal.WithLabelValues(category).Inc()
	}
	s.logger.Warn("notification dispatch failed", "notification_id", n.ID, "error", category)
}

// logWriteBack handles errors from outcome write-backs. An invalid transition
// means another actor already resolved the row (e.g. it was retried while a
// stale worker held it); the guard did its job, so it is only logged.
func (s *NotificationService) logWriteBack(id string, err error) {
	var invalid *repository.ErrInvalidTransition
	if errors.As(err, &invalid) {
		s.logger.Warn("stale dispatch write-back skipped",
			"notification_id", id,
			"current_status", invalid.From,
		)
		return
	}
	s.logger.Error("failed to record dispatch outcome", "notification_id", id, "error", err)
}

// RetryOne re-queues a FAILED notification and drives it through dispatch
// again, returning the updated row. The re-queue is the store's guarded
// FAILED -> PENDING transition, so of two racing retries exactly one wins.
func (s *NotificationService) RetryOne(ctx context.Context, accountID, id string, now time.Time) (*models.Notification, error) {
	if err := s.repo.Requeue(ctx, accountID, id); err != nil {
		return nil, s.mapRequeueError(err)
	}
	if s.metrics != nil {
		s.metrics.RetriedTotal.Inc()
	}

	n, err := s.repo.GetNotificationByID(ctx, accountID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload notification: %w", err)
	}

	s.dispatch(ctx, n, now)

	n, err = s.repo.GetNotificationByID(ctx, accountID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload notification: %w", err)
	}
	return n, nil
}

// RetryBulk retries each id independently; one bad id never blocks the rest.
// The summary partitions the input set exactly:
// Retried + StillFailed + NotFound == number of distinct ids.
func (s *NotificationService) RetryBulk(ctx context.Context, accountID string, ids []string, now time.Time) (*models.RetryBulkResult, error) {
	result := &models.RetryBulkResult{}
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		err := s.repo.Requeue(ctx, accountID, id)
		var invalid *repository.ErrInvalidTransition
		switch {
		case err == nil:
			result.Retried++
			if s.metrics != nil {
				s.metrics.RetriedTotal.Inc()
			}
			n, getErr := s.repo.GetNotificationByID(ctx, accountID, id)
			if getErr != nil {
				return nil, fmt.Errorf("failed to reload notification: %w", getErr)
			}
			if s.dispatch(ctx, n, now) {
				result.Sent++
			} else {
				result.FailedAgain++
			}

		case errors.Is(err, repository.ErrNotFound):
			result.NotFound++

		case errors.As(err, &invalid):
			result.StillFailed++

		default:
			return nil, fmt.Errorf("failed to requeue notification: %w", err)
		}
	}

	s.logger.Info("bulk retry completed",
		"account_id", accountID,
		"retried", result.Retried,
		"still_failed", result.StillFailed,
		"not_found", result.NotFound,
	)

	return result, nil
}

func (s *NotificationService) mapRequeueError(err error) error {
	var invalid *repository.ErrInvalidTransition
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotificationNotFound
	case errors.As(err, &invalid):
		return ErrNotInFailedState
	default:
		return fmt.Errorf("failed to requeue notification: %w", err)
	}
}

// List returns one page of notifications with the display join
func (s *NotificationService) List(ctx context.Context, accountID string, filter models.NotificationFilter) (*models.NotificationPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}

	notifications, total, err := s.repo.ListNotifications(ctx, accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	return &models.NotificationPage{
		Data: notifications,
		Pagination: models.Pagination{
			Total:      total,
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalPages: (total + filter.PageSize - 1) / filter.PageSize,
		},
	}, nil
}

// Upcoming returns the first page of PENDING notifications
func (s *NotificationService) Upcoming(ctx context.Context, accountID string) (*models.NotificationPage, error) {
	return s.List(ctx, accountID, models.NotificationFilter{
		Status:   models.StatusPending,
		Page:     1,
		PageSize: 10,
	})
}

// Get retrieves a single notification
func (s *NotificationService) Get(ctx context.Context, accountID, id string) (*models.Notification, error) {
	n, err := s.repo.GetNotificationByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// GetSettings returns the account's thresholds, creating the default on first use
func (s *NotificationService) GetSettings(ctx context.Context, accountID string) (*models.NotificationSettings, error) {
	settings, err := s.repo.GetSettings(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings stores sorted, deduplicated thresholds for the account
func (s *NotificationService) UpdateSettings(ctx context.Context, accountID string, daysBeforeExpiration []int) (*models.NotificationSettings, error) {
	if len(daysBeforeExpiration) == 0 {
		return nil, ErrInvalidThresholds
	}
	days, err := normalizeThresholds(daysBeforeExpiration)
	if err != nil {
		return nil, err
	}

	settings, err := s.repo.UpdateSettings(ctx, accountID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to update notification settings: %w", err)
	}
	return settings, nil
}
