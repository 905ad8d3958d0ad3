package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lease-notify/internal/models"
	"lease-notify/internal/notifier"
	"lease-notify/internal/repository"
)

// fakeRepo is an in-memory NotificationRepository. It mirrors the store's two
// safety primitives: tuple uniqueness on create and compare-and-set status
// transitions, both under one mutex.
type fakeRepo struct {
	mu            sync.Mutex
	notifications map[string]*models.Notification
	tuples        map[string]bool
	leases        []*models.Lease
	settings      map[string][]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		notifications: make(map[string]*models.Notification),
		tuples:        make(map[string]bool),
		settings:      make(map[string][]int),
	}
}

func tupleKey(n *models.Notification) string {
	return fmt.Sprintf("%s|%s|%d", n.LeaseID, n.Type, n.DaysBeforeExpiration)
}

func copyNotification(n *models.Notification) *models.Notification {
	out := *n
	if n.SentAt != nil {
		t := *n.SentAt
		out.SentAt = &t
	}
	return &out
}

func (r *fakeRepo) CreateNotification(_ context.Context, n *models.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tupleKey(n)
	if r.tuples[key] {
		return false, nil
	}
	r.tuples[key] = true
	stored := copyNotification(n)
	stored.Status = models.StatusPending
	r.notifications[n.ID] = stored
	return true, nil
}

func (r *fakeRepo) GetNotificationByID(_ context.Context, accountID, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.AccountID != accountID {
		return nil, repository.ErrNotFound
	}
	return copyNotification(n), nil
}

func (r *fakeRepo) ListNotifications(_ context.Context, accountID string, filter models.NotificationFilter) ([]*models.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.Notification
	for _, n := range r.notifications {
		if n.AccountID != accountID {
			continue
		}
		if filter.Status != "" && n.Status != filter.Status {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.LeaseID != "" && n.LeaseID != filter.LeaseID {
			continue
		}
		matched = append(matched, copyNotification(n))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *fakeRepo) listByStatus(accountID string, status models.NotificationStatus, ids []string) []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var out []*models.Notification
	for _, n := range r.notifications {
		if n.AccountID != accountID || n.Status != status {
			continue
		}
		if len(ids) > 0 && !wanted[n.ID] {
			continue
		}
		out = append(out, copyNotification(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeRepo) ListPendingNotifications(_ context.Context, accountID string) ([]*models.Notification, error) {
	return r.listByStatus(accountID, models.StatusPending, nil), nil
}

func (r *fakeRepo) ListFailedNotifications(_ context.Context, accountID string, ids []string) ([]*models.Notification, error) {
	return r.listByStatus(accountID, models.StatusFailed, ids), nil
}

func (r *fakeRepo) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	if n.Status != models.StatusPending {
		return &repository.ErrInvalidTransition{ID: id, From: n.Status, To: models.StatusSent}
	}
	t := sentAt
	n.Status = models.StatusSent
	n.SentAt = &t
	n.Error = ""
	return nil
}

func (r *fakeRepo) MarkFailed(_ context.Context, id string, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	if n.Status != models.StatusPending {
		return &repository.ErrInvalidTransition{ID: id, From: n.Status, To: models.StatusFailed}
	}
	n.Status = models.StatusFailed
	n.Error = errMsg
	return nil
}

func (r *fakeRepo) Requeue(_ context.Context, accountID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.AccountID != accountID {
		return repository.ErrNotFound
	}
	if n.Status != models.StatusFailed {
		return &repository.ErrInvalidTransition{ID: id, From: n.Status, To: models.StatusPending}
	}
	n.Status = models.StatusPending
	n.Error = ""
	return nil
}

func (r *fakeRepo) ListLeases(_ context.Context, accountID string) ([]*models.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Lease
	for _, l := range r.leases {
		if l.AccountID == accountID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertLease(_ context.Context, lease *models.Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases = append(r.leases, lease)
	return nil
}

func (r *fakeRepo) ListAccountIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, l := range r.leases {
		if !seen[l.AccountID] {
			seen[l.AccountID] = true
			out = append(out, l.AccountID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeRepo) GetSettings(_ context.Context, accountID string) (*models.NotificationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	days, ok := r.settings[accountID]
	if !ok {
		days = []int{30}
		r.settings[accountID] = days
	}
	return &models.NotificationSettings{AccountID: accountID, DaysBeforeExpiration: days}, nil
}

func (r *fakeRepo) UpdateSettings(_ context.Context, accountID string, days []int) (*models.NotificationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[accountID] = days
	return &models.NotificationSettings{AccountID: accountID, DaysBeforeExpiration: days}, nil
}

func (r *fakeRepo) Ping(context.Context) error { return nil }
func (r *fakeRepo) Close() error               { return nil }

func (r *fakeRepo) status(t *testing.T, id string) *models.Notification {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	require.True(t, ok, "notification %s not found", id)
	return copyNotification(n)
}

// fakeSender counts sends and fails on demand, globally or per lease
type fakeSender struct {
	mu        sync.Mutex
	calls     int
	err       error
	leaseErrs map[string]error
}

func (s *fakeSender) Send(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.leaseErrs[n.LeaseID]; err != nil {
		return err
	}
	return s.err
}

func (s *fakeSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSender) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func newTestService(repo *fakeRepo, sender *fakeSender) *NotificationService {
	return NewNotificationService(repo, sender, nil, nil, 4)
}

func addLease(repo *fakeRepo, accountID, id string, now time.Time, daysUntilEnd int) {
	end := now.Add(time.Duration(daysUntilEnd) * 24 * time.Hour)
	repo.leases = append(repo.leases, &models.Lease{
		ID:        id,
		AccountID: accountID,
		StartDate: now.AddDate(-1, 0, 0),
		EndDate:   &end,
	})
}

func TestGenerate_PicksMostImminentThreshold(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)

	result, err := svc.Generate(context.Background(), "acc-1", []int{30, 7, 0}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)

	pending, err := repo.ListPendingNotifications(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.TypeLeaseExpiring, pending[0].Type)
	assert.Equal(t, 7, pending[0].DaysBeforeExpiration)
}

func TestGenerate_NoThresholdCrossed(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 90)

	result, err := svc.Generate(context.Background(), "acc-1", []int{7, 30}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
}

func TestGenerate_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	addLease(repo, "acc-1", "lease-2", now, 25)

	first, err := svc.Generate(context.Background(), "acc-1", []int{30, 7}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, first.CreatedCount)

	second, err := svc.Generate(context.Background(), "acc-1", []int{30, 7}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreatedCount)
}

func TestGenerate_ExpiredLease(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	now := time.Now()

	end := now.AddDate(0, 0, -3)
	repo.leases = append(repo.leases, &models.Lease{
		ID:        "lease-1",
		AccountID: "acc-1",
		StartDate: now.AddDate(-1, 0, 0),
		EndDate:   &end,
	})

	result, err := svc.Generate(context.Background(), "acc-1", []int{30}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)

	pending, _ := repo.ListPendingNotifications(context.Background(), "acc-1")
	require.Len(t, pending, 1)
	assert.Equal(t, models.TypeLeaseExpired, pending[0].Type)
	assert.Equal(t, 0, pending[0].DaysBeforeExpiration)
}

func TestGenerate_SkipsTerminatedAndOpenEnded(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	now := time.Now()

	end := now.AddDate(0, 0, 5)
	terminated := now.AddDate(0, 0, -1)
	repo.leases = append(repo.leases,
		&models.Lease{
			ID: "terminated", AccountID: "acc-1",
			StartDate: now.AddDate(-1, 0, 0), EndDate: &end, TerminatedAt: &terminated,
		},
		&models.Lease{
			ID: "open-ended", AccountID: "acc-1",
			StartDate: now.AddDate(-1, 0, 0),
		},
		&models.Lease{
			ID: "future", AccountID: "acc-1",
			StartDate: now.AddDate(0, 1, 0), EndDate: &end,
		},
	)

	result, err := svc.Generate(context.Background(), "acc-1", []int{30}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
}

func TestGenerate_UsesStoredSettings(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	repo.settings["acc-1"] = []int{7}

	result, err := svc.Generate(context.Background(), "acc-1", nil, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
}

func TestGenerate_RejectsNegativeThresholds(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})

	_, err := svc.Generate(context.Background(), "acc-1", []int{-1, 30}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

func TestProcessAll_Counts(t *testing.T) {
	tests := []struct {
		name       string
		leaseErrs  map[string]error
		wantSent   int
		wantFailed int
	}{
		{
			name:     "all succeed",
			wantSent: 3,
		},
		{
			name: "all fail",
			leaseErrs: map[string]error{
				"lease-1": errors.New("boom"),
				"lease-2": errors.New("boom"),
				"lease-3": errors.New("boom"),
			},
			wantFailed: 3,
		},
		{
			name: "mixed",
			leaseErrs: map[string]error{
				"lease-2": &notifier.SendError{Category: notifier.CategoryRejected},
			},
			wantSent:   2,
			wantFailed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			sender := &fakeSender{leaseErrs: tt.leaseErrs}
			svc := newTestService(repo, sender)
			now := time.Now()

			for i := 1; i <= 3; i++ {
				addLease(repo, "acc-1", fmt.Sprintf("lease-%d", i), now, 6)
			}
			_, err := svc.Generate(context.Background(), "acc-1", []int{7}, now)
			require.NoError(t, err)

			result, err := svc.ProcessAll(context.Background(), "acc-1", now)
			require.NoError(t, err)

			assert.Equal(t, 3, result.Processed)
			assert.Equal(t, tt.wantSent, result.Sent)
			assert.Equal(t, tt.wantFailed, result.Failed)
			assert.Equal(t, result.Processed, result.Sent+result.Failed)

			pending, _ := repo.ListPendingNotifications(context.Background(), "acc-1")
			assert.Empty(t, pending, "a dispatch batch leaves nothing pending")
		})
	}
}

func TestProcessAll_EmptyBatch(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	svc := newTestService(repo, sender)

	result, err := svc.ProcessAll(context.Background(), "acc-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, &models.ProcessResult{}, result)
	assert.Equal(t, 0, sender.callCount())
}

func TestProcessAll_RecordsErrorCategory(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{err: &notifier.SendError{Category: notifier.CategoryTimeout, Err: errors.New("deadline")}}
	svc := newTestService(repo, sender)
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	_, err := svc.Generate(context.Background(), "acc-1", []int{7}, now)
	require.NoError(t, err)

	_, err = svc.ProcessAll(context.Background(), "acc-1", now)
	require.NoError(t, err)

	failed, _ := repo.ListFailedNotifications(context.Background(), "acc-1", nil)
	require.Len(t, failed, 1)
	assert.Equal(t, notifier.CategoryTimeout, failed[0].Error)
	assert.Nil(t, failed[0].SentAt)
}

func TestRetryOne_FailThenSucceed(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{err: errors.New("provider down")}
	svc := newTestService(repo, sender)
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	_, err := svc.Generate(context.Background(), "acc-1", []int{7}, now)
	require.NoError(t, err)
	_, err = svc.ProcessAll(context.Background(), "acc-1", now)
	require.NoError(t, err)

	failed, _ := repo.ListFailedNotifications(context.Background(), "acc-1", nil)
	require.Len(t, failed, 1)
	id := failed[0].ID
	assert.Equal(t, notifier.CategorySendFailure, failed[0].Error)

	sender.setErr(nil)

	got, err := svc.RetryOne(context.Background(), "acc-1", id, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.Empty(t, got.Error)
	assert.Equal(t, 2, sender.callCount())
}

func TestRetryOne_FailsAgain(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{err: &notifier.SendError{Category: notifier.CategoryUnreachable}}
	svc := newTestService(repo, sender)
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	_, _ = svc.Generate(context.Background(), "acc-1", []int{7}, now)
	_, _ = svc.ProcessAll(context.Background(), "acc-1", now)

	failed, _ := repo.ListFailedNotifications(context.Background(), "acc-1", nil)
	require.Len(t, failed, 1)

	got, err := svc.RetryOne(context.Background(), "acc-1", failed[0].ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, notifier.CategoryUnreachable, got.Error)
}

func TestRetryOne_Errors(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	_, _ = svc.Generate(context.Background(), "acc-1", []int{7}, now)
	pending, _ := repo.ListPendingNotifications(context.Background(), "acc-1")
	require.Len(t, pending, 1)

	_, err := svc.RetryOne(context.Background(), "acc-1", "unknown", now)
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	// still PENDING, not retryable
	_, err = svc.RetryOne(context.Background(), "acc-1", pending[0].ID, now)
	assert.ErrorIs(t, err, ErrNotInFailedState)
}

func TestRetryBulk_PartitionsInput(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{err: errors.New("boom")}
	svc := newTestService(repo, sender)
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	addLease(repo, "acc-1", "lease-2", now, 6)
	_, _ = svc.Generate(context.Background(), "acc-1", []int{7}, now)

	pending, _ := repo.ListPendingNotifications(context.Background(), "acc-1")
	require.Len(t, pending, 2)
	failedID := pending[0].ID
	sentID := pending[1].ID

	require.NoError(t, repo.MarkFailed(context.Background(), failedID, "send failed"))
	require.NoError(t, repo.MarkSent(context.Background(), sentID, now))

	sender.setErr(nil)

	result, err := svc.RetryBulk(context.Background(), "acc-1", []string{failedID, sentID, "unknown"}, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 1, result.StillFailed)
	assert.Equal(t, 1, result.NotFound)
	assert.Equal(t, 3, result.Retried+result.StillFailed+result.NotFound)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 0, result.FailedAgain)

	assert.Equal(t, models.StatusSent, repo.status(t, failedID).Status)
}

func TestRetryBulk_DeduplicatesIDs(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	svc := newTestService(repo, sender)
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	_, _ = svc.Generate(context.Background(), "acc-1", []int{7}, now)
	pending, _ := repo.ListPendingNotifications(context.Background(), "acc-1")
	require.Len(t, pending, 1)
	id := pending[0].ID
	require.NoError(t, repo.MarkFailed(context.Background(), id, "send failed"))

	result, err := svc.RetryBulk(context.Background(), "acc-1", []string{id, id, id}, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 0, result.StillFailed)
	assert.Equal(t, 1, sender.callCount())
}

func TestRetry_ConcurrentCallersSendOnce(t *testing.T) {
	repo := newFakeRepo()
	sender := &fakeSender{}
	svc := newTestService(repo, sender)
	now := time.Now()

	addLease(repo, "acc-1", "lease-1", now, 6)
	_, _ = svc.Generate(context.Background(), "acc-1", []int{7}, now)
	pending, _ := repo.ListPendingNotifications(context.Background(), "acc-1")
	require.Len(t, pending, 1)
	id := pending[0].ID
	require.NoError(t, repo.MarkFailed(context.Background(), id, "send failed"))

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RetryOne(context.Background(), "acc-1", id, now)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	winners := 0
	for err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrNotInFailedState)
		}
	}

	assert.Equal(t, 1, winners, "exactly one retry may win the requeue")
	assert.Equal(t, 1, sender.callCount(), "the winning retry sends exactly once")
	assert.Equal(t, models.StatusSent, repo.status(t, id).Status)
}

func TestList_PaginationEnvelope(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 12; i++ {
		_, err := repo.CreateNotification(ctx, &models.Notification{
			ID:                   fmt.Sprintf("n-%02d", i),
			AccountID:            "acc-1",
			LeaseID:              fmt.Sprintf("lease-%02d", i),
			Type:                 models.TypeLeaseExpiring,
			DaysBeforeExpiration: 30,
			Status:               models.StatusPending,
			CreatedAt:            now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	// zero values fall back to page 1, size 10
	page, err := svc.List(ctx, "acc-1", models.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, 12, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 10, page.Pagination.PageSize)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	page, err = svc.List(ctx, "acc-1", models.NotificationFilter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)

	// empty account still returns a non-nil data slice
	page, err = svc.List(ctx, "acc-2", models.NotificationFilter{})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.Pagination.TotalPages)
}

func TestUpcoming_ReturnsPendingOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	ctx := context.Background()
	now := time.Now()

	for i, status := range []models.NotificationStatus{models.StatusPending, models.StatusSent, models.StatusFailed} {
		n := &models.Notification{
			ID:                   fmt.Sprintf("n-%d", i),
			AccountID:            "acc-1",
			LeaseID:              fmt.Sprintf("lease-%d", i),
			Type:                 models.TypeLeaseExpiring,
			DaysBeforeExpiration: 30,
			CreatedAt:            now,
		}
		_, err := repo.CreateNotification(ctx, n)
		require.NoError(t, err)
		switch status {
		case models.StatusSent:
			require.NoError(t, repo.MarkSent(ctx, n.ID, now))
		case models.StatusFailed:
			require.NoError(t, repo.MarkFailed(ctx, n.ID, "send failed"))
		}
	}

	page, err := svc.Upcoming(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, models.StatusPending, page.Data[0].Status)
}

func TestUpdateSettings(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})
	ctx := context.Background()

	_, err := svc.UpdateSettings(ctx, "acc-1", nil)
	assert.ErrorIs(t, err, ErrInvalidThresholds)

	_, err = svc.UpdateSettings(ctx, "acc-1", []int{7, -1})
	assert.ErrorIs(t, err, ErrInvalidThresholds)

	settings, err := svc.UpdateSettings(ctx, "acc-1", []int{30, 7, 7, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 7, 30}, settings.DaysBeforeExpiration)
}

func TestGetSettings_Default(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeSender{})

	settings, err := svc.GetSettings(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, []int{30}, settings.DaysBeforeExpiration)
}
