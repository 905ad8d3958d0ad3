package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lease-notify/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// defaultThresholdDays is used when an account has no stored settings yet.
var defaultThresholdDays = []int{30}

// SQLiteRepository implements NotificationRepository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ping verifies the store is reachable
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// initSchema initializes the database schema
func (r *SQLiteRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		lease_id TEXT NOT NULL,
		type TEXT NOT NULL,
		days_before_expiration INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		sent_at INTEGER,
		error TEXT,
		created_at INTEGER NOT NULL,
		UNIQUE(lease_id, type, days_before_expiration)
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(account_id, status);
	CREATE INDEX IF NOT EXISTS idx_notifications_lease ON notifications(lease_id);

	CREATE TABLE IF NOT EXISTS leases (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		start_date INTEGER NOT NULL,
		end_date INTEGER,
		terminated_at INTEGER,
		unit_label TEXT NOT NULL DEFAULT '',
		property_address TEXT NOT NULL DEFAULT '',
		tenant_name TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_leases_account ON leases(account_id);

	CREATE TABLE IF NOT EXISTS notification_settings (
		account_id TEXT PRIMARY KEY,
		days_before_expiration TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// CreateNotification inserts a PENDING notification if no row exists for the
// same (lease_id, type, days_before_expiration) tuple. The uniqueness lives in
// the table constraint, so two concurrent generate runs cannot both succeed.
func (r *SQLiteRepository) CreateNotification(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, account_id, lease_id, type, days_before_expiration, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(lease_id, type, days_before_expiration) DO NOTHING
	`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.Status = models.StatusPending

	res, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.AccountID,
		n.LeaseID,
		n.Type,
		n.DaysBeforeExpiration,
		n.Status,
		n.CreatedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	return affected > 0, nil
}

const notificationColumns = `
	n.id, n.account_id, n.lease_id, n.type, n.days_before_expiration,
	n.status, n.sent_at, n.error, n.created_at,
	l.start_date, l.end_date, l.unit_label, l.property_address, l.tenant_name
`

const notificationFrom = `
	FROM notifications n
	LEFT JOIN leases l ON l.id = n.lease_id
`

func scanNotification(scan func(dest ...interface{}) error) (*models.Notification, error) {
	var n models.Notification
	var sentAt, createdAt sql.NullInt64
	var errMsg sql.NullString
	var leaseStart, leaseEnd sql.NullInt64
	var unitLabel, propertyAddress, tenantName sql.NullString

	err := scan(
		&n.ID,
		&n.AccountID,
		&n.LeaseID,
		&n.Type,
		&n.DaysBeforeExpiration,
		&n.Status,
		&sentAt,
		&errMsg,
		&createdAt,
		&leaseStart,
		&leaseEnd,
		&unitLabel,
		&propertyAddress,
		&tenantName,
	)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		t := time.Unix(sentAt.Int64, 0)
		n.SentAt = &t
	}
	if errMsg.Valid {
		n.Error = errMsg.String
	}
	if createdAt.Valid {
		n.CreatedAt = time.Unix(createdAt.Int64, 0)
	}

	if leaseStart.Valid {
		lease := models.Lease{
			ID:              n.LeaseID,
			AccountID:       n.AccountID,
			StartDate:       time.Unix(leaseStart.Int64, 0),
			UnitLabel:       unitLabel.String,
			PropertyAddress: propertyAddress.String,
			TenantName:      tenantName.String,
		}
		if leaseEnd.Valid {
			t := time.Unix(leaseEnd.Int64, 0)
			lease.EndDate = &t
		}
		n.Lease = lease.View()
	}

	return &n, nil
}

// GetNotificationByID retrieves a notification scoped to an account
func (r *SQLiteRepository) GetNotificationByID(ctx context.Context, accountID, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + notificationFrom + ` WHERE n.id = ? AND n.account_id = ?`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id, accountID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// ListNotifications returns one page of notifications plus the unpaged total
func (r *SQLiteRepository) ListNotifications(ctx context.Context, accountID string, filter models.NotificationFilter) ([]*models.Notification, int, error) {
	where := []string{"n.account_id = ?"}
	args := []interface{}{accountID}

	if filter.Status != "" {
		where = append(where, "n.status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		where = append(where, "n.type = ?")
		args = append(args, filter.Type)
	}
	if filter.LeaseID != "" {
		where = append(where, "n.lease_id = ?")
		args = append(args, filter.LeaseID)
	}
	if filter.StartDate != nil {
		where = append(where, "n.created_at >= ?")
		args = append(args, filter.StartDate.Unix())
	}
	if filter.EndDate != nil {
		where = append(where, "n.created_at <= ?")
		args = append(args, filter.EndDate.Unix())
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM notifications n` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	query := `SELECT ` + notificationColumns + notificationFrom + whereClause +
		` ORDER BY n.created_at DESC, n.id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications, err := collectNotifications(rows)
	if err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func collectNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// ListPendingNotifications returns a snapshot of all PENDING notifications
func (r *SQLiteRepository) ListPendingNotifications(ctx context.Context, accountID string) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + notificationFrom +
		` WHERE n.account_id = ? AND n.status = ? ORDER BY n.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// ListFailedNotifications returns FAILED notifications, optionally restricted
// to a set of ids. Ids that are unknown or not FAILED are simply absent.
func (r *SQLiteRepository) ListFailedNotifications(ctx context.Context, accountID string, ids []string) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + notificationFrom +
		` WHERE n.account_id = ? AND n.status = ?`
	args := []interface{}{accountID, models.StatusFailed}

	if len(ids) > 0 {
		query += ` AND n.id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY n.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// transition performs a compare-and-set status update. The status predicate in
// the WHERE clause is what makes concurrent writers safe: the loser of a race
// matches zero rows and gets ErrInvalidTransition instead of clobbering.
func (r *SQLiteRepository) transition(ctx context.Context, id string, from, to models.NotificationStatus, set string, args ...interface{}) error {
	query := `UPDATE notifications SET status = ?` + set + ` WHERE id = ? AND status = ?`
	updateArgs := append([]interface{}{to}, args...)
	updateArgs = append(updateArgs, id, from)

	res, err := r.db.ExecContext(ctx, query, updateArgs...)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var current models.NotificationStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM notifications WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read notification status: %w", err)
	}

	return &ErrInvalidTransition{ID: id, From: current, To: to}
}

// MarkSent transitions PENDING -> SENT
func (r *SQLiteRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.transition(ctx, id, models.StatusPending, models.StatusSent,
		`, sent_at = ?, error = NULL`, sentAt.Unix())
}

// MarkFailed transitions PENDING -> FAILED
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.transition(ctx, id, models.StatusPending, models.StatusFailed,
		`, error = ?`, errMsg)
}

// Requeue transitions FAILED -> PENDING for retry
func (r *SQLiteRepository) Requeue(ctx context.Context, accountID, id string) error {
	query := `UPDATE notifications SET status = ?, error = NULL WHERE id = ? AND account_id = ? AND status = ?`

	res, err := r.db.ExecContext(ctx, query, models.StatusPending, id, accountID, models.StatusFailed)
	if err != nil {
		return fmt.Errorf("failed to requeue notification: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to requeue notification: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var current models.NotificationStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM notifications WHERE id = ? AND account_id = ?`, id, accountID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read notification status: %w", err)
	}

	return &ErrInvalidTransition{ID: id, From: current, To: models.StatusPending}
}

// ListLeases retrieves all leases for an account
func (r *SQLiteRepository) ListLeases(ctx context.Context, accountID string) ([]*models.Lease, error) {
	query := `
		SELECT id, account_id, start_date, end_date, terminated_at, unit_label, property_address, tenant_name
		FROM leases
		WHERE account_id = ?
		ORDER BY start_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query leases: %w", err)
	}
	defer rows.Close()

	var leases []*models.Lease
	for rows.Next() {
		var lease models.Lease
		var startDate int64
		var endDate, terminatedAt sql.NullInt64

		err := rows.Scan(
			&lease.ID,
			&lease.AccountID,
			&startDate,
			&endDate,
			&terminatedAt,
			&lease.UnitLabel,
			&lease.PropertyAddress,
			&lease.TenantName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lease: %w", err)
		}

		lease.StartDate = time.Unix(startDate, 0)
		if endDate.Valid {
			t := time.Unix(endDate.Int64, 0)
			lease.EndDate = &t
		}
		if terminatedAt.Valid {
			t := time.Unix(terminatedAt.Int64, 0)
			lease.TerminatedAt = &t
		}

		leases = append(leases, &lease)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leases: %w", err)
	}

	return leases, nil
}

// InsertLease stores a lease row. The engine never mutates leases; this exists
// for the surrounding application, import tooling and tests.
func (r *SQLiteRepository) InsertLease(ctx context.Context, lease *models.Lease) error {
	query := `
		INSERT INTO leases (id, account_id, start_date, end_date, terminated_at, unit_label, property_address, tenant_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var endDate, terminatedAt interface{}
	if lease.EndDate != nil {
		endDate = lease.EndDate.Unix()
	}
	if lease.TerminatedAt != nil {
		terminatedAt = lease.TerminatedAt.Unix()
	}

	_, err := r.db.ExecContext(ctx, query,
		lease.ID,
		lease.AccountID,
		lease.StartDate.Unix(),
		endDate,
		terminatedAt,
		lease.UnitLabel,
		lease.PropertyAddress,
		lease.TenantName,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lease: %w", err)
	}

	return nil
}

// ListAccountIDs returns the distinct accounts that own leases
func (r *SQLiteRepository) ListAccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT account_id FROM leases ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// GetSettings returns the account's thresholds, storing the default on first read
func (r *SQLiteRepository) GetSettings(ctx context.Context, accountID string) (*models.NotificationSettings, error) {
	var encoded string
	err := r.db.QueryRowContext(ctx,
		`SELECT days_before_expiration FROM notification_settings WHERE account_id = ?`,
		accountID,
	).Scan(&encoded)

	if errors.Is(err, sql.ErrNoRows) {
		return r.UpdateSettings(ctx, accountID, defaultThresholdDays)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var days []int
	if err := json.Unmarshal([]byte(encoded), &days); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	return &models.NotificationSettings{AccountID: accountID, DaysBeforeExpiration: days}, nil
}

// UpdateSettings upserts the account's thresholds
func (r *SQLiteRepository) UpdateSettings(ctx context.Context, accountID string, daysBeforeExpiration []int) (*models.NotificationSettings, error) {
	encoded, err := json.Marshal(daysBeforeExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}

	query := `
		INSERT INTO notification_settings (account_id, days_before_expiration, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET days_before_expiration = excluded.days_before_expiration, updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, accountID, string(encoded), time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	return &models.NotificationSettings{AccountID: accountID, DaysBeforeExpiration: daysBeforeExpiration}, nil
}
