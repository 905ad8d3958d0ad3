package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"lease-notify/internal/models"
	"lease-notify/internal/service"
)

// defaultAccountID is used when no X-Account-Id header is present, matching
// the single-account deployments this engine is embedded in.
const defaultAccountID = "test-account-1"

// accountHeader carries the tenant scope for every request
const accountHeader = "X-Account-Id"

// NotificationAPI is the slice of the service the HTTP layer needs
type NotificationAPI interface {
	Generate(ctx context.Context, accountID string, thresholds []int, now time.Time) (*models.GenerateResult, error)
	ProcessAll(ctx context.Context, accountID string, now time.Time) (*models.ProcessResult, error)
	RetryOne(ctx context.Context, accountID, id string, now time.Time) (*models.Notification, error)
	RetryBulk(ctx context.Context, accountID string, ids []string, now time.Time) (*models.RetryBulkResult, error)
	List(ctx context.Context, accountID string, filter models.NotificationFilter) (*models.NotificationPage, error)
	Upcoming(ctx context.Context, accountID string) (*models.NotificationPage, error)
	Get(ctx context.Context, accountID, id string) (*models.Notification, error)
	GetSettings(ctx context.Context, accountID string) (*models.NotificationSettings, error)
	UpdateSettings(ctx context.Context, accountID string, daysBeforeExpiration []int) (*models.NotificationSettings, error)
}

// NotificationHandler exposes the notification engine over HTTP
type NotificationHandler struct {
	svc    NotificationAPI
	logger *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc NotificationAPI) *NotificationHandler {
	return &NotificationHandler{
		svc:    svc,
		logger: slog.Default().With("component", "notification-handler"),
	}
}

// RegisterRoutes attaches the notification routes to an echo instance
func (h *NotificationHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/notifications")
	g.GET("", h.List)
	g.GET("/upcoming", h.Upcoming)
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
	g.POST("/generate", h.Generate)
	g.POST("/process", h.Process)
	g.POST("/retry-bulk", h.RetryBulk)
	g.GET("/:id", h.Get)
	g.POST("/:id/retry", h.Retry)
}

func accountID(c echo.Context) string {
	if id := c.Request().Header.Get(accountHeader); id != "" {
		return id
	}
	return defaultAccountID
}

func (h *NotificationHandler) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "notification not found"})
	case errors.Is(err, service.ErrNotInFailedState):
		return c.JSON(http.StatusConflict, map[string]string{"error": "can only retry failed notifications"})
	case errors.Is(err, service.ErrInvalidThresholds):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "daysBeforeExpiration values must be non-negative"})
	}

	h.logger.Error("request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// List handles GET /notifications
func (h *NotificationHandler) List(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	page, err := h.svc.List(c.Request().Context(), accountID(c), filter)
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, page)
}

func parseFilter(c echo.Context) (models.NotificationFilter, error) {
	var filter models.NotificationFilter

	if s := c.QueryParam("status"); s != "" {
		status := models.NotificationStatus(s)
		if status != models.StatusPending && status != models.StatusSent && status != models.StatusFailed {
			return filter, errors.New("invalid status")
		}
		filter.Status = status
	}
	if t := c.QueryParam("type"); t != "" {
		notifType := models.NotificationType(t)
		if notifType != models.TypeLeaseExpiring && notifType != models.TypeLeaseExpired {
			return filter, errors.New("invalid type")
		}
		filter.Type = notifType
	}
	filter.LeaseID = c.QueryParam("leaseId")

	if d := c.QueryParam("startDate"); d != "" {
		t, err := time.Parse(time.RFC3339, d)
		if err != nil {
			t, err = time.Parse("2006-01-02", d)
		}
		if err != nil {
			return filter, errors.New("invalid startDate")
		}
		filter.StartDate = &t
	}
	if d := c.QueryParam("endDate"); d != "" {
		t, err := time.Parse(time.RFC3339, d)
		if err != nil {
			t, err = time.Parse("2006-01-02", d)
		}
		if err != nil {
			return filter, errors.New("invalid endDate")
		}
		filter.EndDate = &t
	}

	if p := c.QueryParam("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			return filter, errors.New("invalid page")
		}
		filter.Page = page
	}
	if p := c.QueryParam("pageSize"); p != "" {
		pageSize, err := strconv.Atoi(p)
		if err != nil || pageSize < 1 {
			return filter, errors.New("invalid pageSize")
		}
		filter.PageSize = pageSize
	}

	return filter, nil
}

// Upcoming handles GET /notifications/upcoming
func (h *NotificationHandler) Upcoming(c echo.Context) error {
	page, err := h.svc.Upcoming(c.Request().Context(), accountID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /notifications/:id
func (h *NotificationHandler) Get(c echo.Context) error {
	n, err := h.svc.Get(c.Request().Context(), accountID(c), c.Param("id"))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// Generate handles POST /notifications/generate
func (h *NotificationHandler) Generate(c echo.Context) error {
	var req models.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.svc.Generate(c.Request().Context(), accountID(c), req.DaysBeforeExpiration, time.Now())
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

// Process handles POST /notifications/process
func (h *NotificationHandler) Process(c echo.Context) error {
	result, err := h.svc.ProcessAll(c.Request().Context(), accountID(c), time.Now())
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Retry handles POST /notifications/:id/retry
func (h *NotificationHandler) Retry(c echo.Context) error {
	n, err := h.svc.RetryOne(c.Request().Context(), accountID(c), c.Param("id"), time.Now())
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// RetryBulk handles POST /notifications/retry-bulk
func (h *NotificationHandler) RetryBulk(c echo.Context) error {
	var req models.RetryBulkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.IDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ids is required"})
	}

	result, err := h.svc.RetryBulk(c.Request().Context(), accountID(c), req.IDs, time.Now())
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetSettings handles GET /notifications/settings
func (h *NotificationHandler) GetSettings(c echo.Context) error {
	settings, err := h.svc.GetSettings(c.Request().Context(), accountID(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /notifications/settings
func (h *NotificationHandler) UpdateSettings(c echo.Context) error {
	var req models.NotificationSettings
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	settings, err := h.svc.UpdateSettings(c.Request().Context(), accountID(c), req.DaysBeforeExpiration)
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, settings)
}
