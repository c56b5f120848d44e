package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pitchndeck/api/internal/cache"
	"github.com/pitchndeck/api/internal/config"
	"github.com/pitchndeck/api/internal/domain/user"
	"github.com/pitchndeck/api/internal/repo/mongodb"
	"github.com/gin-gonic/gin"
)

type AdminUsersRepo interface {
	List(ctx context.Context, page, limit int) ([]user.User, int64, error)
	Stats(ctx context.Context) (user.Stats, error)
	CountSignupsSince(ctx context.Context, since time.Time) (int64, error)
	SetActive(ctx context.Context, id string, active bool) error
}

type AdminHandler struct {
	users AdminUsersRepo
	cfg   config.Config
	log   *slog.Logger

	// Short-lived cache for the aggregate block; the listing itself is
	// always read fresh.
	stats *cache.Cache
}

func NewAdminHandler(users AdminUsersRepo, cfg config.Config, log *slog.Logger) *AdminHandler {
	return &AdminHandler{
		users: users,
		cfg:   cfg,
		log:   log,
		stats: cache.New(10 * time.Second),
	}
}

const recentSignupWindow = 30 * 24 * time.Hour

type statsBlock struct {
	Stats         user.Stats
	RecentSignups int64
}

// ListUsers answers GET /admin/users?page=&limit= for the admin table:
// one page of accounts plus aggregate counts and the trailing-30-day
// signup count.
func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	page, ok := intQuery(ctx.Query("page"), 1)

	if !ok || page < 1 {
		RespondBadRequest(ctx, "page must be a positive integer", nil)
		return
	}

	limit, ok := intQuery(ctx.Query("limit"), 20)

	if !ok || limit < 1 || limit > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, total, err := h.users.List(cctx, page, limit)

	if err != nil {
		h.internalError(ctx, "Could not list users", err)
		return
	}

	block, err := h.statsBlock(cctx)

	if err != nil {
		h.internalError(ctx, "Could not compute user statistics", err)
		return
	}

	views := make([]user.AdminView, 0, len(users))

	for _, u := range users {
		views = append(views, u.AdminView())
	}

	pages := total / int64(limit)

	if total%int64(limit) != 0 {
		pages++
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   views,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages,
		},
		"statistics":    block.Stats,
		"recentSignups": block.RecentSignups,
	})
}

func (h *AdminHandler) statsBlock(ctx context.Context) (statsBlock, error) {
	if v, ok := h.stats.Get("users"); ok {
		if block, ok := v.(statsBlock); ok {
			return block, nil
		}
	}

	stats, err := h.users.Stats(ctx)

	if err != nil {
		return statsBlock{}, err
	}

	recent, err := h.users.CountSignupsSince(ctx, time.Now().UTC().Add(-recentSignupWindow))

	if err != nil {
		return statsBlock{}, err
	}

	block := statsBlock{Stats: stats, RecentSignups: recent}

	h.stats.Set("users", block)

	return block, nil
}

type UpdateUserStatusRequest struct {
	UserID   string `json:"userId" binding:"required"`
	IsActive *bool  `json:"isActive" binding:"required"`
}

// UpdateUserStatus answers PATCH /admin/users: the activate/deactivate
// toggle. Roles have no endpoint; only the activity flag is mutable here.
func (h *AdminHandler) UpdateUserStatus(ctx *gin.Context) {
	var req UpdateUserStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.users.SetActive(cctx, req.UserID, *req.IsActive)

	if err != nil {
		if errors.Is(err, mongodb.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.internalError(ctx, "Could not update user", err)
		return
	}

	// Aggregates changed; next listing recomputes them.
	h.stats.Delete("users")

	verb := "deactivated"

	if *req.IsActive {
		verb = "activated"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User " + verb + " successfully",
	})
}

func (h *AdminHandler) internalError(ctx *gin.Context, message string, err error) {
	if h.log != nil {
		h.log.ErrorContext(ctx.Request.Context(), "internal error", "err", err, "route", ctx.FullPath())
	}

	if h.cfg.IsProd() {
		RespondInternal(ctx, message)
		return
	}

	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, err.Error())
}

// intQuery parses an optional numeric query parameter. An absent value takes
// the fallback; a present but unparseable one is the caller's error.
func intQuery(s string, fallback int) (int, bool) {
	if s == "" {
		return fallback, true
	}

	n, err := strconv.Atoi(s)

	if err != nil {
		return 0, false
	}

	return n, true
}
