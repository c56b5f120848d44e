package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pitchndeck/api/internal/config"
	"github.com/pitchndeck/api/internal/domain/user"
	"github.com/pitchndeck/api/internal/http/middlewares"
	"github.com/pitchndeck/api/internal/observability"
	"github.com/pitchndeck/api/internal/repo/mongodb"
	"github.com/pitchndeck/api/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, req user.NewUserRequest) (user.User, error)
	RecordLogin(ctx context.Context, id, ip string) error
}

type TokenIssuer interface {
	IssueSessionToken(userID, email, name, role string) (token string, expiresAt time.Time, err error)
}

type AuthHandler struct {
	users   UserReader
	writer  UserWriter
	jwt     TokenIssuer
	cfg     config.Config
	log     *slog.Logger
	metrics *observability.Prom
}

func NewAuthHandler(users UserReader, writer UserWriter, jwt TokenIssuer, cfg config.Config, log *slog.Logger, metrics *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:   users,
		writer:  writer,
		jwt:     jwt,
		cfg:     cfg,
		log:     log,
		metrics: metrics,
	}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.countSignUp("error")
		h.internalError(ctx, "Could not create account", err)
		return
	}

	u, err := h.writer.Create(cctx, user.NewUserRequest{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Company:      req.Company,
		SignupIP:     callerIP(ctx),
		UserAgent:    ctx.GetHeader("User-Agent"),
	})

	if err != nil {
		if errors.Is(err, mongodb.ErrEmailAlreadyUsed) {
			h.countSignUp("conflict")
			RespondConflict(ctx, "email_taken", "An account with this email already exists.")
			return
		}

		h.countSignUp("error")
		h.internalError(ctx, "Could not create account", err)
		return
	}

	if !h.issueSession(ctx, u) {
		return
	}

	h.countSignUp("ok")

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Account created successfully",
		"user":    u.Public(),
	})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	var req SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, strings.ToLower(strings.TrimSpace(req.Email)))

	if err != nil {
		if errors.Is(err, mongodb.ErrUserNotFound) {
			// Same message as a bad password: no account enumeration.
			h.countSignIn("invalid_credentials")
			RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password.")
			return
		}

		h.countSignIn("error")
		h.internalError(ctx, "Could not sign in", err)
		return
	}

	if !found.IsActive {
		h.countSignIn("deactivated")
		RespondForbidden(ctx, "account_deactivated", "Account is deactivated. Please contact support.")
		return
	}

	err = security.CheckPassword(found.PasswordHash, req.Password)

	if err != nil {
		h.countSignIn("invalid_credentials")
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password.")
		return
	}

	err = h.writer.RecordLogin(cctx, found.ID, callerIP(ctx))

	if err != nil {
		h.countSignIn("error")
		h.internalError(ctx, "Could not sign in", err)
		return
	}

	now := time.Now().UTC()
	found.LastLogin = &now

	if !h.issueSession(ctx, found) {
		return
	}

	h.countSignIn("ok")

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Signed in successfully",
		"user":    found.Public(),
	})
}

// Me resolves the session back to the live account.
func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok || id == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing session")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, mongodb.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.internalError(ctx, "Could not load account", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    u.Public(),
	})
}

// SignOut clears the cookie. No store interaction; always succeeds.
func (h *AuthHandler) SignOut(ctx *gin.Context) {
	h.clearSessionCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Signed out successfully",
	})
}

// Helper functions

func (h *AuthHandler) issueSession(ctx *gin.Context, u user.User) bool {
	token, expiresAt, err := h.jwt.IssueSessionToken(u.ID, u.Email, u.Name, u.Role)

	if err != nil {
		h.internalError(ctx, "Could not create session", err)
		return false
	}

	h.setSessionCookie(ctx, token, expiresAt)
	return true
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		middlewares.SessionCookieName,
		token,
		maxAge,
		"/",
		"",
		h.cfg.IsProd(),
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		"",
		-1,
		"/",
		"",
		h.cfg.IsProd(),
		true,
	)
}

// internalError logs the cause and answers a generic 500; the cause is only
// echoed to the caller outside prod.
func (h *AuthHandler) internalError(ctx *gin.Context, message string, err error) {
	if h.log != nil {
		h.log.ErrorContext(ctx.Request.Context(), "internal error", "err", err, "route", ctx.FullPath())
	}

	if h.cfg.IsProd() {
		RespondInternal(ctx, message)
		return
	}

	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, err.Error())
}

func (h *AuthHandler) countSignIn(outcome string) {
	if h.metrics != nil {
		h.metrics.SignInsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *AuthHandler) countSignUp(outcome string) {
	if h.metrics != nil {
		h.metrics.SignUpsTotal.WithLabelValues(outcome).Inc()
	}
}
