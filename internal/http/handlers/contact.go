package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pitchndeck/api/internal/config"
	"github.com/pitchndeck/api/internal/domain/contact"
	"github.com/gin-gonic/gin"
)

type ContactsRepo interface {
	Create(ctx context.Context, c contact.Contact) (contact.Contact, error)
	List(ctx context.Context) ([]contact.Contact, error)
}

type ContactHandler struct {
	contacts ContactsRepo
	cfg      config.Config
	log      *slog.Logger
}

func NewContactHandler(contacts ContactsRepo, cfg config.Config, log *slog.Logger) *ContactHandler {
	return &ContactHandler{
		contacts: contacts,
		cfg:      cfg,
		log:      log,
	}
}

type ContactRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Subject     string `json:"subject" binding:"required"`
	Message     string `json:"message" binding:"required"`
	InquiryType string `json:"inquiryType" binding:"required"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
}

// Submit stores a lead from the contact form. Public endpoint; the store
// stamps status and priority.
func (h *ContactHandler) Submit(ctx *gin.Context) {
	var req ContactRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.contacts.Create(cctx, contact.Contact{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Company:     req.Company,
		Subject:     req.Subject,
		Message:     req.Message,
		InquiryType: req.InquiryType,
	})

	if err != nil {
		h.internalError(ctx, "Could not submit contact form", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"contactId": created.ID,
		"message":   "Contact form submitted successfully",
	})
}

// List returns all submissions, newest first. Admin-gated.
func (h *ContactHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	contacts, err := h.contacts.List(cctx)

	if err != nil {
		h.internalError(ctx, "Could not list contacts", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":  true,
		"contacts": contacts,
	})
}

func (h *ContactHandler) internalError(ctx *gin.Context, message string, err error) {
	if h.log != nil {
		h.log.ErrorContext(ctx.Request.Context(), "internal error", "err", err, "route", ctx.FullPath())
	}

	if h.cfg.IsProd() {
		RespondInternal(ctx, message)
		return
	}

	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, err.Error())
}
