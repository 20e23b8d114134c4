// Package api exposes the assistant over HTTP with gin.
//
// Every conversation-changing route goes through the dialogue runner, so
// HTTP callers queue behind an in-flight turn exactly like the Telegram
// and terminal clients do. Read-only routes read the log and repository
// directly.
package api

import (
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"nagarbot/internal/auth"
	"nagarbot/internal/chat"
	"nagarbot/internal/complaint"
	apperrors "nagarbot/internal/errors"
	"nagarbot/internal/health"
	"nagarbot/internal/media"
	"nagarbot/internal/notify"
	"nagarbot/internal/storage"
	"nagarbot/internal/summary"
)

const summaryTitle = "Nagar Palika - My Complaints"

// Conversation runs turns. *dialogue.Runner satisfies it.
type Conversation interface {
	Send(ctx context.Context, text, attachment string) ([]chat.Message, error)
	SelectCategory(ctx context.Context, category string) ([]chat.Message, error)
	CheckResolution(ctx context.Context, complaintID string) ([]chat.Message, error)
	Typing() bool
	Queued() int
}

// Staff reaches the municipal team. *telegram.Client satisfies it.
type Staff interface {
	SendHandoff(ctx context.Context, text string, summaryPNG []byte) error
	NotifyResolved(ctx context.Context, c complaint.Complaint) error
}

// Handler wires HTTP routes to the conversation and its state.
type Handler struct {
	auth     *auth.Service
	runner   Conversation
	log      *chat.Log
	repo     *storage.Repository
	composer *notify.Composer
	monitor  *health.Monitor
	staff    Staff
	userTTL  time.Duration
	now      func() time.Time
}

// NewHandler constructs a Handler. staff may be nil when Telegram is off.
func NewHandler(authSvc *auth.Service, runner Conversation, l *chat.Log, repo *storage.Repository, composer *notify.Composer, monitor *health.Monitor, staff Staff, userTTL time.Duration) *Handler {
	return &Handler{
		auth:     authSvc,
		runner:   runner,
		log:      l,
		repo:     repo,
		composer: composer,
		monitor:  monitor,
		staff:    staff,
		userTTL:  userTTL,
		now:      time.Now,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.monitor.Handler)

	api := router.Group("/api")
	api.POST("/login", h.login)

	authed := api.Group("")
	authed.Use(h.auth.Middleware())
	authed.POST("/logout", h.logout)
	authed.GET("/profile", h.getProfile)
	authed.PUT("/profile", h.updateProfile)
	authed.GET("/messages", h.listMessages)
	authed.POST("/messages", h.sendMessage)
	authed.GET("/status", h.typingStatus)
	authed.POST("/categories/:category", h.selectCategory)
	authed.GET("/complaints", h.listComplaints)
	authed.GET("/complaints/summary.png", h.summaryImage)
	authed.POST("/complaints/:id/resolution-check", h.checkResolution)
	authed.PUT("/complaints/:id/status", h.setStatus)
	authed.GET("/handoff", h.handoff)
	authed.POST("/handoff/telegram", h.handoffTelegram)
	authed.POST("/feedback", h.feedback)
}

// writeError maps domain errors to status codes. Nothing raw reaches the client
// for unexpected errors.
func writeError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	switch {
	case stderrors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsSessionActive(err), apperrors.IsNotEligible(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsBusy(err):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "assistant is typing, please retry"})
	case apperrors.IsDelivery(err):
		log.Printf("⚠️  Delivery failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not reach the municipal office"})
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
	default:
		log.Printf("⚠️  Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	h.setAuthCookie(c, token, int(h.userTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) logout(c *gin.Context) {
	token, _ := auth.TokenFromContext(c)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		writeError(c, err)
		return
	}
	h.setAuthCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (h *Handler) setAuthCookie(c *gin.Context, token string, maxAge int) {
	if maxAge == 0 {
		maxAge = 3600
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) getProfile(c *gin.Context) {
	user, _ := auth.UserFromContext(c)
	c.JSON(http.StatusOK, user)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req auth.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	token, _ := auth.TokenFromContext(c)
	user, err := h.auth.UpdateProfile(c.Request.Context(), token, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// listMessages returns the transcript, or only messages after ?after=<id>.
func (h *Handler) listMessages(c *gin.Context) {
	var msgs []chat.Message
	if after := c.Query("after"); after != "" {
		msgs = h.log.Since(after)
	} else {
		msgs = h.log.All()
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"typing":   h.runner.Typing(),
	})
}

type messageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// sendMessage accepts JSON {text, image} where image is a data URL, or a
// multipart form with a text field and an image file.
func (h *Handler) sendMessage(c *gin.Context) {
	text, attachment, err := h.readMessage(c)
	if err != nil {
		writeError(c, err)
		return
	}

	replies, err := h.runner.Send(c.Request.Context(), text, attachment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

func (h *Handler) readMessage(c *gin.Context) (string, string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		text := c.PostForm("text")
		file, err := c.FormFile("image")
		if err != nil {
			if stderrors.Is(err, http.ErrMissingFile) {
				return text, "", nil
			}
			return "", "", apperrors.NewValidationError("image", "invalid multipart form")
		}
		if file.Size > media.ChatImageLimit {
			return "", "", apperrors.NewValidationError("image", "file exceeds 5 MB")
		}
		f, err := file.Open()
		if err != nil {
			return "", "", apperrors.NewValidationError("image", "could not open upload")
		}
		defer f.Close()
		attachment, err := media.IngestReader(f, media.ChatImageLimit)
		return text, attachment, err
	}

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", "", apperrors.NewValidationError("body", "invalid request body")
	}
	if req.Image == "" {
		return req.Text, "", nil
	}
	raw, _, err := media.Decode(req.Image)
	if err != nil {
		return "", "", err
	}
	attachment, err := media.Ingest(raw, media.ChatImageLimit)
	return req.Text, attachment, err
}

func (h *Handler) typingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"typing": h.runner.Typing(),
		"queued": h.runner.Queued(),
	})
}

func (h *Handler) selectCategory(c *gin.Context) {
	replies, err := h.runner.SelectCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

func (h *Handler) checkResolution(c *gin.Context) {
	replies, err := h.runner.CheckResolution(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

type complaintView struct {
	complaint.Complaint
	CanCheckResolution bool `json:"canCheckResolution"`
}

// listComplaints returns every complaint, newest first.
func (h *Handler) listComplaints(c *gin.Context) {
	all := h.repo.All()
	out := make([]complaintView, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, complaintView{Complaint: all[i], CanCheckResolution: all[i].CanCheckResolution()})
	}
	c.JSON(http.StatusOK, gin.H{"complaints": out})
}

type statusRequest struct {
	Status string `json:"status"`
}

// setStatus is the staff-side transition. Marking a complaint resolved
// pings the citizen on Telegram with a re-check button.
func (h *Handler) setStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	updated, err := h.repo.SetStatus(c.Param("id"), complaint.Status(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	if updated.CanCheckResolution() && h.staff != nil {
		if err := h.staff.NotifyResolved(c.Request.Context(), updated); err != nil {
			log.Printf("⚠️  Failed to notify citizen about %s: %v", updated.ID, err)
		}
	}
	c.JSON(http.StatusOK, complaintView{Complaint: updated, CanCheckResolution: updated.CanCheckResolution()})
}

func (h *Handler) summaryImage(c *gin.Context) {
	png, err := summary.RenderTable(summaryTitle, h.repo.All(), h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) lastComplaint() *complaint.Complaint {
	last, ok := h.repo.Last()
	if !ok {
		return nil
	}
	return &last
}

// handoff returns the WhatsApp text for the last complaint and its wa.me link.
func (h *Handler) handoff(c *gin.Context) {
	ctx := c.Request.Context()
	last := h.lastComplaint()
	c.JSON(http.StatusOK, gin.H{
		"text": h.composer.Compose(ctx, last),
		"link": h.composer.DeepLink(ctx, last),
	})
}

func (h *Handler) handoffTelegram(c *gin.Context) {
	if h.staff == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telegram is not configured"})
		return
	}
	ctx := c.Request.Context()
	text := h.composer.Compose(ctx, h.lastComplaint())

	var png []byte
	if all := h.repo.All(); len(all) > 0 {
		var err error
		if png, err = summary.RenderTable(summaryTitle, all, h.now()); err != nil {
			log.Printf("⚠️  Summary image failed, sending text only: %v", err)
			png = nil
		}
	}

	if err := h.staff.SendHandoff(ctx, text, png); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

type feedbackRequest struct {
	Rating   int    `json:"rating"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (h *Handler) feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(c, apperrors.NewValidationError("rating", "rating must be between 1 and 5"))
		return
	}

	user, _ := auth.UserFromContext(c)
	h.monitor.RecordFeedback(req.Rating)
	log.Printf("⭐ Feedback from %s: %d/5 [%s] %s", user.Email, req.Rating, req.Category, strings.TrimSpace(req.Message))

	c.JSON(http.StatusOK, gin.H{"message": "Thank you for your feedback! It helps us improve municipal services."})
}
