// Package handler provides HTTP request handlers for the application.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ratewatch/rated-history-go/internal/models"
	"github.com/ratewatch/rated-history-go/internal/session"
	"github.com/ratewatch/rated-history-go/pkg/logger"
)

// SessionHandler exposes the session state machine over HTTP.
type SessionHandler struct {
	session *session.Session
	log     *zap.Logger
}

// NewSessionHandler creates a new SessionHandler instance.
func NewSessionHandler(s *session.Session) *SessionHandler {
	return &SessionHandler{
		session: s,
		log:     logger.Named("handler"),
	}
}

// SignIn starts a device authorization and returns the grant the user
// must complete in a browser.
func (h *SessionHandler) SignIn(c *gin.Context) {
	grant, err := h.session.SignIn(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.log.Info("device authorization started",
		zap.String("verification_url", grant.VerificationURL),
	)
	c.JSON(http.StatusAccepted, grant)
}

// SignOut revokes the credential and resets the session.
func (h *SessionHandler) SignOut(c *gin.Context) {
	if err := h.session.SignOut(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

// SetMode switches the listing mode and reloads the first page.
func (h *SessionHandler) SetMode(c *gin.Context) {
	var req struct {
		Mode models.RatingMode `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if !req.Mode.Valid() {
		h.badRequest(c, "Unknown mode: "+string(req.Mode))
		return
	}

	if err := h.session.SetMode(c.Request.Context(), req.Mode); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

// SetSearch records a search term; the filter applies after the
// debounce delay.
func (h *SessionHandler) SetSearch(c *gin.Context) {
	var req struct {
		Term string `json:"term"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	h.session.SetSearchTerm(req.Term)
	c.JSON(http.StatusOK, h.session.View())
}

// SetSort switches the sort key and re-sorts synchronously.
func (h *SessionHandler) SetSort(c *gin.Context) {
	var req struct {
		Key models.SortKey `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if err := h.session.SetSortKey(req.Key); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

// SetInsights toggles the analytics panel flag.
func (h *SessionHandler) SetInsights(c *gin.Context) {
	var req struct {
		Show bool `json:"show"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	h.session.SetShowInsights(req.Show)
	c.JSON(http.StatusOK, h.session.View())
}

// LoadMore fetches the next page of the collection.
func (h *SessionHandler) LoadMore(c *gin.Context) {
	if err := h.session.LoadMore(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

// LoadAll drains the remaining cursor chain.
func (h *SessionHandler) LoadAll(c *gin.Context) {
	if err := h.session.LoadAll(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

// MarkUnavailable flags one record as unavailable.
func (h *SessionHandler) MarkUnavailable(c *gin.Context) {
	id := c.Param("id")
	if !h.session.MarkUnavailable(id) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:    http.StatusNotFound,
			Error:     "Not Found",
			Message:   "No video with id " + id + " in the collection",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}
	c.JSON(http.StatusOK, h.session.View())
}

// View returns the current view-state snapshot.
func (h *SessionHandler) View(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.View())
}

// Analytics returns the channel and category breakdown.
func (h *SessionHandler) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Analytics())
}

// Export returns the current projection as plain text.
func (h *SessionHandler) Export(c *gin.Context) {
	text, err := h.session.ExportText()
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *SessionHandler) badRequest(c *gin.Context, message string) {
	h.log.Warn("bad request",
		zap.String("path", c.Request.URL.Path),
		zap.String("message", message),
	)
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:    http.StatusBadRequest,
		Error:     "Bad Request",
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

func (h *SessionHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotInitialized):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Status:    http.StatusServiceUnavailable,
			Error:     "Service Unavailable",
			Message:   "Session is not initialized",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	case errors.Is(err, session.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status:    http.StatusUnauthorized,
			Error:     "Unauthorized",
			Message:   "Sign in first",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	case errors.Is(err, session.ErrBusy):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:    http.StatusConflict,
			Error:     "Conflict",
			Message:   "Another fetch is in flight",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	default:
		h.log.Error("request failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		// The session keeps the detailed failure in its error slot;
		// the view in the body carries it to the caller.
		c.JSON(http.StatusBadGateway, h.session.View())
	}
}
