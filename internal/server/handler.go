// Package server implements the HTTP API for the swipe service.
//
// All routes except /health expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET    /health          → liveness
//	POST   /feed/refresh    → rebuild the viewer's feed ({"jobId"} optional)
//	GET    /feed/current    → current card and position
//	POST   /feed/swipe      → {"decision","generation"}
//	POST   /feed/reset      → start over from the first card
//	GET    /favorites       → saved cards
//	POST   /favorites       → save a card
//	DELETE /favorites/:id   → remove a saved card
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"jobmate/swipe-service/internal/discovery"
	"jobmate/swipe-service/internal/logger"
	"jobmate/swipe-service/internal/model"
)

const userIDKey = "userID"

// Discovery is the subset of discovery.Service the handlers call.
type Discovery interface {
	Refresh(ctx context.Context, viewerID, jobID string) (discovery.View, error)
	Current(ctx context.Context, viewerID string) (discovery.View, error)
	Swipe(ctx context.Context, viewerID string, generation uint64, decision model.Decision) (discovery.SwipeResult, error)
	StartOver(ctx context.Context, viewerID string) (discovery.View, error)
	Favorites(ctx context.Context, viewerID string) ([]model.Card, error)
	AddFavorite(ctx context.Context, viewerID string, card model.Card) (bool, error)
	RemoveFavorite(ctx context.Context, viewerID, cardID string) (bool, error)
}

// ─── Response envelope ───────────────────────────────────────────────────────

// APIError is the body of every non-2xx response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	svc     Discovery
	logger  *zap.Logger
	version string
}

// NewHandler returns a configured Handler.
func NewHandler(svc Discovery, log *zap.Logger, version string) *Handler {
	return &Handler{svc: svc, logger: logger.Component(log, "http"), version: version}
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.accessLog())

	router.GET("/health", h.health)

	protected := router.Group("/")
	protected.Use(requireUser())
	protected.POST("/feed/refresh", h.refresh)
	protected.GET("/feed/current", h.current)
	protected.POST("/feed/swipe", h.swipe)
	protected.POST("/feed/reset", h.reset)
	protected.GET("/favorites", h.listFavorites)
	protected.POST("/favorites", h.addFavorite)
	protected.DELETE("/favorites/:id", h.removeFavorite)

	return router
}

// ─── Middleware ──────────────────────────────────────────────────────────────

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("x-user-id")
		if userID == "" {
			respondError(c, http.StatusUnauthorized, "unauthenticated", "missing x-user-id header")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
		)
	}
}

// ─── Individual handlers ─────────────────────────────────────────────────────

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "swipe-service",
		"version": h.version,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	var body struct {
		JobID string `json:"jobId"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, http.StatusBadRequest, "bad_request", "body must be a JSON object")
			return
		}
	}

	view, err := h.svc.Refresh(c.Request.Context(), c.GetString(userIDKey), body.JobID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) current(c *gin.Context) {
	view, err := h.svc.Current(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) swipe(c *gin.Context) {
	var body struct {
		Decision   string `json:"decision" binding:"required"`
		Generation uint64 `json:"generation"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", "body must contain decision")
		return
	}
	decision, err := model.ParseDecision(body.Decision)
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	res, err := h.svc.Swipe(c.Request.Context(), c.GetString(userIDKey), body.Generation, decision)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) reset(c *gin.Context) {
	view, err := h.svc.StartOver(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listFavorites(c *gin.Context) {
	cards, err := h.svc.Favorites(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": cards})
}

func (h *Handler) addFavorite(c *gin.Context) {
	var card model.Card
	if err := c.ShouldBindJSON(&card); err != nil || card.ID == "" {
		respondError(c, http.StatusBadRequest, "bad_request", "body must be a card with an id")
		return
	}
	if _, err := model.ParseKind(string(card.Kind)); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	added, err := h.svc.AddFavorite(c.Request.Context(), c.GetString(userIDKey), card)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"added": added})
}

func (h *Handler) removeFavorite(c *gin.Context) {
	removed, err := h.svc.RemoveFavorite(c.Request.Context(), c.GetString(userIDKey), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// fail maps a domain error to its HTTP status.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, model.ErrInvalidRole):
		respondError(c, http.StatusForbidden, "invalid_role", err.Error())
	case errors.Is(err, model.ErrStaleSession):
		respondError(c, http.StatusConflict, "stale_session", err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, model.ErrPersistenceUnavailable):
		h.logger.Warn("persistence unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, "unavailable", "storage temporarily unavailable")
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal", "internal server error")
	}
}
