package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/models"
	"github.com/KK-2k06/AI-Image-Transformation/internal/domain/services"
	"github.com/KK-2k06/AI-Image-Transformation/internal/infrastructure/backend"
	"github.com/KK-2k06/AI-Image-Transformation/internal/workflow"
)

// SessionHandler bridges the browser's action requests to per-session
// workflow controllers.
type SessionHandler struct {
	registry           *workflow.Registry
	catalog            []models.StyleOption
	backend            *backend.Client
	publisher          workflow.Publisher
	defaultGenerations int
	logger             *slog.Logger
}

func NewSessionHandler(
	registry *workflow.Registry,
	catalog []models.StyleOption,
	client *backend.Client,
	publisher workflow.Publisher,
	defaultGenerations int,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		registry:           registry,
		catalog:            catalog,
		backend:            client,
		publisher:          publisher,
		defaultGenerations: defaultGenerations,
		logger:             logger,
	}
}

func (h *SessionHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/styles", h.ListStyles)
	router.POST("/api/session", h.StartSession)

	session := router.Group("/api/session/:session_id")
	session.GET("", h.GetState)
	session.DELETE("", h.EndSession)
	session.POST("/style", h.SelectStyle)
	session.POST("/image", h.UploadImage)
	session.POST("/transform", h.Transform)
	session.POST("/reset", h.Reset)
	session.POST("/history/open", h.OpenHistory)
	session.POST("/history/close", h.CloseHistory)
	session.DELETE("/history/:history_id", h.DeleteHistoryRecord)
	session.POST("/payment/open", h.OpenPayment)
	session.POST("/payment/dismiss", h.DismissPayment)
	session.POST("/payment/method", h.SetPaymentMethod)
	session.POST("/payment", h.SubmitPayment)
}

func (h *SessionHandler) ListStyles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"styles": h.catalog})
}

type startSessionRequest struct {
	UserID    int64  `json:"id" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// StartSession creates a workflow controller for a signed-in user and
// refreshes the quota from the backend. A failed refresh keeps the default
// so the session still starts.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	user := models.UserSession{
		ID:        req.UserID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		CreatedAt: time.Now(),
	}

	quota := services.NewQuotaTracker(h.defaultGenerations)
	controller := workflow.NewController(user, workflow.ControllerDeps{
		Quota:     quota,
		Transform: services.NewTransformService(h.backend, quota, h.logger),
		Payments:  services.NewPaymentService(h.backend, quota, h.logger),
		History:   services.NewHistoryService(h.backend, h.logger),
		Publisher: h.publisher,
		Logger:    h.logger,
	})
	h.registry.Add(controller)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if generationsLeft, err := h.backend.GenerationsLeft(ctx, user.ID); err != nil {
		h.logger.Warn("failed to refresh quota at session start",
			"error", err,
			"user_id", user.ID)
	} else {
		controller.RefreshQuota(generationsLeft)
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": controller.ID,
		"user":       user,
		"state":      controller.Snapshot(),
		"styles":     h.catalog,
		"stream_url": "/stream/session/" + controller.ID,
	})
}

func (h *SessionHandler) controller(c *gin.Context) (*workflow.Controller, bool) {
	controller, ok := h.registry.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return controller, true
}

func (h *SessionHandler) GetState(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": controller.Snapshot()})
}

// EndSession is the logout action: the session is discarded, the quota
// stays with the user on the backend.
func (h *SessionHandler) EndSession(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	state := controller.Logout()
	h.registry.Remove(controller.ID)

	c.JSON(http.StatusOK, gin.H{"state": state})
}

type selectStyleRequest struct {
	StyleID int `json:"style_id" binding:"required"`
}

func (h *SessionHandler) SelectStyle(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	var req selectStyleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "style_id is required"})
		return
	}

	style, found := models.FindStyle(h.catalog, req.StyleID)
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown style"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": controller.SelectStyle(style)})
}

// UploadImage accepts the user's photo. A non-image file is silently
// ignored per the workflow contract; the response carries the unchanged
// state.
func (h *SessionHandler) UploadImage(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Warn("failed to open uploaded file", "error", err)
		c.JSON(http.StatusOK, gin.H{"state": controller.Snapshot()})
		return
	}
	defer file.Close()

	c.JSON(http.StatusOK, gin.H{"state": controller.LoadImage(fileHeader.Filename, file)})
}

func (h *SessionHandler) Transform(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": controller.Submit()})
}

func (h *SessionHandler) Reset(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": controller.Reset()})
}

func (h *SessionHandler) OpenHistory(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": controller.ShowHistory()})
}

func (h *SessionHandler) CloseHistory(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": controller.ExitHistory()})
}

func (h *SessionHandler) DeleteHistoryRecord(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	historyID, err := strconv.ParseInt(c.Param("history_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid history id"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"state": controller.DeleteHistoryRecord(historyID)})
}

func (h *SessionHandler) OpenPayment(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": controller.OpenPayment()})
}

func (h *SessionHandler) DismissPayment(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": controller.DismissPayment()})
}

type setPaymentMethodRequest struct {
	Method models.PaymentMethod `json:"method" binding:"required"`
}

func (h *SessionHandler) SetPaymentMethod(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	var req setPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method is required"})
		return
	}
	if req.Method != models.PaymentMethodUPI && req.Method != models.PaymentMethodCard {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment method"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": controller.SetPaymentMethod(req.Method)})
}

func (h *SessionHandler) SubmitPayment(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	var tx models.PaymentTransaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment payload"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"state": controller.Pay(&tx)})
}
