package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/middleware"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models"
	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/models/dto"
	giveawayservice "github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/service"
)

type GiveawayHandler struct {
	service *giveawayservice.Service
}

func NewGiveawayHandler(service *giveawayservice.Service) *GiveawayHandler {
	return &GiveawayHandler{service: service}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.POST("/create", h.create)
		giveaways.GET("/active/:account_id", h.getActive)
		giveaways.GET("/history/:account_id", h.history)
		giveaways.GET("/by-token/:token", h.byToken)
		giveaways.GET("/:id", h.getByID)
		giveaways.POST("/:id/publish", h.publish)
		giveaways.PUT("/:id/finish-messages", h.finishMessages)
		giveaways.POST("/:id/finish", h.finish)
		giveaways.GET("/:id/stats", h.stats)
		giveaways.GET("/:id/logs", h.logs)
		giveaways.GET("/:id/validate", h.validateState)
	}
}

func (h *GiveawayHandler) create(c *gin.Context) {
	var req dto.CreateGiveawayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	g, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"giveaway": g,
	})
}

func (h *GiveawayHandler) getActive(c *gin.Context) {
	accountID, ok := pathInt64(c, "account_id")
	if !ok {
		return
	}

	g, err := h.service.GetActiveView(c.Request.Context(), accountID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"giveaway": g,
	})
}

func (h *GiveawayHandler) getByID(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	g, err := h.service.GetView(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"giveaway": g,
	})
}

func (h *GiveawayHandler) publish(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	result, err := h.service.Publish(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":                 true,
		"message_id":              result.MessageID,
		"published_at":            result.PublishedAt,
		"media_cleanup_scheduled": result.MediaCleanupScheduled,
	})
}

func (h *GiveawayHandler) finishMessages(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	var req dto.FinishMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	g, err := h.service.SetFinishMessages(c.Request.Context(), id, &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"messages_ready":        g.MessagesReadyForFinish,
		"finish_button_enabled": g.MessagesReadyForFinish,
	})
}

func (h *GiveawayHandler) finish(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	result, err := h.service.Finish(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"status":                models.StatusFinished,
		"winners_selected":      result.WinnersSelected,
		"total_participants":    result.TotalParticipants,
		"messages_delivered":    result.MessagesDelivered,
		"conclusion_message_id": result.ConclusionMessageID,
		"finished_at":           result.FinishedAt,
	})
}

func (h *GiveawayHandler) history(c *gin.Context) {
	accountID, ok := pathInt64(c, "account_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, pagination, err := h.service.History(c.Request.Context(), accountID, page, limit)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"giveaways":  items,
		"pagination": pagination,
	})
}

func (h *GiveawayHandler) stats(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

func (h *GiveawayHandler) byToken(c *gin.Context) {
	view, err := h.service.ByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"giveaway": view,
	})
}

func (h *GiveawayHandler) logs(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := h.service.Logs(c.Request.Context(), id, limit)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"logs":    entries,
	})
}

func (h *GiveawayHandler) validateState(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}

	report, g, err := h.service.ValidateState(c.Request.Context(), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"validation": report,
		"stage":      models.Stage(g),
	})
}

func pathInt64(c *gin.Context, name string) (int64, bool) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || value <= 0 {
		middleware.AbortWithError(c, errors.Newf(errors.ErrCodeBadRequest, "Invalid %s", name))
		return 0, false
	}
	return value, true
}
