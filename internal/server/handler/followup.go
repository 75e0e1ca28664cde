package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haojie06/domoai-http/internal/model"
)

// CreateUpscaleTask handles POST /v1/upscale. The index picks among the
// buttons currently enabled on the source task; a missing task or a disabled
// index is a 404.
func (h *Handler) CreateUpscaleTask(c *gin.Context) {
	var req model.FollowUpRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	creation, err := h.bot.Upscale(c.Request.Context(), req.TaskId, req.Index)
	respondTaskCreation(c, creation, err)
}

// CreateVaryTask handles POST /v1/vary.
func (h *Handler) CreateVaryTask(c *gin.Context) {
	var req model.FollowUpRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	creation, err := h.bot.Vary(c.Request.Context(), req.TaskId, req.Index)
	respondTaskCreation(c, creation, err)
}

// GetTaskData handles GET /v1/task-data/:task_id, the polling read path.
func (h *Handler) GetTaskData(c *gin.Context) {
	view, err := h.bot.TaskData(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}
