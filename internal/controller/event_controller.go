package controller

import (
	"startup_edu_backend/internal/service"
	"startup_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EventController struct {
	EventService *service.EventService
}

func NewEventController(eventService *service.EventService) *EventController {
	return &EventController{EventService: eventService}
}

// GetPublishedEvents godoc
// @Summary 公开活动列表
// @Description 已发布的平台活动，按开始时间排序，无需登录
// @Tags 活动
// @Produce json
// @Success 200 {object} util.Response{data=[]model.Event}
// @Router /api/events [get]
func (c *EventController) GetPublishedEvents(ctx *gin.Context) {
	events, err := c.EventService.GetPublishedEvents()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, events)
}
