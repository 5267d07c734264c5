package controller

import (
	"encoding/json"
	"errors"
	"io"
	"startup_edu_backend/internal/service"
	"startup_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	PaymentService *service.PaymentService
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{PaymentService: paymentService}
}

// CreateOrder godoc
// @Summary 创建付费课程订单
// @Description 在支付网关侧下单并返回结账链接
// @Tags 支付
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Order}
// @Failure 400 {object} util.Response "免费课程无需下单"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/order [post]
func (c *PaymentController) CreateOrder(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	courseID := util.MustParseUint(ctx.Param("id"))

	order, err := c.PaymentService.CreateOrder(claims.UserID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrCourseNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrCourseNotFree):
			util.BadRequest(ctx, "course is free, enroll directly")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, order)
}

// GetMyOrders godoc
// @Summary 我的订单
// @Tags 支付
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Order}
// @Router /api/my/orders [get]
func (c *PaymentController) GetMyOrders(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	orders, err := c.PaymentService.GetMyOrders(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, orders)
}

// webhookPayload 网关回调体中本服务关心的字段
type webhookPayload struct {
	Event   string `json:"event"`
	OrderID string `json:"order_id"`
}

// Webhook godoc
// @Summary 支付网关回调
// @Description 验签后处理订单状态事件；验签失败一律401
// @Tags 支付
// @Accept json
// @Produce json
// @Success 200 {object} util.Response
// @Failure 401 {object} util.Response "签名无效"
// @Router /api/payments/webhook [post]
func (c *PaymentController) Webhook(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		util.BadRequest(ctx, "unreadable body")
		return
	}

	signature := ctx.GetHeader("Revolut-Signature")
	timestamp := ctx.GetHeader("Revolut-Request-Timestamp")
	if err := c.PaymentService.VerifyWebhookSignature(body, timestamp, signature); err != nil {
		util.Unauthorized(ctx)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		util.BadRequest(ctx, "malformed payload")
		return
	}

	if err := c.PaymentService.HandleWebhookEvent(payload.Event, payload.OrderID); err != nil {
		if errors.Is(err, util.ErrOrderNotFound) {
			// 未知订单：返回200避免网关无限重试
			util.Success(ctx, gin.H{"ignored": true})
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"processed": true})
}
