package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"startup_edu_backend/internal/config"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"
	"startup_edu_backend/pkg/logger"
	"startup_edu_backend/pkg/monitoring"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 签名时间戳的容忍窗口，防重放
const webhookTimestampTolerance = 5 * time.Minute

// PaymentService 对接Revolut商户API：下单与webhook回调处理
type PaymentService struct {
	OrderRepo    *repository.OrderRepository
	CourseRepo   *repository.CourseRepository
	UserRepo     *repository.UserRepository
	AwardService *StartupAwardService
	Cfg          *config.RevolutConfig
	client       *resty.Client
}

func NewPaymentService(
	orderRepo *repository.OrderRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	awardService *StartupAwardService,
	cfg *config.RevolutConfig,
) *PaymentService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(15 * time.Second).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)

	return &PaymentService{
		OrderRepo:    orderRepo,
		CourseRepo:   courseRepo,
		UserRepo:     userRepo,
		AwardService: awardService,
		Cfg:          cfg,
		client:       client,
	}
}

type revolutOrderResponse struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateOrder 在Revolut侧创建订单并落本地订单记录
func (s *PaymentService) CreateOrder(userID, courseID uint) (*model.Order, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.PriceAmount <= 0 {
		return nil, util.ErrCourseNotFree
	}

	var remote revolutOrderResponse
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"amount":      course.PriceAmount,
			"currency":    course.PriceCurrency,
			"description": fmt.Sprintf("Course #%d: %s", course.ID, course.Title),
		}).
		SetResult(&remote).
		Post("/api/orders")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 300 {
		logger.Log.Error("revolut order creation failed",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()))
		return nil, fmt.Errorf("revolut order creation failed with status %d", resp.StatusCode())
	}

	order := &model.Order{
		UserID:         userID,
		CourseID:       courseID,
		Amount:         course.PriceAmount,
		Currency:       course.PriceCurrency,
		State:          model.OrderPending,
		RevolutOrderID: remote.ID,
		CheckoutURL:    remote.CheckoutURL,
	}
	if err := s.OrderRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetMyOrders 当前用户的订单列表，按创建时间倒序
func (s *PaymentService) GetMyOrders(userID uint) ([]model.Order, error) {
	return s.OrderRepo.FindByUser(userID)
}

// VerifyWebhookSignature 校验Revolut回调签名
// 签名串为 v1.{timestamp}.{rawPayload}，HMAC-SHA256后十六进制编码，
// 请求头携带形如 v1=<hex> 的签名。
func (s *PaymentService) VerifyWebhookSignature(payload []byte, timestamp, signature string) error {
	if s.Cfg.WebhookSecret == "" {
		return util.ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return util.ErrInvalidSignature
	}
	drift := time.Since(time.UnixMilli(ts))
	if drift < 0 {
		drift = -drift
	}
	if drift > webhookTimestampTolerance {
		return util.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.Cfg.WebhookSecret))
	mac.Write([]byte("v1." + timestamp + "."))
	mac.Write(payload)
	expected := "v1=" + hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Split(signature, ",") {
		if hmac.Equal([]byte(strings.TrimSpace(candidate)), []byte(expected)) {
			return nil
		}
	}
	return util.ErrInvalidSignature
}

// HandleWebhookEvent 处理已验签的回调事件
// ORDER_COMPLETED：置订单完成、落选课记录，创业奖课程顺带登记第一阶段报名。
// 对同一订单重复回调是幂等的。
func (s *PaymentService) HandleWebhookEvent(eventType, revolutOrderID string) error {
	order, err := s.OrderRepo.FindByRevolutID(revolutOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			monitoring.PaymentWebhookEvents.WithLabelValues(eventType, "unknown_order").Inc()
			return util.ErrOrderNotFound
		}
		return err
	}

	switch eventType {
	case "ORDER_COMPLETED":
		if order.State == model.OrderCompleted {
			monitoring.PaymentWebhookEvents.WithLabelValues(eventType, "duplicate").Inc()
			return nil
		}
		now := time.Now()
		order.State = model.OrderCompleted
		order.PaidAt = &now
		if err := s.OrderRepo.Save(order); err != nil {
			return err
		}
		if err := s.enrollPaidUser(order); err != nil {
			// 订单已收款成功，后续落课失败交由重试/对账，不向网关报错
			logger.Log.Error("post-payment enrollment failed",
				zap.Uint("orderID", order.ID),
				zap.Error(err))
		}
		monitoring.PaymentWebhookEvents.WithLabelValues(eventType, "ok").Inc()
		return nil

	case "ORDER_PAYMENT_FAILED":
		if order.State == model.OrderPending {
			order.State = model.OrderFailed
			if err := s.OrderRepo.Save(order); err != nil {
				return err
			}
		}
		monitoring.PaymentWebhookEvents.WithLabelValues(eventType, "ok").Inc()
		return nil

	default:
		monitoring.PaymentWebhookEvents.WithLabelValues(eventType, "ignored").Inc()
		return nil
	}
}

func (s *PaymentService) enrollPaidUser(order *model.Order) error {
	if _, err := s.CourseRepo.FindEnrollment(order.UserID, order.CourseID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	enrollment := &model.Enrollment{
		UserID:   order.UserID,
		CourseID: order.CourseID,
		Status:   "enrolled",
	}
	if err := s.CourseRepo.CreateEnrollment(enrollment); err != nil && !isDuplicateKeyError(err) {
		return err
	}

	course, err := s.CourseRepo.FindByID(order.CourseID)
	if err != nil {
		return err
	}
	if course.IsStartupAward {
		user, err := s.UserRepo.FindByID(order.UserID)
		if err != nil {
			return err
		}
		if _, err := s.AwardService.TrackPhase1Enrollment(user.Email, order.CourseID); err != nil {
			return err
		}
	}
	return nil
}
