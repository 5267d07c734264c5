package service

import (
	"startup_edu_backend/internal/config"
	"startup_edu_backend/pkg/logger"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// NotificationService 阶段完成通知的webhook派发
// fire-and-forget：在独立goroutine里发送，失败只记日志，
// 绝不回滚已提交的阶段完成写入。
type NotificationService struct {
	client *resty.Client

	mu         sync.RWMutex
	webhookURL string
}

func NewNotificationService(cfg *config.NotificationConfig) *NotificationService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &NotificationService{
		client:     client,
		webhookURL: cfg.WebhookURL,
	}
}

// UpdateConfig 配置热更新入口，只有webhook地址可以在运行时切换
func (s *NotificationService) UpdateConfig(cfg *config.NotificationConfig) {
	s.mu.Lock()
	s.webhookURL = cfg.WebhookURL
	s.mu.Unlock()
}

func (s *NotificationService) NotifyPhaseCompletion(event PhaseCompletionEvent) {
	s.mu.RLock()
	webhookURL := s.webhookURL
	s.mu.RUnlock()

	if webhookURL == "" {
		logger.Log.Debug("notification webhook not configured, skipping",
			zap.String("userEmail", event.UserEmail))
		return
	}

	go func() {
		resp, err := s.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(event).
			Post(webhookURL)
		if err != nil {
			logger.Log.Error("phase completion notification failed",
				zap.String("userEmail", event.UserEmail),
				zap.Uint("courseID", event.CourseID),
				zap.Error(err))
			return
		}
		if resp.StatusCode() >= 300 {
			logger.Log.Error("phase completion notification rejected",
				zap.String("userEmail", event.UserEmail),
				zap.Int("status", resp.StatusCode()),
				zap.String("body", resp.String()))
			return
		}
		logger.Log.Info("phase completion notification sent",
			zap.String("userEmail", event.UserEmail),
			zap.Uint("courseID", event.CourseID))
	}()
}
