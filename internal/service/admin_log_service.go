package service

import (
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/pkg/logger"

	"go.uber.org/zap"
)

// AdminLogService 管理后台操作审计
// 审计写入失败只记日志，不阻断业务操作。
type AdminLogService struct {
	LogRepo *repository.AdminLogRepository
}

func NewAdminLogService(logRepo *repository.AdminLogRepository) *AdminLogService {
	return &AdminLogService{LogRepo: logRepo}
}

func (s *AdminLogService) Record(adminID uint, action, target, detail, clientIP string) {
	entry := &model.AdminLog{
		AdminID:  adminID,
		Action:   action,
		Target:   target,
		Detail:   detail,
		ClientIP: clientIP,
	}
	if err := s.LogRepo.Create(entry); err != nil {
		logger.Log.Error("admin audit log write failed",
			zap.Uint("adminID", adminID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *AdminLogService) GetLogs(page, limit int) ([]model.AdminLog, int64, error) {
	return s.LogRepo.FindAll(page, limit)
}
