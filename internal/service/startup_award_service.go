package service

import (
	"errors"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"
	"startup_edu_backend/pkg/logger"
	"startup_edu_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IdentitySource 标记按邮箱解析用户时命中的存储
type IdentitySource string

const (
	IdentityPrimary  IdentitySource = "found-primary"  // users表命中
	IdentityFallback IdentitySource = "found-fallback" // 认证提供商身份表命中
	IdentityNotFound IdentitySource = "not-found"
)

// ResolvedIdentity 按邮箱解析的结果
type ResolvedIdentity struct {
	Source IdentitySource
	UserID uint
	Email  string
	Name   string
}

// PhaseCompletionEvent 阶段完成通知的载荷
type PhaseCompletionEvent struct {
	UserEmail         string     `json:"userEmail"`
	UserName          string     `json:"userName,omitempty"`
	UserID            uint       `json:"userId"`
	CourseID          uint       `json:"courseId"`
	CourseTitle       string     `json:"courseTitle"`
	Phase             int        `json:"phase"`
	CompletedAt       time.Time  `json:"completedAt"`
	Phase1CompletedAt *time.Time `json:"phase1CompletedAt,omitempty"`
}

// PhaseNotifier 阶段完成后的外发通知，发送失败不影响已提交的完成写入
type PhaseNotifier interface {
	NotifyPhaseCompletion(event PhaseCompletionEvent)
}

// AwardStatusView 创业奖进度快照
type AwardStatusView struct {
	model.StartupAwardProgress
	IsPhase1Completed bool `json:"isPhase1Completed"`
}

// StartupAwardService 跟踪用户在创业奖三阶段计划中的进度，按(邮箱, 课程)记账
type StartupAwardService struct {
	AwardRepo    *repository.StartupAwardRepository
	ProgressRepo *repository.ProgressRepository
	LessonRepo   *repository.LessonRepository
	CourseRepo   *repository.CourseRepository
	UserRepo     *repository.UserRepository
	Notifier     PhaseNotifier
}

func NewStartupAwardService(
	awardRepo *repository.StartupAwardRepository,
	progressRepo *repository.ProgressRepository,
	lessonRepo *repository.LessonRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	notifier PhaseNotifier,
) *StartupAwardService {
	return &StartupAwardService{
		AwardRepo:    awardRepo,
		ProgressRepo: progressRepo,
		LessonRepo:   lessonRepo,
		CourseRepo:   courseRepo,
		UserRepo:     userRepo,
		Notifier:     notifier,
	}
}

// ResolveUserByEmail 两级身份解析：users表优先，认证提供商身份表兜底
// 用户可能先出现在认证子系统、稍后才在users表落地。
func (s *StartupAwardService) ResolveUserByEmail(email string) (*ResolvedIdentity, error) {
	user, err := s.UserRepo.FindByEmail(email)
	if err == nil {
		return &ResolvedIdentity{
			Source: IdentityPrimary,
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	identity, err := s.UserRepo.FindIdentityByEmail(email)
	if err == nil {
		resolved := &ResolvedIdentity{
			Source: IdentityFallback,
			Email:  identity.Email,
			Name:   identity.Name,
		}
		if identity.UserID != nil {
			resolved.UserID = *identity.UserID
		}
		return resolved, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return &ResolvedIdentity{Source: IdentityNotFound}, util.ErrUserNotFound
}

// TrackPhase1Enrollment 登记第一阶段报名
// phase1_enrolled_at首次调用生效，重复报名不覆盖原时间。
func (s *StartupAwardService) TrackPhase1Enrollment(userEmail string, courseID uint) (*model.StartupAwardProgress, error) {
	return s.trackPhaseEnrollment(userEmail, courseID, 1)
}

// TrackPhaseEnrollment 登记指定阶段（1-3）的报名，同样首次调用生效
func (s *StartupAwardService) TrackPhaseEnrollment(userEmail string, courseID uint, phase int) (*model.StartupAwardProgress, error) {
	if phase < 1 || phase > 3 {
		return nil, errors.New("phase must be between 1 and 3")
	}
	return s.trackPhaseEnrollment(userEmail, courseID, phase)
}

func (s *StartupAwardService) trackPhaseEnrollment(userEmail string, courseID uint, phase int) (*model.StartupAwardProgress, error) {
	now := time.Now()

	rec, err := s.AwardRepo.FindByEmailAndCourse(userEmail, courseID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		rec = &model.StartupAwardProgress{
			UserEmail:    userEmail,
			CourseID:     courseID,
			CurrentPhase: phase,
			Status:       model.AwardEnrolled,
		}
		setPhaseEnrolledAt(rec, phase, now)
		if createErr := s.AwardRepo.Create(rec); createErr != nil {
			// 并发首次报名撞唯一键：以已有记录为准重读
			if !isDuplicateKeyError(createErr) {
				return nil, createErr
			}
			rec, err = s.AwardRepo.FindByEmailAndCourse(userEmail, courseID)
			if err != nil {
				return nil, err
			}
		} else {
			return rec, nil
		}
	}

	changed := false
	if phaseEnrolledAt(rec, phase) == nil {
		setPhaseEnrolledAt(rec, phase, now)
		changed = true
	}
	if phase > rec.CurrentPhase {
		rec.CurrentPhase = phase
		rec.Status = model.AwardEnrolled
		changed = true
	}
	if changed {
		if err := s.AwardRepo.Save(rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// CheckAndUpdatePhase1Completion 聚合课程内全部课节的完成状态
// 只有每节课都有completed记录才算完成；首次判定完成时落盘时间戳、
// 推进current_phase并在提交后异步发出通知。重复调用是无操作。
func (s *StartupAwardService) CheckAndUpdatePhase1Completion(userEmail string, courseID, userID uint) (bool, error) {
	lessons, err := s.LessonRepo.FindByCourse(courseID)
	if err != nil {
		return false, err
	}
	if len(lessons) == 0 {
		return false, nil
	}

	completedIDs, err := s.ProgressRepo.CompletedLessonIDs(userID, courseID)
	if err != nil {
		return false, err
	}
	completed := make(map[uint]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}
	for _, lesson := range lessons {
		if !completed[lesson.ID] {
			return false, nil
		}
	}

	rec, err := s.AwardRepo.FindByEmailAndCourse(userEmail, courseID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		// 完成检查先于报名登记到达时补建记录
		rec, err = s.trackPhaseEnrollment(userEmail, courseID, 1)
		if err != nil {
			return false, err
		}
	}

	if rec.Phase1CompletedAt != nil {
		return true, nil
	}

	now := time.Now()
	rec.Phase1CompletedAt = &now
	rec.CurrentPhase = 2
	rec.Status = model.AwardCompleted
	if err := s.AwardRepo.Save(rec); err != nil {
		return false, err
	}

	monitoring.AwardPhaseCompletions.Inc()
	logger.Log.Info("startup award phase 1 completed",
		zap.String("userEmail", userEmail),
		zap.Uint("courseID", courseID))

	s.dispatchCompletionNotification(userEmail, courseID, userID, rec, now)
	return true, nil
}

// dispatchCompletionNotification 通知是提交后的旁路副作用，失败只记日志
func (s *StartupAwardService) dispatchCompletionNotification(userEmail string, courseID, userID uint, rec *model.StartupAwardProgress, completedAt time.Time) {
	if s.Notifier == nil {
		return
	}

	event := PhaseCompletionEvent{
		UserEmail:         userEmail,
		UserID:            userID,
		CourseID:          courseID,
		Phase:             1,
		CompletedAt:       completedAt,
		Phase1CompletedAt: rec.Phase1CompletedAt,
	}

	if identity, err := s.ResolveUserByEmail(userEmail); err == nil {
		event.UserName = identity.Name
	}
	if course, err := s.CourseRepo.FindByID(courseID); err == nil {
		event.CourseTitle = course.Title
	}

	s.Notifier.NotifyPhaseCompletion(event)
}

// HandleLessonCompletion 课节完成后的旁路检查入口
// 非创业奖课程直接跳过；检查失败只记日志，不影响进度写入的结果。
func (s *StartupAwardService) HandleLessonCompletion(userEmail string, userID, lessonID uint) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return
	}
	course, err := s.CourseRepo.FindByID(lesson.CourseID)
	if err != nil || !course.IsStartupAward {
		return
	}

	if _, err := s.CheckAndUpdatePhase1Completion(userEmail, lesson.CourseID, userID); err != nil {
		logger.Log.Error("award completion check failed",
			zap.String("userEmail", userEmail),
			zap.Uint("courseID", lesson.CourseID),
			zap.Error(err))
	}
}

// GetStartupAwardStatus 未报名时返回nil哨兵，由调用方映射为"未报名"
func (s *StartupAwardService) GetStartupAwardStatus(userEmail string, courseID uint) (*AwardStatusView, error) {
	rec, err := s.AwardRepo.FindByEmailAndCourse(userEmail, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &AwardStatusView{
		StartupAwardProgress: *rec,
		IsPhase1Completed:    rec.Phase1CompletedAt != nil,
	}, nil
}

// ResetPhase1 QA用重置：清空用户在课程内的全部进度，
// 奖项记录回到第一阶段已报名、未完成的状态。
func (s *StartupAwardService) ResetPhase1(userEmail string, courseID, userID uint) error {
	if err := s.ProgressRepo.DeleteByUserAndCourse(userID, courseID); err != nil {
		return err
	}

	rec, err := s.AwardRepo.FindByEmailAndCourse(userEmail, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAwardNotEnrolled
		}
		return err
	}

	rec.Phase1CompletedAt = nil
	rec.CurrentPhase = 1
	rec.Status = model.AwardEnrolled
	return s.AwardRepo.Save(rec)
}

// ReconcilePendingCompletions 后台对账
// 课节完成写入与阶段推进是两次独立提交，中间崩溃会留下
// "课已完成、阶段未推进"的陈旧状态，这里定期重查补齐。
func (s *StartupAwardService) ReconcilePendingCompletions(batchSize int) error {
	recs, err := s.AwardRepo.FindEnrolled(batchSize)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		identity, err := s.ResolveUserByEmail(rec.UserEmail)
		if err != nil || identity.UserID == 0 {
			continue
		}
		if _, err := s.CheckAndUpdatePhase1Completion(rec.UserEmail, rec.CourseID, identity.UserID); err != nil {
			logger.Log.Error("award reconcile failed",
				zap.String("userEmail", rec.UserEmail),
				zap.Uint("courseID", rec.CourseID),
				zap.Error(err))
		}
	}
	return nil
}

func phaseEnrolledAt(rec *model.StartupAwardProgress, phase int) *time.Time {
	switch phase {
	case 1:
		return rec.Phase1EnrolledAt
	case 2:
		return rec.Phase2EnrolledAt
	default:
		return rec.Phase3EnrolledAt
	}
}

func setPhaseEnrolledAt(rec *model.StartupAwardProgress, phase int, t time.Time) {
	switch phase {
	case 1:
		rec.Phase1EnrolledAt = &t
	case 2:
		rec.Phase2EnrolledAt = &t
	default:
		rec.Phase3EnrolledAt = &t
	}
}
