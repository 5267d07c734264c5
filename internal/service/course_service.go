package service

import (
	"context"
	"encoding/json"
	"errors"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"
	"startup_edu_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	publishedCoursesCacheKey = "courses:published"
	publishedCoursesCacheTTL = 5 * time.Minute
)

// CourseDetail 课程详情，附带当前用户的进度与解锁状态
type CourseDetail struct {
	Course   model.Course    `json:"course"`
	Enrolled bool            `json:"enrolled"`
	Progress *CourseProgress `json:"progress,omitempty"`
}

// CourseService 课程目录、详情与选课
type CourseService struct {
	CourseRepo      *repository.CourseRepository
	ProgressService *ProgressService
	AwardService    *StartupAwardService
	UserRepo        *repository.UserRepository
	Redis           *redis.Client
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	progressService *ProgressService,
	awardService *StartupAwardService,
	userRepo *repository.UserRepository,
	rdb *redis.Client,
) *CourseService {
	return &CourseService{
		CourseRepo:      courseRepo,
		ProgressService: progressService,
		AwardService:    awardService,
		UserRepo:        userRepo,
		Redis:           rdb,
	}
}

// GetPublishedCourses 公开课程目录，redis缓存5分钟
func (s *CourseService) GetPublishedCourses(ctx context.Context) ([]model.Course, error) {
	if s.Redis != nil {
		cached, err := s.Redis.Get(ctx, publishedCoursesCacheKey).Result()
		if err == nil {
			var courses []model.Course
			if jsonErr := json.Unmarshal([]byte(cached), &courses); jsonErr == nil {
				return courses, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("course cache read failed", zap.Error(err))
		}
	}

	courses, err := s.CourseRepo.FindPublished()
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(courses); err == nil {
			if err := s.Redis.Set(ctx, publishedCoursesCacheKey, raw, publishedCoursesCacheTTL).Err(); err != nil {
				logger.Log.Warn("course cache write failed", zap.Error(err))
			}
		}
	}
	return courses, nil
}

// InvalidateCatalogCache 管理端改动课程后调用
func (s *CourseService) InvalidateCatalogCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, publishedCoursesCacheKey).Err(); err != nil {
		logger.Log.Warn("course cache invalidation failed", zap.Error(err))
	}
}

// GetCourseDetail 课程详情
// userID为0时按匿名访客处理：课节全部锁定、无进度。
func (s *CourseService) GetCourseDetail(courseID, userID uint) (*CourseDetail, error) {
	course, err := s.CourseRepo.FindByIDWithLessons(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	detail := &CourseDetail{Course: *course}
	if userID == 0 {
		return detail, nil
	}

	if _, err := s.CourseRepo.FindEnrollment(userID, courseID); err == nil {
		detail.Enrolled = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress, err := s.ProgressService.GetCourseProgress(userID, courseID)
	if err != nil {
		return nil, err
	}
	detail.Progress = progress
	return detail, nil
}

// Enroll 免费课程直接选课，付费课程走订单流程
// 创业奖课程选课成功后顺带登记第一阶段报名。
func (s *CourseService) Enroll(userID, courseID uint) (*model.Enrollment, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if course.PriceAmount > 0 {
		return nil, util.ErrCourseNotFree
	}

	if _, err := s.CourseRepo.FindEnrollment(userID, courseID); err == nil {
		return nil, util.ErrAlreadyEnrolled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   "enrolled",
	}
	if err := s.CourseRepo.CreateEnrollment(enrollment); err != nil {
		if isDuplicateKeyError(err) {
			return nil, util.ErrAlreadyEnrolled
		}
		return nil, err
	}

	if course.IsStartupAward {
		user, err := s.UserRepo.FindByID(userID)
		if err != nil {
			return nil, err
		}
		if _, err := s.AwardService.TrackPhase1Enrollment(user.Email, courseID); err != nil {
			logger.Log.Error("award enrollment tracking failed",
				zap.Uint("userID", userID),
				zap.Uint("courseID", courseID),
				zap.Error(err))
		}
	}
	return enrollment, nil
}

// GetMyEnrollments 当前用户的选课列表
func (s *CourseService) GetMyEnrollments(userID uint) ([]model.Enrollment, error) {
	return s.CourseRepo.FindEnrollmentsByUser(userID)
}
