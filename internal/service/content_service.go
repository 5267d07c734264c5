package service

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

// ContentService 管理后台的课程内容维护：课程、课节、测验
// 任何改动都会使公开目录缓存失效。
type ContentService struct {
	CourseRepo    *repository.CourseRepository
	LessonRepo    *repository.LessonRepository
	QuizRepo      *repository.QuizRepository
	CourseService *CourseService
	Storage       *StorageService
}

func NewContentService(
	courseRepo *repository.CourseRepository,
	lessonRepo *repository.LessonRepository,
	quizRepo *repository.QuizRepository,
	courseService *CourseService,
	storage *StorageService,
) *ContentService {
	return &ContentService{
		CourseRepo:    courseRepo,
		LessonRepo:    lessonRepo,
		QuizRepo:      quizRepo,
		CourseService: courseService,
		Storage:       storage,
	}
}

func (s *ContentService) CreateCourse(ctx context.Context, course *model.Course) error {
	if err := s.CourseRepo.Create(course); err != nil {
		return err
	}
	s.CourseService.InvalidateCatalogCache(ctx)
	return nil
}

func (s *ContentService) UpdateCourse(ctx context.Context, course *model.Course) error {
	if err := s.CourseRepo.Update(course); err != nil {
		return err
	}
	s.CourseService.InvalidateCatalogCache(ctx)
	return nil
}

func (s *ContentService) DeleteCourse(ctx context.Context, id uint) error {
	if err := s.CourseRepo.Delete(id); err != nil {
		return err
	}
	s.CourseService.InvalidateCatalogCache(ctx)
	return nil
}

func (s *ContentService) GetCourse(id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByIDWithLessons(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

// SetPublished 上架/下架课程
func (s *ContentService) SetPublished(ctx context.Context, courseID uint, published bool) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	course.Published = published
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	s.CourseService.InvalidateCatalogCache(ctx)
	return course, nil
}

func (s *ContentService) CreateLesson(ctx context.Context, lesson *model.Lesson) error {
	if _, err := s.CourseRepo.FindByID(lesson.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		return err
	}
	if err := s.LessonRepo.Create(lesson); err != nil {
		return err
	}
	s.CourseService.InvalidateCatalogCache(ctx)
	return nil
}

func (s *ContentService) UpdateLesson(ctx context.Context, lesson *model.Lesson) error {
	if err := s.LessonRepo.Update(lesson); err != nil {
		return err
	}
	s.CourseService.InvalidateCatalogCache(ctx)
	return nil
}

func (s *ContentService) DeleteLesson(ctx context.Context, id uint) error {
	if err := s.LessonRepo.Delete(id); err != nil {
		return err
	}
	s.CourseService.InvalidateCatalogCache(ctx)
	return nil
}

func isAllowedVideoExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range util.AllowedVideoExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// AttachLessonVideo 上传课节视频，探测到的时长写回课节
func (s *ContentService) AttachLessonVideo(ctx context.Context, lessonID uint, file *multipart.FileHeader) (*model.Lesson, error) {
	if !isAllowedVideoExtension(file.Filename) {
		return nil, errors.New("unsupported video format")
	}

	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	url, duration, err := s.Storage.UploadLessonVideo(ctx, file)
	if err != nil {
		return nil, err
	}

	if lesson.VideoURL != "" {
		// 旧视频清理失败不阻塞替换
		_ = s.Storage.DeleteFile(ctx, lesson.VideoURL)
	}

	lesson.VideoURL = url
	lesson.VideoDuration = duration
	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// SaveQuiz 创建或整体替换课节测验
func (s *ContentService) SaveQuiz(lessonID uint, quiz *model.Quiz) error {
	if _, err := s.LessonRepo.FindByID(lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrLessonNotFound
		}
		return err
	}
	quiz.LessonID = lessonID

	existing, err := s.QuizRepo.FindByLesson(lessonID)
	if err == nil {
		if err := s.QuizRepo.Delete(existing.ID); err != nil {
			return err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.QuizRepo.Create(quiz)
}
