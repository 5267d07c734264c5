package service

import (
	"fmt"
	"startup_edu_backend/internal/config"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个测试一个独立的内存库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 共享缓存的内存库在最后一个连接关闭时销毁，固定单连接
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.AuthIdentity{},
		&model.Course{},
		&model.Lesson{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.LessonProgress{},
		&model.QuizAttempt{},
		&model.Enrollment{},
		&model.StartupAwardProgress{},
		&model.Order{},
	))
	return db
}

type testEnv struct {
	db       *gorm.DB
	users    *repository.UserRepository
	courses  *repository.CourseRepository
	lessons  *repository.LessonRepository
	quizzes  *repository.QuizRepository
	progress *repository.ProgressRepository
	awards   *repository.StartupAwardRepository
}

func newTestEnv(t *testing.T) *testEnv {
	db := newTestDB(t)
	return &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		courses:  repository.NewCourseRepository(db),
		lessons:  repository.NewLessonRepository(db),
		quizzes:  repository.NewQuizRepository(db),
		progress: repository.NewProgressRepository(db),
		awards:   repository.NewStartupAwardRepository(db),
	}
}

func (e *testEnv) progressService() *ProgressService {
	return NewProgressService(e.progress, e.lessons, e.quizzes)
}

func (e *testEnv) awardService(notifier PhaseNotifier) *StartupAwardService {
	return NewStartupAwardService(e.awards, e.progress, e.lessons, e.courses, e.users, notifier)
}

func (e *testEnv) authService() *AuthService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "unit-test-secret-0123456789abcdef"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(e.users, cfg)
}

func (e *testEnv) contentService() *ContentService {
	courseSvc := NewCourseService(e.courses, e.progressService(), e.awardService(nil), e.users, nil)
	return NewContentService(e.courses, e.lessons, e.quizzes, courseSvc, nil)
}

// seedCourse 建一门带n节课的课程，课节按1..n排序
func (e *testEnv) seedCourse(t *testing.T, n int, isAward bool) (*model.Course, []model.Lesson) {
	t.Helper()

	course := &model.Course{
		Title:          "Startup Fundamentals",
		Published:      true,
		IsStartupAward: isAward,
	}
	require.NoError(t, e.courses.Create(course))

	lessons := make([]model.Lesson, 0, n)
	for i := 1; i <= n; i++ {
		lesson := model.Lesson{
			CourseID: course.ID,
			Title:    fmt.Sprintf("Lesson %d", i),
			Order:    i,
		}
		require.NoError(t, e.lessons.Create(&lesson))
		lessons = append(lessons, lesson)
	}
	return course, lessons
}

func (e *testEnv) seedUser(t *testing.T, email string) *model.User {
	t.Helper()

	user := &model.User{
		Name:     "Test Student",
		Email:    email,
		Password: "hashed",
		Role:     model.Student,
	}
	require.NoError(t, e.users.Create(user))
	return user
}
