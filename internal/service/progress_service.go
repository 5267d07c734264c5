package service

import (
	"encoding/json"
	"errors"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"
	"startup_edu_backend/pkg/logger"
	"startup_edu_backend/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProgressService 负责记录学习事实并回答课节的解锁/完成状态。
// 所有操作都显式接收userID，不读取任何环境态的会话信息。
type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	LessonRepo   *repository.LessonRepository
	QuizRepo     *repository.QuizRepository
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	lessonRepo *repository.LessonRepository,
	quizRepo *repository.QuizRepository,
) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		LessonRepo:   lessonRepo,
		QuizRepo:     quizRepo,
	}
}

// QuizGrade 测验判分结果
type QuizGrade struct {
	Score   int  `json:"score"`
	Total   int  `json:"total"`
	Correct int  `json:"correct"`
	Passed  bool `json:"passed"`
}

// LessonProgressView 课节及其对当前用户的派生状态
type LessonProgressView struct {
	Lesson   model.Lesson          `json:"lesson"`
	Status   model.LessonStatus    `json:"status"`
	Unlocked bool                  `json:"unlocked"`
	Progress *model.LessonProgress `json:"progress,omitempty"`
}

// CourseProgress 课程维度的进度快照
type CourseProgress struct {
	CourseID       uint                 `json:"courseId"`
	Lessons        []LessonProgressView `json:"lessons"`
	CompletedCount int                  `json:"completedCount"`
	TotalCount     int                  `json:"totalCount"`
}

// isDuplicateKeyError 并发upsert在唯一键上撞车时的错误判定
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

// MarkVideoWatched 记录视频观看完毕，不改变completed
// 对同一(user, course, lesson)重复调用是幂等的，只会存在一行记录。
func (s *ProgressService) MarkVideoWatched(userID, lessonID uint) (*model.LessonProgress, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := s.ProgressRepo.UpsertVideoWatched(userID, lesson.CourseID, lessonID, now); err != nil {
		// 并发写冲突视为良性，以当前库内状态为准
		if !isDuplicateKeyError(err) {
			return nil, err
		}
		logger.Log.Debug("progress upsert conflict, rereading",
			zap.Uint("userID", userID), zap.Uint("lessonID", lessonID))
	}

	return s.ProgressRepo.FindByUserAndLesson(userID, lesson.CourseID, lessonID)
}

// MarkLessonCompleted 将课节标记为已完成
// completed_at只在首次完成时落盘，重复调用效果不变。
func (s *ProgressService) MarkLessonCompleted(userID, lessonID uint) (*model.LessonProgress, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := s.ProgressRepo.UpsertCompleted(userID, lesson.CourseID, lessonID, now); err != nil {
		if !isDuplicateKeyError(err) {
			return nil, err
		}
	}

	monitoring.LessonCompletions.WithLabelValues("manual").Inc()
	return s.ProgressRepo.FindByUserAndLesson(userID, lesson.CourseID, lessonID)
}

// MarkQuizCompleted 记录一次测验作答
// 作答记录无条件追加保留；进度记录只有在通过时才标记完成。
// 对已完成的课节提交失败的作答只落作答记录，不回退completed。
func (s *ProgressService) MarkQuizCompleted(userID, lessonID, quizID uint, answers datatypes.JSON, score int, passed bool) (*model.LessonProgress, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	attempt := &model.QuizAttempt{
		UserID:   userID,
		QuizID:   quizID,
		LessonID: lessonID,
		Answers:  answers,
		Score:    score,
		Passed:   passed,
	}
	if err := s.QuizRepo.CreateAttempt(attempt); err != nil {
		return nil, err
	}

	existing, err := s.ProgressRepo.FindByUserAndLesson(userID, lesson.CourseID, lessonID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 已完成的课节不因后续失败的作答回退
	if err == nil && existing.Completed && !passed {
		return existing, nil
	}

	now := time.Now()
	if err := s.ProgressRepo.UpsertQuizResult(userID, lesson.CourseID, lessonID, passed, now); err != nil {
		if !isDuplicateKeyError(err) {
			return nil, err
		}
	}

	if passed {
		monitoring.LessonCompletions.WithLabelValues("quiz").Inc()
	}
	return s.ProgressRepo.FindByUserAndLesson(userID, lesson.CourseID, lessonID)
}

// GetQuizForLesson 学生端拉取课节测验及本人历史作答，正确答案不随响应下发
func (s *ProgressService) GetQuizForLesson(userID, lessonID uint) (*model.Quiz, []model.QuizAttempt, error) {
	quiz, err := s.QuizRepo.FindByLesson(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrQuizNotFound
		}
		return nil, nil, err
	}
	attempts, err := s.QuizRepo.FindAttempts(userID, quiz.ID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, attempts, nil
}

// SubmitQuiz 服务端判分后委托给MarkQuizCompleted
func (s *ProgressService) SubmitQuiz(userID, lessonID uint, answers map[uint]int) (*QuizGrade, *model.LessonProgress, error) {
	quiz, err := s.QuizRepo.FindByLesson(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrQuizNotFound
		}
		return nil, nil, err
	}

	total := len(quiz.Questions)
	correct := 0
	for _, q := range quiz.Questions {
		if idx, ok := answers[q.ID]; ok && idx == q.CorrectIndex {
			correct++
		}
	}

	score := 0
	if total > 0 {
		score = correct * 100 / total
	}
	passed := score >= quiz.PassingScore

	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, nil, err
	}

	progress, err := s.MarkQuizCompleted(userID, lessonID, quiz.ID, datatypes.JSON(raw), score, passed)
	if err != nil {
		return nil, nil, err
	}

	grade := &QuizGrade{
		Score:   score,
		Total:   total,
		Correct: correct,
		Passed:  passed,
	}
	return grade, progress, nil
}

// GetLessonStatus 无记录为locked，completed标志为completed，否则unlocked
func (s *ProgressService) GetLessonStatus(userID, lessonID uint) (model.LessonStatus, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrLessonNotFound
		}
		return "", err
	}

	rec, err := s.ProgressRepo.FindByUserAndLesson(userID, lesson.CourseID, lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.LessonLocked, nil
		}
		return "", err
	}

	if rec.Completed {
		return model.LessonCompleted, nil
	}
	return model.LessonUnlocked, nil
}

// IsLessonUnlocked 严格线性解锁
// 未登录用户（userID为0）一律锁定；第1节对登录用户始终解锁；
// 第N节（N>1）仅当传入的有序课节列表中存在第N-1节且其已完成时解锁。
// 解锁状态是读取时对已存事实的纯推导，不会落任何"unlocked"行。
func (s *ProgressService) IsLessonUnlocked(userID uint, lessonOrder int, lessons []model.Lesson) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	if lessonOrder == 1 {
		return true, nil
	}

	var prev *model.Lesson
	for i := range lessons {
		if lessons[i].Order == lessonOrder-1 {
			prev = &lessons[i]
			break
		}
	}
	if prev == nil {
		return false, nil
	}

	rec, err := s.ProgressRepo.FindByUserAndLesson(userID, prev.CourseID, prev.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.Completed, nil
}

// GetCourseProgress 课程内所有课节的进度与解锁状态快照
func (s *ProgressService) GetCourseProgress(userID, courseID uint) (*CourseProgress, error) {
	lessons, err := s.LessonRepo.FindByCourse(courseID)
	if err != nil {
		return nil, err
	}

	recs, err := s.ProgressRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		return nil, err
	}

	byLesson := make(map[uint]*model.LessonProgress, len(recs))
	for i := range recs {
		byLesson[recs[i].LessonID] = &recs[i]
	}

	result := &CourseProgress{
		CourseID:   courseID,
		TotalCount: len(lessons),
		Lessons:    make([]LessonProgressView, 0, len(lessons)),
	}

	for _, lesson := range lessons {
		view := LessonProgressView{Lesson: lesson, Status: model.LessonLocked}

		if rec, ok := byLesson[lesson.ID]; ok {
			view.Progress = rec
			if rec.Completed {
				view.Status = model.LessonCompleted
				result.CompletedCount++
			} else {
				view.Status = model.LessonUnlocked
			}
		}

		unlocked, err := s.isUnlockedInMap(userID, lesson.Order, lessons, byLesson)
		if err != nil {
			return nil, err
		}
		view.Unlocked = unlocked
		result.Lessons = append(result.Lessons, view)
	}

	return result, nil
}

// isUnlockedInMap 与IsLessonUnlocked同语义，但复用已取出的进度，避免逐节回查
func (s *ProgressService) isUnlockedInMap(userID uint, lessonOrder int, lessons []model.Lesson, byLesson map[uint]*model.LessonProgress) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	if lessonOrder == 1 {
		return true, nil
	}
	for i := range lessons {
		if lessons[i].Order == lessonOrder-1 {
			if rec, ok := byLesson[lessons[i].ID]; ok {
				return rec.Completed, nil
			}
			return false, nil
		}
	}
	return false, nil
}
