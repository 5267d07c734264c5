package service

import (
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkVideoWatchedIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	_, lessons := env.seedCourse(t, 3, false)

	first, err := svc.MarkVideoWatched(user.ID, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, first.VideoWatched)
	require.NotNil(t, first.VideoWatchedAt)
	assert.False(t, first.Completed)

	second, err := svc.MarkVideoWatched(user.ID, lessons[0].ID)
	require.NoError(t, err)

	// 只有一行记录，首次观看时间不被覆盖
	var count int64
	env.db.Model(&model.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ?", user.ID, lessons[0].ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, first.VideoWatchedAt.Unix(), second.VideoWatchedAt.Unix())
}

func TestMarkVideoWatchedUnknownLesson(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")

	_, err := svc.MarkVideoWatched(user.ID, 9999)
	assert.ErrorIs(t, err, util.ErrLessonNotFound)
}

func TestMarkLessonCompletedSetsTimestampOnce(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	_, lessons := env.seedCourse(t, 2, false)

	first, err := svc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)
	require.True(t, first.Completed)
	require.NotNil(t, first.CompletedAt)

	second, err := svc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.True(t, second.Completed)
	assert.Equal(t, first.CompletedAt.Unix(), second.CompletedAt.Unix())
}

func TestLessonUnlockChain(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	_, lessons := env.seedCourse(t, 3, false)

	// 第1节对登录用户始终解锁
	unlocked, err := svc.IsLessonUnlocked(user.ID, 1, lessons)
	require.NoError(t, err)
	assert.True(t, unlocked)

	// 前一节未完成，第2节锁定
	unlocked, err = svc.IsLessonUnlocked(user.ID, 2, lessons)
	require.NoError(t, err)
	assert.False(t, unlocked)

	_, err = svc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)

	unlocked, err = svc.IsLessonUnlocked(user.ID, 2, lessons)
	require.NoError(t, err)
	assert.True(t, unlocked)

	// 完成第1节不解锁第3节
	unlocked, err = svc.IsLessonUnlocked(user.ID, 3, lessons)
	require.NoError(t, err)
	assert.False(t, unlocked)
}

func TestLessonUnlockAnonymousAndGaps(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	_, lessons := env.seedCourse(t, 3, false)

	// 未登录用户一律锁定，包括第1节
	unlocked, err := svc.IsLessonUnlocked(0, 1, lessons)
	require.NoError(t, err)
	assert.False(t, unlocked)

	// 序号断档：传入列表缺少第N-1节时锁定
	user := env.seedUser(t, "student@example.com")
	gapped := []model.Lesson{lessons[0], lessons[2]}
	unlocked, err = svc.IsLessonUnlocked(user.ID, 3, gapped)
	require.NoError(t, err)
	assert.False(t, unlocked)
}

func TestGetLessonStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	_, lessons := env.seedCourse(t, 2, false)

	// 无进度记录视为locked
	status, err := svc.GetLessonStatus(user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonLocked, status)

	_, err = svc.MarkVideoWatched(user.ID, lessons[0].ID)
	require.NoError(t, err)
	status, err = svc.GetLessonStatus(user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonUnlocked, status)

	_, err = svc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)
	status, err = svc.GetLessonStatus(user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonCompleted, status)
}

func seedQuiz(t *testing.T, env *testEnv, lessonID uint) *model.Quiz {
	t.Helper()

	quiz := &model.Quiz{
		LessonID:     lessonID,
		Title:        "Checkpoint",
		PassingScore: 60,
		Questions: []model.QuizQuestion{
			{Text: "Q1", OptionsJSON: `["a","b"]`, CorrectIndex: 0, Order: 1},
			{Text: "Q2", OptionsJSON: `["a","b"]`, CorrectIndex: 1, Order: 2},
		},
	}
	require.NoError(t, env.quizzes.Create(quiz))
	return quiz
}

func TestGetQuizForLesson(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	_, lessons := env.seedCourse(t, 1, false)
	quiz := seedQuiz(t, env, lessons[0].ID)

	got, attempts, err := svc.GetQuizForLesson(user.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, got.ID)
	assert.Len(t, got.Questions, 2)
	assert.Empty(t, attempts)

	_, _, err = svc.SubmitQuiz(user.ID, lessons[0].ID, map[uint]int{
		quiz.Questions[0].ID: 1,
		quiz.Questions[1].ID: 0,
	})
	require.NoError(t, err)

	_, attempts, err = svc.GetQuizForLesson(user.ID, lessons[0].ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Passed)

	// 无测验的课节
	other := &model.Lesson{CourseID: lessons[0].CourseID, Title: "No quiz", Order: 2}
	require.NoError(t, env.lessons.Create(other))
	_, _, err = svc.GetQuizForLesson(user.ID, other.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestSubmitQuizGrading(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	_, lessons := env.seedCourse(t, 1, false)
	quiz := seedQuiz(t, env, lessons[0].ID)

	// 全对：通过并完成课节
	grade, progress, err := svc.SubmitQuiz(user.ID, lessons[0].ID, map[uint]int{
		quiz.Questions[0].ID: 0,
		quiz.Questions[1].ID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, grade.Score)
	assert.True(t, grade.Passed)
	assert.True(t, progress.Completed)
	assert.True(t, progress.QuizCompleted)
	require.NotNil(t, progress.CompletedAt)
}

func TestSubmitQuizFailedThenPassed(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	_, lessons := env.seedCourse(t, 1, false)
	quiz := seedQuiz(t, env, lessons[0].ID)

	// 全错：记作答，不完成
	grade, progress, err := svc.SubmitQuiz(user.ID, lessons[0].ID, map[uint]int{
		quiz.Questions[0].ID: 1,
		quiz.Questions[1].ID: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, grade.Score)
	assert.False(t, grade.Passed)
	assert.False(t, progress.Completed)

	grade, progress, err = svc.SubmitQuiz(user.ID, lessons[0].ID, map[uint]int{
		quiz.Questions[0].ID: 0,
		quiz.Questions[1].ID: 1,
	})
	require.NoError(t, err)
	assert.True(t, grade.Passed)
	assert.True(t, progress.Completed)

	// 两次作答记录，一条进度记录
	var attempts int64
	env.db.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", user.ID, quiz.ID).
		Count(&attempts)
	assert.Equal(t, int64(2), attempts)

	var progressRows int64
	env.db.Model(&model.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ?", user.ID, lessons[0].ID).
		Count(&progressRows)
	assert.Equal(t, int64(1), progressRows)
}

func TestCompletedLessonSurvivesFailedRetake(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	_, lessons := env.seedCourse(t, 1, false)
	quiz := seedQuiz(t, env, lessons[0].ID)

	passAnswers := map[uint]int{
		quiz.Questions[0].ID: 0,
		quiz.Questions[1].ID: 1,
	}
	_, progress, err := svc.SubmitQuiz(user.ID, lessons[0].ID, passAnswers)
	require.NoError(t, err)
	require.True(t, progress.Completed)
	completedAt := progress.CompletedAt

	// 已完成的课节不因后续失败的作答回退
	grade, progress, err := svc.SubmitQuiz(user.ID, lessons[0].ID, map[uint]int{
		quiz.Questions[0].ID: 1,
		quiz.Questions[1].ID: 0,
	})
	require.NoError(t, err)
	assert.False(t, grade.Passed)
	assert.True(t, progress.Completed)
	require.NotNil(t, progress.CompletedAt)
	assert.Equal(t, completedAt.Unix(), progress.CompletedAt.Unix())

	// 失败的作答仍被保留
	var attempts int64
	env.db.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", user.ID, quiz.ID).
		Count(&attempts)
	assert.Equal(t, int64(2), attempts)
}

func TestGetCourseProgress(t *testing.T) {
	env := newTestEnv(t)
	svc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	course, lessons := env.seedCourse(t, 3, false)

	_, err := svc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)

	snapshot, err := svc.GetCourseProgress(user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Lessons, 3)
	assert.Equal(t, 1, snapshot.CompletedCount)
	assert.Equal(t, 3, snapshot.TotalCount)

	assert.Equal(t, model.LessonCompleted, snapshot.Lessons[0].Status)
	assert.True(t, snapshot.Lessons[0].Unlocked)
	assert.True(t, snapshot.Lessons[1].Unlocked)
	assert.Equal(t, model.LessonLocked, snapshot.Lessons[1].Status)
	assert.False(t, snapshot.Lessons[2].Unlocked)
}
