package service

import (
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubNotifier 收集派发的通知事件
type stubNotifier struct {
	mu     sync.Mutex
	events []PhaseCompletionEvent
}

func (s *stubNotifier) NotifyPhaseCompletion(event PhaseCompletionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *stubNotifier) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestTrackPhase1EnrollmentFirstCallWins(t *testing.T) {
	env := newTestEnv(t)
	svc := env.awardService(nil)
	course, _ := env.seedCourse(t, 2, true)

	first, err := svc.TrackPhase1Enrollment("founder@example.com", course.ID)
	require.NoError(t, err)
	require.NotNil(t, first.Phase1EnrolledAt)
	assert.Equal(t, 1, first.CurrentPhase)
	assert.Equal(t, model.AwardEnrolled, first.Status)

	time.Sleep(1100 * time.Millisecond)

	second, err := svc.TrackPhase1Enrollment("founder@example.com", course.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	// 重复报名不覆盖首次报名时间
	assert.Equal(t, first.Phase1EnrolledAt.Unix(), second.Phase1EnrolledAt.Unix())
}

func TestTrackPhaseEnrollmentRaisesCurrentPhase(t *testing.T) {
	env := newTestEnv(t)
	svc := env.awardService(nil)
	course, _ := env.seedCourse(t, 2, true)

	_, err := svc.TrackPhase1Enrollment("founder@example.com", course.ID)
	require.NoError(t, err)

	rec, err := svc.TrackPhaseEnrollment("founder@example.com", course.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentPhase)
	require.NotNil(t, rec.Phase2EnrolledAt)
	require.NotNil(t, rec.Phase1EnrolledAt)

	// 低阶段登记不回退current_phase
	rec, err = svc.TrackPhaseEnrollment("founder@example.com", course.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.CurrentPhase)

	_, err = svc.TrackPhaseEnrollment("founder@example.com", course.ID, 4)
	assert.Error(t, err)
}

func TestCheckAndUpdatePhase1CompletionAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	notifier := &stubNotifier{}
	svc := env.awardService(notifier)
	progressSvc := env.progressService()
	user := env.seedUser(t, "founder@example.com")
	course, lessons := env.seedCourse(t, 3, true)

	_, err := svc.TrackPhase1Enrollment(user.Email, course.ID)
	require.NoError(t, err)

	// 只完成部分课节：不算完成
	_, err = progressSvc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)
	_, err = progressSvc.MarkLessonCompleted(user.ID, lessons[1].ID)
	require.NoError(t, err)

	completed, err := svc.CheckAndUpdatePhase1Completion(user.Email, course.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, 0, notifier.count())

	// 全部完成：落盘时间戳、推进阶段、发通知
	_, err = progressSvc.MarkLessonCompleted(user.ID, lessons[2].ID)
	require.NoError(t, err)

	completed, err = svc.CheckAndUpdatePhase1Completion(user.Email, course.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	rec, err := env.awards.FindByEmailAndCourse(user.Email, course.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Phase1CompletedAt)
	assert.Equal(t, 2, rec.CurrentPhase)
	assert.Equal(t, model.AwardCompleted, rec.Status)
	assert.Equal(t, 1, notifier.count())
}

func TestCheckAndUpdatePhase1CompletionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	notifier := &stubNotifier{}
	svc := env.awardService(notifier)
	progressSvc := env.progressService()
	user := env.seedUser(t, "founder@example.com")
	course, lessons := env.seedCourse(t, 1, true)

	_, err := progressSvc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)

	completed, err := svc.CheckAndUpdatePhase1Completion(user.Email, course.ID, user.ID)
	require.NoError(t, err)
	require.True(t, completed)

	rec, err := env.awards.FindByEmailAndCourse(user.Email, course.ID)
	require.NoError(t, err)
	completedAt := rec.Phase1CompletedAt

	time.Sleep(1100 * time.Millisecond)

	// 重复检查：时间戳不变，不再发通知
	completed, err = svc.CheckAndUpdatePhase1Completion(user.Email, course.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	rec, err = env.awards.FindByEmailAndCourse(user.Email, course.ID)
	require.NoError(t, err)
	assert.Equal(t, completedAt.Unix(), rec.Phase1CompletedAt.Unix())
	assert.Equal(t, 1, notifier.count())
}

func TestCheckCompletionAutoEnrollsMissingRecord(t *testing.T) {
	env := newTestEnv(t)
	svc := env.awardService(nil)
	progressSvc := env.progressService()
	user := env.seedUser(t, "founder@example.com")
	course, lessons := env.seedCourse(t, 1, true)

	// 完成检查先于报名登记到达
	_, err := progressSvc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)

	completed, err := svc.CheckAndUpdatePhase1Completion(user.Email, course.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	rec, err := env.awards.FindByEmailAndCourse(user.Email, course.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Phase1EnrolledAt)
	require.NotNil(t, rec.Phase1CompletedAt)
}

func TestCheckCompletionEmptyCourse(t *testing.T) {
	env := newTestEnv(t)
	svc := env.awardService(nil)
	user := env.seedUser(t, "founder@example.com")
	course, _ := env.seedCourse(t, 0, true)

	// 零课节的课程永远不算完成
	completed, err := svc.CheckAndUpdatePhase1Completion(user.Email, course.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestResolveUserByEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := env.awardService(nil)
	user := env.seedUser(t, "primary@example.com")

	// users表命中
	resolved, err := svc.ResolveUserByEmail("primary@example.com")
	require.NoError(t, err)
	assert.Equal(t, IdentityPrimary, resolved.Source)
	assert.Equal(t, user.ID, resolved.UserID)

	// 认证提供商身份表兜底
	linked := user.ID
	require.NoError(t, env.users.CreateIdentity(&model.AuthIdentity{
		Provider: "google",
		Subject:  "sub-123",
		Email:    "fallback@example.com",
		Name:     "Fallback Founder",
		UserID:   &linked,
	}))

	resolved, err = svc.ResolveUserByEmail("fallback@example.com")
	require.NoError(t, err)
	assert.Equal(t, IdentityFallback, resolved.Source)
	assert.Equal(t, user.ID, resolved.UserID)
	assert.Equal(t, "Fallback Founder", resolved.Name)

	// 双表均未命中
	resolved, err = svc.ResolveUserByEmail("missing@example.com")
	assert.ErrorIs(t, err, util.ErrUserNotFound)
	assert.Equal(t, IdentityNotFound, resolved.Source)
}

func TestGetStartupAwardStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := env.awardService(nil)
	course, _ := env.seedCourse(t, 1, true)

	// 未报名返回nil哨兵
	status, err := svc.GetStartupAwardStatus("nobody@example.com", course.ID)
	require.NoError(t, err)
	assert.Nil(t, status)

	_, err = svc.TrackPhase1Enrollment("founder@example.com", course.ID)
	require.NoError(t, err)

	status, err = svc.GetStartupAwardStatus("founder@example.com", course.ID)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.False(t, status.IsPhase1Completed)
	assert.Equal(t, 1, status.CurrentPhase)
}

func TestResetPhase1(t *testing.T) {
	env := newTestEnv(t)
	svc := env.awardService(nil)
	progressSvc := env.progressService()
	user := env.seedUser(t, "founder@example.com")
	course, lessons := env.seedCourse(t, 2, true)

	_, err := progressSvc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)
	_, err = progressSvc.MarkLessonCompleted(user.ID, lessons[1].ID)
	require.NoError(t, err)

	completed, err := svc.CheckAndUpdatePhase1Completion(user.Email, course.ID, user.ID)
	require.NoError(t, err)
	require.True(t, completed)

	require.NoError(t, svc.ResetPhase1(user.Email, course.ID, user.ID))

	// 进度清空，奖项记录回到已报名未完成
	var progressRows int64
	env.db.Model(&model.LessonProgress{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&progressRows)
	assert.Equal(t, int64(0), progressRows)

	rec, err := env.awards.FindByEmailAndCourse(user.Email, course.ID)
	require.NoError(t, err)
	assert.Nil(t, rec.Phase1CompletedAt)
	assert.Equal(t, 1, rec.CurrentPhase)
	assert.Equal(t, model.AwardEnrolled, rec.Status)

	// 重置后可以重新走完整流程
	completed, err = svc.CheckAndUpdatePhase1Completion(user.Email, course.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestResetPhase1NotEnrolled(t *testing.T) {
	env := newTestEnv(t)
	svc := env.awardService(nil)
	user := env.seedUser(t, "founder@example.com")
	course, _ := env.seedCourse(t, 1, true)

	err := svc.ResetPhase1(user.Email, course.ID, user.ID)
	assert.ErrorIs(t, err, util.ErrAwardNotEnrolled)
}

func TestReconcilePendingCompletions(t *testing.T) {
	env := newTestEnv(t)
	notifier := &stubNotifier{}
	svc := env.awardService(notifier)
	progressSvc := env.progressService()
	user := env.seedUser(t, "founder@example.com")
	course, lessons := env.seedCourse(t, 1, true)

	_, err := svc.TrackPhase1Enrollment(user.Email, course.ID)
	require.NoError(t, err)

	// 模拟崩溃窗口：课节已完成但阶段未推进
	_, err = progressSvc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)

	require.NoError(t, svc.ReconcilePendingCompletions(100))

	rec, err := env.awards.FindByEmailAndCourse(user.Email, course.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Phase1CompletedAt)
	assert.Equal(t, model.AwardCompleted, rec.Status)
	assert.Equal(t, 1, notifier.count())
}

func TestHandleLessonCompletionSkipsNonAwardCourses(t *testing.T) {
	env := newTestEnv(t)
	notifier := &stubNotifier{}
	svc := env.awardService(notifier)
	progressSvc := env.progressService()
	user := env.seedUser(t, "student@example.com")
	course, lessons := env.seedCourse(t, 1, false)

	_, err := progressSvc.MarkLessonCompleted(user.ID, lessons[0].ID)
	require.NoError(t, err)

	svc.HandleLessonCompletion(user.Email, user.ID, lessons[0].ID)

	// 非创业奖课程不建奖项记录
	_, err = env.awards.FindByEmailAndCourse(user.Email, course.ID)
	assert.Error(t, err)
	assert.Equal(t, 0, notifier.count())
}
