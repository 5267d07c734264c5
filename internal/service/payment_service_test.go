package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"startup_edu_backend/internal/config"
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/repository"
	"startup_edu_backend/internal/util"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentService(env *testEnv, award *StartupAwardService) *PaymentService {
	return NewPaymentService(
		repository.NewOrderRepository(env.db),
		env.courses,
		env.users,
		award,
		&config.RevolutConfig{
			APIKey:        "sk_test",
			BaseURL:       "https://sandbox-merchant.revolut.com",
			WebhookSecret: "wsk_test_secret",
		},
	)
}

func signWebhook(secret string, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v1." + timestamp + "."))
	mac.Write(payload)
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	env := newTestEnv(t)
	svc := newPaymentService(env, env.awardService(nil))

	payload := []byte(`{"event":"ORDER_COMPLETED","order_id":"rev-1"}`)
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	valid := signWebhook("wsk_test_secret", timestamp, payload)
	assert.NoError(t, svc.VerifyWebhookSignature(payload, timestamp, valid))

	// 多个候选签名里有一个匹配即可
	assert.NoError(t, svc.VerifyWebhookSignature(payload, timestamp, "v1=deadbeef,"+valid))

	// 错误密钥
	invalid := signWebhook("other_secret", timestamp, payload)
	assert.ErrorIs(t, svc.VerifyWebhookSignature(payload, timestamp, invalid), util.ErrInvalidSignature)

	// 篡改的载荷
	assert.ErrorIs(t, svc.VerifyWebhookSignature([]byte(`{"tampered":true}`), timestamp, valid), util.ErrInvalidSignature)

	// 非法时间戳
	assert.ErrorIs(t, svc.VerifyWebhookSignature(payload, "not-a-number", valid), util.ErrInvalidSignature)
}

func TestVerifyWebhookSignatureRejectsStaleTimestamp(t *testing.T) {
	env := newTestEnv(t)
	svc := newPaymentService(env, env.awardService(nil))

	payload := []byte(`{"event":"ORDER_COMPLETED","order_id":"rev-1"}`)
	stale := strconv.FormatInt(time.Now().Add(-10*time.Minute).UnixMilli(), 10)

	// 签名本身正确，但超出容忍窗口
	sig := signWebhook("wsk_test_secret", stale, payload)
	assert.ErrorIs(t, svc.VerifyWebhookSignature(payload, stale, sig), util.ErrInvalidSignature)
}

func TestHandleWebhookOrderCompleted(t *testing.T) {
	env := newTestEnv(t)
	award := env.awardService(nil)
	svc := newPaymentService(env, award)
	user := env.seedUser(t, "buyer@example.com")
	course, _ := env.seedCourse(t, 2, true)
	course.PriceAmount = 4900
	require.NoError(t, env.courses.Update(course))

	order := &model.Order{
		UserID:         user.ID,
		CourseID:       course.ID,
		Amount:         4900,
		Currency:       "EUR",
		State:          model.OrderPending,
		RevolutOrderID: "rev-100",
	}
	require.NoError(t, svc.OrderRepo.Create(order))

	require.NoError(t, svc.HandleWebhookEvent("ORDER_COMPLETED", "rev-100"))

	updated, err := svc.OrderRepo.FindByRevolutID("rev-100")
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, updated.State)
	require.NotNil(t, updated.PaidAt)

	// 落课与创业奖报名
	_, err = env.courses.FindEnrollment(user.ID, course.ID)
	assert.NoError(t, err)
	rec, err := env.awards.FindByEmailAndCourse(user.Email, course.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Phase1EnrolledAt)

	// 重复回调幂等
	paidAt := updated.PaidAt
	require.NoError(t, svc.HandleWebhookEvent("ORDER_COMPLETED", "rev-100"))
	updated, err = svc.OrderRepo.FindByRevolutID("rev-100")
	require.NoError(t, err)
	assert.Equal(t, paidAt.Unix(), updated.PaidAt.Unix())

	var enrollments int64
	env.db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&enrollments)
	assert.Equal(t, int64(1), enrollments)
}

func TestHandleWebhookPaymentFailed(t *testing.T) {
	env := newTestEnv(t)
	svc := newPaymentService(env, env.awardService(nil))
	user := env.seedUser(t, "buyer@example.com")
	course, _ := env.seedCourse(t, 1, false)

	order := &model.Order{
		UserID:         user.ID,
		CourseID:       course.ID,
		Amount:         900,
		Currency:       "EUR",
		State:          model.OrderPending,
		RevolutOrderID: "rev-200",
	}
	require.NoError(t, svc.OrderRepo.Create(order))

	require.NoError(t, svc.HandleWebhookEvent("ORDER_PAYMENT_FAILED", "rev-200"))

	updated, err := svc.OrderRepo.FindByRevolutID("rev-200")
	require.NoError(t, err)
	assert.Equal(t, model.OrderFailed, updated.State)

	// 未知事件被忽略，未知订单报错
	require.NoError(t, svc.HandleWebhookEvent("ORDER_AUTHORISED", "rev-200"))
	assert.ErrorIs(t, svc.HandleWebhookEvent("ORDER_COMPLETED", "rev-404"), util.ErrOrderNotFound)
}

func TestEnrollFreeCourse(t *testing.T) {
	env := newTestEnv(t)
	award := env.awardService(nil)
	courseSvc := NewCourseService(env.courses, env.progressService(), award, env.users, nil)
	user := env.seedUser(t, "student@example.com")
	course, _ := env.seedCourse(t, 1, true)

	enrollment, err := courseSvc.Enroll(user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, enrollment.CourseID)

	// 创业奖课程选课顺带登记第一阶段
	rec, err := env.awards.FindByEmailAndCourse(user.Email, course.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.Phase1EnrolledAt)

	// 重复选课冲突
	_, err = courseSvc.Enroll(user.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	// 付费课程不能免费选
	paid := &model.Course{Title: "Paid", PriceAmount: 1900, Published: true}
	require.NoError(t, env.courses.Create(paid))
	_, err = courseSvc.Enroll(user.ID, paid.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFree)
}
