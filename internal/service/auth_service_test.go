package service

import (
	"startup_edu_backend/internal/model"
	"startup_edu_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterHashesPasswordAndStampsActivity(t *testing.T) {
	env := newTestEnv(t)
	svc := env.authService()

	user := &model.User{Name: "Founder", Email: "founder@example.com", Password: "s3cret-pass"}
	require.NoError(t, svc.Register(user))

	stored, err := env.users.FindByEmail("founder@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret-pass")))

	// 活跃时间戳由业务代码写入，不依赖数据库列默认值
	assert.False(t, stored.LastLogin.IsZero())
	assert.False(t, stored.LastSeen.IsZero())

	dup := &model.User{Name: "Founder", Email: "founder@example.com", Password: "other"}
	assert.ErrorIs(t, svc.Register(dup), util.ErrEmailRegistered)
}

func TestLoginUpdatesLastLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := env.authService()

	user := &model.User{Name: "Founder", Email: "founder@example.com", Password: "s3cret-pass"}
	require.NoError(t, svc.Register(user))

	registered, err := env.users.FindByEmail("founder@example.com")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	token, err := svc.Login("founder@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	stored, err := env.users.FindByEmail("founder@example.com")
	require.NoError(t, err)
	assert.Greater(t, stored.LastLogin.Unix(), registered.LastLogin.Unix())

	_, err = svc.Login("founder@example.com", "wrong-pass")
	assert.Error(t, err)
}
