package service

import (
	"context"
	"startup_edu_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCourseSlugOptional(t *testing.T) {
	env := newTestEnv(t)
	svc := env.contentService()
	ctx := context.Background()

	// 多门未设置slug的课程可以共存
	first := &model.Course{Title: "Startup Fundamentals"}
	require.NoError(t, svc.CreateCourse(ctx, first))
	second := &model.Course{Title: "Growth Basics"}
	require.NoError(t, svc.CreateCourse(ctx, second))
	assert.Nil(t, first.Slug)
	assert.Nil(t, second.Slug)

	// 显式slug仍受唯一索引约束
	slug := "startup-fundamentals"
	withSlug := &model.Course{Title: "Startup Fundamentals 2", Slug: &slug}
	require.NoError(t, svc.CreateCourse(ctx, withSlug))

	duplicate := &model.Course{Title: "Startup Fundamentals 3", Slug: &slug}
	assert.Error(t, svc.CreateCourse(ctx, duplicate))
}
