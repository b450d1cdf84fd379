package service

import (
	"context"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestCourseTreeCache(t *testing.T) {
	env := newTestEnv(t)
	mr, rdb := setupTestRedis(t)
	cache := NewCourseCache(rdb, time.Minute)
	env.Courses.Cache = cache
	ctx := context.Background()
	f := env.publishedCourse(t)

	version := cache.Version(ctx, f.Course.ID)
	require.GreaterOrEqual(t, version, int64(0))
	_, err := env.Courses.GetTree(ctx, f.Course.ID, false)
	require.NoError(t, err)
	assert.True(t, mr.Exists(courseTreeKey(f.Course.ID, version)))

	// 命中缓存时不再读数据库
	require.NoError(t, env.DB.Model(&model.Course{}).Where("id = ?", f.Course.ID).Update("title", "已改名").Error)
	tree, err := env.Courses.GetTree(ctx, f.Course.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Go 入门", tree.Title)

	_, err = env.Courses.AddLevel(ctx, f.Course.ID, LevelInput{Title: "新关卡"})
	require.NoError(t, err)
	assert.Greater(t, cache.Version(ctx, f.Course.ID), version)
	tree, err = env.Courses.GetTree(ctx, f.Course.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "已改名", tree.Title)
	assert.Len(t, tree.Levels, 3)

	_, err = env.Courses.MoveModule(ctx, f.Course.ID, f.Code.ID, f.L1.ID, 0)
	require.NoError(t, err)
	tree, err = env.Courses.GetTree(ctx, f.Course.ID, false)
	require.NoError(t, err)
	require.NotEmpty(t, tree.Levels)
	require.Len(t, tree.Levels[0].Modules, 3)
	assert.Equal(t, f.Code.ID, tree.Levels[0].Modules[0].ID)

	_, err = env.Courses.SetPublished(ctx, f.Course.ID, false)
	require.NoError(t, err)
	_, err = env.Courses.GetTree(ctx, f.Course.ID, false)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
	_, err = env.Courses.GetTree(ctx, f.Course.ID, true)
	assert.NoError(t, err)
}

func TestCourseTreeCacheStaleWrite(t *testing.T) {
	env := newTestEnv(t)
	_, rdb := setupTestRedis(t)
	cache := NewCourseCache(rdb, time.Minute)
	env.Courses.Cache = cache
	ctx := context.Background()
	f := env.publishedCourse(t)

	// 读取数据库与写入缓存之间课程被修改
	version := cache.Version(ctx, f.Course.ID)
	stale, err := env.Courses.CourseRepo.FindTree(f.Course.ID)
	require.NoError(t, err)
	_, err = env.Courses.AddLevel(ctx, f.Course.ID, LevelInput{Title: "新关卡"})
	require.NoError(t, err)
	cache.Set(ctx, stale, version)

	tree, err := env.Courses.GetTree(ctx, f.Course.ID, false)
	require.NoError(t, err)
	assert.Len(t, tree.Levels, 3)
}

func TestCourseCacheDisabled(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	ctx := context.Background()

	cache := NewCourseCache(rdb, 0)
	assert.Equal(t, int64(-1), cache.Version(ctx, 1))
	cache.Set(ctx, &model.Course{BaseModel: model.BaseModel{ID: 1}}, 0)
	cache.Invalidate(ctx, 1)
	assert.Empty(t, mr.Keys())

	var none *CourseCache
	_, ok := none.Get(ctx, 1, 0)
	assert.False(t, ok)
}
