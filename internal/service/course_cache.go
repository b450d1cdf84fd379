package service

import (
	"context"
	"encoding/json"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const courseTreeKeyPrefix = "course:tree:"

// CourseCache Redis 中缓存课程树，Redis 未启用时所有操作为空操作
// 缓存键带版本号，Invalidate 递增版本，旧版本条目随 TTL 过期
type CourseCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

// NewCourseCache ttl 不大于 0 时关闭缓存
func NewCourseCache(rdb *redis.Client, ttl time.Duration) *CourseCache {
	if ttl <= 0 {
		rdb = nil
	}
	return &CourseCache{Redis: rdb, TTL: ttl}
}

func courseVersionKey(courseID uint) string {
	return fmt.Sprintf("%s%d:version", courseTreeKeyPrefix, courseID)
}

func courseTreeKey(courseID uint, version int64) string {
	return fmt.Sprintf("%s%d:v%d", courseTreeKeyPrefix, courseID, version)
}

func (c *CourseCache) enabled() bool {
	return c != nil && c.Redis != nil
}

// Version 读取课程树当前版本，读取失败时返回 -1，调用方据此跳过写入
func (c *CourseCache) Version(ctx context.Context, courseID uint) int64 {
	if !c.enabled() {
		return -1
	}
	version, err := c.Redis.Get(ctx, courseVersionKey(courseID)).Int64()
	if err == redis.Nil {
		return 0
	}
	if err != nil {
		logger.Log.Warn("course cache version read failed", zap.Uint("courseId", courseID), zap.Error(err))
		return -1
	}
	return version
}

func (c *CourseCache) Get(ctx context.Context, courseID uint, version int64) (*model.Course, bool) {
	if !c.enabled() || version < 0 {
		return nil, false
	}
	val, err := c.Redis.Get(ctx, courseTreeKey(courseID, version)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Log.Warn("course cache read failed", zap.Uint("courseId", courseID), zap.Error(err))
		return nil, false
	}
	var course model.Course
	if err := json.Unmarshal([]byte(val), &course); err != nil {
		return nil, false
	}
	return &course, true
}

// Set 写入读取数据库之前取得的版本；期间发生的 Invalidate 会让该条目失效
func (c *CourseCache) Set(ctx context.Context, course *model.Course, version int64) {
	if !c.enabled() || version < 0 {
		return
	}
	data, err := json.Marshal(course)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, courseTreeKey(course.ID, version), data, c.TTL).Err(); err != nil {
		logger.Log.Warn("course cache write failed", zap.Uint("courseId", course.ID), zap.Error(err))
	}
}

func (c *CourseCache) Invalidate(ctx context.Context, courseID uint) {
	if !c.enabled() {
		return
	}
	if err := c.Redis.Incr(ctx, courseVersionKey(courseID)).Err(); err != nil {
		logger.Log.Warn("course cache invalidate failed", zap.Uint("courseId", courseID), zap.Error(err))
	}
}
