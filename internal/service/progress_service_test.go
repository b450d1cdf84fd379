package service

import (
	"context"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")

	view, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, view.TotalModules)
	assert.Equal(t, 0, view.CompletedModules)
	assert.Equal(t, env.Clock.Now(), view.EnrolledAt)
	require.Len(t, view.Levels, 2)
	require.NotNil(t, view.NextModuleID)
	assert.Equal(t, f.Read.ID, *view.NextModuleID)

	_, err = env.Progress.Enroll(s.ID, f.Course.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	_, err = env.Progress.Enroll(s.ID, 9999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestEnrollUnpublished(t *testing.T) {
	env := newTestEnv(t)
	course, err := env.Courses.CreateCourse(1, CourseInput{Title: "草稿"})
	require.NoError(t, err)
	s := env.student(t, "a@example.com")

	_, err = env.Progress.Enroll(s.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotPublished)
}

func TestEnrollUniqueIndex(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	_, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)

	// 并发报名时后写入的一方越过了存在性检查
	err = env.Progress.ProgressRepo.CreateTree(&model.Progress{
		StudentID:  s.ID,
		CourseID:   f.Course.ID,
		EnrolledAt: env.Clock.Now(),
	})
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	items, err := env.Progress.ListMine(s.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestUnlockOrder(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	_, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)

	view, err := env.Progress.Get(s.ID, f.Course.ID)
	require.NoError(t, err)
	assert.True(t, findModuleView(t, view, f.Read.ID).Unlocked)
	assert.False(t, findModuleView(t, view, f.Video.ID).Unlocked)
	assert.False(t, findModuleView(t, view, f.Quiz.ID).Unlocked)

	_, err = env.Progress.CompleteModule(s.ID, f.Course.ID, f.Video.ID)
	assert.ErrorIs(t, err, util.ErrModuleLocked)

	_, err = env.Progress.RecordWatch(s.ID, f.Course.ID, f.Video.ID, 10)
	assert.ErrorIs(t, err, util.ErrModuleLocked)

	view, err = env.Progress.CompleteModule(s.ID, f.Course.ID, f.Read.ID)
	require.NoError(t, err)
	assert.True(t, findModuleView(t, view, f.Video.ID).Unlocked)
	assert.False(t, findModuleView(t, view, f.Quiz.ID).Unlocked)
	assert.Equal(t, f.Video.ID, *view.NextModuleID)
}

func TestCompleteModule(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	_, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)

	t.Run("idempotent", func(t *testing.T) {
		first, err := env.Progress.CompleteModule(s.ID, f.Course.ID, f.Read.ID)
		require.NoError(t, err)
		env.Clock.Advance(time.Minute)
		second, err := env.Progress.CompleteModule(s.ID, f.Course.ID, f.Read.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, second.CompletedModules)
		firstAt := findModuleView(t, first, f.Read.ID).CompletedAt
		secondAt := findModuleView(t, second, f.Read.ID).CompletedAt
		require.NotNil(t, firstAt)
		require.NotNil(t, secondAt)
		assert.True(t, firstAt.Equal(*secondAt))
	})

	t.Run("watch ratio", func(t *testing.T) {
		_, err := env.Progress.RecordWatch(s.ID, f.Course.ID, f.Video.ID, 50)
		require.NoError(t, err)
		_, err = env.Progress.CompleteModule(s.ID, f.Course.ID, f.Video.ID)
		assert.ErrorIs(t, err, util.ErrWatchIncomplete)

		mv, err := env.Progress.RecordWatch(s.ID, f.Course.ID, f.Video.ID, 95)
		require.NoError(t, err)
		assert.Equal(t, 95, mv.WatchedSeconds)

		view, err := env.Progress.CompleteModule(s.ID, f.Course.ID, f.Video.ID)
		require.NoError(t, err)
		assert.True(t, view.Levels[0].Completed)
		assert.NotNil(t, view.Levels[0].CompletedAt)
		assert.False(t, view.Levels[1].Completed)
	})

	t.Run("quiz module needs submission", func(t *testing.T) {
		_, err := env.Progress.CompleteModule(s.ID, f.Course.ID, f.Quiz.ID)
		assert.ErrorIs(t, err, util.ErrQuizModule)
	})

	t.Run("unknown module", func(t *testing.T) {
		_, err := env.Progress.CompleteModule(s.ID, f.Course.ID, 9999)
		assert.ErrorIs(t, err, util.ErrModuleNotFound)
	})

	t.Run("not enrolled", func(t *testing.T) {
		other := env.student(t, "b@example.com")
		_, err := env.Progress.CompleteModule(other.ID, f.Course.ID, f.Read.ID)
		assert.ErrorIs(t, err, util.ErrNotEnrolled)
	})
}

func TestRecordWatch(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	_, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)
	_, err = env.Progress.CompleteModule(s.ID, f.Course.ID, f.Read.ID)
	require.NoError(t, err)

	mv, err := env.Progress.RecordWatch(s.ID, f.Course.ID, f.Video.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, mv.WatchedSeconds, "capped at video length")

	mv, err = env.Progress.RecordWatch(s.ID, f.Course.ID, f.Video.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 100, mv.WatchedSeconds, "keeps the maximum")

	_, err = env.Progress.RecordWatch(s.ID, f.Course.ID, f.Read.ID, 20)
	assert.ErrorIs(t, err, util.ErrNotVideoModule)
}

func TestRecordWatchUnknownDuration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course, err := env.Courses.CreateCourse(1, CourseInput{Title: "直播回放", IsPublished: true})
	require.NoError(t, err)
	level, err := env.Courses.AddLevel(ctx, course.ID, LevelInput{Title: "回放"})
	require.NoError(t, err)
	video, err := env.Courses.AddModule(ctx, course.ID, ModuleInput{
		LevelID: level.ID, Title: "第一讲", Type: model.ModuleResource,
		ResourceKind: model.ResourceVideo, ResourceURL: "/uploads/live.mp4",
	})
	require.NoError(t, err)

	s := env.student(t, "a@example.com")
	_, err = env.Progress.Enroll(s.ID, course.ID)
	require.NoError(t, err)

	mv, err := env.Progress.RecordWatch(s.ID, course.ID, video.ID, 100000)
	require.NoError(t, err)
	assert.Zero(t, mv.WatchedSeconds)

	// 时长未知时无需观看即可完成
	view, err := env.Progress.CompleteModule(s.ID, course.ID, video.ID)
	require.NoError(t, err)
	assert.True(t, findModuleView(t, view, video.ID).Completed)
}

func TestCourseCompletion(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	_, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)

	env.completeFirstLevel(t, s.ID, f)
	res, err := env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, []string{"2", "func"})
	require.NoError(t, err)
	require.True(t, res.Passed)

	view, err := env.Progress.CompleteModule(s.ID, f.Course.ID, f.Code.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, view.CompletedModules)
	assert.Equal(t, float64(100), view.Percentage)
	assert.NotNil(t, view.CompletedAt)
	assert.Nil(t, view.NextModuleID)

	// 新增模块后课程重新变为未完成
	_, err = env.Courses.AddModule(context.Background(), f.Course.ID, ModuleInput{
		LevelID: f.L2.ID, Title: "补充", Type: "resource", ResourceKind: "link", ResourceURL: "https://go.dev",
	})
	require.NoError(t, err)

	view, err = env.Progress.Get(s.ID, f.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, view.TotalModules)
	assert.Nil(t, view.CompletedAt)
	assert.True(t, view.Levels[0].Completed)
	assert.False(t, view.Levels[1].Completed)
}

func TestSyncAfterCatalogChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	_, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)
	_, err = env.Progress.CompleteModule(s.ID, f.Course.ID, f.Read.ID)
	require.NoError(t, err)

	// 已完成的模块移动到另一关卡后仍保持完成
	_, err = env.Courses.MoveModule(ctx, f.Course.ID, f.Read.ID, f.L2.ID, 0)
	require.NoError(t, err)

	view, err := env.Progress.Get(s.ID, f.Course.ID)
	require.NoError(t, err)
	require.Len(t, view.Levels, 2)
	require.Len(t, view.Levels[0].Modules, 1)
	assert.Equal(t, f.Video.ID, view.Levels[0].Modules[0].ModuleID)
	require.Len(t, view.Levels[1].Modules, 3)
	assert.Equal(t, f.Read.ID, view.Levels[1].Modules[0].ModuleID)
	assert.True(t, view.Levels[1].Modules[0].Completed)
	assert.Equal(t, 1, view.CompletedModules)

	// 删除模块后进度条目随之删除
	require.NoError(t, env.Courses.DeleteModule(ctx, f.Course.ID, f.Read.ID))
	view, err = env.Progress.Get(s.ID, f.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.TotalModules)
	assert.Equal(t, 0, view.CompletedModules)

	var entries int64
	require.NoError(t, env.DB.Table("progress_modules").Count(&entries).Error)
	assert.Equal(t, int64(3), entries)
}

func TestResetAndUnenroll(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	enrolled, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)
	_, err = env.Progress.CompleteModule(s.ID, f.Course.ID, f.Read.ID)
	require.NoError(t, err)

	env.Clock.Advance(48 * time.Hour)
	view, err := env.Progress.Reset(f.Course.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.CompletedModules)
	assert.True(t, enrolled.EnrolledAt.Equal(view.EnrolledAt))

	list, err := env.Progress.ListForCourse(f.Course.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a@example.com", list[0].StudentEmail)

	require.NoError(t, env.Progress.Unenroll(s.ID, f.Course.ID))
	assert.ErrorIs(t, env.Progress.Unenroll(s.ID, f.Course.ID), util.ErrNotEnrolled)

	mine, err := env.Progress.ListMine(s.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestSyncAll(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	a := env.student(t, "a@example.com")
	b := env.student(t, "b@example.com")
	_, err := env.Progress.Enroll(a.ID, f.Course.ID)
	require.NoError(t, err)
	_, err = env.Progress.Enroll(b.ID, f.Course.ID)
	require.NoError(t, err)

	n, err := env.Progress.SyncAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
