package service

import (
	"context"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/pkg/database"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 每个测试独立的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// fakeClock 可手动推进的时间源
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordedEvent struct {
	Type string
	Data interface{}
}

// recordingHub 记录广播事件
type recordingHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (h *recordingHub) Broadcast(eventType string, data interface{}) {
	h.mu.Lock()
	h.events = append(h.events, recordedEvent{Type: eventType, Data: data})
	h.mu.Unlock()
}

func (h *recordingHub) Types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	DB       *gorm.DB
	Clock    *fakeClock
	Policy   *QuizPolicy
	Users    *repository.UserRepository
	Courses  *CourseService
	Progress *ProgressService
	Quizzes  *QuizService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	clock := newFakeClock()
	policy := NewQuizPolicy(config.QuizConfig{PassingScore: 50, RetakeCooldownHours: 24, WatchRatio: 0.9})

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	quizRepo := repository.NewQuizRepository(db)

	progress := NewProgressService(progressRepo, courseRepo, userRepo, policy)
	progress.Now = clock.Now
	quizzes := NewQuizService(quizRepo, courseRepo, progress, policy)
	quizzes.Now = clock.Now

	return &testEnv{
		DB:       db,
		Clock:    clock,
		Policy:   policy,
		Users:    userRepo,
		Courses:  NewCourseService(courseRepo, progressRepo, progress, NewCourseCache(nil, 0)),
		Progress: progress,
		Quizzes:  quizzes,
	}
}

func (e *testEnv) student(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Name: "student", Email: email, Password: "x", Role: model.Student, Approved: true}
	require.NoError(t, e.Users.Create(u))
	return u
}

// courseFixture 两个根关卡：
//
//	L1: read(资源) -> video(视频, 100s)
//	L2: quiz(测验) -> code(编程)
type courseFixture struct {
	Course *model.Course
	L1, L2 *model.Level
	Read   *model.Module
	Video  *model.Module
	Quiz   *model.Module
	Code   *model.Module
}

func (e *testEnv) publishedCourse(t *testing.T) *courseFixture {
	t.Helper()
	ctx := context.Background()
	course, err := e.Courses.CreateCourse(1, CourseInput{Title: "Go 入门", IsPublished: true})
	require.NoError(t, err)

	f := &courseFixture{Course: course}
	f.L1, err = e.Courses.AddLevel(ctx, course.ID, LevelInput{Title: "基础"})
	require.NoError(t, err)
	f.L2, err = e.Courses.AddLevel(ctx, course.ID, LevelInput{Title: "进阶"})
	require.NoError(t, err)

	f.Read, err = e.Courses.AddModule(ctx, course.ID, ModuleInput{
		LevelID: f.L1.ID, Title: "阅读", Type: model.ModuleResource,
		ResourceKind: model.ResourceText, Body: "hello",
	})
	require.NoError(t, err)
	f.Video, err = e.Courses.AddModule(ctx, course.ID, ModuleInput{
		LevelID: f.L1.ID, Title: "视频", Type: model.ModuleResource,
		ResourceKind: model.ResourceVideo, ResourceURL: "/uploads/a.mp4", VideoSeconds: 100,
	})
	require.NoError(t, err)
	f.Quiz, err = e.Courses.AddModule(ctx, course.ID, ModuleInput{
		LevelID: f.L2.ID, Title: "小测", Type: model.ModuleQuiz,
	})
	require.NoError(t, err)
	f.Code, err = e.Courses.AddModule(ctx, course.ID, ModuleInput{
		LevelID: f.L2.ID, Title: "练习", Type: model.ModuleCoding,
		Prompt: "print hello", Language: "go",
	})
	require.NoError(t, err)

	_, err = e.Quizzes.Upsert(course.ID, f.L2.ID, f.Quiz.ID, "小测", []QuestionInput{
		{Prompt: "1+1", Options: []string{"1", "2"}, CorrectAnswer: "2"},
		{Prompt: "Go 的关键字", Options: []string{"func", "def"}, CorrectAnswer: "func"},
	})
	require.NoError(t, err)
	return f
}

// completeFirstLevel 完成 L1 的两个模块
func (e *testEnv) completeFirstLevel(t *testing.T, studentID uint, f *courseFixture) {
	t.Helper()
	_, err := e.Progress.CompleteModule(studentID, f.Course.ID, f.Read.ID)
	require.NoError(t, err)
	_, err = e.Progress.RecordWatch(studentID, f.Course.ID, f.Video.ID, 100)
	require.NoError(t, err)
	_, err = e.Progress.CompleteModule(studentID, f.Course.ID, f.Video.ID)
	require.NoError(t, err)
}

func findModuleView(t *testing.T, view *ProgressView, moduleID uint) ModuleProgressView {
	t.Helper()
	for _, l := range view.Levels {
		for _, m := range l.Modules {
			if m.ModuleID == moduleID {
				return m
			}
		}
	}
	t.Fatalf("module %d not in progress view", moduleID)
	return ModuleProgressView{}
}
