package service

import (
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade(t *testing.T) {
	questions := []model.QuizQuestion{
		{Prompt: "a", CorrectAnswer: "Paris"},
		{Prompt: "b", CorrectAnswer: "42"},
		{Prompt: "c", CorrectAnswer: "go"},
	}

	tests := []struct {
		name    string
		answers []string
		score   float64
		correct int
	}{
		{"all correct ignoring case and spaces", []string{"  paris ", "42", "GO"}, 100, 3},
		{"two of three", []string{"paris", "41", "go"}, 66.67, 2},
		{"missing answers are wrong", []string{"paris"}, 33.33, 1},
		{"no answers", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, correct, results := Grade(questions, tt.answers)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.correct, correct)
			assert.Len(t, results, len(questions))
		})
	}
}

func TestQuizUpsertValidation(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)

	_, err := env.Quizzes.Upsert(f.Course.ID, f.L2.ID, f.Quiz.ID, "空", nil)
	assert.ErrorIs(t, err, util.ErrEmptyQuiz)

	_, err = env.Quizzes.Upsert(f.Course.ID, f.L2.ID, f.Quiz.ID, "缺答案", []QuestionInput{{Prompt: "q"}})
	assert.ErrorIs(t, err, util.ErrInvalidQuiz)

	_, err = env.Quizzes.Upsert(f.Course.ID, f.L2.ID, f.Code.ID, "类型不符", []QuestionInput{{Prompt: "q", CorrectAnswer: "a"}})
	assert.ErrorIs(t, err, util.ErrNotQuizModule)

	_, err = env.Quizzes.Upsert(f.Course.ID, f.L1.ID, f.Quiz.ID, "关卡不符", []QuestionInput{{Prompt: "q", CorrectAnswer: "a"}})
	assert.ErrorIs(t, err, util.ErrModuleNotFound)

	// 覆盖已有测验时题目整体替换
	quiz, err := env.Quizzes.Upsert(f.Course.ID, f.L2.ID, f.Quiz.ID, "新版", []QuestionInput{{Prompt: "q", CorrectAnswer: "a"}})
	require.NoError(t, err)
	stored, err := env.Quizzes.Get(f.Course.ID, f.L2.ID, f.Quiz.ID, true)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, stored.ID)
	assert.Equal(t, "新版", stored.Title)
	assert.Len(t, stored.Questions, 1)
}

func TestQuizGetHidesAnswers(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)

	quiz, err := env.Quizzes.Get(f.Course.ID, f.L2.ID, f.Quiz.ID, false)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	for _, q := range quiz.Questions {
		assert.Empty(t, q.CorrectAnswer)
	}

	quiz, err = env.Quizzes.Get(f.Course.ID, f.L2.ID, f.Quiz.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "2", quiz.Questions[0].CorrectAnswer)
	assert.Equal(t, []string{"1", "2"}, quiz.Questions[0].Options)

	require.NoError(t, env.Quizzes.Delete(f.Course.ID, f.L2.ID, f.Quiz.ID))
	_, err = env.Quizzes.Get(f.Course.ID, f.L2.ID, f.Quiz.ID, true)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
	assert.ErrorIs(t, env.Quizzes.Delete(f.Course.ID, f.L2.ID, f.Quiz.ID), util.ErrQuizNotFound)
}

func TestSubmitQuiz(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	_, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)

	_, err = env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, []string{"2", "func"})
	assert.ErrorIs(t, err, util.ErrModuleLocked)

	env.completeFirstLevel(t, s.ID, f)

	// 0/2 未通过，进入冷却
	res, err := env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, []string{"3", "def"})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.False(t, res.ModuleCompleted)
	assert.Equal(t, float64(0), res.Score)
	assert.Equal(t, 1, res.Attempts)
	require.NotNil(t, res.RetakeAvailableAt)
	assert.Equal(t, env.Clock.Now().Add(24*time.Hour), *res.RetakeAvailableAt)

	env.Clock.Advance(time.Hour)
	_, err = env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, []string{"2", "func"})
	require.ErrorIs(t, err, util.ErrRetakeCooldown)
	var cooldown *RetakeCooldownError
	require.True(t, errors.As(err, &cooldown))
	assert.Equal(t, 23*time.Hour, cooldown.AvailableAt.Sub(env.Clock.Now()))

	// 1/2 = 50 分，及格线包含等于
	env.Clock.Advance(23 * time.Hour)
	res, err = env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, []string{"2", "def"})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.True(t, res.ModuleCompleted)
	assert.Equal(t, float64(50), res.Score)
	assert.Equal(t, 2, res.Attempts)
	assert.Nil(t, res.RetakeAvailableAt)

	// 通过后可随时重考，失败不会撤销通过
	res, err = env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, []string{"x", "y"})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.True(t, res.ModuleCompleted)
	assert.Nil(t, res.RetakeAvailableAt)

	view, err := env.Progress.Get(s.ID, f.Course.ID)
	require.NoError(t, err)
	mv := findModuleView(t, view, f.Quiz.ID)
	assert.True(t, mv.QuizPassed)
	assert.True(t, mv.Completed)
	assert.Equal(t, 3, mv.QuizAttempts)
	require.NotNil(t, mv.QuizScore)
	assert.Equal(t, float64(0), *mv.QuizScore)
	assert.Equal(t, f.Code.ID, *view.NextModuleID)
}

func TestSubmitQuizPolicyReload(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")
	_, err := env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)
	env.completeFirstLevel(t, s.ID, f)

	cfg := env.Policy.Get()
	cfg.PassingScore = 80
	cfg.RetakeCooldownHours = 0
	env.Policy.Set(cfg)

	res, err := env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, []string{"2", "def"})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, float64(80), res.PassingScore)

	// 冷却为 0 时可立即重考
	res, err = env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, []string{"2", "func"})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestSubmitQuizErrors(t *testing.T) {
	env := newTestEnv(t)
	f := env.publishedCourse(t)
	s := env.student(t, "a@example.com")

	_, err := env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Quiz.ID, nil)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = env.Progress.Enroll(s.ID, f.Course.ID)
	require.NoError(t, err)

	_, err = env.Quizzes.Submit(s.ID, f.Course.ID, f.L2.ID, f.Code.ID, nil)
	assert.ErrorIs(t, err, util.ErrNotQuizModule)

	_, err = env.Quizzes.Submit(s.ID, f.Course.ID, f.L1.ID, f.Quiz.ID, nil)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)
}
