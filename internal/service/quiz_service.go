package service

import (
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/monitoring"
	"strings"
	"time"

	"gorm.io/gorm"
)

type QuizService struct {
	QuizRepo   *repository.QuizRepository
	CourseRepo *repository.CourseRepository
	Progress   *ProgressService
	Policy     *QuizPolicy
	Now        func() time.Time
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	courseRepo *repository.CourseRepository,
	progress *ProgressService,
	policy *QuizPolicy,
) *QuizService {
	return &QuizService{
		QuizRepo:   quizRepo,
		CourseRepo: courseRepo,
		Progress:   progress,
		Policy:     policy,
		Now:        time.Now,
	}
}

// QuestionInput 管理员编辑的题目
type QuestionInput struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// QuestionResult 单题判定结果
type QuestionResult struct {
	Index   int  `json:"index"`
	Correct bool `json:"correct"`
}

// QuizResult 测验提交结果
type QuizResult struct {
	Score             float64          `json:"score"`
	Passed            bool             `json:"passed"`
	ModuleCompleted   bool             `json:"moduleCompleted"`
	Correct           int              `json:"correct"`
	Total             int              `json:"total"`
	Attempts          int              `json:"attempts"`
	PassingScore      float64          `json:"passingScore"`
	Results           []QuestionResult `json:"results"`
	RetakeAvailableAt *time.Time       `json:"retakeAvailableAt,omitempty"`
}

// RetakeCooldownError 未通过且仍在冷却期内，AvailableAt 为可重考时间
type RetakeCooldownError struct {
	AvailableAt time.Time
}

func (e *RetakeCooldownError) Error() string {
	return fmt.Sprintf("%s until %s", util.ErrRetakeCooldown, e.AvailableAt.Format(time.RFC3339))
}

func (e *RetakeCooldownError) Unwrap() error {
	return util.ErrRetakeCooldown
}

// quizModule 校验模块属于该课程和关卡，且为测验类型
func quizModule(catalog *repository.CourseRepository, courseID, levelID, moduleID uint) (*model.Module, error) {
	module, err := catalog.FindModule(courseID, moduleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrModuleNotFound
	} else if err != nil {
		return nil, err
	}
	if module.LevelID != levelID {
		return nil, util.ErrModuleNotFound
	}
	if module.Type != model.ModuleQuiz {
		return nil, util.ErrNotQuizModule
	}
	return module, nil
}

func (s *QuizService) Upsert(courseID, levelID, moduleID uint, title string, questions []QuestionInput) (*model.Quiz, error) {
	if _, err := quizModule(s.CourseRepo, courseID, levelID, moduleID); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrEmptyQuiz
	}

	quiz := &model.Quiz{
		CourseID: courseID,
		LevelID:  levelID,
		ModuleID: moduleID,
		Title:    strings.TrimSpace(title),
	}
	for _, q := range questions {
		prompt := strings.TrimSpace(q.Prompt)
		answer := strings.TrimSpace(q.CorrectAnswer)
		if prompt == "" || answer == "" {
			return nil, util.ErrInvalidQuiz
		}
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			Prompt:        prompt,
			Options:       q.Options,
			CorrectAnswer: answer,
		})
	}

	if err := s.QuizRepo.Replace(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// Get withAnswers 为 false 时去除正确答案；学生只能查看已发布课程的测验
func (s *QuizService) Get(courseID, levelID, moduleID uint, withAnswers bool) (*model.Quiz, error) {
	if !withAnswers {
		course, err := s.CourseRepo.FindByID(courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !course.IsPublished) {
			return nil, util.ErrCourseNotFound
		} else if err != nil {
			return nil, err
		}
	}
	if _, err := quizModule(s.CourseRepo, courseID, levelID, moduleID); err != nil {
		return nil, err
	}

	quiz, err := s.QuizRepo.FindByModule(moduleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	} else if err != nil {
		return nil, err
	}

	if !withAnswers {
		for i := range quiz.Questions {
			quiz.Questions[i].CorrectAnswer = ""
		}
	}
	return quiz, nil
}

func (s *QuizService) Delete(courseID, levelID, moduleID uint) error {
	if _, err := quizModule(s.CourseRepo, courseID, levelID, moduleID); err != nil {
		return err
	}
	if _, err := s.QuizRepo.FindByModule(moduleID); errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuizNotFound
	} else if err != nil {
		return err
	}
	return s.QuizRepo.DeleteByModule(moduleID)
}

// answerMatches 去除首尾空白后忽略大小写比较
func answerMatches(given, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(expected))
}

// Grade 按题目顺序判分，缺失的答案视为错误
func Grade(questions []model.QuizQuestion, answers []string) (score float64, correct int, results []QuestionResult) {
	results = make([]QuestionResult, 0, len(questions))
	for i, q := range questions {
		ok := i < len(answers) && answerMatches(answers[i], q.CorrectAnswer)
		if ok {
			correct++
		}
		results = append(results, QuestionResult{Index: i, Correct: ok})
	}
	if len(questions) > 0 {
		score = util.Round2(float64(correct) / float64(len(questions)) * 100)
	}
	return score, correct, results
}

// Submit 判分并写入进度；通过后模块完成，之后的失败重考不会撤销通过状态
func (s *QuizService) Submit(studentID, courseID, levelID, moduleID uint, answers []string) (*QuizResult, error) {
	var result *QuizResult
	err := s.Progress.transaction(func(progress *repository.ProgressRepository, catalog *repository.CourseRepository) error {
		course, p, err := s.Progress.loadSynced(progress, catalog, studentID, courseID)
		if err != nil {
			return err
		}
		module := course.FindModule(moduleID)
		if module == nil || module.LevelID != levelID {
			return util.ErrModuleNotFound
		}
		if module.Type != model.ModuleQuiz {
			return util.ErrNotQuizModule
		}

		quiz, err := s.QuizRepo.WithTx(catalog.DB).FindByModule(moduleID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		} else if err != nil {
			return err
		}
		if len(quiz.Questions) == 0 {
			return util.ErrEmptyQuiz
		}

		if !unlockedModules(course, p)[moduleID] {
			return util.ErrModuleLocked
		}

		_, pm := p.FindModule(moduleID)
		now := s.Now()
		policy := s.Policy.Get()
		if pm.LastAttemptAt != nil && !pm.QuizPassed {
			availableAt := pm.LastAttemptAt.Add(policy.RetakeCooldown())
			if now.Before(availableAt) {
				return &RetakeCooldownError{AvailableAt: availableAt}
			}
		}

		score, correct, results := Grade(quiz.Questions, answers)
		passed := score >= policy.PassingScore

		pm.QuizScore = &score
		pm.QuizAttempts++
		pm.LastAttemptAt = &now
		if passed {
			pm.QuizPassed = true
		}
		if err := progress.SaveModule(pm); err != nil {
			return err
		}
		if pm.QuizPassed {
			if err := s.Progress.markComplete(progress, p, pm); err != nil {
				return err
			}
		}

		result = &QuizResult{
			Score:           score,
			Passed:          passed,
			ModuleCompleted: pm.Completed,
			Correct:         correct,
			Total:           len(quiz.Questions),
			Attempts:        pm.QuizAttempts,
			PassingScore:    policy.PassingScore,
			Results:         results,
		}
		if !pm.QuizPassed {
			availableAt := now.Add(policy.RetakeCooldown())
			result.RetakeAvailableAt = &availableAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	monitoring.QuizSubmissionsTotal.WithLabelValues(outcome).Inc()
	return result, nil
}
