package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/database"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.JWT.Secret = "router-test-secret"
	cfg.Storage.LocalPath = t.TempDir()

	app := New(cfg, db, nil)
	t.Cleanup(func() {
		app.Close()
		sqlDB.Close()
	})
	return app
}

func doJSON(t *testing.T, app *App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func login(t *testing.T, app *App, email, password string) string {
	t.Helper()
	code, resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var data struct {
		Token string `json:"token"`
	}
	decode(t, resp.Data, &data)
	return data.Token
}

func TestHealth(t *testing.T) {
	app := setupTestApp(t)
	code, resp := doJSON(t, app, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"redis":"disabled"`)
}

func TestAuthGuards(t *testing.T) {
	app := setupTestApp(t)

	code, _ := doJSON(t, app, http.MethodGet, "/api/courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = doJSON(t, app, http.MethodGet, "/api/courses", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", gin.H{"name": "s", "email": "bad", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLearningFlow(t *testing.T) {
	app := setupTestApp(t)
	require.NoError(t, app.SeedAdmin("admin@example.com", "adminpass1", "Admin"))
	adminToken := login(t, app, "admin@example.com", "adminpass1")

	// 注册后需审批
	code, resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Student", "email": "stu@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, code)
	var student struct {
		ID uint `json:"id"`
	}
	decode(t, resp.Data, &student)

	code, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", gin.H{"email": "stu@example.com", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/users/%d/approval", student.ID), adminToken, gin.H{"approved": true})
	require.Equal(t, http.StatusOK, code)
	studentToken := login(t, app, "stu@example.com", "password123")

	// 学生不能访问管理接口
	code, _ = doJSON(t, app, http.MethodPost, "/api/courses", studentToken, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	// 管理员搭建课程
	var course, level, quizModule struct {
		ID uint `json:"id"`
	}
	code, resp = doJSON(t, app, http.MethodPost, "/api/courses", adminToken, gin.H{"title": "Go"})
	require.Equal(t, http.StatusCreated, code)
	decode(t, resp.Data, &course)

	code, resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/courses/%d/levels", course.ID), adminToken, gin.H{"title": "L1"})
	require.Equal(t, http.StatusCreated, code)
	decode(t, resp.Data, &level)

	code, resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/courses/%d/modules", course.ID), adminToken, gin.H{
		"levelId": level.ID, "title": "Quiz", "type": "quiz",
	})
	require.Equal(t, http.StatusCreated, code)
	decode(t, resp.Data, &quizModule)

	quizPath := fmt.Sprintf("/api/quizzes/%d/%d/%d", course.ID, level.ID, quizModule.ID)
	code, _ = doJSON(t, app, http.MethodPut, quizPath, adminToken, gin.H{
		"title":     "Quiz",
		"questions": []gin.H{{"prompt": "1+1", "options": []string{"1", "2"}, "correctAnswer": "2"}},
	})
	require.Equal(t, http.StatusOK, code)

	// 草稿课程对学生不可见
	code, _ = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/courses/%d", course.ID), studentToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/progress/enroll/%d", course.ID), studentToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/courses/%d/publish", course.ID), adminToken, gin.H{"isPublished": true})
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/progress/enroll/%d", course.ID), studentToken, nil)
	require.Equal(t, http.StatusCreated, code)
	code, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/progress/enroll/%d", course.ID), studentToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	// 学生看到的测验不含答案
	code, resp = doJSON(t, app, http.MethodGet, quizPath, studentToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(resp.Data), "correctAnswer")

	// 未通过后冷却期内重考返回 429
	code, resp = doJSON(t, app, http.MethodPost, quizPath+"/submit", studentToken, gin.H{"answers": []string{"3"}})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"passed":false`)

	code, resp = doJSON(t, app, http.MethodPost, quizPath+"/submit", studentToken, gin.H{"answers": []string{"2"}})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, string(resp.Data), "retakeAvailableAt")

	// 管理员重置后可立即重考
	code, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/admin/progress/%d/%d", course.ID, student.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	code, resp = doJSON(t, app, http.MethodPost, quizPath+"/submit", studentToken, gin.H{"answers": []string{" 2 "}})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"passed":true`)

	code, resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/progress/%d", course.ID), studentToken, nil)
	require.Equal(t, http.StatusOK, code)
	var progress struct {
		CompletedModules int `json:"completedModules"`
		TotalModules     int `json:"totalModules"`
	}
	decode(t, resp.Data, &progress)
	assert.Equal(t, 1, progress.CompletedModules)
	assert.Equal(t, 1, progress.TotalModules)
}

func TestDeleteLevelNeedsForce(t *testing.T) {
	app := setupTestApp(t)
	require.NoError(t, app.SeedAdmin("admin@example.com", "adminpass1", "Admin"))
	token := login(t, app, "admin@example.com", "adminpass1")

	var course, level struct {
		ID uint `json:"id"`
	}
	_, resp := doJSON(t, app, http.MethodPost, "/api/courses", token, gin.H{"title": "Go"})
	decode(t, resp.Data, &course)
	_, resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/courses/%d/levels", course.ID), token, gin.H{"title": "L1"})
	decode(t, resp.Data, &level)
	code, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/courses/%d/modules", course.ID), token, gin.H{
		"levelId": level.ID, "title": "Read", "type": "resource",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/courses/%d/modules", course.ID), token, gin.H{
		"levelId": level.ID, "title": "Read", "type": "resource", "resourceKind": "text",
	})
	require.Equal(t, http.StatusCreated, code)

	path := fmt.Sprintf("/api/courses/%d/levels/%d", course.ID, level.ID)
	code, _ = doJSON(t, app, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = doJSON(t, app, http.MethodDelete, path+"?force=true", token, nil)
	assert.Equal(t, http.StatusOK, code)
}
