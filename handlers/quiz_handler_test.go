package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"quizmaster/handlers"
	"quizmaster/models"
	"quizmaster/routes"
	"quizmaster/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "quizmaster.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.QuizResult{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	authService := services.NewAuthService(db, testSecret, time.Hour, 24*time.Hour)
	quizService := services.NewQuizService(db, nil)

	router := gin.New()
	routes.SetupRoutes(router, handlers.NewAuthHandler(authService), handlers.NewQuizHandler(quizService), testSecret)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope from %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func loginTestUser(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w, env := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice01",
		"email":    "alice@example.com",
		"password": "hunter2!",
	})
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("register failed: %d %s", w.Code, w.Body.String())
	}

	w, env = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2!",
	})
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}

	var tokens services.TokenResponse
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	return tokens.AccessToken
}

func capitalsPayload() map[string]interface{} {
	return map[string]interface{}{
		"title": "Capitals",
		"questions": []map[string]interface{}{
			{
				"title": "Capital of France?",
				"options": []map[string]interface{}{
					{"title": "Paris", "is_correct": true},
					{"title": "Lyon"},
				},
			},
			{
				"title": "Capital of Japan?",
				"options": []map[string]interface{}{
					{"title": "Osaka"},
					{"title": "Tokyo", "is_correct": true},
				},
			},
		},
	}
}

func TestQuizEndpointsRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	w, env := doJSON(t, router, http.MethodGet, "/api/quizzes", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if env.Success || env.Type != "error" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestCreateQuizValidationEnvelope(t *testing.T) {
	router := newTestRouter(t)
	token := loginTestUser(t, router)

	payload := capitalsPayload()
	payload["questions"] = payload["questions"].([]map[string]interface{})[:1]

	w, env := doJSON(t, router, http.MethodPost, "/api/quizzes", token, payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if env.Success || env.Type != "warning" || env.Error != "Quiz must have at least 2 questions" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestQuizLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := loginTestUser(t, router)

	w, env := doJSON(t, router, http.MethodPost, "/api/quizzes", token, capitalsPayload())
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}

	var quiz models.Quiz
	if err := json.Unmarshal(env.Data, &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if len(quiz.Code) != 6 {
		t.Fatalf("expected 6-char code, got %q", quiz.Code)
	}

	w, env = doJSON(t, router, http.MethodGet, "/api/quizzes/code/"+quiz.Code, token, nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("get by code failed: %d %s", w.Code, w.Body.String())
	}

	var fetched models.Quiz
	if err := json.Unmarshal(env.Data, &fetched); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if fetched.ID != quiz.ID || len(fetched.Questions) != 2 {
		t.Fatalf("fetched graph mismatch: %+v", fetched)
	}

	answers := make([]map[string]interface{}, 0, 2)
	for _, question := range fetched.Questions {
		for _, option := range question.Options {
			if option.IsCorrect {
				answers = append(answers, map[string]interface{}{
					"question_id":        question.ID,
					"selected_option_id": option.ID,
				})
			}
		}
	}

	w, env = doJSON(t, router, http.MethodPost, "/api/quizzes/complete", token, map[string]interface{}{
		"quiz_id":         quiz.ID,
		"total_questions": 2,
		"start_time":      time.Now().Add(-time.Minute).Format(time.RFC3339),
		"end_time":        time.Now().Format(time.RFC3339),
		"answers":         answers,
	})
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("complete failed: %d %s", w.Code, w.Body.String())
	}

	var result models.QuizResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Score != 2 || result.Percentage != 100 {
		t.Fatalf("expected perfect score, got %+v", result)
	}

	quizPath := "/api/quizzes/" + strconv.FormatUint(uint64(quiz.ID), 10)

	w, env = doJSON(t, router, http.MethodDelete, quizPath, token, nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("delete failed: %d %s", w.Code, w.Body.String())
	}

	w, env = doJSON(t, router, http.MethodGet, quizPath, token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
	if env.Success || env.Error != "Quiz not found" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}
