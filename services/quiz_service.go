package services

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"quizmaster/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	codeCacheTTL = time.Hour
)

type QuizService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewQuizService(db *gorm.DB, redisClient *redis.Client) *QuizService {
	return &QuizService{db: db, redis: redisClient}
}

type QuizRequest struct {
	ID              uint              `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	RandomQuestions bool              `json:"random_questions"`
	Questions       []QuestionRequest `json:"questions"`
}

type QuestionRequest struct {
	ID            uint            `json:"id"`
	Title         string          `json:"title"`
	RandomOptions bool            `json:"random_options"`
	Options       []OptionRequest `json:"options"`
}

type OptionRequest struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	IsCorrect bool   `json:"is_correct"`
}

type AnswerSubmission struct {
	QuestionID        uint   `json:"question_id"`
	SelectedOptionID  uint   `json:"selected_option_id"`
	SelectedOptionIDs []uint `json:"selected_option_ids"`
}

type CompleteQuizRequest struct {
	QuizID         uint               `json:"quiz_id"`
	TotalQuestions int                `json:"total_questions"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        time.Time          `json:"end_time"`
	Answers        []AnswerSubmission `json:"answers"`
}

// Validate checks a candidate quiz payload and returns a ValidationError for
// the first violated rule. Rule order matters: title, owner, question count,
// then per-question and per-option checks in payload order.
func (s *QuizService) Validate(userID uint, req *QuizRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return validationErr("Title is required")
	}

	if userID == 0 {
		return validationErr("User is required")
	}

	if len(req.Questions) < 2 {
		return validationErr("Quiz must have at least 2 questions")
	}

	for _, question := range req.Questions {
		if strings.TrimSpace(question.Title) == "" {
			return validationErr("All questions must have a title")
		}

		if len(question.Options) < 2 {
			return validationErr("All questions must have at least 2 options")
		}

		for _, option := range question.Options {
			if strings.TrimSpace(option.Title) == "" {
				return validationErr("All options must have a title")
			}
		}
	}

	return nil
}

// generateCode draws one 6-character share code from [A-Z0-9], each character
// sampled uniformly.
func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// generateUniqueCode re-draws until the code is not held by any persisted
// quiz. Collisions are ~1/36^6 per draw, so the loop leaves on the first
// iteration in practice.
func (s *QuizService) generateUniqueCode(tx *gorm.DB) (string, error) {
	for {
		code, err := generateCode()
		if err != nil {
			return "", err
		}

		var count int64
		if err := tx.Model(&models.Quiz{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

func (s *QuizService) CreateQuiz(userID uint, req *QuizRequest) (*models.Quiz, error) {
	if err := s.Validate(userID, req); err != nil {
		return nil, err
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	code, err := s.generateUniqueCode(tx)
	if err != nil {
		tx.Rollback()
		return nil, internalErr("create quiz", err)
	}

	quiz := models.Quiz{
		Title:           req.Title,
		Description:     req.Description,
		Code:            code,
		UserID:          userID,
		RandomQuestions: req.RandomQuestions,
	}

	if err := tx.Create(&quiz).Error; err != nil {
		tx.Rollback()
		return nil, internalErr("create quiz", err)
	}

	// Incoming ids are ignored on create; every question and option is a new row.
	for _, qReq := range req.Questions {
		question := models.Question{
			QuizID:        quiz.ID,
			Title:         qReq.Title,
			RandomOptions: qReq.RandomOptions,
		}

		if err := tx.Create(&question).Error; err != nil {
			tx.Rollback()
			return nil, internalErr("create quiz", err)
		}

		for _, oReq := range qReq.Options {
			option := models.Option{
				QuestionID: question.ID,
				Title:      oReq.Title,
				IsCorrect:  oReq.IsCorrect,
			}

			if err := tx.Create(&option).Error; err != nil {
				tx.Rollback()
				return nil, internalErr("create quiz", err)
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, internalErr("create quiz", err)
	}

	return s.GetQuizByID(quiz.ID, userID)
}

// ListQuizzes returns quizzes across all owners.
func (s *QuizService) ListQuizzes() ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.id")
		}).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, internalErr("list quizzes", err)
	}
	return quizzes, nil
}

func (s *QuizService) ListUserQuizzes(userID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := s.db.Where("user_id = ?", userID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.id")
		}).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, internalErr("list user quizzes", err)
	}
	return quizzes, nil
}

// GetQuizByID loads the full quiz graph. A quiz owned by someone else is
// reported as not found, not as an authorization failure.
func (s *QuizService) GetQuizByID(quizID uint, userID uint) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.Where("id = ? AND user_id = ?", quizID, userID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.id")
		}).
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internalErr("get quiz", err)
	}
	return &quiz, nil
}

// GetQuizByCode resolves a share code to the quiz graph, owner-scoped like
// GetQuizByID. The code-to-id mapping is cached in Redis; a code never moves
// to another quiz once assigned, so the cache needs no invalidation.
func (s *QuizService) GetQuizByCode(code string, userID uint) (*models.Quiz, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrNotFound
	}

	if quizID := s.cachedQuizID(code); quizID > 0 {
		return s.GetQuizByID(quizID, userID)
	}

	var quiz models.Quiz
	err := s.db.Where("code = ? AND user_id = ?", code, userID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.id")
		}).
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internalErr("get quiz by code", err)
	}

	s.cacheQuizCode(code, quiz.ID)

	return &quiz, nil
}

// UpdateQuiz merges an edited quiz payload into the persisted graph: scalar
// fields are overwritten, questions and options are matched by id and updated
// in place or inserted, and persisted rows absent from the payload are
// removed. Runs as a single transaction.
func (s *QuizService) UpdateQuiz(quizID uint, userID uint, req *QuizRequest) (*models.Quiz, error) {
	if err := s.Validate(userID, req); err != nil {
		return nil, err
	}

	var quiz models.Quiz
	err := s.db.Where("id = ?", quizID).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.id")
		}).
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internalErr("update quiz", err)
	}

	if quiz.UserID != userID {
		return nil, ErrForbidden
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	updates := map[string]interface{}{
		"title":            req.Title,
		"description":      req.Description,
		"random_questions": req.RandomQuestions,
	}

	// Quizzes created before codes existed get one backfilled here.
	if quiz.Code == "" {
		code, err := s.generateUniqueCode(tx)
		if err != nil {
			tx.Rollback()
			return nil, internalErr("update quiz", err)
		}
		updates["code"] = code
	}

	if err := tx.Model(&models.Quiz{}).Where("id = ?", quiz.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, internalErr("update quiz", err)
	}

	persisted := make(map[uint]models.Question, len(quiz.Questions))
	for _, question := range quiz.Questions {
		persisted[question.ID] = question
	}

	keptQuestions := make(map[uint]bool)

	for _, qReq := range req.Questions {
		existing, matched := persisted[qReq.ID]
		if qReq.ID != 0 && matched {
			keptQuestions[qReq.ID] = true

			err := tx.Model(&models.Question{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
				"title":          qReq.Title,
				"random_options": qReq.RandomOptions,
			}).Error
			if err != nil {
				tx.Rollback()
				return nil, internalErr("update quiz", err)
			}

			if err := s.reconcileOptions(tx, &existing, qReq.Options); err != nil {
				tx.Rollback()
				return nil, internalErr("update quiz", err)
			}
			continue
		}

		question := models.Question{
			QuizID:        quiz.ID,
			Title:         qReq.Title,
			RandomOptions: qReq.RandomOptions,
		}
		if err := tx.Create(&question).Error; err != nil {
			tx.Rollback()
			return nil, internalErr("update quiz", err)
		}

		for _, oReq := range qReq.Options {
			option := models.Option{
				QuestionID: question.ID,
				Title:      oReq.Title,
				IsCorrect:  oReq.IsCorrect,
			}
			if err := tx.Create(&option).Error; err != nil {
				tx.Rollback()
				return nil, internalErr("update quiz", err)
			}
		}
	}

	// Drop persisted questions the payload no longer carries. Id 0 marks a row
	// not yet persisted and is never eligible for removal.
	for _, question := range quiz.Questions {
		if question.ID == 0 || keptQuestions[question.ID] {
			continue
		}

		if err := tx.Where("question_id = ?", question.ID).Delete(&models.Option{}).Error; err != nil {
			tx.Rollback()
			return nil, internalErr("update quiz", err)
		}
		if err := tx.Delete(&models.Question{}, question.ID).Error; err != nil {
			tx.Rollback()
			return nil, internalErr("update quiz", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, internalErr("update quiz", err)
	}

	return s.GetQuizByID(quiz.ID, userID)
}

// reconcileOptions applies the matched-update-or-insert rule to one question's
// options, then hard-deletes persisted options missing from the payload.
func (s *QuizService) reconcileOptions(tx *gorm.DB, question *models.Question, incoming []OptionRequest) error {
	persisted := make(map[uint]models.Option, len(question.Options))
	for _, option := range question.Options {
		persisted[option.ID] = option
	}

	kept := make(map[uint]bool)

	for _, oReq := range incoming {
		if _, matched := persisted[oReq.ID]; oReq.ID != 0 && matched {
			kept[oReq.ID] = true

			err := tx.Model(&models.Option{}).Where("id = ?", oReq.ID).Updates(map[string]interface{}{
				"title":      oReq.Title,
				"is_correct": oReq.IsCorrect,
			}).Error
			if err != nil {
				return err
			}
			continue
		}

		option := models.Option{
			QuestionID: question.ID,
			Title:      oReq.Title,
			IsCorrect:  oReq.IsCorrect,
		}
		if err := tx.Create(&option).Error; err != nil {
			return err
		}
	}

	for _, option := range question.Options {
		if option.ID == 0 || kept[option.ID] {
			continue
		}
		if err := tx.Delete(&models.Option{}, option.ID).Error; err != nil {
			return err
		}
	}

	return nil
}

func (s *QuizService) DeleteQuiz(quizID uint, userID uint) error {
	var quiz models.Quiz
	err := s.db.Where("id = ?", quizID).First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return internalErr("delete quiz", err)
	}

	if quiz.UserID != userID {
		return ErrForbidden
	}

	var questionIDs []uint
	if err := s.db.Model(&models.Question{}).Where("quiz_id = ?", quizID).Pluck("id", &questionIDs).Error; err != nil {
		return internalErr("delete quiz", err)
	}

	// Start transaction
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if len(questionIDs) > 0 {
		if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.Option{}).Error; err != nil {
			tx.Rollback()
			return internalErr("delete quiz", err)
		}
	}

	if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error; err != nil {
		tx.Rollback()
		return internalErr("delete quiz", err)
	}

	if err := tx.Delete(&models.Quiz{}, quizID).Error; err != nil {
		tx.Rollback()
		return internalErr("delete quiz", err)
	}

	if err := tx.Commit().Error; err != nil {
		return internalErr("delete quiz", err)
	}

	return nil
}

// CompleteQuiz scores a finished attempt and persists the result. An answer
// counts as correct only when its selected option set equals the question's
// correct set exactly, which covers both single- and multi-select questions.
func (s *QuizService) CompleteQuiz(userID uint, req *CompleteQuizRequest) (*models.QuizResult, error) {
	if req.QuizID == 0 {
		return nil, validationErr("Quiz is required")
	}
	if userID == 0 {
		return nil, validationErr("User is required")
	}
	if req.TotalQuestions <= 0 {
		return nil, validationErr("Total questions must be greater than zero")
	}

	var quiz models.Quiz
	err := s.db.Where("id = ?", req.QuizID).
		Preload("Questions").
		Preload("Questions.Options").
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, internalErr("complete quiz", err)
	}

	correctByQuestion := make(map[uint]map[uint]bool, len(quiz.Questions))
	for _, question := range quiz.Questions {
		correct := make(map[uint]bool)
		for _, option := range question.Options {
			if option.IsCorrect {
				correct[option.ID] = true
			}
		}
		correctByQuestion[question.ID] = correct
	}

	score := 0
	for _, answer := range req.Answers {
		correct, ok := correctByQuestion[answer.QuestionID]
		if !ok {
			continue
		}
		if isExactMatch(answer, correct) {
			score++
		}
	}

	percentage := int(math.Round(float64(score) * 100 / float64(req.TotalQuestions)))

	// Client clocks drift; a slightly negative duration is clamped, not rejected.
	duration := int(req.EndTime.Sub(req.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	result := models.QuizResult{
		QuizID:          req.QuizID,
		UserID:          userID,
		Score:           score,
		TotalQuestions:  req.TotalQuestions,
		Percentage:      percentage,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationSeconds: duration,
	}

	if err := s.db.Create(&result).Error; err != nil {
		return nil, internalErr("complete quiz", err)
	}

	return &result, nil
}

// isExactMatch reports whether the answer's selected options equal the
// question's correct set with no option missing and none extra.
func isExactMatch(answer AnswerSubmission, correct map[uint]bool) bool {
	selected := answer.SelectedOptionIDs
	if len(selected) == 0 && answer.SelectedOptionID != 0 {
		selected = []uint{answer.SelectedOptionID}
	}

	seen := make(map[uint]bool, len(selected))
	for _, optionID := range selected {
		if !correct[optionID] {
			return false
		}
		seen[optionID] = true
	}

	return len(seen) == len(correct) && len(correct) > 0
}

// GetResults lists the caller's completed attempts, newest first.
func (s *QuizService) GetResults(userID uint) ([]models.QuizResult, error) {
	var results []models.QuizResult
	err := s.db.Where("user_id = ?", userID).
		Preload("Quiz").
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, internalErr("list results", err)
	}
	return results, nil
}

func (s *QuizService) cachedQuizID(code string) uint {
	if s.redis == nil {
		return 0
	}

	value, err := s.redis.Get(context.Background(), "quizcode:"+code).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("redis error reading quiz code", "code", code, "error", err)
		}
		return 0
	}

	quizID, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0
	}
	return uint(quizID)
}

func (s *QuizService) cacheQuizCode(code string, quizID uint) {
	if s.redis == nil {
		return
	}

	err := s.redis.Set(context.Background(), "quizcode:"+code, strconv.FormatUint(uint64(quizID), 10), codeCacheTTL).Err()
	if err != nil {
		slog.Warn("failed to cache quiz code", "code", code, "error", err)
	}
}
