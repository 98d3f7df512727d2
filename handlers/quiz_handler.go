package handlers

import (
	"net/http"
	"strconv"

	"quizmaster/services"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService *services.QuizService
}

func NewQuizHandler(quizService *services.QuizService) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
	}
}

func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	_, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	quizzes, err := h.quizService.ListQuizzes()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, quizzes)
}

func (h *QuizHandler) ListUserQuizzes(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	quizzes, err := h.quizService.ListUserQuizzes(userID.(uint))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, quizzes)
}

func (h *QuizHandler) GetQuizByID(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	quizID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "warning", "Invalid quiz ID")
		return
	}

	quiz, err := h.quizService.GetQuizByID(uint(quizID), userID.(uint))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, quiz)
}

func (h *QuizHandler) GetQuizByCode(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	quiz, err := h.quizService.GetQuizByCode(c.Param("code"), userID.(uint))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, quiz)
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	var req services.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "warning", err.Error())
		return
	}

	quiz, err := h.quizService.CreateQuiz(userID.(uint), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, quiz)
}

func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	quizID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "warning", "Invalid quiz ID")
		return
	}

	var req services.QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "warning", err.Error())
		return
	}

	quiz, err := h.quizService.UpdateQuiz(uint(quizID), userID.(uint), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, quiz)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	quizID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "warning", "Invalid quiz ID")
		return
	}

	if err := h.quizService.DeleteQuiz(uint(quizID), userID.(uint)); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, gin.H{"message": "Quiz deleted successfully"})
}

func (h *QuizHandler) CompleteQuiz(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	var req services.CompleteQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "warning", err.Error())
		return
	}

	result, err := h.quizService.CompleteQuiz(userID.(uint), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, result)
}

func (h *QuizHandler) GetResults(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "error", "User not authenticated")
		return
	}

	results, err := h.quizService.GetResults(userID.(uint))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, results)
}
