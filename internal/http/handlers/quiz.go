package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/domain/learning"
	"github.com/yungbote/sparkquest-backend/internal/http/response"
	"github.com/yungbote/sparkquest-backend/internal/platform/ctxutil"
	"github.com/yungbote/sparkquest-backend/internal/platform/logger"
	"github.com/yungbote/sparkquest-backend/internal/services"
)

type QuizHandler struct {
	log             *logger.Logger
	quizService     services.QuizService
	progressService services.ProgressService
	now             func() time.Time
}

func NewQuizHandler(log *logger.Logger, quizService services.QuizService, progressService services.ProgressService) *QuizHandler {
	return &QuizHandler{
		log:             log.With("handler", "QuizHandler"),
		quizService:     quizService,
		progressService: progressService,
		now:             time.Now,
	}
}

// quizResult is a completed session or the next question, plus the caller's
// aggregates when the submission moved them.
type quizResult struct {
	*services.QuestionView
	Completed bool                  `json:"completed,omitempty"`
	Message   string                `json:"message,omitempty"`
	TotalXP   *int                  `json:"totalXp,omitempty"`
	Progress  *types.UserAggregates `json:"progress,omitempty"`
}

func resultFor(sel *services.Selection) quizResult {
	if sel.Completed {
		total := sel.TotalXP
		return quizResult{Completed: true, Message: sel.Message, TotalXP: &total}
	}
	return quizResult{QuestionView: sel.Question}
}

// GET /api/quiz/:topic/next?questionNumber=N
func (qh *QuizHandler) Next(c *gin.Context) {
	questionNumber := 0
	if raw := strings.TrimSpace(c.Query("questionNumber")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondFieldErrors(c, http.StatusBadRequest, []types.FieldError{{Path: "questionNumber", Message: "questionNumber must be a non-negative integer"}})
			return
		}
		questionNumber = n
	}
	sel, err := qh.quizService.NextQuestion(c.Request.Context(), c.Param("topic"), ctxutil.UserID(c.Request.Context()), questionNumber)
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}
	response.RespondOK(c, resultFor(sel))
}

type answerRequest struct {
	QuestionNumber *int   `json:"questionNumber" binding:"required,min=0"`
	QuestionID     string `json:"questionId"`
	IsCorrect      *bool  `json:"isCorrect"`
	XP             *int   `json:"xp"`
	UserAnswer     string `json:"userAnswer"`
}

// POST /api/quiz/:topic/answer
func (qh *QuizHandler) Answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFieldErrors(c, http.StatusBadRequest, response.BindingFieldErrors(err))
		return
	}
	ctx := c.Request.Context()
	userID := ctxutil.UserID(ctx)
	xp := 0
	if req.XP != nil {
		xp = *req.XP
	}

	rec, err := qh.progressService.RecordAnswer(ctx, services.RecordAnswerInput{
		UserID:      userID,
		Topic:       c.Param("topic"),
		QuestionID:  req.QuestionID,
		XP:          xp,
		Correctness: learning.CorrectnessFromBool(req.IsCorrect),
		UserAnswer:  req.UserAnswer,
	}, qh.now())
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}

	sel, err := qh.quizService.NextQuestion(ctx, c.Param("topic"), userID, *req.QuestionNumber)
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}
	out := resultFor(sel)
	if rec.Recorded {
		agg := rec.Aggregates
		out.Progress = &agg
	}
	response.RespondOK(c, out)
}

// POST /api/progress/complete-lesson
func (qh *QuizHandler) CompleteLesson(c *gin.Context) {
	var req struct {
		XP *int `json:"xp" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFieldErrors(c, http.StatusBadRequest, response.BindingFieldErrors(err))
		return
	}
	ctx := c.Request.Context()
	rec, err := qh.progressService.CompleteLesson(ctx, ctxutil.UserID(ctx), *req.XP, qh.now())
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}
	response.RespondOK(c, gin.H{"progress": rec.Aggregates})
}

// GET /api/progress?topic=&limit=
func (qh *QuizHandler) History(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondFieldErrors(c, http.StatusBadRequest, []types.FieldError{{Path: "limit", Message: "limit must be an integer"}})
			return
		}
		limit = n
	}
	ctx := c.Request.Context()
	records, err := qh.progressService.History(ctx, ctxutil.UserID(ctx), c.Query("topic"), limit)
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}
	response.RespondOK(c, gin.H{"progress": records})
}

// GET /api/quiz/topics
func (qh *QuizHandler) Topics(c *gin.Context) {
	topics, err := qh.quizService.Topics(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err, false)
		return
	}
	response.RespondOK(c, gin.H{"topics": topics})
}
