package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/http/response"
	"github.com/yungbote/sparkquest-backend/internal/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GET /api/leaderboard?limit=10&by=total_xp
func (lh *LeaderboardHandler) Top(c *gin.Context) {
	limit := services.DefaultLeaderboardLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > services.MaxLeaderboardLimit {
			response.RespondFieldErrors(c, http.StatusBadRequest, []types.FieldError{{Path: "limit", Message: "limit must be between 1 and 100"}})
			return
		}
		limit = n
	}
	by := c.DefaultQuery("by", "total_xp")
	entries, err := lh.leaderboardService.Top(c.Request.Context(), by, limit)
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}
	response.RespondOK(c, gin.H{"by": by, "entries": entries})
}

// GET /api/leaderboard/me
func (lh *LeaderboardHandler) Me(c *gin.Context) {
	me, err := lh.leaderboardService.Me(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err, false)
		return
	}
	response.RespondOK(c, me)
}
