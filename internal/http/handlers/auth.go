package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/sparkquest-backend/internal/http/response"
	"github.com/yungbote/sparkquest-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/signup
func (ah *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFieldErrors(c, http.StatusBadRequest, response.BindingFieldErrors(err))
		return
	}
	user, err := ah.authService.Signup(c.Request.Context(), services.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// POST /api/signin
func (ah *AuthHandler) Signin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFieldErrors(c, http.StatusBadRequest, response.BindingFieldErrors(err))
		return
	}
	pair, err := ah.authService.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.RespondDomainError(c, err, false)
		return
	}
	response.RespondOK(c, pair)
}

// POST /api/refresh
func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFieldErrors(c, http.StatusBadRequest, response.BindingFieldErrors(err))
		return
	}
	pair, err := ah.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.RespondDomainError(c, err, false)
		return
	}
	response.RespondOK(c, pair)
}

// POST /api/signout
func (ah *AuthHandler) Signout(c *gin.Context) {
	if err := ah.authService.Signout(c.Request.Context()); err != nil {
		response.RespondDomainError(c, err, false)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
