package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/sparkquest-backend/internal/domain"
	"github.com/yungbote/sparkquest-backend/internal/http/response"
	"github.com/yungbote/sparkquest-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/profile
func (uh *UserHandler) GetProfile(c *gin.Context) {
	p, err := uh.userService.GetProfile(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err, false)
		return
	}
	response.RespondOK(c, p)
}

// PATCH /api/profile
// body: { "first_name"?: "...", "last_name"?: "..." }
func (uh *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFieldErrors(c, http.StatusBadRequest, response.BindingFieldErrors(err))
		return
	}
	u, err := uh.userService.UpdateName(c.Request.Context(), req.FirstName, req.LastName)
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// POST /api/profile/avatar (multipart field "file")
func (uh *UserHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxAvatarUploadBytes+(1<<20))
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		msg := "file is required"
		if errors.As(err, &tooBig) {
			msg = "file must be 5MB or smaller"
		}
		response.RespondFieldErrors(c, http.StatusBadRequest, []types.FieldError{{Path: "file", Message: msg}})
		return
	}
	if fh.Size > services.MaxAvatarUploadBytes {
		response.RespondFieldErrors(c, http.StatusBadRequest, []types.FieldError{{Path: "file", Message: "file must be 5MB or smaller"}})
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, services.MaxAvatarUploadBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	u, err := uh.userService.UploadAvatarImage(c.Request.Context(), raw)
	if err != nil {
		response.RespondDomainError(c, err, true)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}
