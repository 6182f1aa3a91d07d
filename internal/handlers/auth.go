package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
	logger   *slog.Logger
}

func NewAuthHandler(accounts *services.AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

// IssueToken exchanges a registered email for a session token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	token, err := h.accounts.IssueToken(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{Token: token})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.accounts.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// DeleteUser rolls back a registration. Callers may delete themselves;
// admins may delete anyone.
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	target := models.NormalizeEmail(c.Param("email"))
	caller := currentEmail(c)

	if target != caller {
		role, err := h.accounts.Role(c.Request.Context(), caller, "")
		if err != nil || role != models.RoleAdmin {
			respondMessage(c, http.StatusForbidden, "You can only delete your own account")
			return
		}
	}

	if err := h.accounts.DeleteUser(c.Request.Context(), target); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.ActionResponse{Success: true, Message: "User deleted"})
}
