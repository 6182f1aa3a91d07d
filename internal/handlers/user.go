package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

type UserHandler struct {
	accounts *services.AccountService
	logger   *slog.Logger
}

func NewUserHandler(accounts *services.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.accounts.Profile(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) GetTeam(c *gin.Context) {
	team, err := h.accounts.Team(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.TeamResponse{Team: team})
}

// GetRole looks up a role by referralCode, or by email when no code is given.
func (h *UserHandler) GetRole(c *gin.Context) {
	email := c.Query("email")
	code := c.Query("referralCode")
	if email == "" && code == "" {
		respondMessage(c, http.StatusBadRequest, "email or referralCode is required")
		return
	}

	role, err := h.accounts.Role(c.Request.Context(), email, code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.RoleResponse{Role: role})
}

func (h *UserHandler) UpdatePhoto(c *gin.Context) {
	var req models.UpdatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if !sameAccount(c, req.Email) {
		return
	}

	if err := h.accounts.UpdatePhoto(c.Request.Context(), currentEmail(c), req.PhotoURL); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{Success: true, Message: "Photo updated"})
}

func (h *UserHandler) GetTransactions(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	txs, err := h.accounts.Transactions(c.Request.Context(), currentEmail(c), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *UserHandler) Withdraw(c *gin.Context) {
	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	w, err := h.accounts.RequestWithdrawal(c.Request.Context(), currentEmail(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.WithdrawResponse{
		Message:    "Withdrawal request submitted",
		Withdrawal: w,
	})
}

func (h *UserHandler) SubmitPayment(c *gin.Context) {
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if !sameAccount(c, req.Email) {
		return
	}

	payment, err := h.accounts.SubmitPayment(c.Request.Context(), currentEmail(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}
