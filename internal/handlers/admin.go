package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

type AdminHandler struct {
	accounts *services.AccountService
	logger   *slog.Logger
}

func NewAdminHandler(accounts *services.AccountService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{accounts: accounts, logger: logger}
}

func (h *AdminHandler) ListPayments(c *gin.Context) {
	payments, err := h.accounts.ListPayments(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *AdminHandler) SetPaymentStatus(c *gin.Context) {
	var req models.PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	payment, err := h.accounts.SetPaymentStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *AdminHandler) ListPendingUsers(c *gin.Context) {
	users, err := h.accounts.PendingUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) ApprovePendingUser(c *gin.Context) {
	user, err := h.accounts.ApprovePendingUser(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.ActionResponse{
		Success: true,
		Message: user.Name + " is now a member",
	})
}

func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	withdrawals, err := h.accounts.ListWithdrawals(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, withdrawals)
}

func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	h.settleWithdrawal(c, true)
}

func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	h.settleWithdrawal(c, false)
}

func (h *AdminHandler) settleWithdrawal(c *gin.Context, approve bool) {
	w, err := h.accounts.SettleWithdrawal(c.Request.Context(), c.Param("id"), approve)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Withdrawal approved"
	if !approve {
		message = "Withdrawal rejected and refunded"
	}
	c.JSON(http.StatusOK, models.WithdrawResponse{Message: message, Withdrawal: w})
}

func (h *AdminHandler) ListMembers(c *gin.Context) {
	members, err := h.accounts.Members(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *AdminHandler) GetMemberProfile(c *gin.Context) {
	profile, err := h.accounts.Profile(c.Request.Context(), models.NormalizeEmail(c.Param("email")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
