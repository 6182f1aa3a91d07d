package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"learn-and-earn/internal/middleware"
	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// Games-state errors are 400/409 rather than 403: clients treat 401 and 403
// as session invalidation.
var errorMappings = []errorMapping{
	{services.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{services.ErrNotFound, http.StatusNotFound, "Not found"},
	{services.ErrConflict, http.StatusConflict, "Already exists"},
	{services.ErrGamesLocked, http.StatusBadRequest, "Games are locked. Unlock them with tokens to play."},
	{services.ErrNoPlaysLeft, http.StatusBadRequest, "No free plays left today. Come back after the reset."},
	{services.ErrInsufficientTokens, http.StatusBadRequest, "Not enough tokens to unlock games."},
	{services.ErrAlreadyUnlocked, http.StatusConflict, "Games are already unlocked."},
	{services.ErrInsufficientBalance, http.StatusBadRequest, "Insufficient balance"},
	{services.ErrAlreadySettled, http.StatusConflict, "Withdrawal already settled"},
	{services.ErrAlreadyMember, http.StatusConflict, "You are already a member."},
	{services.ErrRateLimited, http.StatusTooManyRequests, "Too many requests. Please wait."},
	{services.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
	{services.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func respondBadRequest(c *gin.Context, err error) {
	respondMessage(c, http.StatusBadRequest, err.Error())
}

// respondError maps a service error to its HTTP status in one place.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var inputErr *services.InputError
	if errors.As(err, &inputErr) {
		respondMessage(c, http.StatusBadRequest, inputErr.Error())
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			respondMessage(c, m.status, m.message)
			return
		}
	}

	logger.ErrorContext(c.Request.Context(), "request failed",
		slog.String("path", c.FullPath()),
		slog.Any("error", err),
	)
	respondMessage(c, http.StatusInternalServerError, "Something went wrong")
}

func currentEmail(c *gin.Context) string {
	return c.GetString(middleware.ContextEmail)
}

// sameAccount rejects bodies that name an account other than the caller's.
// An empty body email means the caller's own.
func sameAccount(c *gin.Context, bodyEmail string) bool {
	if bodyEmail == "" || models.NormalizeEmail(bodyEmail) == currentEmail(c) {
		return true
	}
	respondMessage(c, http.StatusForbidden, "You can only act on your own account")
	return false
}
