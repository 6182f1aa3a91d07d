package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
	logger     *slog.Logger
}

func NewGameHandler(gameEngine *services.GameEngine, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		gameEngine: gameEngine,
		logger:     logger,
	}
}

// bindOptional tolerates an empty body: the email field is informational.
func bindOptional(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, err)
		return false
	}
	return true
}

func (h *GameHandler) PlayLottery(c *gin.Context) {
	var req models.PlayFreeRequest
	if !bindOptional(c, &req) || !sameAccount(c, req.Email) {
		return
	}

	result, err := h.gameEngine.PlayLottery(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) Unlock(c *gin.Context) {
	var req models.UnlockRequest
	if !bindOptional(c, &req) || !sameAccount(c, req.Email) {
		return
	}

	result, err := h.gameEngine.Unlock(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) PlayDino(c *gin.Context) {
	var req models.DinoPlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if !sameAccount(c, req.Email) {
		return
	}

	result, err := h.gameEngine.PlayDino(c.Request.Context(), currentEmail(c), req.Score)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) GetVerificationData(c *gin.Context) {
	data, err := h.gameEngine.GetVerificationData(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, data)
}
