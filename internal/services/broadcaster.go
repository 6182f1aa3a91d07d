package services

import "learn-and-earn/internal/models"

// Broadcaster pushes account changes to connected clients.
type Broadcaster interface {
	BroadcastBalance(update models.BalanceUpdate)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastBalance(models.BalanceUpdate) {}
