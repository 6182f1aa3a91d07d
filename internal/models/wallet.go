package models

import "time"

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

type Withdrawal struct {
	ID          string           `json:"_id" redis:"id"`
	Email       string           `json:"email" redis:"email"`
	Name        string           `json:"name,omitempty" redis:"name"`
	Amount      int64            `json:"amount" redis:"amount"`
	Status      WithdrawalStatus `json:"status" redis:"status"`
	RequestedAt int64            `json:"requestedAt" redis:"requested_at"`
	ResolvedAt  int64            `json:"resolvedAt,omitempty" redis:"resolved_at"`
}

type WithdrawRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type WithdrawResponse struct {
	Message    string      `json:"message"`
	Withdrawal *Withdrawal `json:"withdrawal,omitempty"`
}

// BalanceUpdate is pushed over the websocket after every balance change.
type BalanceUpdate struct {
	Email         string    `json:"email"`
	Balance       int64     `json:"balance"`
	LockedBalance int64     `json:"lockedBalance"`
	Tokens        int64     `json:"tokens"`
	At            time.Time `json:"at"`
}
