package models

import "time"

type PlayFreeRequest struct {
	Email string `json:"email"`
}

// PlayFreeResponse is the lottery outcome. Older deployments report the
// remaining budget as freePlaysLeft; both are populated.
type PlayFreeResponse struct {
	Success        bool       `json:"success"`
	Win            bool       `json:"win"`
	Slots          []string   `json:"slots"`
	Message        string     `json:"message"`
	Reward         int64      `json:"reward"`
	NewBalance     *int64     `json:"newBalance,omitempty"`
	RemainingPlays *int       `json:"remainingPlays,omitempty"`
	FreePlaysLeft  *int       `json:"freePlaysLeft,omitempty"`
	NextResetAt    *time.Time `json:"nextResetAt,omitempty"`
	Nonce          int64      `json:"nonce"`
}

func (r *PlayFreeResponse) Remaining() (int, bool) {
	if r.RemainingPlays != nil {
		return *r.RemainingPlays, true
	}
	if r.FreePlaysLeft != nil {
		return *r.FreePlaysLeft, true
	}
	return 0, false
}

type UnlockRequest struct {
	Email string `json:"email"`
}

type UnlockResponse struct {
	Message    string     `json:"message"`
	Tokens     *int64     `json:"tokens,omitempty"`
	UnlockDate *time.Time `json:"unlockDate,omitempty"`
}

type DinoPlayRequest struct {
	Email string `json:"email"`
	Score int    `json:"score" binding:"min=0"`
}

type DinoPlayResponse struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	Reward         int64      `json:"reward"`
	NewBalance     *int64     `json:"newBalance,omitempty"`
	RemainingPlays *int       `json:"remainingPlays,omitempty"`
	NextResetAt    *time.Time `json:"nextResetAt,omitempty"`
}

type VerificationData struct {
	ClientSeed   string `json:"clientSeed"`
	ServerHash   string `json:"serverHash"`
	CurrentNonce int64  `json:"currentNonce"`
}
