package models

import "time"

type TransactionType string

const (
	TransactionTypeReward   TransactionType = "reward"
	TransactionTypeUnlock   TransactionType = "unlock"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeRefund   TransactionType = "refund"
	TransactionTypeReferral TransactionType = "referral"
)

// Unit names what a ledger entry's Amount and BalanceAfter count.
type Unit string

const (
	UnitTaka   Unit = "taka"
	UnitTokens Unit = "tokens"
)

// Unit reports the currency a transaction type moves.
func (t TransactionType) Unit() Unit {
	switch t {
	case TransactionTypeUnlock, TransactionTypeReferral:
		return UnitTokens
	default:
		return UnitTaka
	}
}

type Transaction struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Type         TransactionType `json:"type"`
	Unit         Unit            `json:"unit"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balanceAfter"`
	Game         GameID          `json:"game,omitempty"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"createdAt"`
}
