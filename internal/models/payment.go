package models

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentApproved, PaymentRejected:
		return true
	default:
		return false
	}
}

type Payment struct {
	ID         string        `json:"_id" redis:"id"`
	Name       string        `json:"name" redis:"name"`
	Email      string        `json:"email" redis:"email"`
	Phone      string        `json:"phone" redis:"phone"`
	Screenshot string        `json:"screenshot" redis:"screenshot"`
	Status     PaymentStatus `json:"status" redis:"status"`
	Date       int64         `json:"date" redis:"date"`
}

type PaymentRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Screenshot string `json:"screenshot" binding:"required"`
}

type PaymentStatusRequest struct {
	Status PaymentStatus `json:"status" binding:"required"`
}

// ActionResponse is the generic {success, message} acknowledgement.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
