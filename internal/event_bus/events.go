package event_bus

import "time"

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"

	BudgetCreated EventType = "budget.created"
	BudgetUpdated EventType = "budget.updated"
	BudgetDeleted EventType = "budget.deleted"

	PasswordResetRequested EventType = "auth.password_reset.requested"
)

// DomainEvents lists the event types that may leave the process.
// Password reset events carry secrets and are never forwarded.
var DomainEvents = []EventType{
	TransactionCreated,
	TransactionUpdated,
	TransactionDeleted,
	BudgetCreated,
	BudgetUpdated,
	BudgetDeleted,
}

type TransactionChanged struct {
	Id       int       `json:"id"`
	UserId   int       `json:"user_id"`
	Type     string    `json:"type"`
	Category string    `json:"category"`
	Amount   string    `json:"amount"`
	Date     time.Time `json:"date"`
}

type BudgetChanged struct {
	Id       int    `json:"id"`
	UserId   int    `json:"user_id"`
	Category string `json:"category"`
	Month    string `json:"month"`
	Limit    string `json:"limit"`
}

type ResetChannel string

const (
	ResetByEmail ResetChannel = "email"
	ResetBySms   ResetChannel = "sms"
)

type PasswordResetRequest struct {
	UserId    int
	Channel   ResetChannel
	Email     string
	Phone     string
	Token     string
	ExpiresAt time.Time
}
