package domain

import (
	"time"
)

// Frequency describes how often a subscription recurs. Automatic
// detection only ever produces FrequencyMonthly; yearly appears on
// user-declared entries. Weekly detection is not implemented.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyIrregular Frequency = "irregular"
)

// SubscriptionStatus is the due-state of a subscription relative to the
// evaluation clock.
type SubscriptionStatus string

const (
	// StatusPaid is reserved for manually-confirmed entries; automatic
	// detection never assigns it.
	StatusPaid    SubscriptionStatus = "paid"
	StatusDue     SubscriptionStatus = "due"
	StatusOverdue SubscriptionStatus = "overdue"
)

// Subscription is a believed-recurring payment, either inferred from
// transaction history or declared by the user. DaysUntilDue is signed;
// negative means overdue.
type Subscription struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	AverageAmount float64            `json:"averageAmount"`
	Frequency     Frequency          `json:"frequency"`
	NextDueDate   time.Time          `json:"nextDueDate"`
	Status        SubscriptionStatus `json:"status"`
	DaysUntilDue  int                `json:"daysUntilDue"`
}

// ManualSubscription is a subscription the user declared explicitly
// (name, amount, due date) rather than one inferred from history. Manual
// entries always win when merged against detected ones.
type ManualSubscription struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Amount      float64   `json:"amount"`
	Frequency   Frequency `json:"frequency"`
	NextDueDate time.Time `json:"nextDueDate"`
	IsManual    bool      `json:"isManual"`
}
