package domain

import (
	"time"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Transaction represents one immutable financial event from the user's
// history. The signal engines only ever read these; they are produced by
// the snapshot repositories or decoded once at the API edge.
type Transaction struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Amount      float64         `json:"amount"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Type        TransactionType `json:"type"`
}

// Budget is a per-category monthly spending ceiling. Category is the
// unique key within a budget set.
type Budget struct {
	Category string  `json:"category"`
	Limit    float64 `json:"limit"`
}
