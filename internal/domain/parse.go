package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNilSnapshot is returned when a nil collection is handed to the parse
// boundary where a (possibly empty) list was required. Empty lists are
// always valid input; nil signals a caller bug and should fail fast.
var ErrNilSnapshot = errors.New("domain: nil snapshot where a list was required")

// The upstream document store is loosely typed, so records arrive as
// generic JSON objects. Parsing happens exactly once at the edge: the
// engines downstream assume fully-populated, well-typed records.
//
// Malformed records (unparsable dates, non-numeric amounts) are excluded
// rather than failing the whole snapshot; the skipped count is returned so
// callers can log it.

// ParseTransactions converts raw transaction documents into Transactions.
// Missing category defaults to "Other"; anything that is not income is
// treated as an expense; a missing ID is synthesized from the position so
// downstream dedup keys stay distinct.
func ParseTransactions(raw []map[string]interface{}) ([]Transaction, int, error) {
	if raw == nil {
		return nil, 0, fmt.Errorf("ParseTransactions: %w", ErrNilSnapshot)
	}

	result := make([]Transaction, 0, len(raw))
	skipped := 0

	for i, obj := range raw {
		title := stringField(obj, "title")
		date, ok := dateField(obj, "date")
		if !ok {
			skipped++
			continue
		}
		amount, ok := floatField(obj, "amount")
		if !ok {
			skipped++
			continue
		}

		id := stringField(obj, "id")
		if id == "" {
			id = fmt.Sprintf("tx-%d", i)
		}

		category := stringField(obj, "category")
		if category == "" {
			category = "Other"
		}

		txType := TypeExpense
		if strings.EqualFold(stringField(obj, "type"), string(TypeIncome)) {
			txType = TypeIncome
		}

		result = append(result, Transaction{
			ID:          id,
			Title:       title,
			Amount:      amount,
			Date:        date,
			Category:    category,
			Description: stringField(obj, "description"),
			Type:        txType,
		})
	}

	return result, skipped, nil
}

// ParseBudgets converts raw budget documents into Budgets. Entries with a
// missing category or a non-positive limit are excluded.
func ParseBudgets(raw []map[string]interface{}) ([]Budget, int, error) {
	if raw == nil {
		return nil, 0, fmt.Errorf("ParseBudgets: %w", ErrNilSnapshot)
	}

	result := make([]Budget, 0, len(raw))
	skipped := 0

	for _, obj := range raw {
		category := stringField(obj, "category")
		limit, ok := floatField(obj, "limit")
		if category == "" || !ok || limit <= 0 {
			skipped++
			continue
		}
		result = append(result, Budget{Category: category, Limit: limit})
	}

	return result, skipped, nil
}

// ParseManualSubscriptions converts raw user-declared subscription
// documents. Frequency defaults to monthly; yearly is the only other
// accepted value. Entries without a parsable due date are excluded.
func ParseManualSubscriptions(raw []map[string]interface{}) ([]ManualSubscription, int, error) {
	if raw == nil {
		return nil, 0, fmt.Errorf("ParseManualSubscriptions: %w", ErrNilSnapshot)
	}

	result := make([]ManualSubscription, 0, len(raw))
	skipped := 0

	for i, obj := range raw {
		name := stringField(obj, "name")
		nextDue, ok := dateField(obj, "nextDueDate")
		if name == "" || !ok {
			skipped++
			continue
		}
		amount, ok := floatField(obj, "amount")
		if !ok {
			skipped++
			continue
		}

		id := stringField(obj, "id")
		if id == "" {
			id = fmt.Sprintf("manual-%d", i)
		}

		freq := FrequencyMonthly
		if strings.EqualFold(stringField(obj, "frequency"), string(FrequencyYearly)) {
			freq = FrequencyYearly
		}

		result = append(result, ManualSubscription{
			ID:          id,
			Name:        name,
			Amount:      amount,
			Frequency:   freq,
			NextDueDate: nextDue,
			IsManual:    true,
		})
	}

	return result, skipped, nil
}

func stringField(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func floatField(m map[string]interface{}, key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// dateField accepts the date shapes the upstream store is known to emit:
// plain calendar dates and RFC3339 timestamps.
func dateField(m map[string]interface{}, key string) (time.Time, bool) {
	s := stringField(m, key)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
