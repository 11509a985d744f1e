package signal

import (
	"sort"
	"strings"
	"time"

	"github.com/finzora/signal-engine/internal/domain"
)

const (
	// Consecutive charges this many days apart (inclusive) count as a
	// monthly cadence.
	monthlyGapMin = 25
	monthlyGapMax = 35

	// Subscriptions more than this many days overdue are treated as
	// cancelled and suppressed.
	overdueCutoffDays = 45
)

// DetectRecurring infers monthly subscriptions from expense history.
//
// Transactions are grouped by normalized title (lowercased, digits and '#'
// stripped, trimmed) so invoice numbers embedded in merchant strings do
// not split a group. A group qualifies as monthly only when every
// consecutive gap between charges falls in [25, 35] days; a single
// out-of-band gap disqualifies the whole group. Groups with an irregular
// cadence are dropped rather than reported, a known limitation of the
// heuristic.
//
// Output is sorted ascending by DaysUntilDue, so overdue entries come
// first. The result is deterministic for a fixed now.
func DetectRecurring(transactions []domain.Transaction, now time.Time) []domain.Subscription {
	groups := make(map[string][]domain.Transaction)
	var order []string

	for _, t := range transactions {
		if t.Type != domain.TypeExpense || t.Date.IsZero() {
			continue
		}
		key := normalizeTitle(t.Title)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	var subscriptions []domain.Subscription

	for _, key := range order {
		txs := groups[key]

		// A single data point cannot establish a pattern.
		if len(txs) < 2 {
			continue
		}

		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].Date.After(txs[j].Date)
		})

		monthly := true
		for i := 0; i < len(txs)-1; i++ {
			gap := gapDays(txs[i].Date, txs[i+1].Date)
			if gap < monthlyGapMin || gap > monthlyGapMax {
				monthly = false
				break
			}
		}
		if !monthly {
			continue
		}

		var sum float64
		for _, t := range txs {
			sum += t.Amount
		}
		avg := sum / float64(len(txs))

		nextDue := addMonthClamped(txs[0].Date)
		days := daysUntil(now, nextDue)

		// Long-dead recurring charges are assumed cancelled.
		if days < -overdueCutoffDays {
			continue
		}

		status := domain.StatusDue
		if days < 0 {
			status = domain.StatusOverdue
		}

		subscriptions = append(subscriptions, domain.Subscription{
			ID:            "sub-" + strings.ReplaceAll(key, " ", "-"),
			Name:          txs[0].Title,
			AverageAmount: avg,
			Frequency:     domain.FrequencyMonthly,
			NextDueDate:   nextDue,
			Status:        status,
			DaysUntilDue:  days,
		})
	}

	sort.SliceStable(subscriptions, func(i, j int) bool {
		return subscriptions[i].DaysUntilDue < subscriptions[j].DaysUntilDue
	})

	return subscriptions
}

// normalizeTitle produces the grouping key for recurrence matching:
// lowercase with digits and '#' stripped, whitespace trimmed.
func normalizeTitle(title string) string {
	lower := strings.ToLower(title)
	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '#' {
			return -1
		}
		return r
	}, lower)
	return strings.TrimSpace(stripped)
}
