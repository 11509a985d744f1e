package signal

import (
	"sort"
	"strings"
	"time"

	"github.com/finzora/signal-engine/internal/domain"
)

// MergeSubscriptions reconciles detected subscriptions with user-declared
// manual entries. The merge key is the normalized display name (lowercase,
// trimmed); on collision the manual entry always wins. Manual entries get
// the same ceiling-division DaysUntilDue as the detector, and the merged
// result uses the detector's ordering (ascending DaysUntilDue).
func MergeSubscriptions(detected []domain.Subscription, manual []domain.ManualSubscription, now time.Time) []domain.Subscription {
	merged := make(map[string]domain.Subscription)
	var order []string

	set := func(sub domain.Subscription) {
		key := strings.TrimSpace(strings.ToLower(sub.Name))
		if _, ok := merged[key]; !ok {
			order = append(order, key)
		}
		merged[key] = sub
	}

	for _, sub := range detected {
		set(sub)
	}
	for _, m := range manual {
		set(manualToSubscription(m, now))
	}

	out := make([]domain.Subscription, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysUntilDue < out[j].DaysUntilDue
	})

	return out
}

func manualToSubscription(m domain.ManualSubscription, now time.Time) domain.Subscription {
	days := daysUntil(now, m.NextDueDate)

	status := domain.StatusDue
	if days < 0 {
		status = domain.StatusOverdue
	}

	return domain.Subscription{
		ID:            m.ID,
		Name:          m.Name,
		AverageAmount: m.Amount,
		Frequency:     m.Frequency,
		NextDueDate:   m.NextDueDate,
		Status:        status,
		DaysUntilDue:  days,
	}
}
