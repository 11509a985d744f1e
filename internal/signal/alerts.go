package signal

import (
	"fmt"
	"sort"
	"time"

	"github.com/finzora/signal-engine/internal/domain"
)

// Thresholds carries the tunable constants of the alert rules. The
// defaults were tuned for INR-scale amounts; changing them is a product
// decision, so they are configurable rather than hardcoded.
type Thresholds struct {
	// Budget rule.
	BudgetWarningPercent  float64
	BudgetCriticalPercent float64

	// Engagement rule: days of silence before the nudge.
	EngagementGapDays int

	// High-value rule.
	HighValueIncomeRatio float64 // share of trailing income
	HighValueFallback    float64 // threshold when no trailing income exists
	HighValueFloor       float64 // absolute floor regardless of income
	HighValueWindowDays  int     // how recent the expense must be

	// Duplicate rule.
	DuplicateWindowHours  float64
	DuplicateLookbackDays int

	// Spike rule.
	SpikeFloor    float64
	SpikeRatio    float64
	SpikeWeekDays int
	TrailingDays  int // income and spike baseline lookback
}

// DefaultThresholds returns the thresholds the product ships with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BudgetWarningPercent:  85,
		BudgetCriticalPercent: 100,
		EngagementGapDays:     3,
		HighValueIncomeRatio:  0.20,
		HighValueFallback:     5000,
		HighValueFloor:        1000,
		HighValueWindowDays:   3,
		DuplicateWindowHours:  48,
		DuplicateLookbackDays: 7,
		SpikeFloor:            500,
		SpikeRatio:            1.5,
		SpikeWeekDays:         7,
		TrailingDays:          30,
	}
}

// GenerateAlerts evaluates every alert rule against the snapshot using the
// default thresholds. All qualifying conditions fire independently; there
// is no cap on the number of alerts.
func GenerateAlerts(transactions []domain.Transaction, budgets []domain.Budget, now time.Time) []domain.SmartAlert {
	return GenerateAlertsWith(DefaultThresholds(), transactions, budgets, now)
}

// GenerateAlertsWith is GenerateAlerts with explicit thresholds. Rules run
// in a fixed order (budget, engagement, high-value, duplicate, spike) and
// iterate in input order, so output is deterministic for a fixed now.
func GenerateAlertsWith(cfg Thresholds, transactions []domain.Transaction, budgets []domain.Budget, now time.Time) []domain.SmartAlert {
	var alerts []domain.SmartAlert

	alerts = append(alerts, budgetAlerts(cfg, transactions, budgets, now)...)
	alerts = append(alerts, engagementAlerts(cfg, transactions, now)...)
	alerts = append(alerts, highValueAlerts(cfg, transactions, now)...)
	alerts = append(alerts, duplicateAlerts(cfg, transactions, now)...)
	alerts = append(alerts, spikeAlerts(cfg, transactions, now)...)

	return alerts
}

// budgetAlerts compares current-calendar-month spend per budget category
// against its limit. Category matching is exact string equality against
// the transaction's stored category, not keyword re-categorization.
func budgetAlerts(cfg Thresholds, transactions []domain.Transaction, budgets []domain.Budget, now time.Time) []domain.SmartAlert {
	var alerts []domain.SmartAlert

	for _, budget := range budgets {
		if budget.Limit <= 0 {
			continue
		}

		var spent float64
		for _, t := range transactions {
			if t.Type == domain.TypeExpense && t.Category == budget.Category && sameMonth(t.Date, now) {
				spent += t.Amount
			}
		}

		percentage := spent / budget.Limit * 100

		switch {
		case percentage >= cfg.BudgetCriticalPercent:
			alerts = append(alerts, domain.SmartAlert{
				ID:         "budget-crit-" + budget.Category,
				Type:       domain.AlertCritical,
				Title:      "Budget Exceeded: " + budget.Category,
				Message:    fmt.Sprintf("You've spent ₹%s (100%%+) of your ₹%s limit.", formatAmount(spent), formatAmount(budget.Limit)),
				Action:     "Review",
				ActionLink: "/budget",
			})
		case percentage >= cfg.BudgetWarningPercent:
			alerts = append(alerts, domain.SmartAlert{
				ID:         "budget-warn-" + budget.Category,
				Type:       domain.AlertWarning,
				Title:      "Approaching Limit: " + budget.Category,
				Message:    fmt.Sprintf("You've used %.0f%% of your %s budget based on recent data.", percentage, budget.Category),
				Action:     "Check",
				ActionLink: "/budget",
			})
		}
	}

	return alerts
}

// engagementAlerts nudges the user when logging goes quiet, or welcomes a
// brand-new account. The two cases are mutually exclusive.
func engagementAlerts(cfg Thresholds, transactions []domain.Transaction, now time.Time) []domain.SmartAlert {
	if len(transactions) == 0 {
		return []domain.SmartAlert{{
			ID:         "welcome-start",
			Type:       domain.AlertInfo,
			Title:      "Start your journey",
			Message:    "Add your first transaction to unlock smart insights.",
			Action:     "Add First",
			ActionLink: "/add-transaction",
		}}
	}

	var last time.Time
	for _, t := range transactions {
		if !t.Date.IsZero() && t.Date.After(last) {
			last = t.Date
		}
	}
	if last.IsZero() {
		return nil
	}

	diffDays := gapDays(now, last)
	if diffDays <= cfg.EngagementGapDays {
		return nil
	}

	return []domain.SmartAlert{{
		ID:         "engagement-missing",
		Type:       domain.AlertInfo,
		Title:      "Missed you!",
		Message:    fmt.Sprintf("It's been %d days since your last recorded transaction. Keep your streak alive!", diffDays),
		Action:     "Add Now",
		ActionLink: "/add-transaction",
	}}
}

// highValueAlerts flags recent expenses that are large both relative to
// trailing income and in absolute terms. Fires once per qualifying
// transaction.
func highValueAlerts(cfg Thresholds, transactions []domain.Transaction, now time.Time) []domain.SmartAlert {
	trailingStart := now.Add(-time.Duration(cfg.TrailingDays) * hoursPerDay * time.Hour)

	var trailingIncome float64
	for _, t := range transactions {
		if t.Type == domain.TypeIncome && !t.Date.IsZero() && !t.Date.Before(trailingStart) {
			trailingIncome += t.Amount
		}
	}

	threshold := cfg.HighValueFallback
	if trailingIncome > 0 {
		threshold = trailingIncome * cfg.HighValueIncomeRatio
	}

	recentStart := now.Add(-time.Duration(cfg.HighValueWindowDays) * hoursPerDay * time.Hour)

	var alerts []domain.SmartAlert
	for _, t := range transactions {
		if t.Date.IsZero() || t.Date.Before(recentStart) {
			continue
		}
		if t.Type == domain.TypeExpense && t.Amount > threshold && t.Amount > cfg.HighValueFloor {
			alerts = append(alerts, domain.SmartAlert{
				ID:         "high-tx-" + t.ID,
				Type:       domain.AlertWarning,
				Title:      "Large Expense Detected",
				Message:    fmt.Sprintf("You spent ₹%s on %s. Was this planned?", formatAmount(t.Amount), t.Category),
				Action:     "Review",
				ActionLink: "/transactions",
			})
		}
	}

	return alerts
}

// duplicateAlerts scans the trailing week for pairs of expenses with equal
// amount and category within 48 hours. Each transaction may be claimed by
// at most one pair. Pairwise over a short window, so the quadratic scan is
// acceptable.
func duplicateAlerts(cfg Thresholds, transactions []domain.Transaction, now time.Time) []domain.SmartAlert {
	lookbackStart := now.Add(-time.Duration(cfg.DuplicateLookbackDays) * hoursPerDay * time.Hour)

	var recent []domain.Transaction
	for _, t := range transactions {
		if t.Type == domain.TypeExpense && !t.Date.IsZero() && !t.Date.Before(lookbackStart) {
			recent = append(recent, t)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})

	claimed := make(map[string]bool)
	var alerts []domain.SmartAlert

	for i := 0; i < len(recent); i++ {
		for j := i + 1; j < len(recent); j++ {
			a, b := recent[i], recent[j]

			if a.Amount != b.Amount || a.Category != b.Category || claimed[a.ID] || claimed[b.ID] {
				continue
			}

			diff := a.Date.Sub(b.Date)
			if diff < 0 {
				diff = -diff
			}
			if diff.Hours() <= cfg.DuplicateWindowHours && a.Amount > 0 {
				alerts = append(alerts, domain.SmartAlert{
					ID:         "duplicate-charge-" + a.ID + "-" + b.ID,
					Type:       domain.AlertWarning,
					Title:      "Potential Duplicate Charge",
					Message:    fmt.Sprintf("We noticed two transactions of ₹%s for %s within 48 hours.", formatAmount(a.Amount), a.Category),
					Action:     "Review",
					ActionLink: "/transactions",
				})
				claimed[a.ID] = true
				claimed[b.ID] = true
			}
		}
	}

	return alerts
}

// spikeAlerts flags categories whose trailing-week spend is well above
// their trailing-month weekly average. A zero average means the category
// is brand new and is not flagged.
func spikeAlerts(cfg Thresholds, transactions []domain.Transaction, now time.Time) []domain.SmartAlert {
	weekStart := now.Add(-time.Duration(cfg.SpikeWeekDays) * hoursPerDay * time.Hour)
	trailingStart := now.Add(-time.Duration(cfg.TrailingDays) * hoursPerDay * time.Hour)

	weekSpend := make(map[string]float64)
	trailingSpend := make(map[string]float64)
	var order []string

	for _, t := range transactions {
		if t.Type != domain.TypeExpense || t.Date.IsZero() || t.Date.After(now) {
			continue
		}
		if !t.Date.Before(weekStart) {
			if _, ok := weekSpend[t.Category]; !ok {
				order = append(order, t.Category)
			}
			weekSpend[t.Category] += t.Amount
		}
		if !t.Date.Before(trailingStart) {
			trailingSpend[t.Category] += t.Amount
		}
	}

	var alerts []domain.SmartAlert
	for _, category := range order {
		spent7 := weekSpend[category]
		weeklyAverage := trailingSpend[category] / 4

		if spent7 > cfg.SpikeFloor && spent7 > weeklyAverage*cfg.SpikeRatio && weeklyAverage > 0 {
			alerts = append(alerts, domain.SmartAlert{
				ID:         "anomaly-spending-" + category,
				Type:       domain.AlertWarning,
				Title:      "Spending Spike Detected",
				Message:    fmt.Sprintf("You've spent ₹%s on %s this week, visually higher than your usual.", formatAmount(spent7), category),
				Action:     "Check Budget",
				ActionLink: "/budget",
			})
		}
	}

	return alerts
}
