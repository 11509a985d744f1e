package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/finzora/signal-engine/internal/domain"
)

const (
	maxInsights = 3
	minInsights = 2

	// Month-over-month spending changes inside this band are noise.
	spendingDeltaPercent = 10

	// Saving more than this share of income earns a positive insight.
	healthySavingsPercent = 20
)

var fillerTips = []string{
	"💡 Tip: Review your subscriptions to find hidden savings.",
	"💡 Tip: Try the 50/30/20 rule: 50% Needs, 30% Wants, 20% Savings.",
}

// GenerateInsights derives up to three natural-language observations from
// the transaction snapshot: month-over-month spending delta, top expense
// category, and savings rate, padded with generic tips when fewer than two
// rules fire. Output order is generation order; there is no re-ranking.
func GenerateInsights(transactions []domain.Transaction, now time.Time) []domain.Insight {
	if len(transactions) == 0 {
		return []domain.Insight{{
			ID:      "no-data",
			Type:    domain.InsightNeutral,
			Message: "Start adding transactions to see AI-powered financial insights here.",
		}}
	}

	prevYear, prevMonth := previousMonth(now.Year(), now.Month())

	var current, previous []domain.Transaction
	for _, t := range transactions {
		switch {
		case sameMonth(t.Date, now):
			current = append(current, t)
		case t.Date.Year() == prevYear && t.Date.Month() == prevMonth:
			previous = append(previous, t)
		}
	}

	var insights []domain.Insight

	// Month-over-month spending delta.
	currentExpenses := sumByType(current, domain.TypeExpense)
	previousExpenses := sumByType(previous, domain.TypeExpense)

	if previousExpenses > 0 {
		percentChange := (currentExpenses - previousExpenses) / previousExpenses * 100
		if percentChange > spendingDeltaPercent {
			insights = append(insights, domain.Insight{
				ID:      "spending-increase",
				Type:    domain.InsightNegative,
				Message: fmt.Sprintf("⚠️ Spending Alert: You've spent %.0f%% more this month compared to last month.", percentChange),
			})
		} else if percentChange < -spendingDeltaPercent {
			insights = append(insights, domain.Insight{
				ID:      "spending-decrease",
				Type:    domain.InsightPositive,
				Message: fmt.Sprintf("🎉 Great job! Your spending is down %.0f%% compared to last month.", math.Abs(percentChange)),
			})
		}
	}

	// Top expense category for the current month. First-seen order breaks
	// ties so repeated runs stay stable.
	totals := make(map[string]float64)
	var seen []string
	for _, t := range current {
		if t.Type != domain.TypeExpense {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = FallbackCategory
		}
		if _, ok := totals[cat]; !ok {
			seen = append(seen, cat)
		}
		totals[cat] += t.Amount
	}

	topCategory := ""
	topAmount := 0.0
	for _, cat := range seen {
		if totals[cat] > topAmount {
			topCategory = cat
			topAmount = totals[cat]
		}
	}
	if topCategory != "" && topAmount > 0 {
		insights = append(insights, domain.Insight{
			ID:      "top-category",
			Type:    domain.InsightNeutral,
			Message: fmt.Sprintf("📊 Top Expense: Your highest spending category this month is %s (₹%s).", topCategory, formatAmount(topAmount)),
		})
	}

	// Savings rate, only meaningful when there was income this month.
	currentIncome := sumByType(current, domain.TypeIncome)
	if currentIncome > 0 {
		savings := currentIncome - currentExpenses
		savingsRate := savings / currentIncome * 100

		if savingsRate > healthySavingsPercent {
			insights = append(insights, domain.Insight{
				ID:      "savings-healthy",
				Type:    domain.InsightPositive,
				Message: fmt.Sprintf("💰 Healthy Savings: You saved %.0f%% of your income this month!", savingsRate),
			})
		} else if savingsRate < 0 {
			insights = append(insights, domain.Insight{
				ID:      "savings-negative",
				Type:    domain.InsightNegative,
				Message: fmt.Sprintf("📉 Deficit Alert: You have spent ₹%s more than your income this month.", formatAmount(math.Abs(savings))),
			})
		}
	}

	// Pad with generic tips so the surface never looks empty.
	for i := 0; len(insights) < minInsights && i < len(fillerTips); i++ {
		insights = append(insights, domain.Insight{
			ID:      fmt.Sprintf("default-%d", i),
			Type:    domain.InsightNeutral,
			Message: fillerTips[i],
		})
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

func sumByType(transactions []domain.Transaction, txType domain.TransactionType) float64 {
	var sum float64
	for _, t := range transactions {
		if t.Type == txType {
			sum += t.Amount
		}
	}
	return sum
}
