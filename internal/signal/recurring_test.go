package signal

import (
	"testing"
	"time"

	"github.com/finzora/signal-engine/internal/domain"
)

func expense(id, title string, amount float64, date time.Time) domain.Transaction {
	return domain.Transaction{
		ID:       id,
		Title:    title,
		Amount:   amount,
		Date:     date,
		Category: Categorize(title),
		Type:     domain.TypeExpense,
	}
}

func TestDetectRecurringMonthlyPattern(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	txs := []domain.Transaction{
		expense("1", "Netflix", 799, now.AddDate(0, 0, -30)),
		expense("2", "Netflix", 799, now.AddDate(0, 0, -60)),
		expense("3", "Netflix", 799, now.AddDate(0, 0, -90)),
	}

	subs := DetectRecurring(txs, now)
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}

	sub := subs[0]
	if sub.Name != "Netflix" {
		t.Errorf("Name = %q, want Netflix", sub.Name)
	}
	if sub.Frequency != domain.FrequencyMonthly {
		t.Errorf("Frequency = %q, want monthly", sub.Frequency)
	}
	if sub.AverageAmount != 799 {
		t.Errorf("AverageAmount = %v, want 799", sub.AverageAmount)
	}
}

func TestDetectRecurringDisqualifiesIrregularGap(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	// Second gap is 10 days; the whole group must be dropped.
	txs := []domain.Transaction{
		expense("1", "Netflix", 799, now.AddDate(0, 0, -30)),
		expense("2", "Netflix", 799, now.AddDate(0, 0, -60)),
		expense("3", "Netflix", 799, now.AddDate(0, 0, -70)),
	}

	if subs := DetectRecurring(txs, now); len(subs) != 0 {
		t.Fatalf("got %d subscriptions, want 0", len(subs))
	}
}

func TestDetectRecurringGapBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		gapDays int
		want    int
	}{
		{"25 day gap qualifies", 25, 1},
		{"35 day gap qualifies", 35, 1},
		{"24 day gap disqualifies", 24, 0},
		{"36 day gap disqualifies", 36, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := now.AddDate(0, 0, -10)
			txs := []domain.Transaction{
				expense("1", "Spotify", 199, last),
				expense("2", "Spotify", 199, last.AddDate(0, 0, -tt.gapDays)),
			}
			if subs := DetectRecurring(txs, now); len(subs) != tt.want {
				t.Errorf("got %d subscriptions, want %d", len(subs), tt.want)
			}
		})
	}
}

func TestDetectRecurringSingleOccurrenceIgnored(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		expense("1", "Netflix", 799, now.AddDate(0, 0, -30)),
	}
	if subs := DetectRecurring(txs, now); len(subs) != 0 {
		t.Fatalf("got %d subscriptions from a single data point, want 0", len(subs))
	}
}

func TestDetectRecurringIgnoresIncome(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		{ID: "1", Title: "Salary", Amount: 50000, Date: now.AddDate(0, 0, -30), Type: domain.TypeIncome},
		{ID: "2", Title: "Salary", Amount: 50000, Date: now.AddDate(0, 0, -60), Type: domain.TypeIncome},
	}
	if subs := DetectRecurring(txs, now); len(subs) != 0 {
		t.Fatalf("got %d subscriptions from income, want 0", len(subs))
	}
}

func TestDetectRecurringNormalizesTitles(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	// Invoice numbers must not split the group.
	txs := []domain.Transaction{
		expense("1", "Netflix #123", 799, now.AddDate(0, 0, -30)),
		expense("2", "NETFLIX #456", 799, now.AddDate(0, 0, -60)),
	}

	subs := DetectRecurring(txs, now)
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}
	if subs[0].Name != "Netflix #123" {
		t.Errorf("Name = %q, want the most recent original title", subs[0].Name)
	}
}

func TestDetectRecurringOverdueSuppression(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		overdueDays int
		want        int
	}{
		{"44 days overdue kept", 44, 1},
		{"45 days overdue kept", 45, 1},
		{"46 days overdue suppressed", 46, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Pick the last charge so that last + 1 month lands exactly
			// overdueDays before now.
			nextDue := now.AddDate(0, 0, -tt.overdueDays)
			last := nextDue.AddDate(0, -1, 0)
			txs := []domain.Transaction{
				expense("1", "Gym Membership", 1500, last),
				expense("2", "Gym Membership", 1500, last.AddDate(0, 0, -30)),
			}

			subs := DetectRecurring(txs, now)
			if len(subs) != tt.want {
				t.Fatalf("got %d subscriptions, want %d", len(subs), tt.want)
			}
			if tt.want == 1 {
				if subs[0].Status != domain.StatusOverdue {
					t.Errorf("Status = %q, want overdue", subs[0].Status)
				}
				if subs[0].DaysUntilDue != -tt.overdueDays {
					t.Errorf("DaysUntilDue = %d, want %d", subs[0].DaysUntilDue, -tt.overdueDays)
				}
			}
		})
	}
}

func TestDetectRecurringEndToEnd(t *testing.T) {
	// Four months of a 799 charge on the 15th; today is the 20th of the
	// fifth month.
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	var txs []domain.Transaction
	for m := time.Month(1); m <= 4; m++ {
		txs = append(txs, expense(
			"tx-"+m.String(), "Netflix", 799,
			time.Date(2025, m, 15, 0, 0, 0, 0, time.UTC),
		))
	}

	subs := DetectRecurring(txs, now)
	if len(subs) != 1 {
		t.Fatalf("got %d subscriptions, want 1", len(subs))
	}

	sub := subs[0]
	if sub.AverageAmount != 799 {
		t.Errorf("AverageAmount = %v, want 799", sub.AverageAmount)
	}
	if sub.Status != domain.StatusOverdue {
		t.Errorf("Status = %q, want overdue", sub.Status)
	}
	if sub.DaysUntilDue != -5 {
		t.Errorf("DaysUntilDue = %d, want -5", sub.DaysUntilDue)
	}
	wantDue := time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)
	if !sub.NextDueDate.Equal(wantDue) {
		t.Errorf("NextDueDate = %v, want %v", sub.NextDueDate, wantDue)
	}
}

func TestDetectRecurringSortedByDaysUntilDue(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	mk := func(title string, lastDaysAgo int) []domain.Transaction {
		last := now.AddDate(0, 0, -lastDaysAgo)
		return []domain.Transaction{
			expense(title+"-1", title, 500, last),
			expense(title+"-2", title, 500, last.AddDate(0, 0, -30)),
		}
	}

	var txs []domain.Transaction
	txs = append(txs, mk("Upcoming Service", 10)...) // due in ~20 days
	txs = append(txs, mk("Overdue Service", 40)...)  // ~10 days overdue

	subs := DetectRecurring(txs, now)
	if len(subs) != 2 {
		t.Fatalf("got %d subscriptions, want 2", len(subs))
	}
	if subs[0].DaysUntilDue >= subs[1].DaysUntilDue {
		t.Errorf("not sorted ascending: %d then %d", subs[0].DaysUntilDue, subs[1].DaysUntilDue)
	}
	if subs[0].Status != domain.StatusOverdue {
		t.Errorf("first entry Status = %q, want overdue first", subs[0].Status)
	}
}

func TestDetectRecurringIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		expense("1", "Netflix", 799, now.AddDate(0, 0, -30)),
		expense("2", "Netflix", 799, now.AddDate(0, 0, -60)),
		expense("3", "Spotify", 199, now.AddDate(0, 0, -15)),
		expense("4", "Spotify", 199, now.AddDate(0, 0, -45)),
	}

	first := DetectRecurring(txs, now)
	second := DetectRecurring(txs, now)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entry %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Netflix #123", "netflix"},
		{"NETFLIX", "netflix"},
		{"Uber 4521", "uber"},
		{"  Spotify  ", "spotify"},
		{"#42", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeTitle(tt.input); got != tt.want {
				t.Errorf("normalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
