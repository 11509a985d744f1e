package signal

import (
	"strings"
)

// FallbackCategory is assigned when no keyword rule matches a title.
const FallbackCategory = "Other"

// categoryRule maps one category label to the merchant keywords that
// select it. Rules are evaluated in table order, so earlier categories
// win when a title matches keywords from more than one.
type categoryRule struct {
	Category string
	Keywords []string
}

// categoryRules is the canonical keyword table. It is the superset of the
// two tables the product historically shipped (the simpler transaction-
// entry table and the extended one with Savings/Friends/Family). Keywords
// are matched as substrings of the lowercased title.
var categoryRules = []categoryRule{
	{"Food", []string{
		"starbucks", "restaurant", "coffee", "grocery", "food", "zomato",
		"swiggy", "mcdonalds", "pizza", "subway", "burger", "kfc",
		"dominos", "cafe", "diner",
	}},
	{"Transport", []string{
		"uber", "ola", "metro", "bus", "petrol", "fuel", "taxi", "rapido",
		"lyft", "train", "railway", "parking", "transit", "flight",
	}},
	{"Entertainment", []string{
		"netflix", "spotify", "movie", "cinema", "game", "prime",
		"youtube", "concert", "theater", "playstation", "xbox", "steam",
	}},
	{"Shopping", []string{
		"amazon", "flipkart", "myntra", "mall", "shop", "store",
		"walmart", "target", "ebay", "retail",
	}},
	{"Bills", []string{
		"electricity", "water", "internet", "mobile", "recharge", "bill",
		"broadband", "phone", "utility", "power",
	}},
	{"Health", []string{
		"hospital", "medicine", "doctor", "pharmacy", "medical", "clinic",
		"dental", "gym", "fitness",
	}},
	{"Education", []string{
		"course", "book", "udemy", "coursera", "education", "tuition",
		"school", "university", "college", "training",
	}},
	{"Savings", []string{
		"sip", "mutual fund", "deposit", "investment", "savings",
	}},
	{"Friends", []string{
		"friend", "treat", "split",
	}},
	{"Family", []string{
		"family", "parents",
	}},
}

// Categorize maps a free-text merchant/title to a category label. The
// first category whose keyword list contains a substring match wins;
// unmatched titles fall back to "Other". Pure function, no side effects.
func Categorize(title string) string {
	lower := strings.ToLower(title)

	for _, rule := range categoryRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category
			}
		}
	}

	return FallbackCategory
}

// Categories returns the category labels in table order, without the
// fallback. Used to constrain the AI-assisted categorizer.
func Categories() []string {
	out := make([]string, 0, len(categoryRules))
	for _, rule := range categoryRules {
		out = append(out, rule.Category)
	}
	return out
}

// IsKnownCategory reports whether label is one of the canonical category
// labels (fallback included).
func IsKnownCategory(label string) bool {
	if label == FallbackCategory {
		return true
	}
	for _, rule := range categoryRules {
		if rule.Category == label {
			return true
		}
	}
	return false
}
