package domain

// InsightType classifies the tone of a generated insight.
type InsightType string

const (
	InsightPositive InsightType = "positive"
	InsightNegative InsightType = "negative"
	InsightNeutral  InsightType = "neutral"
)

// Insight is one ranked natural-language observation about the user's
// recent activity. At most three are produced per evaluation.
type Insight struct {
	ID      string      `json:"id"`
	Type    InsightType `json:"type"`
	Message string      `json:"message"`
}

// AlertType is the severity of a smart alert.
type AlertType string

const (
	AlertCritical AlertType = "critical"
	AlertWarning  AlertType = "warning"
	AlertInfo     AlertType = "info"
	AlertSuccess  AlertType = "success"
)

// SmartAlert is one prioritized alert derived from the current snapshot.
// Alerts are regenerated on every evaluation and never persisted;
// dismissal is a presentation-layer concern.
type SmartAlert struct {
	ID         string    `json:"id"`
	Type       AlertType `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Action     string    `json:"action,omitempty"`
	ActionLink string    `json:"actionLink,omitempty"`
}
