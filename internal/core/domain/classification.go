package domain

// Category identifies the fault family an error belongs to.
type Category string

const (
	CategoryDatabase     Category = "database"
	CategoryMemory       Category = "memory"
	CategoryRateLimit    Category = "rate_limit"
	CategoryDisk         Category = "disk"
	CategoryAuth         Category = "auth"
	CategoryNetwork      Category = "network"
	CategoryService      Category = "service"
	CategoryContent      Category = "content"
	CategoryUnknown      Category = "unknown"
)

// Urgency expresses how quickly an error needs attention.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Impact expresses the business impact of an error.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// Classification is the derived verdict for a single ErrorEvent. It is a
// value produced fresh per event and never stored on its own.
type Classification struct {
	Category         Category `json:"category"`
	Confidence       float64  `json:"confidence"` // always in [0,1]
	Urgency          Urgency  `json:"resolution_urgency"`
	Impact           Impact   `json:"business_impact"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// Unclassified is the zero-evidence verdict: category unknown, confidence 0.
func Unclassified() Classification {
	return Classification{
		Category:   CategoryUnknown,
		Confidence: 0,
		Urgency:    UrgencyLow,
		Impact:     ImpactLow,
	}
}
