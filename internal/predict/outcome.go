package predict

// Status classifies the outcome of one prediction target.
type Status string

const (
	// StatusSuccess carries a decoded label or value.
	StatusSuccess Status = "success"
	// StatusInsufficientData means required features were absent.
	StatusInsufficientData Status = "insufficient_data"
	// StatusConfigMissing means the artifact bundle declared no feature list
	// for the target, so the model can never be invoked.
	StatusConfigMissing Status = "config_missing"
	// StatusFailed means inference raised a runtime error. The detail is
	// logged; only a generic message is surfaced.
	StatusFailed Status = "failed"
)

// Outcome is the tagged result of one prediction target. Created fresh per
// request, never persisted.
type Outcome struct {
	Target  string   `json:"target"`
	Title   string   `json:"title"`
	Status  Status   `json:"status"`
	Label   string   `json:"label,omitempty"`
	Code    *int     `json:"code,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Result summary values.
const (
	// SummaryComplete: every target produced a success outcome.
	SummaryComplete = "complete"
	// SummaryPartial: no runtime errors, but at least one target was skipped
	// for insufficient data or missing configuration.
	SummaryPartial = "partial"
	// SummaryError: at least one target failed at inference time.
	SummaryError = "error"
)

// Result is the full response for one prediction request.
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
	Summary  string    `json:"summary"`
}

func summarize(outcomes []Outcome) string {
	summary := SummaryComplete
	for _, o := range outcomes {
		switch o.Status {
		case StatusFailed:
			return SummaryError
		case StatusInsufficientData, StatusConfigMissing:
			summary = SummaryPartial
		}
	}
	return summary
}
