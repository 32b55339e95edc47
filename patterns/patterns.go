package patterns

// FindingType identifies the kind of glycemic pattern a detector run
// surfaced.
type FindingType string

const (
	RecurringHighs  FindingType = "recurringHighs"
	RecurringLows   FindingType = "recurringLows"
	HighVariability FindingType = "highVariability"
	DawnPhenomenon  FindingType = "dawnPhenomenon"
)

// Window is a time-of-day bucket. Boundaries are half-open on the hour, so
// a reading at exactly 06:00 belongs to Morning.
type Window string

const (
	Overnight Window = "overnight" // [00,06)
	Morning   Window = "morning"   // [06,09)
	Daytime   Window = "daytime"   // [09,17)
	Evening   Window = "evening"   // [17,24)
)

// Severity grades a finding for the calling layer. Any alerting threshold
// beyond this tag is the caller's concern.
type Severity string

const (
	Moderate    Severity = "moderate"
	Significant Severity = "significant"
)

// Finding is one detected anomaly. A single detector run may emit zero, one,
// or several findings across windows and types; overlapping findings are not
// deduplicated.
type Finding struct {
	Type         FindingType `json:"type"`
	Window       Window      `json:"window"`
	Severity     Severity    `json:"severity"`
	Frequency    string      `json:"frequencyDescription"`
	AverageValue float64     `json:"averageValue"`
	Detail       string      `json:"detailMessage"`
}

var windowOrder = []Window{Overnight, Morning, Daytime, Evening}

func windowOf(hour int) Window {
	switch {
	case hour < 6:
		return Overnight
	case hour < 9:
		return Morning
	case hour < 17:
		return Daytime
	default:
		return Evening
	}
}
