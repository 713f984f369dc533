package domain

// SignificantMagnitude is the alerting threshold.
const SignificantMagnitude = 4.5

// PersistentAlertMagnitude is the threshold above which alerts require an
// explicit dismissal.
const PersistentAlertMagnitude = 5.0

// MagnitudeClass buckets magnitudes for visual encoding.
type MagnitudeClass string

const (
	MagnitudeLow      MagnitudeClass = "low"
	MagnitudeModerate MagnitudeClass = "moderate"
	MagnitudeHigh     MagnitudeClass = "high"
)

// Style is the visual encoding shared by map markers and list badges.
type Style struct {
	Class  MagnitudeClass `json:"class"`
	Size   string         `json:"size"`
	Radius int            `json:"radius"`
	Color  string         `json:"color"`
	Fill   string         `json:"fill"`
}

// ClassifyMagnitude returns the magnitude class: <3 low, <5 moderate, else high.
func ClassifyMagnitude(m float64) MagnitudeClass {
	switch {
	case m < 3.0:
		return MagnitudeLow
	case m < 5.0:
		return MagnitudeModerate
	default:
		return MagnitudeHigh
	}
}

// StyleFor returns the marker and badge style for a magnitude.
func StyleFor(m float64) Style {
	switch ClassifyMagnitude(m) {
	case MagnitudeLow:
		return Style{Class: MagnitudeLow, Size: "small", Radius: 8, Color: "green", Fill: "#27ae60"}
	case MagnitudeModerate:
		return Style{Class: MagnitudeModerate, Size: "medium", Radius: 12, Color: "orange", Fill: "#f39c12"}
	default:
		return Style{Class: MagnitudeHigh, Size: "large", Radius: 16, Color: "red", Fill: "#e74c3c"}
	}
}
