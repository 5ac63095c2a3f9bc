package domain

// RegimeLabel names a sentiment bucket.
type RegimeLabel string

const (
	ExtremeFear  RegimeLabel = "Extreme Fear"
	Fear         RegimeLabel = "Fear"
	Neutral      RegimeLabel = "Neutral"
	Greed        RegimeLabel = "Greed"
	ExtremeGreed RegimeLabel = "Extreme Greed"
)

const (
	SentimentMin = 0.0
	SentimentMax = 100.0
)

// Regime is a closed-open interval [Low, High) over the sentiment index.
// The last regime of a table also includes its High bound.
type Regime struct {
	Label RegimeLabel `yaml:"label"`
	Low   float64     `yaml:"low"`
	High  float64     `yaml:"high"`
}

// RegimeTable is an ordered list of regimes, lowest interval first.
type RegimeTable []Regime

// Labels returns the regime labels in table order.
func (t RegimeTable) Labels() []RegimeLabel {
	labels := make([]RegimeLabel, len(t))
	for i, r := range t {
		labels[i] = r.Label
	}
	return labels
}

// Has reports whether the table defines a regime with the given label.
func (t RegimeTable) Has(label RegimeLabel) bool {
	for _, r := range t {
		if r.Label == label {
			return true
		}
	}
	return false
}

// DefaultRegimeTable returns the canonical five-bucket Fear & Greed table.
// A fresh slice is returned on every call.
func DefaultRegimeTable() RegimeTable {
	return RegimeTable{
		{Label: ExtremeFear, Low: 0, High: 25},
		{Label: Fear, Low: 25, High: 45},
		{Label: Neutral, Low: 45, High: 55},
		{Label: Greed, Low: 55, High: 75},
		{Label: ExtremeGreed, Low: 75, High: 100},
	}
}
