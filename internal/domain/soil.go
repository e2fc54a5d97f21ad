package domain

import (
	"fmt"
	"time"
)

// SoilReading is a single set of soil-test measurements submitted for analysis.
type SoilReading struct {
	Nitrogen      float64
	Phosphorus    float64
	Potassium     float64
	PH            float64
	OrganicMatter float64
	Moisture      float64
	Temperature   float64
	Location      *string
}

// ValidationError reports a soil field outside its accepted range.
type ValidationError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be between %g and %g, got %g", e.Field, e.Min, e.Max, e.Value)
}

type fieldBound struct {
	name     string
	value    float64
	min, max float64
}

// Validate checks every numeric field against its bounds and returns the
// first violation as a *ValidationError.
func (r SoilReading) Validate() error {
	bounds := []fieldBound{
		{"nitrogen", r.Nitrogen, 0, 100},
		{"phosphorus", r.Phosphorus, 0, 100},
		{"potassium", r.Potassium, 0, 500},
		{"ph", r.PH, 0, 14},
		{"organic_matter", r.OrganicMatter, 0, 10},
		{"moisture", r.Moisture, 0, 100},
		{"temperature", r.Temperature, -10, 50},
	}
	for _, b := range bounds {
		if b.value < b.min || b.value > b.max {
			return &ValidationError{Field: b.name, Value: b.value, Min: b.min, Max: b.max}
		}
	}
	return nil
}

// FertilityLevel is the coarse classification returned by the analysis service.
type FertilityLevel string

const (
	FertilityLow    FertilityLevel = "Low"
	FertilityMedium FertilityLevel = "Medium"
	FertilityHigh   FertilityLevel = "High"
)

// Valid reports whether the level is one of the known values.
func (l FertilityLevel) Valid() bool {
	switch l {
	case FertilityLow, FertilityMedium, FertilityHigh:
		return true
	}
	return false
}

// Recommendations groups the advice lists of a prediction.
type Recommendations struct {
	Fertilizers  []string `json:"fertilizers"`
	Crops        []string `json:"crops"`
	Improvements []string `json:"improvements"`
}

// FertilityPrediction is the view model produced by one analysis.
// Reasons are ordered most important first.
type FertilityPrediction struct {
	FertilityLevel  FertilityLevel
	Score           float64
	Reasons         []string
	Recommendations Recommendations
}

// AnalysisRecord is a stored analysis as returned by the history endpoints.
type AnalysisRecord struct {
	ID         int64
	Reading    SoilReading
	Prediction FertilityPrediction
	CreatedAt  time.Time
}

// FertilityDistribution counts analyses per fertility level.
type FertilityDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Statistics summarises a user's analyses. Raw holds the full response object
// since the service may add fields.
type Statistics struct {
	TotalAnalyses         int                   `json:"total_analyses"`
	FertilityDistribution FertilityDistribution `json:"fertility_distribution"`
	AverageScore          float64               `json:"average_score"`
	Raw                   map[string]any        `json:"-"`
}
