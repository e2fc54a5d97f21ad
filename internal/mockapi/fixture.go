package mockapi

import (
	"encoding/json"
	"fmt"
	"os"
)

// Recommendations mirrors the wire recommendations object.
type Recommendations struct {
	Fertilizers  []string `json:"fertilizers"`
	Crops        []string `json:"crops"`
	Improvements []string `json:"improvements"`
}

// Prediction is the fixture returned for every analysis.
type Prediction struct {
	FertilityLevel  string          `json:"fertility_level"`
	Score           float64         `json:"score"`
	Reasons         []string        `json:"reasons"`
	Recommendations Recommendations `json:"recommendations"`
}

// DefaultFixture returns a plausible high-fertility prediction.
func DefaultFixture() Prediction {
	return Prediction{
		FertilityLevel: "High",
		Score:          82,
		Reasons: []string{
			"Nitrogen levels are adequate for most crops",
			"Soil pH is in the optimal range",
			"Organic matter supports good soil structure",
		},
		Recommendations: Recommendations{
			Fertilizers:  []string{},
			Crops:        []string{"Maize", "Wheat", "Soybeans"},
			Improvements: []string{"Maintain current organic matter with cover crops"},
		},
	}
}

// LoadFixture reads a prediction fixture from a JSON file.
func LoadFixture(path string) (Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prediction{}, fmt.Errorf("read fixture: %w", err)
	}
	var p Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return Prediction{}, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	if p.FertilityLevel == "" {
		return Prediction{}, fmt.Errorf("fixture %s: fertility_level is required", path)
	}
	return p, nil
}
