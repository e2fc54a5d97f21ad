package analysis

import "github.com/ashureev/soil-advisor/internal/domain"

// analyzeRequest is the wire body of POST /api/soil/analyze.
type analyzeRequest struct {
	Nitrogen      float64 `json:"nitrogen"`
	Phosphorus    float64 `json:"phosphorus"`
	Potassium     float64 `json:"potassium"`
	PH            float64 `json:"ph"`
	OrganicMatter float64 `json:"organic_matter"`
	Moisture      float64 `json:"moisture"`
	Temperature   float64 `json:"temperature"`
	Location      string  `json:"location"`
}

type wireRecommendations struct {
	Fertilizers  []string `json:"fertilizers"`
	Crops        []string `json:"crops"`
	Improvements []string `json:"improvements"`
}

// predictionResponse is the wire body of a prediction.
type predictionResponse struct {
	FertilityLevel  string              `json:"fertility_level"`
	Score           float64             `json:"score"`
	Reasons         []string            `json:"reasons"`
	Recommendations wireRecommendations `json:"recommendations"`
}

// analysisRecord is a stored analysis as serialized by the service.
type analysisRecord struct {
	ID            int64   `json:"id"`
	Nitrogen      float64 `json:"nitrogen"`
	Phosphorus    float64 `json:"phosphorus"`
	Potassium     float64 `json:"potassium"`
	PH            float64 `json:"ph"`
	OrganicMatter float64 `json:"organic_matter"`
	Moisture      float64 `json:"moisture"`
	Temperature   float64 `json:"temperature"`
	Location      *string `json:"location"`
	CreatedAt     string  `json:"created_at"`
	predictionResponse
}

func toRequest(r domain.SoilReading) analyzeRequest {
	req := analyzeRequest{
		Nitrogen:      r.Nitrogen,
		Phosphorus:    r.Phosphorus,
		Potassium:     r.Potassium,
		PH:            r.PH,
		OrganicMatter: r.OrganicMatter,
		Moisture:      r.Moisture,
		Temperature:   r.Temperature,
	}
	if r.Location != nil {
		req.Location = *r.Location
	}
	return req
}

// toPrediction maps the wire prediction verbatim, keeping array order.
func toPrediction(p predictionResponse) domain.FertilityPrediction {
	return domain.FertilityPrediction{
		FertilityLevel: domain.FertilityLevel(p.FertilityLevel),
		Score:          p.Score,
		Reasons:        nonNil(p.Reasons),
		Recommendations: domain.Recommendations{
			Fertilizers:  nonNil(p.Recommendations.Fertilizers),
			Crops:        nonNil(p.Recommendations.Crops),
			Improvements: nonNil(p.Recommendations.Improvements),
		},
	}
}

func toRecord(a analysisRecord) domain.AnalysisRecord {
	rec := domain.AnalysisRecord{
		ID: a.ID,
		Reading: domain.SoilReading{
			Nitrogen:      a.Nitrogen,
			Phosphorus:    a.Phosphorus,
			Potassium:     a.Potassium,
			PH:            a.PH,
			OrganicMatter: a.OrganicMatter,
			Moisture:      a.Moisture,
			Temperature:   a.Temperature,
			Location:      a.Location,
		},
		Prediction: toPrediction(a.predictionResponse),
	}
	rec.CreatedAt = domain.ParseTimestamp(a.CreatedAt)
	return rec
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
