package mockapi

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/soil-advisor/internal/identity"
	"github.com/go-chi/chi/v5"
)

var soilFields = []string{"nitrogen", "phosphorus", "potassium", "ph", "organic_matter", "moisture", "temperature"}

type analysis struct {
	ID         int64
	Fields     map[string]float64
	Location   string
	Prediction Prediction
	CreatedAt  time.Time
}

func (a *analysis) toJSON() map[string]any {
	out := map[string]any{
		"id":              a.ID,
		"location":        a.Location,
		"fertility_level": a.Prediction.FertilityLevel,
		"score":           a.Prediction.Score,
		"reasons":         a.Prediction.Reasons,
		"recommendations": a.Prediction.Recommendations,
		"created_at":      a.CreatedAt.UTC().Format(isoLayout),
	}
	for k, v := range a.Fields {
		out[k] = v
	}
	return out
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserIDFromContext(r.Context())

	var req map[string]any
	if !decodeBody(w, r, &req) {
		Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	fields := make(map[string]float64, len(soilFields))
	for _, f := range soilFields {
		raw, ok := req[f]
		if !ok || raw == nil {
			Error(w, http.StatusBadRequest, "Missing field: "+f)
			return
		}
		v, ok := raw.(float64)
		if !ok {
			Error(w, http.StatusBadRequest, "Invalid value for "+f)
			return
		}
		fields[f] = v
	}
	location, _ := req["location"].(string)

	s.mu.Lock()
	s.nextRowID++
	a := &analysis{
		ID:         s.nextRowID,
		Fields:     fields,
		Location:   location,
		Prediction: s.fixture,
		CreatedAt:  s.now(),
	}
	s.analyses[userID] = append(s.analyses[userID], a)
	s.mu.Unlock()

	JSON(w, http.StatusOK, a.Prediction)
}

func (s *Server) handleSoilHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserIDFromContext(r.Context())

	s.mu.Lock()
	list := s.analyses[userID]
	history := make([]map[string]any, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		history = append(history, list[i].toJSON())
	}
	s.mu.Unlock()

	JSON(w, http.StatusOK, map[string]any{
		"history":      history,
		"total":        len(history),
		"pages":        1,
		"current_page": 1,
	})
}

func (s *Server) handleAnalysisDetail(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserIDFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		Error(w, http.StatusNotFound, "Analysis not found")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.analyses[userID] {
		if a.ID == id {
			JSON(w, http.StatusOK, map[string]any{"analysis": a.toJSON()})
			return
		}
	}
	Error(w, http.StatusNotFound, "Analysis not found")
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserIDFromContext(r.Context())

	s.mu.Lock()
	list := s.analyses[userID]
	dist := map[string]int{"high": 0, "medium": 0, "low": 0}
	var total float64
	for _, a := range list {
		switch a.Prediction.FertilityLevel {
		case "High":
			dist["high"]++
		case "Medium":
			dist["medium"]++
		case "Low":
			dist["low"]++
		}
		total += a.Prediction.Score
	}
	count := len(list)
	s.mu.Unlock()

	avg := 0.0
	if count > 0 {
		avg = math.Round(total/float64(count)*10) / 10
	}
	JSON(w, http.StatusOK, map[string]any{
		"total_analyses":         count,
		"fertility_distribution": dist,
		"average_score":          avg,
	})
}
