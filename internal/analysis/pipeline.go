// Package analysis submits soil readings and maps predictions into view models.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ashureev/soil-advisor/internal/domain"
)

// API is the subset of the API client used by the pipeline.
type API interface {
	Post(ctx context.Context, path string, body any, authRequired bool, out any) error
	Get(ctx context.Context, path string, authRequired bool, out any) error
}

// Pipeline runs analysis requests. It never caches and never retries.
type Pipeline struct {
	api    API
	logger *slog.Logger
}

// New creates an analysis pipeline.
func New(api API, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{api: api, logger: logger}
}

// Analyze submits reading and returns the service's prediction. The reading
// is not re-validated here; range checks belong to the input layer.
func (p *Pipeline) Analyze(ctx context.Context, reading domain.SoilReading) (*domain.FertilityPrediction, error) {
	var resp predictionResponse
	if err := p.api.Post(ctx, "/api/soil/analyze", toRequest(reading), true, &resp); err != nil {
		return nil, err
	}
	pred := toPrediction(resp)
	if !pred.FertilityLevel.Valid() {
		p.logger.Warn("unknown fertility level in response", "fertility_level", resp.FertilityLevel)
	}
	return &pred, nil
}

// History returns the user's stored analyses as a complete list.
func (p *Pipeline) History(ctx context.Context) ([]domain.AnalysisRecord, error) {
	var resp struct {
		History []analysisRecord `json:"history"`
	}
	if err := p.api.Get(ctx, "/api/soil/history", true, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.AnalysisRecord, 0, len(resp.History))
	for _, a := range resp.History {
		out = append(out, toRecord(a))
	}
	return out, nil
}

// Get returns one stored analysis by ID.
func (p *Pipeline) Get(ctx context.Context, id int64) (*domain.AnalysisRecord, error) {
	var resp struct {
		Analysis analysisRecord `json:"analysis"`
	}
	if err := p.api.Get(ctx, fmt.Sprintf("/api/soil/analysis/%d", id), true, &resp); err != nil {
		return nil, err
	}
	rec := toRecord(resp.Analysis)
	return &rec, nil
}

// Statistics returns the user's summary statistics. Raw keeps the full
// object since its shape is owned by the service.
func (p *Pipeline) Statistics(ctx context.Context) (*domain.Statistics, error) {
	var raw json.RawMessage
	if err := p.api.Get(ctx, "/api/soil/statistics", true, &raw); err != nil {
		return nil, err
	}

	var stats domain.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		p.logger.Warn("statistics response has unexpected shape", "error", err)
	}
	if err := json.Unmarshal(raw, &stats.Raw); err != nil {
		return nil, fmt.Errorf("decode statistics: %w", err)
	}
	return &stats, nil
}
