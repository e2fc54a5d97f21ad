package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ashureev/soil-advisor/internal/auth"
	"github.com/ashureev/soil-advisor/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

func renderSession(w io.Writer, s auth.Session) {
	if s.User == nil {
		fmt.Fprintln(w, "Not logged in.")
		return
	}
	fmt.Fprintf(w, "Logged in as %s <%s>\n", s.User.DisplayName(), s.User.Email)
}

func renderPrediction(w io.Writer, p *domain.FertilityPrediction) {
	fmt.Fprintf(w, "Fertility: %s (score %.1f)\n", p.FertilityLevel, p.Score)
	renderList(w, "Reasons", p.Reasons)
	renderList(w, "Fertilizers", p.Recommendations.Fertilizers)
	renderList(w, "Crops", p.Recommendations.Crops)
	renderList(w, "Improvements", p.Recommendations.Improvements)
}

func renderList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func renderHistory(w io.Writer, records []domain.AnalysisRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No analyses yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tLOCATION\tFERTILITY\tSCORE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\n",
			r.ID, formatTime(r), location(r.Reading), r.Prediction.FertilityLevel, r.Prediction.Score)
	}
	_ = tw.Flush()
}

func renderRecord(w io.Writer, r *domain.AnalysisRecord) {
	fmt.Fprintf(w, "Analysis %d  %s  %s\n", r.ID, formatTime(*r), location(r.Reading))
	s := r.Reading
	fmt.Fprintf(w, "N %g  P %g  K %g  pH %g  OM %g%%  moisture %g%%  temp %gC\n",
		s.Nitrogen, s.Phosphorus, s.Potassium, s.PH, s.OrganicMatter, s.Moisture, s.Temperature)
	renderPrediction(w, &r.Prediction)
}

func renderStatistics(w io.Writer, s *domain.Statistics) {
	d := s.FertilityDistribution
	fmt.Fprintf(w, "Analyses: %d\n", s.TotalAnalyses)
	fmt.Fprintf(w, "High: %d  Medium: %d  Low: %d\n", d.High, d.Medium, d.Low)
	fmt.Fprintf(w, "Average score: %.1f\n", s.AverageScore)
}

func renderMessage(w io.Writer, m domain.ChatMessage) {
	who := "assistant"
	if m.IsUser {
		who = "you"
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", m.Timestamp.Format("15:04"), who, m.Text)
}

func renderChatHistory(w io.Writer, page *domain.ChatHistoryPage) {
	if len(page.History) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return
	}
	for _, ex := range page.History {
		fmt.Fprintf(w, "%s\n  Q: %s\n  A: %s\n",
			ex.CreatedAt.Format(timeLayout), ex.Message, strings.TrimSpace(ex.Response))
	}
	fmt.Fprintf(w, "Page %d of %d (%d total)\n", page.CurrentPage, page.Pages, page.Total)
}

func formatTime(r domain.AnalysisRecord) string {
	if r.CreatedAt.IsZero() {
		return "-"
	}
	return r.CreatedAt.Format(timeLayout)
}

func location(s domain.SoilReading) string {
	if s.Location == nil || *s.Location == "" {
		return "-"
	}
	return *s.Location
}
