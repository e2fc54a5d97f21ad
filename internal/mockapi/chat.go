package mockapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/soil-advisor/internal/identity"
)

type chatExchange struct {
	ID        int64
	Message   string
	Response  string
	CreatedAt time.Time
}

// advice maps keywords to canned replies, checked in order.
var advice = []struct {
	keyword string
	reply   string
}{
	{"nitrogen", "Nitrogen drives leaf growth. Yellowing older leaves suggest a deficiency; urea, ammonium sulfate or compost raise it."},
	{"phosphorus", "Phosphorus supports roots and flowering. Bone meal or DAP help where levels are low."},
	{"potassium", "Potassium improves drought and disease tolerance. Muriate of potash or wood ash add it."},
	{"ph", "Most crops prefer pH 6.0 to 7.0. Lime raises pH; elemental sulfur lowers it."},
	{"organic", "Compost, manure and cover crops build organic matter and water retention."},
	{"crop", "Match crops to your soil test: legumes fix nitrogen, maize needs fertile well-drained soil."},
	{"water", "Water deeply and infrequently; mulch reduces evaporation."},
}

const defaultAdvice = "I can help with soil nutrients, pH, organic matter, fertilizers and crop choice. What would you like to know?"

func adviceFor(message string) string {
	lower := strings.ToLower(message)
	for _, a := range advice {
		if strings.Contains(lower, a.keyword) {
			return a.reply
		}
	}
	return defaultAdvice
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserIDFromContext(r.Context())

	var req struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) || req.Message == "" {
		Error(w, http.StatusBadRequest, "Message is required")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		Error(w, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	reply := adviceFor(message)
	s.mu.Lock()
	s.nextRowID++
	s.chats[userID] = append(s.chats[userID], &chatExchange{
		ID:        s.nextRowID,
		Message:   message,
		Response:  reply,
		CreatedAt: s.now(),
	})
	s.mu.Unlock()

	JSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserIDFromContext(r.Context())
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)

	s.mu.Lock()
	list := s.chats[userID]
	total := len(list)
	history := make([]map[string]any, 0, perPage)
	// Newest first.
	start := total - 1 - (page-1)*perPage
	for i := start; i >= 0 && i > start-perPage; i-- {
		c := list[i]
		history = append(history, map[string]any{
			"id":         c.ID,
			"message":    c.Message,
			"response":   c.Response,
			"created_at": c.CreatedAt.UTC().Format(isoLayout),
		})
	}
	s.mu.Unlock()

	pages := (total + perPage - 1) / perPage
	JSON(w, http.StatusOK, map[string]any{
		"history":      history,
		"total":        total,
		"pages":        pages,
		"current_page": page,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
