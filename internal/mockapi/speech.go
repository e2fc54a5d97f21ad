package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/soil-advisor/internal/speech"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// speechInterval paces fragments like a live recognizer.
const speechInterval = 150 * time.Millisecond

// handleSpeech streams each configured line word by word as growing
// transcripts, then sends an end frame.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("failed to accept speech websocket", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	ctx := conn.CloseRead(r.Context())
	ticker := time.NewTicker(speechInterval)
	defer ticker.Stop()

	for _, line := range s.speechLines {
		words := strings.Fields(line)
		for i := range words {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			msg := speech.Message{Type: speech.TypeTranscript, Text: strings.Join(words[:i+1], " ")}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				return
			}
		}
	}
	if err := wsjson.Write(ctx, conn, speech.Message{Type: speech.TypeEnd}); err != nil {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "transcript complete")
}
