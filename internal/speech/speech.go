// Package speech provides speech-to-text transcript feeds.
package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coder/websocket"
)

// Source is a speech-to-text capability. Start begins capture and returns a
// stream of transcript fragments. Each fragment is the full transcript so far,
// not a delta. The channel is closed when ctx is cancelled or capture ends.
type Source interface {
	Start(ctx context.Context) (<-chan string, error)
}

// Message is the frame format of a WebSocket transcript feed.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Frame types.
const (
	TypeTranscript = "transcript"
	TypeEnd        = "end"
)

// WebSocketSource reads transcripts from a recognizer exposed over WebSocket.
type WebSocketSource struct {
	URL    string
	Logger *slog.Logger
}

// NewWebSocketSource creates a source for url (ws:// or wss://).
func NewWebSocketSource(url string, logger *slog.Logger) *WebSocketSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketSource{URL: url, Logger: logger}
}

// Start dials the recognizer and streams transcript fragments until ctx is
// cancelled, the peer sends an end frame, or the connection drops.
func (s *WebSocketSource) Start(ctx context.Context) (<-chan string, error) {
	conn, _, err := websocket.Dial(ctx, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial speech feed: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer func() {
			if closeErr := conn.Close(websocket.StatusNormalClosure, "listening stopped"); closeErr != nil {
				s.Logger.Debug("failed to close speech feed", "error", closeErr)
			}
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
					s.Logger.Warn("speech feed read failed", "error", err)
				}
				return
			}

			text, kind := decodeFrame(data)
			if kind == frameEnd {
				return
			}
			if kind == frameSkip {
				s.Logger.Debug("ignoring speech frame", "frame", string(data))
				continue
			}
			select {
			case out <- text:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type frameKind int

const (
	frameSkip frameKind = iota
	frameTranscript
	frameEnd
)

// decodeFrame accepts JSON Message frames or bare text. JSON frames of any
// type other than transcript or end are skipped.
func decodeFrame(data []byte) (string, frameKind) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var msg Message
		if err := json.Unmarshal(data, &msg); err == nil {
			switch msg.Type {
			case TypeTranscript:
				return msg.Text, frameTranscript
			case TypeEnd:
				return "", frameEnd
			default:
				return "", frameSkip
			}
		}
	}
	return string(data), frameTranscript
}
