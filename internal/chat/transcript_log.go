package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ashureev/soil-advisor/internal/domain"
	"github.com/google/uuid"
)

// TranscriptLogEntry is one NDJSON line of a transcript log.
type TranscriptLogEntry struct {
	ConversationID string `json:"conversation_id"`
	domain.ChatMessage
}

// FileTranscriptLog appends transcript entries to an NDJSON file from a
// background writer so Append never blocks the conversation.
type FileTranscriptLog struct {
	conversationID string
	file           *os.File
	queue          chan domain.ChatMessage
	logger         *slog.Logger
	done           chan struct{}
	closeOnce      sync.Once
	mu             sync.RWMutex
	closed         bool
}

// NewFileTranscriptLog opens path for appending, creating parent directories.
func NewFileTranscriptLog(path string, queueSize int, logger *slog.Logger) (*FileTranscriptLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open transcript log: %w", err)
	}

	l := &FileTranscriptLog{
		conversationID: uuid.NewString(),
		file:           f,
		queue:          make(chan domain.ChatMessage, queueSize),
		logger:         logger,
		done:           make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// ConversationID identifies the entries written by this log.
func (l *FileTranscriptLog) ConversationID() string {
	return l.conversationID
}

// Append queues msg. When the queue is full the entry is dropped.
func (l *FileTranscriptLog) Append(msg domain.ChatMessage) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- msg:
	default:
		l.logger.Warn("transcript log queue full, dropping entry", "message_id", msg.ID)
	}
}

// Close flushes queued entries and closes the file.
func (l *FileTranscriptLog) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()

		<-l.done
		err = l.file.Close()
	})
	return err
}

func (l *FileTranscriptLog) run() {
	defer close(l.done)
	enc := json.NewEncoder(l.file)
	for msg := range l.queue {
		entry := TranscriptLogEntry{ConversationID: l.conversationID, ChatMessage: msg}
		if err := enc.Encode(entry); err != nil {
			l.logger.Warn("failed to write transcript entry", "error", err)
		}
	}
}
