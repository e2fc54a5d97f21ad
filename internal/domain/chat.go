package domain

import "time"

// ChatMessage is one entry in the chat transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatExchange is a persisted question and answer from the chat history endpoint.
type ChatExchange struct {
	ID        int64
	Message   string
	Response  string
	CreatedAt time.Time
}

// ChatHistoryPage is one page of persisted exchanges, newest first.
type ChatHistoryPage struct {
	History     []ChatExchange
	Total       int
	Pages       int
	CurrentPage int
}
