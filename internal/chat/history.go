package chat

import (
	"context"
	"net/url"
	"strconv"

	"github.com/ashureev/soil-advisor/internal/domain"
)

type historyResponse struct {
	History []struct {
		ID        int64  `json:"id"`
		Message   string `json:"message"`
		Response  string `json:"response"`
		CreatedAt string `json:"created_at"`
	} `json:"history"`
	Total       int `json:"total"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"current_page"`
}

// History fetches one page of persisted exchanges, newest first. Values of
// page or perPage below 1 are left to the server defaults. Request failures
// are returned as the client's *apiclient.APIError, unwrapped.
func (p *Pipeline) History(ctx context.Context, page, perPage int) (*domain.ChatHistoryPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	path := "/api/chat/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp historyResponse
	if err := p.api.Get(ctx, path, true, &resp); err != nil {
		return nil, err
	}

	out := &domain.ChatHistoryPage{
		History:     make([]domain.ChatExchange, 0, len(resp.History)),
		Total:       resp.Total,
		Pages:       resp.Pages,
		CurrentPage: resp.CurrentPage,
	}
	for _, h := range resp.History {
		out.History = append(out.History, domain.ChatExchange{
			ID:        h.ID,
			Message:   h.Message,
			Response:  h.Response,
			CreatedAt: domain.ParseTimestamp(h.CreatedAt),
		})
	}
	return out, nil
}
